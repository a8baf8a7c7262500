// Package ledger implements the block watcher: a single background task that keeps the
// current blockhash and its expiry height fresh for every other component that needs it.
package ledger

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dablob/client-go/ledgerrpc"
)

// BlockData is the latest known blockhash and the height at which it stops being valid
// for transaction construction.
type BlockData struct {
	Blockhash            string
	LastValidBlockHeight uint64
	Slot                 uint64
}

// BlockWatcher polls the ledger for the latest blockhash on a fixed interval and
// publishes it for any number of readers. Exactly one goroutine ever calls the RPC; reads
// never block on that goroutine.
type BlockWatcher struct {
	rpc      *ledgerrpc.Client
	interval time.Duration
	log      *zap.Logger

	mu      sync.RWMutex
	current BlockData
	ready   chan struct{}
	once    sync.Once
}

// DefaultPollInterval matches a typical ledger slot time; it is fast enough that callers
// rarely wait long for a fresh blockhash, without hammering the RPC endpoint.
const DefaultPollInterval = 400 * time.Millisecond

// NewBlockWatcher constructs a watcher. Call Run in its own goroutine to start polling.
func NewBlockWatcher(rpc *ledgerrpc.Client, interval time.Duration, log *zap.Logger) *BlockWatcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BlockWatcher{rpc: rpc, interval: interval, log: log, ready: make(chan struct{})}
}

// Run polls until ctx is cancelled. It is meant to be started once, in its own
// goroutine, by the owner of the BlockWatcher.
func (w *BlockWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *BlockWatcher) poll(ctx context.Context) {
	bh, slot, err := w.rpc.GetLatestBlockhash(ctx, "confirmed")
	if err != nil {
		w.log.Warn("block watcher poll failed", zap.Error(err))
		return
	}
	w.mu.Lock()
	w.current = BlockData{Blockhash: bh.Blockhash, LastValidBlockHeight: bh.LastValidBlockHeight, Slot: slot}
	w.mu.Unlock()
	w.once.Do(func() { close(w.ready) })
}

// Current returns the most recently observed BlockData. It never blocks on the network.
func (w *BlockWatcher) Current() BlockData {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// WaitUntilReady blocks until the first successful poll has completed, or ctx is
// cancelled. The batch client facade uses this during startup so the sender never sees a
// zero-value BlockData.
func (w *BlockWatcher) WaitUntilReady(ctx context.Context) error {
	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
