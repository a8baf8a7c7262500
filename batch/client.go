// Package batch implements the batch transaction engine: a sender task that signs,
// paces, and dispatches transactions, and a confirmer task that polls for their terminal
// status and re-queues expired-but-unlanded ones, wired together behind a single public
// facade.
package batch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dablob/client-go/internal/clock"
	"github.com/dablob/client-go/ledger"
	"github.com/dablob/client-go/ledgerrpc"
)

// SendInterval is the default pacing interval between transaction dispatches. spec.md
// §9 calls this out as a constant implementers targeting other deployments may want to
// override; Config.SendInterval is that override point (see DESIGN.md Open Question #2).
const SendInterval = 3 * time.Millisecond

// Config controls the facade's internal tuning. Zero values fall back to defaults.
type Config struct {
	SendInterval        time.Duration
	ConfirmPollInterval time.Duration
	BlockWatchInterval  time.Duration
}

// ProgressFunc is called whenever the set of known Outcomes changes while Send is
// waiting for a batch to finish.
type ProgressFunc func(outcomes []Outcome)

// Client is the public facade: construct one, call Send any number of times, call
// Close when done. Closing cancels the sender and confirmer tasks; they hold no
// references back to the facade that would keep them alive past that point, so exactly
// one Close is the entire shutdown sequence, mirroring the "drop the facade to stop the
// tasks" shutdown semantics of DESIGN.md's weak-handle discussion.
type Client struct {
	rpc     *ledgerrpc.Client
	watcher *ledger.BlockWatcher
	log     *zap.Logger

	outbound  chan outbound
	toConfirm chan toConfirm
	resend    chan outbound
	statuses  chan statusUpdate

	nextIndex int

	cancel context.CancelFunc
	done   chan struct{}
}

// NewClient wires the block watcher, sender, and confirmer tasks and starts them. The
// returned Client owns their lifetime until Close is called.
func NewClient(ctx context.Context, rpc *ledgerrpc.Client, cfg Config, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.SendInterval <= 0 {
		cfg.SendInterval = SendInterval
	}

	runCtx, cancel := context.WithCancel(ctx)

	watcher := ledger.NewBlockWatcher(rpc, cfg.BlockWatchInterval, log)
	go watcher.Run(runCtx)
	if err := watcher.WaitUntilReady(runCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("batch: waiting for initial blockhash: %w", err)
	}

	c := &Client{
		rpc:       rpc,
		watcher:   watcher,
		log:       log,
		outbound:  make(chan outbound, 64),
		toConfirm: make(chan toConfirm, 64),
		resend:    make(chan outbound, 64),
		statuses:  make(chan statusUpdate, 64),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	conf := newConfirmer(rpc, watcher, cfg.ConfirmPollInterval, c.toConfirm, c.resend, c.statuses, log)
	snd := newSender(rpc, watcher, cfg.SendInterval, c.merged(runCtx), c.toConfirm, c.statuses, log)

	go conf.run(runCtx)
	go func() {
		snd.run(runCtx)
		close(c.done)
	}()

	return c, nil
}

// merged fans the initial-send channel and the confirmer's resend channel into one
// stream the sender reads from, so a resend is handled by exactly the same code path as
// a first send.
func (c *Client) merged(ctx context.Context) <-chan outbound {
	out := make(chan outbound)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case m := <-c.outbound:
				select {
				case out <- m:
				case <-ctx.Done():
					return
				}
			case m := <-c.resend:
				select {
				case out <- m:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Close stops the sender and confirmer tasks. Send must not be called concurrently with
// or after Close.
func (c *Client) Close() {
	c.cancel()
	<-c.done
}

// Send enqueues every builder for signing/submission/confirmation and blocks until all
// have reached a terminal status or timeout elapses. A zero timeout means "wait
// effectively forever" (the reference client's thirty-year deadline convention).
func (c *Client) Send(ctx context.Context, builders []Builder, timeout time.Duration, progress ProgressFunc) ([]Outcome, error) {
	deadline := clock.DeadlineOrFarFuture(timeout)
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	base := c.nextIndex
	outcomes := make([]Outcome, len(builders))
	pending := make(map[int]bool, len(builders))
	for i, b := range builders {
		idx := base + i
		outcomes[i] = Outcome{Index: idx, Status: StatusPending}
		pending[idx] = true

		select {
		case c.outbound <- outbound{index: idx, build: b, lastValidBlockHeight: 0}:
		case <-ctx.Done():
			return outcomes, ctx.Err()
		}
	}
	c.nextIndex += len(builders)

	poll := time.NewTicker(100 * time.Millisecond)
	defer poll.Stop()

	changed := false
	for len(pending) > 0 {
		select {
		case <-ctx.Done():
			return outcomes, ctx.Err()
		case u := <-c.statuses:
			relIdx := u.index - base
			if relIdx < 0 || relIdx >= len(outcomes) {
				continue
			}
			outcomes[relIdx] = Outcome{Index: u.index, Status: u.status, Slot: u.slot, Signature: u.signature, Err: u.err, Note: u.note}
			if !u.status.shouldReconfirm() {
				delete(pending, u.index)
			}
			changed = true
		case <-poll.C:
			if changed && progress != nil {
				progress(append([]Outcome(nil), outcomes...))
				changed = false
			}
		}
	}
	if progress != nil {
		progress(append([]Outcome(nil), outcomes...))
	}
	return outcomes, nil
}
