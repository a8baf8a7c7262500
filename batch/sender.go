package batch

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dablob/client-go/ledger"
	"github.com/dablob/client-go/ledgerrpc"
)

// sender re-signs (when the previously signed blockhash has expired), rate-paces, and
// dispatches outbound messages, then forwards each to the confirmer. Its run loop
// follows the ctx-cancellable, channel-driven shape used throughout this codebase for
// background tasks: a blocking channel receive is unstuck by closing the inbound channel
// once ctx is done, mirroring the net.Conn-close trick used to unstick a blocking read
// elsewhere in this tree.
type sender struct {
	rpc     *ledgerrpc.Client
	watcher *ledger.BlockWatcher
	limiter *rate.Limiter
	log     *zap.Logger

	in         <-chan outbound
	out        chan<- toConfirm
	earlyFails chan<- statusUpdate
}

func newSender(rpc *ledgerrpc.Client, watcher *ledger.BlockWatcher, sendInterval time.Duration, in <-chan outbound, out chan<- toConfirm, earlyFails chan<- statusUpdate, log *zap.Logger) *sender {
	return &sender{
		rpc:        rpc,
		watcher:    watcher,
		limiter:    rate.NewLimiter(rate.Every(sendInterval), 1),
		log:        log,
		in:         in,
		out:        out,
		earlyFails: earlyFails,
	}
}

func (s *sender) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-s.in:
			if !ok {
				return
			}
			s.handle(ctx, msg)
		}
	}
}

func (s *sender) handle(ctx context.Context, msg outbound) {
	if err := s.limiter.Wait(ctx); err != nil {
		return
	}

	bd := s.watcher.Current()

	// Keep the previously signed bytes when they're still within their valid window:
	// resigning on every pass would mint a new signature (and, with fee pinning,
	// would be needless churn) for a transaction that hasn't actually expired. Only a
	// never-signed message (sentinel 0) or one whose blockhash has now expired needs a
	// fresh signature.
	resign := msg.lastValidBlockHeight == 0 || bd.Slot > msg.lastValidBlockHeight+1
	if resign {
		wireTx, signature, err := msg.build(bd.Blockhash)
		if err != nil {
			s.forward(ctx, statusUpdate{index: msg.index, status: StatusFailed, err: err})
			return
		}
		msg.wireTx = wireTx
		msg.signature = signature
		msg.lastValidBlockHeight = bd.LastValidBlockHeight
	}

	if _, err := s.rpc.SendTransaction(ctx, msg.wireTx, false); err != nil {
		s.log.Debug("send failed, will retry on next confirmer pass", zap.Int("index", msg.index), zap.Error(err))
	}

	select {
	case s.out <- toConfirm{index: msg.index, build: msg.build, signature: msg.signature, lastValidBlockHeight: msg.lastValidBlockHeight}:
	case <-ctx.Done():
	}
}

func (s *sender) forward(ctx context.Context, u statusUpdate) {
	select {
	case s.earlyFails <- u:
	case <-ctx.Done():
	}
}
