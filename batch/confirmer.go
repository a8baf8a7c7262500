package batch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dablob/client-go/ledger"
	"github.com/dablob/client-go/ledgerrpc"
)

// maxSignaturesPerStatusCall is the ledger RPC's documented cap on signatures accepted
// by a single getSignatureStatuses call.
const maxSignaturesPerStatusCall = 256

// confirmItem is one message the confirmer is currently tracking.
type confirmItem struct {
	build                Builder
	signature            string
	lastValidBlockHeight uint64
}

// confirmer polls signature statuses for every in-flight message, reports terminal
// outcomes, and re-queues expired-but-unlanded messages back to the sender for a fresh
// attempt. Grounded on the same ctx-cancellable task-loop shape as sender.
type confirmer struct {
	rpc      *ledgerrpc.Client
	watcher  *ledger.BlockWatcher
	interval time.Duration
	log      *zap.Logger

	in     <-chan toConfirm
	resend chan<- outbound
	out    chan<- statusUpdate

	inFlight map[int]confirmItem
}

// DefaultConfirmPollInterval is how often the confirmer polls signature statuses.
const DefaultConfirmPollInterval = 400 * time.Millisecond

func newConfirmer(rpc *ledgerrpc.Client, watcher *ledger.BlockWatcher, interval time.Duration, in <-chan toConfirm, resend chan<- outbound, out chan<- statusUpdate, log *zap.Logger) *confirmer {
	if interval <= 0 {
		interval = DefaultConfirmPollInterval
	}
	return &confirmer{
		rpc:      rpc,
		watcher:  watcher,
		interval: interval,
		log:      log,
		in:       in,
		resend:   resend,
		out:      out,
		inFlight: make(map[int]confirmItem),
	}
}

func (c *confirmer) run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-c.in:
			if !ok {
				c.in = nil
				continue
			}
			c.inFlight[item.index] = confirmItem{build: item.build, signature: item.signature, lastValidBlockHeight: item.lastValidBlockHeight}
		case <-ticker.C:
			c.poll(ctx)
		}
	}
}

func (c *confirmer) poll(ctx context.Context) {
	if len(c.inFlight) == 0 {
		return
	}

	indices := make([]int, 0, len(c.inFlight))
	sigs := make([]string, 0, len(c.inFlight))
	for idx, item := range c.inFlight {
		indices = append(indices, idx)
		sigs = append(sigs, item.signature)
	}

	bd := c.watcher.Current()

	for start := 0; start < len(sigs); start += maxSignaturesPerStatusCall {
		end := start + maxSignaturesPerStatusCall
		if end > len(sigs) {
			end = len(sigs)
		}
		statuses, err := c.rpc.GetSignatureStatuses(ctx, sigs[start:end])
		if err != nil {
			c.log.Warn("confirmer poll failed", zap.Error(err))
			return
		}
		for i, st := range statuses {
			idx := indices[start+i]
			c.evaluate(ctx, idx, st, bd)
		}
	}
}

func (c *confirmer) evaluate(ctx context.Context, idx int, st *ledgerrpc.SignatureStatus, bd ledger.BlockData) {
	item, ok := c.inFlight[idx]
	if !ok {
		return
	}

	status, note, err := fromLedgerStatus(st)

	if status.shouldReconfirm() {
		if bd.Slot > item.lastValidBlockHeight {
			// The blockhash this message was signed against has expired and it
			// still hasn't landed: send it back to the sender for a fresh sign
			// and resend.
			delete(c.inFlight, idx)
			select {
			case c.resend <- outbound{index: idx, build: item.build, lastValidBlockHeight: 0}:
			case <-ctx.Done():
			}
			return
		}
		// Still within its valid window; keep waiting.
		return
	}

	delete(c.inFlight, idx)
	u := statusUpdate{index: idx, status: status, signature: item.signature, note: note}
	if st != nil {
		u.slot = st.Slot
	}
	if status == StatusFailed {
		u.err = err
	}
	select {
	case c.out <- u:
	case <-ctx.Done():
	}
}

// fromLedgerStatus classifies a raw signature status the same way the reference client
// does: an AlreadyProcessed error is normalized to Committed (see DESIGN.md Open
// Question #1) rather than surfaced as a failure, since it proves the transaction did
// land. Any other non-nil error is terminal failure. A nil status (not yet observed by
// the RPC node) is Pending; an observed-but-not-yet-committed status is Processing.
func fromLedgerStatus(st *ledgerrpc.SignatureStatus) (Status, string, error) {
	if st == nil {
		return StatusPending, "", nil
	}
	if st.Err != nil {
		if isAlreadyProcessed(st.Err) {
			return StatusCommitted, "already processed", nil
		}
		return StatusFailed, "", fmt.Errorf("batch: transaction failed: %v", st.Err)
	}
	switch st.ConfirmationStatus {
	case "confirmed", "finalized":
		return StatusCommitted, "", nil
	default:
		return StatusProcessing, "", nil
	}
}

func isAlreadyProcessed(raw any) bool {
	if s, ok := raw.(string); ok {
		return s == "AlreadyProcessed"
	}
	return false
}
