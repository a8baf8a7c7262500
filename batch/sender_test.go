package batch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dablob/client-go/ledger"
	"github.com/dablob/client-go/ledgerrpc"
)

// sendCapturingServer answers getLatestBlockhash (for the watcher) and records every
// sendTransaction call's raw base64 body, so a test can tell whether the sender dispatched
// the same signed bytes twice or rebuilt them.
func sendCapturingServer(t *testing.T, slot, lastValidBlockHeight uint64) (*httptest.Server, *[]string) {
	t.Helper()
	var sent []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			Params []any  `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		switch req.Method {
		case "getLatestBlockhash":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"result": map[string]any{
					"context": map[string]any{"slot": slot},
					"value":   map[string]any{"blockhash": "testhash", "lastValidBlockHeight": lastValidBlockHeight},
				},
			})
		case "sendTransaction":
			encoded, _ := req.Params[0].(string)
			raw, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				t.Fatalf("decoding sendTransaction base64 payload: %v", err)
			}
			sent = append(sent, string(raw))
			_ = json.NewEncoder(w).Encode(map[string]any{"result": "sig"})
		default:
			t.Fatalf("unexpected method %q", req.Method)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &sent
}

func newTestSender(t *testing.T, slot, lastValidBlockHeight uint64) (*sender, *[]string) {
	t.Helper()
	srv, sent := sendCapturingServer(t, slot, lastValidBlockHeight)
	rpc := ledgerrpc.New(srv.URL)

	watcher := ledger.NewBlockWatcher(rpc, time.Hour, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go watcher.Run(ctx)
	if err := watcher.WaitUntilReady(ctx); err != nil {
		t.Fatalf("WaitUntilReady: %v", err)
	}

	in := make(chan outbound, 1)
	out := make(chan toConfirm, 1)
	earlyFails := make(chan statusUpdate, 1)

	s := &sender{
		rpc:        rpc,
		watcher:    watcher,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		log:        zap.NewNop(),
		in:         in,
		out:        out,
		earlyFails: earlyFails,
	}
	return s, sent
}

func countingBuilder(count *int) Builder {
	return func(blockhash string) ([]byte, string, error) {
		*count++
		return []byte("wire:" + blockhash), "sig:" + blockhash, nil
	}
}

func TestHandleKeepsSignatureWhenStillValid(t *testing.T) {
	s, sent := newTestSender(t, 100, 200)

	builds := 0
	msg := outbound{
		index:                1,
		build:                countingBuilder(&builds),
		lastValidBlockHeight: 150, // slot(100) is not > 150+1, so this is still valid
		wireTx:               []byte("already-signed-wire"),
		signature:            "already-signed-sig",
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.handle(ctx, msg)

	if builds != 0 {
		t.Fatalf("expected build not to be called when the signature is still valid, called %d times", builds)
	}
	if len(*sent) != 1 || (*sent)[0] != "already-signed-wire" {
		t.Fatalf("expected the previously-signed bytes to be sent as-is, got %v", *sent)
	}

	confirmed := <-s.out
	if confirmed.signature != "already-signed-sig" {
		t.Fatalf("expected the carried-forward signature to be forwarded, got %q", confirmed.signature)
	}
}

func TestHandleResignsWhenExpired(t *testing.T) {
	s, sent := newTestSender(t, 500, 600)

	builds := 0
	msg := outbound{
		index:                1,
		build:                countingBuilder(&builds),
		lastValidBlockHeight: 100, // slot(500) > 100+1: expired
		wireTx:               []byte("stale-wire"),
		signature:            "stale-sig",
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.handle(ctx, msg)

	if builds != 1 {
		t.Fatalf("expected exactly one fresh build, got %d", builds)
	}
	if len(*sent) != 1 || (*sent)[0] != "wire:testhash" {
		t.Fatalf("expected the freshly-built wire bytes to be sent, got %v", *sent)
	}

	confirmed := <-s.out
	if confirmed.signature != "sig:testhash" {
		t.Fatalf("expected the freshly-built signature to be forwarded, got %q", confirmed.signature)
	}
	if confirmed.lastValidBlockHeight != 600 {
		t.Fatalf("expected lastValidBlockHeight to be refreshed to 600, got %d", confirmed.lastValidBlockHeight)
	}
}

func TestHandleResignsOnSentinelZero(t *testing.T) {
	s, sent := newTestSender(t, 10, 20)

	builds := 0
	msg := outbound{
		index:                1,
		build:                countingBuilder(&builds),
		lastValidBlockHeight: 0, // never signed
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.handle(ctx, msg)

	if builds != 1 {
		t.Fatalf("expected exactly one build for a never-signed message, got %d", builds)
	}
	if len(*sent) != 1 || (*sent)[0] != "wire:testhash" {
		t.Fatalf("expected the freshly-built wire bytes to be sent, got %v", *sent)
	}
}
