package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dablob/client-go/ledgerrpc"
)

func blockhashServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{
				"context": map[string]any{"slot": 7},
				"value":   map[string]any{"blockhash": "fakehash", "lastValidBlockHeight": 99},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBlockWatcherPollsAndPublishes(t *testing.T) {
	srv := blockhashServer(t)
	rpc := ledgerrpc.New(srv.URL)
	w := NewBlockWatcher(rpc, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	if err := w.WaitUntilReady(ctx); err != nil {
		t.Fatalf("WaitUntilReady: %v", err)
	}

	bd := w.Current()
	if bd.Blockhash != "fakehash" || bd.LastValidBlockHeight != 99 || bd.Slot != 7 {
		t.Fatalf("unexpected block data: %+v", bd)
	}
}

func TestBlockWatcherWaitUntilReadyRespectsCancellation(t *testing.T) {
	rpc := ledgerrpc.New("http://127.0.0.1:0")
	w := NewBlockWatcher(rpc, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.WaitUntilReady(ctx); err == nil {
		t.Fatalf("expected WaitUntilReady to return an error once ctx is already cancelled")
	}
}
