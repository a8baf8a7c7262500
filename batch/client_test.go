package batch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dablob/client-go/ledgerrpc"
)

// fakeLedgerServer answers getLatestBlockhash, sendTransaction, and getSignatureStatuses
// so Client can be exercised end to end without a real ledger RPC endpoint. Every
// submitted signature is reported as immediately confirmed.
func fakeLedgerServer(t *testing.T) *httptest.Server {
	t.Helper()
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
					"context": map[string]any{"slot": 1},
					"value":   map[string]any{"blockhash": "testhash", "lastValidBlockHeight": 1000},
				},
			})
		case "sendTransaction":
			_ = json.NewEncoder(w).Encode(map[string]any{"result": "sig"})
		case "getSignatureStatuses":
			sigs, _ := req.Params[0].([]any)
			statuses := make([]any, len(sigs))
			for i := range sigs {
				statuses[i] = map[string]any{"slot": 2, "confirmationStatus": "confirmed"}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"value": statuses}})
		default:
			t.Fatalf("unexpected method %q", req.Method)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientSendReachesCommitted(t *testing.T) {
	srv := fakeLedgerServer(t)
	rpc := ledgerrpc.New(srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := NewClient(ctx, rpc, Config{SendInterval: time.Millisecond, ConfirmPollInterval: 5 * time.Millisecond, BlockWatchInterval: 5 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	builder := func(blockhash string) ([]byte, string, error) {
		return []byte("wire:" + blockhash), "sig-" + blockhash, nil
	}

	outcomes, err := client.Send(ctx, []Builder{builder}, 5*time.Second, nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	if outcomes[0].Status != StatusCommitted {
		t.Fatalf("expected Committed, got %v (err=%v)", outcomes[0].Status, outcomes[0].Err)
	}
}
