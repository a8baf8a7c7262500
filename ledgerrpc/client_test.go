package ledgerrpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T, handler func(method string) (result any, rpcErr *rpcError)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		result, rpcErr := handler(req.Method)
		resp := rpcResponse{Error: rpcErr}
		if rpcErr == nil {
			raw, err := json.Marshal(result)
			if err != nil {
				t.Fatalf("marshaling result: %v", err)
			}
			resp.Result = raw
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGetLatestBlockhash(t *testing.T) {
	srv := newTestServer(t, func(method string) (any, *rpcError) {
		if method != "getLatestBlockhash" {
			t.Fatalf("unexpected method %q", method)
		}
		return map[string]any{
			"context": map[string]any{"slot": 123},
			"value":   map[string]any{"blockhash": "abc", "lastValidBlockHeight": 456},
		}, nil
	})

	c := New(srv.URL)
	bh, slot, err := c.GetLatestBlockhash(context.Background(), "confirmed")
	if err != nil {
		t.Fatalf("GetLatestBlockhash: %v", err)
	}
	if bh.Blockhash != "abc" || bh.LastValidBlockHeight != 456 || slot != 123 {
		t.Fatalf("unexpected result: %+v slot=%d", bh, slot)
	}
}

func TestCallSurfacesRPCError(t *testing.T) {
	srv := newTestServer(t, func(method string) (any, *rpcError) {
		return nil, &rpcError{Code: -32000, Message: "boom"}
	})

	c := New(srv.URL)
	_, _, err := c.GetLatestBlockhash(context.Background(), "confirmed")
	if err == nil {
		t.Fatalf("expected an rpc error to surface")
	}
}

func TestGetSignatureStatusesBatches(t *testing.T) {
	srv := newTestServer(t, func(method string) (any, *rpcError) {
		return map[string]any{
			"value": []any{
				map[string]any{"slot": 1, "confirmationStatus": "confirmed"},
				nil,
			},
		}, nil
	})

	c := New(srv.URL)
	statuses, err := c.GetSignatureStatuses(context.Background(), []string{"sig1", "sig2"})
	if err != nil {
		t.Fatalf("GetSignatureStatuses: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[0] == nil || statuses[0].ConfirmationStatus != "confirmed" {
		t.Fatalf("unexpected first status: %+v", statuses[0])
	}
	if statuses[1] != nil {
		t.Fatalf("expected second status to be nil (not yet observed)")
	}
}
