// Package ledgerrpc is a minimal JSON-RPC client for the handful of ledger RPC methods
// the fee estimator, block watcher, transaction sender, confirmer, and recovery walker
// need. It does not attempt to be a general-purpose RPC SDK.
package ledgerrpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
)

// Client is a thin JSON-RPC 2.0 client bound to a single ledger RPC endpoint.
type Client struct {
	endpoint string
	http     *retryablehttp.Client
}

// New constructs a Client against the given HTTP(S) RPC endpoint. Transport-level
// retries (timeouts, 5xx, connection resets) are handled by the underlying
// retryablehttp.Client; RPC-level errors are returned to the caller untouched so callers
// can apply their own policy (the fee estimator, for instance, retries with backoff).
func New(endpoint string) *Client {
	rc := retryablehttp.NewClient()
	rc.Logger = nil
	return &Client{endpoint: endpoint, http: rc}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string { return fmt.Sprintf("ledgerrpc: %d: %s", e.Code, e.Message) }

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("ledgerrpc: marshal request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ledgerrpc: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ledgerrpc: %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ledgerrpc: %s: read response: %w", method, err)
	}

	var rr rpcResponse
	if err := json.Unmarshal(raw, &rr); err != nil {
		return fmt.Errorf("ledgerrpc: %s: decode envelope: %w", method, err)
	}
	if rr.Error != nil {
		return rr.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rr.Result, out); err != nil {
		return fmt.Errorf("ledgerrpc: %s: decode result: %w", method, err)
	}
	return nil
}

// Blockhash is the result of GetLatestBlockhash.
type Blockhash struct {
	Blockhash            string `json:"blockhash"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

// GetLatestBlockhash fetches the current blockhash and its expiry height.
func (c *Client) GetLatestBlockhash(ctx context.Context, commitment string) (Blockhash, uint64, error) {
	var out struct {
		Context struct {
			Slot uint64 `json:"slot"`
		} `json:"context"`
		Value Blockhash `json:"value"`
	}
	err := c.call(ctx, "getLatestBlockhash", []any{map[string]string{"commitment": commitment}}, &out)
	return out.Value, out.Context.Slot, err
}

// PrioritizationFeeSample is one entry of GetRecentPrioritizationFees.
type PrioritizationFeeSample struct {
	Slot              uint64 `json:"slot"`
	PrioritizationFee uint64 `json:"prioritizationFee"`
}

// GetRecentPrioritizationFees returns recent per-slot prioritization fee samples for the
// given accounts (base58-encoded).
func (c *Client) GetRecentPrioritizationFees(ctx context.Context, accounts []string) ([]PrioritizationFeeSample, error) {
	var out []PrioritizationFeeSample
	err := c.call(ctx, "getRecentPrioritizationFees", []any{accounts}, &out)
	return out, err
}

// SignatureStatus mirrors the ledger's getSignatureStatuses entry shape.
type SignatureStatus struct {
	Slot               uint64 `json:"slot"`
	Confirmations      *uint64
	ConfirmationStatus string `json:"confirmationStatus"`
	Err                any    `json:"err"`
}

// GetSignatureStatuses looks up the confirmation state of up to 256 signatures in one
// call.
func (c *Client) GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error) {
	var out struct {
		Value []*SignatureStatus `json:"value"`
	}
	err := c.call(ctx, "getSignatureStatuses", []any{signatures, map[string]bool{"searchTransactionHistory": true}}, &out)
	return out.Value, err
}

// SendTransaction submits a fully-signed, wire-encoded transaction and returns its
// signature.
func (c *Client) SendTransaction(ctx context.Context, wireTx []byte, skipPreflight bool) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(wireTx)
	var sig string
	err := c.call(ctx, "sendTransaction", []any{encoded, map[string]any{
		"encoding":      "base64",
		"skipPreflight": skipPreflight,
	}}, &sig)
	return sig, err
}

// GetAccountInfo fetches raw account data (base64-encoded on the wire, decoded here) for
// the given base58 address.
func (c *Client) GetAccountInfo(ctx context.Context, address string, commitment string) ([]byte, uint64, error) {
	var out struct {
		Context struct {
			Slot uint64 `json:"slot"`
		} `json:"context"`
		Value *struct {
			Data []string `json:"data"`
		} `json:"value"`
	}
	err := c.call(ctx, "getAccountInfo", []any{address, map[string]string{
		"encoding":   "base64",
		"commitment": commitment,
	}}, &out)
	if err != nil {
		return nil, 0, err
	}
	if out.Value == nil || len(out.Value.Data) == 0 {
		return nil, out.Context.Slot, fmt.Errorf("ledgerrpc: account %s not found", address)
	}
	raw, err := base64.StdEncoding.DecodeString(out.Value.Data[0])
	if err != nil {
		return nil, 0, fmt.Errorf("ledgerrpc: decode account data: %w", err)
	}
	return raw, out.Context.Slot, nil
}

// GetSignaturesForAddress walks an account's signature history, most recent first,
// matching the pagination shape recovery needs (before/until cursors, limit).
func (c *Client) GetSignaturesForAddress(ctx context.Context, address string, before string, limit int) ([]SignatureInfo, error) {
	params := map[string]any{"limit": limit}
	if before != "" {
		params["before"] = before
	}
	var out []SignatureInfo
	err := c.call(ctx, "getSignaturesForAddress", []any{address, params}, &out)
	return out, err
}

// SignatureInfo is one entry returned by GetSignaturesForAddress.
type SignatureInfo struct {
	Signature string `json:"signature"`
	Slot      uint64 `json:"slot"`
	Err       any    `json:"err"`
	BlockTime *int64 `json:"blockTime"`
}

// GetTransaction fetches a finalized transaction's raw message bytes by signature.
func (c *Client) GetTransaction(ctx context.Context, signature string) ([]byte, uint64, error) {
	var out struct {
		Slot        uint64 `json:"slot"`
		Transaction []string
	}
	err := c.call(ctx, "getTransaction", []any{signature, map[string]string{"encoding": "base64"}}, &out)
	if err != nil {
		return nil, 0, err
	}
	if len(out.Transaction) == 0 {
		return nil, out.Slot, fmt.Errorf("ledgerrpc: transaction %s not found", signature)
	}
	raw, err := base64.StdEncoding.DecodeString(out.Transaction[0])
	if err != nil {
		return nil, 0, fmt.Errorf("ledgerrpc: decode transaction: %w", err)
	}
	return raw, out.Slot, nil
}
