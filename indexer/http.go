package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/mr-tron/base58"

	"github.com/dablob/client-go/digest"
	"github.com/dablob/client-go/proof"
)

// wireBlobProof, wireBlobCommitment, wireSlotCommitments, and wireCompoundProof are the
// indexer's JSON proof encoding. They exist because proof.BlobProof keeps its fields
// unexported (it is built through its constructor, never unmarshaled directly), so the
// indexer client decodes into these shapes first and reconstructs the real proof types
// from them through their constructors.
type wireBlobProof struct {
	Digest     [32]byte `json:"digest"`
	ChunkOrder []uint16 `json:"chunk_order"`
	Pubkey     [32]byte `json:"pubkey"`
}

type wireBlobCommitment struct {
	Pubkey [32]byte `json:"pubkey"`
	Digest [32]byte `json:"digest"`
	Size   uint32   `json:"size"`
}

type wireSlotCommitments struct {
	Slot        uint64               `json:"slot"`
	Commitments []wireBlobCommitment `json:"commitments"`
}

type wireCompoundProof struct {
	Blobs     []wireBlobProof       `json:"blobs"`
	Container [32]byte              `json:"container"`
	Slot      uint64                `json:"slot"`
	Groups    []wireSlotCommitments `json:"groups"`
}

func (w wireCompoundProof) toCompoundProof() proof.CompoundProof {
	blobs := make([]proof.BlobProof, len(w.Blobs))
	pubkeys := make([][32]byte, len(w.Blobs))
	for i, b := range w.Blobs {
		blobs[i] = proof.NewBlobProof(digest.Hash(b.Digest), b.ChunkOrder)
		pubkeys[i] = b.Pubkey
	}
	groups := make([]digest.SlotCommitments, len(w.Groups))
	for i, g := range w.Groups {
		commitments := make([]digest.BlobCommitment, len(g.Commitments))
		for j, c := range g.Commitments {
			commitments[j] = digest.BlobCommitment{BlobPubkey: c.Pubkey, BlobDigest: digest.Hash(c.Digest), BlobSize: c.Size}
		}
		groups[i] = digest.SlotCommitments{Slot: g.Slot, Commitments: commitments}
	}
	accumulator := proof.NewAccumulatorProof(w.Container, w.Slot, groups)
	return proof.NewCompoundProof(blobs, pubkeys, accumulator)
}

// HTTPClient is a reference Client implementation over HTTP, with optional WebSocket
// subscription support.
type HTTPClient struct {
	baseURL  string
	apiToken string
	http     *retryablehttp.Client
}

// NewHTTPClient constructs an HTTPClient against the given indexer base URL.
func NewHTTPClient(baseURL, apiToken string) *HTTPClient {
	rc := retryablehttp.NewClient()
	rc.Logger = nil
	return &HTTPClient{baseURL: baseURL, apiToken: apiToken, http: rc}
}

func (c *HTTPClient) do(ctx context.Context, path string, out any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("indexer: %s: status %d: %s", path, resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *HTTPClient) BlobsByContainer(ctx context.Context, container [32]byte, limit int) ([]BlobRecord, error) {
	path := fmt.Sprintf("/containers/%s/blobs?limit=%d", base58.Encode(container[:]), limit)
	var out []BlobRecord
	if err := c.do(ctx, path, &out); err != nil {
		return nil, &ErrBlobs{Cause: err}
	}
	return out, nil
}

func (c *HTTPClient) BlobByID(ctx context.Context, container [32]byte, blobID uint64) (BlobRecord, error) {
	path := fmt.Sprintf("/containers/%s/blobs/%d", base58.Encode(container[:]), blobID)
	var out BlobRecord
	if err := c.do(ctx, path, &out); err != nil {
		return BlobRecord{}, &ErrBlobs{Cause: err}
	}
	return out, nil
}

func (c *HTTPClient) FetchBlobBytes(ctx context.Context, container [32]byte, blobID uint64) ([]byte, error) {
	path := fmt.Sprintf("/containers/%s/blobs/%d/bytes", base58.Encode(container[:]), blobID)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, &ErrBlobs{Cause: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ErrBlobs{Cause: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ErrBlobs{Cause: err}
	}
	return raw, nil
}

func (c *HTTPClient) FetchProof(ctx context.Context, container [32]byte, slot uint64) (proof.CompoundProof, error) {
	path := fmt.Sprintf("/containers/%s/proof?slot=%d", base58.Encode(container[:]), slot)
	var out wireCompoundProof
	if err := c.do(ctx, path, &out); err != nil {
		return proof.CompoundProof{}, &ErrProof{Cause: err}
	}
	return out.toCompoundProof(), nil
}

func (c *HTTPClient) FetchProofForBlob(ctx context.Context, container [32]byte, blobID uint64) (proof.CompoundProof, error) {
	path := fmt.Sprintf("/containers/%s/blobs/%d/proof", base58.Encode(container[:]), blobID)
	var out wireCompoundProof
	if err := c.do(ctx, path, &out); err != nil {
		return proof.CompoundProof{}, &ErrProof{Cause: err}
	}
	return out.toCompoundProof(), nil
}

// Subscribe opens a WebSocket connection and streams newly finalized blobs for a
// container until ctx is cancelled.
func (c *HTTPClient) Subscribe(ctx context.Context, container [32]byte) (<-chan BlobRecord, error) {
	wsURL := "ws" + c.baseURL[len("http"):] + "/containers/" + base58.Encode(container[:]) + "/subscribe"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, &ErrBlobs{Cause: err}
	}

	out := make(chan BlobRecord)
	go func() {
		defer close(out)
		defer conn.Close()
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				_ = conn.Close()
			case <-done:
			}
		}()
		defer close(done)

		for {
			var rec BlobRecord
			if err := conn.ReadJSON(&rec); err != nil {
				return
			}
			select {
			case out <- rec:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
