package upload

import (
	"bytes"
	"crypto/ed25519"
	"testing"

	"github.com/dablob/client-go/fee"
	"github.com/dablob/client-go/walletsign"
)

func TestBuildAndDecodeWireTransactionRoundTrip(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer := walletsign.NewStatic(priv)

	container := [32]byte{1, 2, 3}
	instructions := []instruction{
		declareInstruction(7, 915, 1),
		insertInstruction(7, 0, []byte("chunk bytes")),
	}

	pinned := fee.Fee{NumSignatures: 1, ComputeUnitLimit: DefaultComputeUnitLimit, PrioritizationFeeRate: 500}
	builder := buildTransaction(signer, container, pinned, instructions)
	wire, sigStr, err := builder("Ab12Cd34fakeblockhash")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if sigStr == "" {
		t.Fatalf("expected non-empty signature string")
	}

	sig, blockhash, gotContainer, decoded, err := DecodeWireTransaction(wire)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if blockhash != "Ab12Cd34fakeblockhash" {
		t.Fatalf("blockhash mismatch: got %q", blockhash)
	}
	if gotContainer != container {
		t.Fatalf("container mismatch")
	}
	if len(decoded) != 3 {
		t.Fatalf("expected 3 decoded instructions (fee + declare + insert), got %d", len(decoded))
	}
	if decoded[0].Kind != TxSetComputeBudget || decoded[1].Kind != TxDeclareBlob || decoded[2].Kind != TxInsertChunk {
		t.Fatalf("unexpected instruction kinds: %v %v %v", decoded[0].Kind, decoded[1].Kind, decoded[2].Kind)
	}

	blobID, _, chunk, err := DecodeInsertChunk(decoded[2].Data)
	if err != nil {
		t.Fatalf("decode insert chunk: %v", err)
	}
	if blobID != 7 || !bytes.Equal(chunk, []byte("chunk bytes")) {
		t.Fatalf("insert chunk payload mismatch: blobID=%d chunk=%q", blobID, chunk)
	}

	if !ed25519.Verify(priv.Public().(ed25519.PublicKey), wire[64:], sig[:]) {
		t.Fatalf("signature did not verify over the encoded message")
	}
}
