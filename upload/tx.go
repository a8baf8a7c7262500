package upload

import (
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/dablob/client-go/batch"
	"github.com/dablob/client-go/fee"
	"github.com/dablob/client-go/walletsign"
)

// instruction is one opaque, program-specific instruction to be packed into a
// transaction message. Encoding the exact on-chain instruction schema is outside this
// library's scope (see SPEC_FULL.md's program-contract non-goals); what matters here is
// that every instruction for a given transaction type carries a stable, deterministic
// byte encoding so the resulting message hashes (and therefore signatures) are
// reproducible across re-signs against a fresh blockhash.
type instruction struct {
	kind TransactionType
	data []byte
}

// buildTransaction returns a batch.Builder that, given a fresh blockhash, deterministically
// re-encodes the message and signs it. Re-encoding (rather than caching the bytes) is
// what lets the sender safely re-sign against a new blockhash after expiry: the message
// always reflects the blockhash it is about to be submitted with.
//
// f is the single fee pinned for this upload (see Coordinator.pinFee): its compute-unit
// limit and prioritization-fee rate are prepended to instructions as a set_compute_budget
// instruction, so every phase of an upload — and every resubmission of a phase — pays the
// exact same price.
func buildTransaction(signer walletsign.Signer, container [32]byte, f fee.Fee, instructions []instruction) batch.Builder {
	withBudget := make([]instruction, 0, len(instructions)+1)
	withBudget = append(withBudget, feeInstruction(f))
	withBudget = append(withBudget, instructions...)
	return func(blockhash string) ([]byte, string, error) {
		msg := encodeMessage(blockhash, container, withBudget)
		sig, err := signer.Sign(msg)
		if err != nil {
			return nil, "", err
		}
		wire := make([]byte, 0, len(sig)+len(msg))
		wire = append(wire, sig[:]...)
		wire = append(wire, msg...)
		return wire, base58.Encode(sig[:]), nil
	}
}

// feeInstruction encodes the pinned compute-unit limit and prioritization-fee rate as a
// set_compute_budget instruction, matching the on-chain program's ComputeBudget111... style
// "set compute unit limit" / "set compute unit price" instructions combined into one.
func feeInstruction(f fee.Fee) instruction {
	data := make([]byte, 4+8)
	binary.LittleEndian.PutUint32(data[0:4], f.ComputeUnitLimit)
	binary.LittleEndian.PutUint64(data[4:12], uint64(f.PrioritizationFeeRate))
	return instruction{kind: TxSetComputeBudget, data: data}
}

func encodeMessage(blockhash string, container [32]byte, instructions []instruction) []byte {
	buf := make([]byte, 0, 64+len(instructions)*32)
	var bhLenBuf [2]byte
	binary.LittleEndian.PutUint16(bhLenBuf[:], uint16(len(blockhash)))
	buf = append(buf, bhLenBuf[:]...)
	buf = append(buf, []byte(blockhash)...)
	buf = append(buf, container[:]...)
	var countBuf [2]byte
	binary.LittleEndian.PutUint16(countBuf[:], uint16(len(instructions)))
	buf = append(buf, countBuf[:]...)
	for _, ins := range instructions {
		var kindBuf [2]byte
		binary.LittleEndian.PutUint16(kindBuf[:], uint16(ins.kind))
		buf = append(buf, kindBuf[:]...)
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(ins.data)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, ins.data...)
	}
	return buf
}

func declareInstruction(blobID uint64, totalSize uint32, chunkCount uint16) instruction {
	data := make([]byte, 8+4+2)
	binary.LittleEndian.PutUint64(data[0:8], blobID)
	binary.LittleEndian.PutUint32(data[8:12], totalSize)
	binary.LittleEndian.PutUint16(data[12:14], chunkCount)
	return instruction{kind: TxDeclareBlob, data: data}
}

func insertInstruction(blobID uint64, index uint16, chunk []byte) instruction {
	data := make([]byte, 0, 8+2+len(chunk))
	var idBuf [8]byte
	binary.LittleEndian.PutUint64(idBuf[:], blobID)
	data = append(data, idBuf[:]...)
	var idxBuf [2]byte
	binary.LittleEndian.PutUint16(idxBuf[:], index)
	data = append(data, idxBuf[:]...)
	data = append(data, chunk...)
	return instruction{kind: TxInsertChunk, data: data}
}

func finalizeInstruction(blobID uint64, digest [32]byte) instruction {
	data := make([]byte, 8+32)
	binary.LittleEndian.PutUint64(data[0:8], blobID)
	copy(data[8:], digest[:])
	return instruction{kind: TxFinalizeBlob, data: data}
}

func discardInstruction(blobID uint64) instruction {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint64(data, blobID)
	return instruction{kind: TxDiscardBlob, data: data}
}

// Instruction is the exported form of instruction, for callers (notably recovery) that
// need to inspect a decoded transaction's instructions without re-deriving this
// package's wire format themselves.
type Instruction struct {
	Kind TransactionType
	Data []byte
}

// DecodeWireTransaction parses a transaction as produced by buildTransaction: a 64-byte
// ed25519 signature followed by the message buildTransaction signed. It is the inverse
// of buildTransaction/encodeMessage and is what the recovery walker uses to replay
// insert_chunk instructions directly from raw ledger data, bypassing the indexer
// entirely.
func DecodeWireTransaction(wire []byte) (signature [64]byte, blockhash string, container [32]byte, instructions []Instruction, err error) {
	if len(wire) < 64+2 {
		return signature, "", container, nil, fmt.Errorf("upload: wire transaction too short: %d bytes", len(wire))
	}
	copy(signature[:], wire[0:64])
	msg := wire[64:]

	if len(msg) < 2 {
		return signature, "", container, nil, fmt.Errorf("upload: truncated blockhash length")
	}
	bhLen := int(binary.LittleEndian.Uint16(msg[0:2]))
	offset := 2
	if offset+bhLen+32+2 > len(msg) {
		return signature, "", container, nil, fmt.Errorf("upload: truncated message header")
	}
	blockhash = string(msg[offset : offset+bhLen])
	offset += bhLen
	copy(container[:], msg[offset:offset+32])
	offset += 32

	count := binary.LittleEndian.Uint16(msg[offset : offset+2])
	offset += 2

	instructions = make([]Instruction, 0, count)
	for i := uint16(0); i < count; i++ {
		if offset+2+4 > len(msg) {
			return signature, "", container, nil, fmt.Errorf("upload: truncated instruction header at index %d", i)
		}
		kind := TransactionType(binary.LittleEndian.Uint16(msg[offset : offset+2]))
		offset += 2
		dataLen := int(binary.LittleEndian.Uint32(msg[offset : offset+4]))
		offset += 4
		if offset+dataLen > len(msg) {
			return signature, "", container, nil, fmt.Errorf("upload: truncated instruction data at index %d", i)
		}
		instructions = append(instructions, Instruction{Kind: kind, Data: append([]byte(nil), msg[offset:offset+dataLen]...)})
		offset += dataLen
	}
	return signature, blockhash, container, instructions, nil
}

// DecodeInsertChunk parses an insert_chunk instruction's payload into blob id, chunk
// index, and chunk bytes.
func DecodeInsertChunk(data []byte) (blobID uint64, index uint16, chunk []byte, err error) {
	if len(data) < 10 {
		return 0, 0, nil, fmt.Errorf("upload: insert_chunk payload too short: %d bytes", len(data))
	}
	blobID = binary.LittleEndian.Uint64(data[0:8])
	index = binary.LittleEndian.Uint16(data[8:10])
	chunk = data[10:]
	return blobID, index, chunk, nil
}

// DecodeDeclareBlob parses a declare_blob instruction's payload.
func DecodeDeclareBlob(data []byte) (blobID uint64, totalSize uint32, chunkCount uint16, err error) {
	if len(data) < 14 {
		return 0, 0, 0, fmt.Errorf("upload: declare_blob payload too short: %d bytes", len(data))
	}
	blobID = binary.LittleEndian.Uint64(data[0:8])
	totalSize = binary.LittleEndian.Uint32(data[8:12])
	chunkCount = binary.LittleEndian.Uint16(data[12:14])
	return blobID, totalSize, chunkCount, nil
}

// DecodeFinalizeBlob parses a finalize_blob instruction's payload.
func DecodeFinalizeBlob(data []byte) (blobID uint64, digest [32]byte, err error) {
	if len(data) < 40 {
		return 0, digest, fmt.Errorf("upload: finalize_blob payload too short: %d bytes", len(data))
	}
	blobID = binary.LittleEndian.Uint64(data[0:8])
	copy(digest[:], data[8:40])
	return blobID, digest, nil
}
