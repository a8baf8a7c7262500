// Package accountlayout implements byte-exact encode/decode of the on-chain account
// layouts this client reads and writes: the container account (the accumulator) and the
// blob-staging account used while a blob upload is in progress.
package accountlayout

import (
	"encoding/binary"
	"fmt"
)

// Discriminator widths match the 8-byte account-type tag convention the on-chain program
// uses to distinguish account types before any type-specific fields begin.
const discriminatorSize = 8

var (
	// ContainerDiscriminator tags a container (accumulator) account.
	ContainerDiscriminator = [discriminatorSize]byte{'c', 'o', 'n', 't', 'a', 'i', 'n', 'r'}
	// BlobStagingDiscriminator tags a blob-staging account.
	BlobStagingDiscriminator = [discriminatorSize]byte{'b', 'l', 'o', 'b', 's', 't', 'g', '1'}
)

// Container is the decoded form of the on-chain container (accumulator) account.
//
// Wire layout:
//
//	offset  0: discriminator [8]byte
//	offset  8: slot          uint64 LE
//	offset 16: accumulator   [32]byte
//	offset 48: caller        [32]byte (pubkey that may append to this container)
//	total: 80 bytes
type Container struct {
	Slot        uint64
	Accumulator [32]byte
	Caller      [32]byte
}

const containerSize = discriminatorSize + 8 + 32 + 32

// EncodeContainer serializes a Container to its exact on-chain byte layout.
func EncodeContainer(c Container) []byte {
	buf := make([]byte, containerSize)
	copy(buf[0:8], ContainerDiscriminator[:])
	binary.LittleEndian.PutUint64(buf[8:16], c.Slot)
	copy(buf[16:48], c.Accumulator[:])
	copy(buf[48:80], c.Caller[:])
	return buf
}

// DecodeContainer parses a Container from raw account data, checking the discriminator
// first.
func DecodeContainer(data []byte) (Container, error) {
	if len(data) < containerSize {
		return Container{}, fmt.Errorf("accountlayout: container data too short: got %d want %d", len(data), containerSize)
	}
	if [8]byte(data[0:8]) != ContainerDiscriminator {
		return Container{}, fmt.Errorf("accountlayout: discriminator mismatch for container account")
	}
	var c Container
	c.Slot = binary.LittleEndian.Uint64(data[8:16])
	copy(c.Accumulator[:], data[16:48])
	copy(c.Caller[:], data[48:80])
	return c, nil
}

// BlobStaging is the decoded form of an in-progress blob upload's staging account.
//
// Wire layout:
//
//	offset 0:  discriminator [8]byte
//	offset 8:  container     [32]byte
//	offset 40: blobID        uint64 LE
//	offset 48: totalSize     uint32 LE
//	offset 52: chunkCount    uint16 LE
//	offset 54: createdUnix   int64 LE
//	offset 62: bitmap        variable length, ceil(chunkCount/8) bytes
//
// The bitmap has no length prefix; its length follows from chunkCount. This layout has
// no rolling-digest field, so the digest and size a blob's accumulator leaf binds
// (digest.BlobCommitment) cannot be read from it.
type BlobStaging struct {
	Container   [32]byte
	BlobID      uint64
	TotalSize   uint32
	ChunkCount  uint16
	CreatedUnix int64
	Bitmap      []byte // one bit per chunk index, set once that chunk has been inserted
}

const blobStagingHeaderSize = discriminatorSize + 32 + 8 + 4 + 2 + 8

// BitmapLen returns the number of bytes needed to represent a bitmap for chunkCount bits.
func BitmapLen(chunkCount uint16) int {
	return (int(chunkCount) + 7) / 8
}

// EncodeBlobStaging serializes a BlobStaging to its exact on-chain byte layout.
func EncodeBlobStaging(b BlobStaging) ([]byte, error) {
	wantBitmap := BitmapLen(b.ChunkCount)
	if len(b.Bitmap) != wantBitmap {
		return nil, fmt.Errorf("accountlayout: bitmap length %d does not match chunk count %d (want %d bytes)", len(b.Bitmap), b.ChunkCount, wantBitmap)
	}
	buf := make([]byte, blobStagingHeaderSize+wantBitmap)
	copy(buf[0:8], BlobStagingDiscriminator[:])
	copy(buf[8:40], b.Container[:])
	binary.LittleEndian.PutUint64(buf[40:48], b.BlobID)
	binary.LittleEndian.PutUint32(buf[48:52], b.TotalSize)
	binary.LittleEndian.PutUint16(buf[52:54], b.ChunkCount)
	binary.LittleEndian.PutUint64(buf[54:62], uint64(b.CreatedUnix))
	copy(buf[62:], b.Bitmap)
	return buf, nil
}

// DecodeBlobStaging parses a BlobStaging from raw account data.
func DecodeBlobStaging(data []byte) (BlobStaging, error) {
	if len(data) < blobStagingHeaderSize {
		return BlobStaging{}, fmt.Errorf("accountlayout: blob staging data too short: got %d want at least %d", len(data), blobStagingHeaderSize)
	}
	if [8]byte(data[0:8]) != BlobStagingDiscriminator {
		return BlobStaging{}, fmt.Errorf("accountlayout: discriminator mismatch for blob staging account")
	}
	var b BlobStaging
	copy(b.Container[:], data[8:40])
	b.BlobID = binary.LittleEndian.Uint64(data[40:48])
	b.TotalSize = binary.LittleEndian.Uint32(data[48:52])
	b.ChunkCount = binary.LittleEndian.Uint16(data[52:54])
	b.CreatedUnix = int64(binary.LittleEndian.Uint64(data[54:62]))

	wantBitmap := BitmapLen(b.ChunkCount)
	if len(data) < blobStagingHeaderSize+wantBitmap {
		return BlobStaging{}, fmt.Errorf("accountlayout: blob staging bitmap truncated: got %d bytes, want %d", len(data)-blobStagingHeaderSize, wantBitmap)
	}
	b.Bitmap = append([]byte(nil), data[blobStagingHeaderSize:blobStagingHeaderSize+wantBitmap]...)
	return b, nil
}

// SetChunk marks chunk index i as inserted in the bitmap.
func SetChunk(bitmap []byte, i uint16) {
	bitmap[i/8] |= 1 << (i % 8)
}

// HasChunk reports whether chunk index i has been marked as inserted.
func HasChunk(bitmap []byte, i uint16) bool {
	return bitmap[i/8]&(1<<(i%8)) != 0
}

// AllSet reports whether every one of the first chunkCount bits is set.
func AllSet(bitmap []byte, chunkCount uint16) bool {
	for i := uint16(0); i < chunkCount; i++ {
		if !HasChunk(bitmap, i) {
			return false
		}
	}
	return true
}
