package rsync

import (
	"bytes"
	"crypto/md5"
)

// BlockSignature describes one block of a destination file: its weak and
// strong checksums plus its location and length within the destination.
type BlockSignature struct {
	// Weak is the rolling checksum digest for the block.
	Weak uint32
	// Strong is the MD5 digest of the block's bytes.
	Strong [md5.Size]byte
	// Offset is the block's byte offset within the destination.
	Offset uint64
	// Length is the block's length in bytes. It equals the signature
	// index's configured block size except for the final block in a
	// destination, which may be shorter (but never empty).
	Length uint32
}

// BlockSignatureIndex maps a weak checksum to the (possibly empty) ordered
// list of destination blocks sharing that weak checksum. Ordering within a
// bucket is insertion order, i.e. ascending offset, so lookups tie-break
// toward the earliest (lowest-offset) block.
type BlockSignatureIndex struct {
	buckets map[uint32][]BlockSignature
}

// BuildBlockSignatureIndex partitions destination into non-overlapping,
// consecutive blocks of blockSize bytes (the final block may be shorter, but
// is never empty unless destination itself is empty) and indexes each one by
// its weak checksum.
func BuildBlockSignatureIndex(destination []byte, blockSize uint32) *BlockSignatureIndex {
	index := &BlockSignatureIndex{buckets: make(map[uint32][]BlockSignature)}
	if len(destination) == 0 || blockSize == 0 {
		return index
	}

	var checksum RollingChecksum
	var offset uint64
	for offset < uint64(len(destination)) {
		end := offset + uint64(blockSize)
		if end > uint64(len(destination)) {
			end = uint64(len(destination))
		}
		block := destination[offset:end]

		checksum.Init(block)
		signature := BlockSignature{
			Weak:   checksum.Digest(),
			Strong: md5.Sum(block),
			Offset: offset,
			Length: uint32(len(block)),
		}
		index.buckets[signature.Weak] = append(index.buckets[signature.Weak], signature)

		offset = end
	}

	return index
}

// Find looks up the weak checksum's bucket and returns the first candidate
// (in insertion order) whose strong digest matches windowBytes, along with
// whether a match was found. windowBytes is hashed at most once regardless of
// bucket size.
func (index *BlockSignatureIndex) Find(weak uint32, windowBytes []byte) (BlockSignature, bool) {
	candidates, ok := index.buckets[weak]
	if !ok || len(candidates) == 0 {
		return BlockSignature{}, false
	}

	strong := md5.Sum(windowBytes)
	for _, candidate := range candidates {
		if bytes.Equal(candidate.Strong[:], strong[:]) {
			return candidate, true
		}
	}
	return BlockSignature{}, false
}

// Empty reports whether the index was built over an empty (or absent)
// destination.
func (index *BlockSignatureIndex) Empty() bool {
	return len(index.buckets) == 0
}

