package rsync

import (
	"math/rand"
	"testing"
)

// TestRollMatchesReinitialization verifies the key correctness property from
// spec section 4.1: rolling forward by N bytes from offset 0 must produce the
// same digest as reinitializing directly over the block at offset N.
func TestRollMatchesReinitialization(t *testing.T) {
	const length = 16
	data := make([]byte, 256)
	rng := rand.New(rand.NewSource(1))
	rng.Read(data)

	var rolling RollingChecksum
	rolling.Init(data[:length])

	for n := 1; n+length <= len(data); n++ {
		rolling.Roll(data[n-1], data[n+length-1])

		var direct RollingChecksum
		direct.Init(data[n : n+length])

		if rolling.Digest() != direct.Digest() {
			t.Fatalf("digest mismatch after %d rolls: rolled=%d direct=%d", n, rolling.Digest(), direct.Digest())
		}
	}
}

// TestRollWrapAround verifies that the checksum remains correct when repeated
// high byte values force the running sums to wrap past the 16-bit modulus
// many times over.
func TestRollWrapAround(t *testing.T) {
	const length = 512
	data := make([]byte, 1024)
	for i := range data {
		data[i] = 0xFF
	}

	var rolling RollingChecksum
	rolling.Init(data[:length])

	for n := 1; n+length <= len(data); n++ {
		rolling.Roll(data[n-1], data[n+length-1])

		var direct RollingChecksum
		direct.Init(data[n : n+length])

		if rolling.Digest() != direct.Digest() {
			t.Fatalf("digest mismatch at wrap-around offset %d", n)
		}
	}
}

// TestDigestStableForIdenticalBlocks verifies that two identical blocks at
// different offsets produce the same weak digest (a prerequisite for the
// signature index's two-stage lookup to work at all).
func TestDigestStableForIdenticalBlocks(t *testing.T) {
	block := []byte("ABCDEFGH")

	var a, b RollingChecksum
	a.Init(block)
	b.Init(append([]byte(nil), block...))

	if a.Digest() != b.Digest() {
		t.Error("identical blocks produced different digests")
	}
}

// TestDigestChangesOnMutation is a smoke test that the digest is actually
// sensitive to content, not just length.
func TestDigestChangesOnMutation(t *testing.T) {
	var a, b RollingChecksum
	a.Init([]byte("AAAABBBB"))
	b.Init([]byte("AAAAZZZZ"))

	if a.Digest() == b.Digest() {
		t.Error("differing blocks produced the same digest (this can happen by chance, but not for this pair)")
	}
}
