package syncer

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("unable to write %s: %v", path, err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unable to read %s: %v", path, err)
	}
	return string(data)
}

func newDeltaStrategy(t *testing.T, blockSize uint32) *Strategy {
	t.Helper()
	strategy, err := New(Configuration{Strategy: KindDelta, BlockSize: blockSize}, nil)
	if err != nil {
		t.Fatalf("unable to construct strategy: %v", err)
	}
	return strategy
}

// TestScenarioASingleBlockMutation mirrors spec section 8 scenario A.
func TestScenarioASingleBlockMutation(t *testing.T) {
	dir := t.TempDir()
	destination := writeTemp(t, dir, "dest", "AAAABBBBCCCCDDDDEEEE")
	source := writeTemp(t, dir, "source", "AAAAZZZZCCCCDDDDEEEE")

	strategy := newDeltaStrategy(t, 4)
	if err := strategy.SyncFile(source, destination); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	if got := readFile(t, destination); got != "AAAAZZZZCCCCDDDDEEEE" {
		t.Fatalf("destination mismatch: %q", got)
	}

	stats, ok := strategy.Stats().Get(destination)
	if !ok {
		t.Fatal("expected stats to be recorded")
	}
	if stats.TotalBytes != 20 || stats.BytesTransferred != 4 || stats.BytesReused != 16 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

// TestScenarioBMissingDestination mirrors spec section 8 scenario B.
func TestScenarioBMissingDestination(t *testing.T) {
	dir := t.TempDir()
	source := writeTemp(t, dir, "source", "content")
	destination := filepath.Join(dir, "dest")

	strategy := newDeltaStrategy(t, 4)
	if err := strategy.SyncFile(source, destination); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	if got := readFile(t, destination); got != "content" {
		t.Fatalf("destination mismatch: %q", got)
	}

	stats, _ := strategy.Stats().Get(destination)
	if stats.TotalBytes != 7 || stats.BytesTransferred != 7 || stats.BytesReused != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

// TestScenarioCSourceShrinksToEmpty mirrors spec section 8 scenario C.
func TestScenarioCSourceShrinksToEmpty(t *testing.T) {
	dir := t.TempDir()
	destination := writeTemp(t, dir, "dest", "some longer content")
	source := writeTemp(t, dir, "source", "")

	strategy := newDeltaStrategy(t, 4)
	if err := strategy.SyncFile(source, destination); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	if got := readFile(t, destination); got != "" {
		t.Fatalf("expected empty destination, got %q", got)
	}

	stats, _ := strategy.Stats().Get(destination)
	if stats != (SyncStats{}) {
		t.Errorf("expected all-zero stats, got %+v", stats)
	}
}

// TestScenarioDIdenticalFiles mirrors spec section 8 scenario D.
func TestScenarioDIdenticalFiles(t *testing.T) {
	dir := t.TempDir()
	destination := writeTemp(t, dir, "dest", "hello world")
	source := writeTemp(t, dir, "source", "hello world")

	strategy := newDeltaStrategy(t, 4)
	if err := strategy.SyncFile(source, destination); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	stats, _ := strategy.Stats().Get(destination)
	if stats.BytesTransferred != 0 || stats.BytesReused != 11 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

// TestScenarioESymlinkRefusal mirrors spec section 8 scenario E.
func TestScenarioESymlinkRefusal(t *testing.T) {
	dir := t.TempDir()
	target := writeTemp(t, dir, "target", "target content")
	destination := filepath.Join(dir, "link")
	if err := os.Symlink(target, destination); err != nil {
		t.Fatalf("unable to create symlink: %v", err)
	}
	source := writeTemp(t, dir, "source", "new content")

	strategy := newDeltaStrategy(t, 4)
	err := strategy.SyncFile(source, destination)
	if err == nil {
		t.Fatal("expected PathRefused error")
	}
	syncErr, ok := err.(*SyncError)
	if !ok || syncErr.Kind != ErrPathRefused {
		t.Fatalf("expected SyncError with ErrPathRefused, got %v", err)
	}

	if got := readFile(t, target); got != "target content" {
		t.Errorf("symlink target was modified: %q", got)
	}
	linkTarget, err := os.Readlink(destination)
	if err != nil || linkTarget != target {
		t.Errorf("symlink itself was modified: %v %q", err, linkTarget)
	}
}

// TestScenarioFBlockAlignedShift mirrors spec section 8 scenario F.
func TestScenarioFBlockAlignedShift(t *testing.T) {
	dir := t.TempDir()
	destination := writeTemp(t, dir, "dest", "ABCDEFGH")
	source := writeTemp(t, dir, "source", "XYABCDEFGH")

	strategy := newDeltaStrategy(t, 4)
	if err := strategy.SyncFile(source, destination); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	if got := readFile(t, destination); got != "XYABCDEFGH" {
		t.Fatalf("destination mismatch: %q", got)
	}

	stats, _ := strategy.Stats().Get(destination)
	if stats.TotalBytes != 10 || stats.BytesTransferred != 2 || stats.BytesReused != 8 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

// TestSourceShorterThanBlockSize covers the boundary in spec section 8: a
// source shorter than the block size always becomes a single literal span.
func TestSourceShorterThanBlockSize(t *testing.T) {
	dir := t.TempDir()
	destination := writeTemp(t, dir, "dest", "AAAABBBBCCCC")
	source := writeTemp(t, dir, "source", "AB")

	strategy := newDeltaStrategy(t, 4)
	if err := strategy.SyncFile(source, destination); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	if got := readFile(t, destination); got != "AB" {
		t.Fatalf("destination mismatch: %q", got)
	}

	stats, _ := strategy.Stats().Get(destination)
	if stats.TotalBytes != 2 || stats.BytesTransferred != 2 || stats.BytesReused != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

// TestIdempotentSecondRun covers spec section 8's round-trip property: a
// second sync over an unchanged source must be a no-op in terms of transfer.
func TestIdempotentSecondRun(t *testing.T) {
	dir := t.TempDir()
	destination := writeTemp(t, dir, "dest", "AAAABBBBCCCCDDDDEEEE")
	source := writeTemp(t, dir, "source", "AAAAZZZZCCCCDDDDEEEE")

	strategy := newDeltaStrategy(t, 4)
	if err := strategy.SyncFile(source, destination); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}
	if err := strategy.SyncFile(source, destination); err != nil {
		t.Fatalf("second sync failed: %v", err)
	}

	stats, _ := strategy.Stats().Get(destination)
	if stats.BytesTransferred != 0 {
		t.Errorf("expected zero transfer on repeat sync, got %+v", stats)
	}
	if got := readFile(t, destination); got != "AAAAZZZZCCCCDDDDEEEE" {
		t.Fatalf("destination mismatch after repeat sync: %q", got)
	}
}

// TestShortTailBlockUnreachableByDesign exercises spec section 9's open
// question: a destination whose only "match" for a shifted source tail is
// its short final block is NOT reused, because the main scan never probes
// anything but full-size windows. This is intentional, documented behavior.
func TestShortTailBlockUnreachableByDesign(t *testing.T) {
	dir := t.TempDir()
	// Destination's final block ("EEE") is shorter than the 4-byte block
	// size. Source is the destination shifted right by two bytes, so in
	// principle the tail "EEE" could be reused, but the spec forbids
	// probing short blocks from the main scan.
	destination := writeTemp(t, dir, "dest", "AAAABBBBEEE")
	source := writeTemp(t, dir, "source", "XYAAAABBBBEEE")

	strategy := newDeltaStrategy(t, 4)
	if err := strategy.SyncFile(source, destination); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	if got := readFile(t, destination); got != "XYAAAABBBBEEE" {
		t.Fatalf("destination mismatch: %q", got)
	}

	stats, _ := strategy.Stats().Get(destination)
	// "XY" is literal (2 bytes), "AAAA" and "BBBB" match (8 bytes reused),
	// and the trailing "EEE" cannot align with a full 4-byte window before
	// running out of source, so it is also emitted as literal.
	if stats.BytesTransferred != 5 || stats.BytesReused != 8 {
		t.Errorf("unexpected stats for short-tail scenario: %+v", stats)
	}
}

func TestWholeCopyStrategyFastPath(t *testing.T) {
	dir := t.TempDir()
	destination := writeTemp(t, dir, "dest", "old content here")
	source := writeTemp(t, dir, "source", "new content")

	strategy, err := New(Configuration{Strategy: KindWholeCopy}, nil)
	if err != nil {
		t.Fatalf("unable to construct strategy: %v", err)
	}
	if err := strategy.SyncFile(source, destination); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if got := readFile(t, destination); got != "new content" {
		t.Fatalf("destination mismatch: %q", got)
	}
}

func TestWholeCopyStrategyRejectsBlockSize(t *testing.T) {
	if _, err := New(Configuration{Strategy: KindWholeCopy, BlockSize: 1024}, nil); err == nil {
		t.Fatal("expected BadArgument error for block size override on copy strategy")
	}
}

func TestConfigurationRejectsNonPositiveBlockSize(t *testing.T) {
	// A block size whose int32 cast is negative should be rejected.
	config := Configuration{Strategy: KindDelta, BlockSize: 1<<32 - 1}
	if err := config.Validate(); err == nil {
		t.Fatal("expected BadArgument error for non-positive block size")
	}
}

func TestMissingSourceIsReported(t *testing.T) {
	dir := t.TempDir()
	destination := writeTemp(t, dir, "dest", "content")
	source := filepath.Join(dir, "does-not-exist")

	strategy := newDeltaStrategy(t, 4)
	err := strategy.SyncFile(source, destination)
	syncErr, ok := err.(*SyncError)
	if !ok || syncErr.Kind != ErrMissingSource {
		t.Fatalf("expected MissingSource error, got %v", err)
	}
}
