package syncer

import "path/filepath"

// SyncStats records the byte accounting for a single sync_file call, per
// spec section 3: total_bytes, bytes_transferred, and bytes_reused, with
// bytes_saved derived on demand.
type SyncStats struct {
	// TotalBytes is the length of the source, i.e. N.
	TotalBytes uint64
	// BytesTransferred is the number of source bytes that could not be
	// reused from the destination and were written verbatim.
	BytesTransferred uint64
	// BytesReused is the number of destination bytes copied into the result
	// without being retransmitted.
	BytesReused uint64
}

// BytesSaved returns max(TotalBytes - BytesTransferred, 0).
func (s SyncStats) BytesSaved() uint64 {
	if s.BytesTransferred >= s.TotalBytes {
		return 0
	}
	return s.TotalBytes - s.BytesTransferred
}

// SyncStatsLedger is a thread-unsafe mapping from canonical destination path
// to SyncStats. It is instance-scoped: callers must not share one across
// goroutines without external synchronization, and its lifecycle is bound to
// the FileSyncStrategy that owns it.
type SyncStatsLedger struct {
	entries map[string]SyncStats
}

// NewSyncStatsLedger creates an empty ledger.
func NewSyncStatsLedger() *SyncStatsLedger {
	return &SyncStatsLedger{entries: make(map[string]SyncStats)}
}

// canonicalize resolves symlinks and collapses "."/".." components so that
// ledger keys are deterministic regardless of how a path was spelled. If the
// path can't be resolved (e.g. the destination doesn't exist yet), it falls
// back to filepath.Clean on the absolute form, which is the best
// canonicalization available without a filesystem round trip.
func canonicalize(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return filepath.Clean(resolved)
	}
	if absolute, err := filepath.Abs(path); err == nil {
		return filepath.Clean(absolute)
	}
	return filepath.Clean(path)
}

// Record stores (overwriting any prior entry for the same canonical path) the
// stats for a sync_file call against destination.
func (l *SyncStatsLedger) Record(destination string, stats SyncStats) {
	l.entries[canonicalize(destination)] = stats
}

// Get returns the stats recorded for destination, if any.
func (l *SyncStatsLedger) Get(destination string) (SyncStats, bool) {
	stats, ok := l.entries[canonicalize(destination)]
	return stats, ok
}

// Snapshot returns a read-only copy of the full ledger, keyed by canonical
// path.
func (l *SyncStatsLedger) Snapshot() map[string]SyncStats {
	snapshot := make(map[string]SyncStats, len(l.entries))
	for path, stats := range l.entries {
		snapshot[path] = stats
	}
	return snapshot
}
