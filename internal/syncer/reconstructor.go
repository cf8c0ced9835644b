package syncer

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/mutagen-io/dsync/internal/rsync"
)

// syncDelta implements spec section 4.4's Delta variant, dispatching to the
// fast paths and main loop of section 4.3.
func (s *Strategy) syncDelta(source, destination string, sourceInfo os.FileInfo) (SyncStats, error) {
	sourceBytes, err := os.ReadFile(source)
	if err != nil {
		return SyncStats{}, newSyncError(ErrIoFailure, "unable to read source", err)
	}
	total := uint64(len(sourceBytes))

	destinationBytes, destErr := os.ReadFile(destination)
	destinationExists := destErr == nil
	if destErr != nil && !os.IsNotExist(destErr) {
		return SyncStats{}, newSyncError(ErrIoFailure, "unable to read destination", destErr)
	}

	// Fast path: destination does not exist.
	if !destinationExists {
		if err := writeFileAtomic(destination, sourceBytes, sourceInfo.Mode(), s.logger); err != nil {
			return SyncStats{}, newSyncError(ErrIoFailure, "unable to write destination", err)
		}
		if err := copyMetadata(source, destination); err != nil {
			return SyncStats{}, newSyncError(ErrIoFailure, "unable to copy metadata", err)
		}
		return SyncStats{TotalBytes: total, BytesTransferred: total}, nil
	}

	// Fast path: empty source truncates the destination.
	if total == 0 {
		if err := writeFileAtomic(destination, nil, sourceInfo.Mode(), s.logger); err != nil {
			return SyncStats{}, newSyncError(ErrIoFailure, "unable to truncate destination", err)
		}
		if err := copyMetadata(source, destination); err != nil {
			return SyncStats{}, newSyncError(ErrIoFailure, "unable to copy metadata", err)
		}
		return SyncStats{}, nil
	}

	// Fast path: source and destination already agree.
	if bytes.Equal(sourceBytes, destinationBytes) {
		if err := copyMetadata(source, destination); err != nil {
			return SyncStats{}, newSyncError(ErrIoFailure, "unable to copy metadata", err)
		}
		return SyncStats{TotalBytes: total, BytesReused: total}, nil
	}

	index := rsync.BuildBlockSignatureIndex(destinationBytes, s.blockSize)

	// Fast path: nothing to match against, or the source can't hold even
	// one full window.
	if index.Empty() || total < uint64(s.blockSize) {
		if err := writeFileAtomic(destination, sourceBytes, sourceInfo.Mode(), s.logger); err != nil {
			return SyncStats{}, newSyncError(ErrIoFailure, "unable to write destination", err)
		}
		if err := copyMetadata(source, destination); err != nil {
			return SyncStats{}, newSyncError(ErrIoFailure, "unable to copy metadata", err)
		}
		return SyncStats{TotalBytes: total, BytesTransferred: total}, nil
	}

	var transferred uint64
	writeErr := streamToScopedTempFile(destination, sourceInfo.Mode(), s.logger, func(w io.Writer) error {
		var err error
		transferred, err = reconstruct(sourceBytes, destinationBytes, s.blockSize, index, w)
		return err
	})
	if writeErr != nil {
		return SyncStats{}, newSyncError(ErrIoFailure, "unable to reconstruct destination", writeErr)
	}

	if err := copyMetadata(source, destination); err != nil {
		return SyncStats{}, newSyncError(ErrIoFailure, "unable to copy metadata", err)
	}

	reused := uint64(0)
	if total > transferred {
		reused = total - transferred
	}
	return SyncStats{TotalBytes: total, BytesTransferred: transferred, BytesReused: reused}, nil
}

// reconstruct implements the main loop of spec section 4.3: it slides a
// full-block-sized window over source, probes index for a match, and emits
// either a literal span (copied from source) or a copy directive (copied
// from destination) to w, in source order. It returns the number of bytes
// transferred as literal spans.
//
// Matches are non-overlapping and greedy forward: once a match is found at
// idx, the window jumps past it rather than continuing to slide byte by
// byte, and there is no backtracking. Only full-size windows are probed, so
// a destination's final (possibly short) block can never be matched here -
// this is spec's documented behavior, not an oversight, and reconstruct
// must not special-case it.
func reconstruct(source, destination []byte, blockSize uint32, index *rsync.BlockSignatureIndex, w io.Writer) (uint64, error) {
	n := uint64(len(source))
	b := uint64(blockSize)

	var transferred uint64
	var idx, lastEmitted uint64

	emitLiteral := func(from, to uint64) error {
		if to <= from {
			return nil
		}
		if _, err := w.Write(source[from:to]); err != nil {
			return errors.Wrap(err, "unable to write literal span")
		}
		transferred += to - from
		return nil
	}

	var checksum rsync.RollingChecksum
	checksum.Init(source[idx : idx+b])

	for idx+b <= n {
		window := source[idx : idx+b]
		if sig, ok := index.Find(checksum.Digest(), window); ok {
			if err := emitLiteral(lastEmitted, idx); err != nil {
				return 0, err
			}
			if _, err := w.Write(destination[sig.Offset : sig.Offset+uint64(sig.Length)]); err != nil {
				return 0, errors.Wrap(err, "unable to write matched block")
			}
			idx += b
			lastEmitted = idx
			if idx+b > n {
				break
			}
			checksum.Init(source[idx : idx+b])
			continue
		}

		if idx+b >= n {
			break
		}
		checksum.Roll(source[idx], source[idx+b])
		idx++
	}

	if err := emitLiteral(lastEmitted, n); err != nil {
		return 0, err
	}

	return transferred, nil
}
