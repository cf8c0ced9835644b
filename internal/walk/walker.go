// Package walk implements the tree walker collaborator described at the
// interface level in spec section 6: it enumerates a source tree, mirrors
// directories and symbolic links, invokes a FileSyncStrategy for regular
// files, and removes entries from the destination that no longer exist in the
// source. Directories are created with mode 0755 and symbolic links are
// recreated; the source's directory and symlink metadata is not copied. Its
// complexity is
// mechanical, per spec section 1, so it is built by analogy to the
// teacher's recursive scan idiom rather than ported line-for-line from any
// one algorithmic core.
package walk

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/mutagen-io/dsync/internal/logging"
)

// FileSyncer is the subset of syncer.Strategy that the walker depends on,
// kept narrow so the walker doesn't need to import the syncer package's full
// surface.
type FileSyncer interface {
	SyncFile(source, destination string) error
}

// Options configures a Walker's traversal.
type Options struct {
	// Excludes is a set of doublestar glob patterns, matched against paths
	// relative to the source root; matching entries (files or directories)
	// are skipped entirely.
	Excludes []string
	// DryRun, when true, causes the walker to report what it would do
	// without touching the destination.
	DryRun bool
	// RemoveExtraneous, when true, deletes destination entries that have no
	// corresponding source entry.
	RemoveExtraneous bool
}

// Walker mirrors a source directory tree onto a destination directory tree,
// delegating regular-file content reconciliation to a FileSyncer.
type Walker struct {
	syncer  FileSyncer
	options Options
	logger  *logging.Logger
}

// New creates a Walker that will use syncer to reconcile regular files.
func New(syncer FileSyncer, options Options, logger *logging.Logger) *Walker {
	return &Walker{syncer: syncer, options: options, logger: logger}
}

// excluded reports whether relativePath matches any configured exclude
// pattern.
func (w *Walker) excluded(relativePath string) bool {
	for _, pattern := range w.options.Excludes {
		if match, err := doublestar.Match(pattern, relativePath); err == nil && match {
			return true
		}
	}
	return false
}

// Mirror walks sourceRoot and reconciles destinationRoot to match it.
func (w *Walker) Mirror(ctx context.Context, sourceRoot, destinationRoot string) error {
	sourceInfo, err := os.Stat(sourceRoot)
	if err != nil {
		return errors.Wrap(err, "unable to stat source root")
	}
	if !sourceInfo.IsDir() {
		return errors.New("source root is not a directory")
	}

	if err := w.visitDirectory(ctx, sourceRoot, destinationRoot, ""); err != nil {
		return err
	}

	if w.options.RemoveExtraneous {
		if err := w.removeExtraneous(ctx, sourceRoot, destinationRoot, ""); err != nil {
			return err
		}
	}

	return nil
}

// visitDirectory recursively mirrors one directory level. relativePath is
// the path of this directory relative to the roots, empty at the top level.
func (w *Walker) visitDirectory(ctx context.Context, sourceDir, destinationDir, relativePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return errors.Wrapf(err, "unable to list %s", sourceDir)
	}

	if !w.options.DryRun {
		if err := os.MkdirAll(destinationDir, 0o755); err != nil {
			return errors.Wrapf(err, "unable to create %s", destinationDir)
		}
	}

	// Sort for deterministic traversal order, matching the teacher's
	// preference (noted in pkg/synchronization/rsync/transmit.go) for
	// depth-first, stably ordered traversal.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		childRelative := filepath.Join(relativePath, entry.Name())
		if w.excluded(childRelative) {
			w.logger.Debugf("skipping excluded path %s", childRelative)
			continue
		}

		childSource := filepath.Join(sourceDir, entry.Name())
		childDestination := filepath.Join(destinationDir, entry.Name())

		info, err := os.Lstat(childSource)
		if err != nil {
			return errors.Wrapf(err, "unable to stat %s", childSource)
		}

		switch {
		case info.Mode()&os.ModeSymlink != 0:
			if err := w.replicateSymlink(childSource, childDestination); err != nil {
				return err
			}
		case info.IsDir():
			if err := w.visitDirectory(ctx, childSource, childDestination, childRelative); err != nil {
				return err
			}
		case info.Mode().IsRegular():
			if w.options.DryRun {
				w.logger.Infof("would sync %s", childRelative)
				continue
			}
			if err := w.syncer.SyncFile(childSource, childDestination); err != nil {
				return errors.Wrapf(err, "unable to sync %s", childRelative)
			}
		default:
			w.logger.Warnf("skipping unsupported entry type at %s", childRelative)
		}
	}

	return nil
}

// replicateSymlink recreates a symbolic link at destination pointing to the
// same target as source, replacing whatever (if anything) is there.
func (w *Walker) replicateSymlink(source, destination string) error {
	target, err := os.Readlink(source)
	if err != nil {
		return errors.Wrapf(err, "unable to read link %s", source)
	}

	if w.options.DryRun {
		w.logger.Infof("would replicate symlink %s -> %s", destination, target)
		return nil
	}

	if existing, err := os.Readlink(destination); err == nil && existing == target {
		return nil
	}

	if err := os.RemoveAll(destination); err != nil {
		return errors.Wrapf(err, "unable to remove existing entry at %s", destination)
	}
	if err := os.Symlink(target, destination); err != nil {
		return errors.Wrapf(err, "unable to create symlink %s", destination)
	}
	return nil
}

// removeExtraneous walks destinationRoot looking for entries that have no
// counterpart under sourceRoot, removing them. The entries of each directory
// level are processed concurrently in an errgroup limited to eight at a time
// per level, so that a destination tree with many stale top-level
// directories doesn't serialize unnecessarily.
func (w *Walker) removeExtraneous(ctx context.Context, sourceRoot, destinationRoot, relativePath string) error {
	destinationDir := filepath.Join(destinationRoot, relativePath)
	entries, err := os.ReadDir(destinationDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "unable to list %s", destinationDir)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(8)

	for _, entry := range entries {
		entry := entry
		childRelative := filepath.Join(relativePath, entry.Name())
		if w.excluded(childRelative) {
			continue
		}
		childSource := filepath.Join(sourceRoot, childRelative)
		childDestination := filepath.Join(destinationDir, entry.Name())

		group.Go(func() error {
			if _, err := os.Lstat(childSource); err == nil {
				if entry.IsDir() {
					return w.removeExtraneous(groupCtx, sourceRoot, destinationRoot, childRelative)
				}
				return nil
			} else if !os.IsNotExist(err) {
				return errors.Wrapf(err, "unable to stat %s", childSource)
			}

			if w.options.DryRun {
				w.logger.Infof("would remove extraneous %s", childDestination)
				return nil
			}
			w.logger.Infof("removing extraneous %s", childDestination)
			return errors.Wrapf(os.RemoveAll(childDestination), "unable to remove %s", childDestination)
		})
	}

	return group.Wait()
}
