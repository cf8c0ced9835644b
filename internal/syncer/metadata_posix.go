//go:build !windows

package syncer

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// copyMetadata replaces destination's mode, atime, and mtime with source's,
// per spec section 4.4 ("Both variants preserve source metadata on
// success"). The stat of source and the mode and time updates of destination
// all follow symbolic links; SyncFile refuses symlink destinations before
// any copy begins.
func copyMetadata(source, destination string) error {
	var stat unix.Stat_t
	if err := unix.Stat(source, &stat); err != nil {
		return errors.Wrap(err, "unable to stat source for metadata copy")
	}

	if err := os.Chmod(destination, os.FileMode(stat.Mode&0o7777)); err != nil {
		return errors.Wrap(err, "unable to set destination mode")
	}

	atime := time.Unix(stat.Atim.Unix())
	mtime := time.Unix(stat.Mtim.Unix())
	if err := os.Chtimes(destination, atime, mtime); err != nil {
		return errors.Wrap(err, "unable to set destination times")
	}

	return nil
}
