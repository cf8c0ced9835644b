// Package must provides best-effort cleanup helpers for use on error paths
// where a failure is inconsequential to the caller's own error but still
// worth a warning: closing a handle that's about to be abandoned, removing a
// temporary file that a failed operation leaves behind.
package must

import (
	"io"
	"os"

	"github.com/mutagen-io/dsync/internal/logging"
)

// Close closes c, logging (but not returning) any error.
func Close(c io.Closer, logger *logging.Logger) {
	if err := c.Close(); err != nil {
		logger.Warnf("unable to close: %v", err)
	}
}

// Remove removes the file at path, logging (but not returning) any error
// other than the file already being absent.
func Remove(path string, logger *logging.Logger) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warnf("unable to remove %q: %v", path, err)
	}
}
