package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// TempCaptureNames are the files recorders write in the temp directory
var TempCaptureNames = []string{TakeFileName, CaptureFileName}

// RemoveTempCaptures deletes the named capture files from dir, all of
// TempCaptureNames when none are given. Nothing else in dir is touched and
// missing files are not an error.
func RemoveTempCaptures(dir string, names ...string) (int, error) {
	if dir == "" {
		return 0, fmt.Errorf("no temp directory configured")
	}
	if len(names) == 0 {
		names = TempCaptureNames
	}

	removed := 0
	var errs []error
	for _, name := range names {
		path := filepath.Join(dir, filepath.Base(name))
		err := os.Remove(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", path, err))
			continue
		}
		removed++
		slog.Debug("Removed temporary capture", "path", path)
	}

	return removed, errors.Join(errs...)
}
