package upload

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/proofback/proofback-cli/internal/constants"
)

// Validation errors. These short-circuit before any network traffic.
var (
	ErrFileTooLarge      = errors.New("backup file exceeds the 100 MiB limit")
	ErrUnsupportedFormat = errors.New("unsupported backup format")
)

// ValidateBackupFile checks a candidate backup against the local limits:
// the file must exist, be a regular file no larger than the upload cap, and
// carry an accepted extension (compared case-insensitively).
func ValidateBackupFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot read backup file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a backup file", path)
	}

	if info.Size() > constants.MaxUploadSize {
		return fmt.Errorf("%s is %.1f MiB: %w", filepath.Base(path),
			float64(info.Size())/(1024*1024), ErrFileTooLarge)
	}

	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range constants.AllowedUploadExtensions {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("%s files are not accepted (use %s): %w", ext,
		strings.Join(constants.AllowedUploadExtensions, ", "), ErrUnsupportedFormat)
}
