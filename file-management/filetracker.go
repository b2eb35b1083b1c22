package filemanagement

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yeti47/eight/common"
)

// FileTracker owns the temporary files produced by recording, editing and publishing
type FileTracker interface {
	// NewTempPath returns a fresh, never reused path inside the temp directory
	NewTempPath(prefix, ext string) string

	// DeleteFile removes a file from disk
	DeleteFile(filePath string)

	// EnsureTempDirectory creates the temporary directory if it doesn't exist
	EnsureTempDirectory() error

	// CleanupTempDirectory removes files in the temp directory older than maxAge.
	// A zero maxAge removes every file.
	CleanupTempDirectory(maxAge time.Duration)
}

// LocalFileTracker implements FileTracker for local filesystem
type LocalFileTracker struct {
	tempDir string
	logger  common.Logger
	mu      sync.Mutex
}

// NewLocalFileTracker creates a new local file tracker
func NewLocalFileTracker(tempDir string, logger common.Logger) *LocalFileTracker {
	return &LocalFileTracker{
		tempDir: tempDir,
		logger:  common.LoggerOrNop(logger),
	}
}

// TempDir returns the managed directory
func (t *LocalFileTracker) TempDir() string {
	return t.tempDir
}

// NewTempPath returns <tempDir>/<prefix>_<uuid><ext>
func (t *LocalFileTracker) NewTempPath(prefix, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return filepath.Join(t.tempDir, prefix+"_"+uuid.NewString()+ext)
}

// DeleteFile removes a file from disk
func (t *LocalFileTracker) DeleteFile(filePath string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		t.logger.Warn("Failed to remove file", "path", filePath, "error", err)
		return
	}
	t.logger.Debug("Deleted file", "path", filePath)
}

// EnsureTempDirectory creates the temporary directory if it doesn't exist
func (t *LocalFileTracker) EnsureTempDirectory() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := os.MkdirAll(t.tempDir, 0755); err != nil {
		return err
	}
	t.logger.Debug("Temporary directory ready", "dir", t.tempDir)
	return nil
}

// CleanupTempDirectory removes stale files left behind by an earlier run
func (t *LocalFileTracker) CleanupTempDirectory(maxAge time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entries, err := os.ReadDir(t.tempDir)
	if err != nil {
		t.logger.Warn("Failed to read temp directory", "dir", t.tempDir, "error", err)
		return
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if maxAge > 0 {
			info, err := entry.Info()
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}
		}
		filePath := filepath.Join(t.tempDir, entry.Name())
		if err := os.Remove(filePath); err != nil {
			t.logger.Warn("Failed to remove temp file", "path", filePath, "error", err)
			continue
		}
		t.logger.Info("Cleaned up temp file", "path", filePath)
	}
}
