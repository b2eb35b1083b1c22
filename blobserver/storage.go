package blobserver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/renameio/v2"
)

// ErrInvalidKey is returned for keys that are empty, absolute or escape the storage root
var ErrInvalidKey = errors.New("invalid blob key")

var keySegmentPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Storage keeps blobs as files below a root directory, one file per key
type Storage struct {
	root string
}

func NewStorage(root string) (*Storage, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Storage{root: root}, nil
}

// ValidateKey accepts slash separated keys such as videos/<uid>/<vid>.mp4
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || path.Clean(key) != key {
		return ErrInvalidKey
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == "." || segment == ".." || !keySegmentPattern.MatchString(segment) {
			return ErrInvalidKey
		}
	}
	return nil
}

func (s *Storage) pathFor(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// Save writes r to key atomically; readers never observe a partial blob
func (s *Storage) Save(key string, r io.Reader) (int64, error) {
	target, err := s.pathFor(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return 0, fmt.Errorf("failed to create blob directory: %w", err)
	}

	pending, err := renameio.NewPendingFile(target, renameio.WithPermissions(0644))
	if err != nil {
		return 0, fmt.Errorf("failed to create pending file: %w", err)
	}
	defer pending.Cleanup()

	n, err := io.Copy(pending, r)
	if err != nil {
		return 0, fmt.Errorf("failed to write blob: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return 0, fmt.Errorf("failed to commit blob: %w", err)
	}
	return n, nil
}

// Path returns the file backing key if it exists
func (s *Storage) Path(key string) (string, error) {
	target, err := s.pathFor(key)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(target)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", os.ErrNotExist
	}
	return target, nil
}
