package blobserver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateKey(t *testing.T) {
	valid := []string{"videos/u1/v1.mp4", "thumbnails/u_1/abc-def.jpg", "file.bin"}
	for _, key := range valid {
		assert.NoError(t, ValidateKey(key), key)
	}

	invalid := []string{"", "/abs/path.mp4", "../escape.mp4", "videos/../../etc/passwd", "videos//v.mp4", "videos/./v.mp4", "videos/v.mp4/", "videos/sp ace.mp4"}
	for _, key := range invalid {
		assert.ErrorIs(t, ValidateKey(key), ErrInvalidKey, key)
	}
}

func TestStorage_SaveAndPath(t *testing.T) {
	root := t.TempDir()
	s, err := NewStorage(root)
	require.NoError(t, err)

	n, err := s.Save("videos/u1/v1.mp4", strings.NewReader("payload"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	p, err := s.Path("videos/u1/v1.mp4")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "videos", "u1", "v1.mp4"), p)

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	_, err = s.Save("videos/u1/v1.mp4", strings.NewReader("replaced"))
	require.NoError(t, err)
	data, _ = os.ReadFile(p)
	assert.Equal(t, "replaced", string(data))
}

func TestStorage_PathMissingAndDirectories(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.Path("videos/missing.mp4")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = s.Save("videos/u1/v1.mp4", strings.NewReader("x"))
	require.NoError(t, err)
	_, err = s.Path("videos/u1")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = s.Path("../outside")
	assert.ErrorIs(t, err, ErrInvalidKey)
}
