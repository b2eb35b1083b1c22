package blobserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectContent(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		class  string
		format string
		ok     bool
	}{
		{"mp4 isom", append([]byte{0, 0, 0, 0x20}, []byte("ftypisom\x00\x00")...), ClassVideo, "mp4", true},
		{"mp4 short box", append([]byte{0, 0, 0, 0x18}, []byte("ftypmp42\x00\x00")...), ClassVideo, "mp4", true},
		{"quicktime", append([]byte{0, 0, 0, 0x14}, []byte("ftypqt  \x00\x00")...), ClassVideo, "mp4", true},
		{"unknown brand", append([]byte{0, 0, 0, 0x20}, []byte("ftypheic\x00\x00")...), "", "", false},
		{"avi", []byte("RIFF\x00\x00\x00\x00AVI LIST"), ClassVideo, "avi", true},
		{"wav is not video", []byte("RIFF\x00\x00\x00\x00WAVEfmt "), "", "", false},
		{"webm", []byte{0x1A, 0x45, 0xDF, 0xA3, 0, 0, 0, 0, 0, 0, 0, 0}, ClassVideo, "webm", true},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10, 'J', 'F', 'I', 'F', 0, 1}, ClassImage, "jpeg", true},
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D}, ClassImage, "png", true},
		{"text", []byte("hello, world!"), "", "", false},
		{"too short", []byte{0xFF, 0xD8, 0xFF}, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class, format, ok := DetectContent(tt.data)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.class, class)
			assert.Equal(t, tt.format, format)
		})
	}
}
