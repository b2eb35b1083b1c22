package blobserver

import (
	"bytes"
)

const (
	ClassVideo = "video"
	ClassImage = "image"
)

// sniffLength is how many leading bytes DetectContent needs
const sniffLength = 12

var videoMagicBytes = map[string][]byte{
	"wmv":  {0x30, 0x26, 0xB2, 0x75, 0x8E, 0x66, 0xCF, 0x11},
	"flv":  {0x46, 0x4C, 0x56, 0x01},
	"webm": {0x1A, 0x45, 0xDF, 0xA3},
}

// brands that can follow the ftyp box of an mp4 or mov file
var mp4Brands = [][]byte{
	[]byte("isom"),
	[]byte("iso2"),
	[]byte("mp41"),
	[]byte("mp42"),
	[]byte("avc1"),
	[]byte("dash"),
	[]byte("mp4v"),
	[]byte("M4V "),
	[]byte("qt  "),
}

var imageMagicBytes = map[string][]byte{
	"jpeg": {0xFF, 0xD8, 0xFF},
	"png":  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
}

// DetectContent classifies a file by its leading bytes. It returns the
// content class (ClassVideo or ClassImage) and format, or ok=false when the
// data is neither.
func DetectContent(data []byte) (class, format string, ok bool) {
	if len(data) < sniffLength {
		return "", "", false
	}

	if bytes.Equal(data[4:8], []byte("ftyp")) {
		if hasMP4Brand(data) {
			return ClassVideo, "mp4", true
		}
		return "", "", false
	}

	if bytes.Equal(data[:4], []byte("RIFF")) {
		if bytes.Equal(data[8:12], []byte("AVI ")) {
			return ClassVideo, "avi", true
		}
		return "", "", false
	}

	for f, magic := range videoMagicBytes {
		if bytes.HasPrefix(data, magic) {
			return ClassVideo, f, true
		}
	}
	for f, magic := range imageMagicBytes {
		if bytes.HasPrefix(data, magic) {
			return ClassImage, f, true
		}
	}
	return "", "", false
}

func hasMP4Brand(data []byte) bool {
	brand := data[8:12]
	for _, valid := range mp4Brands {
		if bytes.Equal(brand, valid) {
			return true
		}
	}
	return false
}
