package blobserver

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	secretScheme    = "pbkdf2-sha256"
	iterationCount  = 10000
	keyLength       = 32
	saltLength      = 16
	secretHashParts = 4
)

// ErrMalformedSecretHash is returned when a stored credential is not in the HashSecret format
var ErrMalformedSecretHash = errors.New("malformed secret hash")

// HashSecret derives a storable hash of a client secret:
// pbkdf2-sha256$<iterations>$<salt>$<key>, salt and key base64 encoded.
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("secret cannot be empty")
	}
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(secret), salt, iterationCount, keyLength, sha256.New)
	return strings.Join([]string{
		secretScheme,
		strconv.Itoa(iterationCount),
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	}, "$"), nil
}

// VerifySecret checks secret against a hash produced by HashSecret
func VerifySecret(secret, hash string) (bool, error) {
	parts := strings.Split(hash, "$")
	if len(parts) != secretHashParts || parts[0] != secretScheme {
		return false, ErrMalformedSecretHash
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return false, ErrMalformedSecretHash
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil || len(salt) == 0 {
		return false, ErrMalformedSecretHash
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil || len(expected) == 0 {
		return false, ErrMalformedSecretHash
	}

	key := pbkdf2.Key([]byte(secret), salt, iterations, len(expected), sha256.New)
	return subtle.ConstantTimeCompare(key, expected) == 1, nil
}
