// Package checksum computes the SHA-256 content digests recorded in formulas.
//
// Homebrew verifies every url and resource against a lowercase hex SHA-256,
// so all helpers return that representation (64 characters).
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// Size is the length of a hex-encoded SHA-256 digest.
const Size = sha256.Size * 2

// Bytes returns the hex SHA-256 digest of data.
func Bytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Reader streams r to completion and returns its hex SHA-256 digest.
func Reader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// File returns the hex SHA-256 digest of the file at path.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return Reader(f)
}

// Valid reports whether s looks like a digest produced by this package:
// exactly 64 lowercase hex characters.
func Valid(s string) bool {
	if len(s) != Size {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
