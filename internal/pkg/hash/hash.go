// Package hash provides hashing utilities.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// SHA256 computes the SHA256 hash of data and returns it as a hex string.
func SHA256(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SHA256String computes the SHA256 hash of a string.
func SHA256String(s string) string {
	return SHA256([]byte(s))
}

// SHA256Short returns the first n characters of a SHA256 hash.
func SHA256Short(data []byte, n int) string {
	h := SHA256(data)
	if n > len(h) {
		return h
	}
	return h[:n]
}

// DocumentID generates a deterministic document ID for a raw result.
// URL-bearing results hash the URL; the rest fall back to provider+title.
func DocumentID(url, provider, title string) string {
	key := url
	if key == "" {
		key = provider + ":" + strings.ToLower(strings.TrimSpace(title))
	}
	return SHA256Short([]byte(key), 16)
}

// QueryKey generates a deterministic cache key for a retrieval request.
func QueryKey(query string, maxResults int) string {
	data := fmt.Sprintf("%s:%d", strings.ToLower(strings.TrimSpace(query)), maxResults)
	return SHA256Short([]byte(data), 32)
}
