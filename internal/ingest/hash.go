package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ContentHash is the dedup key for a post: hex SHA-256 over
// source || "||" || url || "||" || trimmed text. Identical (source, url,
// text) always hash identically regardless of title or timestamp.
func ContentHash(source, url, text string) string {
	h := sha256.New()
	h.Write([]byte(source))                  //nolint:errcheck
	h.Write([]byte("||"))                    //nolint:errcheck
	h.Write([]byte(url))                     //nolint:errcheck
	h.Write([]byte("||"))                    //nolint:errcheck
	h.Write([]byte(strings.TrimSpace(text))) //nolint:errcheck
	return hex.EncodeToString(h.Sum(nil))
}
