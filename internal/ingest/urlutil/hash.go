package urlutil

import (
	"crypto/sha256"
	"encoding/hex"
)

// urlHashLen is the number of hex characters kept from a URL digest. Short
// enough for file names and log lines; collisions are negligible at crawl
// scale and the hash is not a security boundary.
const urlHashLen = 16

// URLHash returns the first 16 hex characters of the SHA-256 digest of the
// canonical form of url.
func URLHash(rawURL string) string {
	sum := sha256.Sum256([]byte(Canonicalize(rawURL, false)))
	return hex.EncodeToString(sum[:])[:urlHashLen]
}

// ContentHash returns the full SHA-256 hex digest of raw content, used for
// exact-duplicate detection independent of URL.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
