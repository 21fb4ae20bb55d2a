package blob

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/text/unicode/norm"
)

// CanonicalName NFC-normalizes a record name. Names are normalized at
// the encoding boundary so the same logical name always hashes the
// same regardless of how the source document spelled its combining
// characters.
func CanonicalName(s string) string {
	return norm.NFC.String(s)
}

// Hash returns the hex SHA-256 of an encoded blob. Used as the blob
// identity in trace sessions and for reload idempotence checks.
func Hash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
