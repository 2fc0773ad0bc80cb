package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashRefreshToken digests a refresh token to the hex SHA-256 form stored in
// session records. The raw token exists only in transit; persistence and logs
// only ever see this digest.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// RefreshTokenHashEqual compares a presented refresh token against a stored
// digest without leaking timing. Hashing first fixes the compared length, so
// the comparison itself is constant-time.
func RefreshTokenHashEqual(presentedToken, storedHash string) bool {
	digest := HashRefreshToken(presentedToken)
	return subtle.ConstantTimeCompare([]byte(digest), []byte(storedHash)) == 1
}
