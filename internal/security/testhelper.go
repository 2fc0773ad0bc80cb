package security

import "time"

// Test secrets for unit tests only. Do not use in production.
const (
	testAccessSecret  = "unit-test-access-secret-0123456789abcdef"
	testRefreshSecret = "unit-test-refresh-secret-fedcba9876543210"
)

// NewTestTokenCodec returns a TokenCodec using embedded test secrets.
// For unit tests only. Callers must not use in production.
func NewTestTokenCodec() (*TokenCodec, error) {
	return NewTokenCodec(
		[]byte(testAccessSecret),
		[]byte(testRefreshSecret),
		"test-issuer",
		"test-audience",
		15*time.Minute,
		24*time.Hour,
	)
}
