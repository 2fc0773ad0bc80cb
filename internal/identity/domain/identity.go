package domain

import (
	"errors"
	"time"

	sessiondomain "cartshare/backend/internal/session/domain"
)

// Identity is the account aggregate: credential hash, status flags, and the
// session records the account owns. Accounts are deactivated, never deleted;
// every session mutation flows through the aggregate and is persisted with it.
type Identity struct {
	ID            string
	Email         string
	Name          string
	PasswordHash  string // opaque everywhere except the credential verifier
	Active        bool
	EmailVerified bool
	LastSeenAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Sessions sessiondomain.Records
}

// Validate validates the identity for persistence. Returns an error describing
// the first validation failure.
func (id *Identity) Validate() error {
	if id.ID == "" {
		return errors.New("id is required")
	}
	if id.Email == "" {
		return errors.New("email is required")
	}
	return nil
}
