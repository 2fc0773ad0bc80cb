package repository

import (
	"context"
	"time"

	"cartshare/backend/internal/identity/domain"
)

// Repository defines persistence for identity aggregates.
type Repository interface {
	// GetByID returns the identity with its session records, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	// GetByEmail returns the identity with its session records, or nil if not found.
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
	// Create persists a new identity. The identity must have ID set.
	Create(ctx context.Context, ident *domain.Identity) error
	// Save persists the whole aggregate: the identity row plus a full replace
	// of its session records, in one transaction. Last write wins at identity
	// granularity; concurrent saves of the same identity do not merge.
	Save(ctx context.Context, ident *domain.Identity) error
	// UpdateLastSeen sets the identity's last-seen timestamp. Best-effort.
	UpdateLastSeen(ctx context.Context, id string, at time.Time) error
	// SetEmailVerified marks the identity's email as verified.
	SetEmailVerified(ctx context.Context, id string) error
}
