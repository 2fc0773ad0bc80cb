package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cartshare/backend/internal/identity/domain"
	sessiondomain "cartshare/backend/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an identity repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const identityColumns = `id, email, name, password_hash, active, email_verified, last_seen_at, created_at, updated_at`

// GetByID returns the identity aggregate for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
	return r.scanAggregate(ctx, row)
}

// GetByEmail returns the identity aggregate for email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE email = $1`, email)
	return r.scanAggregate(ctx, row)
}

// Create persists a new identity and any session records it already carries.
func (r *PostgresRepository) Create(ctx context.Context, ident *domain.Identity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO identities (id, email, name, password_hash, active, email_verified, last_seen_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ident.ID, ident.Email, ident.Name, ident.PasswordHash, ident.Active, ident.EmailVerified,
		timeToNullTime(ident.LastSeenAt), ident.CreatedAt, ident.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert identity: %w", err)
	}
	if err := insertSessions(ctx, tx, ident.ID, ident.Sessions); err != nil {
		return err
	}
	return tx.Commit()
}

// Save persists the whole aggregate. The identity row is updated and the
// session records are replaced wholesale inside one transaction, so the
// persisted state is exactly the in-memory collection at save time.
func (r *PostgresRepository) Save(ctx context.Context, ident *domain.Identity) error {
	if err := ident.Validate(); err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE identities
		 SET email = $2, name = $3, password_hash = $4, active = $5, email_verified = $6, updated_at = $7
		 WHERE id = $1`,
		ident.ID, ident.Email, ident.Name, ident.PasswordHash, ident.Active, ident.EmailVerified, ident.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update identity: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.New("identity does not exist")
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM session_records WHERE identity_id = $1`, ident.ID); err != nil {
		return fmt.Errorf("clear session records: %w", err)
	}
	if err := insertSessions(ctx, tx, ident.ID, ident.Sessions); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateLastSeen sets the identity's last-seen timestamp. Returns an error if the update fails.
func (r *PostgresRepository) UpdateLastSeen(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE identities SET last_seen_at = $2 WHERE id = $1`, id, at)
	return err
}

// SetEmailVerified marks the identity's email as verified.
func (r *PostgresRepository) SetEmailVerified(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE identities SET email_verified = TRUE, updated_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *PostgresRepository) scanAggregate(ctx context.Context, row *sql.Row) (*domain.Identity, error) {
	var ident domain.Identity
	var lastSeen sql.NullTime
	err := row.Scan(
		&ident.ID, &ident.Email, &ident.Name, &ident.PasswordHash,
		&ident.Active, &ident.EmailVerified, &lastSeen, &ident.CreatedAt, &ident.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	ident.LastSeenAt = nullTimeToPtr(lastSeen)

	sessions, err := r.loadSessions(ctx, ident.ID)
	if err != nil {
		return nil, err
	}
	ident.Sessions = sessions
	// Defensive: collapse any duplicate session ids left by earlier writes.
	ident.Sessions.Normalize()
	return &ident, nil
}

func (r *PostgresRepository) loadSessions(ctx context.Context, identityID string) (sessiondomain.Records, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT session_id, refresh_token_hash, expires_at, created_at, last_used_at, user_agent, ip
		 FROM session_records WHERE identity_id = $1 ORDER BY created_at, session_id`,
		identityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out sessiondomain.Records
	for rows.Next() {
		var rec sessiondomain.Record
		var userAgent, ip sql.NullString
		if err := rows.Scan(
			&rec.SessionID, &rec.RefreshTokenHash, &rec.ExpiresAt,
			&rec.CreatedAt, &rec.LastUsedAt, &userAgent, &ip,
		); err != nil {
			return nil, err
		}
		rec.UserAgent = userAgent.String
		rec.IP = ip.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

func insertSessions(ctx context.Context, tx *sql.Tx, identityID string, sessions sessiondomain.Records) error {
	for _, rec := range sessions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO session_records (identity_id, session_id, refresh_token_hash, expires_at, created_at, last_used_at, user_agent, ip)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			identityID, rec.SessionID, rec.RefreshTokenHash, rec.ExpiresAt, rec.CreatedAt, rec.LastUsedAt,
			sql.NullString{String: rec.UserAgent, Valid: rec.UserAgent != ""},
			sql.NullString{String: rec.IP, Valid: rec.IP != ""},
		)
		if err != nil {
			return fmt.Errorf("insert session record %s: %w", rec.SessionID, err)
		}
	}
	return nil
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	return &n.Time
}
