package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"cartshare/backend/internal/identity/domain"
	"cartshare/backend/internal/identity/repository"
	"cartshare/backend/internal/security"
	sessiondomain "cartshare/backend/internal/session/domain"
)

// Sentinel errors for the auth service; the HTTP handler maps them to statuses.
// Token verification failures surface as security.ErrTokenInvalid and
// security.ErrTokenExpired unchanged.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	// ErrInvalidCredentials covers both unknown account and wrong password so
	// login responses never reveal which one it was.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")
	// ErrSessionMismatch is returned when the session id supplied with a
	// refresh does not match the one inside the refresh token.
	ErrSessionMismatch  = errors.New("session does not match refresh token")
	ErrSessionNotFound  = errors.New("session not found")
	ErrIdentityInactive = errors.New("identity is inactive or missing")
)

// DeviceInfo carries optional client provenance for a login.
// SessionID lets a device that already holds a session re-login in place
// instead of minting a new record; provenance fields are informational only.
type DeviceInfo struct {
	SessionID string
	UserAgent string
	IP        string
}

// TokenPair is the outcome of a successful login or refresh.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	SessionID        string
}

// AuthService orchestrates login, refresh rotation, and logout against the
// identity aggregate. Every operation is a read-modify-persist sequence on one
// identity; concurrent operations on the same identity are last-write-wins.
type AuthService struct {
	identities           repository.Repository
	codec                *security.TokenCodec
	hasher               *security.Hasher
	maxSessions          int
	requireVerifiedEmail bool

	now func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(
	identities repository.Repository,
	codec *security.TokenCodec,
	hasher *security.Hasher,
	maxSessions int,
	requireVerifiedEmail bool,
) *AuthService {
	if maxSessions < 1 {
		maxSessions = sessiondomain.DefaultMaxRecords
	}
	return &AuthService{
		identities:           identities,
		codec:                codec,
		hasher:               hasher,
		maxSessions:          maxSessions,
		requireVerifiedEmail: requireVerifiedEmail,
		now:                  time.Now,
	}
}

// Register creates an identity with the given email and password. The account
// starts active with an unverified email; verification delivery is the mail
// collaborator's job.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*domain.Identity, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	existing, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	ident := &domain.Identity{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hashed,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := ident.Validate(); err != nil {
		return nil, err
	}
	if err := s.identities.Create(ctx, ident); err != nil {
		return nil, err
	}
	return ident, nil
}

// Login authenticates with email/password and issues a token pair bound to a
// session record. A device re-logging-in with a session id that still names a
// live record gets an in-place replacement that exerts no eviction pressure;
// otherwise the cap is enforced (oldest record evicted) before the new record
// is added.
func (s *AuthService) Login(ctx context.Context, email, password string, dev DeviceInfo) (*TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	ident, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if ident == nil || !ident.Active {
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(ident.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if s.requireVerifiedEmail && !ident.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	// Expired records never survive a save, and they grant no cap exemption:
	// a device returning with a long-expired session id goes through eviction
	// like any new login.
	now := s.now().UTC()
	ident.Sessions.PruneExpired(now)

	sessionID := strings.TrimSpace(dev.SessionID)
	reuse := sessionID != "" && ident.Sessions.Find(sessionID) != nil
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	refreshToken, refreshExp, err := s.codec.SignRefresh(ident.ID, sessionID)
	if err != nil {
		return nil, err
	}

	if !reuse {
		ident.Sessions.EnforceCap(s.maxSessions, now)
	}
	rec := sessiondomain.Record{
		SessionID:        sessionID,
		RefreshTokenHash: security.HashRefreshToken(refreshToken),
		ExpiresAt:        refreshExp,
		CreatedAt:        now,
		LastUsedAt:       now,
		UserAgent:        dev.UserAgent,
		IP:               dev.IP,
	}
	if err := ident.Sessions.Add(rec); err != nil {
		return nil, err
	}
	ident.UpdatedAt = now
	if err := s.identities.Save(ctx, ident); err != nil {
		return nil, err
	}

	accessToken, accessExp, err := s.codec.SignAccess(ident.ID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExp,
		SessionID:        sessionID,
	}, nil
}

// Refresh validates the refresh token against the stored session record,
// rotates the record to a new refresh token, and returns a fresh pair.
// The previous refresh token is permanently unusable afterwards.
//
// Each precondition has its own failure mode, checked in order:
// token verification, session id match, identity liveness, record presence,
// hash match (catches replay of a rotated-away token), record expiry.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, sessionID string) (*TokenPair, error) {
	userID, decodedSessionID, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	if sessionID == "" || decodedSessionID != sessionID {
		return nil, ErrSessionMismatch
	}
	ident, err := s.identities.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ident == nil || !ident.Active {
		return nil, ErrIdentityInactive
	}
	rec := ident.Sessions.Find(sessionID)
	if rec == nil {
		return nil, ErrSessionNotFound
	}
	if !security.RefreshTokenHashEqual(refreshToken, rec.RefreshTokenHash) {
		return nil, security.ErrTokenInvalid
	}
	now := s.now().UTC()
	if rec.Expired(now) {
		// Drops this record along with any other expired siblings.
		ident.Sessions.PruneExpired(now)
		ident.UpdatedAt = now
		if err := s.identities.Save(ctx, ident); err != nil {
			return nil, err
		}
		return nil, security.ErrTokenExpired
	}
	// The rotated record is live; only expired siblings go.
	ident.Sessions.PruneExpired(now)

	newRefresh, newRefreshExp, err := s.codec.SignRefresh(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !ident.Sessions.Rotate(sessionID, security.HashRefreshToken(newRefresh), newRefreshExp, now) {
		return nil, ErrSessionNotFound
	}
	ident.UpdatedAt = now
	if err := s.identities.Save(ctx, ident); err != nil {
		return nil, err
	}

	accessToken, accessExp, err := s.codec.SignAccess(userID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     newRefresh,
		RefreshExpiresAt: newRefreshExp,
		SessionID:        sessionID,
	}, nil
}

// Logout revokes the session named by sessionID (or by the refresh token when
// sessionID is empty). Logout is idempotent: an unknown session, a dead token,
// or a missing identity all leave the desired end state already satisfied, so
// only storage failures are returned.
func (s *AuthService) Logout(ctx context.Context, refreshToken, sessionID string) error {
	if refreshToken == "" {
		return nil
	}
	userID, decodedSessionID, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		return nil
	}
	if sessionID == "" {
		sessionID = decodedSessionID
	}
	ident, err := s.identities.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if ident == nil {
		return nil
	}
	if ident.Sessions.Find(sessionID) == nil {
		return nil
	}
	now := s.now().UTC()
	ident.Sessions.Revoke(sessionID)
	ident.Sessions.PruneExpired(now)
	ident.UpdatedAt = now
	return s.identities.Save(ctx, ident)
}

// LogoutAll revokes every session for the identity ("log out everywhere").
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	ident, err := s.identities.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if ident == nil {
		return nil
	}
	ident.Sessions.RevokeAll()
	ident.UpdatedAt = s.now().UTC()
	return s.identities.Save(ctx, ident)
}

// Authenticate verifies an access token and returns the identity id it names.
// Expired and invalid tokens fail distinctly (security.ErrTokenExpired vs
// security.ErrTokenInvalid); a missing or deactivated identity fails with
// ErrIdentityInactive. Updates the identity's last-seen timestamp best-effort.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (string, error) {
	userID, err := s.codec.VerifyAccess(accessToken)
	if err != nil {
		return "", err
	}
	ident, err := s.identities.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if ident == nil || !ident.Active {
		return "", ErrIdentityInactive
	}
	_ = s.identities.UpdateLastSeen(ctx, userID, s.now().UTC())
	return userID, nil
}

// Sessions returns the identity's live session records, most recent first.
func (s *AuthService) Sessions(ctx context.Context, userID string) (sessiondomain.Records, error) {
	ident, err := s.identities.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ident == nil {
		return nil, ErrIdentityInactive
	}
	live := append(sessiondomain.Records(nil), ident.Sessions...)
	live.PruneExpired(s.now().UTC())
	return live, nil
}

// RevokeSession revokes one of the identity's sessions (device management).
// Idempotent for unknown session ids.
func (s *AuthService) RevokeSession(ctx context.Context, userID, sessionID string) error {
	ident, err := s.identities.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if ident == nil {
		return nil
	}
	if ident.Sessions.Find(sessionID) == nil {
		return nil
	}
	now := s.now().UTC()
	ident.Sessions.Revoke(sessionID)
	ident.Sessions.PruneExpired(now)
	ident.UpdatedAt = now
	return s.identities.Save(ctx, ident)
}

// ChangePassword verifies the current password, stores a new hash, and revokes
// every session so stolen refresh tokens die with the old credential.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	ident, err := s.identities.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if ident == nil || !ident.Active {
		return ErrIdentityInactive
	}
	if err := s.hasher.Compare(ident.PasswordHash, []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}
	hashed, err := s.hasher.Hash([]byte(newPassword))
	if err != nil {
		return err
	}
	ident.PasswordHash = hashed
	ident.Sessions.RevokeAll()
	ident.UpdatedAt = s.now().UTC()
	return s.identities.Save(ctx, ident)
}

// Identity loads the identity for userID, or ErrIdentityInactive when missing.
func (s *AuthService) Identity(ctx context.Context, userID string) (*domain.Identity, error) {
	ident, err := s.identities.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ident == nil {
		return nil, ErrIdentityInactive
	}
	return ident, nil
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	const simpleEmail = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	ok, _ := regexp.MatchString(simpleEmail, email)
	if !ok {
		return errors.New("invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	var hasLetter, hasNumber bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9':
			hasNumber = true
		}
	}
	if !hasLetter || !hasNumber {
		return errors.New("password must contain at least one letter and one number")
	}
	return nil
}
