package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid is returned when a token is malformed, has a bad signature,
	// or carries the wrong issuer/audience.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned when a token is past its expiry. Kept distinct
	// from ErrTokenInvalid so clients can trigger a refresh only on expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrConfig is returned when a signing secret is missing. Fatal at startup,
	// never surfaced per request.
	ErrConfig = errors.New("token signing secret is not configured")
)

// AccessClaims holds JWT claims for the access token.
type AccessClaims struct {
	jwt.RegisteredClaims
}

// RefreshClaims holds JWT claims for the refresh token. The jti nonce makes
// every issued refresh token unique, so two rotations of the same session in
// the same instant never hash identically.
type RefreshClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"session_id"`
}

// TokenCodec signs and verifies access and refresh JWTs using HS256 with a
// distinct secret per token kind, so the two kinds never verify interchangeably.
type TokenCodec struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	audience      string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenCodec returns a TokenCodec for the given secrets and claim policy.
// Returns ErrConfig when either secret is empty.
func NewTokenCodec(accessSecret, refreshSecret []byte, issuer, audience string, accessTTL, refreshTTL time.Duration) (*TokenCodec, error) {
	if len(accessSecret) == 0 || len(refreshSecret) == 0 {
		return nil, ErrConfig
	}
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 720 * time.Hour
	}
	return &TokenCodec{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		issuer:        issuer,
		audience:      audience,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

// SignAccess issues a short-lived access JWT for the given user.
// Returns the token string and its expiration time.
func (c *TokenCodec) SignAccess(userID string) (token string, expiresAt time.Time, err error) {
	now := time.Now().UTC()
	expiresAt = now.Add(c.accessTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.accessSecret)
	return token, expiresAt, err
}

// SignRefresh issues a long-lived refresh JWT bound to the given session.
// A random jti nonce guarantees uniqueness across rotations of the same session.
func (c *TokenCodec) SignRefresh(userID, sessionID string) (token string, expiresAt time.Time, err error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt = now.Add(c.refreshTTL)
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID: sessionID,
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.refreshSecret)
	return token, expiresAt, err
}

// VerifyAccess parses and validates an access token (signature, exp, iss, aud).
// Returns the user ID, ErrTokenExpired for expiry, or ErrTokenInvalid for any other failure.
func (c *TokenCodec) VerifyAccess(tokenString string) (userID string, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return c.accessSecret, nil
	})
	if err != nil {
		return "", classifyParseError(err)
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return "", ErrTokenInvalid
	}
	if err := c.checkIssuerAudience(claims.Issuer, claims.Audience); err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}

// VerifyRefresh parses and validates a refresh token (signature, exp, iss, aud).
// Returns the user ID and session ID, with the same failure taxonomy as VerifyAccess.
func (c *TokenCodec) VerifyRefresh(tokenString string) (userID, sessionID string, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &RefreshClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return c.refreshSecret, nil
	})
	if err != nil {
		return "", "", classifyParseError(err)
	}
	claims, ok := token.Claims.(*RefreshClaims)
	if !ok || !token.Valid {
		return "", "", ErrTokenInvalid
	}
	if err := c.checkIssuerAudience(claims.Issuer, claims.Audience); err != nil {
		return "", "", err
	}
	if claims.Subject == "" || claims.SessionID == "" {
		return "", "", ErrTokenInvalid
	}
	return claims.Subject, claims.SessionID, nil
}

func (c *TokenCodec) checkIssuerAudience(issuer string, audience jwt.ClaimStrings) error {
	if issuer != c.issuer {
		return ErrTokenInvalid
	}
	for _, a := range audience {
		if a == c.audience {
			return nil
		}
	}
	return ErrTokenInvalid
}

func classifyParseError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrTokenExpired
	}
	return ErrTokenInvalid
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
