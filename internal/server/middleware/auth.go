package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"cartshare/backend/internal/identity/service"
	"cartshare/backend/internal/security"
)

// TokenAuthenticator validates an access token and returns the identity id it
// belongs to. Satisfied by the auth service.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, accessToken string) (string, error)
}

// AuthGate returns middleware that requires a valid bearer access token.
// Failures are distinguished so clients know whether to refresh: an expired
// token gets token_expired, a malformed or mis-signed one token_invalid.
// On success the identity id is stored in the request context.
func AuthGate(auth TokenAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
				return
			}
			userID, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, security.ErrTokenExpired):
					writeError(w, http.StatusUnauthorized, "token_expired", "access token expired")
				case errors.Is(err, security.ErrTokenInvalid):
					writeError(w, http.StatusUnauthorized, "token_invalid", "access token invalid")
				case errors.Is(err, service.ErrIdentityInactive):
					writeError(w, http.StatusUnauthorized, "unauthenticated", "account is not active")
				default:
					writeError(w, http.StatusInternalServerError, "server_error", "internal error")
				}
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
