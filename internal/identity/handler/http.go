package handler

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"cartshare/backend/internal/identity/domain"
	"cartshare/backend/internal/identity/service"
	"cartshare/backend/internal/metrics"
	"cartshare/backend/internal/security"
	"cartshare/backend/internal/server/middleware"
	sessiondomain "cartshare/backend/internal/session/domain"
)

// Handler serves the auth HTTP surface. Token delivery goes through the
// channel adapter; everything else is plain request/response JSON.
type Handler struct {
	log        zerolog.Logger
	svc        *service.AuthService
	channel    channelAdapter
	trustProxy bool
}

// New returns an auth Handler. secureCookies selects the production cookie
// profile (Secure, SameSite=None); cookieDomain scopes the auth cookies;
// trustProxy enables X-Forwarded-For parsing.
func New(log zerolog.Logger, svc *service.AuthService, secureCookies bool, cookieDomain string, trustProxy bool) *Handler {
	return &Handler{
		log:        log,
		svc:        svc,
		channel:    channelAdapter{secure: secureCookies, domain: cookieDomain},
		trustProxy: trustProxy,
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	// SessionID lets a device that kept its session id re-login in place.
	SessionID string `json:"sessionId"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
	SessionID    string `json:"sessionId"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type userResponse struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

type sessionView struct {
	SessionID  string    `json:"sessionId"`
	CreatedAt  time.Time `json:"createdAt"`
	LastUsedAt time.Time `json:"lastUsedAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
	UserAgent  string    `json:"userAgent,omitempty"`
	IP         string    `json:"ip,omitempty"`
}

func toUserResponse(ident *domain.Identity) userResponse {
	return userResponse{
		ID:            ident.ID,
		Email:         ident.Email,
		Name:          ident.Name,
		EmailVerified: ident.EmailVerified,
		CreatedAt:     ident.CreatedAt,
	}
}

func toSessionViews(records sessiondomain.Records) []sessionView {
	out := make([]sessionView, 0, len(records))
	for _, rec := range records {
		out = append(out, sessionView{
			SessionID:  rec.SessionID,
			CreatedAt:  rec.CreatedAt,
			LastUsedAt: rec.LastUsedAt,
			ExpiresAt:  rec.ExpiresAt,
			UserAgent:  rec.UserAgent,
			IP:         rec.IP,
		})
	}
	return out
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	ident, err := h.svc.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, service.ErrEmailAlreadyRegistered) {
			writeError(w, http.StatusConflict, "email_taken", "email already registered")
			return
		}
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		h.internalError(w, "register", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": toUserResponse(ident)})
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	ch := channelFor(r)
	// A browser that still holds its session cookie re-logs-in in place.
	sessionID := strings.TrimSpace(req.SessionID)
	if ch == ChannelWeb && sessionID == "" {
		if c, err := r.Cookie(sessionCookieName); err == nil {
			sessionID = strings.TrimSpace(c.Value)
		}
	}

	pair, err := h.svc.Login(r.Context(), req.Email, req.Password, service.DeviceInfo{
		SessionID: sessionID,
		UserAgent: strings.TrimSpace(r.UserAgent()),
		IP:        h.clientIP(r),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		case errors.Is(err, service.ErrEmailNotVerified):
			metrics.LoginsTotal.WithLabelValues("email_not_verified").Inc()
			writeError(w, http.StatusForbidden, "email_not_verified", "email verification required")
		default:
			metrics.LoginsTotal.WithLabelValues("error").Inc()
			h.internalError(w, "login", err)
		}
		return
	}
	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, h.channel.deliver(w, ch, pair))
}

// Refresh handles POST /auth/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	ch := channelFor(r)
	creds := h.channel.extract(r, ch, req.RefreshToken, req.SessionID)
	if creds.RefreshToken == "" {
		metrics.RefreshesTotal.WithLabelValues("missing_token").Inc()
		writeError(w, http.StatusBadRequest, "invalid_request", "refresh token is required")
		return
	}

	pair, err := h.svc.Refresh(r.Context(), creds.RefreshToken, creds.SessionID)
	if err != nil {
		code, status := refreshErrorCode(err)
		if code == "" {
			metrics.RefreshesTotal.WithLabelValues("error").Inc()
			h.internalError(w, "refresh", err)
			return
		}
		metrics.RefreshesTotal.WithLabelValues(code).Inc()
		// A dead refresh credential is not coming back; stop the browser
		// from replaying it.
		if ch == ChannelWeb {
			h.channel.clear(w)
		}
		writeError(w, status, code, "refresh rejected")
		return
	}
	metrics.RefreshesTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, h.channel.deliver(w, ch, pair))
}

// refreshErrorCode maps refresh failures to their taxonomy code. Returns ""
// for unexpected errors.
func refreshErrorCode(err error) (code string, status int) {
	switch {
	case errors.Is(err, security.ErrTokenExpired):
		return "token_expired", http.StatusUnauthorized
	case errors.Is(err, security.ErrTokenInvalid):
		return "token_invalid", http.StatusUnauthorized
	case errors.Is(err, service.ErrSessionMismatch):
		return "session_mismatch", http.StatusUnauthorized
	case errors.Is(err, service.ErrSessionNotFound):
		return "session_not_found", http.StatusUnauthorized
	case errors.Is(err, service.ErrIdentityInactive):
		return "identity_inactive", http.StatusUnauthorized
	default:
		return "", 0
	}
}

// Logout handles POST /auth/logout. Always clears web cookies and reports
// success; only a storage failure is an error.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	ch := channelFor(r)
	creds := h.channel.extract(r, ch, req.RefreshToken, req.SessionID)

	if err := h.svc.Logout(r.Context(), creds.RefreshToken, creds.SessionID); err != nil {
		h.internalError(w, "logout", err)
		return
	}
	if ch == ChannelWeb {
		h.channel.clear(w)
	}
	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll handles POST /auth/logout-all (authenticated).
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if err := h.svc.LogoutAll(r.Context(), userID); err != nil {
		h.internalError(w, "logout_all", err)
		return
	}
	if channelFor(r) == ChannelWeb {
		h.channel.clear(w)
	}
	w.WriteHeader(http.StatusNoContent)
}

// ChangePassword handles POST /auth/password (authenticated). Every session
// is revoked on success, so the client must log in again.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	userID := middleware.UserID(r.Context())
	err := h.svc.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "current password is incorrect")
		case errors.Is(err, service.ErrIdentityInactive):
			writeError(w, http.StatusUnauthorized, "identity_inactive", "account is not active")
		case isValidationError(err):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		default:
			h.internalError(w, "change_password", err)
		}
		return
	}
	if channelFor(r) == ChannelWeb {
		h.channel.clear(w)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Sessions handles GET /auth/sessions (authenticated).
func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	records, err := h.svc.Sessions(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrIdentityInactive) {
			writeError(w, http.StatusUnauthorized, "identity_inactive", "account is not active")
			return
		}
		h.internalError(w, "sessions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": toSessionViews(records)})
}

// RevokeSession handles DELETE /auth/sessions/{sessionID} (authenticated).
func (h *Handler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.svc.RevokeSession(r.Context(), userID, sessionID); err != nil {
		h.internalError(w, "revoke_session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/v1/me (authenticated).
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	ident, err := h.svc.Identity(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrIdentityInactive) {
			writeError(w, http.StatusUnauthorized, "identity_inactive", "account is not active")
			return
		}
		h.internalError(w, "me", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": toUserResponse(ident)})
}

func (h *Handler) internalError(w http.ResponseWriter, op string, err error) {
	h.log.Error().Err(err).Str("op", op).Msg("auth request failed")
	writeError(w, http.StatusInternalServerError, "server_error", "internal error")
}

// isValidationError distinguishes input-shaped failures (bad email, weak
// password) from infrastructure failures. Validation errors are plain
// errors.New values with no wrapped cause.
func isValidationError(err error) bool {
	return err != nil && errors.Unwrap(err) == nil &&
		!errors.Is(err, service.ErrEmailAlreadyRegistered) &&
		(strings.Contains(err.Error(), "email") || strings.Contains(err.Error(), "password"))
}

func (h *Handler) clientIP(r *http.Request) string {
	if h.trustProxy {
		if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
			first := strings.TrimSpace(strings.Split(fwd, ",")[0])
			if net.ParseIP(first) != nil {
				return first
			}
		}
		if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(real) != nil {
			return real
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
