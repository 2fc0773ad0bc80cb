package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"cartshare/backend/internal/metrics"
)

const (
	csrfCookieName = "csrfToken"
	csrfHeaderName = "X-CSRF-Token"
	csrfTokenBytes = 32
)

// CsrfGuard implements the double-submit cookie pattern. The token lives in a
// script-readable cookie; the page echoes it back in the X-CSRF-Token header
// on state-changing requests. A cross-site attacker can make the browser send
// the cookie but cannot read it to fill in the header.
type CsrfGuard struct {
	disabled bool // test escape hatch, refused in production config
	secure   bool
}

func NewCsrfGuard(disabled, secure bool) *CsrfGuard {
	return &CsrfGuard{disabled: disabled, secure: secure}
}

// Middleware issues the CSRF cookie when absent and enforces the
// double-submit check on PUT/POST/PATCH/DELETE. Safe methods pass through.
// There is no per-channel bypass: mobile clients simply never carry the
// cookie, so the browser-targeted check costs them nothing beyond the header.
func (g *CsrfGuard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.disabled {
			next.ServeHTTP(w, r)
			return
		}

		cookieToken := ""
		if c, err := r.Cookie(csrfCookieName); err == nil {
			cookieToken = strings.TrimSpace(c.Value)
		}
		if !validCsrfToken(cookieToken) {
			cookieToken = ""
			if fresh, err := newCsrfToken(); err == nil {
				g.setCookie(w, fresh)
			}
		}

		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		header := strings.TrimSpace(r.Header.Get(csrfHeaderName))
		if cookieToken == "" || header == "" ||
			len(cookieToken) != len(header) ||
			subtle.ConstantTimeCompare([]byte(cookieToken), []byte(header)) != 1 {
			metrics.CSRFRejectionsTotal.Inc()
			writeError(w, http.StatusForbidden, "csrf_mismatch", "missing or invalid csrf token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Readable on purpose: the page script must copy it into the header.
func (g *CsrfGuard) setCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false,
		Secure:   g.secure,
		SameSite: g.sameSite(),
	})
}

// Same policy as the session cookies: the cross-site production frontend
// needs SameSite=None (which requires Secure); plain-HTTP localhost gets Lax.
func (g *CsrfGuard) sameSite() http.SameSite {
	if g.secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

func newCsrfToken() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func validCsrfToken(v string) bool {
	if len(v) != csrfTokenBytes*2 {
		return false
	}
	_, err := hex.DecodeString(v)
	return err == nil
}
