package handler

import (
	"net/http"
	"strings"
	"time"

	"cartshare/backend/internal/identity/service"
)

// Channel is how tokens travel between server and client. Web clients keep the
// refresh token and session id in HttpOnly cookies so page scripts never see
// them; mobile clients hold everything themselves and receive all three fields
// in the response body.
type Channel int

const (
	ChannelWeb Channel = iota
	ChannelMobile
)

const (
	clientTypeHeader  = "X-Client-Type"
	refreshCookieName = "refreshToken"
	sessionCookieName = "sessionId"
)

// channelFor picks the delivery channel from the X-Client-Type header.
// Absent or "web" means a browser; any other value (mobile, ios, android)
// is treated as a token-holding native client.
func channelFor(r *http.Request) Channel {
	v := strings.ToLower(strings.TrimSpace(r.Header.Get(clientTypeHeader)))
	if v == "" || v == "web" {
		return ChannelWeb
	}
	return ChannelMobile
}

// tokenResponse is the success body for login and refresh. Cookie-delivered
// fields are blanked on the web channel.
type tokenResponse struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken,omitempty"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
	SessionID        string    `json:"sessionId,omitempty"`
}

// channelAdapter delivers and extracts token material per channel. It is the
// only place that knows about cookies; everything below it works on strings.
type channelAdapter struct {
	secure bool   // Secure + SameSite=None cookies (cross-site production setup)
	domain string // cookie Domain attribute; empty means host-only
}

// deliver writes the token pair to the client. Web: refresh token and session
// id become HttpOnly cookies expiring with the refresh token, and only the
// access token remains in the body. Mobile: everything in the body, no cookies.
func (a channelAdapter) deliver(w http.ResponseWriter, ch Channel, pair *service.TokenPair) tokenResponse {
	resp := tokenResponse{
		AccessToken:      pair.AccessToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: pair.RefreshExpiresAt,
		SessionID:        pair.SessionID,
	}
	if ch != ChannelWeb {
		return resp
	}
	a.setCookie(w, refreshCookieName, pair.RefreshToken, pair.RefreshExpiresAt)
	a.setCookie(w, sessionCookieName, pair.SessionID, pair.RefreshExpiresAt)
	resp.RefreshToken = ""
	resp.SessionID = ""
	return resp
}

// credentials are the refresh token + session id extracted from a request.
type credentials struct {
	RefreshToken string
	SessionID    string
}

// extract reads refresh credentials the same way they were delivered:
// cookies on the web channel, body fields on mobile.
func (a channelAdapter) extract(r *http.Request, ch Channel, bodyToken, bodySessionID string) credentials {
	if ch != ChannelWeb {
		return credentials{
			RefreshToken: strings.TrimSpace(bodyToken),
			SessionID:    strings.TrimSpace(bodySessionID),
		}
	}
	var creds credentials
	if c, err := r.Cookie(refreshCookieName); err == nil {
		creds.RefreshToken = strings.TrimSpace(c.Value)
	}
	if c, err := r.Cookie(sessionCookieName); err == nil {
		creds.SessionID = strings.TrimSpace(c.Value)
	}
	return creds
}

// clear expires the web session cookies. Harmless on the mobile channel,
// where the client never held cookies to begin with.
func (a channelAdapter) clear(w http.ResponseWriter) {
	a.expireCookie(w, refreshCookieName)
	a.expireCookie(w, sessionCookieName)
}

func (a channelAdapter) setCookie(w http.ResponseWriter, name, value string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   a.domain,
		Expires:  exp,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: a.sameSite(),
	})
}

func (a channelAdapter) expireCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   a.domain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: a.sameSite(),
	})
}

// SameSite=None requires Secure; outside production we run plain HTTP on
// localhost, so fall back to Lax.
func (a channelAdapter) sameSite() http.SameSite {
	if a.secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}
