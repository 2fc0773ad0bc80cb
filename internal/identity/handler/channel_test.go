package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cartshare/backend/internal/identity/service"
)

func TestChannelFor(t *testing.T) {
	cases := []struct {
		header string
		want   Channel
	}{
		{"", ChannelWeb},
		{"web", ChannelWeb},
		{"Web", ChannelWeb},
		{"  web  ", ChannelWeb},
		{"mobile", ChannelMobile},
		{"ios", ChannelMobile},
		{"android", ChannelMobile},
		{"anything-else", ChannelMobile},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		if tc.header != "" {
			r.Header.Set(clientTypeHeader, tc.header)
		}
		if got := channelFor(r); got != tc.want {
			t.Errorf("channelFor(%q) = %v, want %v", tc.header, got, tc.want)
		}
	}
}

func testPair() *service.TokenPair {
	return &service.TokenPair{
		AccessToken:      "access-token",
		AccessExpiresAt:  time.Now().Add(15 * time.Minute),
		RefreshToken:     "refresh-token",
		RefreshExpiresAt: time.Now().Add(720 * time.Hour),
		SessionID:        "session-1",
	}
}

func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestChannelAdapter_DeliverWeb(t *testing.T) {
	rec := httptest.NewRecorder()
	resp := channelAdapter{}.deliver(rec, ChannelWeb, testPair())

	if resp.RefreshToken != "" || resp.SessionID != "" {
		t.Error("web body must not carry refresh token or session id")
	}
	if resp.AccessToken != "access-token" {
		t.Error("web body must carry the access token")
	}

	cookies := rec.Result().Cookies()
	refresh := cookieByName(cookies, refreshCookieName)
	session := cookieByName(cookies, sessionCookieName)
	if refresh == nil || session == nil {
		t.Fatalf("missing auth cookies, got %v", cookies)
	}
	if refresh.Value != "refresh-token" || session.Value != "session-1" {
		t.Error("cookie values do not match the pair")
	}
	for _, c := range []*http.Cookie{refresh, session} {
		if !c.HttpOnly {
			t.Errorf("cookie %s must be HttpOnly", c.Name)
		}
	}
}

func TestChannelAdapter_DeliverMobile(t *testing.T) {
	rec := httptest.NewRecorder()
	resp := channelAdapter{}.deliver(rec, ChannelMobile, testPair())

	if resp.RefreshToken != "refresh-token" || resp.SessionID != "session-1" || resp.AccessToken != "access-token" {
		t.Error("mobile body must carry all three fields")
	}
	if cookies := rec.Result().Cookies(); len(cookies) != 0 {
		t.Errorf("mobile delivery set cookies: %v", cookies)
	}
}

func TestChannelAdapter_SecureProfile(t *testing.T) {
	rec := httptest.NewRecorder()
	channelAdapter{secure: true}.deliver(rec, ChannelWeb, testPair())
	for _, c := range rec.Result().Cookies() {
		if !c.Secure {
			t.Errorf("cookie %s must be Secure in the production profile", c.Name)
		}
		if c.SameSite != http.SameSiteNoneMode {
			t.Errorf("cookie %s SameSite = %v, want None", c.Name, c.SameSite)
		}
	}

	rec = httptest.NewRecorder()
	channelAdapter{}.deliver(rec, ChannelWeb, testPair())
	for _, c := range rec.Result().Cookies() {
		if c.SameSite != http.SameSiteLaxMode {
			t.Errorf("cookie %s SameSite = %v, want Lax outside production", c.Name, c.SameSite)
		}
	}
}

func TestChannelAdapter_Extract(t *testing.T) {
	a := channelAdapter{}

	r := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	r.AddCookie(&http.Cookie{Name: refreshCookieName, Value: "cookie-token"})
	r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "cookie-session"})

	// Web reads cookies and ignores body fields.
	creds := a.extract(r, ChannelWeb, "body-token", "body-session")
	if creds.RefreshToken != "cookie-token" || creds.SessionID != "cookie-session" {
		t.Errorf("web extract = %+v, want cookie values", creds)
	}

	// Mobile reads the body and ignores cookies.
	creds = a.extract(r, ChannelMobile, "body-token", "body-session")
	if creds.RefreshToken != "body-token" || creds.SessionID != "body-session" {
		t.Errorf("mobile extract = %+v, want body values", creds)
	}
}

func TestChannelAdapter_Clear(t *testing.T) {
	rec := httptest.NewRecorder()
	channelAdapter{}.clear(rec)

	cookies := rec.Result().Cookies()
	for _, name := range []string{refreshCookieName, sessionCookieName} {
		c := cookieByName(cookies, name)
		if c == nil {
			t.Fatalf("clear did not touch cookie %s", name)
		}
		if c.Value != "" || c.MaxAge != -1 {
			t.Errorf("cookie %s not cleared: value=%q maxAge=%d", name, c.Value, c.MaxAge)
		}
		if !c.Expires.Equal(time.Unix(0, 0).UTC()) {
			t.Errorf("cookie %s expiry = %v, want epoch", name, c.Expires)
		}
	}
}
