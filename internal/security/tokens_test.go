package security

import (
	"testing"
	"time"
)

func TestTokenCodec_SignAccessAndRefresh(t *testing.T) {
	c, err := NewTestTokenCodec()
	if err != nil {
		t.Fatalf("NewTestTokenCodec: %v", err)
	}
	userID, sessionID := "u1", "s1"

	access, accessExp, err := c.SignAccess(userID)
	if err != nil {
		t.Fatalf("SignAccess: %v", err)
	}
	if access == "" {
		t.Fatal("access token empty")
	}
	if accessExp.Before(time.Now()) {
		t.Fatal("access expires at in the past")
	}

	refresh, refreshExp, err := c.SignRefresh(userID, sessionID)
	if err != nil {
		t.Fatalf("SignRefresh: %v", err)
	}
	if refresh == "" {
		t.Fatal("refresh token empty")
	}
	if refreshExp.Before(time.Now()) {
		t.Fatal("refresh expires at in the past")
	}

	uid, err := c.VerifyAccess(access)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if uid != userID {
		t.Errorf("VerifyAccess: got userID=%q, want %q", uid, userID)
	}

	uid, sid, err := c.VerifyRefresh(refresh)
	if err != nil {
		t.Fatalf("VerifyRefresh: %v", err)
	}
	if uid != userID || sid != sessionID {
		t.Errorf("VerifyRefresh: got userID=%q sessionID=%q", uid, sid)
	}
}

func TestTokenCodec_RefreshNonceUnique(t *testing.T) {
	c, err := NewTestTokenCodec()
	if err != nil {
		t.Fatalf("NewTestTokenCodec: %v", err)
	}
	t1, _, err := c.SignRefresh("u1", "s1")
	if err != nil {
		t.Fatalf("SignRefresh: %v", err)
	}
	t2, _, err := c.SignRefresh("u1", "s1")
	if err != nil {
		t.Fatalf("SignRefresh: %v", err)
	}
	if t1 == t2 {
		t.Error("two refresh tokens for the same session should never be identical")
	}
	if HashRefreshToken(t1) == HashRefreshToken(t2) {
		t.Error("two refresh tokens for the same session should never hash identically")
	}
}

func TestTokenCodec_KindsNotInterchangeable(t *testing.T) {
	c, err := NewTestTokenCodec()
	if err != nil {
		t.Fatalf("NewTestTokenCodec: %v", err)
	}
	access, _, err := c.SignAccess("u1")
	if err != nil {
		t.Fatalf("SignAccess: %v", err)
	}
	refresh, _, err := c.SignRefresh("u1", "s1")
	if err != nil {
		t.Fatalf("SignRefresh: %v", err)
	}

	if _, _, err := c.VerifyRefresh(access); err != ErrTokenInvalid {
		t.Errorf("VerifyRefresh(access token): want ErrTokenInvalid, got %v", err)
	}
	if _, err := c.VerifyAccess(refresh); err != ErrTokenInvalid {
		t.Errorf("VerifyAccess(refresh token): want ErrTokenInvalid, got %v", err)
	}
}

func TestTokenCodec_VerifyInvalid(t *testing.T) {
	c, err := NewTestTokenCodec()
	if err != nil {
		t.Fatalf("NewTestTokenCodec: %v", err)
	}
	if _, err := c.VerifyAccess("invalid-token"); err != ErrTokenInvalid {
		t.Errorf("VerifyAccess invalid token: want ErrTokenInvalid, got %v", err)
	}
	if _, _, err := c.VerifyRefresh("invalid-token"); err != ErrTokenInvalid {
		t.Errorf("VerifyRefresh invalid token: want ErrTokenInvalid, got %v", err)
	}
}

func TestTokenCodec_VerifyExpired(t *testing.T) {
	c, err := NewTokenCodec(
		[]byte(testAccessSecret),
		[]byte(testRefreshSecret),
		"test-issuer",
		"test-audience",
		time.Nanosecond,
		time.Nanosecond,
	)
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}

	access, _, err := c.SignAccess("u1")
	if err != nil {
		t.Fatalf("SignAccess: %v", err)
	}
	refresh, _, err := c.SignRefresh("u1", "s1")
	if err != nil {
		t.Fatalf("SignRefresh: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	if _, err := c.VerifyAccess(access); err != ErrTokenExpired {
		t.Errorf("VerifyAccess expired token: want ErrTokenExpired, got %v", err)
	}
	if _, _, err := c.VerifyRefresh(refresh); err != ErrTokenExpired {
		t.Errorf("VerifyRefresh expired token: want ErrTokenExpired, got %v", err)
	}
}

func TestTokenCodec_WrongIssuerRejected(t *testing.T) {
	signer, err := NewTokenCodec(
		[]byte(testAccessSecret), []byte(testRefreshSecret),
		"other-issuer", "test-audience", time.Minute, time.Hour,
	)
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	verifier, err := NewTestTokenCodec()
	if err != nil {
		t.Fatalf("NewTestTokenCodec: %v", err)
	}
	access, _, err := signer.SignAccess("u1")
	if err != nil {
		t.Fatalf("SignAccess: %v", err)
	}
	if _, err := verifier.VerifyAccess(access); err != ErrTokenInvalid {
		t.Errorf("VerifyAccess wrong issuer: want ErrTokenInvalid, got %v", err)
	}
}

func TestNewTokenCodec_MissingSecret(t *testing.T) {
	if _, err := NewTokenCodec(nil, []byte("x"), "i", "a", time.Minute, time.Hour); err != ErrConfig {
		t.Errorf("missing access secret: want ErrConfig, got %v", err)
	}
	if _, err := NewTokenCodec([]byte("x"), nil, "i", "a", time.Minute, time.Hour); err != ErrConfig {
		t.Errorf("missing refresh secret: want ErrConfig, got %v", err)
	}
}
