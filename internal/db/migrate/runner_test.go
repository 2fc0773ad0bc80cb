package migrate

import (
	"strings"
	"testing"
)

func TestParseDirection(t *testing.T) {
	if d, err := ParseDirection("up"); err != nil || d != Up {
		t.Errorf("ParseDirection(up) = %q, %v", d, err)
	}
	if d, err := ParseDirection("down"); err != nil || d != Down {
		t.Errorf("ParseDirection(down) = %q, %v", d, err)
	}
	for _, s := range []string{"", "sideways", "UP", "Down"} {
		if _, err := ParseDirection(s); err == nil {
			t.Errorf("ParseDirection(%q) should return error", s)
		}
	}
}

func TestRun_EmptyDSN(t *testing.T) {
	err := Run("", Up)
	if err == nil {
		t.Fatal("Run with empty DSN should return error")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("error = %q, should name DATABASE_URL", err)
	}
}

func TestRun_InvalidDirection(t *testing.T) {
	if err := Run("postgres://localhost/cartshare", Direction("sideways")); err == nil {
		t.Error("Run with a bogus direction should return error")
	}
}

func TestRun_InvalidDSN(t *testing.T) {
	for _, dsn := range []string{"not-a-dsn", "://localhost/cartshare", "   "} {
		if err := Run(dsn, Up); err == nil {
			t.Errorf("Run with DSN %q should return error", dsn)
		}
	}
}
