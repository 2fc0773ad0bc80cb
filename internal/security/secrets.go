package security

import (
	"errors"
	"os"
	"strings"
)

// ErrInvalidSecret is returned when a signing secret is empty or unreadable.
var ErrInvalidSecret = errors.New("invalid signing secret")

// LoadSecret returns the signing secret from s, which is either the secret
// itself or a path to a file holding it. A value containing a path separator
// or starting with "." is treated as a path; anything else is used inline.
// Trailing whitespace is stripped so key files may end with a newline.
func LoadSecret(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidSecret
	}
	if strings.ContainsAny(s, "/\\") || strings.HasPrefix(s, ".") {
		b, err := os.ReadFile(s)
		if err != nil {
			return nil, err
		}
		b = []byte(strings.TrimSpace(string(b)))
		if len(b) == 0 {
			return nil, ErrInvalidSecret
		}
		return b, nil
	}
	return []byte(s), nil
}
