package security

import "golang.org/x/crypto/bcrypt"

// DefaultHashCost is the bcrypt cost used when the configured value is out of
// range. Cost 12 keeps interactive login comfortably under 100ms.
const DefaultHashCost = 12

// Hasher derives and verifies bcrypt credential hashes. The rest of the
// service treats the stored hash as opaque; only this type sees plaintext.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher, clamping out-of-range costs to DefaultHashCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultHashCost
	}
	return &Hasher{Cost: cost}
}

// Hash derives a storable hash from password.
func (h *Hasher) Hash(password []byte) (string, error) {
	b, err := bcrypt.GenerateFromPassword(password, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare verifies password against a stored hash in constant time. A non-nil
// error means mismatch or a malformed stored hash; callers fold both into
// their invalid-credentials path.
func (h *Hasher) Compare(hash string, password []byte) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), password)
}
