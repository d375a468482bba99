package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const defaultSecretBytes = 32

// SecretGenerator produces the random half of an API key.
type SecretGenerator struct {
	Bytes int
}

func (g SecretGenerator) Secret() (string, error) {
	n := g.Bytes
	if n <= 0 {
		n = defaultSecretBytes
	}
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("security: read entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// BcryptHasher stores only bcrypt hashes of API key secrets. Costs below
// bcrypt.MinCost fall back to bcrypt.DefaultCost.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(secret string) (string, error) {
	cost := h.Cost
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	sum, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", fmt.Errorf("security: hash secret: %w", err)
	}
	return string(sum), nil
}

// Matches reports whether secret hashes to hash. Malformed hashes never match.
func (BcryptHasher) Matches(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
