package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"sawa/internal/app/principal"
)

func TestIssueAndResolve(t *testing.T) {
	hasher := BcryptHasher{Cost: bcrypt.MinCost}
	token, entry, err := Issue("ops", []principal.Role{principal.RoleAdmin, principal.RoleHost}, SecretGenerator{}, hasher)
	require.NoError(t, err)

	ring, err := ParseKeyring(" " + entry + " ,")
	require.NoError(t, err)
	assert.Equal(t, 1, ring.Len())

	p, err := ring.Resolve(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", p.ID)
	assert.True(t, p.HasRole(principal.RoleAdmin))
	assert.True(t, p.HasRole(principal.RoleHost))
	assert.False(t, p.HasRole(principal.RoleTraveler))

	_, err = ring.Resolve("ops.wrong")
	assert.ErrorIs(t, err, ErrKeyUnknown)
	_, err = ring.Resolve("ghost." + token)
	assert.ErrorIs(t, err, ErrKeyUnknown)
	_, err = ring.Resolve("no-separator")
	assert.ErrorIs(t, err, ErrKeyMalformed)
}

func TestParseKeyring_Errors(t *testing.T) {
	for _, raw := range []string{"justid", "a::", "a.b:admin:hash", "a:admin:h1,a:host:h2"} {
		_, err := ParseKeyring(raw)
		assert.ErrorIs(t, err, ErrKeyMalformed, raw)
	}
	ring, err := ParseKeyring("")
	require.NoError(t, err)
	assert.Zero(t, ring.Len())
}

func TestIssue_RejectsBadID(t *testing.T) {
	_, _, err := Issue("a:b", nil, SecretGenerator{}, BcryptHasher{Cost: bcrypt.MinCost})
	assert.ErrorIs(t, err, ErrKeyMalformed)
}

func TestSecretGenerator_Length(t *testing.T) {
	s, err := SecretGenerator{Bytes: 6}.Secret()
	require.NoError(t, err)
	assert.Len(t, s, 8)

	other, err := SecretGenerator{}.Secret()
	require.NoError(t, err)
	assert.Len(t, other, 43)
	assert.NotEqual(t, s, other)

	assert.False(t, BcryptHasher{}.Matches("not-a-hash", "secret"))
}
