package security

import (
	"errors"
	"fmt"
	"strings"

	"sawa/internal/app/principal"
)

var (
	ErrKeyUnknown   = errors.New("security: unknown api key")
	ErrKeyMalformed = errors.New("security: malformed api key")
)

// Presented keys look like "<id>.<secret>"; only the bcrypt hash of the secret is configured.
const keySeparator = "."

type apiKey struct {
	id    string
	roles []principal.Role
	hash  string
}

// Keyring verifies bearer API keys against the API_KEYS configuration.
type Keyring struct {
	hasher BcryptHasher
	keys   map[string]apiKey
}

// ParseKeyring reads comma separated "id:role1|role2:bcrypt-hash" entries.
func ParseKeyring(raw string) (*Keyring, error) {
	ring := &Keyring{keys: make(map[string]apiKey)}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
			return nil, fmt.Errorf("%w: entry %q", ErrKeyMalformed, truncate(entry))
		}
		id := strings.TrimSpace(parts[0])
		if strings.Contains(id, keySeparator) {
			return nil, fmt.Errorf("%w: id %q must not contain %q", ErrKeyMalformed, id, keySeparator)
		}
		if _, dup := ring.keys[id]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrKeyMalformed, id)
		}
		var roles []principal.Role
		for _, r := range strings.Split(parts[1], "|") {
			if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
				roles = append(roles, principal.Role(r))
			}
		}
		ring.keys[id] = apiKey{id: id, roles: roles, hash: strings.TrimSpace(parts[2])}
	}
	return ring, nil
}

func (k *Keyring) Len() int {
	if k == nil {
		return 0
	}
	return len(k.keys)
}

// Resolve returns the principal owning token.
func (k *Keyring) Resolve(token string) (principal.Principal, error) {
	if k == nil {
		return principal.Principal{}, ErrKeyUnknown
	}
	id, secret, ok := strings.Cut(strings.TrimSpace(token), keySeparator)
	if !ok || id == "" || secret == "" {
		return principal.Principal{}, ErrKeyMalformed
	}
	key, found := k.keys[id]
	if !found {
		return principal.Principal{}, ErrKeyUnknown
	}
	if !k.hasher.Matches(key.hash, secret) {
		return principal.Principal{}, ErrKeyUnknown
	}
	roles := make([]principal.Role, len(key.roles))
	copy(roles, key.roles)
	return principal.Principal{ID: key.id, Roles: roles}, nil
}

// Issue creates a fresh key for id and returns the bearer token together with
// the configuration entry that admits it.
func Issue(id string, roles []principal.Role, gen SecretGenerator, hasher BcryptHasher) (token, entry string, err error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, keySeparator+":,") {
		return "", "", fmt.Errorf("%w: invalid id %q", ErrKeyMalformed, id)
	}
	secret, err := gen.Secret()
	if err != nil {
		return "", "", err
	}
	hash, err := hasher.Hash(secret)
	if err != nil {
		return "", "", err
	}
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, string(r))
	}
	return id + keySeparator + secret, id + ":" + strings.Join(names, "|") + ":" + hash, nil
}

func truncate(s string) string {
	if len(s) > 12 {
		return s[:12] + "..."
	}
	return s
}
