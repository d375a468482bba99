package principal

import (
	"context"
	"strings"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleHost     Role = "host"
	RoleTraveler Role = "traveler"
)

// Principal is the authenticated caller attached to a request context.
type Principal struct {
	ID    string
	Roles []Role
}

func (p Principal) HasRole(role Role) bool {
	want := Role(strings.ToLower(strings.TrimSpace(string(role))))
	if want == "" {
		return false
	}
	for _, r := range p.Roles {
		if Role(strings.ToLower(string(r))) == want {
			return true
		}
	}
	return false
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
