package middleware

import (
	"context"
	"errors"

	"sawa/internal/app/principal"
)

var (
	ErrUnauthenticated = errors.New("middleware: authentication required")
	ErrForbidden       = errors.New("middleware: insufficient permissions")
)

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// RoleRestricted is implemented by messages that only some callers may send.
type RoleRestricted interface {
	RequiredRoles() []principal.Role
}

// RoleAuthorizer admits a restricted message when the caller holds any of its roles.
// Admins pass every check.
type RoleAuthorizer struct{}

func (RoleAuthorizer) Authorize(ctx context.Context, message any) error {
	restricted, ok := message.(RoleRestricted)
	if !ok {
		return nil
	}
	roles := restricted.RequiredRoles()
	if len(roles) == 0 {
		return nil
	}
	p, ok := principal.FromContext(ctx)
	if !ok || p.ID == "" {
		return ErrUnauthenticated
	}
	if p.HasRole(principal.RoleAdmin) {
		return nil
	}
	for _, role := range roles {
		if p.HasRole(role) {
			return nil
		}
	}
	return ErrForbidden
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return commandCheck(a.Authorize)
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return queryCheck(a.Authorize)
}
