// Package uow scopes the commission, offer and cancellation repositories
// of a single command to one transaction.
package uow

import (
	"context"
	"errors"

	"sawa/internal/domain/cancellation"
	"sawa/internal/domain/commission"
	"sawa/internal/domain/offers"
)

var ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")

type UnitOfWork interface {
	Profiles() commission.Repository
	Offers() offers.Repository
	Cancellations() cancellation.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}

// contextInjector is implemented by units that carry a driver session which
// repositories read from ctx.
type contextInjector interface {
	InjectContext(ctx context.Context) context.Context
}

type unitKey struct{}

func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, unitKey{}, unit)
}

func FromContext(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(unitKey{}).(UnitOfWork)
	return unit, ok
}

// Run calls fn with the unit already in ctx. Without one it begins a unit,
// commits it when fn succeeds and rolls it back otherwise.
func Run(ctx context.Context, factory UoWFactory, opts TxOptions, fn func(ctx context.Context, unit UnitOfWork) error) error {
	if unit, ok := FromContext(ctx); ok {
		return fn(ctx, unit)
	}
	if factory == nil {
		return ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, opts)
	if err != nil {
		return err
	}
	if inj, ok := unit.(contextInjector); ok {
		ctx = inj.InjectContext(ctx)
	}
	ctx = ContextWithUnitOfWork(ctx, unit)
	if err := fn(ctx, unit); err != nil {
		return errors.Join(err, unit.Rollback(ctx))
	}
	return unit.Commit(ctx)
}
