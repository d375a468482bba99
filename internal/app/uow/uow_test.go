package uow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sawa/internal/domain/cancellation"
	"sawa/internal/domain/commission"
	"sawa/internal/domain/offers"
)

type ctxMarker struct{}

type fakeUnit struct {
	committed   int
	rolledBack  int
	rollbackErr error
	injected    bool
}

func (u *fakeUnit) Profiles() commission.Repository        { return nil }
func (u *fakeUnit) Offers() offers.Repository              { return nil }
func (u *fakeUnit) Cancellations() cancellation.Repository { return nil }
func (u *fakeUnit) Commit(context.Context) error           { u.committed++; return nil }
func (u *fakeUnit) Rollback(context.Context) error         { u.rolledBack++; return u.rollbackErr }

func (u *fakeUnit) InjectContext(ctx context.Context) context.Context {
	u.injected = true
	return context.WithValue(ctx, ctxMarker{}, true)
}

type fakeFactory struct {
	unit   *fakeUnit
	begins int
	opts   TxOptions
}

func (f *fakeFactory) Begin(_ context.Context, opts TxOptions) (UnitOfWork, error) {
	f.begins++
	f.opts = opts
	return f.unit, nil
}

func TestRun_CommitsOnSuccess(t *testing.T) {
	factory := &fakeFactory{unit: &fakeUnit{}}
	err := Run(context.Background(), factory, TxOptions{ReadOnly: true}, func(ctx context.Context, unit UnitOfWork) error {
		inCtx, ok := FromContext(ctx)
		require.True(t, ok)
		assert.Same(t, unit, inCtx)
		assert.Equal(t, true, ctx.Value(ctxMarker{}))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, factory.unit.committed)
	assert.True(t, factory.unit.injected)
	assert.True(t, factory.opts.ReadOnly)
}

func TestRun_RollsBackAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	rbErr := errors.New("rollback failed")
	factory := &fakeFactory{unit: &fakeUnit{rollbackErr: rbErr}}

	err := Run(context.Background(), factory, TxOptions{}, func(context.Context, UnitOfWork) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, rbErr)
	assert.Zero(t, factory.unit.committed)
	assert.Equal(t, 1, factory.unit.rolledBack)
}

func TestRun_ReusesUnitFromContext(t *testing.T) {
	outer := &fakeUnit{}
	ctx := ContextWithUnitOfWork(context.Background(), outer)
	factory := &fakeFactory{unit: &fakeUnit{}}

	err := Run(ctx, factory, TxOptions{}, func(_ context.Context, unit UnitOfWork) error {
		assert.Same(t, outer, unit)
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, factory.begins)
	assert.Zero(t, outer.committed)
}

func TestRun_WithoutFactory(t *testing.T) {
	err := Run(context.Background(), nil, TxOptions{}, func(context.Context, UnitOfWork) error { return nil })
	assert.ErrorIs(t, err, ErrUnitOfWorkMissing)
}
