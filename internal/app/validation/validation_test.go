package validation

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sawa/internal/domain/cancellation"
	"sawa/internal/domain/commission"
)

func TestCommission_Valid(t *testing.T) {
	res := Commission(CommissionRequest{
		HostType:  "office",
		BasePrice: 200,
		Overrides: commission.Overrides{Sawa: commission.Percent(20), Office: commission.Percent(5)},
	})
	require.True(t, res.Ok())
	assert.Equal(t, 250.0, res.Value.TotalPrice)
}

func TestCommission_RejectsWhatTheCalculatorForgives(t *testing.T) {
	res := Commission(CommissionRequest{
		HostType:  "boutique",
		BasePrice: math.NaN(),
		Overrides: commission.Overrides{Sawa: commission.Percent(140)},
	})
	require.False(t, res.Ok())
	assert.True(t, errors.Is(res.Err, ErrInvalid))

	var fieldErrs Errors
	require.ErrorAs(t, res.Err, &fieldErrs)
	fields := map[string]bool{}
	for _, fe := range fieldErrs {
		fields[fe.Field] = true
	}
	assert.True(t, fields["hostType"])
	assert.True(t, fields["basePrice"])
	assert.True(t, fields["overrides.sawa"])
}

func TestCommission_OfficeOverrideOnFreelancer(t *testing.T) {
	err := CheckCommission(CommissionRequest{
		HostType:  "freelancer",
		BasePrice: 10,
		Overrides: commission.Overrides{Office: commission.Percent(3)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overrides.office")
}

func TestRefund(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	calc := cancellation.Calculator{}

	res := Refund(calc, RefundRequest{TotalPrice: 500, StartDate: "2025-06-11", Policy: "strict"}, now)
	require.True(t, res.Ok())
	value, err := res.Unwrap()
	require.NoError(t, err)
	assert.Equal(t, 250.0, value.RefundAmount)

	bad := Refund(calc, RefundRequest{TotalPrice: -1, StartDate: "tomorrow", Policy: "nonexistent"}, now)
	require.False(t, bad.Ok())
	var fieldErrs Errors
	require.ErrorAs(t, bad.Err, &fieldErrs)
	assert.Len(t, fieldErrs, 3)
}

type selfChecking struct{ err error }

func (s selfChecking) Validate() error { return s.err }

func TestValidator(t *testing.T) {
	v := Validator{}
	assert.NoError(t, v.Validate(context.Background(), struct{}{}))
	assert.NoError(t, v.Validate(context.Background(), selfChecking{}))
	boom := errors.New("boom")
	assert.ErrorIs(t, v.Validate(context.Background(), selfChecking{err: boom}), boom)
}

func TestCheckRefund_EmptyPolicyMeansFallback(t *testing.T) {
	assert.NoError(t, CheckRefund(RefundRequest{TotalPrice: 10, StartDate: "2025-06-11"}, nil))
}
