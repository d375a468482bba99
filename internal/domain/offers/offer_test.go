package offers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sawa/internal/domain/commission"
)

func officeProfile(t *testing.T) *commission.HostCommissionProfile {
	t.Helper()
	p, err := commission.NewProfile("host-1", commission.HostOffice, time.Now())
	require.NoError(t, err)
	return p
}

func TestNewOffer_FreezesBreakdown(t *testing.T) {
	profile := officeProfile(t)
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	offer, err := NewOffer(CreateParams{
		ID:         "offer-1",
		Profile:    profile,
		TravelerID: "traveler-1",
		BasePrice:  100,
		Now:        now,
	})
	require.NoError(t, err)
	assert.Equal(t, 135.0, offer.Breakdown.TotalPrice)
	assert.Equal(t, "SAR", offer.Currency)
	assert.Equal(t, StatusPending, offer.Status)

	require.NoError(t, profile.SetCommission(commission.HostOffice, commission.Overrides{Sawa: commission.Percent(10)}, "admin", now))
	assert.Equal(t, 135.0, offer.Breakdown.TotalPrice)

	evs := offer.Drain()
	require.Len(t, evs, 1)
	created, ok := evs[0].(Created)
	require.True(t, ok)
	assert.Equal(t, "offer-1", created.AggregateID())
	assert.Equal(t, 28.0, created.Breakdown.PlatformFeeAmount)
}

func TestNewOffer_Validation(t *testing.T) {
	profile := officeProfile(t)
	_, err := NewOffer(CreateParams{TravelerID: "t", BasePrice: 10})
	assert.ErrorIs(t, err, ErrHostRequired)

	_, err = NewOffer(CreateParams{Profile: profile, BasePrice: 10})
	assert.ErrorIs(t, err, ErrTravelerRequired)

	_, err = NewOffer(CreateParams{Profile: profile, TravelerID: "t", BasePrice: 0})
	assert.ErrorIs(t, err, ErrInvalidBasePrice)

	_, err = NewOffer(CreateParams{Profile: profile, TravelerID: "t", BasePrice: 10, Currency: "dollars"})
	assert.ErrorIs(t, err, ErrUnsupportedCurrency)
}

func TestOffer_Withdraw(t *testing.T) {
	offer, err := NewOffer(CreateParams{ID: "o", Profile: officeProfile(t), TravelerID: "t", BasePrice: 10, Now: time.Now()})
	require.NoError(t, err)
	offer.ClearEvents()

	assert.ErrorIs(t, offer.Withdraw("someone-else", time.Now()), ErrOfferNotOwned)
	require.NoError(t, offer.Withdraw("host-1", time.Now()))
	assert.Equal(t, StatusWithdrawn, offer.Status)
	assert.ErrorIs(t, offer.Withdraw("host-1", time.Now()), ErrInvalidState)

	evs := offer.Drain()
	require.Len(t, evs, 1)
	assert.Equal(t, EventWithdrawn, evs[0].EventName())
}
