package pricing

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sawa/internal/app/validation"
	"sawa/internal/domain/commission"
	"sawa/internal/infra/storage/memory"
)

func TestPreviewHandler_NeverFails(t *testing.T) {
	cases := []struct {
		name  string
		query PreviewQuery
		total float64
	}{
		{name: "numeric strings", query: PreviewQuery{HostType: "Office", BasePrice: "100", Sawa: "20", Office: "5"}, total: 125},
		{name: "json numbers", query: PreviewQuery{HostType: "freelancer", BasePrice: json.Number("200")}, total: 270},
		{name: "garbage price", query: PreviewQuery{HostType: "office", BasePrice: "abc"}, total: 0},
		{name: "negative price", query: PreviewQuery{HostType: "office", BasePrice: -10.0}, total: 0},
		{name: "nan", query: PreviewQuery{BasePrice: math.NaN()}, total: 0},
		{name: "unknown host type", query: PreviewQuery{HostType: "palace", BasePrice: 100}, total: 135},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := PreviewHandler{}.Handle(context.Background(), tc.query)
			require.NoError(t, err)
			assert.Equal(t, tc.total, got.TotalPrice)
		})
	}
}

func TestQuoteQuery_Strict(t *testing.T) {
	q := QuoteQuery{HostType: "palace", BasePrice: 100}
	assert.ErrorIs(t, q.Validate(), validation.ErrInvalid)

	got, err := QuoteHandler{}.Handle(context.Background(), QuoteQuery{HostType: "office", BasePrice: 100, Overrides: commission.Overrides{Sawa: commission.Percent(0)}})
	require.NoError(t, err)
	assert.Equal(t, 107.0, got.TotalPrice)
}

func TestHostQuoteHandler(t *testing.T) {
	factory := memory.Factory{
		ProfilesRepo:      memory.NewProfileRepository(),
		OffersRepo:        memory.NewOfferRepository(),
		CancellationsRepo: memory.NewCancellationRepository(),
	}
	profile, err := commission.NewProfile("host-1", commission.HostFreelancer, time.Now())
	require.NoError(t, err)
	require.NoError(t, profile.SetCommission(commission.HostFreelancer, commission.Overrides{Sawa: commission.Percent(12.5)}, "admin", time.Now()))
	require.NoError(t, factory.ProfilesRepo.Save(context.Background(), profile))

	h := &HostQuoteHandler{UoWFactory: factory}
	got, err := h.Handle(context.Background(), HostQuoteQuery{HostID: " host-1 ", BasePrice: 80})
	require.NoError(t, err)
	assert.Equal(t, "host-1", got.HostID)
	assert.Equal(t, 10.0, got.Breakdown.PlatformFeeAmount)
	assert.Equal(t, 90.0, got.Breakdown.TotalPrice)

	_, err = h.Handle(context.Background(), HostQuoteQuery{HostID: "nobody", BasePrice: 80})
	assert.ErrorIs(t, err, commission.ErrProfileNotFound)

	assert.ErrorIs(t, HostQuoteQuery{BasePrice: -1}.Validate(), validation.ErrInvalid)
	assert.ErrorIs(t, HostQuoteQuery{HostID: "host-1", BasePrice: math.Inf(1)}.Validate(), validation.ErrInvalid)
	assert.NoError(t, HostQuoteQuery{HostID: "host-1", BasePrice: 0}.Validate())
}
