package offers

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sawa/internal/app/middleware"
	"sawa/internal/app/principal"
	"sawa/internal/domain/commission"
	domain "sawa/internal/domain/offers"
	"sawa/internal/infra/storage/memory"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newFactory() memory.Factory {
	return memory.Factory{
		ProfilesRepo:      memory.NewProfileRepository(),
		OffersRepo:        memory.NewOfferRepository(),
		CancellationsRepo: memory.NewCancellationRepository(),
		Outbox:            memory.NewOutbox(),
	}
}

func as(id string, roles ...principal.Role) context.Context {
	return principal.WithPrincipal(context.Background(), principal.Principal{ID: id, Roles: roles})
}

func sequence(ids ...string) func() string {
	i := 0
	return func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}
}

func TestCreateOffer_UsesStoredProfile(t *testing.T) {
	factory := newFactory()
	profile, err := commission.NewProfile("host-1", commission.HostOffice, now)
	require.NoError(t, err)
	require.NoError(t, profile.SetCommission(commission.HostOffice, commission.Overrides{Sawa: commission.Percent(10)}, "admin", now))
	require.NoError(t, factory.ProfilesRepo.Save(context.Background(), profile))

	h := &CreateOfferHandler{UoWFactory: factory, Outbox: factory.Outbox, Now: func() time.Time { return now }, IDGenerator: sequence("o-1")}
	got, err := h.Handle(as("host-1", principal.RoleHost), CreateOfferCommand{
		HostID:     "host-1",
		HostType:   "freelancer",
		TravelerID: "traveler-1",
		BasePrice:  100,
	})
	require.NoError(t, err)
	assert.Equal(t, "o-1", got.ID)
	assert.Equal(t, commission.HostOffice, got.Breakdown.HostType)
	assert.Equal(t, 117.0, got.Breakdown.TotalPrice)

	entries := factory.Outbox.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.EventCreated, entries[0].Name)
}

func TestCreateOffer_WithoutProfile(t *testing.T) {
	factory := newFactory()
	h := &CreateOfferHandler{UoWFactory: factory, Outbox: factory.Outbox, Now: func() time.Time { return now }}
	ctx := as("host-9", principal.RoleHost)

	_, err := h.Handle(ctx, CreateOfferCommand{HostID: "host-9", TravelerID: "t", BasePrice: 50})
	assert.ErrorIs(t, err, commission.ErrProfileNotFound)

	got, err := h.Handle(ctx, CreateOfferCommand{HostID: "host-9", HostType: "agency", TravelerID: "t", BasePrice: 100})
	require.NoError(t, err)
	assert.Equal(t, 135.0, got.Breakdown.TotalPrice)

	_, err = factory.ProfilesRepo.ByHostID(context.Background(), "host-9")
	assert.ErrorIs(t, err, commission.ErrProfileNotFound, "fallback schedule is not persisted")
}

func TestCreateOffer_Ownership(t *testing.T) {
	factory := newFactory()
	h := &CreateOfferHandler{UoWFactory: factory}
	cmd := CreateOfferCommand{HostID: "host-1", HostType: "office", TravelerID: "t", BasePrice: 10}

	_, err := h.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, middleware.ErrUnauthenticated)

	_, err = h.Handle(as("host-2", principal.RoleHost), cmd)
	assert.ErrorIs(t, err, domain.ErrOfferNotOwned)

	_, err = h.Handle(as("ops", principal.RoleAdmin), cmd)
	assert.NoError(t, err)
}

func TestCreateOfferCommand_Validate(t *testing.T) {
	err := CreateOfferCommand{HostType: "castle", BasePrice: -1}.Validate()
	require.Error(t, err)
	for _, field := range []string{"hostId", "travelerId", "basePrice", "hostType"} {
		assert.Contains(t, err.Error(), field)
	}
	assert.NoError(t, CreateOfferCommand{HostID: "h", TravelerID: "t", BasePrice: 1}.Validate())

	for _, price := range []float64{math.Inf(1), math.NaN(), 0} {
		err := CreateOfferCommand{HostID: "h", TravelerID: "t", BasePrice: price}.Validate()
		require.Error(t, err, "price %v", price)
		assert.Contains(t, err.Error(), "basePrice")
	}
}

func TestWithdrawAndQueries(t *testing.T) {
	factory := newFactory()
	create := &CreateOfferHandler{UoWFactory: factory, Outbox: factory.Outbox, Now: func() time.Time { return now }, IDGenerator: sequence("o-1", "o-2")}
	host := as("host-1", principal.RoleHost)
	for i := 0; i < 2; i++ {
		_, err := create.Handle(host, CreateOfferCommand{HostID: "host-1", HostType: "office", TravelerID: "t", BasePrice: 100})
		require.NoError(t, err)
	}

	withdraw := &WithdrawOfferHandler{UoWFactory: factory, Outbox: factory.Outbox, Now: func() time.Time { return now.Add(time.Hour) }}
	_, err := withdraw.Handle(as("host-2", principal.RoleHost), WithdrawOfferCommand{OfferID: "o-1"})
	assert.ErrorIs(t, err, domain.ErrOfferNotOwned)

	got, err := withdraw.Handle(as("ops", principal.RoleAdmin), WithdrawOfferCommand{OfferID: "o-1"})
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusWithdrawn), got.Status)

	_, err = withdraw.Handle(host, WithdrawOfferCommand{OfferID: "missing"})
	assert.ErrorIs(t, err, domain.ErrOfferNotFound)

	one, err := (&GetOfferHandler{UoWFactory: factory}).Handle(context.Background(), GetOfferQuery{OfferID: "o-2"})
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusPending), one.Status)

	list, err := (&ListHostOffersHandler{UoWFactory: factory}).Handle(context.Background(), ListHostOffersQuery{HostID: "host-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)

	assert.Len(t, factory.Outbox.Entries(), 3)
}
