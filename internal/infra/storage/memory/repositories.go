package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"sawa/internal/domain/cancellation"
	"sawa/internal/domain/commission"
	"sawa/internal/domain/offers"
)

// Repositories hand out copies so callers never share state with the store.

type ProfileRepository struct {
	mu    sync.RWMutex
	items map[string]*commission.HostCommissionProfile
}

func NewProfileRepository() *ProfileRepository {
	return &ProfileRepository{items: make(map[string]*commission.HostCommissionProfile)}
}

func (r *ProfileRepository) ByHostID(_ context.Context, hostID string) (*commission.HostCommissionProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[strings.TrimSpace(hostID)]
	if !ok {
		return nil, commission.ErrProfileNotFound
	}
	return cloneProfile(p), nil
}

func (r *ProfileRepository) Save(_ context.Context, p *commission.HostCommissionProfile) error {
	stored := cloneProfile(p)
	stored.Version = p.Version + 1
	if err := r.put(stored, p.Version); err != nil {
		return err
	}
	p.Version = stored.Version
	return nil
}

func (r *ProfileRepository) put(p *commission.HostCommissionProfile, expected int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[p.HostID]
	if (ok && current.Version != expected) || (!ok && expected != 0) {
		return commission.ErrConcurrentUpdate
	}
	r.items[p.HostID] = p
	return nil
}

type OfferRepository struct {
	mu    sync.RWMutex
	items map[offers.OfferID]*offers.Offer
}

func NewOfferRepository() *OfferRepository {
	return &OfferRepository{items: make(map[offers.OfferID]*offers.Offer)}
}

func (r *OfferRepository) ByID(_ context.Context, id offers.OfferID) (*offers.Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.items[id]
	if !ok {
		return nil, offers.ErrOfferNotFound
	}
	return cloneOffer(o), nil
}

func (r *OfferRepository) Save(_ context.Context, o *offers.Offer) error {
	stored := cloneOffer(o)
	stored.Version = o.Version + 1
	if err := r.put(stored, o.Version); err != nil {
		return err
	}
	o.Version = stored.Version
	return nil
}

func (r *OfferRepository) put(o *offers.Offer, expected int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[o.ID]
	if (ok && current.Version != expected) || (!ok && expected != 0) {
		return offers.ErrConcurrentUpdate
	}
	r.items[o.ID] = o
	return nil
}

// ListByHost returns the host's offers, newest first.
func (r *OfferRepository) ListByHost(ctx context.Context, hostID string) ([]*offers.Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*offers.Offer, 0)
	for _, o := range r.items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if o.HostID == hostID {
			out = append(out, cloneOffer(o))
		}
	}
	sortOffers(out)
	return out, nil
}

func sortOffers(list []*offers.Offer) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

type CancellationRepository struct {
	mu    sync.RWMutex
	items map[string]*cancellation.Record
}

func NewCancellationRepository() *CancellationRepository {
	return &CancellationRepository{items: make(map[string]*cancellation.Record)}
}

func (r *CancellationRepository) ByBookingID(_ context.Context, bookingID string) (*cancellation.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.items[strings.TrimSpace(bookingID)]
	if !ok {
		return nil, cancellation.ErrRecordNotFound
	}
	return cloneRecord(rec), nil
}

// Save inserts rec. A booking can only be cancelled once.
func (r *CancellationRepository) Save(_ context.Context, rec *cancellation.Record) error {
	return r.put(cloneRecord(rec))
}

func (r *CancellationRepository) put(rec *cancellation.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[rec.BookingID]; exists {
		return cancellation.ErrAlreadyCancelled
	}
	r.items[rec.BookingID] = rec
	return nil
}

func cloneProfile(p *commission.HostCommissionProfile) *commission.HostCommissionProfile {
	return &commission.HostCommissionProfile{
		HostID:    p.HostID,
		HostType:  p.HostType,
		Overrides: cloneOverrides(p.Overrides),
		UpdatedBy: p.UpdatedBy,
		UpdatedAt: p.UpdatedAt,
		Version:   p.Version,
	}
}

func cloneOverrides(o commission.Overrides) commission.Overrides {
	var out commission.Overrides
	if o.Sawa != nil {
		out.Sawa = commission.Percent(*o.Sawa)
	}
	if o.Office != nil {
		out.Office = commission.Percent(*o.Office)
	}
	return out
}

func cloneOffer(o *offers.Offer) *offers.Offer {
	return &offers.Offer{
		ID:         o.ID,
		HostID:     o.HostID,
		TravelerID: o.TravelerID,
		RequestID:  o.RequestID,
		Currency:   o.Currency,
		Note:       o.Note,
		Breakdown:  o.Breakdown,
		Status:     o.Status,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
		Version:    o.Version,
	}
}

func cloneRecord(r *cancellation.Record) *cancellation.Record {
	return &cancellation.Record{
		ID:          r.ID,
		BookingID:   r.BookingID,
		Actor:       r.Actor,
		ActorID:     r.ActorID,
		Reason:      r.Reason,
		Note:        r.Note,
		Policy:      r.Policy,
		Booking:     r.Booking,
		Refund:      r.Refund,
		CancelledAt: r.CancelledAt,
	}
}

var (
	_ commission.Repository   = (*ProfileRepository)(nil)
	_ offers.Repository       = (*OfferRepository)(nil)
	_ cancellation.Repository = (*CancellationRepository)(nil)
)
