package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"sawa/internal/app/uow"
	"sawa/internal/domain/cancellation"
	"sawa/internal/domain/commission"
	"sawa/internal/domain/offers"
)

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

var ErrUnitFinished = errors.New("memory: unit of work already finished")

// Factory wires in-memory repositories into a unit-of-work boundary. Writes
// are staged on the unit and applied on Commit; Rollback drops them along
// with any outbox entries added under the unit.
type Factory struct {
	ProfilesRepo      *ProfileRepository
	OffersRepo        *OfferRepository
	CancellationsRepo *CancellationRepository
	Outbox            *Outbox
}

func (f Factory) Begin(_ context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.ProfilesRepo == nil || f.OffersRepo == nil || f.CancellationsRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		readOnly:      opts.ReadOnly,
		outbox:        f.Outbox,
		profiles:      &stagedProfiles{base: f.ProfilesRepo, pending: map[string]stagedProfile{}},
		offers:        &stagedOffers{base: f.OffersRepo, pending: map[offers.OfferID]stagedOffer{}},
		cancellations: &stagedCancellations{base: f.CancellationsRepo, pending: map[string]*cancellation.Record{}},
	}, nil
}

// Unit is a uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	mu       sync.Mutex
	readOnly bool
	finished bool
	outbox   *Outbox
	events   []eventEntry

	profiles      *stagedProfiles
	offers        *stagedOffers
	cancellations *stagedCancellations
}

func (u *Unit) Profiles() commission.Repository        { return u.profiles }
func (u *Unit) Offers() offers.Repository              { return u.offers }
func (u *Unit) Cancellations() cancellation.Repository { return u.cancellations }

func (u *Unit) stageEvent(e eventEntry) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.events = append(u.events, e)
}

func (u *Unit) Commit(context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.finished {
		return ErrUnitFinished
	}
	u.finished = true
	if u.readOnly {
		return nil
	}
	if err := u.profiles.commit(); err != nil {
		return err
	}
	if err := u.offers.commit(); err != nil {
		return err
	}
	if err := u.cancellations.commit(); err != nil {
		return err
	}
	if u.outbox != nil {
		u.outbox.append(u.events...)
	}
	return nil
}

func (u *Unit) Rollback(context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.finished = true
	u.events = nil
	return nil
}

type stagedProfile struct {
	value    *commission.HostCommissionProfile
	expected int64
}

type stagedProfiles struct {
	base    *ProfileRepository
	pending map[string]stagedProfile
	order   []string
}

func (s *stagedProfiles) ByHostID(ctx context.Context, hostID string) (*commission.HostCommissionProfile, error) {
	if st, ok := s.pending[strings.TrimSpace(hostID)]; ok {
		return cloneProfile(st.value), nil
	}
	return s.base.ByHostID(ctx, hostID)
}

func (s *stagedProfiles) Save(ctx context.Context, p *commission.HostCommissionProfile) error {
	current, err := s.ByHostID(ctx, p.HostID)
	switch {
	case errors.Is(err, commission.ErrProfileNotFound):
		if p.Version != 0 {
			return commission.ErrConcurrentUpdate
		}
	case err != nil:
		return err
	case current.Version != p.Version:
		return commission.ErrConcurrentUpdate
	}
	expected := p.Version
	if prev, ok := s.pending[p.HostID]; ok {
		expected = prev.expected
	} else {
		s.order = append(s.order, p.HostID)
	}
	stored := cloneProfile(p)
	stored.Version = p.Version + 1
	s.pending[p.HostID] = stagedProfile{value: stored, expected: expected}
	p.Version = stored.Version
	return nil
}

func (s *stagedProfiles) commit() error {
	for _, id := range s.order {
		st := s.pending[id]
		if err := s.base.put(st.value, st.expected); err != nil {
			return err
		}
	}
	return nil
}

type stagedOffer struct {
	value    *offers.Offer
	expected int64
}

type stagedOffers struct {
	base    *OfferRepository
	pending map[offers.OfferID]stagedOffer
	order   []offers.OfferID
}

func (s *stagedOffers) ByID(ctx context.Context, id offers.OfferID) (*offers.Offer, error) {
	if st, ok := s.pending[id]; ok {
		return cloneOffer(st.value), nil
	}
	return s.base.ByID(ctx, id)
}

func (s *stagedOffers) Save(ctx context.Context, o *offers.Offer) error {
	current, err := s.ByID(ctx, o.ID)
	switch {
	case errors.Is(err, offers.ErrOfferNotFound):
		if o.Version != 0 {
			return offers.ErrConcurrentUpdate
		}
	case err != nil:
		return err
	case current.Version != o.Version:
		return offers.ErrConcurrentUpdate
	}
	expected := o.Version
	if prev, ok := s.pending[o.ID]; ok {
		expected = prev.expected
	} else {
		s.order = append(s.order, o.ID)
	}
	stored := cloneOffer(o)
	stored.Version = o.Version + 1
	s.pending[o.ID] = stagedOffer{value: stored, expected: expected}
	o.Version = stored.Version
	return nil
}

func (s *stagedOffers) ListByHost(ctx context.Context, hostID string) ([]*offers.Offer, error) {
	committed, err := s.base.ListByHost(ctx, hostID)
	if err != nil {
		return nil, err
	}
	out := make([]*offers.Offer, 0, len(committed)+len(s.pending))
	for _, o := range committed {
		if _, shadowed := s.pending[o.ID]; !shadowed {
			out = append(out, o)
		}
	}
	for _, st := range s.pending {
		if st.value.HostID == hostID {
			out = append(out, cloneOffer(st.value))
		}
	}
	sortOffers(out)
	return out, nil
}

func (s *stagedOffers) commit() error {
	for _, id := range s.order {
		st := s.pending[id]
		if err := s.base.put(st.value, st.expected); err != nil {
			return err
		}
	}
	return nil
}

type stagedCancellations struct {
	base    *CancellationRepository
	pending map[string]*cancellation.Record
	order   []string
}

func (s *stagedCancellations) ByBookingID(ctx context.Context, bookingID string) (*cancellation.Record, error) {
	if rec, ok := s.pending[strings.TrimSpace(bookingID)]; ok {
		return cloneRecord(rec), nil
	}
	return s.base.ByBookingID(ctx, bookingID)
}

func (s *stagedCancellations) Save(ctx context.Context, rec *cancellation.Record) error {
	_, err := s.ByBookingID(ctx, rec.BookingID)
	if err == nil {
		return cancellation.ErrAlreadyCancelled
	}
	if !errors.Is(err, cancellation.ErrRecordNotFound) {
		return err
	}
	s.pending[rec.BookingID] = cloneRecord(rec)
	s.order = append(s.order, rec.BookingID)
	return nil
}

func (s *stagedCancellations) commit() error {
	for _, id := range s.order {
		if err := s.base.put(s.pending[id]); err != nil {
			return err
		}
	}
	return nil
}

var _ uow.UoWFactory = Factory{}
