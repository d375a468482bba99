package offers

import (
	"context"
	"errors"
	"strings"
	"time"

	"sawa/internal/domain/commission"
	"sawa/internal/domain/shared/events"
)

var (
	ErrOfferNotFound       = errors.New("offers: offer not found")
	ErrHostRequired        = errors.New("offers: host id required")
	ErrTravelerRequired    = errors.New("offers: traveler id required")
	ErrInvalidBasePrice    = errors.New("offers: base price must be positive")
	ErrInvalidState        = errors.New("offers: invalid state transition")
	ErrOfferNotOwned       = errors.New("offers: offer does not belong to caller")
	ErrConcurrentUpdate    = errors.New("offers: concurrent update detected")
	ErrUnsupportedCurrency = errors.New("offers: currency must be a 3-letter code")
)

type OfferID string

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusWithdrawn Status = "WITHDRAWN"
)

// Offer is a host's priced answer to a traveler request. Its breakdown is
// frozen at creation so later commission changes do not alter it.
type Offer struct {
	ID         OfferID
	HostID     string
	TravelerID string
	RequestID  string
	Currency   string
	Note       string
	Breakdown  commission.PriceBreakdown
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Version    int64
	events.Recorder
}

type Repository interface {
	ByID(ctx context.Context, id OfferID) (*Offer, error)
	Save(ctx context.Context, offer *Offer) error
	ListByHost(ctx context.Context, hostID string) ([]*Offer, error)
}

type CreateParams struct {
	ID         OfferID
	Profile    *commission.HostCommissionProfile
	TravelerID string
	RequestID  string
	BasePrice  float64
	Currency   string
	Note       string
	Now        time.Time
}

func NewOffer(params CreateParams) (*Offer, error) {
	if params.Profile == nil || strings.TrimSpace(params.Profile.HostID) == "" {
		return nil, ErrHostRequired
	}
	if strings.TrimSpace(params.TravelerID) == "" {
		return nil, ErrTravelerRequired
	}
	if !(params.BasePrice > 0) {
		return nil, ErrInvalidBasePrice
	}
	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "SAR"
	}
	if len(currency) != 3 {
		return nil, ErrUnsupportedCurrency
	}
	now := params.Now.UTC()
	o := &Offer{
		ID:         params.ID,
		HostID:     params.Profile.HostID,
		TravelerID: strings.TrimSpace(params.TravelerID),
		RequestID:  strings.TrimSpace(params.RequestID),
		Currency:   currency,
		Note:       strings.TrimSpace(params.Note),
		Breakdown:  params.Profile.Quote(params.BasePrice),
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	o.Record(Created{
		OfferID:    o.ID,
		HostID:     o.HostID,
		TravelerID: o.TravelerID,
		RequestID:  o.RequestID,
		Currency:   o.Currency,
		Breakdown:  o.Breakdown,
		At:         now,
	})
	return o, nil
}

// Withdraw lets the host pull a pending offer.
func (o *Offer) Withdraw(hostID string, now time.Time) error {
	if o.HostID != hostID {
		return ErrOfferNotOwned
	}
	if o.Status != StatusPending {
		return ErrInvalidState
	}
	o.Status = StatusWithdrawn
	o.UpdatedAt = now.UTC()
	o.Record(Withdrawn{OfferID: o.ID, HostID: o.HostID, At: o.UpdatedAt})
	return nil
}

const (
	EventCreated   = "offer.created"
	EventWithdrawn = "offer.withdrawn"
)

type Created struct {
	OfferID    OfferID                   `json:"offer_id"`
	HostID     string                    `json:"host_id"`
	TravelerID string                    `json:"traveler_id"`
	RequestID  string                    `json:"request_id,omitempty"`
	Currency   string                    `json:"currency"`
	Breakdown  commission.PriceBreakdown `json:"breakdown"`
	At         time.Time                 `json:"at"`
}

func (e Created) EventName() string     { return EventCreated }
func (e Created) AggregateID() string   { return string(e.OfferID) }
func (e Created) OccurredAt() time.Time { return e.At }

type Withdrawn struct {
	OfferID OfferID   `json:"offer_id"`
	HostID  string    `json:"host_id"`
	At      time.Time `json:"at"`
}

func (e Withdrawn) EventName() string     { return EventWithdrawn }
func (e Withdrawn) AggregateID() string   { return string(e.OfferID) }
func (e Withdrawn) OccurredAt() time.Time { return e.At }
