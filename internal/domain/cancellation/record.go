package cancellation

import (
	"context"
	"errors"
	"strings"
	"time"

	"sawa/internal/domain/shared/events"
)

var (
	ErrRecordNotFound     = errors.New("cancellation: record not found")
	ErrAlreadyCancelled   = errors.New("cancellation: booking already cancelled")
	ErrBookingIDRequired  = errors.New("cancellation: booking id required")
	ErrUnknownActor       = errors.New("cancellation: unknown actor")
	ErrInvalidStartDate   = errors.New("cancellation: start date is not a valid date")
	ErrNegativeTotalPrice = errors.New("cancellation: total price cannot be negative")
)

// Record freezes the refund granted when a booking was cancelled.
type Record struct {
	ID          string
	BookingID   string
	Actor       Actor
	ActorID     string
	Reason      Reason
	Note        string
	Policy      string
	Booking     Booking
	Refund      RefundResult
	CancelledAt time.Time
	events.Recorder
}

type Repository interface {
	ByBookingID(ctx context.Context, bookingID string) (*Record, error)
	Save(ctx context.Context, record *Record) error
}

type RecordParams struct {
	ID        string
	BookingID string
	Actor     Actor
	ActorID   string
	Reason    string
	Note      string
	Policy    string
	Booking   Booking
	Now       time.Time
}

// NewRecord computes the refund at params.Now and records a cancellation event.
// Unlike the calculator it rejects bookings whose dates cannot be read.
func NewRecord(calc Calculator, params RecordParams) (*Record, error) {
	bookingID := strings.TrimSpace(params.BookingID)
	if bookingID == "" {
		return nil, ErrBookingIDRequired
	}
	actor, ok := ParseActor(string(params.Actor))
	if !ok {
		return nil, ErrUnknownActor
	}
	if _, ok := ParseStartDate(params.Booking.StartDate); !ok {
		return nil, ErrInvalidStartDate
	}
	if params.Booking.TotalPrice < 0 {
		return nil, ErrNegativeTotalPrice
	}
	now := params.Now.UTC()
	policy := calc.registry().Resolve(params.Policy)
	rec := &Record{
		ID:          params.ID,
		BookingID:   bookingID,
		Actor:       actor,
		ActorID:     params.ActorID,
		Reason:      NormalizeReason(actor, params.Reason),
		Note:        strings.TrimSpace(params.Note),
		Policy:      policy.Name,
		Booking:     params.Booking,
		Refund:      calc.ComputeAt(params.Booking, policy.Name, now),
		CancelledAt: now,
	}
	rec.Record(Recorded{
		CancellationID: rec.ID,
		BookingID:      rec.BookingID,
		Actor:          rec.Actor,
		ActorID:        rec.ActorID,
		Reason:         rec.Reason,
		Policy:         rec.Policy,
		Refund:         rec.Refund,
		At:             now,
	})
	return rec, nil
}

const EventRecorded = "cancellation.recorded"

// Recorded is consumed by the refund processor.
type Recorded struct {
	CancellationID string       `json:"cancellation_id"`
	BookingID      string       `json:"booking_id"`
	Actor          Actor        `json:"actor"`
	ActorID        string       `json:"actor_id,omitempty"`
	Reason         Reason       `json:"reason"`
	Policy         string       `json:"policy"`
	Refund         RefundResult `json:"refund"`
	At             time.Time    `json:"at"`
}

func (e Recorded) EventName() string     { return EventRecorded }
func (e Recorded) AggregateID() string   { return e.BookingID }
func (e Recorded) OccurredAt() time.Time { return e.At }
