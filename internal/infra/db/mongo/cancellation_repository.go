package mongo

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sawa/internal/domain/cancellation"
)

const cancellationsCollection = "agg_cancellation"

type CancellationRepository struct {
	col *mongo.Collection
}

func NewCancellationRepository(db *mongo.Database) *CancellationRepository {
	return &CancellationRepository{col: db.Collection(cancellationsCollection)}
}

func cancellationIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "cancellation_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "cancelled_at", Value: -1}}},
	}
}

func (r *CancellationRepository) ByBookingID(ctx context.Context, bookingID string) (*cancellation.Record, error) {
	var doc cancellationDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": strings.TrimSpace(bookingID)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, cancellation.ErrRecordNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// Save inserts rec keyed by booking so a second cancellation hits the primary key.
func (r *CancellationRepository) Save(ctx context.Context, rec *cancellation.Record) error {
	_, err := r.col.InsertOne(ctx, newCancellationDocument(rec))
	if mongo.IsDuplicateKeyError(err) {
		return cancellation.ErrAlreadyCancelled
	}
	return err
}

type cancellationDocument struct {
	BookingID   string                    `bson:"_id"`
	ID          string                    `bson:"cancellation_id"`
	Actor       string                    `bson:"actor"`
	ActorID     string                    `bson:"actor_id,omitempty"`
	Reason      string                    `bson:"reason"`
	Note        string                    `bson:"note,omitempty"`
	Policy      string                    `bson:"policy"`
	TotalPrice  float64                   `bson:"total_price"`
	StartDate   string                    `bson:"start_date"`
	Refund      cancellation.RefundResult `bson:"refund"`
	CancelledAt int64                     `bson:"cancelled_at"`
}

func newCancellationDocument(r *cancellation.Record) cancellationDocument {
	return cancellationDocument{
		BookingID:   r.BookingID,
		ID:          r.ID,
		Actor:       string(r.Actor),
		ActorID:     r.ActorID,
		Reason:      string(r.Reason),
		Note:        r.Note,
		Policy:      r.Policy,
		TotalPrice:  r.Booking.TotalPrice,
		StartDate:   r.Booking.StartDate,
		Refund:      r.Refund,
		CancelledAt: r.CancelledAt.UnixMilli(),
	}
}

func (d cancellationDocument) toAggregate() *cancellation.Record {
	return &cancellation.Record{
		ID:          d.ID,
		BookingID:   d.BookingID,
		Actor:       cancellation.Actor(d.Actor),
		ActorID:     d.ActorID,
		Reason:      cancellation.Reason(d.Reason),
		Note:        d.Note,
		Policy:      d.Policy,
		Booking:     cancellation.Booking{TotalPrice: d.TotalPrice, StartDate: d.StartDate},
		Refund:      d.Refund,
		CancelledAt: timestampToTime(d.CancelledAt),
	}
}

var _ cancellation.Repository = (*CancellationRepository)(nil)
