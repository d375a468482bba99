package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sawa/internal/domain/commission"
	"sawa/internal/domain/offers"
)

const offersCollection = "agg_offer"

type OfferRepository struct {
	col *mongo.Collection
}

func NewOfferRepository(db *mongo.Database) *OfferRepository {
	return &OfferRepository{col: db.Collection(offersCollection)}
}

func offerIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "host_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}
}

func (r *OfferRepository) ByID(ctx context.Context, id offers.OfferID) (*offers.Offer, error) {
	var doc offerDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, offers.ErrOfferNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *OfferRepository) Save(ctx context.Context, o *offers.Offer) error {
	doc := newOfferDocument(o)
	filter := bson.M{"_id": doc.ID, "version": o.Version}
	doc.Version = o.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return offers.ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return offers.ErrConcurrentUpdate
	}
	o.Version = doc.Version
	return nil
}

// ListByHost returns the host's offers, newest first.
func (r *OfferRepository) ListByHost(ctx context.Context, hostID string) ([]*offers.Offer, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"host_id": hostID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []offerDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*offers.Offer, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

type offerDocument struct {
	ID         string                    `bson:"_id"`
	HostID     string                    `bson:"host_id"`
	TravelerID string                    `bson:"traveler_id"`
	RequestID  string                    `bson:"request_id,omitempty"`
	Currency   string                    `bson:"currency"`
	Note       string                    `bson:"note,omitempty"`
	Breakdown  commission.PriceBreakdown `bson:"breakdown"`
	Status     string                    `bson:"status"`
	CreatedAt  int64                     `bson:"created_at"`
	UpdatedAt  int64                     `bson:"updated_at"`
	Version    int64                     `bson:"version"`
}

func newOfferDocument(o *offers.Offer) offerDocument {
	return offerDocument{
		ID:         string(o.ID),
		HostID:     o.HostID,
		TravelerID: o.TravelerID,
		RequestID:  o.RequestID,
		Currency:   o.Currency,
		Note:       o.Note,
		Breakdown:  o.Breakdown,
		Status:     string(o.Status),
		CreatedAt:  o.CreatedAt.UnixMilli(),
		UpdatedAt:  o.UpdatedAt.UnixMilli(),
		Version:    o.Version,
	}
}

func (d offerDocument) toAggregate() *offers.Offer {
	return &offers.Offer{
		ID:         offers.OfferID(d.ID),
		HostID:     d.HostID,
		TravelerID: d.TravelerID,
		RequestID:  d.RequestID,
		Currency:   d.Currency,
		Note:       d.Note,
		Breakdown:  d.Breakdown,
		Status:     offers.Status(d.Status),
		CreatedAt:  timestampToTime(d.CreatedAt),
		UpdatedAt:  timestampToTime(d.UpdatedAt),
		Version:    d.Version,
	}
}

var _ offers.Repository = (*OfferRepository)(nil)
