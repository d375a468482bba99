package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sawa/internal/domain/commission"
)

const profilesCollection = "agg_host_commission"

type ProfileRepository struct {
	col *mongo.Collection
}

func NewProfileRepository(db *mongo.Database) *ProfileRepository {
	return &ProfileRepository{col: db.Collection(profilesCollection)}
}

func (r *ProfileRepository) ByHostID(ctx context.Context, hostID string) (*commission.HostCommissionProfile, error) {
	var doc profileDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": strings.TrimSpace(hostID)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, commission.ErrProfileNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// Save upserts p when the stored version still matches p.Version.
func (r *ProfileRepository) Save(ctx context.Context, p *commission.HostCommissionProfile) error {
	doc := newProfileDocument(p)
	filter := bson.M{"_id": doc.ID, "version": p.Version}
	doc.Version = p.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return commission.ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return commission.ErrConcurrentUpdate
	}
	p.Version = doc.Version
	return nil
}

type profileDocument struct {
	ID        string               `bson:"_id"`
	HostType  string               `bson:"host_type"`
	Overrides commission.Overrides `bson:"overrides"`
	UpdatedBy string               `bson:"updated_by"`
	UpdatedAt int64                `bson:"updated_at"`
	Version   int64                `bson:"version"`
}

func newProfileDocument(p *commission.HostCommissionProfile) profileDocument {
	return profileDocument{
		ID:        p.HostID,
		HostType:  string(p.HostType),
		Overrides: p.Overrides,
		UpdatedBy: p.UpdatedBy,
		UpdatedAt: p.UpdatedAt.UnixMilli(),
		Version:   p.Version,
	}
}

func (d profileDocument) toAggregate() *commission.HostCommissionProfile {
	return &commission.HostCommissionProfile{
		HostID:    d.ID,
		HostType:  commission.HostType(d.HostType),
		Overrides: d.Overrides,
		UpdatedBy: d.UpdatedBy,
		UpdatedAt: timestampToTime(d.UpdatedAt),
		Version:   d.Version,
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

var _ commission.Repository = (*ProfileRepository)(nil)
