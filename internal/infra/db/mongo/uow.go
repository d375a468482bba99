package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"sawa/internal/app/uow"
	"sawa/internal/domain/cancellation"
	"sawa/internal/domain/commission"
	"sawa/internal/domain/offers"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
// Repositories pick the session up from the context injected by the unit.
type Factory struct {
	DB *mongo.Database

	ProfilesRepo      commission.Repository
	OffersRepo        offers.Repository
	CancellationsRepo cancellation.Repository
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// NewFactory builds repositories over db.
func NewFactory(db *mongo.Database) Factory {
	return Factory{
		DB:                db,
		ProfilesRepo:      NewProfileRepository(db),
		OffersRepo:        NewOfferRepository(db),
		CancellationsRepo: NewCancellationRepository(db),
	}
}

// Begin starts a session. Writes run in a snapshot transaction; read-only
// units use the session without one.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	if !opts.ReadOnly {
		txnOpts := options.Transaction().
			SetReadConcern(readconcern.Snapshot()).
			SetWriteConcern(writeconcern.Majority())
		if err := session.StartTransaction(txnOpts); err != nil {
			session.EndSession(ctx)
			return nil, err
		}
	}
	return &Unit{
		session:       session,
		inTxn:         !opts.ReadOnly,
		profiles:      f.ProfilesRepo,
		offers:        f.OffersRepo,
		cancellations: f.CancellationsRepo,
	}, nil
}

type Unit struct {
	session mongo.Session
	inTxn   bool

	profiles      commission.Repository
	offers        offers.Repository
	cancellations cancellation.Repository
}

func (u *Unit) Profiles() commission.Repository        { return u.profiles }
func (u *Unit) Offers() offers.Repository              { return u.offers }
func (u *Unit) Cancellations() cancellation.Repository { return u.cancellations }

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	if !u.inTxn {
		return nil
	}
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	if !u.inTxn {
		return nil
	}
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var _ uow.UoWFactory = Factory{}
