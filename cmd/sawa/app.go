package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sawa/internal/app/commands"
	"sawa/internal/app/dto"
	cancellationapp "sawa/internal/app/handlers/cancellations"
	hostsapp "sawa/internal/app/handlers/hosts"
	offersapp "sawa/internal/app/handlers/offers"
	pricingapp "sawa/internal/app/handlers/pricing"
	"sawa/internal/app/middleware"
	"sawa/internal/app/outbox"
	"sawa/internal/app/queries"
	"sawa/internal/app/uow"
	"sawa/internal/app/validation"
	"sawa/internal/domain/cancellation"
	"sawa/internal/domain/commission"
	"sawa/internal/infra/config"
	mongodb "sawa/internal/infra/db/mongo"
	ginserver "sawa/internal/infra/http/gin"
	"sawa/internal/infra/obs"
	infraoutbox "sawa/internal/infra/outbox"
	"sawa/internal/infra/ratelimit"
	"sawa/internal/infra/security"
	"sawa/internal/infra/storage/memory"
)

// storage bundles the persistence adapters selected by STORAGE_MODE.
type storage struct {
	factory     uow.UoWFactory
	idempotency middleware.IdempotencyStore
	outbox      infraoutbox.Store
	ready       func(ctx context.Context) error
	close       func(ctx context.Context) error
}

func newMemoryStorage(ttl time.Duration) storage {
	box := memory.NewOutbox()
	return storage{
		factory: memory.Factory{
			ProfilesRepo:      memory.NewProfileRepository(),
			OffersRepo:        memory.NewOfferRepository(),
			CancellationsRepo: memory.NewCancellationRepository(),
			Outbox:            box,
		},
		idempotency: memory.NewIdempotencyStore(ttl),
		outbox:      box,
		ready:       func(context.Context) error { return nil },
		close:       func(context.Context) error { return nil },
	}
}

func newMongoStorage(ctx context.Context, cfg config.Config) (storage, error) {
	client, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return storage{}, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.EnsureIndexes(ctx); err != nil {
		_ = client.Close(ctx)
		return storage{}, fmt.Errorf("ensure indexes: %w", err)
	}
	box, err := infraoutbox.NewMongoStore(ctx, client.DB)
	if err != nil {
		_ = client.Close(ctx)
		return storage{}, fmt.Errorf("outbox store: %w", err)
	}
	idem, err := mongodb.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
	if err != nil {
		_ = client.Close(ctx)
		return storage{}, fmt.Errorf("idempotency store: %w", err)
	}
	return storage{
		factory:     mongodb.NewFactory(client.DB),
		idempotency: idem,
		outbox:      box,
		ready:       client.Ping,
		close:       client.Close,
	}, nil
}

func openStorage(ctx context.Context, cfg config.Config) (storage, error) {
	if cfg.StorageMode == config.StorageMongo {
		return newMongoStorage(ctx, cfg)
	}
	return newMemoryStorage(cfg.IdempotencyTTL), nil
}

type application struct {
	handlers ginserver.Handlers
	commands commands.Bus
	queries  queries.Bus
}

type dependencies struct {
	cfg      config.Config
	logger   *slog.Logger
	store    storage
	policies *cancellation.Registry
	keys     *security.Keyring
	now      func() time.Time
}

func buildApplication(deps dependencies) application {
	now := deps.now
	if now == nil {
		now = time.Now
	}
	encoder := outbox.JSONEventEncoder{IDGenerator: uuid.NewString, Headers: obs.EventHeaders}
	calculator := cancellation.Calculator{Policies: deps.policies, Now: now}
	factory := deps.store.factory
	box := deps.store.outbox

	commandBus := commands.NewInMemoryBus()
	commands.Register[hostsapp.SetCommissionCommand, *dto.HostProfile](commandBus, &hostsapp.SetCommissionHandler{
		UoWFactory: factory,
		Outbox:     box,
		Encoder:    encoder,
		Now:        now,
	})
	commands.Register[offersapp.CreateOfferCommand, *dto.Offer](commandBus, &offersapp.CreateOfferHandler{
		UoWFactory:  factory,
		Outbox:      box,
		Encoder:     encoder,
		Now:         now,
		IDGenerator: uuid.NewString,
	})
	commands.Register[offersapp.WithdrawOfferCommand, *dto.Offer](commandBus, &offersapp.WithdrawOfferHandler{
		UoWFactory: factory,
		Outbox:     box,
		Encoder:    encoder,
		Now:        now,
	})
	commands.Register[cancellationapp.RecordCommand, *dto.Cancellation](commandBus, &cancellationapp.RecordHandler{
		UoWFactory:  factory,
		Calculator:  calculator,
		Outbox:      box,
		Encoder:     encoder,
		IDGenerator: uuid.NewString,
	})

	queryBus := queries.NewInMemoryBus()
	queries.Register[pricingapp.PreviewQuery, commission.PriceBreakdown](queryBus, pricingapp.PreviewHandler{})
	queries.Register[pricingapp.QuoteQuery, commission.PriceBreakdown](queryBus, pricingapp.QuoteHandler{})
	queries.Register[pricingapp.HostQuoteQuery, *dto.HostQuote](queryBus, &pricingapp.HostQuoteHandler{UoWFactory: factory})
	queries.Register[hostsapp.GetProfileQuery, *dto.HostProfile](queryBus, &hostsapp.GetProfileHandler{UoWFactory: factory})
	queries.Register[hostsapp.PreviewCommissionQuery, commission.PriceBreakdown](queryBus, hostsapp.PreviewCommissionHandler{})
	queries.Register[offersapp.GetOfferQuery, *dto.Offer](queryBus, &offersapp.GetOfferHandler{UoWFactory: factory})
	queries.Register[offersapp.ListHostOffersQuery, dto.OfferCollection](queryBus, &offersapp.ListHostOffersHandler{UoWFactory: factory})
	queries.Register[cancellationapp.PreviewQuery, cancellation.RefundResult](queryBus, cancellationapp.PreviewHandler{Calculator: calculator})
	queries.Register[cancellationapp.PoliciesQuery, dto.PolicyList](queryBus, cancellationapp.PoliciesHandler{Policies: deps.policies})
	queries.Register[cancellationapp.GetQuery, *dto.Cancellation](queryBus, &cancellationapp.GetHandler{UoWFactory: factory})

	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Validation(validation.Validator{}),
		middleware.Authorization(middleware.RoleAuthorizer{}),
		middleware.Idempotency(deps.store.idempotency, middleware.IdempotencyOptions{TTL: deps.cfg.IdempotencyTTL, Now: now}),
		middleware.OutboxFlush(box),
		middleware.Transaction(factory, nil),
	)
	queryBusWithMiddleware := middleware.ChainQueries(
		queryBus,
		middleware.QueryValidation(validation.Validator{}),
		middleware.QueryAuthorization(middleware.RoleAuthorizer{}),
	)

	limiter := ratelimit.New(deps.cfg.RateLimit, deps.cfg.RateLimitWindow, now)
	return application{
		commands: commandBusWithMiddleware,
		queries:  queryBusWithMiddleware,
		handlers: ginserver.Handlers{
			Pricing: ginserver.PricingHandler{
				Queries: queryBusWithMiddleware,
				Logger:  deps.logger,
			},
			Cancellation: ginserver.CancellationHandler{
				Commands: commandBusWithMiddleware,
				Queries:  queryBusWithMiddleware,
				Logger:   deps.logger,
			},
			HostAdmin: ginserver.HostAdminHandler{
				Commands: commandBusWithMiddleware,
				Queries:  queryBusWithMiddleware,
				Logger:   deps.logger,
			},
			Offers: ginserver.OfferHandler{
				Commands: commandBusWithMiddleware,
				Queries:  queryBusWithMiddleware,
				Logger:   deps.logger,
			},
			AuthMiddleware: ginserver.AuthMiddleware{Keys: deps.keys, Logger: deps.logger}.Handle,
			RateLimit:      ginserver.RateLimit(limiter, now),
		},
	}
}
