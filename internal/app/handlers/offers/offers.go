package offers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"sawa/internal/app/commands"
	"sawa/internal/app/dto"
	"sawa/internal/app/middleware"
	"sawa/internal/app/outbox"
	"sawa/internal/app/principal"
	"sawa/internal/app/queries"
	"sawa/internal/app/uow"
	"sawa/internal/app/validation"
	"sawa/internal/domain/commission"
	domain "sawa/internal/domain/offers"
)

const (
	createKey   = "offers.create"
	withdrawKey = "offers.withdraw"
	getKey      = "offers.get"
	listHostKey = "offers.list_host"
)

// CreateOfferCommand prices an offer with the calling host's commission
// schedule. HostType is only consulted when the host has no stored profile.
type CreateOfferCommand struct {
	HostID          string
	HostType        string
	TravelerID      string
	RequestID       string
	BasePrice       float64
	Currency        string
	Note            string
	IdempotencyKeyV string
}

func (CreateOfferCommand) Key() string                     { return createKey }
func (c CreateOfferCommand) IdempotencyKey() string        { return c.IdempotencyKeyV }
func (CreateOfferCommand) ResultPrototype() any            { return &dto.Offer{} }
func (CreateOfferCommand) RequiredRoles() []principal.Role { return []principal.Role{principal.RoleHost} }

func (c CreateOfferCommand) Validate() error {
	var errs validation.Errors
	if strings.TrimSpace(c.HostID) == "" {
		errs = append(errs, validation.FieldError{Field: "hostId", Reason: "required"})
	}
	if strings.TrimSpace(c.TravelerID) == "" {
		errs = append(errs, validation.FieldError{Field: "travelerId", Reason: "required"})
	}
	if !validation.Finite(c.BasePrice) || c.BasePrice <= 0 {
		errs = append(errs, validation.FieldError{Field: "basePrice", Reason: "must be a positive number"})
	}
	if c.HostType != "" {
		if _, ok := commission.ParseHostType(c.HostType); !ok {
			errs = append(errs, validation.FieldError{Field: "hostType", Reason: "must be one of freelancer, office, agency"})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type CreateOfferHandler struct {
	UoWFactory  uow.UoWFactory
	Outbox      outbox.Outbox
	Encoder     outbox.EventEncoder
	Now         func() time.Time
	IDGenerator func() string
}

func (h *CreateOfferHandler) Handle(ctx context.Context, cmd CreateOfferCommand) (*dto.Offer, error) {
	hostID := strings.TrimSpace(cmd.HostID)
	if err := ensureOwner(ctx, hostID); err != nil {
		return nil, err
	}
	now := h.now()
	var result *dto.Offer
	err := uow.Run(ctx, h.UoWFactory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		profile, err := unit.Profiles().ByHostID(ctx, hostID)
		if errors.Is(err, commission.ErrProfileNotFound) && cmd.HostType != "" {
			hostType, _ := commission.ParseHostType(cmd.HostType)
			profile, err = commission.NewProfile(hostID, hostType, now)
		}
		if err != nil {
			return err
		}
		offer, err := domain.NewOffer(domain.CreateParams{
			ID:         domain.OfferID(h.newID()),
			Profile:    profile,
			TravelerID: cmd.TravelerID,
			RequestID:  cmd.RequestID,
			BasePrice:  cmd.BasePrice,
			Currency:   cmd.Currency,
			Note:       cmd.Note,
			Now:        now,
		})
		if err != nil {
			return err
		}
		if err := unit.Offers().Save(ctx, offer); err != nil {
			return err
		}
		if err := outbox.Stage(ctx, h.Outbox, h.Encoder, offer.Drain()); err != nil {
			return err
		}
		mapped := dto.MapOffer(offer)
		result = &mapped
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (h *CreateOfferHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *CreateOfferHandler) newID() string {
	if h.IDGenerator != nil {
		return h.IDGenerator()
	}
	return uuid.NewString()
}

type WithdrawOfferCommand struct {
	OfferID string
}

func (WithdrawOfferCommand) Key() string                     { return withdrawKey }
func (WithdrawOfferCommand) RequiredRoles() []principal.Role { return []principal.Role{principal.RoleHost} }

type WithdrawOfferHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Now        func() time.Time
}

func (h *WithdrawOfferHandler) Handle(ctx context.Context, cmd WithdrawOfferCommand) (*dto.Offer, error) {
	caller, _ := principal.FromContext(ctx)
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	var result *dto.Offer
	err := uow.Run(ctx, h.UoWFactory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		repo := unit.Offers()
		offer, err := repo.ByID(ctx, domain.OfferID(strings.TrimSpace(cmd.OfferID)))
		if err != nil {
			return err
		}
		owner := caller.ID
		if caller.HasRole(principal.RoleAdmin) {
			owner = offer.HostID
		}
		if err := offer.Withdraw(owner, now); err != nil {
			return err
		}
		if err := repo.Save(ctx, offer); err != nil {
			return err
		}
		if err := outbox.Stage(ctx, h.Outbox, h.Encoder, offer.Drain()); err != nil {
			return err
		}
		mapped := dto.MapOffer(offer)
		result = &mapped
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type GetOfferQuery struct {
	OfferID string
}

func (GetOfferQuery) Key() string { return getKey }

type GetOfferHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetOfferHandler) Handle(ctx context.Context, q GetOfferQuery) (*dto.Offer, error) {
	var result *dto.Offer
	err := uow.Run(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true}, func(ctx context.Context, unit uow.UnitOfWork) error {
		offer, err := unit.Offers().ByID(ctx, domain.OfferID(strings.TrimSpace(q.OfferID)))
		if err != nil {
			return err
		}
		mapped := dto.MapOffer(offer)
		result = &mapped
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type ListHostOffersQuery struct {
	HostID string
}

func (ListHostOffersQuery) Key() string { return listHostKey }

type ListHostOffersHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListHostOffersHandler) Handle(ctx context.Context, q ListHostOffersQuery) (dto.OfferCollection, error) {
	var result dto.OfferCollection
	err := uow.Run(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true}, func(ctx context.Context, unit uow.UnitOfWork) error {
		list, err := unit.Offers().ListByHost(ctx, strings.TrimSpace(q.HostID))
		if err != nil {
			return err
		}
		result = dto.MapOffers(list)
		return nil
	})
	return result, err
}

// ensureOwner stops a host from acting for another host. Admins act for anyone.
func ensureOwner(ctx context.Context, hostID string) error {
	caller, ok := principal.FromContext(ctx)
	if !ok {
		return middleware.ErrUnauthenticated
	}
	if caller.HasRole(principal.RoleAdmin) || caller.ID == hostID {
		return nil
	}
	return domain.ErrOfferNotOwned
}

var (
	_ commands.Handler[CreateOfferCommand, *dto.Offer]          = (*CreateOfferHandler)(nil)
	_ commands.Handler[WithdrawOfferCommand, *dto.Offer]        = (*WithdrawOfferHandler)(nil)
	_ queries.Handler[GetOfferQuery, *dto.Offer]                = (*GetOfferHandler)(nil)
	_ queries.Handler[ListHostOffersQuery, dto.OfferCollection] = (*ListHostOffersHandler)(nil)
	_ middleware.IdempotentCommand                              = CreateOfferCommand{}
	_ middleware.RoleRestricted                                 = WithdrawOfferCommand{}
)
