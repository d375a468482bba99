package hosts

import (
	"context"
	"errors"
	"strings"
	"time"

	"sawa/internal/app/commands"
	"sawa/internal/app/dto"
	"sawa/internal/app/middleware"
	"sawa/internal/app/outbox"
	"sawa/internal/app/principal"
	"sawa/internal/app/queries"
	"sawa/internal/app/uow"
	"sawa/internal/app/validation"
	"sawa/internal/domain/commission"
)

const (
	setCommissionKey     = "hosts.set_commission"
	getProfileKey        = "hosts.profile"
	previewCommissionKey = "hosts.preview_commission"
)

// SetCommissionCommand is issued from the admin commission-override screen.
// Missing overrides reset the host to the schedule defaults.
type SetCommissionCommand struct {
	HostID          string
	HostType        string
	Overrides       commission.Overrides
	ActorID         string
	IdempotencyKeyV string
}

func (SetCommissionCommand) Key() string                     { return setCommissionKey }
func (c SetCommissionCommand) IdempotencyKey() string        { return c.IdempotencyKeyV }
func (SetCommissionCommand) ResultPrototype() any            { return &dto.HostProfile{} }
func (SetCommissionCommand) RequiredRoles() []principal.Role { return []principal.Role{principal.RoleAdmin} }

func (c SetCommissionCommand) Validate() error {
	errs := validation.Errors{}
	if strings.TrimSpace(c.HostID) == "" {
		errs = append(errs, validation.FieldError{Field: "hostId", Reason: "required"})
	}
	if err := validation.CheckCommission(validation.CommissionRequest{HostType: c.HostType, Overrides: c.Overrides}); err != nil {
		var fieldErrs validation.Errors
		if errors.As(err, &fieldErrs) {
			errs = append(errs, fieldErrs...)
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type SetCommissionHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Now        func() time.Time
}

func (h *SetCommissionHandler) Handle(ctx context.Context, cmd SetCommissionCommand) (*dto.HostProfile, error) {
	hostType, ok := commission.ParseHostType(cmd.HostType)
	if !ok {
		return nil, commission.ErrUnknownHostType
	}
	now := h.now()
	var result *dto.HostProfile
	err := uow.Run(ctx, h.UoWFactory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		repo := unit.Profiles()
		profile, err := repo.ByHostID(ctx, strings.TrimSpace(cmd.HostID))
		if errors.Is(err, commission.ErrProfileNotFound) {
			profile, err = commission.NewProfile(cmd.HostID, hostType, now)
		}
		if err != nil {
			return err
		}
		if err := profile.SetCommission(hostType, cmd.Overrides, cmd.ActorID, now); err != nil {
			return err
		}
		if err := repo.Save(ctx, profile); err != nil {
			return err
		}
		if err := outbox.Stage(ctx, h.Outbox, h.Encoder, profile.Drain()); err != nil {
			return err
		}
		mapped := dto.MapHostProfile(profile)
		result = &mapped
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (h *SetCommissionHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

type GetProfileQuery struct {
	HostID string
}

func (GetProfileQuery) Key() string                     { return getProfileKey }
func (GetProfileQuery) RequiredRoles() []principal.Role { return []principal.Role{principal.RoleAdmin} }

type GetProfileHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetProfileHandler) Handle(ctx context.Context, q GetProfileQuery) (*dto.HostProfile, error) {
	var result *dto.HostProfile
	err := uow.Run(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true}, func(ctx context.Context, unit uow.UnitOfWork) error {
		profile, err := unit.Profiles().ByHostID(ctx, strings.TrimSpace(q.HostID))
		if err != nil {
			return err
		}
		mapped := dto.MapHostProfile(profile)
		result = &mapped
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PreviewCommissionQuery shows what a candidate override would charge without storing it.
type PreviewCommissionQuery struct {
	HostType  string
	BasePrice float64
	Overrides commission.Overrides
}

func (PreviewCommissionQuery) Key() string                     { return previewCommissionKey }
func (PreviewCommissionQuery) RequiredRoles() []principal.Role { return []principal.Role{principal.RoleAdmin} }

func (q PreviewCommissionQuery) Validate() error {
	return validation.CheckCommission(validation.CommissionRequest{HostType: q.HostType, BasePrice: q.BasePrice, Overrides: q.Overrides})
}

type PreviewCommissionHandler struct{}

func (PreviewCommissionHandler) Handle(_ context.Context, q PreviewCommissionQuery) (commission.PriceBreakdown, error) {
	return validation.Commission(validation.CommissionRequest{HostType: q.HostType, BasePrice: q.BasePrice, Overrides: q.Overrides}).Unwrap()
}

var (
	_ commands.Handler[SetCommissionCommand, *dto.HostProfile]           = (*SetCommissionHandler)(nil)
	_ queries.Handler[GetProfileQuery, *dto.HostProfile]                 = (*GetProfileHandler)(nil)
	_ queries.Handler[PreviewCommissionQuery, commission.PriceBreakdown] = PreviewCommissionHandler{}
	_ middleware.IdempotentCommand                                       = SetCommissionCommand{}
	_ middleware.RoleRestricted                                          = SetCommissionCommand{}
	_ middleware.RoleRestricted                                          = GetProfileQuery{}
)
