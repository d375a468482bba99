package cancellations

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"sawa/internal/app/commands"
	"sawa/internal/app/dto"
	"sawa/internal/app/middleware"
	"sawa/internal/app/outbox"
	"sawa/internal/app/principal"
	"sawa/internal/app/queries"
	"sawa/internal/app/uow"
	"sawa/internal/app/validation"
	"sawa/internal/domain/cancellation"
)

const (
	previewKey  = "cancellation.preview"
	policiesKey = "cancellation.policies"
	recordKey   = "cancellation.record"
	getKey      = "cancellation.get"
)

// PreviewQuery shows the refund a traveler would get by cancelling now.
type PreviewQuery struct {
	TotalPrice float64
	StartDate  string
	Policy     string
}

func (PreviewQuery) Key() string { return previewKey }

type PreviewHandler struct {
	Calculator cancellation.Calculator
}

func (q PreviewQuery) request() validation.RefundRequest {
	return validation.RefundRequest{TotalPrice: q.TotalPrice, StartDate: q.StartDate, Policy: q.Policy}
}

func (h PreviewHandler) Handle(_ context.Context, q PreviewQuery) (cancellation.RefundResult, error) {
	return validation.Refund(h.Calculator, q.request(), h.Calculator.Time()).Unwrap()
}

type PoliciesQuery struct{}

func (PoliciesQuery) Key() string { return policiesKey }

type PoliciesHandler struct {
	Policies *cancellation.Registry
}

func (h PoliciesHandler) Handle(context.Context, PoliciesQuery) (dto.PolicyList, error) {
	reg := h.Policies
	if reg == nil {
		reg = cancellation.DefaultRegistry
	}
	return dto.PolicyList{Items: reg.Policies(), Fallback: cancellation.FallbackPolicy}, nil
}

// RecordCommand cancels a booking and freezes the refund it is entitled to.
// The caller must hold the role matching Actor unless they are an admin.
// Booking fields are checked against the handler's policy registry.
type RecordCommand struct {
	BookingID       string
	Actor           string
	Reason          string
	Note            string
	Policy          string
	TotalPrice      float64
	StartDate       string
	IdempotencyKeyV string
}

func (RecordCommand) Key() string              { return recordKey }
func (c RecordCommand) IdempotencyKey() string { return c.IdempotencyKeyV }
func (RecordCommand) ResultPrototype() any     { return &dto.Cancellation{} }

func (RecordCommand) RequiredRoles() []principal.Role {
	return []principal.Role{principal.RoleTraveler, principal.RoleHost}
}

func (c RecordCommand) Validate() error {
	errs := validation.Errors{}
	if strings.TrimSpace(c.BookingID) == "" {
		errs = append(errs, validation.FieldError{Field: "bookingId", Reason: "required"})
	}
	if _, ok := cancellation.ParseActor(c.Actor); !ok {
		errs = append(errs, validation.FieldError{Field: "actor", Reason: "must be traveler, host or admin"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type RecordHandler struct {
	UoWFactory  uow.UoWFactory
	Calculator  cancellation.Calculator
	Outbox      outbox.Outbox
	Encoder     outbox.EventEncoder
	IDGenerator func() string
}

func (h *RecordHandler) Handle(ctx context.Context, cmd RecordCommand) (*dto.Cancellation, error) {
	actor, ok := cancellation.ParseActor(cmd.Actor)
	if !ok {
		return nil, cancellation.ErrUnknownActor
	}
	caller, _ := principal.FromContext(ctx)
	if !caller.HasRole(principal.RoleAdmin) && !caller.HasRole(principal.Role(actor)) {
		return nil, middleware.ErrForbidden
	}
	refund := validation.RefundRequest{TotalPrice: cmd.TotalPrice, StartDate: cmd.StartDate, Policy: cmd.Policy}
	if err := validation.CheckRefund(refund, h.Calculator.Policies); err != nil {
		return nil, err
	}
	bookingID := strings.TrimSpace(cmd.BookingID)

	var result *dto.Cancellation
	err := uow.Run(ctx, h.UoWFactory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		repo := unit.Cancellations()
		existing, err := repo.ByBookingID(ctx, bookingID)
		if err != nil && !errors.Is(err, cancellation.ErrRecordNotFound) {
			return err
		}
		if existing != nil {
			return cancellation.ErrAlreadyCancelled
		}
		rec, err := cancellation.NewRecord(h.Calculator, cancellation.RecordParams{
			ID:        h.newID(),
			BookingID: bookingID,
			Actor:     actor,
			ActorID:   caller.ID,
			Reason:    cmd.Reason,
			Note:      cmd.Note,
			Policy:    cmd.Policy,
			Booking:   cancellation.Booking{TotalPrice: cmd.TotalPrice, StartDate: cmd.StartDate},
			Now:       h.Calculator.Time(),
		})
		if err != nil {
			return err
		}
		if err := repo.Save(ctx, rec); err != nil {
			return err
		}
		if err := outbox.Stage(ctx, h.Outbox, h.Encoder, rec.Drain()); err != nil {
			return err
		}
		mapped := dto.MapCancellation(rec)
		result = &mapped
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (h *RecordHandler) newID() string {
	if h.IDGenerator != nil {
		return h.IDGenerator()
	}
	return uuid.NewString()
}

type GetQuery struct {
	BookingID string
}

func (GetQuery) Key() string { return getKey }

type GetHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetHandler) Handle(ctx context.Context, q GetQuery) (*dto.Cancellation, error) {
	var result *dto.Cancellation
	err := uow.Run(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true}, func(ctx context.Context, unit uow.UnitOfWork) error {
		rec, err := unit.Cancellations().ByBookingID(ctx, strings.TrimSpace(q.BookingID))
		if err != nil {
			return err
		}
		mapped := dto.MapCancellation(rec)
		result = &mapped
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

var (
	_ queries.Handler[PreviewQuery, cancellation.RefundResult] = PreviewHandler{}
	_ queries.Handler[PoliciesQuery, dto.PolicyList]           = PoliciesHandler{}
	_ commands.Handler[RecordCommand, *dto.Cancellation]       = (*RecordHandler)(nil)
	_ queries.Handler[GetQuery, *dto.Cancellation]             = (*GetHandler)(nil)
	_ middleware.IdempotentCommand                             = RecordCommand{}
	_ middleware.RoleRestricted                                = RecordCommand{}
)
