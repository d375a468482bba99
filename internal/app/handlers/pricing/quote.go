package pricing

import (
	"context"
	"strings"

	"sawa/internal/app/dto"
	"sawa/internal/app/queries"
	"sawa/internal/app/uow"
	"sawa/internal/app/validation"
	"sawa/internal/domain/commission"
)

const (
	previewKey   = "pricing.preview"
	quoteKey     = "pricing.quote"
	hostQuoteKey = "pricing.quote_host"
)

// PreviewQuery prices whatever the caller typed so far. Raw values are
// coerced the way a form would: unknown host types price as freelancer and
// unreadable numbers count as zero.
type PreviewQuery struct {
	HostType  string
	BasePrice any
	Sawa      any
	Office    any
}

func (PreviewQuery) Key() string { return previewKey }

type PreviewHandler struct{}

func (PreviewHandler) Handle(_ context.Context, q PreviewQuery) (commission.PriceBreakdown, error) {
	hostType := commission.HostType(strings.ToLower(strings.TrimSpace(q.HostType)))
	overrides := commission.Overrides{
		Sawa:   commission.CoercePercent(q.Sawa),
		Office: commission.CoercePercent(q.Office),
	}
	return commission.Compute(hostType, commission.CoerceAmount(q.BasePrice), overrides), nil
}

// QuoteQuery is the strict counterpart of PreviewQuery.
type QuoteQuery struct {
	HostType  string
	BasePrice float64
	Overrides commission.Overrides
}

func (QuoteQuery) Key() string { return quoteKey }

func (q QuoteQuery) request() validation.CommissionRequest {
	return validation.CommissionRequest{HostType: q.HostType, BasePrice: q.BasePrice, Overrides: q.Overrides}
}

func (q QuoteQuery) Validate() error {
	return validation.CheckCommission(q.request())
}

type QuoteHandler struct{}

func (QuoteHandler) Handle(_ context.Context, q QuoteQuery) (commission.PriceBreakdown, error) {
	return validation.Commission(q.request()).Unwrap()
}

// HostQuoteQuery prices a base amount with the stored schedule of one host.
type HostQuoteQuery struct {
	HostID    string
	BasePrice float64
}

func (HostQuoteQuery) Key() string { return hostQuoteKey }

func (q HostQuoteQuery) Validate() error {
	var errs validation.Errors
	if strings.TrimSpace(q.HostID) == "" {
		errs = append(errs, validation.FieldError{Field: "hostId", Reason: "required"})
	}
	if !validation.Finite(q.BasePrice) || q.BasePrice < 0 {
		errs = append(errs, validation.FieldError{Field: "price", Reason: "must be a non-negative number"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type HostQuoteHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *HostQuoteHandler) Handle(ctx context.Context, q HostQuoteQuery) (*dto.HostQuote, error) {
	var out *dto.HostQuote
	err := uow.Run(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true}, func(ctx context.Context, unit uow.UnitOfWork) error {
		profile, err := unit.Profiles().ByHostID(ctx, strings.TrimSpace(q.HostID))
		if err != nil {
			return err
		}
		out = &dto.HostQuote{HostID: profile.HostID, Breakdown: profile.Quote(q.BasePrice)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

var (
	_ queries.Handler[PreviewQuery, commission.PriceBreakdown] = PreviewHandler{}
	_ queries.Handler[QuoteQuery, commission.PriceBreakdown]   = QuoteHandler{}
	_ queries.Handler[HostQuoteQuery, *dto.HostQuote]          = (*HostQuoteHandler)(nil)
)
