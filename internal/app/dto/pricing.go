package dto

import (
	"time"

	"sawa/internal/domain/cancellation"
	"sawa/internal/domain/commission"
)

type HostProfile struct {
	HostID             string               `json:"hostId"`
	HostType           commission.HostType  `json:"hostType"`
	Overrides          commission.Overrides `json:"overrides"`
	PlatformFeePercent float64              `json:"platformFeePercent"`
	OfficeFeePercent   float64              `json:"officeFeePercent"`
	UpdatedBy          string               `json:"updatedBy,omitempty"`
	UpdatedAt          time.Time            `json:"updatedAt"`
	Version            int64                `json:"version"`
}

// MapHostProfile reports the effective percents alongside the raw overrides.
func MapHostProfile(p *commission.HostCommissionProfile) HostProfile {
	effective := p.Quote(0)
	return HostProfile{
		HostID:             p.HostID,
		HostType:           p.HostType,
		Overrides:          p.Overrides,
		PlatformFeePercent: effective.PlatformFeePercent,
		OfficeFeePercent:   effective.OfficeFeePercent,
		UpdatedBy:          p.UpdatedBy,
		UpdatedAt:          p.UpdatedAt,
		Version:            p.Version,
	}
}

type HostQuote struct {
	HostID    string                    `json:"hostId"`
	Breakdown commission.PriceBreakdown `json:"breakdown"`
}

type PolicyList struct {
	Items    []cancellation.Policy `json:"items"`
	Fallback string                `json:"fallback"`
}

type Cancellation struct {
	ID          string                    `json:"id"`
	BookingID   string                    `json:"bookingId"`
	Actor       cancellation.Actor        `json:"actor"`
	ActorID     string                    `json:"actorId,omitempty"`
	Reason      cancellation.Reason       `json:"reason"`
	Note        string                    `json:"note,omitempty"`
	Policy      string                    `json:"policy"`
	Refund      cancellation.RefundResult `json:"refund"`
	CancelledAt time.Time                 `json:"cancelledAt"`
}

func MapCancellation(r *cancellation.Record) Cancellation {
	return Cancellation{
		ID:          r.ID,
		BookingID:   r.BookingID,
		Actor:       r.Actor,
		ActorID:     r.ActorID,
		Reason:      r.Reason,
		Note:        r.Note,
		Policy:      r.Policy,
		Refund:      r.Refund,
		CancelledAt: r.CancelledAt,
	}
}
