package dto

import (
	"time"

	"sawa/internal/domain/commission"
	"sawa/internal/domain/offers"
)

type Offer struct {
	ID         string                    `json:"id"`
	HostID     string                    `json:"hostId"`
	TravelerID string                    `json:"travelerId"`
	RequestID  string                    `json:"requestId,omitempty"`
	Currency   string                    `json:"currency"`
	Note       string                    `json:"note,omitempty"`
	Status     string                    `json:"status"`
	Breakdown  commission.PriceBreakdown `json:"breakdown"`
	CreatedAt  time.Time                 `json:"createdAt"`
	UpdatedAt  time.Time                 `json:"updatedAt"`
}

type OfferCollection struct {
	Items []Offer `json:"items"`
	Total int     `json:"total"`
}

func MapOffer(o *offers.Offer) Offer {
	return Offer{
		ID:         string(o.ID),
		HostID:     o.HostID,
		TravelerID: o.TravelerID,
		RequestID:  o.RequestID,
		Currency:   o.Currency,
		Note:       o.Note,
		Status:     string(o.Status),
		Breakdown:  o.Breakdown,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}

func MapOffers(list []*offers.Offer) OfferCollection {
	out := OfferCollection{Items: make([]Offer, 0, len(list)), Total: len(list)}
	for _, o := range list {
		out.Items = append(out.Items, MapOffer(o))
	}
	return out
}
