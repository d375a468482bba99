package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"sawa/internal/app/commands"
	"sawa/internal/app/dto"
	offersapp "sawa/internal/app/handlers/offers"
	"sawa/internal/app/queries"
)

type OfferHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createOfferRequest struct {
	HostID     string  `json:"hostId"`
	HostType   string  `json:"hostType"`
	TravelerID string  `json:"travelerId"`
	RequestID  string  `json:"requestId"`
	BasePrice  float64 `json:"basePrice"`
	Currency   string  `json:"currency"`
	Note       string  `json:"note"`
}

func (h OfferHandler) Create(c *gin.Context) {
	var req createOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.HostID == "" {
		caller, _ := currentPrincipal(c)
		req.HostID = caller.ID
	}
	cmd := offersapp.CreateOfferCommand{
		HostID:          req.HostID,
		HostType:        req.HostType,
		TravelerID:      req.TravelerID,
		RequestID:       req.RequestID,
		BasePrice:       req.BasePrice,
		Currency:        req.Currency,
		Note:            req.Note,
		IdempotencyKeyV: c.GetHeader(headerIdempotencyKey),
	}
	result, err := commands.Dispatch[offersapp.CreateOfferCommand, *dto.Offer](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h OfferHandler) Get(c *gin.Context) {
	result, err := queries.Ask[offersapp.GetOfferQuery, *dto.Offer](c.Request.Context(), h.Queries, offersapp.GetOfferQuery{OfferID: c.Param("id")})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h OfferHandler) Withdraw(c *gin.Context) {
	cmd := offersapp.WithdrawOfferCommand{OfferID: c.Param("id")}
	result, err := commands.Dispatch[offersapp.WithdrawOfferCommand, *dto.Offer](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h OfferHandler) ListByHost(c *gin.Context) {
	query := offersapp.ListHostOffersQuery{HostID: c.Param("id")}
	result, err := queries.Ask[offersapp.ListHostOffersQuery, dto.OfferCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ OfferHTTP = OfferHandler{}
