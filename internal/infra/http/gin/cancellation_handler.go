package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"sawa/internal/app/commands"
	"sawa/internal/app/dto"
	cancellationapp "sawa/internal/app/handlers/cancellations"
	"sawa/internal/app/queries"
	"sawa/internal/domain/cancellation"
)

type CancellationHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type refundPreviewRequest struct {
	TotalPrice *float64 `json:"totalPrice"`
	StartDate  string   `json:"startDate"`
	Policy     string   `json:"policy"`
}

type cancelRequest struct {
	refundPreviewRequest
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
	Note   string `json:"note"`
}

func (h CancellationHandler) Policies(c *gin.Context) {
	result, err := queries.Ask[cancellationapp.PoliciesQuery, dto.PolicyList](c.Request.Context(), h.Queries, cancellationapp.PoliciesQuery{})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h CancellationHandler) Preview(c *gin.Context) {
	var req refundPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.TotalPrice == nil {
		badRequest(c, errors.New("totalPrice is required"))
		return
	}
	query := cancellationapp.PreviewQuery{TotalPrice: *req.TotalPrice, StartDate: req.StartDate, Policy: req.Policy}
	result, err := queries.Ask[cancellationapp.PreviewQuery, cancellation.RefundResult](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h CancellationHandler) Cancel(c *gin.Context) {
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.TotalPrice == nil {
		badRequest(c, errors.New("totalPrice is required"))
		return
	}
	cmd := cancellationapp.RecordCommand{
		BookingID:       c.Param("id"),
		Actor:           req.Actor,
		Reason:          req.Reason,
		Note:            req.Note,
		Policy:          req.Policy,
		TotalPrice:      *req.TotalPrice,
		StartDate:       req.StartDate,
		IdempotencyKeyV: c.GetHeader(headerIdempotencyKey),
	}
	result, err := commands.Dispatch[cancellationapp.RecordCommand, *dto.Cancellation](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h CancellationHandler) Get(c *gin.Context) {
	query := cancellationapp.GetQuery{BookingID: c.Param("id")}
	result, err := queries.Ask[cancellationapp.GetQuery, *dto.Cancellation](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ CancellationHTTP = CancellationHandler{}
