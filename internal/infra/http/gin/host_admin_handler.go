package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"sawa/internal/app/commands"
	"sawa/internal/app/dto"
	hostsapp "sawa/internal/app/handlers/hosts"
	"sawa/internal/app/queries"
	"sawa/internal/domain/commission"
)

// HostAdminHandler serves the admin commission-override screen.
type HostAdminHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type commissionRequest struct {
	HostType  string               `json:"hostType"`
	BasePrice float64              `json:"basePrice"`
	Overrides commission.Overrides `json:"overrides"`
}

func (h HostAdminHandler) GetCommission(c *gin.Context) {
	result, err := queries.Ask[hostsapp.GetProfileQuery, *dto.HostProfile](c.Request.Context(), h.Queries, hostsapp.GetProfileQuery{HostID: c.Param("id")})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HostAdminHandler) SetCommission(c *gin.Context) {
	var req commissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	caller, _ := currentPrincipal(c)
	cmd := hostsapp.SetCommissionCommand{
		HostID:          c.Param("id"),
		HostType:        req.HostType,
		Overrides:       req.Overrides,
		ActorID:         caller.ID,
		IdempotencyKeyV: c.GetHeader(headerIdempotencyKey),
	}
	result, err := commands.Dispatch[hostsapp.SetCommissionCommand, *dto.HostProfile](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HostAdminHandler) PreviewCommission(c *gin.Context) {
	var req commissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	query := hostsapp.PreviewCommissionQuery{HostType: req.HostType, BasePrice: req.BasePrice, Overrides: req.Overrides}
	result, err := queries.Ask[hostsapp.PreviewCommissionQuery, commission.PriceBreakdown](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ HostAdminHTTP = HostAdminHandler{}
