package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"sawa/internal/app/dto"
	pricingapp "sawa/internal/app/handlers/pricing"
	"sawa/internal/app/queries"
	"sawa/internal/domain/commission"
)

type PricingHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

// previewRequest keeps raw JSON values so the preview can coerce them like a form would.
type previewRequest struct {
	HostType  string `json:"hostType"`
	BasePrice any    `json:"basePrice"`
	Overrides struct {
		Sawa   any `json:"sawa"`
		Office any `json:"office"`
	} `json:"overrides"`
}

type quoteRequest struct {
	HostType  string               `json:"hostType"`
	BasePrice *float64             `json:"basePrice"`
	Overrides commission.Overrides `json:"overrides"`
}

func (h PricingHandler) Preview(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	query := pricingapp.PreviewQuery{
		HostType:  req.HostType,
		BasePrice: req.BasePrice,
		Sawa:      req.Overrides.Sawa,
		Office:    req.Overrides.Office,
	}
	result, err := queries.Ask[pricingapp.PreviewQuery, commission.PriceBreakdown](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PricingHandler) Quote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.BasePrice == nil {
		badRequest(c, errors.New("basePrice is required"))
		return
	}
	query := pricingapp.QuoteQuery{HostType: req.HostType, BasePrice: *req.BasePrice, Overrides: req.Overrides}
	result, err := queries.Ask[pricingapp.QuoteQuery, commission.PriceBreakdown](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PricingHandler) HostQuote(c *gin.Context) {
	price, err := strconv.ParseFloat(strings.TrimSpace(c.Query("price")), 64)
	if err != nil {
		badRequest(c, errors.New("price must be a number"))
		return
	}
	query := pricingapp.HostQuoteQuery{HostID: c.Param("id"), BasePrice: price}
	result, err := queries.Ask[pricingapp.HostQuoteQuery, *dto.HostQuote](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ PricingHTTP = PricingHandler{}
