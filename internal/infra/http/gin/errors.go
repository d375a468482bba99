package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"sawa/internal/app/commands"
	"sawa/internal/app/middleware"
	"sawa/internal/app/queries"
	"sawa/internal/app/validation"
	"sawa/internal/domain/cancellation"
	"sawa/internal/domain/commission"
	"sawa/internal/domain/offers"
)

const headerIdempotencyKey = "Idempotency-Key"

type errorResponse struct {
	Error  string                  `json:"error"`
	Fields []validation.FieldError `json:"fields,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, validation.ErrInvalid),
		errors.Is(err, commission.ErrHostIDRequired),
		errors.Is(err, commission.ErrUnknownHostType),
		errors.Is(err, commission.ErrPercentOutOfRange),
		errors.Is(err, commission.ErrOfficeOnFreelance),
		errors.Is(err, offers.ErrHostRequired),
		errors.Is(err, offers.ErrTravelerRequired),
		errors.Is(err, offers.ErrInvalidBasePrice),
		errors.Is(err, offers.ErrUnsupportedCurrency),
		errors.Is(err, cancellation.ErrBookingIDRequired),
		errors.Is(err, cancellation.ErrUnknownActor),
		errors.Is(err, cancellation.ErrInvalidStartDate),
		errors.Is(err, cancellation.ErrNegativeTotalPrice):
		return http.StatusBadRequest
	case errors.Is(err, middleware.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, middleware.ErrForbidden),
		errors.Is(err, offers.ErrOfferNotOwned):
		return http.StatusForbidden
	case errors.Is(err, commission.ErrProfileNotFound),
		errors.Is(err, offers.ErrOfferNotFound),
		errors.Is(err, cancellation.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, cancellation.ErrAlreadyCancelled),
		errors.Is(err, offers.ErrInvalidState),
		errors.Is(err, offers.ErrConcurrentUpdate),
		errors.Is(err, commission.ErrConcurrentUpdate):
		return http.StatusConflict
	case errors.Is(err, middleware.ErrIdempotencyMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, commands.ErrHandlerNotFound),
		errors.Is(err, queries.ErrHandlerNotFound):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with the status it maps to. Internal errors are
// logged and hidden from the caller.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	body := errorResponse{Error: err.Error()}
	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		body.Error = "validation failed"
		body.Fields = fieldErrs
	}
	if status >= http.StatusInternalServerError {
		body.Error = http.StatusText(status)
		if logger != nil {
			fields := []any{"status", status, "error", err, "path", c.FullPath()}
			if p, ok := currentPrincipal(c); ok {
				fields = append(fields, "principal", p.ID)
			}
			logger.Error("request failed", fields...)
		}
	}
	_ = c.Error(err)
	c.JSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}
