// Package validation is the strict front door to the pricing calculators.
// The calculators themselves never fail; API callers go through here first so
// malformed requests are rejected instead of silently priced at zero.
package validation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"sawa/internal/domain/cancellation"
	"sawa/internal/domain/commission"
)

var ErrInvalid = errors.New("validation: invalid request")

type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Reason
}

// Errors collects every field problem found in one request.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(parts, "; "))
}

func (e Errors) Is(target error) bool {
	return target == ErrInvalid
}

func (e *Errors) add(field, reason string) {
	*e = append(*e, FieldError{Field: field, Reason: reason})
}

func (e Errors) err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Result carries either a value or the reason it could not be produced.
type Result[T any] struct {
	Value T
	Err   error
}

func (r Result[T]) Ok() bool {
	return r.Err == nil
}

func (r Result[T]) Unwrap() (T, error) {
	return r.Value, r.Err
}

func ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

func fail[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

type CommissionRequest struct {
	HostType  string
	BasePrice float64
	Overrides commission.Overrides
}

func CheckCommission(req CommissionRequest) error {
	var errs Errors
	hostType, known := commission.ParseHostType(req.HostType)
	if !known {
		errs.add("hostType", "must be one of freelancer, office, agency")
	}
	if !Finite(req.BasePrice) || req.BasePrice < 0 {
		errs.add("basePrice", "must be a non-negative number")
	}
	checkPercent(&errs, "overrides.sawa", req.Overrides.Sawa)
	checkPercent(&errs, "overrides.office", req.Overrides.Office)
	if known && req.Overrides.Office != nil && !hostType.UsesOfficeSchedule() {
		errs.add("overrides.office", "not allowed for freelancer hosts")
	}
	return errs.err()
}

// Commission validates req and prices it.
func Commission(req CommissionRequest) Result[commission.PriceBreakdown] {
	if err := CheckCommission(req); err != nil {
		return fail[commission.PriceBreakdown](err)
	}
	hostType, _ := commission.ParseHostType(req.HostType)
	return ok(commission.Compute(hostType, req.BasePrice, req.Overrides))
}

// RefundRequest is the strict input of a refund. An empty Policy means the
// registry fallback; a named one must exist.
type RefundRequest struct {
	TotalPrice float64
	StartDate  string
	Policy     string
}

func CheckRefund(req RefundRequest, policies *cancellation.Registry) error {
	var errs Errors
	if !Finite(req.TotalPrice) || req.TotalPrice < 0 {
		errs.add("totalPrice", "must be a non-negative number")
	}
	if _, ok := cancellation.ParseStartDate(req.StartDate); !ok {
		errs.add("startDate", "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
	}
	if policies == nil {
		policies = cancellation.DefaultRegistry
	}
	if strings.TrimSpace(req.Policy) != "" {
		if _, ok := policies.Lookup(req.Policy); !ok {
			errs.add("policy", "unknown cancellation policy")
		}
	}
	return errs.err()
}

// Refund validates req and computes the refund at now.
func Refund(calc cancellation.Calculator, req RefundRequest, now time.Time) Result[cancellation.RefundResult] {
	if err := CheckRefund(req, calc.Policies); err != nil {
		return fail[cancellation.RefundResult](err)
	}
	b := cancellation.Booking{TotalPrice: req.TotalPrice, StartDate: req.StartDate}
	return ok(calc.ComputeAt(b, req.Policy, now))
}

func checkPercent(errs *Errors, field string, v *float64) {
	if v == nil {
		return
	}
	if !Finite(*v) || *v < 0 || *v > 100 {
		errs.add(field, "must be between 0 and 100")
	}
}

// Finite reports whether v is neither NaN nor an infinity.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validatable is implemented by bus messages that can check themselves.
type Validatable interface {
	Validate() error
}

// Validator plugs message self-checks into the bus middleware.
type Validator struct{}

func (Validator) Validate(_ context.Context, message any) error {
	if v, ok := message.(Validatable); ok {
		return v.Validate()
	}
	return nil
}
