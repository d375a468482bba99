package cancellation

import (
	"math"
	"strings"
	"time"

	"sawa/internal/domain/shared/money"
)

const day = 24 * time.Hour

var startDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// Booking is the slice of a booking the refund calculation needs.
type Booking struct {
	TotalPrice float64 `json:"totalPrice"`
	StartDate  string  `json:"startDate"`
}

type RefundResult struct {
	PolicyName       string  `json:"policyName" bson:"policy_name"`
	DaysUntilCheckin int     `json:"daysUntilCheckin" bson:"days_until_checkin"`
	DaysKnown        bool    `json:"daysKnown" bson:"days_known"`
	TotalAmount      float64 `json:"totalAmount" bson:"total_amount"`
	RefundPercent    int     `json:"refundPercent" bson:"refund_percent"`
	FeePercent       int     `json:"feePercent" bson:"fee_percent"`
	RefundAmount     float64 `json:"refundAmount" bson:"refund_amount"`
	CancellationFee  float64 `json:"cancellationFee" bson:"cancellation_fee"`
}

// ParseStartDate accepts a calendar date or an RFC 3339 timestamp.
func ParseStartDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range startDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DaysUntil returns floor((start-now)/24h). It is negative once check-in has passed.
func DaysUntil(start, now time.Time) int {
	return int(math.Floor(float64(start.Sub(now)) / float64(day)))
}

// Calculator resolves refunds against a policy registry using its own clock.
type Calculator struct {
	Policies *Registry
	Now      func() time.Time
}

func (c Calculator) registry() *Registry {
	if c.Policies != nil {
		return c.Policies
	}
	return DefaultRegistry
}

// Time reports the calculator's current instant.
func (c Calculator) Time() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Compute evaluates the booking against the named policy at the calculator's current time.
func (c Calculator) Compute(b Booking, policyName string) RefundResult {
	return computeRefund(c.registry(), b, policyName, c.Time())
}

// ComputeAt evaluates the booking at an explicit instant.
func (c Calculator) ComputeAt(b Booking, policyName string, now time.Time) RefundResult {
	return computeRefund(c.registry(), b, policyName, now)
}

// ComputeRefund never fails: unknown policies use moderate, invalid totals
// count as zero and an unreadable start date lands on the catch-all rule.
func ComputeRefund(b Booking, policyName string, now time.Time) RefundResult {
	return computeRefund(DefaultRegistry, b, policyName, now)
}

func computeRefund(reg *Registry, b Booking, policyName string, now time.Time) RefundResult {
	policy := reg.Resolve(policyName)
	total := money.NonNegative(b.TotalPrice)

	days, known := 0, false
	if start, ok := ParseStartDate(b.StartDate); ok {
		days, known = DaysUntil(start, now), true
	}

	rule := policy.Resolve(days, known)
	refund := money.PercentOf(total, float64(rule.RefundPercent))

	return RefundResult{
		PolicyName:       policy.DisplayName,
		DaysUntilCheckin: days,
		DaysKnown:        known,
		TotalAmount:      total,
		RefundPercent:    rule.RefundPercent,
		FeePercent:       100 - rule.RefundPercent,
		RefundAmount:     refund,
		CancellationFee:  money.Sub(total, refund),
	}
}
