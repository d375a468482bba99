package commission

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"sawa/internal/domain/shared/money"
)

type HostType string

const (
	HostFreelancer HostType = "freelancer"
	HostOffice     HostType = "office"
	HostAgency     HostType = "agency"
)

// Default fee schedules, in percent of the base price.
const (
	FreelancerPlatformPercent = 35.0
	OfficePlatformPercent     = 28.0
	OfficeCutPercent          = 7.0
)

// ParseHostType reports whether raw names one of the known host types.
func ParseHostType(raw string) (HostType, bool) {
	switch HostType(strings.ToLower(strings.TrimSpace(raw))) {
	case HostFreelancer:
		return HostFreelancer, true
	case HostOffice:
		return HostOffice, true
	case HostAgency:
		return HostAgency, true
	}
	return "", false
}

// UsesOfficeSchedule is true for hosts affiliated with an office or agency.
func (t HostType) UsesOfficeSchedule() bool {
	return t == HostOffice || t == HostAgency
}

// Overrides replace the schedule defaults when set. Office is ignored for freelancers.
type Overrides struct {
	Sawa   *float64 `json:"sawa,omitempty" bson:"sawa,omitempty"`
	Office *float64 `json:"office,omitempty" bson:"office,omitempty"`
}

func (o Overrides) IsZero() bool {
	return o.Sawa == nil && o.Office == nil
}

// Percent is a helper for building overrides inline.
func Percent(v float64) *float64 {
	return &v
}

type PriceBreakdown struct {
	BasePrice          float64  `json:"basePrice" bson:"base_price"`
	PlatformFeePercent float64  `json:"platformFeePercent" bson:"platform_fee_percent"`
	PlatformFeeAmount  float64  `json:"platformFeeAmount" bson:"platform_fee_amount"`
	OfficeFeePercent   float64  `json:"officeFeePercent" bson:"office_fee_percent"`
	OfficeFeeAmount    float64  `json:"officeFeeAmount" bson:"office_fee_amount"`
	TotalPrice         float64  `json:"totalPrice" bson:"total_price"`
	HostType           HostType `json:"hostType" bson:"host_type"`
}

// Compute never fails: unknown host types use the freelancer schedule and
// invalid prices count as zero, so previews can be recomputed on every keystroke.
func Compute(hostType HostType, basePrice float64, overrides Overrides) PriceBreakdown {
	base := money.NonNegative(basePrice)

	var platformPercent, officePercent float64
	if hostType.UsesOfficeSchedule() {
		platformPercent = pick(overrides.Sawa, OfficePlatformPercent)
		officePercent = pick(overrides.Office, OfficeCutPercent)
	} else {
		platformPercent = pick(overrides.Sawa, FreelancerPlatformPercent)
		officePercent = 0
	}

	platformAmount := money.PercentOf(base, platformPercent)
	officeAmount := money.PercentOf(base, officePercent)

	return PriceBreakdown{
		BasePrice:          base,
		PlatformFeePercent: platformPercent,
		PlatformFeeAmount:  platformAmount,
		OfficeFeePercent:   officePercent,
		OfficeFeeAmount:    officeAmount,
		TotalPrice:         money.Sum(base, platformAmount, officeAmount),
		HostType:           hostType,
	}
}

func pick(override *float64, def float64) float64 {
	if override == nil {
		return def
	}
	v := *override
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

// CoerceAmount turns loosely typed input into a price. Anything that is not a
// finite non-negative number becomes 0.
func CoerceAmount(raw any) float64 {
	var v float64
	switch x := raw.(type) {
	case nil:
		return 0
	case float64:
		v = x
	case float32:
		v = float64(x)
	case int:
		v = float64(x)
	case int64:
		v = float64(x)
	case int32:
		v = float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0
		}
		v = f
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		v = f
	case bool:
		if x {
			v = 1
		}
	default:
		return 0
	}
	return money.NonNegative(v)
}

// CoercePercent is like CoerceAmount but keeps "absent" distinct from zero.
func CoercePercent(raw any) *float64 {
	if raw == nil {
		return nil
	}
	if s, ok := raw.(string); ok && strings.TrimSpace(s) == "" {
		return nil
	}
	v := CoerceAmount(raw)
	return &v
}
