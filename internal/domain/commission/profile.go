package commission

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"sawa/internal/domain/shared/events"
)

var (
	ErrProfileNotFound   = errors.New("commission: host profile not found")
	ErrHostIDRequired    = errors.New("commission: host id required")
	ErrUnknownHostType   = errors.New("commission: unknown host type")
	ErrPercentOutOfRange = errors.New("commission: percent must be between 0 and 100")
	ErrOfficeOnFreelance = errors.New("commission: office override is not allowed for freelancers")
	ErrConcurrentUpdate  = errors.New("commission: concurrent profile update")
)

// HostCommissionProfile is the stored commission configuration of a single host.
type HostCommissionProfile struct {
	HostID    string
	HostType  HostType
	Overrides Overrides
	UpdatedBy string
	UpdatedAt time.Time
	Version   int64
	events.Recorder
}

type Repository interface {
	ByHostID(ctx context.Context, hostID string) (*HostCommissionProfile, error)
	Save(ctx context.Context, profile *HostCommissionProfile) error
}

// NewProfile returns a profile on the default schedule for the host type.
func NewProfile(hostID string, hostType HostType, now time.Time) (*HostCommissionProfile, error) {
	hostID = strings.TrimSpace(hostID)
	if hostID == "" {
		return nil, ErrHostIDRequired
	}
	if _, ok := ParseHostType(string(hostType)); !ok {
		return nil, ErrUnknownHostType
	}
	return &HostCommissionProfile{
		HostID:    hostID,
		HostType:  hostType,
		UpdatedAt: now.UTC(),
	}, nil
}

// Quote prices a base amount with this host's schedule.
func (p *HostCommissionProfile) Quote(basePrice float64) PriceBreakdown {
	return Compute(p.HostType, basePrice, p.Overrides)
}

// ValidateOverrides checks overrides against the host type without touching the profile.
func ValidateOverrides(hostType HostType, o Overrides) error {
	for _, v := range []*float64{o.Sawa, o.Office} {
		if v == nil {
			continue
		}
		if math.IsNaN(*v) || *v < 0 || *v > 100 {
			return ErrPercentOutOfRange
		}
	}
	if o.Office != nil && !hostType.UsesOfficeSchedule() {
		return ErrOfficeOnFreelance
	}
	return nil
}

// SetCommission replaces the host type and overrides wholesale. Absent overrides
// fall back to the schedule defaults.
func (p *HostCommissionProfile) SetCommission(hostType HostType, o Overrides, actor string, now time.Time) error {
	if _, ok := ParseHostType(string(hostType)); !ok {
		return ErrUnknownHostType
	}
	if err := ValidateOverrides(hostType, o); err != nil {
		return err
	}
	previous := p.Overrides
	previousType := p.HostType
	p.HostType = hostType
	p.Overrides = o
	p.UpdatedBy = actor
	p.UpdatedAt = now.UTC()
	p.Record(OverrideChanged{
		HostID:           p.HostID,
		HostType:         hostType,
		PreviousHostType: previousType,
		Overrides:        o,
		Previous:         previous,
		ChangedBy:        actor,
		At:               p.UpdatedAt,
	})
	return nil
}

const EventOverrideChanged = "commission.override_changed"

type OverrideChanged struct {
	HostID           string    `json:"host_id"`
	HostType         HostType  `json:"host_type"`
	PreviousHostType HostType  `json:"previous_host_type,omitempty"`
	Overrides        Overrides `json:"overrides"`
	Previous         Overrides `json:"previous"`
	ChangedBy        string    `json:"changed_by"`
	At               time.Time `json:"at"`
}

func (e OverrideChanged) EventName() string     { return EventOverrideChanged }
func (e OverrideChanged) AggregateID() string   { return e.HostID }
func (e OverrideChanged) OccurredAt() time.Time { return e.At }
