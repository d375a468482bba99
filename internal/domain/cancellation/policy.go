package cancellation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrPolicyNotFound     = errors.New("cancellation: policy not found")
	ErrPolicyEmpty        = errors.New("cancellation: policy has no rules")
	ErrPolicyUnsorted     = errors.New("cancellation: rules must be sorted by descending threshold")
	ErrPolicyNoCatchAll   = errors.New("cancellation: last rule must have a zero threshold")
	ErrPolicyPercentRange = errors.New("cancellation: refund percent must be between 0 and 100")
	ErrPolicyNotMonotonic = errors.New("cancellation: refund percent must not grow as the threshold shrinks")
	ErrFallbackMissing    = errors.New("cancellation: fallback policy missing from registry")
)

const (
	Flexible = "flexible"
	Moderate = "moderate"
	Strict   = "strict"

	// FallbackPolicy is used for any unknown policy name.
	FallbackPolicy = Moderate
)

// Rule grants RefundPercent when the cancellation happens at least
// DaysBeforeCheckin days before check-in.
type Rule struct {
	DaysBeforeCheckin int `json:"daysBeforeCheckin" yaml:"days_before_checkin"`
	RefundPercent     int `json:"refundPercent" yaml:"refund_percent"`
}

type Policy struct {
	Name        string `json:"name" yaml:"name"`
	DisplayName string `json:"displayName" yaml:"display_name"`
	Description string `json:"description,omitempty" yaml:"description"`
	Rules       []Rule `json:"rules" yaml:"rules"`
}

// Validate enforces descending thresholds ending with a catch-all rule so that
// a refund percent always resolves.
func (p Policy) Validate() error {
	if len(p.Rules) == 0 {
		return fmt.Errorf("%w: %s", ErrPolicyEmpty, p.Name)
	}
	for i, r := range p.Rules {
		if r.RefundPercent < 0 || r.RefundPercent > 100 {
			return fmt.Errorf("%w: %s rule %d", ErrPolicyPercentRange, p.Name, i)
		}
		if i == 0 {
			continue
		}
		prev := p.Rules[i-1]
		if r.DaysBeforeCheckin >= prev.DaysBeforeCheckin {
			return fmt.Errorf("%w: %s rule %d", ErrPolicyUnsorted, p.Name, i)
		}
		if r.RefundPercent > prev.RefundPercent {
			return fmt.Errorf("%w: %s rule %d", ErrPolicyNotMonotonic, p.Name, i)
		}
	}
	if last := p.Rules[len(p.Rules)-1]; last.DaysBeforeCheckin != 0 {
		return fmt.Errorf("%w: %s", ErrPolicyNoCatchAll, p.Name)
	}
	return nil
}

// Resolve returns the first rule whose threshold is reached. days is ignored
// when known is false, which selects the catch-all rule.
func (p Policy) Resolve(days int, known bool) Rule {
	if known {
		for _, r := range p.Rules {
			if days >= r.DaysBeforeCheckin {
				return r
			}
		}
	}
	return p.Rules[len(p.Rules)-1]
}

func (p Policy) clone() Policy {
	out := p
	out.Rules = append([]Rule(nil), p.Rules...)
	return out
}

// BuiltinPolicies returns fresh copies of the default tables.
func BuiltinPolicies() []Policy {
	return []Policy{
		{
			Name:        Flexible,
			DisplayName: "Flexible",
			Description: "Full refund up to 1 day before check-in, 50% after that.",
			Rules:       []Rule{{DaysBeforeCheckin: 1, RefundPercent: 100}, {DaysBeforeCheckin: 0, RefundPercent: 50}},
		},
		{
			Name:        Moderate,
			DisplayName: "Moderate",
			Description: "Full refund up to 5 days before check-in, 50% up to 2 days, none after that.",
			Rules: []Rule{
				{DaysBeforeCheckin: 5, RefundPercent: 100},
				{DaysBeforeCheckin: 2, RefundPercent: 50},
				{DaysBeforeCheckin: 0, RefundPercent: 0},
			},
		},
		{
			Name:        Strict,
			DisplayName: "Strict",
			Description: "Full refund up to 14 days before check-in, 50% up to 7 days, none after that.",
			Rules: []Rule{
				{DaysBeforeCheckin: 14, RefundPercent: 100},
				{DaysBeforeCheckin: 7, RefundPercent: 50},
				{DaysBeforeCheckin: 0, RefundPercent: 0},
			},
		},
	}
}

// Registry is an immutable set of named policies. It is safe for concurrent use.
type Registry struct {
	byName map[string]Policy
	names  []string
}

// NewRegistry validates every policy and requires the fallback policy to be present.
func NewRegistry(policies []Policy) (*Registry, error) {
	r := &Registry{byName: make(map[string]Policy, len(policies))}
	for _, p := range policies {
		p.Name = normalizeName(p.Name)
		if p.Name == "" {
			return nil, fmt.Errorf("%w: empty name", ErrPolicyNotFound)
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if p.DisplayName == "" {
			p.DisplayName = p.Name
		}
		if _, dup := r.byName[p.Name]; !dup {
			r.names = append(r.names, p.Name)
		}
		r.byName[p.Name] = p.clone()
	}
	if _, ok := r.byName[FallbackPolicy]; !ok {
		return nil, ErrFallbackMissing
	}
	sort.Strings(r.names)
	return r, nil
}

// DefaultRegistry holds the built-in flexible, moderate and strict tables.
var DefaultRegistry = MustRegistry(BuiltinPolicies())

func MustRegistry(policies []Policy) *Registry {
	r, err := NewRegistry(policies)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the named policy and whether it exists.
func (r *Registry) Lookup(name string) (Policy, bool) {
	p, ok := r.byName[normalizeName(name)]
	if !ok {
		return Policy{}, false
	}
	return p.clone(), true
}

// Resolve returns the named policy, falling back to moderate for unknown names.
func (r *Registry) Resolve(name string) Policy {
	if p, ok := r.Lookup(name); ok {
		return p
	}
	return r.byName[FallbackPolicy].clone()
}

// Policies lists every policy sorted by name.
func (r *Registry) Policies() []Policy {
	out := make([]Policy, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.byName[name].clone())
	}
	return out
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
