package cancellation

import "strings"

// Actor is the party that initiated the cancellation.
type Actor string

const (
	ActorTraveler Actor = "traveler"
	ActorHost     Actor = "host"
	ActorAdmin    Actor = "admin"
)

type Reason string

const (
	ReasonChangeOfPlans    Reason = "change_of_plans"
	ReasonFoundAlternative Reason = "found_alternative"
	ReasonEmergency        Reason = "emergency"
	ReasonHostUnavailable  Reason = "host_unavailable"
	ReasonMaintenance      Reason = "maintenance"
	ReasonPricingError     Reason = "pricing_error"
	ReasonPolicyViolation  Reason = "policy_violation"
	ReasonFraud            Reason = "fraud"
	ReasonOther            Reason = "other"
)

var reasonsByActor = map[Actor][]Reason{
	ActorTraveler: {ReasonChangeOfPlans, ReasonFoundAlternative, ReasonEmergency, ReasonOther},
	ActorHost:     {ReasonHostUnavailable, ReasonMaintenance, ReasonPricingError, ReasonOther},
	ActorAdmin:    {ReasonPolicyViolation, ReasonFraud, ReasonOther},
}

func ParseActor(raw string) (Actor, bool) {
	a := Actor(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := reasonsByActor[a]
	return a, ok
}

// Reasons lists the codes an actor may pick from.
func Reasons(a Actor) []Reason {
	return append([]Reason(nil), reasonsByActor[a]...)
}

// NormalizeReason maps codes the actor cannot use to ReasonOther.
func NormalizeReason(a Actor, raw string) Reason {
	r := Reason(strings.ToLower(strings.TrimSpace(raw)))
	for _, allowed := range reasonsByActor[a] {
		if r == allowed {
			return r
		}
	}
	return ReasonOther
}
