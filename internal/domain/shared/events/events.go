// Package events holds the facts aggregates record for the outbox.
package events

import (
	"slices"
	"time"
)

// DomainEvent names a fact about one aggregate. EventName doubles as the
// Kafka topic suffix.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// Recorder is embedded by aggregates; nil events are ignored.
type Recorder struct {
	pending []DomainEvent
}

func (r *Recorder) Record(event DomainEvent) {
	if event != nil {
		r.pending = append(r.pending, event)
	}
}

func (r *Recorder) PendingEvents() []DomainEvent { return slices.Clone(r.pending) }

func (r *Recorder) ClearEvents() { r.pending = nil }

// Drain hands over the pending events in record order.
func (r *Recorder) Drain() []DomainEvent {
	out := r.pending
	r.pending = nil
	return out
}
