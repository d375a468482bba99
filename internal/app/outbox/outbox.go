// Package outbox turns domain events into records that are staged with the
// command's unit of work and published after commit.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"

	"sawa/internal/domain/shared/events"
)

// EventRecord is the broker-ready form of a domain event. Aggregate becomes
// the Kafka message key so events of one host, offer or booking stay ordered.
type EventRecord struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
}

type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
	Flush(ctx context.Context) error
}

type EventEncoder interface {
	Encode(ctx context.Context, ev events.DomainEvent) (EventRecord, error)
}

// HeaderSource supplies request scoped headers such as the request id.
type HeaderSource func(ctx context.Context) map[string]string

// JSONEventEncoder marshals the event struct itself as the payload. Empty
// header values are dropped.
type JSONEventEncoder struct {
	IDGenerator func() string
	Headers     HeaderSource
}

func (e JSONEventEncoder) Encode(ctx context.Context, ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, fmt.Errorf("outbox: encode %s: %w", ev.EventName(), err)
	}
	newID := e.IDGenerator
	if newID == nil {
		newID = uuid.NewString
	}
	return EventRecord{
		ID:         newID(),
		Name:       ev.EventName(),
		Payload:    payload,
		OccurredAt: ev.OccurredAt().UTC(),
		Aggregate:  ev.AggregateID(),
		Headers:    e.headers(ctx),
	}, nil
}

func (e JSONEventEncoder) headers(ctx context.Context) map[string]string {
	out := map[string]string{}
	if e.Headers == nil {
		return out
	}
	maps.Copy(out, e.Headers(ctx))
	maps.DeleteFunc(out, func(_, v string) bool { return v == "" })
	return out
}

// Stage encodes evs with enc (JSONEventEncoder when nil) and adds them to box
// in order. A nil box stages nothing.
func Stage(ctx context.Context, box Outbox, enc EventEncoder, evs []events.DomainEvent) error {
	if box == nil {
		return nil
	}
	if enc == nil {
		enc = JSONEventEncoder{}
	}
	for _, ev := range evs {
		rec, err := enc.Encode(ctx, ev)
		if err != nil {
			return err
		}
		if err := box.Add(ctx, rec); err != nil {
			return fmt.Errorf("outbox: stage %s: %w", rec.Name, err)
		}
	}
	return nil
}
