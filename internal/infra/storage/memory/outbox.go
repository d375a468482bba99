package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "sawa/internal/app/outbox"
	"sawa/internal/app/uow"
	infraoutbox "sawa/internal/infra/outbox"
)

const defaultRetainSent = 1024

type eventEntry = infraoutbox.EventDocument

// Outbox keeps outbox entries in memory so the same worker that drains Mongo
// can drain it. Entries added inside a memory unit of work only become
// visible when the unit commits.
type Outbox struct {
	mu         sync.Mutex
	docs       []*infraoutbox.EventDocument
	now        func() time.Time
	retainSent int
}

func NewOutbox() *Outbox {
	return &Outbox{now: time.Now, retainSent: defaultRetainSent}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	doc := infraoutbox.NewEventDocument(record, o.clock())
	if unit, ok := uow.FromContext(ctx); ok {
		if mem, ok := unit.(*Unit); ok {
			mem.stageEvent(doc)
			return nil
		}
	}
	o.append(doc)
	return nil
}

func (o *Outbox) Flush(context.Context) error {
	return nil
}

func (o *Outbox) append(docs ...eventEntry) {
	if len(docs) == 0 {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range docs {
		doc := docs[i]
		o.docs = append(o.docs, &doc)
	}
}

func (o *Outbox) Claim(_ context.Context, workerID string) (*infraoutbox.EventDocument, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.clock()
	o.pruneSentLocked()
	for _, d := range o.docs {
		if (d.State == infraoutbox.StateNew || d.State == infraoutbox.StateFailed) && !d.NextAttempt.After(now) {
			d.State = infraoutbox.StateClaimed
			d.ClaimedBy = workerID
			d.ClaimedAt = now
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (o *Outbox) MarkSent(_ context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if d := o.findLocked(id); d != nil {
		d.State = infraoutbox.StateSent
		d.SentAt = o.clock()
	}
	return nil
}

func (o *Outbox) MarkFailed(_ context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if d := o.findLocked(id); d != nil {
		d.State = infraoutbox.StateFailed
		d.NextAttempt = next
		d.LastError = errMsg
		d.Attempts++
	}
	return nil
}

// Entries returns a snapshot of every retained entry in insertion order.
func (o *Outbox) Entries() []infraoutbox.EventDocument {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]infraoutbox.EventDocument, 0, len(o.docs))
	for _, d := range o.docs {
		out = append(out, *d)
	}
	return out
}

func (o *Outbox) findLocked(id string) *infraoutbox.EventDocument {
	for _, d := range o.docs {
		if d.ID == id {
			return d
		}
	}
	return nil
}

func (o *Outbox) pruneSentLocked() {
	sent := 0
	for _, d := range o.docs {
		if d.State == infraoutbox.StateSent {
			sent++
		}
	}
	if sent <= o.retainSent {
		return
	}
	kept := o.docs[:0]
	for _, d := range o.docs {
		if d.State == infraoutbox.StateSent && sent > o.retainSent {
			sent--
			continue
		}
		kept = append(kept, d)
	}
	o.docs = kept
}

func (o *Outbox) clock() time.Time {
	if o.now != nil {
		return o.now().UTC()
	}
	return time.Now().UTC()
}

var _ infraoutbox.Store = (*Outbox)(nil)
