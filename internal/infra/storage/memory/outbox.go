package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "acropolis/internal/app/outbox"
	"acropolis/internal/app/uow"
)

type outboxEntry struct {
	record    appoutbox.EventRecord
	attempts  int
	nextRun   time.Time
	claimedBy string
	lastError string
}

// Outbox keeps committed events until the relay publishes them. Records added
// inside a write unit become visible only when that unit commits.
type Outbox struct {
	mu      sync.Mutex
	entries []*outboxEntry
	wake    chan struct{}
	now     func() time.Time
}

func NewOutbox() *Outbox {
	return &Outbox{wake: make(chan struct{}, 1), now: time.Now}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	if unit, ok := uow.FromContext(ctx); ok {
		if u, ok := unit.(*Unit); ok && !u.readOnly {
			u.stage(record)
			return nil
		}
	}
	o.append([]appoutbox.EventRecord{record})
	return nil
}

// Flush wakes the relay.
func (o *Outbox) Flush(ctx context.Context) error {
	select {
	case o.wake <- struct{}{}:
	default:
	}
	return nil
}

// Wake fires after Flush.
func (o *Outbox) Wake() <-chan struct{} {
	return o.wake
}

func (o *Outbox) append(records []appoutbox.EventRecord) {
	if len(records) == 0 {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, rec := range records {
		o.entries = append(o.entries, &outboxEntry{record: rec})
	}
}

// Claim hands the oldest due record to workerID.
func (o *Outbox) Claim(ctx context.Context, workerID string) (*appoutbox.PendingEvent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()
	for _, e := range o.entries {
		if e.claimedBy != "" || e.nextRun.After(now) {
			continue
		}
		e.claimedBy = workerID
		e.attempts++
		return &appoutbox.PendingEvent{EventRecord: e.record, Attempts: e.attempts}, nil
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	kept := o.entries[:0]
	for _, e := range o.entries {
		if e.record.ID == id {
			continue
		}
		kept = append(kept, e)
	}
	o.entries = kept
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, e := range o.entries {
		if e.record.ID == id {
			e.claimedBy = ""
			e.nextRun = next
			e.lastError = errMsg
		}
	}
	return nil
}

// Pending returns the records not yet published, oldest first.
func (o *Outbox) Pending() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]appoutbox.EventRecord, 0, len(o.entries))
	for _, e := range o.entries {
		out = append(out, e.record)
	}
	return out
}

var (
	_ appoutbox.Outbox = (*Outbox)(nil)
	_ appoutbox.Relay  = (*Outbox)(nil)
)
