package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	appoutbox "acropolis/internal/app/outbox"
)

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Worker relays outbox records to the producer as CloudEvents. It polls every
// Interval and drains immediately when Wake fires.
type Worker struct {
	Relay       appoutbox.Relay
	Producer    Producer
	Wake        <-chan struct{}
	Logger      *slog.Logger
	Interval    time.Duration
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
}

func (w *Worker) Run(ctx context.Context) error {
	if w.Relay == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-w.Wake:
		}
		if err := w.Drain(ctx); err != nil {
			return err
		}
	}
}

// Drain publishes due records until none is left.
func (w *Worker) Drain(ctx context.Context) error {
	for {
		processed, err := w.processOnce(ctx)
		if err != nil || !processed {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (w *Worker) processOnce(ctx context.Context) (bool, error) {
	ev, err := w.Relay.Claim(ctx, w.workerID())
	if err != nil || ev == nil {
		return false, err
	}
	topic := w.topicFor(ev.Name)
	payload, headers, err := w.formatPayload(ev)
	if err == nil {
		err = w.Producer.Publish(ctx, topic, ev.Aggregate, payload, headers)
	}
	if err != nil {
		w.logger().Warn("outbox publish failed", slog.String("event", ev.Name), slog.String("id", ev.ID), slog.Int("attempts", ev.Attempts), slog.Any("err", err))
		return true, w.Relay.MarkFailed(ctx, ev.ID, w.nextRetry(ev.Attempts), err.Error())
	}
	return true, w.Relay.MarkSent(ctx, ev.ID)
}

func (w *Worker) formatPayload(ev *appoutbox.PendingEvent) ([]byte, map[string]string, error) {
	data := map[string]any{}
	if err := json.Unmarshal(ev.Payload, &data); err != nil {
		return nil, nil, err
	}
	evt := map[string]any{
		"specversion":     "1.0",
		"id":              ev.ID,
		"type":            ev.Name + ".v1",
		"source":          w.source(),
		"subject":         ev.Aggregate,
		"time":            ev.OccurredAt,
		"datacontenttype": "application/json",
		"data":            data,
	}
	if trace, ok := ev.Headers["traceparent"]; ok {
		evt["traceparent"] = trace
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{
		"content-type": "application/cloudevents+json",
	}
	for k, v := range ev.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

// topicFor maps booking.confirmed to booking.events.v1.
func (w *Worker) topicFor(name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	topic := base + ".events.v1"
	if w.TopicPrefix != "" {
		topic = w.TopicPrefix + topic
	}
	return topic
}

func (w *Worker) workerID() string {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return w.ID
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) nextRetry(attempts int) time.Time {
	idx := attempts - 1
	if idx < 0 {
		idx = 0
	}
	if idx < len(w.Backoff) {
		return time.Now().Add(w.Backoff[idx])
	}
	if len(w.Backoff) > 0 {
		return time.Now().Add(w.Backoff[len(w.Backoff)-1])
	}
	return time.Now().Add(5 * time.Second)
}

func (w *Worker) source() string {
	if w.Source != "" {
		return w.Source
	}
	return "app://acropolis"
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")
