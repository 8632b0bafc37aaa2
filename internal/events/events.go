// Package events publishes sparkd domain events.
//
// Events are published to NATS subjects of the form:
//   - {prefix}.redemption.created
//   - {prefix}.reflection.submitted
//   - {prefix}.quest.assigned
//
// Publication is best effort: callers log failures and carry on, since the
// state change the event describes has already been committed.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/fyrsmithlabs/sparkd/internal/logging"
)

// Event types.
const (
	RedemptionCreated   = "redemption.created"
	ReflectionSubmitted = "reflection.submitted"
	QuestAssigned       = "quest.assigned"
)

// Event is the envelope published for every domain event.
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	UserID     string      `json:"user_id"`
	RequestID  string      `json:"request_id,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// New builds an event, taking the request id from ctx when present.
func New(ctx context.Context, eventType, userID string, data interface{}) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		UserID:     userID,
		RequestID:  logging.RequestIDFromContext(ctx),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Publisher publishes domain events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }

// NATSPublisher publishes JSON-encoded events to NATS.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
}

// NewNATSPublisher creates a publisher on an established connection.
func NewNATSPublisher(nc *nats.Conn, prefix string) (*NATSPublisher, error) {
	if nc == nil {
		return nil, fmt.Errorf("nats connection is required")
	}
	if prefix == "" {
		prefix = "sparkd"
	}
	return &NATSPublisher{nc: nc, prefix: prefix}, nil
}

// Subject returns the subject an event type is published on.
func (p *NATSPublisher) Subject(eventType string) string {
	return p.prefix + "." + eventType
}

// Publish implements Publisher.
func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}

	msg := nats.NewMsg(p.Subject(ev.Type))
	msg.Data = data
	msg.Header.Set("Sparkd-Event-Id", ev.ID)
	msg.Header.Set("Sparkd-User-Id", ev.UserID)
	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s event: %w", ev.Type, err)
	}
	return nil
}

// Connect dials NATS with the reconnect policy sparkd uses.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("sparkd"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	return nc, nil
}
