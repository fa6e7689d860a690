package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the ingestion pipeline.
const (
	TypePingReceived   = "ping_received"
	TypeHighCongestion = "high_congestion"
)

// Defaults for the Redis stream sink.
const (
	DefaultStream       = "congestion:events"
	DefaultMaxStreamLen = 10000
)

// Event is one occurrence in the congestion event feed.
type Event struct {
	ID        string    `json:"event_id"`
	Type      string    `json:"event_type"`
	CellID    string    `json:"cell_id"`
	Timestamp time.Time `json:"timestamp"`

	// DeviceID is set on ping_received events.
	DeviceID string `json:"device_id,omitempty"`

	// VehicleCount and Level are set on high_congestion events.
	VehicleCount int    `json:"vehicle_count,omitempty"`
	Level        string `json:"level,omitempty"`
}

// NewEvent returns an Event of the given type with a fresh ID and timestamp.
func NewEvent(eventType, cellID string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		CellID:    cellID,
		Timestamp: time.Now().UTC(),
	}
}

// Publisher delivers events to downstream consumers. Publishing is
// best-effort: implementations log failures and return, they never block the
// ingestion path on a broken sink.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
	Close() error
}

// Nop is a Publisher that discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
func (Nop) Close() error                   { return nil }

// Multi fans one event out to several publishers.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) {
	for _, p := range m {
		p.Publish(ctx, ev)
	}
}

func (m Multi) Close() error {
	var first error
	for _, p := range m {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
