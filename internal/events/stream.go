package events

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// StreamPublisher appends events to a Redis stream with approximate
// length-capped trimming, so the feed holds roughly the last MaxLen events.
type StreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewStreamPublisher returns a publisher writing to the named stream.
// Zero-value stream and maxLen select the defaults.
func NewStreamPublisher(client *redis.Client, stream string, maxLen int64) *StreamPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxStreamLen
	}
	return &StreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

// Publish appends ev to the stream. Values are flat strings so consumers in
// any language can read the entry without a JSON decoder.
func (p *StreamPublisher) Publish(ctx context.Context, ev Event) {
	values := map[string]interface{}{
		"event_id":   ev.ID,
		"event_type": ev.Type,
		"cell_id":    ev.CellID,
		"timestamp":  ev.Timestamp.Format("2006-01-02T15:04:05.999999Z07:00"),
	}
	if ev.DeviceID != "" {
		values["device_id"] = ev.DeviceID
	}
	if ev.Type == TypeHighCongestion {
		values["vehicle_count"] = strconv.Itoa(ev.VehicleCount)
		values["level"] = ev.Level
	}

	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: values,
	}).Err()
	if err != nil {
		slog.Warn("events: stream publish failed",
			"stream", p.stream, "type", ev.Type, "cell", ev.CellID, "err", err)
	}
}

// Close is a no-op; the Redis client is shared and closed by its owner.
func (p *StreamPublisher) Close() error { return nil }
