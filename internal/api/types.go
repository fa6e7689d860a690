package api

import (
	"sort"
	"time"

	"github.com/gridpulse/gridpulse/internal/track"
)

// PingRequest is the POST /api/v1/pings body.
type PingRequest struct {
	DeviceID string   `json:"device_id"`
	Lat      float64  `json:"lat"`
	Lon      float64  `json:"lon"`
	SpeedKmh *float64 `json:"speed_kmh,omitempty"`

	// Timestamp is optional RFC 3339; empty means "now". A timestamp without
	// a zone is taken as UTC.
	Timestamp string `json:"timestamp,omitempty"`
}

// HealthResponse is the GET /api/v1/health body.
type HealthResponse struct {
	Status   string `json:"status"` // "ok" | "degraded"
	Live     string `json:"live"`
	Database string `json:"database"`
}

// CellResponse is one entry in the GET /api/v1/cells listing and the
// WebSocket cells snapshot.
type CellResponse struct {
	CellID       string   `json:"cell_id"`
	VehicleCount int      `json:"vehicle_count"`
	AvgSpeedKmh  *float64 `json:"avg_speed_kmh,omitempty"`
	Level        string   `json:"level"`
	Method       string   `json:"method"`
	LastSeen     string   `json:"last_seen"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// BuildCellsSnapshot maps the live cell registry to its JSON representation,
// freshest first.
func BuildCellsSnapshot(tracker *track.Store) []CellResponse {
	entries := tracker.List()
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
	})
	out := make([]CellResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, CellResponse{
			CellID:       e.Obs.CellID,
			VehicleCount: e.Obs.VehicleCount,
			AvgSpeedKmh:  e.Obs.AvgSpeedKmh,
			Level:        e.Obs.Level,
			Method:       e.Obs.Method,
			LastSeen:     e.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}
