package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gridpulse/gridpulse/internal/alerts"
	"github.com/gridpulse/gridpulse/internal/ingest"
	"github.com/gridpulse/gridpulse/internal/metrics"
	"github.com/gridpulse/gridpulse/internal/track"
)

// maxAreaHops caps the neighborhood radius of area queries. Each hop roughly
// triples the cell count, so 3 keeps the widest scan under ~40 cells.
const maxAreaHops = 3

// HealthChecker reports whether one backing store is reachable.
type HealthChecker func(ctx context.Context) error

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	svc     *ingest.Service
	tracker *track.Store
	alerts  *alerts.Engine
	liveOK  HealthChecker
	dbOK    HealthChecker
	mux     *http.ServeMux
}

// New creates a Handler wired to the pipeline service and registers all
// routes. tracker, alertEngine, and the health checkers may be nil.
func New(svc *ingest.Service, tracker *track.Store, alertEngine *alerts.Engine, liveOK, dbOK HealthChecker) http.Handler {
	h := &Handler{
		svc:     svc,
		tracker: tracker,
		alerts:  alertEngine,
		liveOK:  liveOK,
		dbOK:    dbOK,
		mux:     http.NewServeMux(),
	}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/pings", h.ping)
	h.mux.HandleFunc("/api/v1/congestion", h.congestion)
	h.mux.HandleFunc("/api/v1/congestion/area", h.congestionArea)
	h.mux.HandleFunc("/api/v1/cells", h.cells)
	h.mux.HandleFunc("/api/v1/alerts", h.listAlerts)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health — reachability of the backing stores.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok", Live: "ok", Database: "ok"}
	if h.liveOK != nil {
		if err := h.liveOK(ctx); err != nil {
			resp.Live = err.Error()
			resp.Status = "degraded"
		}
	}
	if h.dbOK != nil {
		if err := h.dbOK(ctx); err != nil {
			resp.Database = err.Error()
			resp.Status = "degraded"
		}
	}
	jsonResp(w, http.StatusOK, resp)
}

// ping handles POST /api/v1/pings — one device report.
func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	start := time.Now()
	defer func() {
		metrics.RequestDuration.WithLabelValues("pings").Observe(time.Since(start).Seconds())
	}()

	var req PingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.PingRequests.WithLabelValues("invalid").Inc()
		jsonErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	ping, err := validatePing(req)
	if err != nil {
		metrics.PingRequests.WithLabelValues("invalid").Inc()
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}

	res := h.svc.RecordPing(r.Context(), ping)
	metrics.PingRequests.WithLabelValues("ok").Inc()
	jsonResp(w, http.StatusOK, res)
}

// congestion returns GET /api/v1/congestion?lat=..&lon=.. — the scored state
// of the cell containing the coordinates.
func (h *Handler) congestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	start := time.Now()
	defer func() {
		metrics.RequestDuration.WithLabelValues("congestion").Observe(time.Since(start).Seconds())
	}()

	lat, lon, err := latLon(r)
	if err != nil {
		metrics.CongestionRequests.WithLabelValues("congestion", "invalid").Inc()
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}

	out := h.svc.Congestion(r.Context(), lat, lon)
	metrics.CongestionRequests.WithLabelValues("congestion", "ok").Inc()
	jsonResp(w, http.StatusOK, out)
}

// congestionArea returns GET /api/v1/congestion/area?lat=..&lon=..&k=1 — the
// rolled-up state of the surrounding neighborhood.
func (h *Handler) congestionArea(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	start := time.Now()
	defer func() {
		metrics.RequestDuration.WithLabelValues("congestion_area").Observe(time.Since(start).Seconds())
	}()

	lat, lon, err := latLon(r)
	if err != nil {
		metrics.CongestionRequests.WithLabelValues("area", "invalid").Inc()
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}

	k := 1
	if raw := r.URL.Query().Get("k"); raw != "" {
		k, err = strconv.Atoi(raw)
		if err != nil || k < 0 || k > maxAreaHops {
			metrics.CongestionRequests.WithLabelValues("area", "invalid").Inc()
			jsonErr(w, http.StatusBadRequest, "k must be an integer in [0, 3]")
			return
		}
	}

	out := h.svc.CongestionArea(r.Context(), lat, lon, k)
	metrics.CongestionRequests.WithLabelValues("area", "ok").Inc()
	jsonResp(w, http.StatusOK, out)
}

// cells returns GET /api/v1/cells — all recently observed cells.
func (h *Handler) cells(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.tracker == nil {
		jsonResp(w, http.StatusOK, []CellResponse{})
		return
	}
	jsonResp(w, http.StatusOK, BuildCellsSnapshot(h.tracker))
}

// listAlerts returns GET /api/v1/alerts — firing and recently resolved alerts.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.alerts == nil {
		jsonResp(w, http.StatusOK, []struct{}{})
		return
	}
	jsonResp(w, http.StatusOK, h.alerts.Active())
}

// --- helpers ----------------------------------------------------------------

// validatePing checks a PingRequest and converts it to the service type.
func validatePing(req PingRequest) (ingest.Ping, error) {
	if req.DeviceID == "" {
		return ingest.Ping{}, errBadRequest("device_id is required")
	}
	if req.Lat < -90 || req.Lat > 90 {
		return ingest.Ping{}, errBadRequest("lat must be in [-90, 90]")
	}
	if req.Lon < -180 || req.Lon > 180 {
		return ingest.Ping{}, errBadRequest("lon must be in [-180, 180]")
	}
	if req.SpeedKmh != nil && *req.SpeedKmh < 0 {
		return ingest.Ping{}, errBadRequest("speed_kmh must not be negative")
	}

	p := ingest.Ping{
		DeviceID: req.DeviceID,
		Lat:      req.Lat,
		Lon:      req.Lon,
		SpeedKmh: req.SpeedKmh,
	}
	if req.Timestamp != "" {
		ts, err := parseTimestamp(req.Timestamp)
		if err != nil {
			return ingest.Ping{}, errBadRequest("timestamp must be RFC 3339")
		}
		p.Timestamp = ts
	}
	return p, nil
}

// parseTimestamp accepts RFC 3339 with or without a zone; zoneless values are
// taken as UTC.
func parseTimestamp(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", raw, time.UTC)
}

func latLon(r *http.Request) (float64, float64, error) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, errBadRequest("lat must be a number in [-90, 90]")
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil || lon < -180 || lon > 180 {
		return 0, 0, errBadRequest("lon must be a number in [-180, 180]")
	}
	return lat, lon, nil
}

type errBadRequest string

func (e errBadRequest) Error() string { return string(e) }

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
