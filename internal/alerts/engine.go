package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gridpulse/gridpulse/internal/config"
)

const (
	defaultCooldown   = 15 * time.Minute
	maxHistoryLen     = 200
	recentWindowHours = 1
)

// Observation is the scored cell state alert rules are evaluated against.
type Observation struct {
	CellID       string
	VehicleCount int
	AvgSpeedKmh  *float64
	Level        string
	CombinedZ    *float64
	SampleCount  int
}

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID           string     `json:"id"`
	RuleName     string     `json:"rule_name"`
	CellID       string     `json:"cell_id"`
	Severity     string     `json:"severity"`
	Message      string     `json:"message"`
	Value        float64    `json:"value"`
	Level        string     `json:"level"`
	VehicleCount int        `json:"vehicle_count"`
	FiredAt      time.Time  `json:"fired_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
	State        string     `json:"state"` // "firing" | "resolved"
}

// Engine evaluates alert rules against scored cell observations and delivers
// webhook notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	rules    []config.AlertRule
	webhooks []config.WebhookConfig
	active   map[string]*Alert    // key: "ruleName:cellID"
	lastFire map[string]time.Time // last fire time per key (for cooldown)
	history  []*Alert             // recently resolved alerts
	client   *http.Client
}

// New creates an Engine from the alert configuration.
// An Engine with empty rules is valid — Evaluate becomes a no-op.
func New(cfg config.AlertsConfig) *Engine {
	return &Engine{
		rules:    cfg.Rules,
		webhooks: cfg.Webhooks,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Reload swaps the rule set and webhook targets. Active alerts and cooldown
// state survive the reload so editing rules does not re-fire everything.
func (e *Engine) Reload(cfg config.AlertsConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = cfg.Rules
	e.webhooks = cfg.Webhooks
	slog.Info("alerts: rules reloaded", "rules", len(cfg.Rules), "webhooks", len(cfg.Webhooks))
}

// Evaluate tests all configured rules against obs.
// Alerts that fire are stored and webhook delivery is triggered asynchronously.
// Alerts that were firing but whose condition is now false are resolved.
func (e *Engine) Evaluate(obs Observation) {
	e.mu.Lock()
	rules := e.rules
	e.mu.Unlock()
	if len(rules) == 0 {
		return
	}

	now := time.Now()
	for _, rule := range rules {
		key := rule.Name + ":" + obs.CellID
		fires, value := evalCondition(rule.Condition, obs)

		e.mu.Lock()

		if fires {
			cooldown := rule.Cooldown
			if cooldown <= 0 {
				cooldown = defaultCooldown
			}
			if now.Sub(e.lastFire[key]) > cooldown {
				sev := rule.Severity
				if sev == "" {
					sev = "warning"
				}
				a := &Alert{
					ID:           uuid.NewString(),
					RuleName:     rule.Name,
					CellID:       obs.CellID,
					Severity:     sev,
					Value:        value,
					Level:        obs.Level,
					VehicleCount: obs.VehicleCount,
					Message: fmt.Sprintf("[%s] %s fired on cell %s — %s = %.2f",
						sev, rule.Name, obs.CellID, rule.Condition, value),
					FiredAt: now,
					State:   "firing",
				}
				e.active[key] = a
				e.lastFire[key] = now
				alertCopy := *a
				e.mu.Unlock()

				slog.Warn("alert fired",
					"rule", rule.Name,
					"cell", obs.CellID,
					"value", value,
					"severity", sev,
				)
				go e.deliver(&alertCopy)
			} else {
				e.mu.Unlock()
			}
		} else {
			if a, ok := e.active[key]; ok && a.State == "firing" {
				resolved := now
				a.State = "resolved"
				a.ResolvedAt = &resolved
				delete(e.active, key)

				e.history = append(e.history, a)
				if len(e.history) > maxHistoryLen {
					e.history = e.history[len(e.history)-maxHistoryLen:]
				}
				alertCopy := *a
				e.mu.Unlock()

				slog.Info("alert resolved",
					"rule", rule.Name,
					"cell", obs.CellID,
				)
				go e.deliver(&alertCopy)
			} else {
				e.mu.Unlock()
			}
		}
	}
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := time.Now().Add(-recentWindowHours * time.Hour)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out
}
