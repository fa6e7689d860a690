package alerts

import (
	"testing"
	"time"

	"github.com/gridpulse/gridpulse/internal/config"
)

func fp(v float64) *float64 { return &v }

func obs(cell string, count int, level string) Observation {
	return Observation{CellID: cell, VehicleCount: count, Level: level}
}

func engineWith(rules ...config.AlertRule) *Engine {
	return New(config.AlertsConfig{Rules: rules})
}

// Evaluate updates the active map synchronously; only webhook delivery is
// async, so Active can be read right after Evaluate.
func countActive(e *Engine) int { return len(e.Active()) }

func TestEvaluate_FiresOnCondition(t *testing.T) {
	e := engineWith(config.AlertRule{
		Name:      "crowded",
		Condition: "vehicle_count >= 30",
		Severity:  "critical",
	})

	e.Evaluate(obs("cell-a", 35, "HIGH"))

	active := e.Active()
	if len(active) != 1 {
		t.Fatalf("Active: got %d alerts, want 1", len(active))
	}
	a := active[0]
	if a.RuleName != "crowded" || a.CellID != "cell-a" || a.State != "firing" {
		t.Errorf("alert: got %+v", a)
	}
	if a.Value != 35 {
		t.Errorf("Value: got %v, want 35", a.Value)
	}
	if a.Level != "HIGH" || a.VehicleCount != 35 {
		t.Errorf("congestion state on alert: got level=%q count=%d", a.Level, a.VehicleCount)
	}
	if a.ID == "" {
		t.Error("ID: empty")
	}
}

func TestEvaluate_NoFireBelowThreshold(t *testing.T) {
	e := engineWith(config.AlertRule{Name: "crowded", Condition: "vehicle_count >= 30"})

	e.Evaluate(obs("cell-a", 29, "LOW"))

	if n := countActive(e); n != 0 {
		t.Errorf("Active: got %d alerts, want 0", n)
	}
}

func TestEvaluate_LevelCondition(t *testing.T) {
	e := engineWith(config.AlertRule{Name: "gridlock", Condition: "level == HIGH"})

	e.Evaluate(obs("cell-a", 5, "HIGH"))
	if n := countActive(e); n != 1 {
		t.Fatalf("Active after HIGH: got %d, want 1", n)
	}
}

func TestEvaluate_CooldownSuppressesRefire(t *testing.T) {
	e := engineWith(config.AlertRule{
		Name:      "crowded",
		Condition: "vehicle_count >= 30",
		Cooldown:  time.Hour,
	})

	e.Evaluate(obs("cell-a", 35, "HIGH"))
	e.Evaluate(obs("cell-a", 40, "HIGH"))

	if n := countActive(e); n != 1 {
		t.Errorf("Active after refire attempt: got %d, want 1", n)
	}
}

func TestEvaluate_ResolvesWhenConditionClears(t *testing.T) {
	e := engineWith(config.AlertRule{Name: "crowded", Condition: "vehicle_count >= 30"})

	e.Evaluate(obs("cell-a", 35, "HIGH"))
	e.Evaluate(obs("cell-a", 5, "LOW"))

	active := e.Active()
	if len(active) != 1 {
		t.Fatalf("Active: got %d, want 1 (recently resolved)", len(active))
	}
	if active[0].State != "resolved" || active[0].ResolvedAt == nil {
		t.Errorf("alert not resolved: %+v", active[0])
	}
}

func TestEvaluate_CellsIndependent(t *testing.T) {
	e := engineWith(config.AlertRule{Name: "crowded", Condition: "vehicle_count >= 30"})

	e.Evaluate(obs("cell-a", 35, "HIGH"))
	e.Evaluate(obs("cell-b", 40, "HIGH"))

	if n := countActive(e); n != 2 {
		t.Errorf("Active: got %d, want 2", n)
	}
}

func TestEvaluate_NoRulesIsNoOp(t *testing.T) {
	e := New(config.AlertsConfig{})
	e.Evaluate(obs("cell-a", 1000, "HIGH"))
	if n := countActive(e); n != 0 {
		t.Errorf("Active: got %d, want 0", n)
	}
}

func TestEvaluate_DefaultSeverity(t *testing.T) {
	e := engineWith(config.AlertRule{Name: "crowded", Condition: "vehicle_count >= 30"})

	e.Evaluate(obs("cell-a", 35, "HIGH"))
	if got := e.Active()[0].Severity; got != "warning" {
		t.Errorf("Severity: got %q, want warning", got)
	}
}

func TestReload_SwapsRules(t *testing.T) {
	e := engineWith(config.AlertRule{Name: "crowded", Condition: "vehicle_count >= 30"})

	e.Reload(config.AlertsConfig{Rules: []config.AlertRule{
		{Name: "slow", Condition: "avg_speed < 15"},
	}})

	// Old rule no longer fires; new rule does.
	e.Evaluate(obs("cell-a", 100, "HIGH"))
	if n := countActive(e); n != 0 {
		t.Fatalf("Active after reload with count rule removed: got %d, want 0", n)
	}

	o := obs("cell-a", 5, "HIGH")
	o.AvgSpeedKmh = fp(10)
	e.Evaluate(o)
	if n := countActive(e); n != 1 {
		t.Errorf("Active for new rule: got %d, want 1", n)
	}
}
