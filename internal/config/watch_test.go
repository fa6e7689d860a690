package config

import (
	"context"
	"os"
	"testing"
	"time"
)

const watchTimeout = 3 * time.Second

// startWatcher runs WatchAlertRules against path and returns a channel of
// applied alert sections plus the watcher's exit channel.
func startWatcher(t *testing.T, ctx context.Context, path string) (<-chan AlertsConfig, <-chan error) {
	t.Helper()
	applied := make(chan AlertsConfig, 4)
	done := make(chan error, 1)
	go func() {
		done <- WatchAlertRules(ctx, path, func(a AlertsConfig) { applied <- a })
	}()
	// Give the watcher a moment to register the file before we rewrite it.
	time.Sleep(100 * time.Millisecond)
	return applied, done
}

func rewrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
}

func TestWatchAlertRules_AppliesChangedRules(t *testing.T) {
	path := writeConfig(t, "{}")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	applied, done := startWatcher(t, ctx, path)

	rewrite(t, path, `
alerts:
  rules:
    - name: gridlock
      condition: "level == HIGH"
      severity: critical
`)

	select {
	case a := <-applied:
		if len(a.Rules) != 1 || a.Rules[0].Name != "gridlock" {
			t.Errorf("applied rules: got %+v", a.Rules)
		}
	case <-time.After(watchTimeout):
		t.Fatal("rule change was not applied")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("WatchAlertRules: %v", err)
	}
}

func TestWatchAlertRules_InvalidRewriteKeepsActiveRules(t *testing.T) {
	path := writeConfig(t, "{}")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	applied, _ := startWatcher(t, ctx, path)

	// A broken rewrite must be rejected without a callback.
	rewrite(t, path, ":::")

	select {
	case a := <-applied:
		t.Fatalf("broken file was applied: %+v", a)
	case <-time.After(300 * time.Millisecond):
	}

	// The watcher must survive the bad rewrite and pick up the next good one.
	rewrite(t, path, `
alerts:
  rules:
    - name: slow-traffic
      condition: "avg_speed < 15"
`)

	select {
	case a := <-applied:
		if len(a.Rules) != 1 || a.Rules[0].Name != "slow-traffic" {
			t.Errorf("applied rules after recovery: got %+v", a.Rules)
		}
	case <-time.After(watchTimeout):
		t.Fatal("watcher did not recover after an invalid rewrite")
	}
}

func TestWatchAlertRules_UnchangedAlertsNotReapplied(t *testing.T) {
	path := writeConfig(t, "{}")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	applied, _ := startWatcher(t, ctx, path)

	// The alerts section is untouched; only an unrelated knob changes.
	rewrite(t, path, "server:\n  http_port: 9090")

	select {
	case a := <-applied:
		t.Fatalf("unchanged alert rules were reapplied: %+v", a)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatchAlertRules_MissingFile(t *testing.T) {
	err := WatchAlertRules(context.Background(), "/does/not/exist.yaml", func(AlertsConfig) {})
	if err == nil {
		t.Error("WatchAlertRules on a missing file: expected error")
	}
}
