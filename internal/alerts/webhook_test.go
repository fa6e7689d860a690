package alerts

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gridpulse/gridpulse/internal/config"
)

// captureServer records each webhook POST body on a channel.
func captureServer(t *testing.T) (*httptest.Server, <-chan []byte) {
	t.Helper()
	bodies := make(chan []byte, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies <- b
	}))
	t.Cleanup(srv.Close)
	return srv, bodies
}

func waitBody(t *testing.T, bodies <-chan []byte) []byte {
	t.Helper()
	select {
	case b := <-bodies:
		return b
	case <-time.After(3 * time.Second):
		t.Fatal("webhook was not delivered")
		return nil
	}
}

func fireCrowdedCell(e *Engine) {
	o := obs("cell-a", 35, "HIGH")
	o.AvgSpeedKmh = fp(12)
	e.Evaluate(o)
}

func TestDeliver_SlackCarriesCongestionState(t *testing.T) {
	srv, bodies := captureServer(t)
	t.Setenv("TEST_WEBHOOK_URL", srv.URL)

	e := New(config.AlertsConfig{
		Rules:    []config.AlertRule{{Name: "crowded", Condition: "vehicle_count >= 30"}},
		Webhooks: []config.WebhookConfig{{Type: "slack", URLEnv: "TEST_WEBHOOK_URL"}},
	})
	fireCrowdedCell(e)

	var msg struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(waitBody(t, bodies), &msg); err != nil {
		t.Fatalf("unmarshal slack payload: %v", err)
	}
	for _, want := range []string{"cell-a", "HIGH", "35 vehicles", "[WARNING]"} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("slack text missing %q:\n%s", want, msg.Text)
		}
	}
}

func TestDeliver_TeamsCardFacts(t *testing.T) {
	srv, bodies := captureServer(t)
	t.Setenv("TEST_WEBHOOK_URL", srv.URL)

	e := New(config.AlertsConfig{
		Rules:    []config.AlertRule{{Name: "crowded", Condition: "vehicle_count >= 30", Severity: "critical"}},
		Webhooks: []config.WebhookConfig{{Type: "teams", URLEnv: "TEST_WEBHOOK_URL"}},
	})
	fireCrowdedCell(e)

	var card struct {
		Title    string `json:"title"`
		Sections []struct {
			Facts []struct {
				Name  string `json:"name"`
				Value string `json:"value"`
			} `json:"facts"`
		} `json:"sections"`
	}
	if err := json.Unmarshal(waitBody(t, bodies), &card); err != nil {
		t.Fatalf("unmarshal teams payload: %v", err)
	}
	if !strings.Contains(card.Title, "crowded") {
		t.Errorf("title: got %q", card.Title)
	}
	if len(card.Sections) != 1 {
		t.Fatalf("sections: got %d, want 1", len(card.Sections))
	}
	facts := make(map[string]string)
	for _, f := range card.Sections[0].Facts {
		facts[f.Name] = f.Value
	}
	if facts["Cell"] != "cell-a" || facts["Level"] != "HIGH" || facts["Vehicles"] != "35" {
		t.Errorf("facts: got %v", facts)
	}
}

func TestDeliver_HTTPCarriesFullAlert(t *testing.T) {
	srv, bodies := captureServer(t)
	t.Setenv("TEST_WEBHOOK_URL", srv.URL)

	e := New(config.AlertsConfig{
		Rules:    []config.AlertRule{{Name: "crowded", Condition: "vehicle_count >= 30"}},
		Webhooks: []config.WebhookConfig{{Type: "http", URLEnv: "TEST_WEBHOOK_URL"}},
	})
	fireCrowdedCell(e)

	var payload struct {
		Alert Alert `json:"alert"`
	}
	if err := json.Unmarshal(waitBody(t, bodies), &payload); err != nil {
		t.Fatalf("unmarshal http payload: %v", err)
	}
	a := payload.Alert
	if a.CellID != "cell-a" || a.Level != "HIGH" || a.VehicleCount != 35 || a.Value != 35 {
		t.Errorf("alert: got %+v", a)
	}
}

func TestDeliver_EmptyURLSkipped(t *testing.T) {
	// URLEnv unset: the target is skipped without an HTTP call or a panic.
	e := New(config.AlertsConfig{
		Rules:    []config.AlertRule{{Name: "crowded", Condition: "vehicle_count >= 30"}},
		Webhooks: []config.WebhookConfig{{Type: "slack", URLEnv: "TEST_UNSET_WEBHOOK_URL"}},
	})
	fireCrowdedCell(e)

	if n := len(e.Active()); n != 1 {
		t.Errorf("Active: got %d, want 1", n)
	}
}
