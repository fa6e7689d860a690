package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
)

// deliver sends webhook notifications for a to all configured targets.
// Errors are logged but do not affect the caller.
func (e *Engine) deliver(a *Alert) {
	e.mu.Lock()
	webhooks := e.webhooks
	e.mu.Unlock()

	for _, wh := range webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}

		var err error
		switch wh.Type {
		case "slack":
			err = e.sendSlack(url, a)
		case "teams":
			err = e.sendTeams(url, a)
		case "pagerduty", "http":
			err = e.sendHTTP(url, a)
		default:
			slog.Warn("alerts: unknown webhook type — skipping", "type", wh.Type)
			continue
		}

		if err != nil {
			slog.Error("alerts: webhook delivery failed",
				"type", wh.Type,
				"rule", a.RuleName,
				"err", err,
			)
		} else {
			slog.Debug("alerts: webhook delivered",
				"type", wh.Type,
				"rule", a.RuleName,
				"state", a.State,
			)
		}
	}
}

// sendSlack posts a plain-text message: the alert headline plus a one-line
// summary of the cell's congestion state.
func (e *Engine) sendSlack(url string, a *Alert) error {
	head := fmt.Sprintf("*%s* %s", severityLabel(a.Severity), a.Message)
	if a.State == "resolved" {
		head = fmt.Sprintf("*[RESOLVED]* %s on cell %s", a.RuleName, a.CellID)
	}
	body, _ := json.Marshal(map[string]string{
		"text": fmt.Sprintf("%s\ncell %s, level %s, %d vehicles",
			head, a.CellID, a.Level, a.VehicleCount),
	})
	return e.post(url, body)
}

// sendTeams posts a MessageCard with the congestion state as facts.
func (e *Engine) sendTeams(url string, a *Alert) error {
	payload := map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": severityColor(a.Severity),
		"summary":    a.RuleName,
		"title":      fmt.Sprintf("GridPulse Alert: %s (%s)", a.RuleName, a.State),
		"text":       a.Message,
		"sections": []map[string]interface{}{{
			"facts": []map[string]string{
				{"name": "Cell", "value": a.CellID},
				{"name": "Level", "value": a.Level},
				{"name": "Vehicles", "value": strconv.Itoa(a.VehicleCount)},
				{"name": "Severity", "value": a.Severity},
			},
		}},
	}
	body, _ := json.Marshal(payload)
	return e.post(url, body)
}

// sendHTTP posts the full alert as JSON; pagerduty endpoints consume the same
// shape through an event transformer.
func (e *Engine) sendHTTP(url string, a *Alert) error {
	body, _ := json.Marshal(map[string]interface{}{"alert": a})
	return e.post(url, body)
}

func (e *Engine) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func severityLabel(s string) string {
	switch s {
	case "critical":
		return "[CRITICAL]"
	case "warning":
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

func severityColor(s string) string {
	switch s {
	case "critical":
		return "FF4F6A"
	case "warning":
		return "FFAB40"
	default:
		return "00D4FF"
	}
}
