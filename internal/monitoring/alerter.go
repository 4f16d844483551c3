package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/radreport/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertRunFailureRate AlertType = "run_failure_rate"
	AlertS1Rate         AlertType = "s1_rate"
	AlertQAFailRate     AlertType = "qa_fail_rate"
)

// minRunsForAlert keeps small samples from alerting.
const minRunsForAlert = 5

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
// A zero threshold disables its check.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	finished := snap.RunsComplete + snap.RunsFailed
	if a.cfg.FailureRateThreshold > 0 && finished >= minRunsForAlert && snap.FailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertRunFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Run failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished in last %dh)",
				snap.FailRate*100, a.cfg.FailureRateThreshold*100,
				snap.RunsFailed, finished, snap.LookbackHours,
			),
			Details: map[string]any{
				"failure_rate": snap.FailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.RunsFailed,
				"finished":     finished,
			},
			Timestamp: now,
		})
	}

	if snap.RunsComplete < minRunsForAlert {
		return alerts
	}

	if a.cfg.S1RateThreshold > 0 && snap.S1Rate > a.cfg.S1RateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertS1Rate,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%.1f%% of reports routed to S1 review, threshold %.1f%% (%d of %d in last %dh)",
				snap.S1Rate*100, a.cfg.S1RateThreshold*100,
				snap.TierS1, snap.RunsComplete, snap.LookbackHours,
			),
			Details: map[string]any{
				"s1_rate":   snap.S1Rate,
				"threshold": a.cfg.S1RateThreshold,
				"tier_s1":   snap.TierS1,
				"complete":  snap.RunsComplete,
			},
			Timestamp: now,
		})
	}

	qaFailRate := 1 - snap.QAPassRate
	if a.cfg.QAFailRateThreshold > 0 && qaFailRate > a.cfg.QAFailRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertQAFailRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"QA failed after healing on %.1f%% of reports, threshold %.1f%% in last %dh",
				qaFailRate*100, a.cfg.QAFailRateThreshold*100, snap.LookbackHours,
			),
			Details: map[string]any{
				"qa_fail_rate":  qaFailRate,
				"threshold":     a.cfg.QAFailRateThreshold,
				"auto_fix_rate": snap.AutoFixRate,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
