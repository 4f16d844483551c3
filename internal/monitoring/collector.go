// Package monitoring summarizes recent runs and raises alerts when review
// load or failure rates drift.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/radreport/internal/model"
	"github.com/sells-group/radreport/internal/store"
)

// MetricsSnapshot holds a point-in-time view of recent runs.
type MetricsSnapshot struct {
	RunsTotal    int     `json:"runs_total"`
	RunsComplete int     `json:"runs_complete"`
	RunsFailed   int     `json:"runs_failed"`
	RunsInFlight int     `json:"runs_in_flight"`
	FailRate     float64 `json:"fail_rate"`

	// Review tiers, complete runs only.
	TierS1 int     `json:"tier_s1"`
	TierS2 int     `json:"tier_s2"`
	TierS3 int     `json:"tier_s3"`
	S1Rate float64 `json:"s1_rate"`

	QAPassRate      float64 `json:"qa_pass_rate"`
	AutoFixRate     float64 `json:"auto_fix_rate"`
	AvgHealAttempts float64 `json:"avg_heal_attempts"`
	AvgLatencyMs    int64   `json:"avg_latency_ms"`

	RecommendationsSanitized int `json:"recommendations_sanitized"`
	RecommendationsDegraded  int `json:"recommendations_degraded"`
	ImpressionsSoftened      int `json:"impressions_softened"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister is the store method the collector needs.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector gathers metrics from the run store.
type Collector struct {
	runs RunLister
	now  func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs, now: time.Now}
}

// Collect gathers a snapshot of run metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	runs, err := c.runs.ListRuns(ctx, store.RunFilter{
		CreatedAfter: now.Add(-time.Duration(lookbackHours) * time.Hour),
		Limit:        10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.RunsTotal = len(runs)
	var qaPassed, autoFixed, healAttempts int
	var latency int64

	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusFailed:
			snap.RunsFailed++
			continue
		default:
			snap.RunsInFlight++
			continue
		}

		switch r.RiskTier {
		case model.RiskS1:
			snap.TierS1++
		case model.RiskS2:
			snap.TierS2++
		case model.RiskS3:
			snap.TierS3++
		}
		if r.QAPassed {
			qaPassed++
		}

		res := r.Result
		if res == nil {
			continue
		}
		if res.Heal.AutoFixApplied {
			autoFixed++
		}
		healAttempts += res.Heal.Attempts
		latency += res.Report.Metadata.LatencyMs
		snap.RecommendationsSanitized += res.Guard.RecommendationsSanitized
		if res.Guard.RecommendationsDegraded {
			snap.RecommendationsDegraded++
		}
		if res.Guard.ImpressionSoftened {
			snap.ImpressionsSoftened++
		}
	}

	if finished := snap.RunsComplete + snap.RunsFailed; finished > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(finished)
	}
	if n := snap.RunsComplete; n > 0 {
		snap.S1Rate = float64(snap.TierS1) / float64(n)
		snap.QAPassRate = float64(qaPassed) / float64(n)
		snap.AutoFixRate = float64(autoFixed) / float64(n)
		snap.AvgHealAttempts = float64(healAttempts) / float64(n)
		snap.AvgLatencyMs = latency / int64(n)
	}

	return snap, nil
}
