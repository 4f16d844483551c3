package monitoring

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/radreport/internal/config"
)

const defaultCheckInterval = 5 * time.Minute

// Checker summarizes review load on a fixed interval and sends alerts when
// a threshold trips. The most recent snapshot is kept for callers.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig

	mu     sync.RWMutex
	latest *MetricsSnapshot
}

// NewChecker creates a background review-load checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
	}
}

// Latest returns the last collected snapshot, or nil before the first check.
func (c *Checker) Latest() *MetricsSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest
}

// Run checks once, then on every tick until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = defaultCheckInterval
	}

	log := zap.L().With(zap.String("component", "monitoring.review_load"))
	log.Info("monitoring: checker started",
		zap.Duration("interval", interval),
		zap.Int("lookback_hours", c.cfg.LookbackWindowHours),
		zap.Float64("s1_rate_threshold", c.cfg.S1RateThreshold),
		zap.Float64("failure_rate_threshold", c.cfg.FailureRateThreshold),
	)

	if ctx.Err() == nil {
		c.check(ctx, log)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("monitoring: checker stopped")
			return
		case <-ticker.C:
			c.check(ctx, log)
		}
	}
}

func (c *Checker) check(ctx context.Context, log *zap.Logger) {
	snap, err := c.collector.Collect(ctx, c.cfg.LookbackWindowHours)
	if err != nil {
		log.Error("monitoring: collect review load", zap.Error(err))
		return
	}

	c.mu.Lock()
	c.latest = snap
	c.mu.Unlock()

	log.Info("monitoring: review load",
		zap.Int("runs", snap.RunsTotal),
		zap.Int("complete", snap.RunsComplete),
		zap.Float64("fail_rate", snap.FailRate),
		zap.Int("tier_s1", snap.TierS1),
		zap.Int("tier_s2", snap.TierS2),
		zap.Int("tier_s3", snap.TierS3),
		zap.Float64("s1_rate", snap.S1Rate),
		zap.Float64("qa_pass_rate", snap.QAPassRate),
		zap.Int("recommendations_sanitized", snap.RecommendationsSanitized),
	)

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		return
	}

	sent := c.alerter.SendAlerts(ctx, alerts)
	log.Warn("monitoring: thresholds exceeded",
		zap.Int("alerts", len(alerts)),
		zap.Int("delivered", sent),
	)
}
