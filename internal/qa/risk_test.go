package qa

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/radreport/internal/model"
)

var (
	qaPass = model.QAResult{Passed: true}
	qaFail = model.QAResult{Passed: false, Issues: []string{`Banlist: "conforme áudio"`}}
)

func boolPtr(b bool) *bool { return &b }

func TestClassifyRisk(t *testing.T) {
	tests := []struct {
		name      string
		flags     model.Flags
		qa        model.QAResult
		telemetry model.RiskTelemetry
		level     model.RiskTier
		reasons   []string
	}{
		{
			name:      "qa failure forces S1",
			qa:        qaFail,
			telemetry: model.RiskTelemetry{LatencyMs: 2000},
			level:     model.RiskS1,
			reasons:   []string{ReasonHardGateFailed},
		},
		{
			name:      "auto fix gives S2",
			qa:        qaPass,
			telemetry: model.RiskTelemetry{LatencyMs: 2000, AutoFixApplied: true},
			level:     model.RiskS2,
			reasons:   []string{ReasonAutoFixApplied},
		},
		{
			name:      "all gates pass",
			qa:        qaPass,
			telemetry: model.RiskTelemetry{LatencyMs: 2000},
			level:     model.RiskS3,
			reasons:   []string{ReasonPassedAllGates},
		},
		{
			name:      "explicit hard gate flag overrides passing qa",
			flags:     model.Flags{HardGateFailed: boolPtr(true)},
			qa:        qaPass,
			telemetry: model.RiskTelemetry{},
			level:     model.RiskS1,
			reasons:   []string{ReasonHardGateFailed},
		},
		{
			name:      "explicit false hard gate wins over failing qa",
			flags:     model.Flags{HardGateFailed: boolPtr(false)},
			qa:        qaFail,
			telemetry: model.RiskTelemetry{},
			level:     model.RiskS3,
			reasons:   []string{ReasonPassedAllGates},
		},
		{
			name:      "every S1 reason listed and S2 skipped",
			flags:     model.Flags{LateralityMismatch: true, HallucinationDetected: true, AutoFixApplied: true},
			qa:        qaFail,
			telemetry: model.RiskTelemetry{LatencyMs: 50000, MissingMarkers: 9},
			level:     model.RiskS1,
			reasons:   []string{ReasonHardGateFailed, ReasonLateralityMismatch, ReasonHallucinationDetected},
		},
		{
			name:      "every S2 reason in order",
			flags:     model.Flags{AutoFixApplied: true},
			qa:        qaPass,
			telemetry: model.RiskTelemetry{LatencyMs: 10001, MissingMarkers: 3},
			level:     model.RiskS2,
			reasons:   []string{ReasonAutoFixApplied, ReasonLatencyHigh, ReasonMissingDataMarkers},
		},
		{
			name:      "thresholds are exclusive",
			qa:        qaPass,
			telemetry: model.RiskTelemetry{LatencyMs: 10000, MissingMarkers: 2},
			level:     model.RiskS3,
			reasons:   []string{ReasonPassedAllGates},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := &model.ReportJSON{Flags: tt.flags}
			got := ClassifyRisk(report, tt.qa, tt.telemetry, DefaultThresholds())
			assert.Equal(t, tt.level, got.Level)
			assert.Equal(t, tt.reasons, got.Reasons)
			assert.Equal(t, tt.telemetry, got.Telemetry)
		})
	}
}

func TestClassifyRisk_HardGateAlwaysS1(t *testing.T) {
	report := &model.ReportJSON{Flags: model.Flags{HardGateFailed: boolPtr(true)}}
	for _, latency := range []int64{0, 500, 10000, 999999} {
		got := ClassifyRisk(report, qaPass, model.RiskTelemetry{LatencyMs: latency}, DefaultThresholds())
		assert.Equal(t, model.RiskS1, got.Level)
	}
}

func TestClassifyRisk_CustomThresholds(t *testing.T) {
	got := ClassifyRisk(&model.ReportJSON{}, qaPass, model.RiskTelemetry{LatencyMs: 600}, Thresholds{LatencyMs: 500, MissingMarkers: 2})
	assert.Equal(t, model.RiskS2, got.Level)
	assert.Equal(t, []string{ReasonLatencyHigh}, got.Reasons)
}

func TestClassifyRisk_NilReport(t *testing.T) {
	got := ClassifyRisk(nil, qaPass, model.RiskTelemetry{}, DefaultThresholds())
	assert.Equal(t, model.RiskS3, got.Level)
}
