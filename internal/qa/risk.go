package qa

import (
	"go.uber.org/zap"

	"github.com/sells-group/radreport/internal/model"
)

// Risk reasons, in the order they are checked.
const (
	ReasonHardGateFailed        = "hard_gate_failed"
	ReasonLateralityMismatch    = "laterality_mismatch"
	ReasonHallucinationDetected = "hallucination_detected"
	ReasonAutoFixApplied        = "auto_fix_applied"
	ReasonLatencyHigh           = "latency_high"
	ReasonMissingDataMarkers    = "missing_data_markers"
	ReasonPassedAllGates        = "passed_all_gates"
)

// Thresholds bound the S2 telemetry checks. Values must be exceeded, not met.
type Thresholds struct {
	LatencyMs      int64
	MissingMarkers int
}

// DefaultThresholds returns 10s latency and 2 missing markers.
func DefaultThresholds() Thresholds {
	return Thresholds{LatencyMs: 10000, MissingMarkers: 2}
}

// ClassifyRisk maps QA outcome, report flags and telemetry to a review tier.
// Any S1 condition returns immediately without evaluating S2 checks.
func ClassifyRisk(report *model.ReportJSON, result model.QAResult, telemetry model.RiskTelemetry, th Thresholds) model.RiskAssessment {
	var flags model.Flags
	if report != nil {
		flags = report.Flags
	}

	hardGate := !result.Passed
	if flags.HardGateFailed != nil {
		hardGate = *flags.HardGateFailed
	}

	var reasons []string
	if hardGate {
		reasons = append(reasons, ReasonHardGateFailed)
	}
	if flags.LateralityMismatch {
		reasons = append(reasons, ReasonLateralityMismatch)
	}
	if flags.HallucinationDetected {
		reasons = append(reasons, ReasonHallucinationDetected)
	}
	if len(reasons) > 0 {
		return assess(model.RiskS1, reasons, telemetry)
	}

	if flags.AutoFixApplied || telemetry.AutoFixApplied {
		reasons = append(reasons, ReasonAutoFixApplied)
	}
	if telemetry.LatencyMs > th.LatencyMs {
		reasons = append(reasons, ReasonLatencyHigh)
	}
	if telemetry.MissingMarkers > th.MissingMarkers {
		reasons = append(reasons, ReasonMissingDataMarkers)
	}
	if len(reasons) > 0 {
		return assess(model.RiskS2, reasons, telemetry)
	}

	return assess(model.RiskS3, []string{ReasonPassedAllGates}, telemetry)
}

func assess(level model.RiskTier, reasons []string, telemetry model.RiskTelemetry) model.RiskAssessment {
	zap.L().Debug("qa: risk classified",
		zap.String("level", string(level)),
		zap.Strings("reasons", reasons),
	)
	return model.RiskAssessment{Level: level, Reasons: reasons, Telemetry: telemetry}
}
