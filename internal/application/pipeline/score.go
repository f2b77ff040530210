package pipeline

import "github.com/Jimstew23/smlgpt-pipeline/internal/domain/assessment"

// Risk level cutoffs, compared in descending order.
const (
	criticalStopCutoff    = 9.0
	highRiskCutoff        = 7.0
	moderateConcernCutoff = 5.0
	lowRiskCutoff         = 3.0
)

// IntegrateScore fuses the base risk score with the confidence signals:
// the model score is weighted by overall confidence, then shifted up or down
// by up to one point depending on how far memory confidence sits from
// neutral. The result is clamped to the 0-10 scale.
func IntegrateScore(baseScore float64, confidence, memoryConfidence int) float64 {
	weighted := baseScore*(float64(confidence)/100) + (float64(memoryConfidence)-50)/50
	return clampFloat(weighted, 0, 10)
}

// ClassifyRisk maps a score to its discrete level. A stop-work decision
// forces CRITICAL_STOP regardless of the numeric score.
func ClassifyRisk(score float64, stopWorkRequired bool) assessment.RiskLevel {
	if stopWorkRequired {
		return assessment.RiskCriticalStop
	}
	switch {
	case score >= criticalStopCutoff:
		return assessment.RiskCriticalStop
	case score >= highRiskCutoff:
		return assessment.RiskHigh
	case score >= moderateConcernCutoff:
		return assessment.RiskModerateConcern
	case score >= lowRiskCutoff:
		return assessment.RiskLow
	default:
		return assessment.RiskCompliant
	}
}
