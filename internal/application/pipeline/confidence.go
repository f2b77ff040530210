package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/Jimstew23/smlgpt-pipeline/internal/domain/assessment"
)

// ConfidenceResult is the assessor's independent uncertainty judgment for the
// current analysis.
type ConfidenceResult struct {
	OverallConfidence  int            `json:"overall_confidence"`
	HazardConfidence   map[string]int `json:"hazard_confidence,omitempty"`
	UncertaintyFactors []string       `json:"uncertainty_factors"`
	Reasoning          string         `json:"confidence_reasoning"`
}

// Assessor is a pluggable confidence strategy. Implementations may consult a
// secondary model or apply deterministic rules; errors are absorbed by the
// orchestrator with a neutral-but-cautious default.
type Assessor interface {
	Assess(ctx context.Context, initial *InitialAnalysis, mem assessment.MemoryValidation) (ConfidenceResult, error)
}

// fallbackConfidence is the conservative default substituted when the
// assessor fails: below full confidence, never above it.
func fallbackConfidence() ConfidenceResult {
	return ConfidenceResult{
		OverallConfidence:  70,
		UncertaintyFactors: []string{"assessment system error"},
		Reasoning:          "Confidence assessment unavailable; using conservative default.",
	}
}

// RuleBasedAssessor derives confidence deterministically from the model's own
// confidence, the per-hazard confidences, and the memory signal.
type RuleBasedAssessor struct{}

func (RuleBasedAssessor) Assess(_ context.Context, initial *InitialAnalysis, mem assessment.MemoryValidation) (ConfidenceResult, error) {
	if initial == nil {
		return ConfidenceResult{}, fmt.Errorf("%w: nil initial analysis", assessment.ErrInternalEvaluation)
	}

	base := initial.Confidence
	if base == 0 {
		base = 70
	}

	var factors []string
	hazardConf := make(map[string]int, len(initial.Hazards))
	sum := 0
	for _, h := range initial.Hazards {
		hazardConf[h.Type] = h.Confidence
		sum += h.Confidence
		if h.Confidence < 60 {
			factors = append(factors, fmt.Sprintf("low confidence finding: %s", h.Type))
		}
		if len(h.Evidence) == 0 {
			factors = append(factors, fmt.Sprintf("no documented evidence for %s", h.Type))
		}
	}

	overall := base
	if len(initial.Hazards) > 0 {
		overall = (base + sum/len(initial.Hazards)) / 2
	}

	// Memory signal shifts the result a little in either direction.
	overall += (mem.MemoryConfidence - 50) / 10
	if mem.SimilarAnalyses == 0 {
		factors = append(factors, "no similar historical analyses")
	}

	overall = clampInt(overall, 0, 100)
	reasoning := fmt.Sprintf("Fused model confidence %d with %d hazard finding(s) and memory confidence %d.",
		base, len(initial.Hazards), mem.MemoryConfidence)
	if len(factors) > 0 {
		reasoning += " Uncertainty: " + strings.Join(factors, "; ") + "."
	}

	return ConfidenceResult{
		OverallConfidence:  overall,
		HazardConfidence:   hazardConf,
		UncertaintyFactors: factors,
		Reasoning:          reasoning,
	}, nil
}
