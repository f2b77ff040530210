package pipeline

import (
	"fmt"
	"strings"

	"github.com/Jimstew23/smlgpt-pipeline/internal/domain/assessment"
	domain "github.com/Jimstew23/smlgpt-pipeline/internal/domain/memory"
)

// failClosedReasoning is returned whenever the gate itself fails. Error must
// mean "stop work", never "continue work".
const failClosedReasoning = "STOP WORK REQUIRED: Safety evaluation system error — proceed with extreme caution"

const (
	pairedHazardConfidence = 85
	pairedHazardCount      = 2
)

// StopWorkDecision is the gate's output.
type StopWorkDecision struct {
	Required  bool   `json:"stop_work_required"`
	Reasoning string `json:"reasoning"`
}

// StopWorkEngine is the safety-critical gate. Any internal error or panic
// during evaluation yields Required=true with the fixed fallback reasoning.
type StopWorkEngine struct {
	eval func(hazards []assessment.Hazard, modelFlag bool, triggers []domain.StopWorkTrigger) (StopWorkDecision, error)
}

// NewStopWorkEngine returns the engine with the standard decision rules.
func NewStopWorkEngine() *StopWorkEngine {
	return &StopWorkEngine{eval: evaluateStopWork}
}

// Evaluate applies the decision rules, fail-closed.
func (e *StopWorkEngine) Evaluate(hazards []assessment.Hazard, modelFlag bool, triggers []domain.StopWorkTrigger) (decision StopWorkDecision) {
	defer func() {
		if r := recover(); r != nil {
			decision = StopWorkDecision{Required: true, Reasoning: failClosedReasoning}
		}
	}()

	d, err := e.eval(hazards, modelFlag, triggers)
	if err != nil {
		return StopWorkDecision{Required: true, Reasoning: failClosedReasoning}
	}
	return d
}

// evaluateStopWork implements the four OR'd stop-work conditions:
//  1. any Critical hazard (its confidence only sharpens the reasoning; a
//     single non-Critical hazard never stops work on confidence alone)
//  2. two or more High/Critical hazards with confidence >= 85
//  3. a historical trigger pattern intersecting the current hazard types
//  4. the model's own stop_work_required flag
func evaluateStopWork(hazards []assessment.Hazard, modelFlag bool, triggers []domain.StopWorkTrigger) (StopWorkDecision, error) {
	var parts []string

	var critical []string
	severe := 0
	for _, h := range hazards {
		if h.Severity == assessment.SeverityCritical {
			critical = append(critical, h.Type)
		}
		if h.Confidence >= pairedHazardConfidence &&
			(h.Severity == assessment.SeverityHigh || h.Severity == assessment.SeverityCritical) {
			severe++
		}
	}
	if len(critical) > 0 {
		parts = append(parts, fmt.Sprintf("Critical hazards detected: %s.", strings.Join(critical, ", ")))
	}
	if severe >= pairedHazardCount {
		parts = append(parts, fmt.Sprintf("%d high-severity hazards with elevated confidence.", severe))
	}

	types := make([]string, 0, len(hazards))
	for _, h := range hazards {
		types = append(types, h.Type)
	}
	var matched []string
	for _, t := range triggers {
		if intersects(types, t.HazardTypes) {
			matched = append(matched, t.Name)
		}
	}
	if len(matched) > 0 {
		parts = append(parts, fmt.Sprintf("Historical incident patterns matched: %s.", strings.Join(matched, ", ")))
	}

	if modelFlag {
		parts = append(parts, "Vision analysis flagged stop work directly.")
	}

	if len(parts) == 0 {
		return StopWorkDecision{Required: false, Reasoning: "No stop work conditions met."}, nil
	}
	return StopWorkDecision{Required: true, Reasoning: strings.Join(parts, " ")}, nil
}
