package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Jimstew23/smlgpt-pipeline/internal/domain/assessment"
)

// InitialAnalysis is the JSON object the vision model must produce, possibly
// wrapped in surrounding prose.
type InitialAnalysis struct {
	RiskScore        *float64            `json:"risk_score"`
	Confidence       int                 `json:"confidence"`
	Hazards          []assessment.Hazard `json:"hazards"`
	Categories       []string            `json:"categories"`
	ImmediateActions []string            `json:"immediate_actions"`
	Recommendations  []string            `json:"recommendations"`
	Reasoning        string              `json:"reasoning"`
	StopWorkRequired bool                `json:"stop_work_required"`
}

// ExtractJSONObject scans raw model output for the first balanced JSON object
// using depth-counted bracket matching. A greedy first-{ to last-} match
// breaks on nested objects, and prose after the object is common, so the
// scan tracks string literals and escape sequences explicitly.
func ExtractJSONObject(raw string) (string, error) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", fmt.Errorf("%w: no JSON object in model output", assessment.ErrMalformedResponse)
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("%w: unbalanced JSON object in model output", assessment.ErrMalformedResponse)
}

// ParseInitialAnalysis extracts and decodes the model's analysis object and
// normalizes it: severity/probability canonicalized, hazards never nil,
// risk_score and confidence clamped to their ranges. Missing required fields
// (risk_score, hazards) reject the response rather than guessing.
func ParseInitialAnalysis(raw string) (*InitialAnalysis, error) {
	obj, err := ExtractJSONObject(raw)
	if err != nil {
		return nil, err
	}

	var initial InitialAnalysis
	if err := json.Unmarshal([]byte(obj), &initial); err != nil {
		return nil, fmt.Errorf("%w: %v", assessment.ErrMalformedResponse, err)
	}
	if initial.RiskScore == nil {
		return nil, fmt.Errorf("%w: missing risk_score", assessment.ErrMalformedResponse)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", assessment.ErrMalformedResponse, err)
	}
	if _, ok := fields["hazards"]; !ok {
		return nil, fmt.Errorf("%w: missing hazards", assessment.ErrMalformedResponse)
	}

	*initial.RiskScore = clampFloat(*initial.RiskScore, 0, 10)
	initial.Confidence = clampInt(initial.Confidence, 0, 100)
	if initial.Hazards == nil {
		initial.Hazards = []assessment.Hazard{}
	}
	for i := range initial.Hazards {
		h := &initial.Hazards[i]
		h.Severity = assessment.ParseSeverity(string(h.Severity))
		if h.Probability != "" {
			h.Probability = assessment.ParseProbability(string(h.Probability))
		}
		h.Confidence = clampInt(h.Confidence, 0, 100)
	}
	return &initial, nil
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
