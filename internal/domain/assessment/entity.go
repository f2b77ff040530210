package assessment

import (
	"encoding/json"
	"strings"
	"time"
)

// RecordID identifier type for an assessment record
type RecordID string

// Severity enum for a single hazard finding
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

// ParseSeverity normalizes model output ("critical", "CRITICAL") to a Severity.
// Unknown values default to Low rather than being dropped.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium", "moderate":
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Probability enum
type Probability string

const (
	ProbabilityVeryHigh Probability = "VeryHigh"
	ProbabilityHigh     Probability = "High"
	ProbabilityMedium   Probability = "Medium"
	ProbabilityLow      Probability = "Low"
	ProbabilityVeryLow  Probability = "VeryLow"
)

// ParseProbability normalizes model output to a Probability.
func ParseProbability(s string) Probability {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", "")) {
	case "veryhigh", "very high":
		return ProbabilityVeryHigh
	case "high":
		return ProbabilityHigh
	case "medium", "moderate":
		return ProbabilityMedium
	case "verylow", "very low":
		return ProbabilityVeryLow
	default:
		return ProbabilityLow
	}
}

// RiskLevel enum, ordered COMPLIANT -> CRITICAL_STOP
type RiskLevel string

const (
	RiskCriticalStop    RiskLevel = "CRITICAL_STOP"
	RiskHigh            RiskLevel = "HIGH_RISK"
	RiskModerateConcern RiskLevel = "MODERATE_CONCERN"
	RiskLow             RiskLevel = "LOW_RISK"
	RiskCompliant       RiskLevel = "COMPLIANT"
)

// Evidence accepts either a single string or a list of strings from the
// model's JSON; both forms occur in practice.
type Evidence []string

func (e *Evidence) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*e = list
		return nil
	}
	var one string
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	if strings.TrimSpace(one) == "" {
		*e = Evidence{}
		return nil
	}
	*e = Evidence{one}
	return nil
}

// Hazard is one identified risk condition. Immutable once produced by the
// vision model.
type Hazard struct {
	Type        string      `json:"type"`
	Description string      `json:"description,omitempty"`
	Severity    Severity    `json:"severity"`
	Probability Probability `json:"probability,omitempty"`
	Confidence  int         `json:"confidence"`
	Evidence    Evidence    `json:"evidence,omitempty"`
	Location    string      `json:"location,omitempty"`
}

// MemoryValidation carries the memory cross-check signals attached to a record.
type MemoryValidation struct {
	SimilarAnalyses    int     `json:"similar_analyses"`
	PatternConsistency float64 `json:"pattern_consistency"`
	IncidentAlignment  float64 `json:"incident_alignment"`
	MemoryConfidence   int     `json:"memory_confidence"`
}

// Aggregate Root: Record is the result of one pipeline run. It is assembled
// once by the orchestrator and never mutated afterwards.
type Record struct {
	ID                 RecordID         `json:"id"`
	Site               string           `json:"site"`
	Timestamp          time.Time        `json:"timestamp"`
	SourceLabel        string           `json:"source_label"`
	ImageURL           string           `json:"image_url,omitempty"`
	RiskLevel          RiskLevel        `json:"risk_level"`
	RiskScore          float64          `json:"risk_score"`
	ConfidenceLevel    int              `json:"confidence_level"`
	StopWorkRequired   bool             `json:"stop_work_required"`
	StopWorkReasoning  string           `json:"stop_work_reasoning"`
	Hazards            []Hazard         `json:"hazards"`
	Categories         []string         `json:"categories"`
	ImmediateActions   []string         `json:"immediate_actions"`
	Recommendations    []string         `json:"recommendations"`
	Reasoning          string           `json:"reasoning,omitempty"`
	UncertaintyFactors []string         `json:"uncertainty_factors"`
	Memory             MemoryValidation `json:"memory_validation"`
}

// HazardTypes returns the distinct hazard type names on the record.
func (r *Record) HazardTypes() []string {
	seen := make(map[string]bool, len(r.Hazards))
	var out []string
	for _, h := range r.Hazards {
		if h.Type == "" || seen[h.Type] {
			continue
		}
		seen[h.Type] = true
		out = append(out, h.Type)
	}
	return out
}
