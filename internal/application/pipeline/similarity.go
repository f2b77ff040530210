package pipeline

import (
	"sort"

	"github.com/Jimstew23/smlgpt-pipeline/internal/domain/assessment"
	domain "github.com/Jimstew23/smlgpt-pipeline/internal/domain/memory"
)

const (
	similarityThreshold = 0.7
	maxSimilarMatches   = 5
)

// Match pairs a historical record with its similarity to the new analysis.
type Match struct {
	Record     *assessment.Record
	Similarity float64
}

// PatternValidator scores how consistent the new analysis is with the pattern
// index (0-100). Pluggable; the real scoring model is an open extension point.
type PatternValidator interface {
	Validate(hazardTypes, categories []string, patterns []domain.PatternSummary) float64
}

// IncidentChecker scores how strongly the new analysis aligns with known
// incident trigger patterns (0-100). Pluggable.
type IncidentChecker interface {
	Check(hazardTypes []string, triggers []domain.StopWorkTrigger) float64
}

// Matcher cross-validates a new analysis against the episodic memory and
// derives the memory-confidence signal.
type Matcher struct {
	Patterns  PatternValidator
	Incidents IncidentChecker
}

// NewMatcher builds a matcher with the default overlap heuristics.
func NewMatcher() *Matcher {
	return &Matcher{
		Patterns:  OverlapPatternValidator{},
		Incidents: TriggerIncidentChecker{},
	}
}

// FindSimilar returns the top matches with similarity above the threshold,
// most similar first, at most five. Similarity is the average of two Jaccard
// indices: hazard-type overlap and category overlap.
func (m *Matcher) FindSimilar(hazardTypes, categories []string, history []*assessment.Record) []Match {
	var matches []Match
	for _, rec := range history {
		sim := (jaccard(hazardTypes, rec.HazardTypes()) + jaccard(categories, rec.Categories)) / 2
		if sim > similarityThreshold {
			matches = append(matches, Match{Record: rec, Similarity: sim})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > maxSimilarMatches {
		matches = matches[:maxSimilarMatches]
	}
	return matches
}

// Validate runs the full memory cross-check and fuses the signals into the
// memory-confidence score:
//
//	clamp(50 + similar*20 + consistent*15 - incident*10, 0, 100)
func (m *Matcher) Validate(hazardTypes, categories []string, history []*assessment.Record,
	patterns []domain.PatternSummary, triggers []domain.StopWorkTrigger) (assessment.MemoryValidation, []Match) {

	matches := m.FindSimilar(hazardTypes, categories, history)
	consistency := m.Patterns.Validate(hazardTypes, categories, patterns)
	incident := m.Incidents.Check(hazardTypes, triggers)

	confidence := 50
	if len(matches) > 0 {
		confidence += 20
	}
	if consistency > 80 {
		confidence += 15
	}
	if incident > 80 {
		confidence -= 10
	}

	return assessment.MemoryValidation{
		SimilarAnalyses:    len(matches),
		PatternConsistency: consistency,
		IncidentAlignment:  incident,
		MemoryConfidence:   clampInt(confidence, 0, 100),
	}, matches
}

// jaccard computes |A∩B| / |A∪B| over string sets. Two empty sets are
// treated as identical.
func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	union := len(set)
	inter := 0
	seen := make(map[string]bool, len(b))
	for _, s := range b {
		if seen[s] {
			continue
		}
		seen[s] = true
		if set[s] {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 1
	}
	return float64(inter) / float64(union)
}

// OverlapPatternValidator scores consistency as the share of recorded
// patterns that share at least one hazard type or category with the new
// analysis. No recorded patterns means nothing contradicts the analysis.
type OverlapPatternValidator struct{}

func (OverlapPatternValidator) Validate(hazardTypes, categories []string, patterns []domain.PatternSummary) float64 {
	if len(patterns) == 0 {
		return 100
	}
	overlapping := 0
	for _, p := range patterns {
		if intersects(hazardTypes, p.HazardTypes) || intersects(categories, p.Categories) {
			overlapping++
		}
	}
	return 100 * float64(overlapping) / float64(len(patterns))
}

// TriggerIncidentChecker reports high alignment when any known trigger
// pattern intersects the new hazard types.
type TriggerIncidentChecker struct{}

func (TriggerIncidentChecker) Check(hazardTypes []string, triggers []domain.StopWorkTrigger) float64 {
	for _, t := range triggers {
		if intersects(hazardTypes, t.HazardTypes) {
			return 90
		}
	}
	return 10
}

func intersects(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		if set[s] {
			return true
		}
	}
	return false
}
