package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Jimstew23/smlgpt-pipeline/internal/domain/assessment"
	domain "github.com/Jimstew23/smlgpt-pipeline/internal/domain/memory"
)

// maxAnalyses bounds the episodic history; the oldest record is evicted when
// an append would exceed it.
const maxAnalyses = 1000

// severityRank orders hazard severities for trigger naming.
var severityRank = map[assessment.Severity]int{
	assessment.SeverityCritical: 3,
	assessment.SeverityHigh:     2,
	assessment.SeverityMedium:   1,
	assessment.SeverityLow:      0,
}

// Store is the episodic memory: a bounded FIFO of past assessments, a pattern
// index keyed by risk level, and the learned stop-work trigger patterns.
//
// All mutation is funneled through a single mutex so concurrent pipeline runs
// cannot interleave appends or corrupt the persisted snapshot.
type Store struct {
	mu       sync.RWMutex
	analyses []*assessment.Record
	patterns map[assessment.RiskLevel][]domain.PatternSummary
	triggers []domain.StopWorkTrigger

	persist domain.Persistence
}

// NewStore creates an empty store backed by the given persistence port.
// persist may be nil (memory-only mode, used by tests).
func NewStore(persist domain.Persistence) *Store {
	return &Store{
		patterns: make(map[assessment.RiskLevel][]domain.PatternSummary),
		persist:  persist,
	}
}

// Load restores the store from its durable snapshot. A nil snapshot (first
// start) leaves the store empty and is not an error.
func (s *Store) Load(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	snap, err := s.persist.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: loading memory snapshot: %v", assessment.ErrPersistence, err)
	}
	if snap == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyses = snap.Analyses
	if len(s.analyses) > maxAnalyses {
		s.analyses = s.analyses[len(s.analyses)-maxAnalyses:]
	}
	s.patterns = snap.Patterns
	if s.patterns == nil {
		s.patterns = make(map[assessment.RiskLevel][]domain.PatternSummary)
	}
	s.triggers = snap.Triggers
	return nil
}

// Append records one assessment: pushes it onto the history (evicting the
// oldest beyond the bound), updates the pattern index, learns a stop-work
// trigger when applicable, and saves a snapshot.
//
// The in-memory update always succeeds; only a snapshot write failure is
// returned, wrapped as ErrPersistence so the caller can log and move on.
func (s *Store) Append(ctx context.Context, rec *assessment.Record) error {
	s.mu.Lock()
	s.analyses = append(s.analyses, rec)
	if len(s.analyses) > maxAnalyses {
		s.analyses = s.analyses[len(s.analyses)-maxAnalyses:]
	}
	s.updatePatternsLocked(rec)
	if rec.StopWorkRequired {
		s.learnTriggerLocked(rec)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if s.persist == nil {
		return nil
	}
	if err := s.persist.Save(ctx, snap); err != nil {
		return fmt.Errorf("%w: saving memory snapshot: %v", assessment.ErrPersistence, err)
	}
	return nil
}

// updatePatternsLocked appends a pattern summary under the record's risk
// level bucket. Caller holds mu.
func (s *Store) updatePatternsLocked(rec *assessment.Record) {
	summary := domain.PatternSummary{
		HazardTypes: rec.HazardTypes(),
		Categories:  append([]string(nil), rec.Categories...),
		Timestamp:   rec.Timestamp,
	}
	s.patterns[rec.RiskLevel] = append(s.patterns[rec.RiskLevel], summary)
}

// learnTriggerLocked registers the record's hazard combination as a stop-work
// trigger, named after its highest-severity hazard. Deduplicated by name.
// Caller holds mu.
func (s *Store) learnTriggerLocked(rec *assessment.Record) {
	if len(rec.Hazards) == 0 {
		return
	}
	top := rec.Hazards[0]
	for _, h := range rec.Hazards[1:] {
		if severityRank[h.Severity] > severityRank[top.Severity] {
			top = h
		}
	}
	if top.Type == "" {
		return
	}
	for _, t := range s.triggers {
		if t.Name == top.Type {
			return
		}
	}
	s.triggers = append(s.triggers, domain.StopWorkTrigger{
		Name:        top.Type,
		HazardTypes: rec.HazardTypes(),
	})
}

func (s *Store) snapshotLocked() *domain.Snapshot {
	snap := &domain.Snapshot{
		Analyses: append([]*assessment.Record(nil), s.analyses...),
		Patterns: make(map[assessment.RiskLevel][]domain.PatternSummary, len(s.patterns)),
		Triggers: append([]domain.StopWorkTrigger(nil), s.triggers...),
		SavedAt:  time.Now(),
	}
	for level, sums := range s.patterns {
		snap.Patterns[level] = append([]domain.PatternSummary(nil), sums...)
	}
	return snap
}

// History returns a copy of the analysis history, oldest first.
func (s *Store) History() []*assessment.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*assessment.Record(nil), s.analyses...)
}

// Patterns returns the pattern summaries recorded for a risk level.
func (s *Store) Patterns(level assessment.RiskLevel) []domain.PatternSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.PatternSummary(nil), s.patterns[level]...)
}

// Triggers returns the known stop-work trigger patterns.
func (s *Store) Triggers() []domain.StopWorkTrigger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.StopWorkTrigger(nil), s.triggers...)
}

// Len reports the current history length.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.analyses)
}

// LevelCounts reports how many pattern summaries exist per risk level.
// Used by the metrics endpoint.
func (s *Store) LevelCounts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.patterns))
	for level, sums := range s.patterns {
		out[string(level)] = len(sums)
	}
	return out
}
