package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Jimstew23/smlgpt-pipeline/internal/domain/assessment"
	domain "github.com/Jimstew23/smlgpt-pipeline/internal/domain/memory"
)

type fakePersistence struct {
	snapshot *domain.Snapshot
	loadErr  error
	saveErr  error
	saves    int
}

func (f *fakePersistence) Load(context.Context) (*domain.Snapshot, error) {
	return f.snapshot, f.loadErr
}

func (f *fakePersistence) Save(_ context.Context, s *domain.Snapshot) error {
	f.saves++
	f.snapshot = s
	return f.saveErr
}

func record(id string, level assessment.RiskLevel, stopWork bool, hazards ...assessment.Hazard) *assessment.Record {
	return &assessment.Record{
		ID:               assessment.RecordID(id),
		Site:             "site-a",
		Timestamp:        time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC),
		RiskLevel:        level,
		StopWorkRequired: stopWork,
		Hazards:          hazards,
		Categories:       []string{"Work at Height"},
	}
}

func TestAppend_FIFOEviction(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	for i := 0; i < maxAnalyses+5; i++ {
		rec := record(fmt.Sprintf("rec-%04d", i), assessment.RiskLow, false)
		if err := s.Append(ctx, rec); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	if s.Len() != maxAnalyses {
		t.Fatalf("length = %d, want %d", s.Len(), maxAnalyses)
	}
	hist := s.History()
	if got := string(hist[0].ID); got != "rec-0005" {
		t.Errorf("oldest surviving record = %s, want rec-0005", got)
	}
	if got := string(hist[len(hist)-1].ID); got != fmt.Sprintf("rec-%04d", maxAnalyses+4) {
		t.Errorf("newest record = %s", got)
	}
}

func TestAppend_PatternIndex(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	fall := assessment.Hazard{Type: "Fall", Severity: assessment.SeverityHigh}
	if err := s.Append(ctx, record("a", assessment.RiskHigh, false, fall)); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, record("b", assessment.RiskCompliant, false)); err != nil {
		t.Fatal(err)
	}

	high := s.Patterns(assessment.RiskHigh)
	if len(high) != 1 {
		t.Fatalf("HIGH_RISK patterns = %d, want 1", len(high))
	}
	if len(high[0].HazardTypes) != 1 || high[0].HazardTypes[0] != "Fall" {
		t.Errorf("pattern hazard types = %v", high[0].HazardTypes)
	}
	if got := s.Patterns(assessment.RiskCompliant); len(got) != 1 {
		t.Errorf("COMPLIANT patterns = %d, want 1", len(got))
	}
	if got := s.Patterns(assessment.RiskCriticalStop); len(got) != 0 {
		t.Errorf("CRITICAL_STOP patterns = %d, want 0", len(got))
	}
}

func TestAppend_TriggerLearning(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	rec := record("a", assessment.RiskCriticalStop, true,
		assessment.Hazard{Type: "Noise", Severity: assessment.SeverityMedium},
		assessment.Hazard{Type: "Fall", Severity: assessment.SeverityCritical},
	)
	if err := s.Append(ctx, rec); err != nil {
		t.Fatal(err)
	}

	triggers := s.Triggers()
	if len(triggers) != 1 {
		t.Fatalf("triggers = %d, want 1", len(triggers))
	}
	if triggers[0].Name != "Fall" {
		t.Errorf("trigger named %q, want highest-severity hazard type", triggers[0].Name)
	}
	if len(triggers[0].HazardTypes) != 2 {
		t.Errorf("trigger hazard types = %v, want both", triggers[0].HazardTypes)
	}

	// Same pattern again: no duplicate trigger.
	if err := s.Append(ctx, record("b", assessment.RiskCriticalStop, true,
		assessment.Hazard{Type: "Fall", Severity: assessment.SeverityCritical})); err != nil {
		t.Fatal(err)
	}
	if got := len(s.Triggers()); got != 1 {
		t.Errorf("triggers after repeat = %d, want 1", got)
	}

	// Stop work without hazards (fail-closed runs) learns nothing.
	if err := s.Append(ctx, record("c", assessment.RiskCriticalStop, true)); err != nil {
		t.Fatal(err)
	}
	if got := len(s.Triggers()); got != 1 {
		t.Errorf("triggers after hazardless stop = %d, want 1", got)
	}

	// Non-stop-work records learn nothing either.
	if err := s.Append(ctx, record("d", assessment.RiskHigh, false,
		assessment.Hazard{Type: "Electrical", Severity: assessment.SeverityHigh})); err != nil {
		t.Fatal(err)
	}
	if got := len(s.Triggers()); got != 1 {
		t.Errorf("triggers after routine record = %d, want 1", got)
	}
}

func TestAppend_PersistenceFailureWrapped(t *testing.T) {
	p := &fakePersistence{saveErr: errors.New("disk full")}
	s := NewStore(p)

	err := s.Append(context.Background(), record("a", assessment.RiskLow, false))
	if !errors.Is(err, assessment.ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}
	// The in-memory state advanced regardless.
	if s.Len() != 1 {
		t.Errorf("length = %d, want 1 despite the snapshot failure", s.Len())
	}
}

func TestLoad(t *testing.T) {
	rec := record("a", assessment.RiskHigh, false, assessment.Hazard{Type: "Fall"})
	p := &fakePersistence{snapshot: &domain.Snapshot{
		Analyses: []*assessment.Record{rec},
		Patterns: map[assessment.RiskLevel][]domain.PatternSummary{
			assessment.RiskHigh: {{HazardTypes: []string{"Fall"}}},
		},
		Triggers: []domain.StopWorkTrigger{{Name: "Fall", HazardTypes: []string{"Fall"}}},
	}}
	s := NewStore(p)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("length = %d, want 1", s.Len())
	}
	if got := s.Patterns(assessment.RiskHigh); len(got) != 1 {
		t.Errorf("patterns = %v", got)
	}
	if got := s.Triggers(); len(got) != 1 || got[0].Name != "Fall" {
		t.Errorf("triggers = %v", got)
	}
}

func TestLoad_EmptyAndErrorCases(t *testing.T) {
	// Nil snapshot on first start is not an error.
	s := NewStore(&fakePersistence{})
	if err := s.Load(context.Background()); err != nil {
		t.Errorf("Load with nil snapshot: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("length = %d, want 0", s.Len())
	}

	// A broken backend surfaces as ErrPersistence.
	s = NewStore(&fakePersistence{loadErr: errors.New("connection refused")})
	if err := s.Load(context.Background()); !errors.Is(err, assessment.ErrPersistence) {
		t.Errorf("err = %v, want ErrPersistence", err)
	}

	// Oversized snapshots are trimmed to the bound, oldest first.
	big := make([]*assessment.Record, maxAnalyses+10)
	for i := range big {
		big[i] = record(fmt.Sprintf("rec-%04d", i), assessment.RiskLow, false)
	}
	s = NewStore(&fakePersistence{snapshot: &domain.Snapshot{Analyses: big}})
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Len() != maxAnalyses {
		t.Errorf("length = %d, want %d", s.Len(), maxAnalyses)
	}
	if got := string(s.History()[0].ID); got != "rec-0010" {
		t.Errorf("oldest surviving record = %s, want rec-0010", got)
	}
}
