package pipeline

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	memstore "github.com/Jimstew23/smlgpt-pipeline/internal/application/memory"
	"github.com/Jimstew23/smlgpt-pipeline/internal/domain/assessment"
	"github.com/Jimstew23/smlgpt-pipeline/internal/domain/vision"
)

type fakeOracle struct {
	output string
	err    error
	calls  int
}

func (f *fakeOracle) Analyze(_ context.Context, imageURL, _ string) (string, error) {
	f.calls++
	if !strings.HasPrefix(imageURL, "data:") {
		return "", errors.New("expected inline data URL")
	}
	return f.output, f.err
}

func newTestService(output string, err error) (*Service, *fakeOracle) {
	oracle := &fakeOracle{output: output, err: err}
	return NewService(oracle, memstore.NewStore(nil)), oracle
}

const criticalFallJSON = `Here is the assessment:
{
  "risk_score": 9.5,
  "confidence": 90,
  "hazards": [
    {
      "type": "Fall",
      "description": "Worker near unguarded edge",
      "severity": "Critical",
      "probability": "Likely",
      "confidence": 95,
      "evidence": ["no guardrail visible", "worker within one meter of edge"]
    }
  ],
  "categories": ["Work at Height"],
  "immediate_actions": ["Install guardrails"],
  "recommendations": ["Review fall protection plan"],
  "reasoning": "Unprotected edge at height.",
  "stop_work_required": false
}`

func TestAssessHazards_CriticalHazardStopsWork(t *testing.T) {
	svc, _ := newTestService(criticalFallJSON, nil)

	rec, err := svc.AssessHazards(context.Background(), "site-a", []byte("img"), "upload.jpg")
	if err != nil {
		t.Fatalf("AssessHazards: %v", err)
	}

	if !rec.StopWorkRequired {
		t.Fatal("critical hazard must stop work")
	}
	if rec.RiskLevel != assessment.RiskCriticalStop {
		t.Errorf("level = %v, want CRITICAL_STOP", rec.RiskLevel)
	}
	if len(rec.ImmediateActions) == 0 || rec.ImmediateActions[0] != "STOP ALL WORK IMMEDIATELY" {
		t.Errorf("immediate actions = %v, want stop directive first", rec.ImmediateActions)
	}
	// Empty memory: neutral base plus the vacuous-consistency bonus.
	if rec.Memory.MemoryConfidence != 65 {
		t.Errorf("memory confidence = %d, want 65", rec.Memory.MemoryConfidence)
	}
	if rec.ConfidenceLevel != 93 {
		t.Errorf("confidence = %d, want 93", rec.ConfidenceLevel)
	}
	if math.Abs(rec.RiskScore-9.135) > 1e-9 {
		t.Errorf("score = %v, want 9.135", rec.RiskScore)
	}
	if rec.Site != "site-a" || rec.SourceLabel != "upload.jpg" || rec.ID == "" {
		t.Errorf("record identity fields not populated: %+v", rec)
	}

	// Learning step ran.
	if svc.Memory.Len() != 1 {
		t.Errorf("memory length = %d, want 1", svc.Memory.Len())
	}
	if len(svc.Memory.Triggers()) != 1 {
		t.Errorf("stop-work record must learn a trigger, got %v", svc.Memory.Triggers())
	}
}

func TestAssessHazards_CompliantScene(t *testing.T) {
	svc, _ := newTestService(`{
		"risk_score": 0,
		"confidence": 90,
		"hazards": [],
		"categories": [],
		"immediate_actions": [],
		"recommendations": ["Maintain housekeeping"],
		"reasoning": "No hazards visible.",
		"stop_work_required": false
	}`, nil)

	rec, err := svc.AssessHazards(context.Background(), "site-a", []byte("img"), "cam-3")
	if err != nil {
		t.Fatalf("AssessHazards: %v", err)
	}
	if rec.StopWorkRequired {
		t.Error("compliant scene must not stop work")
	}
	if rec.RiskLevel != assessment.RiskCompliant {
		t.Errorf("level = %v, want COMPLIANT", rec.RiskLevel)
	}
	if rec.Hazards == nil || len(rec.Hazards) != 0 {
		t.Errorf("hazards = %#v, want empty non-nil slice", rec.Hazards)
	}
	if rec.RiskScore < 0 || rec.RiskScore > 10 {
		t.Errorf("score %v outside 0-10", rec.RiskScore)
	}
}

func TestAssessHazards_PairedHighSeverityStopsWork(t *testing.T) {
	svc, _ := newTestService(`{
		"risk_score": 7.5,
		"confidence": 85,
		"hazards": [
			{"type": "Fall", "severity": "High", "probability": "Likely", "confidence": 90, "evidence": ["ladder misuse"]},
			{"type": "Struck-By", "severity": "High", "probability": "Possible", "confidence": 88, "evidence": ["load overhead"]}
		],
		"categories": ["Work at Height", "Lifting"],
		"immediate_actions": [],
		"recommendations": [],
		"reasoning": "Two confident high-severity findings.",
		"stop_work_required": false
	}`, nil)

	rec, err := svc.AssessHazards(context.Background(), "site-a", []byte("img"), "cam-1")
	if err != nil {
		t.Fatalf("AssessHazards: %v", err)
	}
	if !rec.StopWorkRequired {
		t.Fatal("paired confident high-severity hazards must stop work")
	}
	if rec.RiskLevel != assessment.RiskCriticalStop {
		t.Errorf("level = %v, want CRITICAL_STOP forced by the gate", rec.RiskLevel)
	}
}

func TestAssessHazards_ErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		err     error
		wantErr error
	}{
		{"quota exhausted", "", vision.ErrQuotaExceeded, assessment.ErrTransientService},
		{"backend down", "", vision.ErrUnavailable, assessment.ErrTransientService},
		{"empty output", "   ", nil, assessment.ErrMalformedResponse},
		{"prose without JSON", "I cannot assess this image.", nil, assessment.ErrMalformedResponse},
		{"missing risk score", `{"confidence": 90, "hazards": []}`, nil, assessment.ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(tt.output, tt.err)
			_, err := svc.AssessHazards(context.Background(), "site-a", []byte("img"), "cam-1")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if svc.Memory.Len() != 0 {
				t.Error("failed assessments must not be learned")
			}
		})
	}
}

func TestAssessHazards_MemoryInformsLaterRuns(t *testing.T) {
	svc, _ := newTestService(criticalFallJSON, nil)
	ctx := context.Background()

	first, err := svc.AssessHazards(ctx, "site-a", []byte("img"), "cam-1")
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := svc.AssessHazards(ctx, "site-a", []byte("img"), "cam-1")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if first.Memory.SimilarAnalyses != 0 {
		t.Errorf("first run similar = %d, want 0", first.Memory.SimilarAnalyses)
	}
	if second.Memory.SimilarAnalyses != 1 {
		t.Errorf("second run similar = %d, want 1", second.Memory.SimilarAnalyses)
	}
	if second.Memory.MemoryConfidence <= first.Memory.MemoryConfidence-10 {
		t.Errorf("repeat of a known scene should not crater memory confidence: %d then %d",
			first.Memory.MemoryConfidence, second.Memory.MemoryConfidence)
	}
	// The learned trigger now matches, so the reasoning names history too.
	if !strings.Contains(second.StopWorkReasoning, "Historical incident patterns matched") {
		t.Errorf("reasoning = %q, want historical match noted", second.StopWorkReasoning)
	}
}
