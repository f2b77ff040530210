package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Jimstew23/smlgpt-pipeline/internal/application"
	memstore "github.com/Jimstew23/smlgpt-pipeline/internal/application/memory"
	"github.com/Jimstew23/smlgpt-pipeline/internal/domain/assessment"
	"github.com/Jimstew23/smlgpt-pipeline/internal/domain/pipelineerrors"
	"github.com/Jimstew23/smlgpt-pipeline/internal/domain/vision"
)

const defaultOracleTimeout = 60 * time.Second

// Service drives the assessment pipeline for one request: vision oracle,
// memory cross-validation, confidence assessment, stop-work gate, score
// integration, recommendation composition, then the learning step.
//
// Only the mandatory oracle stage can fail the run. Every downstream stage
// degrades to a conservative default, and the stop-work gate fails closed.
// Service is safe for concurrent use; shared state lives in the memory store.
type Service struct {
	Vision   vision.Analyzer
	Memory   *memstore.Store
	Records  assessment.Repository     // optional audit log
	Images   assessment.ImageStore     // optional archive
	Errors   pipelineerrors.Repository // optional failure log
	Assessor Assessor
	Matcher  *Matcher
	Gate     *StopWorkEngine
	Clock    application.Clock

	// OracleTimeout bounds the vision call; zero means the 60s default.
	OracleTimeout time.Duration
}

// NewService wires the default strategies around the mandatory collaborators.
func NewService(oracle vision.Analyzer, store *memstore.Store) *Service {
	return &Service{
		Vision:   oracle,
		Memory:   store,
		Assessor: RuleBasedAssessor{},
		Matcher:  NewMatcher(),
		Gate:     NewStopWorkEngine(),
		Clock:    application.SystemClock{},
	}
}

// AssessHazards runs the full pipeline over one image and returns the
// assembled record. The returned error is non-nil only when the mandatory
// oracle stage fails (transport or malformed output).
func (s *Service) AssessHazards(ctx context.Context, site string, imageBytes []byte, sourceLabel string) (*assessment.Record, error) {
	id := assessment.RecordID(uuid.New().String())
	now := s.Clock.Now()

	// Archive the image first so the record can reference it. Best-effort:
	// an unreachable bucket must not block the safety analysis.
	var imageURL string
	if s.Images != nil {
		key := fmt.Sprintf("%s/%s/%s", site, now.UTC().Format("2006-01-02"), id)
		url, err := s.Images.PutImage(ctx, key, imageBytes, http.DetectContentType(imageBytes))
		if err != nil {
			log.Printf("image archive failed for %s: %v", id, err)
		} else {
			imageURL = url
		}
	}

	raw, err := s.callOracle(ctx, imageBytes, sourceLabel)
	if err != nil {
		s.recordFailure(site, id, "vision", err)
		return nil, err
	}

	initial, err := ParseInitialAnalysis(raw)
	if err != nil {
		s.recordFailure(site, id, "extraction", err)
		return nil, err
	}

	hazardTypes := hazardTypesOf(initial.Hazards)
	memVal, matches := s.validateMemory(hazardTypes, initial)

	conf, err := s.Assessor.Assess(ctx, initial, memVal)
	if err != nil {
		log.Printf("confidence assessment failed for %s: %v", id, err)
		conf = fallbackConfidence()
	}

	decision := s.Gate.Evaluate(initial.Hazards, initial.StopWorkRequired, s.Memory.Triggers())

	score := IntegrateScore(*initial.RiskScore, conf.OverallConfidence, memVal.MemoryConfidence)
	level := ClassifyRisk(score, decision.Required)

	rec := &assessment.Record{
		ID:                 id,
		Site:               site,
		Timestamp:          now,
		SourceLabel:        sourceLabel,
		ImageURL:           imageURL,
		RiskLevel:          level,
		RiskScore:          score,
		ConfidenceLevel:    conf.OverallConfidence,
		StopWorkRequired:   decision.Required,
		StopWorkReasoning:  decision.Reasoning,
		Hazards:            initial.Hazards,
		Categories:         dedupeAppend(nil, initial.Categories),
		ImmediateActions:   ComposeImmediateActions(decision.Required, initial.ImmediateActions),
		Recommendations:    ComposeRecommendations(initial.Recommendations, matches),
		Reasoning:          initial.Reasoning,
		UncertaintyFactors: conf.UncertaintyFactors,
		Memory:             memVal,
	}
	if rec.Hazards == nil {
		rec.Hazards = []assessment.Hazard{}
	}

	s.learn(ctx, rec)
	return rec, nil
}

// callOracle performs the mandatory vision call under an explicit timeout and
// maps transport failures onto the pipeline error taxonomy.
func (s *Service) callOracle(ctx context.Context, imageBytes []byte, sourceLabel string) (string, error) {
	timeout := s.OracleTimeout
	if timeout <= 0 {
		timeout = defaultOracleTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dataURL := fmt.Sprintf("data:%s;base64,%s",
		http.DetectContentType(imageBytes),
		base64.StdEncoding.EncodeToString(imageBytes))

	raw, err := s.Vision.Analyze(ctx, dataURL, sourceLabel)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded),
			errors.Is(err, vision.ErrUnavailable),
			errors.Is(err, vision.ErrQuotaExceeded):
			return "", fmt.Errorf("%w: %v", assessment.ErrTransientService, err)
		default:
			return "", fmt.Errorf("vision analysis failed: %w", err)
		}
	}
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: empty model output", assessment.ErrMalformedResponse)
	}
	return raw, nil
}

// validateMemory runs the similarity matcher, absorbing any panic with a
// neutral default so memory problems never abort an assessment.
func (s *Service) validateMemory(hazardTypes []string, initial *InitialAnalysis) (memVal assessment.MemoryValidation, matches []Match) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("memory validation failed: %v", r)
			memVal = assessment.MemoryValidation{MemoryConfidence: 50}
			matches = nil
		}
	}()

	// Pattern lookup uses the provisional level implied by the raw score.
	level := ClassifyRisk(*initial.RiskScore, initial.StopWorkRequired)

	memVal, matches = s.Matcher.Validate(
		hazardTypes,
		initial.Categories,
		s.Memory.History(),
		s.Memory.Patterns(level),
		s.Memory.Triggers(),
	)
	return memVal, matches
}

// learn appends the finished record to the episodic memory and the audit log.
// Both are fire-and-forget: the record has already been computed and the
// caller gets it back regardless.
func (s *Service) learn(ctx context.Context, rec *assessment.Record) {
	if err := s.Memory.Append(ctx, rec); err != nil {
		log.Printf("memory learning step failed for %s: %v", rec.ID, err)
		s.recordFailure(rec.Site, rec.ID, "memory", err)
	}
	if s.Records != nil {
		if err := s.Records.Save(ctx, rec); err != nil {
			log.Printf("audit save failed for %s: %v", rec.ID, err)
			s.recordFailure(rec.Site, rec.ID, "persistence", err)
		}
	}
}

// recordFailure logs a pipeline failure to the error repository, best-effort.
func (s *Service) recordFailure(site string, id assessment.RecordID, stage string, cause error) {
	if s.Errors == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e := &pipelineerrors.PipelineError{
		Site:         site,
		AssessmentID: string(id),
		Stage:        stage,
		Message:      cause.Error(),
		CreatedAt:    s.Clock.Now(),
	}
	if err := s.Errors.Save(ctx, e); err != nil {
		log.Printf("pipeline error log write failed: %v", err)
	}
}

func hazardTypesOf(hazards []assessment.Hazard) []string {
	seen := make(map[string]bool, len(hazards))
	var out []string
	for _, h := range hazards {
		if h.Type == "" || seen[h.Type] {
			continue
		}
		seen[h.Type] = true
		out = append(out, h.Type)
	}
	return out
}
