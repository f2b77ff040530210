package memory

import (
	"time"

	"github.com/Jimstew23/smlgpt-pipeline/internal/domain/assessment"
)

// PatternSummary condenses one assessment into the pattern index bucket for
// its risk level.
type PatternSummary struct {
	HazardTypes []string  `json:"hazard_types"`
	Categories  []string  `json:"categories"`
	Timestamp   time.Time `json:"timestamp"`
}

// StopWorkTrigger names a hazard-type combination that has historically
// warranted stopping work.
type StopWorkTrigger struct {
	Name        string   `json:"name"`
	HazardTypes []string `json:"hazard_types"`
}

// Snapshot is the durable serialization of the episodic memory: the bounded
// analysis history, the derived pattern index, and the learned triggers.
type Snapshot struct {
	Analyses []*assessment.Record                            `json:"analyses"`
	Patterns map[assessment.RiskLevel][]PatternSummary       `json:"patterns"`
	Triggers []StopWorkTrigger                               `json:"stop_work_triggers"`
	SavedAt  time.Time                                       `json:"saved_at"`
}
