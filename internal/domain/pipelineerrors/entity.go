package pipelineerrors

import "time"

// PipelineError represents a persisted pipeline failure entry
type PipelineError struct {
	ID           int64     `json:"id"`
	Site         string    `json:"site"`
	AssessmentID string    `json:"assessment_id"`
	Stage        string    `json:"stage,omitempty"` // vision | extraction | memory | persistence
	Message      string    `json:"message"`
	DetailsJSON  string    `json:"details_json,omitempty"` // raw JSON string
	CreatedAt    time.Time `json:"created_at"`
}
