package pipelineerrors

import (
	"context"
)

// Repository defines persistence for pipeline errors
type Repository interface {
	Save(ctx context.Context, e *PipelineError) error
	ListByAssessment(ctx context.Context, site string, assessmentID string, limit int) ([]*PipelineError, error)
}
