package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	domain "github.com/Jimstew23/smlgpt-pipeline/internal/domain/pipelineerrors"
)

type PipelineErrorRepository struct {
	db *sql.DB
}

func NewPipelineErrorRepository(db *sql.DB) *PipelineErrorRepository {
	return &PipelineErrorRepository{db: db}
}

func (r *PipelineErrorRepository) Save(ctx context.Context, e *domain.PipelineError) error {
	const q = `
INSERT INTO pipeline_errors
  (site, assessment_id, stage, message, details_json, created_at)
VALUES (?,?,?,?,?,?)
`
	site := stringOrDash(e.Site)
	assessment := stringOrDash(e.AssessmentID)
	stage := stringOrDash(e.Stage)
	msg := e.Message
	if strings.TrimSpace(msg) == "" {
		msg = "-"
	}
	details := e.DetailsJSON
	if strings.TrimSpace(details) == "" {
		details = "{}"
	} else {
		// ensure valid json; if invalid, wrap as string field
		var js any
		if json.Unmarshal([]byte(details), &js) != nil {
			b, _ := json.Marshal(map[string]string{"raw": details})
			details = string(b)
		}
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q, site, assessment, stage, msg, details, created)
	return err
}

func (r *PipelineErrorRepository) ListByAssessment(ctx context.Context, site string, assessmentID string, limit int) ([]*domain.PipelineError, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, site, assessment_id, stage, message, details_json, created_at
FROM pipeline_errors
WHERE site = ? AND assessment_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, site, assessmentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.PipelineError
	for rows.Next() {
		var e domain.PipelineError
		var created time.Time
		if err := rows.Scan(&e.ID, &e.Site, &e.AssessmentID, &e.Stage, &e.Message, &e.DetailsJSON, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = created
		out = append(out, &e)
	}
	return out, rows.Err()
}
