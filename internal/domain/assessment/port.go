package assessment

import (
	"context"
)

// Repository port (interface for the durable assessment audit log)
type Repository interface {
	Save(ctx context.Context, r *Record) error
	Get(ctx context.Context, site string, id RecordID) (*Record, error)
	Latest(ctx context.Context, site string, limit int) ([]*Record, error)
	Paginate(ctx context.Context, site string, page, pageSize int, filters map[string]interface{}) (PaginatedResult, error)
	Summary(ctx context.Context, site string, sinceDays int) (SummaryCounts, error)
}

// SummaryCounts aggregates assessment outcomes over a window.
type SummaryCounts struct {
	Total         int `json:"total_assessments"`
	CriticalStop  int `json:"critical_stop"`
	HighRisk      int `json:"high_risk"`
	StopWorkCount int `json:"stop_work_events"`
}

// ImageStore port (interface for archiving uploaded images)
type ImageStore interface {
	PutImage(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
