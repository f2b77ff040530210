package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	domain "github.com/Jimstew23/smlgpt-pipeline/internal/domain/assessment"
)

type AssessmentRepository struct {
	db *sql.DB
}

func NewAssessmentRepository(db *sql.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// Save inserts or updates an assessment record
func (r *AssessmentRepository) Save(ctx context.Context, rec *domain.Record) error {
	const q = `
INSERT INTO hazard_assessments
(id, site, created_at, source_label, image_url, risk_level, risk_score,
 confidence_level, stop_work, hazard_count, record_json)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
 risk_level=EXCLUDED.risk_level, risk_score=EXCLUDED.risk_score,
 confidence_level=EXCLUDED.confidence_level, stop_work=EXCLUDED.stop_work,
 hazard_count=EXCLUDED.hazard_count, record_json=EXCLUDED.record_json;
`
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	site := rec.Site
	if strings.TrimSpace(site) == "" {
		site = "-"
	}
	created := rec.Timestamp
	if created.IsZero() {
		created = time.Now()
	}
	_, err = r.db.ExecContext(ctx, q,
		rec.ID, site, created, rec.SourceLabel, rec.ImageURL,
		string(rec.RiskLevel), rec.RiskScore, rec.ConfidenceLevel, rec.StopWorkRequired,
		len(rec.Hazards), string(payload),
	)
	return err
}

// Get by ID + site
func (r *AssessmentRepository) Get(ctx context.Context, site string, id domain.RecordID) (*domain.Record, error) {
	const q = `SELECT record_json FROM hazard_assessments WHERE site=$1 AND id=$2 LIMIT 1;`
	var payload string
	if err := r.db.QueryRowContext(ctx, q, site, id).Scan(&payload); err != nil {
		return nil, err
	}
	return decodeRecord(payload)
}

// Latest assessments per site
func (r *AssessmentRepository) Latest(ctx context.Context, site string, limit int) ([]*domain.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT record_json FROM hazard_assessments
WHERE site=$1 ORDER BY created_at DESC, id DESC LIMIT $2;
`
	rows, err := r.db.QueryContext(ctx, q, site, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// Paginate with offset + limit
func (r *AssessmentRepository) Paginate(ctx context.Context, site string, page, pageSize int, filters map[string]interface{}) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := "SELECT record_json FROM hazard_assessments WHERE site=$1"
	args := []interface{}{site}
	query, args = applyFilters(query, args, filters)
	query += fmt.Sprintf("\nORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("querying assessments: %w", err)
	}
	defer rows.Close()

	records, err := collectRecords(rows)
	if err != nil {
		return domain.PaginatedResult{}, err
	}

	countQuery := "SELECT COUNT(*) FROM hazard_assessments WHERE site=$1"
	countArgs := []interface{}{site}
	countQuery, countArgs = applyFilters(countQuery, countArgs, filters)
	var total int64
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("getting total count: %w", err)
	}

	return domain.PaginatedResult{
		Data:       records,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

// Summary aggregates outcomes since N days
func (r *AssessmentRepository) Summary(ctx context.Context, site string, sinceDays int) (domain.SummaryCounts, error) {
	if sinceDays <= 0 {
		sinceDays = 7
	}
	cut := time.Now().AddDate(0, 0, -sinceDays)

	const q = `
SELECT COUNT(*),
       COALESCE(SUM(CASE WHEN risk_level = 'CRITICAL_STOP' THEN 1 ELSE 0 END),0),
       COALESCE(SUM(CASE WHEN risk_level = 'HIGH_RISK' THEN 1 ELSE 0 END),0),
       COALESCE(SUM(CASE WHEN stop_work THEN 1 ELSE 0 END),0)
FROM hazard_assessments
WHERE site=$1 AND created_at >= $2;
`
	var c domain.SummaryCounts
	if err := r.db.QueryRowContext(ctx, q, site, cut).Scan(&c.Total, &c.CriticalStop, &c.HighRisk, &c.StopWorkCount); err != nil {
		return domain.SummaryCounts{}, err
	}
	return c, nil
}

// applyFilters appends supported filter clauses with positional placeholders.
func applyFilters(query string, args []interface{}, filters map[string]interface{}) (string, []interface{}) {
	if filters == nil {
		return query, args
	}
	for key, value := range filters {
		switch key {
		case "risk_level":
			query += fmt.Sprintf(" AND risk_level = $%d", len(args)+1)
			args = append(args, value)
		case "stop_work":
			query += fmt.Sprintf(" AND stop_work = $%d", len(args)+1)
			args = append(args, value)
		case "source_label":
			query += fmt.Sprintf(" AND source_label = $%d", len(args)+1)
			args = append(args, value)
		}
	}
	return query, args
}

func decodeRecord(payload string) (*domain.Record, error) {
	var rec domain.Record
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, err
	}
	if rec.Hazards == nil {
		rec.Hazards = []domain.Hazard{}
	}
	return &rec, nil
}

func collectRecords(rows *sql.Rows) ([]*domain.Record, error) {
	var out []*domain.Record
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		rec, err := decodeRecord(payload)
		if err != nil {
			return nil, fmt.Errorf("decoding record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
