package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	domain "github.com/Jimstew23/smlgpt-pipeline/internal/domain/assessment"
)

type AssessmentRepository struct {
	db *sql.DB
}

func NewAssessmentRepository(db *sql.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// Save insert/update an assessment record. Scalar columns are flattened for
// querying; the full record lives in record_json.
func (r *AssessmentRepository) Save(ctx context.Context, rec *domain.Record) error {
	const q = `
INSERT INTO hazard_assessments
(id, site, created_at, source_label, image_url, risk_level, risk_score,
 confidence_level, stop_work, hazard_count, record_json)
VALUES (?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 risk_level=VALUES(risk_level), risk_score=VALUES(risk_score),
 confidence_level=VALUES(confidence_level), stop_work=VALUES(stop_work),
 hazard_count=VALUES(hazard_count), record_json=VALUES(record_json);
`
	payload, err := encodeRecord(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	created := rec.Timestamp
	if created.IsZero() {
		created = time.Now()
	}
	_, err = r.db.ExecContext(ctx, q,
		rec.ID, stringOrDash(rec.Site), created, stringOrDash(rec.SourceLabel), rec.ImageURL,
		string(rec.RiskLevel), rec.RiskScore, rec.ConfidenceLevel, rec.StopWorkRequired,
		len(rec.Hazards), payload,
	)
	return err
}

// Get by ID + site
func (r *AssessmentRepository) Get(ctx context.Context, site string, id domain.RecordID) (*domain.Record, error) {
	const q = `
SELECT record_json FROM hazard_assessments
WHERE site=? AND id=? LIMIT 1;
`
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
WHERE site=? ORDER BY created_at DESC, id DESC LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, site, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// Paginate with offset + limit (classic pagination)
func (r *AssessmentRepository) Paginate(ctx context.Context, site string, page, pageSize int, filters map[string]interface{}) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := `
SELECT record_json FROM hazard_assessments
WHERE site=?`
	args := []interface{}{site}
	query, args = applyFilters(query, args, filters)
	query += "\nORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
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

	total, err := r.count(ctx, site, filters)
	if err != nil {
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
       COALESCE(SUM(risk_level = 'CRITICAL_STOP'),0),
       COALESCE(SUM(risk_level = 'HIGH_RISK'),0),
       COALESCE(SUM(stop_work),0)
FROM hazard_assessments
WHERE site=? AND created_at >= ?;
`
	var c domain.SummaryCounts
	if err := r.db.QueryRowContext(ctx, q, site, cut).Scan(&c.Total, &c.CriticalStop, &c.HighRisk, &c.StopWorkCount); err != nil {
		return domain.SummaryCounts{}, err
	}
	return c, nil
}

func (r *AssessmentRepository) count(ctx context.Context, site string, filters map[string]interface{}) (int64, error) {
	query := "SELECT COUNT(*) FROM hazard_assessments WHERE site = ?"
	args := []interface{}{site}
	query, args = applyFilters(query, args, filters)

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilters appends the supported filter clauses to a query.
func applyFilters(query string, args []interface{}, filters map[string]interface{}) (string, []interface{}) {
	if filters == nil {
		return query, args
	}
	for key, value := range filters {
		switch key {
		case "risk_level":
			query += " AND risk_level = ?"
			args = append(args, value)
		case "stop_work":
			query += " AND stop_work = ?"
			args = append(args, value)
		case "source_label":
			query += " AND source_label = ?"
			args = append(args, value)
		}
	}
	return query, args
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
