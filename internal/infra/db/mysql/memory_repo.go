package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domain "github.com/Jimstew23/smlgpt-pipeline/internal/domain/memory"
)

// snapshotRow pins the single-row table used for the memory snapshot.
const snapshotRow = 1

// MemoryRepository persists the episodic memory snapshot as a single JSON
// row, replaced on every save.
type MemoryRepository struct {
	db *sql.DB
}

func NewMemoryRepository(db *sql.DB) *MemoryRepository {
	return &MemoryRepository{db: db}
}

// Load returns the stored snapshot, or nil on first start.
func (r *MemoryRepository) Load(ctx context.Context) (*domain.Snapshot, error) {
	const q = `SELECT snapshot_json FROM memory_snapshots WHERE id=? LIMIT 1;`
	var payload string
	err := r.db.QueryRowContext(ctx, q, snapshotRow).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, fmt.Errorf("decoding memory snapshot: %w", err)
	}
	return &snap, nil
}

// Save replaces the stored snapshot.
func (r *MemoryRepository) Save(ctx context.Context, snap *domain.Snapshot) error {
	const q = `
INSERT INTO memory_snapshots (id, snapshot_json, saved_at)
VALUES (?,?,?)
ON DUPLICATE KEY UPDATE
 snapshot_json=VALUES(snapshot_json), saved_at=VALUES(saved_at);
`
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding memory snapshot: %w", err)
	}
	saved := snap.SavedAt
	if saved.IsZero() {
		saved = time.Now()
	}
	_, err = r.db.ExecContext(ctx, q, snapshotRow, string(payload), saved)
	return err
}
