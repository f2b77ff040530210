package memory

import "context"

// Persistence port consumed by the memory store: load once at process start,
// save after each learning step.
type Persistence interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, s *Snapshot) error
}
