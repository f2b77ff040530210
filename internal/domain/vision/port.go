package vision

import "context"

// Analyzer is the boundary to the external vision-language oracle. The image
// is passed as a URL (data URL for in-memory bytes); the return value is the
// model's raw text, which may wrap the analysis JSON in prose.
type Analyzer interface {
	Analyze(ctx context.Context, imageURL, sourceLabel string) (string, error)
}
