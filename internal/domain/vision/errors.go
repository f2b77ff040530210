package vision

import "errors"

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrUnavailable indicates the provider was unreachable or returned a 5xx.
var ErrUnavailable = errors.New("vision provider unavailable")
