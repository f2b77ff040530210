package assessment

import "errors"

// Error taxonomy for the pipeline. Callers classify with errors.Is; stage
// failures are wrapped with fmt.Errorf("...: %w", ...).
var (
	// ErrMalformedResponse: the model's output contained no parseable analysis
	// object. Non-retryable; surfaced to the caller as a failed analysis.
	ErrMalformedResponse = errors.New("malformed analysis response")

	// ErrTransientService: the vision service timed out or was unavailable.
	// Retryable by the caller.
	ErrTransientService = errors.New("vision service unavailable")

	// ErrInternalEvaluation: a scoring or matching stage failed internally.
	ErrInternalEvaluation = errors.New("internal evaluation error")

	// ErrPersistence: a durable write failed. Logged by the pipeline, never
	// surfaced to the caller of AssessHazards.
	ErrPersistence = errors.New("persistence failed")
)
