package jobs

import "errors"

// Failure classes. Every per-URL error returned by the pipeline wraps one of these.
var (
	// ErrFetch means every renderer strategy failed for a URL.
	ErrFetch = errors.New("fetch failure")
	// ErrExtraction means the model output was not valid JSON or did not match the schema.
	ErrExtraction = errors.New("extraction failure")
	// ErrScoring means the resume-fit reply was not an integer in [0,10].
	ErrScoring = errors.New("scoring failure")
	// ErrConfiguration means a required setting is missing or invalid.
	ErrConfiguration = errors.New("configuration failure")
)
