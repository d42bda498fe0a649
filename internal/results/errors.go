package results

import "fmt"

// AggregationError represents a failure to assemble the run outcome from
// report artifacts: an expected artifact is missing, unreadable, or the
// collected set is smaller than the number of reports the run produced.
type AggregationError struct {
	Artifact string `json:"artifact"` // Artifact path the error relates to, if any
	Message  string `json:"message"`  // Human-readable error message
	Err      error  `json:"-"`        // Underlying cause, if any
}

// Error implements the error interface.
func (ae *AggregationError) Error() string {
	if ae.Artifact == "" {
		return fmt.Sprintf("aggregation error: %s", ae.Message)
	}
	return fmt.Sprintf("aggregation error: %s: %s", ae.Artifact, ae.Message)
}

// Unwrap returns the underlying cause.
func (ae *AggregationError) Unwrap() error {
	return ae.Err
}

// NewAggregationError creates a new aggregation error for an artifact.
func NewAggregationError(artifact, message string, err error) *AggregationError {
	return &AggregationError{Artifact: artifact, Message: message, Err: err}
}
