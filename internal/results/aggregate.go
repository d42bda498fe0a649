package results

import (
	"fmt"

	"gauntlet/internal/run"
	"gauntlet/pkg/logging"
)

// Result is the reduced outcome of a run.
type Result struct {
	TotalTests    int        `json:"totalTests"`
	TotalFailures int        `json:"totalFailures"`
	TotalErrors   int        `json:"totalErrors"`
	Status        run.Status `json:"status"`
}

// Collect parses every expected artifact. The first missing or unreadable
// artifact aborts collection; an incomplete score must not look like a
// complete one.
func Collect(paths []string) ([]Record, error) {
	records := make([]Record, 0, len(paths))
	for _, path := range paths {
		record, err := ParseReport(path)
		if err != nil {
			return nil, err
		}
		logging.Debug("Aggregate", "Collected %s: %d tests, %d failures, %d errors",
			record.Artifact, record.Tests, record.Failures, record.Errors)
		records = append(records, record)
	}
	return records, nil
}

// Aggregate reduces the collected records into the run outcome.
//
// The totals are plain sums, so record order never changes the result. The
// run succeeds only when no failures or errors were counted and at least
// one test ran; an all-zero scoreboard means nothing was validated and is
// scored as a failure.
//
// A run that is itself a sibling inside a larger parallel run does not
// score anything: its parent reads the artifact it wrote and judges all
// siblings together, so the sibling reports Success unconditionally here.
func Aggregate(records []Record, expectedCount int, isParallelChild bool) (Result, error) {
	if isParallelChild {
		logging.Debug("Aggregate", "Sibling invocation, deferring aggregation to the parent run")
		return Result{Status: run.StatusSuccess}, nil
	}

	if len(records) < expectedCount {
		return Result{Status: run.StatusFailure}, &AggregationError{
			Message: fmt.Sprintf("expected %d report artifacts, found %d", expectedCount, len(records)),
		}
	}

	result := Result{Status: run.StatusFailure}
	for _, record := range records {
		result.TotalTests += record.Tests
		result.TotalFailures += record.Failures
		result.TotalErrors += record.Errors
	}

	switch {
	case result.TotalTests == 0:
		logging.Warn("Aggregate", "No test results were recorded, scoring the run as failed")
	case result.TotalFailures == 0 && result.TotalErrors == 0:
		result.Status = run.StatusSuccess
	}

	logging.Info("Aggregate", "Run scored %s: %d tests, %d failures, %d errors",
		result.Status, result.TotalTests, result.TotalFailures, result.TotalErrors)
	return result, nil
}
