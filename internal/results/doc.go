// Package results reduces result report artifacts into the run outcome.
//
// Controllers write their results as JUnit-style XML; this package parses
// those artifacts back into numeric records, sums them, and applies the
// scoring rule: a run succeeds only when nothing failed, nothing errored,
// and at least one test actually ran. An expected artifact that is missing
// or unreadable fails the run outright rather than shrinking the score.
//
// The package also owns the report writer the shipped controllers use, a
// filesystem watcher that observes sibling artifacts as they land during
// parallel runs, and the console summary table.
package results
