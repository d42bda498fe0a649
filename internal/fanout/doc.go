// Package fanout spawns sibling processes for parallel runs.
//
// A parallel run keeps one parent process as the judge and hands the actual
// case execution to N child processes of the same binary. Children share
// the parent's workspace and log directory, derive their identity from the
// parent's run ID, and leave one report artifact each. The parent only
// observes process exits here; verdicts come from aggregating the
// artifacts afterwards.
package fanout
