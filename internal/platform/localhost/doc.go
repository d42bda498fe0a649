// Package localhost is the backend controller that executes test cases as
// local processes.
//
// Each case command runs under the configured shell with the run's secrets
// injected as environment variables. Output is captured per case, embedded
// in the report artifact, and mirrored to a log file beside it. The
// controller owns a scratch directory whose fate follows the run's cleanup
// policy.
package localhost
