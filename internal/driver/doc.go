// Package driver walks a backend controller through the run lifecycle.
//
// The lifecycle is a strict linear progression: the controller is selected
// from the registry, validates its parameters, prepares the environment,
// loads cases, executes them, and reports. The first failure moves the run
// to the terminal Failed state and skips everything behind it except the
// guard-level cleanup that wraps the whole run. There are no retries and
// no alternate paths; a controller that wants resilience builds it inside
// its own phases.
//
// The one exception is the summary step: it only describes what already
// happened, so its failure is logged and the run still counts as reported.
package driver
