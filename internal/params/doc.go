// Package params implements parameter resolution for a run.
//
// Parameters arrive from two sources: an optional YAML parameter file and
// explicit command-line overrides. The two are merged into a single Set with
// override-wins precedence; every value an override displaces is logged so
// the losing source is visible in the run log. Keys are unique
// case-insensitively and preserve insertion order for deterministic
// iteration.
//
// The only key the resolver itself requires is "platform", which selects the
// backend controller. Every other key is owned and validated by the chosen
// controller.
package params
