// Package run owns the identity and process-wide state of a single run.
//
// A run is identified by a short unique token. Top-level invocations
// generate a fresh token and derive a timestamped log directory from it;
// sibling invocations spawned for parallel execution reuse the token (plus
// a suffix) and the directories their parent established, so all artifacts
// of one logical run live under one tree.
//
// The package also carries the named state store that controllers share
// during a run, and the Guard that brackets the whole run: whatever
// happens inside, state introduced during the run is cleared on exit, with
// the final status as the single surviving name.
package run
