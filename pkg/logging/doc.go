// Package logging provides a structured logging system for gauntlet with
// unified log handling across the console and the per-run log file.
//
// This package implements a logging system built on Go's standard slog
// package, providing consistent logging behavior with structured output and
// level filtering.
//
// # Log Levels
//   - **Debug**: Detailed information for debugging and development
//   - **Info**: General informational messages about run progress
//   - **Warn**: Warning messages that indicate potential issues
//   - **Error**: Error messages for failures and exceptional conditions
//
// All log entries include a timestamp, level, subsystem identifier for
// categorization, the message, and optional error information.
//
// # Usage
//
//	import "gauntlet/pkg/logging"
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Driver", "Run %s starting", runID)
//	logging.Debug("Params", "Loaded parameter file %s", path)
//	logging.Warn("Params", "Override replaces file value for %q", key)
//	logging.Error("Aggregate", err, "Failed to parse report")
//
// # Per-Run Log File
//
// Once the run's log directory has been established, AttachRunLog tees all
// subsequent output into a file inside it, so the complete driver log
// travels with the run artifacts:
//
//	if err := logging.AttachRunLog(filepath.Join(rc.ScopedLogDir(), "gauntlet.log")); err != nil { ... }
//	defer logging.CloseRunLog()
//
// # Subsystem Organization
//
// Logs are organized by subsystem to enable filtering and categorization:
//
//   - **Bootstrap**: Application initialization and startup
//   - **Params**: Parameter resolution and validation
//   - **Run**: Run identity, state store, and guard cleanup
//   - **Driver**: Controller lifecycle phases
//   - **Aggregate**: Report collection and scoring
//   - **Fanout**: Sibling process management
//   - **Platform**: Backend controllers
//
// The logging system is fully thread-safe; concurrent logging from multiple
// goroutines is supported.
package logging
