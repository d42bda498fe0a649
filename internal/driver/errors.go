package driver

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// PhaseError wraps a controller failure with the lifecycle phase that was
// being entered and the driver call site, so a log line alone places the
// failure without a stack trace.
type PhaseError struct {
	Phase Phase
	File  string
	Line  int
	Err   error
}

// Error implements the error interface.
func (pe *PhaseError) Error() string {
	return fmt.Sprintf("lifecycle failed entering phase %s (%s:%d): %v",
		pe.Phase, filepath.Base(pe.File), pe.Line, pe.Err)
}

// Unwrap returns the controller's original error.
func (pe *PhaseError) Unwrap() error {
	return pe.Err
}

func newPhaseError(phase Phase, err error) *PhaseError {
	_, file, line, _ := runtime.Caller(1)
	return &PhaseError{Phase: phase, File: file, Line: line, Err: err}
}
