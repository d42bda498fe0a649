package run

import (
	"fmt"
	"runtime"
	"strings"
)

// RunError is the catch-all for faults outside the structured taxonomy:
// recovered panics and failures with no more specific home. It records the
// origin location so the log points at the faulting code.
type RunError struct {
	File string
	Line int
	Err  error
}

// Error implements the error interface.
func (e *RunError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("run error: %v", e.Err)
	}
	return fmt.Sprintf("run error at %s:%d: %v", e.File, e.Line, e.Err)
}

// Unwrap returns the underlying cause.
func (e *RunError) Unwrap() error {
	return e.Err
}

// NewRunError wraps err with the caller's location.
func NewRunError(err error) *RunError {
	_, file, line, _ := runtime.Caller(1)
	return &RunError{File: file, Line: line, Err: err}
}

// newPanicError converts a recovered panic value into a RunError pointing
// at the panic site rather than the recovery site.
func newPanicError(recovered interface{}) *RunError {
	err, ok := recovered.(error)
	if !ok {
		err = fmt.Errorf("panic: %v", recovered)
	} else {
		err = fmt.Errorf("panic: %w", err)
	}

	re := &RunError{Err: err}
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") && frame.File != "" {
			re.File = frame.File
			re.Line = frame.Line
			break
		}
		if !more {
			break
		}
	}
	return re
}
