package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// LogLevel defines the severity of the log entry.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String makes LogLevel satisfy the fmt.Stringer interface.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo // Default to INFO for unknown
	}
}

// switchableWriter lets a file sink be attached after the logger is
// initialized without rebuilding the handler. The run log directory only
// exists once RunIdentity has established it, which is well after flag
// parsing configures logging.
type switchableWriter struct {
	mu  sync.Mutex
	dst io.Writer
}

func (w *switchableWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dst == nil {
		return len(p), nil
	}
	return w.dst.Write(p)
}

func (w *switchableWriter) set(dst io.Writer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dst = dst
}

var (
	defaultLogger *slog.Logger
	output        = &switchableWriter{}
	console       io.Writer
	runLogFile    *os.File
)

// InitForCLI initializes the logging system. This should be called once at
// application startup, before any log calls.
func InitForCLI(level LogLevel, out io.Writer) {
	opts := &slog.HandlerOptions{
		Level: level.SlogLevel(),
	}
	console = out
	output.set(out)
	defaultLogger = slog.New(slog.NewTextHandler(output, opts))
	slog.SetDefault(defaultLogger)
}

// AttachRunLog tees all subsequent log output into the given file in
// addition to the console writer. Called once the run's log directory
// exists. Returns an error only if the file cannot be created.
func AttachRunLog(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open run log %s: %w", path, err)
	}
	runLogFile = f
	if console != nil {
		output.set(io.MultiWriter(console, f))
	} else {
		output.set(f)
	}
	return nil
}

// CloseRunLog detaches and closes the per-run log file, if one is attached.
func CloseRunLog() {
	if runLogFile == nil {
		return
	}
	output.set(console)
	_ = runLogFile.Close()
	runLogFile = nil
}

func logInternal(level LogLevel, subsystem string, err error, messageFmt string, args ...interface{}) {
	if defaultLogger == nil || !defaultLogger.Enabled(context.Background(), level.SlogLevel()) {
		return
	}

	msg := messageFmt
	if len(args) > 0 {
		msg = fmt.Sprintf(messageFmt, args...)
	}

	var slogAttrs []slog.Attr
	slogAttrs = append(slogAttrs, slog.String("subsystem", subsystem))
	if err != nil {
		slogAttrs = append(slogAttrs, slog.String("error", err.Error()))
	}

	defaultLogger.LogAttrs(context.Background(), level.SlogLevel(), msg, slogAttrs...)
}

// Debug logs a debug message.
func Debug(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelDebug, subsystem, nil, messageFmt, args...)
}

// Info logs an informational message.
func Info(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelInfo, subsystem, nil, messageFmt, args...)
}

// Warn logs a warning message.
func Warn(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelWarn, subsystem, nil, messageFmt, args...)
}

// Error logs an error message.
func Error(subsystem string, err error, messageFmt string, args ...interface{}) {
	logInternal(LevelError, subsystem, err, messageFmt, args...)
}
