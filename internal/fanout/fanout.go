package fanout

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/briandowns/spinner"
	"golang.org/x/sync/errgroup"

	"gauntlet/internal/run"
	"gauntlet/pkg/logging"
)

// Options configures one fan-out of sibling runs.
type Options struct {
	// Binary is the executable to spawn; empty means the current binary.
	Binary string
	// BuildArgs returns the argv (after the program name) for one child.
	BuildArgs func(childID string) []string
	// Count is how many siblings to spawn.
	Count int
	// Parent is the run identity children inherit.
	Parent *run.Context
	// Timeout bounds the whole fan-out wall-clock; zero means unbounded.
	Timeout time.Duration
	// Quiet suppresses the progress spinner.
	Quiet bool
}

// ChildResult is the process outcome of one sibling. A nonzero exit code is
// an expected outcome, not an error; Err is set only when the child could
// not be started or was killed before exiting on its own.
type ChildResult struct {
	ID       string
	ExitCode int
	Err      error
}

// Run spawns Count sibling processes and waits for all of them to exit.
func Run(ctx context.Context, opts Options) ([]ChildResult, error) {
	if opts.Count < 1 {
		return nil, fmt.Errorf("fan-out needs at least one child, got %d", opts.Count)
	}
	if opts.BuildArgs == nil {
		return nil, fmt.Errorf("fan-out needs an argument builder")
	}

	binary := opts.Binary
	if binary == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locating own executable: %w", err)
		}
		binary = self
	}

	childLogDir := filepath.Join(opts.Parent.LogDir, "children")
	if err := os.MkdirAll(childLogDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating child log directory: %w", err)
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	if !opts.Quiet {
		sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		sp.Suffix = fmt.Sprintf(" Running %d parallel children of run %s...", opts.Count, opts.Parent.ID)
		sp.Start()
		defer sp.Stop()
	}

	results := make([]ChildResult, opts.Count)
	g, groupCtx := errgroup.WithContext(ctx)
	for n := 1; n <= opts.Count; n++ {
		g.Go(func() error {
			childID := opts.Parent.SiblingID(n)
			results[n-1] = spawnChild(groupCtx, binary, childID, childLogDir, opts.BuildArgs(childID))
			return nil
		})
	}
	// Children never surface errors through the group; outcomes live in
	// results so one bad child cannot cancel its siblings.
	_ = g.Wait()

	for _, r := range results {
		if r.Err != nil {
			logging.Warn("Fanout", "Child %s did not finish: %v", r.ID, r.Err)
			continue
		}
		logging.Info("Fanout", "Child %s exited with code %d", r.ID, r.ExitCode)
	}
	return results, nil
}

func spawnChild(ctx context.Context, binary, childID, logDir string, args []string) ChildResult {
	result := ChildResult{ID: childID, ExitCode: -1}

	logPath := filepath.Join(logDir, childID+".log")
	logFile, err := os.Create(logPath)
	if err != nil {
		result.Err = fmt.Errorf("creating child log %s: %w", logPath, err)
		return result
	}
	defer logFile.Close()

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	logging.Debug("Fanout", "Spawning child %s: %s %v", childID, binary, args)
	if err := cmd.Start(); err != nil {
		result.Err = fmt.Errorf("starting child %s: %w", childID, err)
		return result
	}

	waitErr := cmd.Wait()
	result.ExitCode = cmd.ProcessState.ExitCode()
	if waitErr != nil && result.ExitCode < 0 {
		result.Err = fmt.Errorf("waiting for child %s: %w", childID, waitErr)
	}
	return result
}
