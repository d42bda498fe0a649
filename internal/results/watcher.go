package results

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"gauntlet/pkg/logging"
)

// WaitForArtifacts blocks until every expected artifact basename exists in
// dir, the context ends, or the timeout elapses (zero means no bound). It
// returns the basenames still missing, which callers hand straight to
// Collect so absence surfaces as the usual missing-report failure.
//
// The watcher is an observer, not a gate: sibling process exit remains the
// primary completion signal. Watching the report directory lets the parent
// log artifacts as they land and return early once all are present.
func WaitForArtifacts(ctx context.Context, dir string, expected []string, timeout time.Duration) []string {
	missing := make(map[string]struct{}, len(expected))
	for _, name := range expected {
		missing[name] = struct{}{}
	}
	scanPresent(dir, missing)
	if len(missing) == 0 {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Error("Aggregate", err, "Failed to create report watcher")
		return sortedNames(missing)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		logging.Error("Aggregate", err, "Failed to watch report directory %s", dir)
		return sortedNames(missing)
	}

	// Artifacts may have landed between the scan and the watch registration.
	scanPresent(dir, missing)
	if len(missing) == 0 {
		return nil
	}

	var expiry <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expiry = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return sortedNames(missing)

		case <-expiry:
			logging.Warn("Aggregate", "Gave up waiting for %d report artifacts after %s", len(missing), timeout)
			return sortedNames(missing)

		case event, ok := <-watcher.Events:
			if !ok {
				return sortedNames(missing)
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if _, wanted := missing[name]; !wanted {
				continue
			}
			if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
				continue
			}
			delete(missing, name)
			logging.Info("Aggregate", "Report artifact %s arrived", name)
			if len(missing) == 0 {
				return nil
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return sortedNames(missing)
			}
			logging.Error("Aggregate", err, "Report watcher error")
		}
	}
}

func scanPresent(dir string, missing map[string]struct{}) {
	for name := range missing {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			delete(missing, name)
		}
	}
}

func sortedNames(set map[string]struct{}) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
