package platform

import (
	"fmt"
	"strings"
)

// Parameter keys every builtin controller understands.
const (
	// KeyWorkers caps concurrent case execution when a run is parallel.
	KeyWorkers = "workers"
	// KeyDefinitions overrides where case definitions are loaded from.
	KeyDefinitions = "definitions"
	// KeyCleanup selects what happens to the environment a controller
	// created once execution finished.
	KeyCleanup = "cleanup"
)

// Cleanup policies for controller-created environments.
const (
	CleanupAlways    = "always"
	CleanupNever     = "never"
	CleanupOnSuccess = "onsuccess"
)

// ParseCleanup normalizes a cleanup policy value, defaulting to
// CleanupAlways when unset.
func ParseCleanup(raw string) (string, error) {
	policy := strings.ToLower(strings.TrimSpace(raw))
	if policy == "" {
		return CleanupAlways, nil
	}
	switch policy {
	case CleanupAlways, CleanupNever, CleanupOnSuccess:
		return policy, nil
	}
	return "", fmt.Errorf("unknown cleanup policy %q, expected %s, %s or %s",
		raw, CleanupAlways, CleanupNever, CleanupOnSuccess)
}
