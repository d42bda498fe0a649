package platform

import (
	"context"

	"gauntlet/internal/params"
	"gauntlet/internal/run"
)

// Controller is the capability surface a backend exposes to the lifecycle
// driver. Calls arrive in declaration order, each at most once per run.
// The context is the run's signal context; the driver never cancels a
// phase that is already in flight, so honoring it mid-phase is at the
// controller's discretion.
type Controller interface {
	// ParseAndValidateParameters interprets the backend-specific keys of
	// the resolved parameter set and rejects the run on any malformed or
	// missing value it owns.
	ParseAndValidateParameters(set *params.Set) error

	// PrepareTestEnvironment provisions or verifies the environment the
	// cases will run against. secretsRef points at the credentials file
	// for backends that need one; its contents are the backend's business.
	PrepareTestEnvironment(ctx context.Context, secretsRef string) error

	// LoadTestCases loads, filters, and expands the case definitions found
	// under the workspace. Definitions are validated separately before the
	// lifecycle begins; load failures here are about selection and
	// expansion, not syntax.
	LoadTestCases(ctx context.Context, workspaceRoot string, custom map[string]string) error

	// RunLoadedTestCases executes every loaded case iterations times and
	// writes the JUnit-style report artifact to reportPath. A failing case
	// is recorded in the report, not returned as an error; errors mean the
	// backend itself broke.
	RunLoadedTestCases(ctx context.Context, reportPath string, iterations int, parallel bool) error

	// Summary returns a human-readable account of what ran. It is
	// informational; the driver logs a failure here without failing the run.
	Summary(ctx context.Context) (string, error)
}

// Factory constructs a controller bound to the given run state store.
type Factory func(store *run.Store) Controller
