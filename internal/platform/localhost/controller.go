package localhost

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"gauntlet/internal/driver"
	"gauntlet/internal/params"
	"gauntlet/internal/platform"
	"gauntlet/internal/results"
	"gauntlet/internal/run"
	"gauntlet/internal/testdef"
	"gauntlet/pkg/logging"
)

// Name is the identifier runs select this controller with.
const Name = "localhost"

// Parameter keys the controller understands beyond the shared selection
// criteria and the keys every controller shares.
const (
	KeyShell       = "shell"
	KeyCaseTimeout = "case_timeout"
)

// StoreKeyScratchDir is the run-state name the scratch directory is
// published under once the environment is prepared.
const StoreKeyScratchDir = "LocalScratchDir"

const (
	defaultShell       = "/bin/sh"
	defaultCaseTimeout = 10 * time.Minute
	defaultWorkers     = 4
)

type controller struct {
	store *run.Store

	shell       string
	caseTimeout time.Duration
	workers     int
	definitions string
	cleanup     string
	criteria    testdef.Criteria

	scratchDir string
	secrets    map[string]string
	cases      []testdef.Case

	reportPath string
	tally      platform.Tally
}

// New builds a localhost controller bound to the given run state.
func New(store *run.Store) platform.Controller {
	return &controller{store: store}
}

func (c *controller) ParseAndValidateParameters(set *params.Set) error {
	criteria, err := testdef.CriteriaFromParams(set)
	if err != nil {
		return err
	}
	c.criteria = criteria

	c.shell = set.Get(KeyShell)
	if c.shell == "" {
		c.shell = defaultShell
	}

	c.caseTimeout = defaultCaseTimeout
	if raw, ok := set.Lookup(KeyCaseTimeout); ok && raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return params.NewConfigurationError(KeyCaseTimeout, "platform",
				fmt.Sprintf("expected a positive duration, got %q", raw))
		}
		c.caseTimeout = d
	}

	workers, err := set.GetInt(platform.KeyWorkers, defaultWorkers)
	if err != nil {
		return err
	}
	if workers < 1 {
		return params.NewConfigurationError(platform.KeyWorkers, "platform",
			fmt.Sprintf("expected at least 1 worker, got %d", workers))
	}
	c.workers = workers

	c.definitions = set.Get(platform.KeyDefinitions)

	cleanup, err := platform.ParseCleanup(set.Get(platform.KeyCleanup))
	if err != nil {
		return params.NewConfigurationError(platform.KeyCleanup, "platform", err.Error())
	}
	c.cleanup = cleanup

	return nil
}

func (c *controller) PrepareTestEnvironment(ctx context.Context, secretsRef string) error {
	if _, err := exec.LookPath(c.shell); err != nil {
		return params.NewConfigurationError(KeyShell, "platform",
			fmt.Sprintf("shell %q not found: %v", c.shell, err))
	}

	secrets, err := loadSecrets(secretsRef)
	if err != nil {
		return err
	}
	c.secrets = secrets
	if len(secrets) > 0 {
		logging.Info("Platform", "Loaded %d secret values into the case environment", len(secrets))
	}

	dir, err := os.MkdirTemp("", "gauntlet-local-")
	if err != nil {
		return fmt.Errorf("creating scratch directory: %w", err)
	}
	c.scratchDir = dir
	c.store.Set(StoreKeyScratchDir, dir)
	logging.Debug("Platform", "Scratch directory at %s", dir)
	return nil
}

func (c *controller) LoadTestCases(ctx context.Context, workspaceRoot string, custom map[string]string) error {
	defsPath := testdef.DefinitionsPath(c.definitions, workspaceRoot)
	cases, err := testdef.LoadCases(defsPath)
	if err != nil {
		return err
	}

	selected := testdef.Filter(cases, c.criteria)
	logging.Info("Platform", "Selected %d of %d cases from %s", len(selected), len(cases), defsPath)

	facts := testdef.RunFacts{
		ID:           c.storeString(driver.StoreKeyRunID),
		WorkspaceDir: workspaceRoot,
		LogDir:       c.storeString(driver.StoreKeyRunLogDir),
	}
	expanded, err := testdef.ExpandCases(selected, facts, custom)
	if err != nil {
		return err
	}
	c.cases = expanded
	return nil
}

func (c *controller) RunLoadedTestCases(ctx context.Context, reportPath string, iterations int, parallel bool) error {
	items := platform.Plan(c.cases, iterations)
	if len(items) == 0 {
		logging.Warn("Platform", "No runnable cases, writing an empty report")
	}

	workers := 1
	if parallel {
		workers = c.workers
	}

	start := time.Now()
	caseResults := platform.ExecutePool(ctx, items, workers, c.executeOne)

	suite := results.Suite{Name: Name, Cases: caseResults, Duration: time.Since(start)}
	if err := results.WriteReport(reportPath, suite); err != nil {
		return err
	}
	c.reportPath = reportPath
	c.tally = platform.TallyOf(caseResults)
	c.tally.Duration = suite.Duration

	c.cleanupScratch()
	return nil
}

func (c *controller) Summary(ctx context.Context) (string, error) {
	if c.reportPath == "" {
		return "", fmt.Errorf("no execution recorded")
	}
	return fmt.Sprintf("localhost: %s in %s (report %s)",
		c.tally, c.tally.Duration.Round(time.Millisecond), c.reportPath), nil
}

// storeString reads a published run-state value, tolerating absence so the
// controller also works outside a full lifecycle (validate, tests).
func (c *controller) storeString(name string) string {
	if v, ok := c.store.Get(name); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (c *controller) cleanupScratch() {
	if c.scratchDir == "" {
		return
	}
	keep := c.cleanup == platform.CleanupNever ||
		(c.cleanup == platform.CleanupOnSuccess && c.tally.Bad())
	if keep {
		logging.Info("Platform", "Keeping scratch directory %s (cleanup policy %s)", c.scratchDir, c.cleanup)
		return
	}
	if err := os.RemoveAll(c.scratchDir); err != nil {
		logging.Warn("Platform", "Failed to remove scratch directory %s: %v", c.scratchDir, err)
		return
	}
	c.store.Delete(StoreKeyScratchDir)
	c.scratchDir = ""
}
