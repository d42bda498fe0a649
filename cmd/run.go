package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"gauntlet/internal/driver"
	"gauntlet/internal/fanout"
	"gauntlet/internal/params"
	"gauntlet/internal/platform"
	"gauntlet/internal/results"
	"gauntlet/internal/run"
	"gauntlet/internal/testdef"
	"gauntlet/pkg/logging"
)

var (
	// Platform selection and backend parameters
	runPlatform      string
	runLocation      string
	runResourceGroup string
	runImage         string
	runInstanceSize  string

	// Case selection
	runCategory string
	runArea     string
	runTags     string
	runNames    string
	runPriority int
	runExclude  string

	// Execution shape
	runIterations int
	runParallel   int
	runCleanup    string
	runTimeout    time.Duration

	// Configuration sources
	runParamsFile  string
	runSecretsFile string
	runCustom      []string

	// Behavior toggles
	runCodeCoverage bool
	runTelemetry    bool
	runUseExisting  bool
	runForceSuccess bool

	// Directories
	runWorkDir string
	runLogDir  string

	// Output and debugging
	runVerbose bool
	runDebug   bool

	// Internal flags a fan-out parent passes to the siblings it spawns
	runChildID       string
	runParentWorkDir string
	runParentLogDir  string
	runChildTimeout  time.Duration
)

// artifactGrace is how long the parent keeps watching the report directory
// for sibling artifacts after all siblings have exited. Process exit is the
// completion signal; the grace only absorbs filesystem latency.
const artifactGrace = 10 * time.Second

// flagParams maps run flags to the parameter keys they override. Only
// flags the user actually set with a non-empty, non-default value
// participate in resolution; everything else comes from the parameter
// file or the controller's defaults.
var flagParams = map[string]string{
	"platform":       params.KeyPlatform,
	"location":       "location",
	"resource-group": "resource_group",
	"image":          "image",
	"instance-size":  "instance_size",
	"category":       testdef.KeyCategory,
	"area":           testdef.KeyArea,
	"tag":            testdef.KeyTags,
	"names":          testdef.KeyNames,
	"priority":       testdef.KeyPriority,
	"exclude":        testdef.KeyExclude,
	"cleanup":        platform.KeyCleanup,
	"code-coverage":  "code_coverage",
	"telemetry":      "telemetry",
	"use-existing":   "use_existing",
}

// completePlatformFlag provides shell completion for the platform flag
func completePlatformFlag(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return builtins.Names(), cobra.ShellCompDirectiveNoFileComp
}

// completeCleanupFlag provides shell completion for the cleanup flag
func completeCleanupFlag(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{platform.CleanupAlways, platform.CleanupNever, platform.CleanupOnSuccess}, cobra.ShellCompDirectiveNoFileComp
}

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a validation run against a platform",
	Long: `The run command resolves configuration, establishes a run identity, and
drives the selected platform controller through the full lifecycle:
parameter validation, environment preparation, case loading, execution,
and reporting. The resulting JUnit-style report artifacts are reduced
into a single pass/fail exit status.

Configuration is merged from an optional parameter file and command-line
overrides; for any key present in both, the override wins. The platform
identifier is the single required key, everything else is validated by
the selected platform controller.

With --parallel N (N > 1) the run fans out across N sibling processes of
this binary. Each sibling shares the parent's run token with a numeric
suffix and runs the full lifecycle independently; the parent waits for
all siblings to exit, then aggregates their report artifacts into the
final status.

Example usage:
  gauntlet run --platform localhost                        # Run everything locally
  gauntlet run --platform localhost --category storage     # Only one category
  gauntlet run --platform kubernetes --image busybox:1.36  # Cases as Kubernetes Jobs
  gauntlet run --params-file ci.yaml --param flavor=quick  # File plus custom params
  gauntlet run --platform localhost --parallel 4           # Four sibling processes
  gauntlet run --platform localhost --force-success        # Exit zero regardless`,
	RunE: executeRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	// Platform selection and backend parameters
	runCmd.Flags().StringVar(&runPlatform, "platform", "", "Platform controller to run against")
	runCmd.Flags().StringVar(&runLocation, "location", "", "Region or location hint passed to the platform controller")
	runCmd.Flags().StringVar(&runResourceGroup, "resource-group", "", "Resource group identifier passed to the platform controller")
	runCmd.Flags().StringVar(&runImage, "image", "", "Image reference cases run against (required by the kubernetes platform)")
	runCmd.Flags().StringVar(&runInstanceSize, "instance-size", "", "Instance size override passed to the platform controller")

	// Case selection
	runCmd.Flags().StringVar(&runCategory, "category", "", "Run only cases of this category")
	runCmd.Flags().StringVar(&runArea, "area", "", "Run only cases of this area")
	runCmd.Flags().StringVar(&runTags, "tag", "", "Run only cases carrying one of these comma-separated tags")
	runCmd.Flags().StringVar(&runNames, "names", "", "Run only the comma-separated named cases")
	runCmd.Flags().IntVar(&runPriority, "priority", -1, "Run only cases at this priority or more critical (0-4)")
	runCmd.Flags().StringVar(&runExclude, "exclude", "", "Drop the comma-separated named cases after all other filters")

	// Execution shape
	runCmd.Flags().IntVar(&runIterations, "iterations", 1, "Repeat the selected cases this many times")
	runCmd.Flags().IntVar(&runParallel, "parallel", 1, "Fan the run out across this many sibling processes")
	runCmd.Flags().StringVar(&runCleanup, "cleanup", "", "Resource cleanup policy (always, never, onsuccess)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Wall-clock bound for the whole run (0 means unbounded)")

	// Configuration sources
	runCmd.Flags().StringVar(&runParamsFile, "params-file", "", "YAML parameter file merged under command-line overrides")
	runCmd.Flags().StringVar(&runSecretsFile, "secrets-file", "", "Credentials file handed to the platform controller")
	runCmd.Flags().StringArrayVar(&runCustom, "param", nil, "Custom key=value parameter templated into case commands (repeatable)")

	// Behavior toggles
	runCmd.Flags().BoolVar(&runCodeCoverage, "code-coverage", false, "Ask the platform controller to collect code coverage")
	runCmd.Flags().BoolVar(&runTelemetry, "telemetry", false, "Ask the platform controller to emit telemetry")
	runCmd.Flags().BoolVar(&runUseExisting, "use-existing", false, "Reuse existing platform resources instead of provisioning")
	runCmd.Flags().BoolVar(&runForceSuccess, "force-success", false, "Exit zero regardless of the computed run status")

	// Directories
	runCmd.Flags().StringVar(&runWorkDir, "work-dir", ".", "Workspace holding test definitions and scratch files")
	runCmd.Flags().StringVar(&runLogDir, "log-dir", "runs", "Root directory run logs are created under")

	// Output and debugging
	runCmd.Flags().BoolVar(&runVerbose, "verbose", false, "Enable verbose progress output")
	runCmd.Flags().BoolVar(&runDebug, "debug", false, "Enable debug logging")

	// Internal flags; a fan-out parent sets these when spawning siblings
	runCmd.Flags().StringVar(&runChildID, "run-id", "", "Run token inherited from a fan-out parent")
	runCmd.Flags().StringVar(&runParentWorkDir, "parent-workspace", "", "Workspace inherited from a fan-out parent")
	runCmd.Flags().StringVar(&runParentLogDir, "parent-log-dir", "", "Log directory inherited from a fan-out parent")
	runCmd.Flags().DurationVar(&runChildTimeout, "child-timeout", 0, "Wall-clock bound inherited from a fan-out parent")
	for _, name := range []string{"run-id", "parent-workspace", "parent-log-dir", "child-timeout"} {
		_ = runCmd.Flags().MarkHidden(name)
	}

	// Shell completion for run flags
	_ = runCmd.RegisterFlagCompletionFunc("platform", completePlatformFlag)
	_ = runCmd.RegisterFlagCompletionFunc("cleanup", completeCleanupFlag)

	runCmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if runParallel < 1 || runParallel > 32 {
			return fmt.Errorf("parallel sibling count must be between 1 and 32, got %d", runParallel)
		}
		if runIterations < 1 {
			return fmt.Errorf("iterations must be at least 1, got %d", runIterations)
		}
		if runChildID != "" && (runParentWorkDir == "" || runParentLogDir == "") {
			return fmt.Errorf("--run-id requires --parent-workspace and --parent-log-dir")
		}
		return nil
	}
}

func executeRun(cmd *cobra.Command, args []string) error {
	level := logging.LevelInfo
	if runVerbose || runDebug {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, os.Stdout)

	// Create context with signal handling
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, stopping the run...")
		cancel()
	}()
	defer logging.CloseRunLog()

	// The guard brackets everything from resolution onward: whatever path
	// the run takes out of here, introduced run state is cleared and the
	// forced-success override sees every failure, configuration included.
	var rc *run.Context
	guard := run.NewGuard(run.DefaultStore, runForceSuccess)
	status, err := guard.Run(func() (run.Status, error) {
		overrides := overridesFromFlags(cmd.Flags())
		resolved, err := params.Resolve(runParamsFile, overrides)
		if err != nil {
			return run.StatusFailure, err
		}

		custom, err := params.ParseKeyValues(runCustom)
		if err != nil {
			return run.StatusFailure, err
		}
		secretsRef := params.SecretsReference(runSecretsFile)

		if runChildID != "" {
			rc, err = run.ReuseContext(runChildID, runParentWorkDir, runParentLogDir)
		} else {
			rc, err = run.NewContext(runWorkDir, runLogDir)
		}
		if err != nil {
			return run.StatusFailure, err
		}

		if err := logging.AttachRunLog(filepath.Join(rc.ScopedLogDir(), "gauntlet.log")); err != nil {
			logging.Warn("CLI", "Continuing without a run log file: %v", err)
		}

		// Case definitions are validated before the lifecycle begins so a
		// syntax error never burns environment provisioning.
		defPath := testdef.DefinitionsPath(resolved.Get(platform.KeyDefinitions), rc.WorkspaceDir)
		cases, err := testdef.Validate(defPath)
		if err != nil {
			return run.StatusFailure, fmt.Errorf("test definitions rejected: %w", err)
		}
		logging.Info("CLI", "Validated %d case definitions under %s", len(cases), defPath)

		if runChildID == "" && runParallel > 1 {
			return executeParent(ctx, cmd.Flags(), rc)
		}
		return executeLifecycle(ctx, rc, resolved, custom, secretsRef)
	})
	return finishRun(rc, status, err)
}

// executeLifecycle drives a single full lifecycle: the plain top-level run
// and the sibling invocation both land here. A sibling leaves scoring to
// its parent and reports Success once its artifact is written.
func executeLifecycle(ctx context.Context, rc *run.Context, set *params.Set, custom map[string]string, secretsRef string) (run.Status, error) {
	timeout := runTimeout
	if rc.Reused() {
		timeout = runChildTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	artifact := rc.ReportArtifact(rc.ID)
	d := driver.New(driver.Options{
		Params:     set,
		RunContext: rc,
		Registry:   builtins,
		Store:      run.DefaultStore,
		SecretsRef: secretsRef,
		Custom:     custom,
		ReportPath: artifact,
		Iterations: runIterations,
		Parallel:   rc.Reused(),
	})
	if err := d.Run(ctx); err != nil {
		return run.StatusFailure, err
	}

	if rc.Reused() {
		result, err := results.Aggregate(nil, 0, true)
		if err != nil {
			return run.StatusFailure, err
		}
		return result.Status, nil
	}

	records, err := results.Collect([]string{artifact})
	if err != nil {
		return run.StatusFailure, err
	}
	result, err := results.Aggregate(records, 1, false)
	if err != nil {
		return run.StatusFailure, err
	}
	results.RenderSummary(os.Stdout, result, records)
	return result.Status, nil
}

// executeParent fans the run out across sibling processes and judges the
// artifacts they leave behind. The parent drives no controller itself.
func executeParent(ctx context.Context, flags *pflag.FlagSet, rc *run.Context) (run.Status, error) {
	children, err := fanout.Run(ctx, fanout.Options{
		BuildArgs: childArgs(rc, flags),
		Count:     runParallel,
		Parent:    rc,
		Timeout:   runTimeout,
		Quiet:     runVerbose || runDebug,
	})
	if err != nil {
		return run.StatusFailure, err
	}

	expected := make([]string, 0, len(children))
	paths := make([]string, 0, len(children))
	for _, child := range children {
		artifact := rc.ReportArtifact(child.ID)
		expected = append(expected, filepath.Base(artifact))
		paths = append(paths, artifact)
	}
	if missing := results.WaitForArtifacts(ctx, rc.ReportDir(), expected, artifactGrace); len(missing) > 0 {
		logging.Warn("CLI", "Missing %d of %d report artifacts: %s",
			len(missing), len(expected), strings.Join(missing, ", "))
	}

	records, err := results.Collect(paths)
	if err != nil {
		return run.StatusFailure, err
	}
	result, err := results.Aggregate(records, len(children), false)
	if err != nil {
		return run.StatusFailure, err
	}
	results.RenderSummary(os.Stdout, result, records)
	return result.Status, nil
}

// finishRun maps the guarded outcome to the command result. A non-success
// status becomes an error so the process exits with the failure status.
// rc is nil when the run failed before an identity was established.
func finishRun(rc *run.Context, status run.Status, err error) error {
	if err != nil {
		return err
	}
	if status != run.StatusSuccess {
		if rc != nil {
			return fmt.Errorf("run %s finished with status %s", rc.ID, status)
		}
		return fmt.Errorf("run finished with status %s", status)
	}
	if rc != nil {
		logging.Info("CLI", "Run %s finished with status %s", rc.ID, status)
	}
	return nil
}

// overridesFromFlags collects the parameter overrides from the flags the
// user set. Values equal to the flag default do not participate, so an
// explicit empty string never displaces a parameter-file value.
func overridesFromFlags(flags *pflag.FlagSet) *params.Set {
	overrides := params.NewSet()
	flags.Visit(func(f *pflag.Flag) {
		key, ok := flagParams[f.Name]
		if !ok {
			return
		}
		value := f.Value.String()
		if value == "" || value == f.DefValue {
			return
		}
		overrides.Put(key, value)
	})
	return overrides
}

// childArgs rebuilds the run argv for one sibling: every flag the user
// set, minus the ones owned by the parent, plus the inherited identity.
func childArgs(rc *run.Context, flags *pflag.FlagSet) func(string) []string {
	var inherited []string
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "parallel", "timeout", "work-dir", "log-dir", "param":
			return
		}
		inherited = append(inherited, fmt.Sprintf("--%s=%s", f.Name, f.Value.String()))
	})
	for _, pair := range runCustom {
		inherited = append(inherited, "--param="+pair)
	}
	if runTimeout > 0 {
		inherited = append(inherited, fmt.Sprintf("--child-timeout=%s", runTimeout))
	}

	return func(childID string) []string {
		args := []string{"run",
			"--run-id=" + childID,
			"--parent-workspace=" + rc.WorkspaceDir,
			"--parent-log-dir=" + rc.LogDir,
		}
		return append(args, inherited...)
	}
}
