package driver

import (
	"context"

	"gauntlet/internal/params"
	"gauntlet/internal/platform"
	"gauntlet/internal/run"
	"gauntlet/pkg/logging"
)

// Phase is a state of the run lifecycle. Phases advance strictly in
// declaration order; Failed is terminal and reachable from every
// non-terminal state.
type Phase string

const (
	PhaseCreated          Phase = "Created"
	PhaseSelected         Phase = "Selected"
	PhaseValidated        Phase = "Validated"
	PhaseEnvironmentReady Phase = "EnvironmentReady"
	PhaseCasesLoaded      Phase = "CasesLoaded"
	PhaseExecuted         Phase = "Executed"
	PhaseReported         Phase = "Reported"
	PhaseFailed           Phase = "Failed"
)

// Run-state names published for the controller while the lifecycle runs.
// Controllers read these instead of holding a reference to the run context.
const (
	StoreKeyPlatform  = "ActivePlatform"
	StoreKeyRunID     = "RunID"
	StoreKeyRunLogDir = "RunLogDir"
)

// Options configures one lifecycle execution.
type Options struct {
	// Params is the resolved parameter set, platform key included
	Params *params.Set
	// RunContext is the established run identity
	RunContext *run.Context
	// Registry resolves the platform name to a controller
	Registry *platform.Registry
	// Store receives controller provisioning facts for the guard to clear
	Store *run.Store
	// SecretsRef is the effective secrets file path, possibly empty
	SecretsRef string
	// Custom are free-form parameters templated into case commands
	Custom map[string]string
	// ReportPath is where the controller writes its report artifact
	ReportPath string
	// Iterations repeats the loaded suite, minimum 1
	Iterations int
	// Parallel lets the controller run cases concurrently
	Parallel bool
}

// Driver executes the lifecycle for a single run.
type Driver struct {
	opts       Options
	phase      Phase
	controller platform.Controller
}

// New creates a driver in the Created state.
func New(opts Options) *Driver {
	if opts.Store == nil {
		opts.Store = run.DefaultStore
	}
	if opts.Iterations < 1 {
		opts.Iterations = 1
	}
	return &Driver{opts: opts, phase: PhaseCreated}
}

// Phase returns the current lifecycle state.
func (d *Driver) Phase() Phase {
	return d.phase
}

// Run drives the controller through every phase. The first failing phase
// aborts the remainder and is returned as a PhaseError naming it; the
// summary phase is the exception, logged but never fatal.
func (d *Driver) Run(ctx context.Context) error {
	platformName := d.opts.Params.Get(params.KeyPlatform)

	controller, err := d.opts.Registry.Lookup(platformName, d.opts.Store)
	if err != nil {
		return d.fail(newPhaseError(PhaseSelected, err))
	}
	d.controller = controller
	d.opts.Store.Set(StoreKeyPlatform, platformName)
	d.opts.Store.Set(StoreKeyRunID, d.opts.RunContext.ID)
	d.opts.Store.Set(StoreKeyRunLogDir, d.opts.RunContext.ScopedLogDir())
	d.advance(PhaseSelected, "Selected platform %s", platformName)

	if err := controller.ParseAndValidateParameters(d.opts.Params); err != nil {
		return d.fail(newPhaseError(PhaseValidated, err))
	}
	d.advance(PhaseValidated, "Validated %d parameters", d.opts.Params.Len())

	if err := controller.PrepareTestEnvironment(ctx, d.opts.SecretsRef); err != nil {
		return d.fail(newPhaseError(PhaseEnvironmentReady, err))
	}
	d.advance(PhaseEnvironmentReady, "Test environment ready")

	if err := controller.LoadTestCases(ctx, d.opts.RunContext.WorkspaceDir, d.opts.Custom); err != nil {
		return d.fail(newPhaseError(PhaseCasesLoaded, err))
	}
	d.advance(PhaseCasesLoaded, "Test cases loaded")

	if err := controller.RunLoadedTestCases(ctx, d.opts.ReportPath, d.opts.Iterations, d.opts.Parallel); err != nil {
		return d.fail(newPhaseError(PhaseExecuted, err))
	}
	d.advance(PhaseExecuted, "Execution finished, report at %s", d.opts.ReportPath)

	if summary, err := controller.Summary(ctx); err != nil {
		logging.Warn("Driver", "Summary step failed, continuing: %v", err)
	} else if summary != "" {
		logging.Info("Driver", "Run summary:\n%s", summary)
	}
	d.advance(PhaseReported, "Run %s reported", d.opts.RunContext.ID)

	return nil
}

func (d *Driver) advance(phase Phase, format string, args ...interface{}) {
	d.phase = phase
	logging.Info("Driver", "[%s] "+format, append([]interface{}{phase}, args...)...)
}

func (d *Driver) fail(err *PhaseError) error {
	d.phase = PhaseFailed
	logging.Error("Driver", err, "Lifecycle aborted")
	return err
}
