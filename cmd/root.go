package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Exit statuses for the gauntlet binary. The contract is deliberately
// narrow so wrappers only ever have to test for zero: a run that scored
// Success exits 0, everything else exits 1.
const (
	// ExitCodeSuccess indicates the invocation succeeded.
	ExitCodeSuccess = 0
	// ExitCodeFailure indicates a failed run or any fatal error.
	ExitCodeFailure = 1
)

// rootCmd represents the base command for the gauntlet application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "gauntlet",
	Short: "Run infrastructure validation suites against pluggable platforms",
	Long: `gauntlet drives a suite of infrastructure validation tests against a
platform backend (a local host, a Kubernetes cluster), merges configuration
from a parameter file and command-line overrides, and reduces the resulting
report artifacts into a single pass/fail exit status.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	// This is useful for providing cleaner error output to the user.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
// This can be used by other commands to access the build version.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// It initializes and executes the root command, which in turn handles subcommands and flags.
// This function is called by main.main().
func Execute() {
	// SetVersionTemplate defines a custom template for displaying the version.
	// This is used when the --version flag is invoked.
	rootCmd.SetVersionTemplate(`{{printf "gauntlet version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		// Misconfiguration, lifecycle aborts, and failed runs all collapse
		// to the failure status; the typed errors matter for logs, not for
		// the shell.
		os.Exit(ExitCodeFailure)
	}
}

// init is a special Go function that is executed when the package is initialized.
// It is used here to add subcommands to the root command.
func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
