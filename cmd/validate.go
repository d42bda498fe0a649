package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"gauntlet/internal/testdef"
	"gauntlet/pkg/logging"
)

var validateWorkDir string

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate test case definitions without running them",
	Long: `Loads the test case definitions from the given file or directory and
checks them for structural problems: missing names or commands, duplicate
case names, priorities out of range, and unparsable YAML.

Without a path argument the definitions are looked up under the workspace,
the same way the run command finds them.

Example usage:
  gauntlet validate                      # Validate <work-dir>/testcases
  gauntlet validate suites/network.yaml  # Validate a single file
  gauntlet validate suites/              # Validate a directory tree`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateWorkDir, "work-dir", ".", "Workspace the default definitions directory is resolved against")
}

func runValidate(cmd *cobra.Command, args []string) error {
	logging.InitForCLI(logging.LevelWarn, cmd.ErrOrStderr())

	explicit := ""
	if len(args) == 1 {
		explicit = args[0]
	}
	path := testdef.DefinitionsPath(explicit, validateWorkDir)

	cases, err := testdef.Validate(path)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Validated %d case definitions in %s\n", len(cases), path)
	return nil
}
