package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// platformsCmd represents the platforms command
var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List the available platform controllers",
	Long: `Prints the name of every platform controller this binary ships,
one per line. Any of them can be passed to 'gauntlet run --platform'.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range builtins.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}

func init() {
	rootCmd.AddCommand(platformsCmd)
}
