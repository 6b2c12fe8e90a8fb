// Command levelsctl inspects level curves.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "levelsctl",
		Short: "Inspect level curves and XP totals",
		Long: `levelsctl prints threshold tables and progress breakdowns for a level
curve. The curve defaults to A=50, B=50 and can be changed with --a and --b.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().Int64("a", 50, "quadratic coefficient of the curve")
	root.PersistentFlags().Int64("b", 50, "linear coefficient of the curve")

	root.AddCommand(curveCmd())
	root.AddCommand(progressCmd())
	return root
}
