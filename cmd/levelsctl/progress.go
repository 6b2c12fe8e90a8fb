package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/xraph/levels/curve"
)

func progressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress <total>",
		Short: "Break a cumulative XP total down into level and progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			total, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid total %q: %w", args[0], err)
			}
			c, err := curveFromFlags(cmd)
			if err != nil {
				return err
			}
			printProgress(cmd.OutOrStdout(), c.ProgressFor(total))
			return nil
		},
	}
}

func printProgress(w io.Writer, p curve.Progress) {
	fmt.Fprintf(w, "Level:    %s\n", color.New(color.FgGreen, color.Bold).Sprint(p.Level))
	fmt.Fprintf(w, "Progress: %d / %d\n", p.XPIntoLevel, p.XPForThisLevel)
	fmt.Fprintf(w, "To next:  %s\n", color.New(color.FgYellow).Sprint(p.XPToNextLevel))
}
