package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/xraph/levels/curve"
)

func curveCmd() *cobra.Command {
	var maxLevel int

	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Print the XP threshold table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := curveFromFlags(cmd)
			if err != nil {
				return err
			}
			if maxLevel < 1 {
				return fmt.Errorf("--max must be at least 1, got %d", maxLevel)
			}
			printCurve(cmd.OutOrStdout(), c, maxLevel)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxLevel, "max", 20, "highest level to print")
	return cmd
}

func curveFromFlags(cmd *cobra.Command) (curve.Curve, error) {
	a, err := cmd.Flags().GetInt64("a")
	if err != nil {
		return curve.Curve{}, err
	}
	b, err := cmd.Flags().GetInt64("b")
	if err != nil {
		return curve.Curve{}, err
	}
	c := curve.Curve{A: a, B: b}
	if err := c.Validate(); err != nil {
		return curve.Curve{}, fmt.Errorf("a=%d b=%d: %w", a, b, err)
	}
	return c, nil
}

func printCurve(w io.Writer, c curve.Curve, maxLevel int) {
	header := color.New(color.Bold)
	header.Fprintf(w, "%-6s %12s %12s\n", "LEVEL", "TOTAL", "NEXT")
	for level := 1; level <= maxLevel; level++ {
		fmt.Fprintf(w, "%-6d %12d %12d\n", level, c.RequiredFor(level), c.ForLevelUp(level))
	}
}
