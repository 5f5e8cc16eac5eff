package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"workbench-mapper/internal/mapping"
	"workbench-mapper/internal/plan"
)

func newPathsCmd() *cobra.Command {
	var planPath string

	cmd := &cobra.Command{
		Use:   "paths",
		Short: "List the mapping paths of an upload plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := readPlan(planPath, "")
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "base table: %s\n", p.BaseTable)

			for _, e := range mapping.TreeToArray(p.Tree) {
				fmt.Fprintf(out, "%s => %s\n", e.Path, e.Leaf)
			}

			for _, path := range p.MustMatch {
				fmt.Fprintf(out, "%s => %s\n", path, plan.MappingMustMatch)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&planPath, "plan", "", "Upload plan JSON file (required)")
	_ = cmd.MarkFlagRequired("plan")

	return cmd
}
