package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"workbench-mapper/internal/mapping"
	"workbench-mapper/internal/plan"
	"workbench-mapper/internal/schema"
)

type checkOptions struct {
	schemaPath string
	planPath   string
	table      string
}

func newCheckCmd() *cobra.Command {
	var opts checkOptions

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate an upload plan against a schema",
		Long: `Decode an upload plan (current or legacy format) and validate every
mapping path against the schema. Missing required fields are reported as
warnings. The command exits with status 1 when the plan has errors.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.schemaPath, "schema", "", "Schema YAML file (required)")
	cmd.Flags().StringVar(&opts.planPath, "plan", "", "Upload plan JSON file (required)")
	cmd.Flags().StringVar(&opts.table, "table", "", "Table of the dataset the plan is applied to")

	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("plan")

	return cmd
}

func runCheck(cmd *cobra.Command, opts checkOptions) error {
	graph, err := schema.LoadFile(opts.schemaPath)
	if err != nil {
		return err
	}

	p, err := readPlan(opts.planPath, opts.table)
	if err != nil {
		return err
	}

	diags := plan.Validate(graph, p)
	printDiagnostics(cmd, diags.All())

	if diags.HasErrors() {
		return errCheckFailed
	}

	fmt.Fprintf(cmd.OutOrStdout(), "ok: %d mapped columns, %d missing required fields\n",
		len(mapping.TreeToArray(p.Tree)), len(diags.Warnings))

	return nil
}

func readPlan(path, table string) (plan.MappingPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return plan.MappingPlan{}, fmt.Errorf("failed to read upload plan: %w", err)
	}

	if table == "" {
		return plan.Unmarshal(data)
	}

	return plan.UnmarshalFor(data, table)
}
