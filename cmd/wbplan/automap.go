package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"workbench-mapper/internal/automap"
	"workbench-mapper/internal/plan"
	"workbench-mapper/internal/schema"
)

type automapOptions struct {
	schemaPath   string
	table        string
	synonymsPath string
	outPath      string
}

func newAutomapCmd() *cobra.Command {
	var opts automapOptions

	cmd := &cobra.Command{
		Use:   "automap HEADER...",
		Short: "Propose mapping paths for spreadsheet headers",
		Long: `Propose a mapping path for every header. Headers are matched against
field labels first, then against the synonym table, then by spelling.
Use --out to write the best paths as an upload plan.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAutomap(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.schemaPath, "schema", "", "Schema YAML file (required)")
	cmd.Flags().StringVar(&opts.table, "table", "", "Base table (required)")
	cmd.Flags().StringVar(&opts.synonymsPath, "synonyms", "", "Extra synonym YAML file")
	cmd.Flags().StringVar(&opts.outPath, "out", "", "Write the proposed upload plan to this file")

	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("table")

	return cmd
}

func runAutomap(cmd *cobra.Command, opts automapOptions, headers []string) error {
	graph, err := schema.LoadFile(opts.schemaPath)
	if err != nil {
		return err
	}

	config := automap.DefaultConfig()

	if opts.synonymsPath != "" {
		extra, err := automap.LoadSynonyms(opts.synonymsPath)
		if err != nil {
			return err
		}

		config.Synonyms = config.Synonyms.Merge(extra)
	}

	mapper := automap.NewMapper(graph, config, nil, slog.Default())

	res, err := mapper.AutoMap(headers, opts.table, automap.Options{Scope: automap.ScopeAutomapper})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	for _, s := range res.Suggestions {
		if len(s.Paths) == 0 {
			fmt.Fprintf(out, "%s => (unmapped)\n", s.Header)
			continue
		}

		alternatives := make([]string, 0, len(s.Paths)-1)
		for _, p := range s.Paths[1:] {
			alternatives = append(alternatives, p.String())
		}

		fmt.Fprintf(out, "%s => %s (%s, %.2f)", s.Header, s.Paths[0], s.Stage, s.Score)

		if len(alternatives) > 0 {
			fmt.Fprintf(out, " also: %s", strings.Join(alternatives, ", "))
		}

		fmt.Fprintln(out)
	}

	printDiagnostics(cmd, res.Diagnostics.Warnings)

	if opts.outPath == "" {
		return nil
	}

	tree, err := res.Tree()
	if err != nil {
		return err
	}

	data, err := plan.Marshal(plan.MappingPlan{BaseTable: res.BaseTable, Tree: tree})
	if err != nil {
		return err
	}

	if err := os.WriteFile(opts.outPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write upload plan: %w", err)
	}

	slog.Info("upload plan written", slog.String("path", opts.outPath))

	return nil
}
