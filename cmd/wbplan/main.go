// Package main provides wbplan, a command line front end for upload plans.
//
// wbplan works offline against a schema YAML file:
//   - automap proposes a mapping for a list of headers
//   - check validates a stored upload plan, legacy ones included
//   - paths lists the mapping paths of a plan
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"workbench-mapper/internal/diagnostic"
)

// errCheckFailed makes the process exit with status 1 after the findings
// have been printed.
var errCheckFailed = errors.New("upload plan has errors")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errCheckFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}

		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:           "wbplan",
		Short:         "Build and check workbench upload plans",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}

			handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
			slog.SetDefault(slog.New(handler))
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newAutomapCmd(), newCheckCmd(), newPathsCmd())

	return cmd
}

func printDiagnostics(cmd *cobra.Command, diags []diagnostic.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", d.Severity, d)
	}
}
