package main

import (
	"github.com/spf13/cobra"

	"flashbulb/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report readiness of directories, inputs, and the author lookup",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			results = append(results, preflight.CheckNameCacheFromConfig(cfg))
			export := preflight.ProbeExport(cfg)
			results = append(results, preflight.Result{
				Name:   "Export",
				Passed: export.Err == nil && (export.Extracted || len(export.Archives) > 0),
				Detail: export.ExportDetail(),
			})

			if jsonOutput {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
				return preflight.Err(results)
			}

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				status := "ok"
				switch {
				case !r.Passed && r.Advisory:
					status = "warn"
				case !r.Passed:
					status = "FAIL"
				}
				rows = append(rows, []string{r.Name, status, r.Detail})
			}
			writeRows(cmd.OutOrStdout(), "", []string{"Check", "Status", "Detail"}, rows, nil)
			return preflight.Err(results)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	return cmd
}
