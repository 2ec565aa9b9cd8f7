package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"flashbulb/internal/logging"
	"flashbulb/internal/pipeline"
)

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "build [archives...]",
		Short: "Extract the export and generate the site",
		Long: "Extract the export archives (or reuse a previous extraction), reconcile metadata\n" +
			"with media, resolve comment authors, and write the static site. Archive paths on\n" +
			"the command line replace the configured patterns.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			runID := pipeline.NewRunID()
			runLogger, err := logging.NewForRun(cfg, runID)
			if err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			defer runLogger.Close()

			opts := []pipeline.Option{pipeline.WithRunID(runID)}
			if skipPreflight {
				opts = append(opts, pipeline.WithoutPreflight())
			}
			p, err := pipeline.New(cfg, runLogger.Logger, opts...)
			if err != nil {
				return err
			}
			report, runErr := p.Run(cmd.Context(), args)
			report.LogPath = runLogger.Path
			report.LogsPruned = logging.CleanupOldLogs(runLogger.Logger, cfg.Logging.RetentionDays,
				cfg.Paths.LogDir, logging.RunLogPattern, runLogger.Path)
			if runErr != nil {
				return runErr
			}

			if jsonOutput {
				return writeJSON(cmd, report)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run report as JSON")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip directory and endpoint readiness checks")
	return cmd
}

func printReport(out io.Writer, r *pipeline.Report) {
	authors := fmt.Sprintf("%d cached, %d resolved, %d pending", r.AuthorsCached, r.AuthorsResolved, len(r.AuthorsPending))
	thumbs := fmt.Sprintf("%d generated, %d reused", r.ThumbnailsMade, r.ThumbnailsReused)
	originals := fmt.Sprintf("%d copied, %d reused", r.OriginalsCopied, r.OriginalsReused)
	extraction := "reused"
	if r.Extracted {
		extraction = fmt.Sprintf("%d files", r.ArchiveFiles)
	}

	rows := [][]string{
		{"Items", strconv.Itoa(r.Stats.Items)},
		{"Photos", strconv.Itoa(r.Stats.Photos)},
		{"Videos", strconv.Itoa(r.Stats.Videos)},
		{"Tags", strconv.Itoa(r.Stats.Tags)},
		{"Albums", strconv.Itoa(r.Stats.Albums)},
		{"Comments", strconv.Itoa(r.Stats.Comments)},
		{"Upload-date fallbacks", strconv.Itoa(r.Stats.Fallback)},
		{"Extraction", extraction},
		{"Authors", authors},
		{"Posters fetched", strconv.Itoa(r.PostersFetched)},
		{"Thumbnails", thumbs},
		{"Originals", originals},
		{"Pages", strconv.Itoa(r.Pages)},
		{"Skipped", strconv.Itoa(len(r.Skipped))},
		{"Duration", r.Duration.Round(time.Millisecond).String()},
	}
	writeRows(out, "Build "+r.RunID, []string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight})

	if len(r.Skipped) > 0 {
		reasons := r.SkippedByReason()
		keys := make([]string, 0, len(reasons))
		for k := range reasons {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		summary := make([]string, 0, len(keys))
		for _, k := range keys {
			summary = append(summary, fmt.Sprintf("%s: %d", k, reasons[k]))
		}
		fmt.Fprintf(out, "\nSkipped items (%s)\n", strings.Join(summary, ", "))
		writeRows(out, "", []string{"Stage", "Item", "Reason"}, issueRows(r.Skipped), nil)
	}
	if len(r.Flagged) > 0 {
		fmt.Fprintln(out, "\nItems with reduced output")
		writeRows(out, "", []string{"Stage", "Item", "Reason"}, issueRows(r.Flagged), nil)
	}
	if len(r.Orphans) > 0 {
		fmt.Fprintf(out, "\n%d media files had no metadata record\n", len(r.Orphans))
	}

	fmt.Fprintf(out, "\nSite written to %s\n", r.SiteDir)
	if r.LogPath != "" {
		fmt.Fprintf(out, "Run log: %s\n", r.LogPath)
	}
}

func issueRows(issues []pipeline.Issue) [][]string {
	rows := make([][]string, 0, len(issues))
	for _, issue := range issues {
		id := issue.ItemID
		if id == "" {
			id = "-"
		}
		rows = append(rows, []string{issue.Stage, id, issue.Reason})
	}
	return rows
}
