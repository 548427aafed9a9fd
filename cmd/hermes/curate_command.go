package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aidajafarbigloo/hermes/internal/journal"
	"github.com/Aidajafarbigloo/hermes/internal/pipeline"
	"github.com/Aidajafarbigloo/hermes/internal/workspace"
)

const (
	ansiReset = "\x1b[0m"
	ansiBlue  = "\x1b[34m"
)

func newCurateCommand(ctx *commandContext) *cobra.Command {
	var runLimit int

	cmd := &cobra.Command{
		Use:   "curate",
		Short: "Review the merged document, its provenance, and recorded conflicts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(func(ws *workspace.Workspace) error {
				report, err := pipeline.LoadReport(ws)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				printSection(out, "Provenance", colorize)
				fmt.Fprintln(out, provenanceTable(report))

				printSection(out, "Conflicts", colorize)
				if len(report.Conflicts) == 0 {
					fmt.Fprintln(out, "No conflicts recorded.")
				} else {
					fmt.Fprintln(out, conflictsTable(report))
				}

				printSection(out, "Runs", colorize)
				return printRuns(cmd, ws, runLimit)
			})
		},
	}

	cmd.Flags().IntVar(&runLimit, "runs", 10, "Number of journal runs to show")
	return cmd
}

func printSection(out io.Writer, title string, colorize bool) {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	if colorize {
		line = ansiBlue + line + ansiReset
	}
	fmt.Fprintln(out, line)
}

func provenanceTable(report *pipeline.Report) string {
	rows := make([][]string, 0, len(report.Tags))
	for _, address := range report.Addresses() {
		info := report.Tags[address]
		rows = append(rows, []string{address, info.Tag, formatMeta(info.Meta)})
	}
	return renderTable(
		[]string{"Address", "Source", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft},
	)
}

func conflictsTable(report *pipeline.Report) string {
	rows := make([][]string, 0, len(report.Conflicts))
	for _, conflict := range report.Conflicts {
		rows = append(rows, []string{conflict.Path, conflict.Tag, conflict.Rejected, conflict.Kept})
	}
	return renderTable(
		[]string{"Address", "Source", "Rejected", "Kept"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
	)
}

func printRuns(cmd *cobra.Command, ws *workspace.Workspace, limit int) error {
	jrnl, err := journal.Open(ws.JournalPath())
	if err != nil {
		return err
	}
	defer func() { _ = jrnl.Close() }()

	runs, err := jrnl.Runs(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.Stage,
			run.Status,
			run.StartedAt.Local().Format(time.DateTime),
			formatDuration(run),
			run.Detail,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Stage", "Status", "Started", "Duration", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
	return nil
}

func formatMeta(meta map[string]string) string {
	if len(meta) == 0 {
		return ""
	}
	parts := make([]string, 0, len(meta))
	for key, value := range meta {
		parts = append(parts, key+"="+value)
	}
	// Stable output regardless of map order.
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

func formatDuration(run journal.Run) string {
	if run.FinishedAt.IsZero() {
		return "-"
	}
	return run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}
