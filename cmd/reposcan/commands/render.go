package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/forgelens/reposcan/internal/aggregate"
)

// stageColor maps a manifest stage outcome to the color its row renders in.
func stageColor(outcome string) *color.Color {
	switch outcome {
	case "ok":
		return color.New(color.FgGreen)
	case "skipped":
		return color.New(color.FgYellow)
	default: // failed, timed-out
		return color.New(color.FgRed)
	}
}

// renderManifest prints a stage-outcome table for one repository's run,
// colorized by outcome, durations humanized.
func renderManifest(w io.Writer, repoName string, manifest aggregate.ManifestDocument) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle(repoName)
	tbl.AppendHeader(table.Row{"Stage", "Outcome", "Duration", "Error"})

	for _, s := range manifest.Stages {
		c := stageColor(s.Outcome)
		tbl.AppendRow(table.Row{
			s.Stage,
			c.Sprint(s.Outcome),
			s.Duration.Round(time.Millisecond).String(),
			s.Error,
		})
	}

	tbl.Render()
}

// renderRankings prints the top developer rankings, truncated to limit
// rows, for terminal summary output.
func renderRankings(w io.Writer, title string, rankings []aggregate.DeveloperRankingEntry, limit int) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle(title)
	tbl.AppendHeader(table.Row{"Rank", "Developer", "Email", "Score", "Commits"})

	rows := rankings
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	for _, r := range rows {
		tbl.AppendRow(table.Row{
			r.Rank,
			r.Developer,
			r.Email,
			fmt.Sprintf("%.1f", r.WeightedScore),
			humanize.Comma(int64(r.Metrics["commits"])),
		})
	}

	tbl.AppendFooter(table.Row{"", "", "", "Total developers", humanize.Comma(int64(len(rankings)))})
	tbl.Render()
}
