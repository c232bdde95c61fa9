// Package report assembles the markdown analysis summary and renders it
// to HTML for the report server.
package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"claimscope/internal/battery"
	"claimscope/internal/cleaning"
	"claimscope/internal/eda"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Input collects everything the summary report draws from.
type Input struct {
	RunID            string
	GeneratedAt      time.Time
	CleanReport      *cleaning.Report
	Summaries        []eda.ColumnSummary
	OverallLossRatio float64
	LossByProvince   []eda.LossRatioRow
	Trends           []eda.MonthlyTrend
	Battery          *battery.Outcome
	Alpha            float64
}

// BuildMarkdown renders the full analysis summary as markdown.
func BuildMarkdown(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Insurance Claims Analysis\n\n")
	fmt.Fprintf(&b, "Run `%s`, generated %s.\n\n", in.RunID, in.GeneratedAt.Format(time.RFC3339))

	if in.CleanReport != nil {
		fmt.Fprintf(&b, "## Cleaning\n\n")
		fmt.Fprintf(&b, "%d raw rows, %d after cleaning.\n\n", in.CleanReport.InitialRows, in.CleanReport.FinalRows)
		b.WriteString("| Rule | Rows dropped | Cells filled | Columns dropped |\n")
		b.WriteString("|------|-------------:|-------------:|----------------:|\n")
		for _, r := range in.CleanReport.Rules {
			fmt.Fprintf(&b, "| %s | %d | %d | %d |\n", r.Rule, r.RowsDropped, r.CellsFilled, r.ColsDropped)
		}
		b.WriteString("\n")
	}

	if len(in.Summaries) > 0 {
		fmt.Fprintf(&b, "## Descriptive statistics\n\n")
		b.WriteString("| Column | Count | Mean | Std | Min | Median | Max |\n")
		b.WriteString("|--------|------:|-----:|----:|----:|-------:|----:|\n")
		for _, s := range in.Summaries {
			fmt.Fprintf(&b, "| %s | %d | %s | %s | %s | %s | %s |\n",
				s.Column, s.Count, num(s.Mean), num(s.StdDev), num(s.Min), num(s.Median), num(s.Max))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Loss ratio\n\n")
	fmt.Fprintf(&b, "Portfolio mean loss ratio: **%s**.\n\n", num(in.OverallLossRatio))
	if len(in.LossByProvince) > 0 {
		b.WriteString("| Province | Loss ratio | Policies |\n")
		b.WriteString("|----------|-----------:|---------:|\n")
		for _, row := range in.LossByProvince {
			fmt.Fprintf(&b, "| %s | %s | %d |\n", row.Group, num(row.LossRatio), row.Policies)
		}
		b.WriteString("\n")
	}

	if len(in.Trends) > 0 {
		first, last := in.Trends[0], in.Trends[len(in.Trends)-1]
		fmt.Fprintf(&b, "Observation window: %s to %s (%d months).\n\n",
			first.Month.Format("2006-01"), last.Month.Format("2006-01"), len(in.Trends))
	}

	if in.Battery != nil {
		writeBatterySection(&b, in.Battery, in.Alpha)
	}

	b.WriteString("## Charts\n\n")
	for _, img := range []string{"loss_ratio_province.png", "claims_vehicletype.png", "temporal_trends.png", "correlation_matrix.png"} {
		fmt.Fprintf(&b, "![%s](/plots/%s)\n\n", img, img)
	}

	return b.String()
}

func writeBatterySection(b *strings.Builder, out *battery.Outcome, alpha float64) {
	fmt.Fprintf(b, "## Hypothesis tests\n\n")
	fmt.Fprintf(b, "%d tests run, FDR-adjusted (Benjamini-Hochberg), alpha %.2g.\n\n", len(out.Results), alpha)
	b.WriteString("| Test | Groups | Metric | Statistic | p | q | Significant |\n")
	b.WriteString("|------|--------|--------|----------:|--:|--:|:-----------:|\n")
	for _, r := range out.Results {
		marker := ""
		if r.Significant(alpha) {
			marker = "yes"
		}
		fmt.Fprintf(b, "| %s | %s vs %s | %s | %s | %s | %s | %s |\n",
			r.Test, r.GroupA, r.GroupB, r.Metric, num(r.Statistic), num(r.PValue), num(r.QValue), marker)
	}
	b.WriteString("\n")

	if len(out.Skipped) > 0 {
		fmt.Fprintf(b, "Skipped tests:\n\n")
		for _, s := range out.Skipped {
			fmt.Fprintf(b, "- %s %s vs %s on %s: %s\n", s.Test, s.GroupA, s.GroupB, s.Metric, s.Reason)
		}
		b.WriteString("\n")
	}

	for column, metrics := range out.Metrics {
		fmt.Fprintf(b, "### Cohort metrics by %s\n\n", column)
		b.WriteString("| Group | N | Claim frequency | Claim severity | Margin |\n")
		b.WriteString("|-------|--:|----------------:|---------------:|-------:|\n")
		for _, m := range metrics {
			fmt.Fprintf(b, "| %s | %d | %s | %s | %s |\n",
				m.Group, m.SampleSize, num(m.ClaimFrequency), num(m.ClaimSeverity), num(m.Margin))
		}
		b.WriteString("\n")
	}
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "–"
	}
	return fmt.Sprintf("%.4g", v)
}

// RenderHTML converts the markdown report into a standalone HTML page.
func RenderHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs | parser.Tables)
	doc := p.Parse([]byte(md))
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.CompletePage})
	return markdown.Render(doc, renderer)
}
