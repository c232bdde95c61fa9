package report

import (
	"testing"
	"time"

	"claimscope/domain/stats"
	"claimscope/internal/battery"
	"claimscope/internal/cleaning"
	"claimscope/internal/eda"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInput() Input {
	return Input{
		RunID:       "run-123",
		GeneratedAt: time.Date(2015, 9, 1, 0, 0, 0, 0, time.UTC),
		CleanReport: &cleaning.Report{
			InitialRows: 1000,
			FinalRows:   900,
			Rules: []cleaning.RuleReport{
				{Rule: "drop_duplicates", RowsDropped: 100},
			},
		},
		Summaries: []eda.ColumnSummary{
			{Column: "totalpremium", Count: 900, Mean: 61.9, StdDev: 230.3},
		},
		OverallLossRatio: 0.31,
		LossByProvince: []eda.LossRatioRow{
			{Group: "Gauteng", LossRatio: 0.35, Policies: 400},
		},
		Battery: &battery.Outcome{
			Results: []stats.TestResult{
				{
					Test: stats.TestChiSquared, GroupColumn: "province",
					GroupA: "Gauteng", GroupB: "KwaZulu-Natal",
					Metric: stats.MetricClaimFrequency,
					Statistic: 5.1, PValue: 0.024, QValue: 0.048, FDRMethod: "BH",
				},
			},
			Skipped: []stats.SkippedTest{
				{
					Test: stats.TestWelchT, GroupColumn: "gender",
					GroupA: "Female", GroupB: "Male",
					Metric: stats.MetricClaimSeverity, Reason: "each group needs at least two values",
				},
			},
			Metrics: map[string][]stats.CohortMetrics{
				"province": {
					{Group: "Gauteng", SampleSize: 400, ClaimFrequency: 0.12, ClaimSeverity: 18000, Margin: 14.2},
				},
			},
		},
		Alpha: 0.05,
	}
}

func TestBuildMarkdown(t *testing.T) {
	md := BuildMarkdown(sampleInput())

	assert.Contains(t, md, "# Insurance Claims Analysis")
	assert.Contains(t, md, "run-123")
	assert.Contains(t, md, "## Cleaning")
	assert.Contains(t, md, "drop_duplicates")
	assert.Contains(t, md, "## Hypothesis tests")
	assert.Contains(t, md, "Gauteng vs KwaZulu-Natal")
	assert.Contains(t, md, "0.024")
	assert.Contains(t, md, "Skipped tests:")
	assert.Contains(t, md, "### Cohort metrics by province")
	assert.Contains(t, md, "/plots/temporal_trends.png")
}

func TestBuildMarkdownSignificanceMarker(t *testing.T) {
	in := sampleInput()
	md := BuildMarkdown(in)
	assert.Contains(t, md, "| yes |", "q below alpha should be marked significant")

	in.Battery.Results[0].QValue = 0.2
	md = BuildMarkdown(in)
	assert.NotContains(t, md, "| yes |")
}

func TestRenderHTML(t *testing.T) {
	md := BuildMarkdown(sampleInput())
	html := string(RenderHTML(md))

	require.NotEmpty(t, html)
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "Insurance Claims Analysis")
}
