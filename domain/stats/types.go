package stats

import "fmt"

// TestType identifies the statistical test that produced a result.
type TestType string

const (
	TestChiSquared  TestType = "chi_squared"
	TestWelchT      TestType = "welch_ttest"
	TestFisherExact TestType = "fisher_exact"
)

// MetricKind names the cohort metric a test compares.
type MetricKind string

const (
	MetricClaimFrequency MetricKind = "claim_frequency"
	MetricClaimSeverity  MetricKind = "claim_severity"
	MetricMargin         MetricKind = "margin"
)

// CohortMetrics summarizes one segment of the filtered data.
// INVARIANTS:
// - SampleSize always present and > 0
// - ClaimFrequency in [0, 1]
// - ClaimSeverity is NaN when the cohort has no claiming policies
type CohortMetrics struct {
	Group          string  `json:"group"`
	SampleSize     int     `json:"sample_size"`
	ClaimCount     int     `json:"claim_count"`
	ClaimFrequency float64 `json:"claim_frequency"`
	ClaimSeverity  float64 `json:"claim_severity"`
	Margin         float64 `json:"margin"`
}

// TestResult is one row of the battery output.
// INVARIANTS:
// - PValue always present in [0.0, 1.0]
// - QValue present in [0.0, 1.0] after FDR adjustment
type TestResult struct {
	Test             TestType   `json:"test"`
	GroupColumn      string     `json:"group_column"`
	GroupA           string     `json:"group_a"`
	GroupB           string     `json:"group_b"`
	Metric           MetricKind `json:"metric"`
	Statistic        float64    `json:"statistic"`
	EffectSize       float64    `json:"effect_size"`           // Cramer's V or Cohen's d
	EffectUnit       string     `json:"effect_unit,omitempty"` // "v" or "d"
	PValue           float64    `json:"p_value"`
	QValue           float64    `json:"q_value,omitempty"`
	SampleSizeA      int        `json:"sample_size_a"`
	SampleSizeB      int        `json:"sample_size_b"`
	TotalComparisons int        `json:"total_comparisons"`
	FDRMethod        string     `json:"fdr_method,omitempty"`
}

// Label renders a stable human-readable identifier for the result row.
func (r TestResult) Label() string {
	return fmt.Sprintf("%s: %s vs %s on %s", r.Test, r.GroupA, r.GroupB, r.Metric)
}

// Significant reports whether the FDR-adjusted p-value clears alpha.
// A result that has not been through FDR adjustment is never significant;
// q = 0 after adjustment is, since the survival function underflows to
// exactly zero for extreme statistics.
func (r TestResult) Significant(alpha float64) bool {
	return r.FDRMethod != "" && r.QValue < alpha
}

// SkippedTest records a battery entry that could not run, with the guard
// that rejected it. Skips are reported, never silently dropped.
type SkippedTest struct {
	Test        TestType   `json:"test"`
	GroupColumn string     `json:"group_column"`
	GroupA      string     `json:"group_a"`
	GroupB      string     `json:"group_b"`
	Metric      MetricKind `json:"metric"`
	Reason      string     `json:"reason"`
}

// BalanceCheck is one covariate-equivalence row between two cohorts.
type BalanceCheck struct {
	Column string   `json:"column"`
	Test   TestType `json:"test"`
	PValue float64  `json:"p_value"`
}
