package battery

import (
	"fmt"
	"math"
	"sort"

	"claimscope/adapters/flatfile"
	"claimscope/domain/policy"
	"claimscope/domain/stats"
	"claimscope/internal"
	"claimscope/internal/config"
	"claimscope/internal/errors"
)

// Cohort labels for the postal-code risk tiers.
const (
	HighRiskGroup = "High Risk"
	LowRiskGroup  = "Low Risk"
)

// Fixed province pair under test: the two largest books in the portfolio.
const (
	ProvinceA = "Gauteng"
	ProvinceB = "KwaZulu-Natal"
)

// observation is one policy row after the battery filter
// (premium > 0, claims >= 0).
type observation struct {
	row      int
	premium  float64
	claims   float64
	margin   float64
	hasClaim bool
}

// Outcome is the full battery output: adjusted results, skipped entries
// and the per-segment metrics behind them.
type Outcome struct {
	Results []stats.TestResult               `json:"results"`
	Skipped []stats.SkippedTest              `json:"skipped"`
	Metrics map[string][]stats.CohortMetrics `json:"metrics"`
}

// Battery assembles cohorts from the cleaned snapshot and runs the fixed
// hypothesis tests.
type Battery struct {
	table  *flatfile.Table
	obs    []observation
	cfg    config.BatteryConfig
	logger *internal.Logger

	// postcodeGroup maps filtered-row index to its risk tier, populated
	// by the postal-code stage.
	postcodeGroup map[int]string
}

// New filters the cleaned table to rows usable by the battery and returns
// a ready runner.
func New(table *flatfile.Table, cfg config.BatteryConfig, logger *internal.Logger) (*Battery, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	b := &Battery{table: table, cfg: cfg, logger: logger, postcodeGroup: make(map[int]string)}

	for row := range table.Rows {
		premium, okP := table.Float(row, policy.ColTotalPremium)
		claims, okC := table.Float(row, policy.ColTotalClaims)
		if !okP || !okC || premium <= 0 || claims < 0 {
			continue
		}
		b.obs = append(b.obs, observation{
			row:      row,
			premium:  premium,
			claims:   claims,
			margin:   premium - claims,
			hasClaim: claims > 0,
		})
	}
	if len(b.obs) == 0 {
		return nil, errors.InsufficientData("no rows with positive premium and non-negative claims")
	}
	logger.Info("Battery data: %d of %d rows usable after filtering", len(b.obs), table.Len())
	return b, nil
}

// Run executes the full battery and applies BH FDR to the surviving
// p-values.
func (b *Battery) Run() *Outcome {
	out := &Outcome{Metrics: make(map[string][]stats.CohortMetrics)}

	// H0: no risk differences across provinces.
	out.Metrics[policy.ColProvince] = b.MetricsBy(b.cellGrouper(policy.ColProvince))
	b.chiSquaredTest(out, b.cellGrouper(policy.ColProvince), policy.ColProvince, ProvinceA, ProvinceB)
	b.tTest(out, b.cellGrouper(policy.ColProvince), policy.ColProvince, ProvinceA, ProvinceB, stats.MetricClaimSeverity)

	// H0: no risk or margin differences between postal-code risk tiers.
	if b.table.HasColumn(policy.ColPostalCode) {
		if err := b.assignPostcodeTiers(); err != nil {
			b.logger.Warn("Postal code stage skipped: %v", err)
			out.Skipped = append(out.Skipped, stats.SkippedTest{
				Test: stats.TestChiSquared, GroupColumn: "postcode_group",
				GroupA: HighRiskGroup, GroupB: LowRiskGroup,
				Metric: stats.MetricClaimFrequency, Reason: err.Error(),
			})
		} else {
			out.Metrics["postcode_group"] = b.MetricsBy(b.postcodeGrouper())
			b.chiSquaredWithFisherFallback(out, b.postcodeGrouper(), "postcode_group", HighRiskGroup, LowRiskGroup)
			b.tTest(out, b.postcodeGrouper(), "postcode_group", HighRiskGroup, LowRiskGroup, stats.MetricClaimSeverity)
			b.tTest(out, b.postcodeGrouper(), "postcode_group", HighRiskGroup, LowRiskGroup, stats.MetricMargin)
		}
	}

	// H0: no risk differences between women and men. Only when both
	// labels survive cleaning.
	genders := b.groupSizes(b.cellGrouper(policy.ColGender))
	b.logger.Info("Gender distribution: %v", genders)
	if genders[policy.GenderFemale] > 0 && genders[policy.GenderMale] > 0 {
		out.Metrics[policy.ColGender] = b.MetricsBy(b.cellGrouper(policy.ColGender))
		b.chiSquaredTest(out, b.cellGrouper(policy.ColGender), policy.ColGender, policy.GenderFemale, policy.GenderMale)
		b.tTest(out, b.cellGrouper(policy.ColGender), policy.ColGender, policy.GenderFemale, policy.GenderMale, stats.MetricClaimSeverity)
	}

	b.applyFDR(out.Results)
	return out
}

// grouper maps a filtered observation index to its cohort label ("" means
// unassigned).
type grouper func(i int) string

func (b *Battery) cellGrouper(column string) grouper {
	return func(i int) string {
		return b.table.Cell(b.obs[i].row, column)
	}
}

func (b *Battery) postcodeGrouper() grouper {
	return func(i int) string {
		return b.postcodeGroup[i]
	}
}

func (b *Battery) groupSizes(group grouper) map[string]int {
	sizes := make(map[string]int)
	for i := range b.obs {
		if label := group(i); label != "" {
			sizes[label]++
		}
	}
	return sizes
}

// MetricsBy computes claim frequency, claim severity and margin per cohort.
func (b *Battery) MetricsBy(group grouper) []stats.CohortMetrics {
	type agg struct {
		n, claims   int
		severitySum float64
		marginSum   float64
	}
	aggs := make(map[string]*agg)
	for i, o := range b.obs {
		label := group(i)
		if label == "" {
			continue
		}
		a := aggs[label]
		if a == nil {
			a = &agg{}
			aggs[label] = a
		}
		a.n++
		a.marginSum += o.margin
		if o.hasClaim {
			a.claims++
			a.severitySum += o.claims
		}
	}

	metrics := make([]stats.CohortMetrics, 0, len(aggs))
	for label, a := range aggs {
		severity := math.NaN()
		if a.claims > 0 {
			severity = a.severitySum / float64(a.claims)
		}
		metrics = append(metrics, stats.CohortMetrics{
			Group:          label,
			SampleSize:     a.n,
			ClaimCount:     a.claims,
			ClaimFrequency: float64(a.claims) / float64(a.n),
			ClaimSeverity:  severity,
			Margin:         a.marginSum / float64(a.n),
		})
	}
	sort.Slice(metrics, func(i, j int) bool { return metrics[i].Group < metrics[j].Group })
	return metrics
}

// contingency builds the 2x2 group-by-outcome table for claim frequency.
func (b *Battery) contingency(group grouper, groupA, groupB string) ([][]int, int, int) {
	table := [][]int{{0, 0}, {0, 0}} // rows: A, B; cols: no claim, claim
	nA, nB := 0, 0
	for i, o := range b.obs {
		var rowIdx int
		switch group(i) {
		case groupA:
			rowIdx = 0
			nA++
		case groupB:
			rowIdx = 1
			nB++
		default:
			continue
		}
		colIdx := 0
		if o.hasClaim {
			colIdx = 1
		}
		table[rowIdx][colIdx]++
	}
	return table, nA, nB
}

func (b *Battery) chiSquaredTest(out *Outcome, group grouper, column, groupA, groupB string) {
	table, nA, nB := b.contingency(group, groupA, groupB)
	if MinCell(table) < b.cfg.MinCellCount {
		b.logger.Warn("Insufficient data for chi-squared test between %s and %s", groupA, groupB)
		out.Skipped = append(out.Skipped, stats.SkippedTest{
			Test: stats.TestChiSquared, GroupColumn: column, GroupA: groupA, GroupB: groupB,
			Metric: stats.MetricClaimFrequency,
			Reason: fmt.Sprintf("contingency cell below %d", b.cfg.MinCellCount),
		})
		return
	}
	outcome, err := ChiSquared(table)
	if err != nil {
		out.Skipped = append(out.Skipped, stats.SkippedTest{
			Test: stats.TestChiSquared, GroupColumn: column, GroupA: groupA, GroupB: groupB,
			Metric: stats.MetricClaimFrequency, Reason: err.Error(),
		})
		return
	}
	out.Results = append(out.Results, stats.TestResult{
		Test:        stats.TestChiSquared,
		GroupColumn: column,
		GroupA:      groupA,
		GroupB:      groupB,
		Metric:      stats.MetricClaimFrequency,
		Statistic:   outcome.Statistic,
		EffectSize:  outcome.CramerV,
		EffectUnit:  "v",
		PValue:      outcome.PValue,
		SampleSizeA: nA,
		SampleSizeB: nB,
	})
}

// chiSquaredWithFisherFallback mirrors the postal-code stage: when the
// contingency guard rejects the chi-squared test, fall back to Fisher's
// exact test on the same 2x2 table.
func (b *Battery) chiSquaredWithFisherFallback(out *Outcome, group grouper, column, groupA, groupB string) {
	table, nA, nB := b.contingency(group, groupA, groupB)
	if MinCell(table) >= b.cfg.MinCellCount {
		b.chiSquaredTest(out, group, column, groupA, groupB)
		return
	}

	pValue, err := FisherExact(table)
	if err != nil {
		out.Skipped = append(out.Skipped, stats.SkippedTest{
			Test: stats.TestFisherExact, GroupColumn: column, GroupA: groupA, GroupB: groupB,
			Metric: stats.MetricClaimFrequency, Reason: err.Error(),
		})
		return
	}
	out.Results = append(out.Results, stats.TestResult{
		Test:        stats.TestFisherExact,
		GroupColumn: column,
		GroupA:      groupA,
		GroupB:      groupB,
		Metric:      stats.MetricClaimFrequency,
		PValue:      pValue,
		SampleSizeA: nA,
		SampleSizeB: nB,
	})
}

// metricValues extracts the per-observation values a t-test compares.
// Severity uses claiming policies only; margin uses every policy.
func (b *Battery) metricValues(group grouper, label string, metric stats.MetricKind) []float64 {
	var values []float64
	for i, o := range b.obs {
		if group(i) != label {
			continue
		}
		switch metric {
		case stats.MetricClaimSeverity:
			if o.hasClaim {
				values = append(values, o.claims)
			}
		case stats.MetricMargin:
			values = append(values, o.margin)
		}
	}
	return values
}

func (b *Battery) tTest(out *Outcome, group grouper, column, groupA, groupB string, metric stats.MetricKind) {
	valuesA := b.metricValues(group, groupA, metric)
	valuesB := b.metricValues(group, groupB, metric)
	outcome, err := WelchT(valuesA, valuesB)
	if err != nil {
		b.logger.Warn("Insufficient data for t-test between %s and %s", groupA, groupB)
		out.Skipped = append(out.Skipped, stats.SkippedTest{
			Test: stats.TestWelchT, GroupColumn: column, GroupA: groupA, GroupB: groupB,
			Metric: metric, Reason: err.Error(),
		})
		return
	}
	out.Results = append(out.Results, stats.TestResult{
		Test:        stats.TestWelchT,
		GroupColumn: column,
		GroupA:      groupA,
		GroupB:      groupB,
		Metric:      metric,
		Statistic:   outcome.Statistic,
		EffectSize:  outcome.CohenD,
		EffectUnit:  "d",
		PValue:      outcome.PValue,
		SampleSizeA: len(valuesA),
		SampleSizeB: len(valuesB),
	})
}

// assignPostcodeTiers ranks postcodes by claim frequency (among postcodes
// with enough claims) and labels the top and bottom tiers.
func (b *Battery) assignPostcodeTiers() error {
	type codeAgg struct {
		n, claims int
	}
	codes := make(map[string]*codeAgg)
	for _, o := range b.obs {
		code := b.table.Cell(o.row, policy.ColPostalCode)
		if code == "" {
			continue
		}
		a := codes[code]
		if a == nil {
			a = &codeAgg{}
			codes[code] = a
		}
		a.n++
		if o.hasClaim {
			a.claims++
		}
	}

	type codeFreq struct {
		code string
		freq float64
	}
	var valid []codeFreq
	for code, a := range codes {
		if a.claims > b.cfg.MinClaimsPerCode {
			valid = append(valid, codeFreq{code, float64(a.claims) / float64(a.n)})
		}
	}
	if len(valid) < 2 {
		return errors.InsufficientData(
			fmt.Sprintf("fewer than two postcodes with more than %d claims", b.cfg.MinClaimsPerCode))
	}

	sort.Slice(valid, func(i, j int) bool {
		if valid[i].freq != valid[j].freq {
			return valid[i].freq > valid[j].freq
		}
		return valid[i].code < valid[j].code
	})

	tier := b.cfg.RiskTierSize
	if tier > len(valid)/2 {
		tier = len(valid) / 2
	}
	if tier < 1 {
		tier = 1
	}

	tiers := make(map[string]string, 2*tier)
	for _, cf := range valid[:tier] {
		tiers[cf.code] = HighRiskGroup
	}
	for _, cf := range valid[len(valid)-tier:] {
		tiers[cf.code] = LowRiskGroup
	}

	b.postcodeGroup = make(map[int]string, len(b.obs))
	for i := range b.obs {
		code := b.table.Cell(b.obs[i].row, policy.ColPostalCode)
		if label, ok := tiers[code]; ok {
			b.postcodeGroup[i] = label
		}
	}
	b.logger.Info("Postcode tiers: %d high-risk and %d low-risk codes from %d valid", tier, tier, len(valid))
	return nil
}

// applyFDR adjusts all collected p-values with Benjamini-Hochberg.
func (b *Battery) applyFDR(results []stats.TestResult) {
	if len(results) == 0 {
		return
	}
	pValues := make([]float64, len(results))
	for i, r := range results {
		pValues[i] = r.PValue
	}
	qValues := BenjaminiHochberg(pValues)
	for i := range results {
		results[i].QValue = qValues[i]
		results[i].TotalComparisons = len(results)
		results[i].FDRMethod = "BH"
	}
}
