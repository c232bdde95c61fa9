package battery

import (
	"sort"

	"claimscope/domain/stats"
)

// CheckGroupEquivalence tests whether two cohorts are balanced on the
// given covariate columns before attributing risk differences to the
// grouping itself. Numeric columns get a Welch t-test, categorical
// columns a chi-squared test over the full group-by-category table.
// Columns that fail their guard are silently omitted, matching the
// best-effort posture of the rest of the battery.
func (b *Battery) CheckGroupEquivalence(column, groupA, groupB string, checkCols []string) []stats.BalanceCheck {
	group := b.cellGrouper(column)
	var checks []stats.BalanceCheck

	for _, col := range checkCols {
		if !b.table.HasColumn(col) {
			continue
		}
		if b.isNumericColumn(col) {
			valuesA := b.covariateValues(group, groupA, col)
			valuesB := b.covariateValues(group, groupB, col)
			outcome, err := WelchT(valuesA, valuesB)
			if err != nil {
				continue
			}
			checks = append(checks, stats.BalanceCheck{
				Column: col, Test: stats.TestWelchT, PValue: outcome.PValue,
			})
			continue
		}

		table := b.categoricalContingency(group, groupA, groupB, col)
		if len(table) < 2 || len(table[0]) < 2 || MinCell(table) < b.cfg.MinCellCount {
			continue
		}
		outcome, err := ChiSquared(table)
		if err != nil {
			continue
		}
		checks = append(checks, stats.BalanceCheck{
			Column: col, Test: stats.TestChiSquared, PValue: outcome.PValue,
		})
	}
	return checks
}

// isNumericColumn treats a column as numeric when every non-missing cell
// among the filtered observations parses as a float.
func (b *Battery) isNumericColumn(col string) bool {
	seen := false
	for _, o := range b.obs {
		if b.table.IsMissing(o.row, col) {
			continue
		}
		if _, ok := b.table.Float(o.row, col); !ok {
			return false
		}
		seen = true
	}
	return seen
}

func (b *Battery) covariateValues(group grouper, label, col string) []float64 {
	var values []float64
	for i, o := range b.obs {
		if group(i) != label {
			continue
		}
		if v, ok := b.table.Float(o.row, col); ok {
			values = append(values, v)
		}
	}
	return values
}

// categoricalContingency builds a 2xK table of cohort by category level.
func (b *Battery) categoricalContingency(group grouper, groupA, groupB, col string) [][]int {
	counts := map[string][2]int{}
	for i, o := range b.obs {
		var idx int
		switch group(i) {
		case groupA:
			idx = 0
		case groupB:
			idx = 1
		default:
			continue
		}
		level := b.table.Cell(o.row, col)
		if level == "" {
			continue
		}
		c := counts[level]
		c[idx]++
		counts[level] = c
	}

	levels := make([]string, 0, len(counts))
	for level := range counts {
		levels = append(levels, level)
	}
	sort.Strings(levels)

	table := [][]int{make([]int, len(levels)), make([]int, len(levels))}
	for j, level := range levels {
		table[0][j] = counts[level][0]
		table[1][j] = counts[level][1]
	}
	return table
}
