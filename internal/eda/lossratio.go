package eda

import (
	"sort"

	"claimscope/adapters/flatfile"
	"claimscope/domain/policy"
	"claimscope/internal/errors"
)

// LossRatioRow is the mean loss ratio for one segment.
type LossRatioRow struct {
	Group     string  `json:"group"`
	LossRatio float64 `json:"loss_ratio"`
	Policies  int     `json:"policies"`
}

// OverallLossRatio computes the mean of per-row claims/premium across rows
// with a nonzero premium.
func OverallLossRatio(table *flatfile.Table) (float64, error) {
	sum, n := 0.0, 0
	for row := range table.Rows {
		ratio, ok := rowLossRatio(table, row)
		if !ok {
			continue
		}
		sum += ratio
		n++
	}
	if n == 0 {
		return 0, errors.InsufficientData("no rows with nonzero premium")
	}
	return sum / float64(n), nil
}

// LossRatioBy groups rows by a categorical column and computes the mean
// loss ratio per group, sorted by group label.
func LossRatioBy(table *flatfile.Table, groupCol string) ([]LossRatioRow, error) {
	if !table.HasColumn(groupCol) {
		return nil, errors.NotFound("column " + groupCol)
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for row := range table.Rows {
		group := table.Cell(row, groupCol)
		if group == "" {
			continue
		}
		ratio, ok := rowLossRatio(table, row)
		if !ok {
			continue
		}
		sums[group] += ratio
		counts[group]++
	}

	rows := make([]LossRatioRow, 0, len(sums))
	for group, sum := range sums {
		rows = append(rows, LossRatioRow{
			Group:     group,
			LossRatio: sum / float64(counts[group]),
			Policies:  counts[group],
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Group < rows[j].Group })
	return rows, nil
}

// rowLossRatio returns claims/premium for a row; zero premiums are
// excluded rather than producing infinities.
func rowLossRatio(table *flatfile.Table, row int) (float64, bool) {
	premium, ok := table.Float(row, policy.ColTotalPremium)
	if !ok || premium == 0 {
		return 0, false
	}
	claims, ok := table.Float(row, policy.ColTotalClaims)
	if !ok {
		return 0, false
	}
	return claims / premium, true
}
