package eda

import (
	"sort"
	"time"

	"claimscope/adapters/flatfile"
	"claimscope/domain/policy"
	"claimscope/internal/cleaning"
	"claimscope/internal/errors"
)

// MonthlyTrend aggregates policy volume, claims and premiums per month.
type MonthlyTrend struct {
	Month       time.Time `json:"month"`
	Policies    int       `json:"policies"`
	MeanClaims  float64   `json:"mean_claims"`
	MeanPremium float64   `json:"mean_premium"`
}

// TemporalTrends groups rows by transaction month and returns the monthly
// series in chronological order. Rows whose month does not parse are
// skipped.
func TemporalTrends(table *flatfile.Table) ([]MonthlyTrend, error) {
	for _, col := range []string{policy.ColTransactionMonth, policy.ColTotalClaims, policy.ColTotalPremium} {
		if !table.HasColumn(col) {
			return nil, errors.NotFound("column " + col)
		}
	}

	type bucket struct {
		policies int
		claims   float64
		premium  float64
	}
	buckets := make(map[time.Time]*bucket)

	for row := range table.Rows {
		month, ok := cleaning.ParseTransactionMonth(table.Cell(row, policy.ColTransactionMonth))
		if !ok {
			continue
		}
		key := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
		b := buckets[key]
		if b == nil {
			b = &bucket{}
			buckets[key] = b
		}
		b.policies++
		if claims, ok := table.Float(row, policy.ColTotalClaims); ok {
			b.claims += claims
		}
		if premium, ok := table.Float(row, policy.ColTotalPremium); ok {
			b.premium += premium
		}
	}

	if len(buckets) == 0 {
		return nil, errors.InsufficientData("no parseable transaction months")
	}

	trends := make([]MonthlyTrend, 0, len(buckets))
	for month, b := range buckets {
		trends = append(trends, MonthlyTrend{
			Month:       month,
			Policies:    b.policies,
			MeanClaims:  b.claims / float64(b.policies),
			MeanPremium: b.premium / float64(b.policies),
		})
	}
	sort.Slice(trends, func(i, j int) bool { return trends[i].Month.Before(trends[j].Month) })
	return trends, nil
}
