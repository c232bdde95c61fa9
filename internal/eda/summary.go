// Package eda computes the descriptive statistics, loss-ratio aggregates,
// temporal trends and correlation structure of the cleaned snapshot.
package eda

import (
	"claimscope/adapters/flatfile"
	"claimscope/domain/policy"

	"github.com/montanaflynn/stats"
)

// ColumnSummary holds descriptive statistics for one numeric column.
type ColumnSummary struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Q25    float64 `json:"q25"`
	Median float64 `json:"median"`
	Q75    float64 `json:"q75"`
	Max    float64 `json:"max"`
}

// Summarize describes every numeric summary column present in the table.
// Columns with no parseable values are omitted.
func Summarize(table *flatfile.Table) []ColumnSummary {
	summaries := make([]ColumnSummary, 0, len(policy.NumericSummaryColumns))
	for _, col := range policy.NumericSummaryColumns {
		if !table.HasColumn(col) {
			continue
		}
		data := table.FloatColumn(col)
		if len(data) == 0 {
			continue
		}
		summaries = append(summaries, summarizeColumn(col, data))
	}
	return summaries
}

func summarizeColumn(col string, data []float64) ColumnSummary {
	mean, _ := stats.Mean(data)
	stdDev, _ := stats.StandardDeviation(data)
	min, _ := stats.Min(data)
	max, _ := stats.Max(data)
	median, _ := stats.Median(data)
	q25, _ := stats.Percentile(data, 25)
	q75, _ := stats.Percentile(data, 75)

	return ColumnSummary{
		Column: col,
		Count:  len(data),
		Mean:   mean,
		StdDev: stdDev,
		Min:    min,
		Q25:    q25,
		Median: median,
		Q75:    q75,
		Max:    max,
	}
}
