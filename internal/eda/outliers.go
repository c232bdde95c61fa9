package eda

import (
	"github.com/montanaflynn/stats"
)

// OutlierSummary counts IQR outliers for one numeric column.
type OutlierSummary struct {
	Column     string  `json:"column"`
	Count      int     `json:"count"`
	LowerFence float64 `json:"lower_fence"`
	UpperFence float64 `json:"upper_fence"`
}

// DetectOutliers counts values outside the 1.5*IQR fences.
func DetectOutliers(column string, data []float64) OutlierSummary {
	summary := OutlierSummary{Column: column}
	if len(data) < 4 {
		return summary
	}

	q25, _ := stats.Percentile(data, 25)
	q75, _ := stats.Percentile(data, 75)
	iqr := q75 - q25
	summary.LowerFence = q25 - 1.5*iqr
	summary.UpperFence = q75 + 1.5*iqr

	for _, v := range data {
		if v < summary.LowerFence || v > summary.UpperFence {
			summary.Count++
		}
	}
	return summary
}
