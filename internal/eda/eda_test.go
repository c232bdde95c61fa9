package eda

import (
	"math"
	"testing"

	"claimscope/adapters/flatfile"
	"claimscope/domain/policy"
)

func financialTable() *flatfile.Table {
	headers := []string{
		policy.ColTotalPremium, policy.ColTotalClaims,
		policy.ColProvince, policy.ColTransactionMonth,
	}
	return flatfile.NewTable(headers, [][]string{
		{"100", "50", "Gauteng", "2015-01-01 00:00:00"},
		{"200", "0", "Gauteng", "2015-01-01 00:00:00"},
		{"100", "100", "Western Cape", "2015-02-01 00:00:00"},
		{"0", "10", "Western Cape", "2015-02-01 00:00:00"}, // zero premium excluded
		{"", "10", "Western Cape", "2015-02-01 00:00:00"},  // missing premium excluded
	})
}

func TestOverallLossRatio(t *testing.T) {
	ratio, err := OverallLossRatio(financialTable())
	if err != nil {
		t.Fatalf("OverallLossRatio failed: %v", err)
	}
	// Mean of 0.5, 0 and 1.
	if math.Abs(ratio-0.5) > 1e-9 {
		t.Errorf("loss ratio = %v, want 0.5", ratio)
	}
}

func TestLossRatioBy(t *testing.T) {
	rows, err := LossRatioBy(financialTable(), policy.ColProvince)
	if err != nil {
		t.Fatalf("LossRatioBy failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("groups = %d, want 2", len(rows))
	}

	byGroup := map[string]LossRatioRow{}
	for _, row := range rows {
		byGroup[row.Group] = row
	}
	if g := byGroup["Gauteng"]; math.Abs(g.LossRatio-0.25) > 1e-9 || g.Policies != 2 {
		t.Errorf("Gauteng = %+v, want ratio 0.25 over 2 policies", g)
	}
	if w := byGroup["Western Cape"]; math.Abs(w.LossRatio-1.0) > 1e-9 || w.Policies != 1 {
		t.Errorf("Western Cape = %+v, want ratio 1.0 over 1 policy", w)
	}
}

func TestSummarize(t *testing.T) {
	summaries := Summarize(financialTable())
	var premium *ColumnSummary
	for i := range summaries {
		if summaries[i].Column == policy.ColTotalPremium {
			premium = &summaries[i]
		}
	}
	if premium == nil {
		t.Fatal("no summary for totalpremium")
	}
	if premium.Count != 4 {
		t.Errorf("count = %d, want 4", premium.Count)
	}
	if math.Abs(premium.Mean-100) > 1e-9 {
		t.Errorf("mean = %v, want 100", premium.Mean)
	}
	if premium.Min != 0 || premium.Max != 200 {
		t.Errorf("min/max = %v/%v", premium.Min, premium.Max)
	}
}

func TestTemporalTrends(t *testing.T) {
	trends, err := TemporalTrends(financialTable())
	if err != nil {
		t.Fatalf("TemporalTrends failed: %v", err)
	}
	if len(trends) != 2 {
		t.Fatalf("months = %d, want 2", len(trends))
	}
	if !trends[0].Month.Before(trends[1].Month) {
		t.Error("trends not chronological")
	}
	jan := trends[0]
	if jan.Policies != 2 {
		t.Errorf("january policies = %d, want 2", jan.Policies)
	}
	if math.Abs(jan.MeanClaims-25) > 1e-9 {
		t.Errorf("january mean claims = %v, want 25", jan.MeanClaims)
	}
	if math.Abs(jan.MeanPremium-150) > 1e-9 {
		t.Errorf("january mean premium = %v, want 150", jan.MeanPremium)
	}
}

func TestCorrelations(t *testing.T) {
	headers := []string{"x", "y", "z"}
	table := flatfile.NewTable(headers, [][]string{
		{"1", "2", "5"},
		{"2", "4", "4"},
		{"3", "6", "3"},
		{"4", "8", "2"},
		{"5", "10", "1"},
	})
	matrix, err := Correlations(table, []string{"x", "y", "z"})
	if err != nil {
		t.Fatalf("Correlations failed: %v", err)
	}
	if len(matrix.Columns) != 3 {
		t.Fatalf("columns = %d, want 3", len(matrix.Columns))
	}
	if math.Abs(matrix.Values[0][1]-1) > 1e-9 {
		t.Errorf("corr(x, y) = %v, want 1", matrix.Values[0][1])
	}
	if math.Abs(matrix.Values[0][2]+1) > 1e-9 {
		t.Errorf("corr(x, z) = %v, want -1", matrix.Values[0][2])
	}
	if matrix.Values[1][1] != 1 {
		t.Errorf("diagonal = %v, want 1", matrix.Values[1][1])
	}
}

func TestCorrelationsInsufficientData(t *testing.T) {
	table := flatfile.NewTable([]string{"x", "y"}, [][]string{{"1", "2"}})
	if _, err := Correlations(table, []string{"x", "y"}); err == nil {
		t.Error("expected error for too few rows")
	}
}

func TestDetectOutliers(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6, 7, 8, 100}
	summary := DetectOutliers("claims", data)
	if summary.Count != 1 {
		t.Errorf("outliers = %d, want 1", summary.Count)
	}
	if summary.UpperFence >= 100 {
		t.Errorf("upper fence = %v, should exclude 100", summary.UpperFence)
	}
}
