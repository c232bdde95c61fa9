// Package battery runs the fixed A/B hypothesis test battery over risk
// segments of the cleaned snapshot and adjusts the resulting p-values for
// multiple comparisons.
package battery

import (
	"math"

	"claimscope/internal/errors"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// ChiSquaredOutcome carries the test statistic, p-value and Cramer's V.
type ChiSquaredOutcome struct {
	Statistic  float64
	PValue     float64
	CramerV    float64
	DegreesOfF int
	SampleSize int
}

// ChiSquared runs a chi-squared test of independence on a contingency
// table of observed counts (rows = groups, cols = outcomes).
func ChiSquared(observed [][]int) (*ChiSquaredOutcome, error) {
	rows := len(observed)
	if rows < 2 {
		return nil, errors.InsufficientData("contingency table needs at least two rows")
	}
	cols := len(observed[0])
	if cols < 2 {
		return nil, errors.InsufficientData("contingency table needs at least two columns")
	}

	rowTotals := make([]int, rows)
	colTotals := make([]int, cols)
	total := 0
	for i := range observed {
		for j := range observed[i] {
			rowTotals[i] += observed[i][j]
			colTotals[j] += observed[i][j]
			total += observed[i][j]
		}
	}
	if total == 0 {
		return nil, errors.InsufficientData("empty contingency table")
	}

	df := (rows - 1) * (cols - 1)
	chiSq := 0.0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			expected := float64(rowTotals[i]*colTotals[j]) / float64(total)
			if expected > 0 {
				diff := math.Abs(float64(observed[i][j]) - expected)
				if df == 1 {
					// Yates continuity correction on 2x2 tables.
					diff = math.Max(0, diff-0.5)
				}
				chiSq += diff * diff / expected
			}
		}
	}

	dist := distuv.ChiSquared{K: float64(df)}
	pValue := clampP(dist.Survival(chiSq))

	// Cramer's V = sqrt(chi2 / (n * min(r-1, c-1)))
	minDim := math.Min(float64(rows-1), float64(cols-1))
	cramerV := math.Sqrt(chiSq / (float64(total) * minDim))

	return &ChiSquaredOutcome{
		Statistic:  chiSq,
		PValue:     pValue,
		CramerV:    cramerV,
		DegreesOfF: df,
		SampleSize: total,
	}, nil
}

// MinCell returns the smallest observed count in a contingency table.
func MinCell(observed [][]int) int {
	min := math.MaxInt
	for i := range observed {
		for j := range observed[i] {
			if observed[i][j] < min {
				min = observed[i][j]
			}
		}
	}
	if min == math.MaxInt {
		return 0
	}
	return min
}

// WelchOutcome carries the two-sided Welch's t-test result plus Cohen's d.
type WelchOutcome struct {
	Statistic  float64
	PValue     float64
	CohenD     float64
	DegreesOfF float64
	MeanA      float64
	MeanB      float64
}

// WelchT runs a two-sided Welch's t-test (unequal variances) between two
// samples. Each side needs at least two values.
func WelchT(groupA, groupB []float64) (*WelchOutcome, error) {
	if len(groupA) < 2 || len(groupB) < 2 {
		return nil, errors.InsufficientData("each group needs at least two values")
	}

	n1, n2 := float64(len(groupA)), float64(len(groupB))
	mean1, _ := stats.Mean(groupA)
	mean2, _ := stats.Mean(groupB)
	var1, _ := stats.SampleVariance(groupA)
	var2, _ := stats.SampleVariance(groupB)

	se := math.Sqrt(var1/n1 + var2/n2)
	if se == 0 {
		// Identical constant samples carry no evidence either way.
		return &WelchOutcome{Statistic: 0, PValue: 1, MeanA: mean1, MeanB: mean2}, nil
	}
	tStat := (mean1 - mean2) / se

	// Welch-Satterthwaite degrees of freedom
	df := math.Pow(var1/n1+var2/n2, 2) /
		(math.Pow(var1/n1, 2)/(n1-1) + math.Pow(var2/n2, 2)/(n2-1))

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	pValue := clampP(2 * dist.Survival(math.Abs(tStat)))

	// Cohen's d with pooled standard deviation
	cohenD := 0.0
	pooledSD := math.Sqrt(((n1-1)*var1 + (n2-1)*var2) / (n1 + n2 - 2))
	if pooledSD > 0 {
		cohenD = (mean1 - mean2) / pooledSD
	}

	return &WelchOutcome{
		Statistic:  tStat,
		PValue:     pValue,
		CohenD:     cohenD,
		DegreesOfF: df,
		MeanA:      mean1,
		MeanB:      mean2,
	}, nil
}

// FisherExact runs the two-sided Fisher exact test on a 2x2 table.
// The two-sided p-value sums the probabilities of all tables (with the
// same margins) no more likely than the observed one.
func FisherExact(observed [][]int) (float64, error) {
	if len(observed) != 2 || len(observed[0]) != 2 || len(observed[1]) != 2 {
		return 0, errors.InvalidInput("fisher exact requires a 2x2 table")
	}

	a, b := observed[0][0], observed[0][1]
	c, d := observed[1][0], observed[1][1]
	r1, r2 := a+b, c+d
	c1 := a + c
	n := r1 + r2

	if n == 0 {
		return 0, errors.InsufficientData("empty contingency table")
	}

	// Hypergeometric probability of a table with top-left cell x.
	logProb := func(x int) float64 {
		return logChoose(r1, x) + logChoose(r2, c1-x) - logChoose(n, c1)
	}

	observedLog := logProb(a)
	lo := maxInt(0, c1-r2)
	hi := minInt(r1, c1)

	// Sum in probability space with a small tolerance for float error.
	const eps = 1e-7
	p := 0.0
	for x := lo; x <= hi; x++ {
		lp := logProb(x)
		if lp <= observedLog+eps {
			p += math.Exp(lp)
		}
	}
	return clampP(p), nil
}

// logChoose computes log(n choose k) via lgamma.
func logChoose(n, k int) float64 {
	if k < 0 || k > n {
		return math.Inf(-1)
	}
	ln, _ := math.Lgamma(float64(n + 1))
	lk, _ := math.Lgamma(float64(k + 1))
	lnk, _ := math.Lgamma(float64(n - k + 1))
	return ln - lk - lnk
}

func clampP(p float64) float64 {
	if math.IsNaN(p) {
		return 1
	}
	return math.Max(0, math.Min(1, p))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
