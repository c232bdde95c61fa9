package eda

import (
	"math"

	"claimscope/adapters/flatfile"
	"claimscope/internal/errors"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// CorrelationMatrix holds pairwise Pearson correlations for a column set.
type CorrelationMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
}

// Correlations computes the Pearson correlation matrix over the given
// numeric columns, using only rows where every column parses. Columns with
// zero variance stay in the matrix (their correlations come out NaN).
func Correlations(table *flatfile.Table, columns []string) (*CorrelationMatrix, error) {
	present := make([]string, 0, len(columns))
	for _, col := range columns {
		if table.HasColumn(col) {
			present = append(present, col)
		}
	}
	if len(present) < 2 {
		return nil, errors.InsufficientData("need at least two numeric columns")
	}

	// Complete-case rows only, so every pairwise correlation shares a basis.
	var rows [][]float64
	for row := range table.Rows {
		vals := make([]float64, len(present))
		ok := true
		for i, col := range present {
			v, parsed := table.Float(row, col)
			if !parsed {
				ok = false
				break
			}
			vals[i] = v
		}
		if ok {
			rows = append(rows, vals)
		}
	}
	if len(rows) < 3 {
		return nil, errors.InsufficientData("not enough complete rows for correlation")
	}

	data := mat.NewDense(len(rows), len(present), nil)
	for i, row := range rows {
		data.SetRow(i, row)
	}

	var corr mat.SymDense
	stat.CorrelationMatrix(&corr, data, nil)

	values := make([][]float64, len(present))
	for i := range present {
		values[i] = make([]float64, len(present))
		for j := range present {
			v := corr.At(i, j)
			if math.IsInf(v, 0) {
				v = math.NaN()
			}
			values[i][j] = v
		}
	}
	return &CorrelationMatrix{Columns: present, Values: values}, nil
}
