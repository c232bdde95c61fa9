package battery

import "sort"

// BenjaminiHochberg adjusts p-values for multiple comparisons and returns
// q-values in the input order. The step-up monotonicity pass (cumulative
// minimum from the largest rank) keeps q-values non-decreasing in p.
func BenjaminiHochberg(pValues []float64) []float64 {
	m := len(pValues)
	if m == 0 {
		return nil
	}

	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return pValues[order[i]] < pValues[order[j]]
	})

	// q_i = p_i * m / rank, then enforce monotonicity from the top rank down.
	adjusted := make([]float64, m)
	running := 1.0
	for i := m - 1; i >= 0; i-- {
		rank := i + 1
		q := pValues[order[i]] * float64(m) / float64(rank)
		if q > 1 {
			q = 1
		}
		if q < running {
			running = q
		}
		adjusted[order[i]] = running
	}
	return adjusted
}
