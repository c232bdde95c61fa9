package flatfile

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"claimscope/domain/stats"
)

// WriteTableCSV persists a table as CSV, creating the directory as needed.
func WriteTableCSV(table *Table, path string) error {
	file, err := createFile(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(table.Headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range table.Rows {
		// Pad short rows so every record has the full column set.
		record := make([]string, len(table.Headers))
		copy(record, row)
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteResultsCSV persists the hypothesis battery output table.
func WriteResultsCSV(results []stats.TestResult, path string) error {
	file, err := createFile(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	header := []string{"test", "group_column", "group_a", "group_b", "metric",
		"statistic", "effect_size", "p_value", "p_value_adjusted"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range results {
		record := []string{
			string(r.Test), r.GroupColumn, r.GroupA, r.GroupB, string(r.Metric),
			formatFloat(r.Statistic), formatFloat(r.EffectSize),
			formatFloat(r.PValue), formatFloat(r.QValue),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write result row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func createFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return file, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}
