// Package excel exports analysis results as an xlsx workbook for
// downstream consumers who live in spreadsheets.
package excel

import (
	"fmt"
	"math"
	"sort"

	"claimscope/domain/stats"
	"claimscope/internal/eda"

	"github.com/xuri/excelize/v2"
)

// ReportWriter writes one workbook per analysis run.
type ReportWriter struct {
	filePath string
}

// NewReportWriter creates a workbook writer targeting the given path.
func NewReportWriter(filePath string) *ReportWriter {
	return &ReportWriter{filePath: filePath}
}

// WorkbookInput is the data written into the workbook.
type WorkbookInput struct {
	Results   []stats.TestResult
	Metrics   map[string][]stats.CohortMetrics
	Summaries []eda.ColumnSummary
}

// Write builds the workbook with one sheet per concern and saves it.
func (w *ReportWriter) Write(in WorkbookInput) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := w.writeResultsSheet(f, in.Results); err != nil {
		return err
	}
	if err := w.writeMetricsSheet(f, in.Metrics); err != nil {
		return err
	}
	if err := w.writeDescriptivesSheet(f, in.Summaries); err != nil {
		return err
	}

	// The default Sheet1 is replaced by the results sheet.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}

	if err := f.SaveAs(w.filePath); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", w.filePath, err)
	}
	return nil
}

func (w *ReportWriter) writeResultsSheet(f *excelize.File, results []stats.TestResult) error {
	const sheet = "Test Results"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	headers := []string{
		"Test", "Group Column", "Group A", "Group B", "Metric",
		"Statistic", "Effect Size", "Effect Unit", "P-Value", "Q-Value",
		"N (A)", "N (B)",
	}
	if err := writeRow(f, sheet, 1, headers); err != nil {
		return err
	}

	for i, r := range results {
		row := []interface{}{
			string(r.Test), r.GroupColumn, r.GroupA, r.GroupB, string(r.Metric),
			cellFloat(r.Statistic), cellFloat(r.EffectSize), r.EffectUnit,
			cellFloat(r.PValue), cellFloat(r.QValue),
			r.SampleSizeA, r.SampleSizeB,
		}
		if err := writeValues(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func (w *ReportWriter) writeMetricsSheet(f *excelize.File, metrics map[string][]stats.CohortMetrics) error {
	const sheet = "Cohort Metrics"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	headers := []string{"Group Column", "Group", "N", "Claim Frequency", "Claim Severity", "Margin"}
	if err := writeRow(f, sheet, 1, headers); err != nil {
		return err
	}

	columns := make([]string, 0, len(metrics))
	for column := range metrics {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	rowNum := 2
	for _, column := range columns {
		for _, m := range metrics[column] {
			row := []interface{}{
				column, m.Group, m.SampleSize,
				cellFloat(m.ClaimFrequency), cellFloat(m.ClaimSeverity), cellFloat(m.Margin),
			}
			if err := writeValues(f, sheet, rowNum, row); err != nil {
				return err
			}
			rowNum++
		}
	}
	return nil
}

func (w *ReportWriter) writeDescriptivesSheet(f *excelize.File, summaries []eda.ColumnSummary) error {
	const sheet = "Descriptives"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	headers := []string{"Column", "Count", "Mean", "Std Dev", "Min", "Q25", "Median", "Q75", "Max"}
	if err := writeRow(f, sheet, 1, headers); err != nil {
		return err
	}

	for i, s := range summaries {
		row := []interface{}{
			s.Column, s.Count,
			cellFloat(s.Mean), cellFloat(s.StdDev), cellFloat(s.Min),
			cellFloat(s.Q25), cellFloat(s.Median), cellFloat(s.Q75), cellFloat(s.Max),
		}
		if err := writeValues(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, headers []string) error {
	values := make([]interface{}, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	return writeValues(f, sheet, rowNum, values)
}

func writeValues(f *excelize.File, sheet string, rowNum int, values []interface{}) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
		if err != nil {
			return fmt.Errorf("failed to resolve cell coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to write cell %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

// cellFloat keeps NaN out of the workbook; excelize cannot encode it.
func cellFloat(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return v
}
