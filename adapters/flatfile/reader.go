package flatfile

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"claimscope/domain/policy"
	"claimscope/internal"

	"github.com/xuri/excelize/v2"
)

// delimiterCandidates are scored during detection, in priority order.
var delimiterCandidates = []rune{',', '\t', '|', ';', ' '}

// DataReader handles reading delimited text, CSV and Excel rating files.
type DataReader struct {
	filePath  string
	fileType  string // "xlsx", "csv" or "txt"
	delimiter rune
	logger    *internal.Logger
}

// NewDataReader creates a reader for the given file. The extension picks
// the parse mode: .xlsx goes through excelize, .csv forces a comma, and
// anything else runs delimiter detection.
func NewDataReader(filePath string) *DataReader {
	fileType := "txt"
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".xlsx":
		fileType = "xlsx"
	case ".csv":
		fileType = "csv"
	}
	return &DataReader{
		filePath: filePath,
		fileType: fileType,
		logger:   internal.DefaultLogger,
	}
}

// DetectDelimiter scores each candidate over the first sampleLines lines
// and returns the one producing the most fields. Mirrors how the rating
// file ships with inconsistent export settings.
func (r *DataReader) DetectDelimiter(sampleLines int) (rune, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", r.filePath, err)
	}
	defer file.Close()

	scores := make(map[rune]int, len(delimiterCandidates))
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for i := 0; i < sampleLines && scanner.Scan(); i++ {
		line := strings.TrimSpace(scanner.Text())
		for _, d := range delimiterCandidates {
			scores[d] += len(strings.Split(line, string(d)))
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to sample %s: %w", r.filePath, err)
	}

	best := delimiterCandidates[0]
	for _, d := range delimiterCandidates[1:] {
		if scores[d] > scores[best] {
			best = d
		}
	}
	r.logger.Info("Detected delimiter: %q", string(best))
	return best, nil
}

// Read loads the file into a Table with normalized headers and NA tokens
// collapsed to missing.
func (r *DataReader) Read() (*Table, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "xlsx":
		rows, err = r.readExcelRows()
	case "csv":
		r.delimiter = ','
		rows, err = r.readDelimitedRows(',')
	default:
		if r.delimiter == 0 {
			r.delimiter, err = r.DetectDelimiter(10)
			if err != nil {
				return nil, err
			}
		}
		rows, err = r.readDelimitedRows(r.delimiter)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s must have at least a header row and one data row", r.filePath)
	}

	table := r.processRows(rows)
	r.validateColumns(table)
	r.logger.Info("Data loaded from %s: %d rows, %d columns", r.filePath, table.Len(), len(table.Headers))
	return table, nil
}

func (r *DataReader) readDelimitedRows(delimiter rune) ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1 // ragged rows are handled downstream
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read delimited file: %w", err)
	}
	return rows, nil
}

func (r *DataReader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	if err != nil {
		return nil, fmt.Errorf("failed to read Sheet1: %w", err)
	}
	return rows, nil
}

// processRows normalizes headers and cells into a Table.
func (r *DataReader) processRows(rows [][]string) *Table {
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = policy.NormalizeColumn(h)
	}

	dataRows := make([][]string, 0, len(rows)-1)
	for _, raw := range rows[1:] {
		row := make([]string, len(headers))
		for i := range headers {
			if i < len(raw) {
				row[i] = normalizeCell(raw[i])
			}
		}
		dataRows = append(dataRows, row)
	}
	return NewTable(headers, dataRows)
}

// validateColumns warns about expected columns absent from the file.
func (r *DataReader) validateColumns(table *Table) {
	var missing []string
	for _, col := range policy.ExpectedColumns {
		if !table.HasColumn(policy.NormalizeColumn(col)) {
			missing = append(missing, policy.NormalizeColumn(col))
		}
	}
	if len(missing) > 0 {
		r.logger.Warn("Missing columns: %v", missing)
	}
}
