package cleaning

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"claimscope/adapters/flatfile"
	"claimscope/domain/policy"
)

// transactionMonthLayouts are the date shapes seen in the raw file.
var transactionMonthLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	time.RFC3339,
}

// ParseTransactionMonth parses a transaction month cell, trying each known
// layout. Returns false for missing or unparseable values.
func ParseTransactionMonth(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range transactionMonthLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DropDuplicatesRule removes exact duplicate rows, keeping the first.
type DropDuplicatesRule struct{}

func (r *DropDuplicatesRule) Name() string { return "drop_duplicates" }

func (r *DropDuplicatesRule) Apply(table *flatfile.Table, report *Report) error {
	seen := make(map[string]struct{}, table.Len())
	dropped := table.DropRows(func(row int) bool {
		key := strings.Join(table.Rows[row], "\x1f")
		if _, dup := seen[key]; dup {
			return true
		}
		seen[key] = struct{}{}
		return false
	})
	report.add(RuleReport{Rule: r.Name(), RowsDropped: dropped})
	return nil
}

// MapTermFrequencyRule adds a numeric terms-per-year column derived from
// the Monthly/Annual term frequency labels.
type MapTermFrequencyRule struct{}

func (r *MapTermFrequencyRule) Name() string { return "map_term_frequency" }

func (r *MapTermFrequencyRule) Apply(table *flatfile.Table, report *Report) error {
	if !table.HasColumn(policy.ColTermFrequency) {
		report.add(RuleReport{Rule: r.Name(), Detail: "termfrequency column absent, skipped"})
		return nil
	}
	values := make([]string, table.Len())
	mapped := 0
	for row := range table.Rows {
		if terms, ok := policy.TermFrequencyMap[table.Cell(row, policy.ColTermFrequency)]; ok {
			values[row] = strconv.Itoa(terms)
			mapped++
		}
	}
	table.AddColumn(policy.ColTermFrequencyMapped, values)
	report.add(RuleReport{Rule: r.Name(), CellsFilled: mapped})
	return nil
}

// ImputeGenderFromTitleRule fills missing gender from the salutation.
// Rows titled "Dr" with missing gender are dropped as ambiguous, and the
// "Not specified" label counts as missing.
type ImputeGenderFromTitleRule struct{}

func (r *ImputeGenderFromTitleRule) Name() string { return "impute_gender_from_title" }

func (r *ImputeGenderFromTitleRule) Apply(table *flatfile.Table, report *Report) error {
	if !table.HasColumn(policy.ColGender) || !table.HasColumn(policy.ColTitle) {
		report.add(RuleReport{Rule: r.Name(), Detail: "gender or title column absent, skipped"})
		return nil
	}

	for row := range table.Rows {
		if table.Cell(row, policy.ColGender) == "Not specified" {
			table.SetCell(row, policy.ColGender, "")
		}
	}

	dropped := table.DropRows(func(row int) bool {
		return table.Cell(row, policy.ColTitle) == "Dr" && table.IsMissing(row, policy.ColGender)
	})

	filled := 0
	for row := range table.Rows {
		if !table.IsMissing(row, policy.ColGender) {
			continue
		}
		if gender, ok := policy.TitleGenderMap[table.Cell(row, policy.ColTitle)]; ok {
			table.SetCell(row, policy.ColGender, gender)
			filled++
		}
	}
	report.add(RuleReport{Rule: r.Name(), RowsDropped: dropped, CellsFilled: filled})
	return nil
}

// DropMissingNewVehicleRule drops rows without the NewVehicle flag.
type DropMissingNewVehicleRule struct{}

func (r *DropMissingNewVehicleRule) Name() string { return "drop_missing_new_vehicle" }

func (r *DropMissingNewVehicleRule) Apply(table *flatfile.Table, report *Report) error {
	if !table.HasColumn(policy.ColNewVehicle) {
		report.add(RuleReport{Rule: r.Name(), Detail: "newvehicle column absent, skipped"})
		return nil
	}
	dropped := table.DropRows(func(row int) bool {
		return table.IsMissing(row, policy.ColNewVehicle)
	})
	report.add(RuleReport{Rule: r.Name(), RowsDropped: dropped})
	return nil
}

// DropMissingVehicleInfoRule drops rows missing any high-impact vehicle
// column needed for cohort comparisons.
type DropMissingVehicleInfoRule struct{}

func (r *DropMissingVehicleInfoRule) Name() string { return "drop_missing_vehicle_info" }

func (r *DropMissingVehicleInfoRule) Apply(table *flatfile.Table, report *Report) error {
	var missing []string
	for _, col := range policy.RequiredVehicleColumns {
		if !table.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		report.add(RuleReport{Rule: r.Name(),
			Detail: fmt.Sprintf("columns absent, skipped: %v", missing)})
		return nil
	}

	dropped := table.DropRows(func(row int) bool {
		for _, col := range policy.RequiredVehicleColumns {
			if table.IsMissing(row, col) {
				return true
			}
		}
		return false
	})
	report.add(RuleReport{Rule: r.Name(), RowsDropped: dropped})
	return nil
}

// DropSparseColumnsRule removes columns too sparse to impute defensibly.
type DropSparseColumnsRule struct{}

func (r *DropSparseColumnsRule) Name() string { return "drop_sparse_columns" }

func (r *DropSparseColumnsRule) Apply(table *flatfile.Table, report *Report) error {
	dropped := table.DropColumns(policy.SparseColumns...)
	report.add(RuleReport{Rule: r.Name(), ColsDropped: dropped})
	return nil
}

// FillRemainingMissingRule handles the manageable gaps: bank gets a
// sentinel label, account type gets the mode, capital outstanding gets 0.
type FillRemainingMissingRule struct{}

func (r *FillRemainingMissingRule) Name() string { return "fill_remaining_missing" }

func (r *FillRemainingMissingRule) Apply(table *flatfile.Table, report *Report) error {
	filled := 0
	filled += fillMissingWith(table, policy.ColBank, "Unknown")

	if table.HasColumn(policy.ColAccountType) {
		if mode := columnMode(table, policy.ColAccountType); mode != "" {
			filled += fillMissingWith(table, policy.ColAccountType, mode)
		}
	}

	filled += fillMissingWith(table, policy.ColCapitalOutstanding, "0")
	report.add(RuleReport{Rule: r.Name(), CellsFilled: filled})
	return nil
}

func fillMissingWith(table *flatfile.Table, col, value string) int {
	if !table.HasColumn(col) {
		return 0
	}
	filled := 0
	for row := range table.Rows {
		if table.IsMissing(row, col) {
			table.SetCell(row, col, value)
			filled++
		}
	}
	return filled
}

// columnMode returns the most frequent non-missing value of a column.
func columnMode(table *flatfile.Table, col string) string {
	counts := make(map[string]int)
	for row := range table.Rows {
		if v := table.Cell(row, col); v != "" {
			counts[v]++
		}
	}
	mode, best := "", 0
	for v, n := range counts {
		if n > best || (n == best && v < mode) {
			mode, best = v, n
		}
	}
	return mode
}

// ImputeTotalPremiumRule recomputes zero premiums from the calculated
// per-term premium. VAT-registered policies carry VAT-inclusive per-term
// premiums, so those are divided by 1 + VATRate first. Only rows whose
// transaction month parses and whose term frequency is a known label are
// touched.
type ImputeTotalPremiumRule struct{}

func (r *ImputeTotalPremiumRule) Name() string { return "impute_total_premium" }

func (r *ImputeTotalPremiumRule) Apply(table *flatfile.Table, report *Report) error {
	required := []string{
		policy.ColTotalPremium, policy.ColCalculatedPremiumPerTerm,
		policy.ColTermFrequency, policy.ColTransactionMonth, policy.ColIsVATRegistered,
	}
	for _, col := range required {
		if !table.HasColumn(col) {
			report.add(RuleReport{Rule: r.Name(),
				Detail: fmt.Sprintf("column %s absent, skipped", col)})
			return nil
		}
	}

	filled := 0
	remaining := 0
	for row := range table.Rows {
		premium, ok := table.Float(row, policy.ColTotalPremium)
		if !ok || premium != 0 {
			continue
		}
		_, validTerm := policy.TermFrequencyMap[table.Cell(row, policy.ColTermFrequency)]
		_, validMonth := ParseTransactionMonth(table.Cell(row, policy.ColTransactionMonth))
		perTerm, validPerTerm := table.Float(row, policy.ColCalculatedPremiumPerTerm)
		if !validTerm || !validMonth || !validPerTerm {
			remaining++
			continue
		}

		adjusted := perTerm
		if vat, ok := table.Bool(row, policy.ColIsVATRegistered); ok && vat {
			adjusted = perTerm / (1 + policy.VATRate)
		}
		if adjusted == 0 {
			remaining++
			continue
		}
		table.SetCell(row, policy.ColTotalPremium, strconv.FormatFloat(adjusted, 'f', -1, 64))
		filled++
	}
	report.add(RuleReport{Rule: r.Name(), CellsFilled: filled,
		Detail: fmt.Sprintf("%d zero-premium rows not imputable", remaining)})
	return nil
}
