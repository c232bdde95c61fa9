package cleaning

import (
	"testing"

	"claimscope/adapters/flatfile"
	"claimscope/domain/policy"
)

func newTestTable(headers []string, rows [][]string) *flatfile.Table {
	return flatfile.NewTable(headers, rows)
}

func TestDropDuplicatesRule(t *testing.T) {
	table := newTestTable([]string{"a", "b"}, [][]string{
		{"1", "x"},
		{"1", "x"},
		{"2", "y"},
		{"1", "x"},
	})
	report := &Report{}
	rule := &DropDuplicatesRule{}
	if err := rule.Apply(table, report); err != nil {
		t.Fatalf("rule failed: %v", err)
	}
	if table.Len() != 2 {
		t.Errorf("rows = %d, want 2", table.Len())
	}
	if report.Rules[0].RowsDropped != 2 {
		t.Errorf("dropped = %d, want 2", report.Rules[0].RowsDropped)
	}
}

func TestMapTermFrequencyRule(t *testing.T) {
	table := newTestTable([]string{policy.ColTermFrequency}, [][]string{
		{"Monthly"},
		{"Annual"},
		{"Weekly"},
		{""},
	})
	report := &Report{}
	rule := &MapTermFrequencyRule{}
	if err := rule.Apply(table, report); err != nil {
		t.Fatalf("rule failed: %v", err)
	}
	if !table.HasColumn(policy.ColTermFrequencyMapped) {
		t.Fatal("mapped column not added")
	}

	cases := []struct {
		row  int
		want string
	}{
		{0, "12"},
		{1, "1"},
		{2, ""},
		{3, ""},
	}
	for _, tc := range cases {
		if got := table.Cell(tc.row, policy.ColTermFrequencyMapped); got != tc.want {
			t.Errorf("row %d mapped = %q, want %q", tc.row, got, tc.want)
		}
	}
}

func TestImputeGenderFromTitleRule(t *testing.T) {
	headers := []string{policy.ColTitle, policy.ColGender}
	table := newTestTable(headers, [][]string{
		{"Mr", ""},
		{"Mrs", ""},
		{"Ms", "Not specified"},
		{"Miss", ""},
		{"Dr", ""},
		{"Dr", "Male"},
		{"Mr", "Female"}, // explicit label wins over the title
	})
	report := &Report{}
	rule := &ImputeGenderFromTitleRule{}
	if err := rule.Apply(table, report); err != nil {
		t.Fatalf("rule failed: %v", err)
	}

	if table.Len() != 6 {
		t.Fatalf("rows = %d, want 6 (ambiguous Dr dropped)", table.Len())
	}

	want := []string{"Male", "Female", "Female", "Female", "Male", "Female"}
	for row, expected := range want {
		if got := table.Cell(row, policy.ColGender); got != expected {
			t.Errorf("row %d gender = %q, want %q", row, got, expected)
		}
	}
	if report.Rules[0].RowsDropped != 1 {
		t.Errorf("dropped = %d, want 1", report.Rules[0].RowsDropped)
	}
	if report.Rules[0].CellsFilled != 4 {
		t.Errorf("filled = %d, want 4", report.Rules[0].CellsFilled)
	}
}

func TestDropMissingNewVehicleRule(t *testing.T) {
	table := newTestTable([]string{policy.ColNewVehicle}, [][]string{
		{"true"},
		{""},
		{"false"},
	})
	report := &Report{}
	rule := &DropMissingNewVehicleRule{}
	if err := rule.Apply(table, report); err != nil {
		t.Fatalf("rule failed: %v", err)
	}
	if table.Len() != 2 {
		t.Errorf("rows = %d, want 2", table.Len())
	}
}

func TestDropMissingVehicleInfoRule(t *testing.T) {
	headers := append([]string{}, policy.RequiredVehicleColumns...)
	complete := make([]string, len(headers))
	for i := range complete {
		complete[i] = "v"
	}
	incomplete := append([]string{}, complete...)
	incomplete[3] = ""

	table := newTestTable(headers, [][]string{complete, incomplete})
	report := &Report{}
	rule := &DropMissingVehicleInfoRule{}
	if err := rule.Apply(table, report); err != nil {
		t.Fatalf("rule failed: %v", err)
	}
	if table.Len() != 1 {
		t.Errorf("rows = %d, want 1", table.Len())
	}

	t.Run("skips when columns absent", func(t *testing.T) {
		partial := newTestTable([]string{"make"}, [][]string{{"TOYOTA"}})
		report := &Report{}
		if err := rule.Apply(partial, report); err != nil {
			t.Fatalf("rule failed: %v", err)
		}
		if partial.Len() != 1 {
			t.Error("rule dropped rows despite missing columns")
		}
		if report.Rules[0].Detail == "" {
			t.Error("expected a skip detail")
		}
	})
}

func TestDropSparseColumnsRule(t *testing.T) {
	headers := append([]string{"keep"}, policy.SparseColumns...)
	row := make([]string, len(headers))
	table := newTestTable(headers, [][]string{row})

	report := &Report{}
	rule := &DropSparseColumnsRule{}
	if err := rule.Apply(table, report); err != nil {
		t.Fatalf("rule failed: %v", err)
	}
	if len(table.Headers) != 1 || table.Headers[0] != "keep" {
		t.Errorf("headers after drop = %v", table.Headers)
	}
	if report.Rules[0].ColsDropped != len(policy.SparseColumns) {
		t.Errorf("cols dropped = %d, want %d", report.Rules[0].ColsDropped, len(policy.SparseColumns))
	}
}

func TestFillRemainingMissingRule(t *testing.T) {
	headers := []string{policy.ColBank, policy.ColAccountType, policy.ColCapitalOutstanding}
	table := newTestTable(headers, [][]string{
		{"", "Current account", ""},
		{"ABSA", "Current account", "100"},
		{"ABSA", "", "200"},
		{"ABSA", "Savings account", "300"},
	})
	report := &Report{}
	rule := &FillRemainingMissingRule{}
	if err := rule.Apply(table, report); err != nil {
		t.Fatalf("rule failed: %v", err)
	}

	if got := table.Cell(0, policy.ColBank); got != "Unknown" {
		t.Errorf("bank = %q, want Unknown", got)
	}
	if got := table.Cell(2, policy.ColAccountType); got != "Current account" {
		t.Errorf("account type = %q, want mode Current account", got)
	}
	if got := table.Cell(0, policy.ColCapitalOutstanding); got != "0" {
		t.Errorf("capital outstanding = %q, want 0", got)
	}
	if report.Rules[0].CellsFilled != 3 {
		t.Errorf("filled = %d, want 3", report.Rules[0].CellsFilled)
	}
}

func TestImputeTotalPremiumRule(t *testing.T) {
	headers := []string{
		policy.ColTotalPremium, policy.ColCalculatedPremiumPerTerm,
		policy.ColTermFrequency, policy.ColTransactionMonth, policy.ColIsVATRegistered,
	}
	table := newTestTable(headers, [][]string{
		{"0", "114", "Monthly", "2015-03-01 00:00:00", "true"},  // imputed net of VAT
		{"0", "100", "Annual", "2015-03-01 00:00:00", "false"},  // imputed as-is
		{"0", "100", "Weekly", "2015-03-01 00:00:00", "false"},  // unknown term, untouched
		{"0", "100", "Monthly", "not-a-date", "false"},          // bad month, untouched
		{"50", "100", "Monthly", "2015-03-01 00:00:00", "true"}, // nonzero, untouched
	})
	report := &Report{}
	rule := &ImputeTotalPremiumRule{}
	if err := rule.Apply(table, report); err != nil {
		t.Fatalf("rule failed: %v", err)
	}

	if v, _ := table.Float(0, policy.ColTotalPremium); v != 100 {
		t.Errorf("VAT-registered premium = %v, want 100", v)
	}
	if v, _ := table.Float(1, policy.ColTotalPremium); v != 100 {
		t.Errorf("annual premium = %v, want 100", v)
	}
	if v, _ := table.Float(2, policy.ColTotalPremium); v != 0 {
		t.Errorf("unknown-term premium = %v, want 0", v)
	}
	if v, _ := table.Float(3, policy.ColTotalPremium); v != 0 {
		t.Errorf("bad-month premium = %v, want 0", v)
	}
	if v, _ := table.Float(4, policy.ColTotalPremium); v != 50 {
		t.Errorf("nonzero premium = %v, want 50", v)
	}
	if report.Rules[0].CellsFilled != 2 {
		t.Errorf("filled = %d, want 2", report.Rules[0].CellsFilled)
	}
}

func TestParseTransactionMonth(t *testing.T) {
	cases := []struct {
		raw string
		ok  bool
	}{
		{"2015-03-01 00:00:00", true},
		{"2015-03-01", true},
		{"2015/03/01", true},
		{"2015-03-01T00:00:00Z", true},
		{"March 2015", false},
		{"", false},
	}
	for _, tc := range cases {
		if _, ok := ParseTransactionMonth(tc.raw); ok != tc.ok {
			t.Errorf("ParseTransactionMonth(%q) ok = %v, want %v", tc.raw, ok, tc.ok)
		}
	}
}

func TestCleanerRunsAllRules(t *testing.T) {
	headers := []string{
		policy.ColTitle, policy.ColGender, policy.ColTermFrequency,
		policy.ColNewVehicle, policy.ColBank,
	}
	table := newTestTable(headers, [][]string{
		{"Mr", "", "Monthly", "true", ""},
		{"Mr", "", "Monthly", "true", ""},
		{"Mrs", "", "Annual", "", "ABSA"},
	})

	cleaner := NewCleaner(nil)
	report, err := cleaner.Clean(table)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if report.InitialRows != 3 {
		t.Errorf("initial rows = %d, want 3", report.InitialRows)
	}
	// One duplicate and one missing-newvehicle row go.
	if report.FinalRows != 1 {
		t.Errorf("final rows = %d, want 1", report.FinalRows)
	}
	if len(report.Rules) == 0 {
		t.Error("no rule reports recorded")
	}
	if got := table.Cell(0, policy.ColGender); got != "Male" {
		t.Errorf("gender = %q, want Male", got)
	}
	if got := table.Cell(0, policy.ColBank); got != "Unknown" {
		t.Errorf("bank = %q, want Unknown", got)
	}
}
