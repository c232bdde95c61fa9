// Package cleaning applies the ordered imputation and row-drop rules that
// turn the raw rating file into the cleaned analysis snapshot.
package cleaning

import (
	"claimscope/adapters/flatfile"
	"claimscope/internal"
	"claimscope/internal/errors"
)

// Rule is one named cleaning step. Rules mutate the table in place and
// report what they changed.
type Rule interface {
	Name() string
	Apply(table *flatfile.Table, report *Report) error
}

// RuleReport records what a single rule did.
type RuleReport struct {
	Rule        string `json:"rule"`
	RowsDropped int    `json:"rows_dropped,omitempty"`
	CellsFilled int    `json:"cells_filled,omitempty"`
	ColsDropped int    `json:"cols_dropped,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// Report aggregates per-rule outcomes for the whole pipeline.
type Report struct {
	InitialRows int          `json:"initial_rows"`
	FinalRows   int          `json:"final_rows"`
	Rules       []RuleReport `json:"rules"`
}

func (r *Report) add(rr RuleReport) {
	r.Rules = append(r.Rules, rr)
}

// Cleaner runs the fixed rule sequence. Order matters: gender imputation
// must precede the gender-dependent battery, premium imputation must run
// after incomplete rows are gone.
type Cleaner struct {
	rules  []Rule
	logger *internal.Logger
}

// NewCleaner builds the default rule pipeline.
func NewCleaner(logger *internal.Logger) *Cleaner {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Cleaner{
		logger: logger,
		rules: []Rule{
			&DropDuplicatesRule{},
			&MapTermFrequencyRule{},
			&ImputeGenderFromTitleRule{},
			&DropMissingNewVehicleRule{},
			&DropMissingVehicleInfoRule{},
			&DropSparseColumnsRule{},
			&FillRemainingMissingRule{},
			&ImputeTotalPremiumRule{},
		},
	}
}

// Clean applies every rule in order and returns the report.
func (c *Cleaner) Clean(table *flatfile.Table) (*Report, error) {
	if table == nil || table.Len() == 0 {
		return nil, errors.InvalidInput("no data loaded")
	}

	report := &Report{InitialRows: table.Len()}
	for _, rule := range c.rules {
		before := table.Len()
		if err := rule.Apply(table, report); err != nil {
			return report, errors.Wrapf(err, "cleaning rule %s failed", rule.Name())
		}
		c.logger.Debug("Rule %s: %d -> %d rows", rule.Name(), before, table.Len())
	}
	report.FinalRows = table.Len()
	c.logger.Info("Cleaning complete: %d -> %d rows across %d rules",
		report.InitialRows, report.FinalRows, len(c.rules))
	return report, nil
}
