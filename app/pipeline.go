// Package app orchestrates the analysis pipeline: load, clean, describe,
// plot, test, export.
package app

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"claimscope/adapters/excel"
	"claimscope/adapters/flatfile"
	"claimscope/adapters/postgres"
	"claimscope/domain/core"
	"claimscope/domain/policy"
	"claimscope/internal"
	"claimscope/internal/battery"
	"claimscope/internal/cleaning"
	"claimscope/internal/config"
	"claimscope/internal/eda"
	"claimscope/internal/errors"
	"claimscope/internal/plots"
	"claimscope/internal/report"

	"golang.org/x/sync/errgroup"
)

// Pipeline wires the full analysis flow together. The repository is
// optional; a nil repo disables persistence.
type Pipeline struct {
	cfg    *config.Config
	logger *internal.Logger
	repo   *postgres.ResultsRepository
}

// NewPipeline creates a pipeline from configuration.
func NewPipeline(cfg *config.Config, logger *internal.Logger, repo *postgres.ResultsRepository) *Pipeline {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Pipeline{cfg: cfg, logger: logger, repo: repo}
}

// RunResult bundles everything one pipeline run produced.
type RunResult struct {
	RunID            core.RunID
	SnapshotID       core.SnapshotID
	Table            *flatfile.Table
	CleanReport      *cleaning.Report
	Summaries        []eda.ColumnSummary
	Outliers         []eda.OutlierSummary
	OverallLossRatio float64
	LossByProvince   []eda.LossRatioRow
	Trends           []eda.MonthlyTrend
	Battery          *battery.Outcome
	ReportPath       string
}

// Run executes the complete pipeline and writes every artifact.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	runID := core.RunID(core.NewID())
	p.logger.Info("Starting analysis run %s on %s", runID, p.cfg.Paths.InputFile)

	table, cleanReport, err := p.LoadAndClean()
	if err != nil {
		return nil, err
	}

	snapshotID := core.SnapshotID(core.NewID())
	cleanPath := filepath.Join(p.cfg.Paths.ProcessedDir, "clean_data.csv")
	if err := flatfile.WriteTableCSV(table, cleanPath); err != nil {
		return nil, errors.Wrap(err, "failed to write cleaned snapshot")
	}
	p.logger.Info("Cleaned snapshot %s written to %s", snapshotID, cleanPath)

	result := &RunResult{RunID: runID, SnapshotID: snapshotID, Table: table, CleanReport: cleanReport}
	if err := p.analyze(table, result); err != nil {
		return nil, err
	}

	if err := p.renderPlots(ctx, table, result); err != nil {
		// Plots are best-effort; a bad column must not sink the run.
		p.logger.Warn("Plot rendering incomplete: %v", err)
	}

	outcome, err := p.runBattery(table)
	if err != nil {
		return nil, err
	}
	result.Battery = outcome

	if err := p.export(ctx, result); err != nil {
		return nil, err
	}

	p.logger.Info("Run %s complete: %d tests, %d skipped", runID, len(outcome.Results), len(outcome.Skipped))
	return result, nil
}

// LoadAndClean reads the raw file and applies the cleaning rules.
func (p *Pipeline) LoadAndClean() (*flatfile.Table, *cleaning.Report, error) {
	reader := flatfile.NewDataReader(p.cfg.Paths.InputFile)
	table, err := reader.Read()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load input file")
	}
	p.logger.Info("Loaded %d rows, %d columns", table.Len(), len(table.Headers))

	cleaner := cleaning.NewCleaner(p.logger)
	cleanReport, err := cleaner.Clean(table)
	if err != nil {
		return nil, nil, errors.Wrap(err, "cleaning failed")
	}
	return table, cleanReport, nil
}

// analyze fills the EDA section of the result.
func (p *Pipeline) analyze(table *flatfile.Table, result *RunResult) error {
	result.Summaries = eda.Summarize(table)
	for _, s := range result.Summaries {
		outliers := eda.DetectOutliers(s.Column, table.FloatColumn(s.Column))
		result.Outliers = append(result.Outliers, outliers)
		if outliers.Count > 0 {
			p.logger.Debug("Column %s: %d IQR outliers outside [%.4g, %.4g]",
				s.Column, outliers.Count, outliers.LowerFence, outliers.UpperFence)
		}
	}

	lossRatio, err := eda.OverallLossRatio(table)
	if err != nil {
		return errors.Wrap(err, "loss ratio computation failed")
	}
	result.OverallLossRatio = lossRatio
	p.logger.Info("Portfolio loss ratio: %.4f", lossRatio)

	if table.HasColumn(policy.ColProvince) {
		byProvince, err := eda.LossRatioBy(table, policy.ColProvince)
		if err != nil {
			return errors.Wrap(err, "province loss ratio failed")
		}
		result.LossByProvince = byProvince
	}

	trends, err := eda.TemporalTrends(table)
	if err != nil {
		p.logger.Warn("Temporal trends unavailable: %v", err)
	} else {
		result.Trends = trends
	}
	return nil
}

// renderPlots fans the chart renders out over a worker group.
func (p *Pipeline) renderPlots(ctx context.Context, table *flatfile.Table, result *RunResult) error {
	renderer, err := plots.NewRenderer(p.cfg.Paths.PlotsDir)
	if err != nil {
		return err
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, col := range []string{policy.ColTotalPremium, policy.ColTotalClaims, policy.ColSumInsured} {
		col := col
		g.Go(func() error { return renderer.Histogram(col, table.FloatColumn(col)) })
	}

	if len(result.LossByProvince) > 0 {
		g.Go(func() error { return renderer.LossRatioBar(policy.ColProvince, result.LossByProvince) })
	}
	if table.HasColumn(policy.ColVehicleType) {
		g.Go(func() error {
			byType, err := eda.LossRatioBy(table, policy.ColVehicleType)
			if err != nil {
				return err
			}
			return renderer.LossRatioBar(policy.ColVehicleType, byType)
		})
		g.Go(func() error {
			return renderer.BoxPlots("Claims by Vehicle Type", "Total Claims", "claims_vehicletype.png",
				groupedValues(table, policy.ColVehicleType, policy.ColTotalClaims))
		})
	}
	if len(result.Trends) > 0 {
		g.Go(func() error { return renderer.TemporalTrends(result.Trends) })
	}
	g.Go(func() error {
		matrix, err := eda.Correlations(table, policy.NumericSummaryColumns)
		if err != nil {
			return err
		}
		return renderer.CorrelationHeatMap(matrix)
	})

	return g.Wait()
}

// groupedValues collects one numeric column per category level.
func groupedValues(table *flatfile.Table, groupCol, valueCol string) []plots.BoxGroup {
	byGroup := make(map[string][]float64)
	for row := 0; row < table.Len(); row++ {
		label := table.Cell(row, groupCol)
		if label == "" {
			continue
		}
		if v, ok := table.Float(row, valueCol); ok {
			byGroup[label] = append(byGroup[label], v)
		}
	}
	groups := make([]plots.BoxGroup, 0, len(byGroup))
	for label, values := range byGroup {
		groups = append(groups, plots.BoxGroup{Label: label, Values: values})
	}
	sortBoxGroups(groups)
	return groups
}

func sortBoxGroups(groups []plots.BoxGroup) {
	for i := 1; i < len(groups); i++ {
		for j := i; j > 0 && groups[j].Label < groups[j-1].Label; j-- {
			groups[j], groups[j-1] = groups[j-1], groups[j]
		}
	}
}

// runBattery executes the hypothesis battery and logs the balance checks.
func (p *Pipeline) runBattery(table *flatfile.Table) (*battery.Outcome, error) {
	b, err := battery.New(table, p.cfg.Battery, p.logger)
	if err != nil {
		return nil, err
	}
	outcome := b.Run()

	balance := b.CheckGroupEquivalence(policy.ColProvince, battery.ProvinceA, battery.ProvinceB,
		[]string{policy.ColSumInsured, policy.ColVehicleType, policy.ColRegistrationYear})
	for _, check := range balance {
		p.logger.Info("Balance check %s vs %s on %s (%s): p=%.4f",
			battery.ProvinceA, battery.ProvinceB, check.Column, check.Test, check.PValue)
	}
	return outcome, nil
}

// export writes the CSV, workbook and markdown artifacts and persists the
// run when a repository is configured.
func (p *Pipeline) export(ctx context.Context, result *RunResult) error {
	resultsPath := filepath.Join(p.cfg.Paths.ReportsDir, "hypothesis_test_results.csv")
	if err := flatfile.WriteResultsCSV(result.Battery.Results, resultsPath); err != nil {
		return errors.Wrap(err, "failed to write results CSV")
	}

	workbook := excel.NewReportWriter(filepath.Join(p.cfg.Paths.ReportsDir, "results.xlsx"))
	err := workbook.Write(excel.WorkbookInput{
		Results:   result.Battery.Results,
		Metrics:   result.Battery.Metrics,
		Summaries: result.Summaries,
	})
	if err != nil {
		return errors.Wrap(err, "failed to write workbook")
	}

	md := report.BuildMarkdown(report.Input{
		RunID:            result.RunID.String(),
		GeneratedAt:      time.Now().UTC(),
		CleanReport:      result.CleanReport,
		Summaries:        result.Summaries,
		OverallLossRatio: result.OverallLossRatio,
		LossByProvince:   result.LossByProvince,
		Trends:           result.Trends,
		Battery:          result.Battery,
		Alpha:            p.cfg.Battery.Alpha,
	})
	reportPath := filepath.Join(p.cfg.Paths.ReportsDir, "report.md")
	if err := os.WriteFile(reportPath, []byte(md), 0o644); err != nil {
		return errors.Wrap(err, "failed to write markdown report")
	}
	result.ReportPath = reportPath
	p.logger.Info("Report written to %s", reportPath)

	if p.repo == nil {
		return nil
	}
	run := postgres.RunRecord{
		ID:         result.RunID,
		SourceFile: p.cfg.Paths.InputFile,
		RawRows:    result.CleanReport.InitialRows,
		CleanRows:  result.CleanReport.FinalRows,
		Alpha:      p.cfg.Battery.Alpha,
		CreatedAt:  time.Now().UTC(),
	}
	if err := p.repo.SaveRun(ctx, run); err != nil {
		return errors.Wrap(err, "failed to persist run")
	}
	if err := p.repo.SaveResults(ctx, result.RunID, result.Battery.Results); err != nil {
		return errors.Wrap(err, "failed to persist test results")
	}
	p.logger.Info("Run %s persisted with %d results", result.RunID, len(result.Battery.Results))
	return nil
}
