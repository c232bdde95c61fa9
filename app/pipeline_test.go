package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"claimscope/adapters/flatfile"
	"claimscope/internal/config"
	"claimscope/internal/testkit"
)

func pipelineConfig(t *testing.T, inputFile string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Paths: config.PathConfig{
			InputFile:    inputFile,
			ProcessedDir: filepath.Join(dir, "processed"),
			ReportsDir:   filepath.Join(dir, "reports"),
			PlotsDir:     filepath.Join(dir, "plots"),
		},
		Battery: config.BatteryConfig{
			Alpha:            0.05,
			MinCellCount:     5,
			MinClaimsPerCode: 10,
			RiskTierSize:     10,
		},
	}
}

func writeSyntheticInput(t *testing.T) string {
	t.Helper()
	genCfg := testkit.DefaultGeneratorConfig()
	genCfg.PolicyCount = 6000
	genCfg.PostcodeCount = 40

	table := testkit.NewPolicyGenerator(genCfg).GenerateTable()
	path := filepath.Join(t.TempDir(), "synthetic.csv")
	if err := flatfile.WriteTableCSV(table, path); err != nil {
		t.Fatalf("failed to write synthetic input: %v", err)
	}
	return path
}

func TestPipelineRun(t *testing.T) {
	if testing.Short() {
		t.Skip("full pipeline run")
	}
	cfg := pipelineConfig(t, writeSyntheticInput(t))
	pipeline := NewPipeline(cfg, nil, nil)

	result, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	t.Run("run metadata", func(t *testing.T) {
		if result.RunID == "" {
			t.Error("no run ID assigned")
		}
		if result.SnapshotID == "" {
			t.Error("no snapshot ID assigned")
		}
		if result.CleanReport.FinalRows == 0 || result.CleanReport.FinalRows > result.CleanReport.InitialRows {
			t.Errorf("clean report rows: %d -> %d", result.CleanReport.InitialRows, result.CleanReport.FinalRows)
		}
	})

	t.Run("analysis populated", func(t *testing.T) {
		if len(result.Summaries) == 0 {
			t.Error("no descriptive summaries")
		}
		if result.OverallLossRatio <= 0 {
			t.Errorf("loss ratio = %v", result.OverallLossRatio)
		}
		if len(result.LossByProvince) == 0 {
			t.Error("no province loss ratios")
		}
		if len(result.Trends) == 0 {
			t.Error("no temporal trends")
		}
	})

	t.Run("battery ran", func(t *testing.T) {
		if result.Battery == nil || len(result.Battery.Results) == 0 {
			t.Fatal("no battery results")
		}
		for _, r := range result.Battery.Results {
			if r.FDRMethod != "BH" {
				t.Errorf("%s: missing FDR adjustment", r.Label())
			}
		}
	})

	t.Run("artifacts written", func(t *testing.T) {
		for _, path := range []string{
			filepath.Join(cfg.Paths.ProcessedDir, "clean_data.csv"),
			filepath.Join(cfg.Paths.ReportsDir, "hypothesis_test_results.csv"),
			filepath.Join(cfg.Paths.ReportsDir, "results.xlsx"),
			filepath.Join(cfg.Paths.ReportsDir, "report.md"),
		} {
			info, err := os.Stat(path)
			if err != nil {
				t.Errorf("missing artifact %s: %v", path, err)
				continue
			}
			if info.Size() == 0 {
				t.Errorf("empty artifact %s", path)
			}
		}
	})

	t.Run("plots rendered", func(t *testing.T) {
		entries, err := os.ReadDir(cfg.Paths.PlotsDir)
		if err != nil {
			t.Fatalf("plots dir missing: %v", err)
		}
		if len(entries) == 0 {
			t.Error("no plots rendered")
		}
	})
}

func TestLoadAndClean(t *testing.T) {
	cfg := pipelineConfig(t, writeSyntheticInput(t))
	pipeline := NewPipeline(cfg, nil, nil)

	table, report, err := pipeline.LoadAndClean()
	if err != nil {
		t.Fatalf("LoadAndClean failed: %v", err)
	}
	if table.Len() != report.FinalRows {
		t.Errorf("table rows %d != reported %d", table.Len(), report.FinalRows)
	}
	if report.InitialRows != 6000 {
		t.Errorf("initial rows = %d, want 6000", report.InitialRows)
	}
}

func TestLoadAndCleanMissingFile(t *testing.T) {
	cfg := pipelineConfig(t, "/nonexistent/input.txt")
	pipeline := NewPipeline(cfg, nil, nil)
	if _, _, err := pipeline.LoadAndClean(); err == nil {
		t.Error("expected error for missing input")
	}
}
