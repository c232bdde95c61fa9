package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"claimscope/adapters/flatfile"
	"claimscope/app"
	"claimscope/domain/policy"
	"claimscope/internal"
	"claimscope/internal/battery"
	"claimscope/internal/config"
	"claimscope/internal/eda"
	"claimscope/internal/testkit"
	"claimscope/ui"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "claimscope",
		Short: "Insurance claims EDA and hypothesis-testing pipeline",
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newCleanCmd(),
		newEDACmd(),
		newBatteryCmd(),
		newServeCmd(),
		newGenerateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves configuration, letting --input override the
// INPUT_FILE environment variable.
func loadConfig(input string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if input != "" {
		cfg.Paths.InputFile = input
	}
	return cfg, nil
}

func newRunCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the full pipeline: clean, analyze, plot, test, export",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(input)
			if err != nil {
				return err
			}
			logger := internal.NewDefaultLogger()
			pipeline := app.NewPipeline(cfg, logger, nil)
			result, err := pipeline.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Run %s: %d tests, %d skipped, report at %s\n",
				result.RunID, len(result.Battery.Results), len(result.Battery.Skipped), result.ReportPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Input data file (overrides INPUT_FILE)")
	return cmd
}

func newCleanCmd() *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean the raw input file and write the processed snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(input)
			if err != nil {
				return err
			}
			logger := internal.NewDefaultLogger()
			pipeline := app.NewPipeline(cfg, logger, nil)

			table, report, err := pipeline.LoadAndClean()
			if err != nil {
				return err
			}
			if output == "" {
				output = filepath.Join(cfg.Paths.ProcessedDir, "clean_data.csv")
			}
			if err := flatfile.WriteTableCSV(table, output); err != nil {
				return err
			}
			fmt.Printf("Cleaned %d rows down to %d, written to %s\n",
				report.InitialRows, report.FinalRows, output)
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Input data file (overrides INPUT_FILE)")
	cmd.Flags().StringVar(&output, "output", "", "Cleaned CSV destination")
	return cmd
}

func newEDACmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "eda",
		Short: "Print descriptive statistics and loss-ratio aggregates as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(input)
			if err != nil {
				return err
			}
			logger := internal.NewDefaultLogger()
			pipeline := app.NewPipeline(cfg, logger, nil)

			table, _, err := pipeline.LoadAndClean()
			if err != nil {
				return err
			}

			lossRatio, err := eda.OverallLossRatio(table)
			if err != nil {
				return err
			}
			byProvince, err := eda.LossRatioBy(table, policy.ColProvince)
			if err != nil {
				return err
			}

			return printJSON(map[string]interface{}{
				"summaries":          eda.Summarize(table),
				"overall_loss_ratio": lossRatio,
				"loss_by_province":   byProvince,
			})
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Input data file (overrides INPUT_FILE)")
	return cmd
}

func newBatteryCmd() *cobra.Command {
	var input string
	var alpha float64

	cmd := &cobra.Command{
		Use:   "battery",
		Short: "Run the hypothesis battery and write the results CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(input)
			if err != nil {
				return err
			}
			if alpha > 0 {
				cfg.Battery.Alpha = alpha
			}
			logger := internal.NewDefaultLogger()
			pipeline := app.NewPipeline(cfg, logger, nil)

			table, _, err := pipeline.LoadAndClean()
			if err != nil {
				return err
			}
			b, err := battery.New(table, cfg.Battery, logger)
			if err != nil {
				return err
			}
			outcome := b.Run()

			resultsPath := filepath.Join(cfg.Paths.ReportsDir, "hypothesis_test_results.csv")
			if err := flatfile.WriteResultsCSV(outcome.Results, resultsPath); err != nil {
				return err
			}
			fmt.Printf("%d tests written to %s\n", len(outcome.Results), resultsPath)
			return printJSON(outcome)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Input data file (overrides INPUT_FILE)")
	cmd.Flags().Float64Var(&alpha, "alpha", 0, "Significance level (overrides BATTERY_ALPHA)")
	return cmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the generated report without re-running the pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := internal.NewDefaultLogger()
			server := ui.NewServer(cfg, logger, nil)
			return server.Run()
		},
	}
	return cmd
}

func newGenerateCmd() *cobra.Command {
	var output string
	var rows int
	var seed int64

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic policy dataset with planted cohort effects",
		RunE: func(cmd *cobra.Command, args []string) error {
			genCfg := testkit.DefaultGeneratorConfig()
			genCfg.PolicyCount = rows
			genCfg.Seed = seed

			table := testkit.NewPolicyGenerator(genCfg).GenerateTable()
			if err := flatfile.WriteTableCSV(table, output); err != nil {
				return err
			}
			fmt.Printf("%d synthetic policies written to %s\n", table.Len(), output)
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", "data/raw/synthetic_policies.csv", "Destination CSV")
	cmd.Flags().IntVar(&rows, "rows", 5000, "Number of policy rows")
	cmd.Flags().Int64Var(&seed, "seed", 42, "RNG seed (deterministic)")
	return cmd
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
