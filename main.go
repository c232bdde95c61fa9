package main

import (
	"context"
	"log"
	"os"

	"claimscope/adapters/postgres"
	"claimscope/app"
	"claimscope/internal"
	"claimscope/internal/config"
	"claimscope/ui"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if present (ignore errors for production deployments)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewDefaultLogger()
	ctx := context.Background()

	repo, cleanup, err := initRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("Database initialization failed: %v", err)
		os.Exit(1)
	}
	defer cleanup()

	pipeline := app.NewPipeline(cfg, logger, repo)
	result, err := pipeline.Run(ctx)
	if err != nil {
		logger.Error("Pipeline failed: %v", err)
		os.Exit(1)
	}

	server := ui.NewServer(cfg, logger, result.Battery.Results)
	if err := server.Run(); err != nil {
		logger.Error("Report server stopped: %v", err)
		os.Exit(1)
	}
}

// initRepository connects the optional results sink. An empty
// DATABASE_URL runs the pipeline without persistence.
func initRepository(ctx context.Context, cfg *config.Config, logger *internal.Logger) (*postgres.ResultsRepository, func(), error) {
	if cfg.Database.URL == "" {
		logger.Info("DATABASE_URL not set, results will not be persisted")
		return nil, func() {}, nil
	}

	db, err := postgres.Connect(cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	repo := postgres.NewResultsRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	logger.Info("Connected to results database")
	return repo, func() { db.Close() }, nil
}
