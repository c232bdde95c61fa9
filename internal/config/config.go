package config

import (
	"os"
	"strconv"

	"claimscope/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Paths    PathConfig
	Battery  BatteryConfig
}

// DatabaseConfig holds the optional results sink settings. An empty URL
// disables persistence entirely.
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// ServerConfig holds report server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// PathConfig holds file system paths for pipeline inputs and outputs
type PathConfig struct {
	InputFile    string
	ProcessedDir string
	ReportsDir   string
	PlotsDir     string
}

// BatteryConfig holds hypothesis battery tuning knobs
type BatteryConfig struct {
	Alpha            float64 // significance level for reporting
	MinCellCount     int     // chi-squared contingency guard
	MinClaimsPerCode int     // postcodes below this claim count are excluded
	RiskTierSize     int     // postcodes per High/Low risk tier
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: DatabaseConfig{
			URL:     os.Getenv("DATABASE_URL"),
			SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
		},
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "release"),
		},
		Paths: PathConfig{
			InputFile:    getEnvOrDefault("INPUT_FILE", "data/raw/MachineLearningRating_v3.txt"),
			ProcessedDir: getEnvOrDefault("PROCESSED_DIR", "data/processed"),
			ReportsDir:   getEnvOrDefault("REPORTS_DIR", "reports"),
			PlotsDir:     getEnvOrDefault("PLOTS_DIR", "plots"),
		},
		Battery: BatteryConfig{
			Alpha:            getEnvFloatOrDefault("BATTERY_ALPHA", 0.05),
			MinCellCount:     getEnvIntOrDefault("BATTERY_MIN_CELL_COUNT", 5),
			MinClaimsPerCode: getEnvIntOrDefault("BATTERY_MIN_CLAIMS_PER_CODE", 10),
			RiskTierSize:     getEnvIntOrDefault("BATTERY_RISK_TIER_SIZE", 170),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config.Paths.InputFile == "" {
		return errors.ConfigInvalid("input file path is required")
	}
	if config.Battery.Alpha <= 0 || config.Battery.Alpha >= 1 {
		return errors.ConfigInvalid("battery alpha must be in (0, 1)")
	}
	if config.Battery.RiskTierSize < 1 {
		return errors.ConfigInvalid("risk tier size must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
