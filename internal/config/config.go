package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/veridianlabs/hipaascope/internal/models"
	"github.com/veridianlabs/hipaascope/internal/scoring"
)

// Config holds all configuration for hipaascope
type Config struct {
	// Storage configuration
	StorageDir string `mapstructure:"storage_dir"`

	// Rule catalog file; empty means the builtin catalog
	RulesFile string `mapstructure:"rules_file"`

	// Output format (text, json, both)
	Format string `mapstructure:"format"`

	// Default report audience
	Audience string `mapstructure:"audience"`

	// Number of last runs to analyze
	LastRuns int `mapstructure:"last_runs"`

	// Evaluation worker pool size
	Concurrency int `mapstructure:"concurrency"`

	// Scan timeout in seconds; 0 disables the deadline
	TimeoutSeconds int `mapstructure:"timeout_seconds"`

	// Risk score formula
	Weights scoring.Weights `mapstructure:"weights"`

	// Non-compliance score threshold
	ScoreThreshold float64 `mapstructure:"score_threshold"`

	// Business impact tables
	Impact scoring.ImpactTable `mapstructure:"impact"`

	// Inventory adapter commands executed by scan --exec, e.g.
	// {"gcp": "gcloud asset export ..."}
	Adapters map[string]string `mapstructure:"adapters"`

	// Account metadata attached to scans
	ProjectID string `mapstructure:"project_id"`
	OrgName   string `mapstructure:"org_name"`
	Provider  string `mapstructure:"provider"`

	// Verbose output
	Verbose bool `mapstructure:"verbose"`

	// Debug mode
	Debug bool `mapstructure:"debug"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		StorageDir:     ".hipaascope",
		Format:         "text",
		Audience:       models.AudienceTechnical,
		LastRuns:       7,
		Concurrency:    10,
		TimeoutSeconds: 0,
		Weights:        scoring.DefaultWeights,
		ScoreThreshold: scoring.DefaultThresholds.NonCompliantScore,
		Verbose:        false,
		Debug:          false,
	}
}

// Load loads configuration with the following precedence (lowest to highest):
// 1. Default values
// 2. Config file (~/hipaascope.yaml or ./hipaascope.yaml)
// 3. Environment variables (HIPAASCOPE_*)
// 4. CLI flags (handled by caller)
func Load() (*Config, error) {
	return LoadFromFile("")
}

// LoadFromFile loads configuration from a specific file path
// If path is empty, it searches for config in standard locations
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	defaults := DefaultConfig()
	v.SetDefault("storage_dir", defaults.StorageDir)
	v.SetDefault("rules_file", "")
	v.SetDefault("format", defaults.Format)
	v.SetDefault("audience", defaults.Audience)
	v.SetDefault("last_runs", defaults.LastRuns)
	v.SetDefault("concurrency", defaults.Concurrency)
	v.SetDefault("timeout_seconds", defaults.TimeoutSeconds)
	v.SetDefault("score_threshold", defaults.ScoreThreshold)
	v.SetDefault("weights.critical", defaults.Weights.Critical)
	v.SetDefault("weights.high", defaults.Weights.High)
	v.SetDefault("weights.medium", defaults.Weights.Medium)
	v.SetDefault("weights.low", defaults.Weights.Low)
	v.SetDefault("weights.cap", defaults.Weights.Cap)
	v.SetDefault("verbose", defaults.Verbose)
	v.SetDefault("debug", defaults.Debug)

	// Set config file settings
	v.SetConfigName("hipaascope")
	v.SetConfigType("yaml")

	if configPath != "" {
		// Use explicit config file path
		v.SetConfigFile(configPath)
	} else {
		// Search for config in standard locations
		// 1. Current directory
		v.AddConfigPath(".")

		// 2. Home directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}

		// 3. XDG config directory
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			v.AddConfigPath(filepath.Join(xdgConfig, "hipaascope"))
		}
	}

	// Enable environment variable support
	v.SetEnvPrefix("HIPAASCOPE")
	v.AutomaticEnv()

	// Try to read config file (ignore error if not found)
	if err := v.ReadInConfig(); err != nil {
		// Only return error if it's not a "file not found" error
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	// Unmarshal into config struct
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate format
	validFormats := map[string]bool{
		"text": true,
		"json": true,
		"both": true,
	}
	if !validFormats[c.Format] {
		return fmt.Errorf("invalid format: %s (must be text, json, or both)", c.Format)
	}

	if !models.ValidAudience(c.Audience) {
		return fmt.Errorf("invalid audience: %s", c.Audience)
	}

	// Validate last_runs (must be positive)
	if c.LastRuns <= 0 {
		return fmt.Errorf("last_runs must be positive")
	}

	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}

	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds cannot be negative")
	}

	if c.ScoreThreshold < 0 || c.ScoreThreshold > 100 {
		return fmt.Errorf("score_threshold must be within 0-100")
	}

	if c.Weights.Critical < 0 || c.Weights.High < 0 || c.Weights.Medium < 0 || c.Weights.Low < 0 {
		return fmt.Errorf("weights cannot be negative")
	}

	// Validate storage_dir is not empty
	if c.StorageDir == "" {
		return fmt.Errorf("storage_dir cannot be empty")
	}

	return nil
}

// GetStoragePath returns the absolute path to the storage directory
func (c *Config) GetStoragePath() (string, error) {
	// Expand ~ to home directory
	if len(c.StorageDir) >= 2 && c.StorageDir[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, c.StorageDir[2:]), nil
	}

	// Convert to absolute path
	absPath, err := filepath.Abs(c.StorageDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	return absPath, nil
}

// Thresholds builds the scorer threshold set from config.
func (c *Config) Thresholds() scoring.Thresholds {
	return scoring.Thresholds{NonCompliantScore: c.ScoreThreshold}
}

// Account builds the scan's account metadata from config.
func (c *Config) Account() models.AccountMeta {
	return models.AccountMeta{
		ProjectID: c.ProjectID,
		OrgName:   c.OrgName,
		Provider:  c.Provider,
	}
}

// GenerateSampleConfig generates a sample configuration file content
func GenerateSampleConfig() string {
	return `# hipaascope Configuration
# Save this file as ~/hipaascope.yaml or ./hipaascope.yaml

# Directory to store scan results
storage_dir: .hipaascope

# Rule catalog file; omit to use the builtin HIPAA baseline
# rules_file: rules/hipaa.yaml

# Output format: text, json, or both
format: text

# Default report audience: executive, ciso, cto, board, technical
audience: technical

# Number of last runs to analyze in status/diff commands
last_runs: 7

# Evaluation worker pool size
concurrency: 10

# Scan timeout in seconds; 0 disables the deadline
timeout_seconds: 0

# Risk score formula
weights:
  critical: 25
  high: 10
  medium: 2
  low: 0.5
  cap: 100

# Scores above this are non-compliant even without criticals
score_threshold: 50

# Account metadata attached to scans
# project_id: acme-prod
# org_name: Acme Health
# provider: gcp

# Inventory adapter commands for 'scan --exec'
# adapters:
#   gcp: "gcloud asset search-all-resources --format=json"
`
}
