package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/veridianlabs/hipaascope/internal/config"
)

const (
	// Exit codes for CI integration
	ExitOK           = 0 // Success
	ExitGateFail     = 1 // Compliance gate failed
	ExitInvalidInput = 2 // Schema validation or parse error
	ExitRuntimeError = 3 // I/O, permissions, or runtime error
)

var (
	// Global config instance
	cfg *config.Config

	// Global flags
	configFile string
	verbose    bool
	debug      bool

	appVersion = "dev"
)

// SetVersion records the build version shown by the version command.
func SetVersion(v string) {
	if v != "" {
		appVersion = v
	}
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "hipaascope",
	Short: "hipaascope - HIPAA compliance rule evaluation for cloud inventory",
	Long: `hipaascope evaluates cloud asset inventory against a HIPAA Security Rule
catalog and produces audience-specific compliance reports.

It provides:
- Deterministic findings with stable identity across runs
- Risk scoring with configurable severity weights
- Remediation plans and quick-win prioritization
- Trend analysis across stored scan runs
- CI/CD integration with compliance gates and exit codes

Quick start:
  hipaascope init
  hipaascope doctor
  hipaascope scan inventory.json --store
  hipaascope report --audience executive

Other commands:
  hipaascope scan --exec --store
  hipaascope diff
  hipaascope explain-score
  hipaascope validate rules.yaml
  hipaascope browse`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Override config with flags if provided
		if verbose {
			cfg.Verbose = true
		}
		if debug {
			cfg.Debug = true
		}

		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		os.Exit(HandleError(err))
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default: ./hipaascope.yaml or ~/hipaascope.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"debug mode (very verbose)")

	// Add subcommands
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(explainScoreCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hipaascope %s\n", appVersion)
		fmt.Println("HIPAA compliance rule evaluation engine")
	},
}

// HandleError determines the appropriate exit code for an error
func HandleError(err error) int {
	if err == nil {
		return ExitOK
	}

	switch err.(type) {
	case *ValidationError:
		return ExitInvalidInput
	case *GateFailedError:
		return ExitGateFail
	default:
		return ExitRuntimeError
	}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// GateFailedError represents a compliance gate failure
type GateFailedError struct {
	Violations int
}

func (e *GateFailedError) Error() string {
	return fmt.Sprintf("compliance gate failed with %d violation(s)", e.Violations)
}

// buildLogger constructs the zap logger the engine and pipeline use.
// Silent unless --verbose or --debug is set.
func buildLogger() *zap.Logger {
	level := zapcore.ErrorLevel
	if cfg != nil && cfg.Verbose {
		level = zapcore.InfoLevel
	}
	if cfg != nil && cfg.Debug {
		level = zapcore.DebugLevel
	}

	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{"stderr"}
	logger, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// logVerbose prints a message if verbose mode is enabled
func logVerbose(format string, args ...interface{}) {
	if cfg != nil && cfg.Verbose {
		fmt.Fprintf(os.Stderr, "[INFO] "+format+"\n", args...)
	}
}

// logDebug prints a message if debug mode is enabled
func logDebug(format string, args ...interface{}) {
	if cfg != nil && cfg.Debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// logError prints an error message
func logError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[ERROR] "+format+"\n", args...)
}
