// Package runner executes configured inventory-adapter commands and
// captures their JSON snapshots. The engine never reaches the network;
// adapters are external processes whose stdout becomes scan input.
package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DefaultTimeout is the per-adapter execution timeout.
const DefaultTimeout = 5 * time.Minute

// ExecFunc is the signature for running a command and capturing stdout.
// It receives the context, binary path, and args. Returns stdout bytes and error.
type ExecFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// RunConfig describes a single adapter invocation. Command is the full
// command line as configured, e.g. "gcloud asset search-all-resources
// --format=json".
type RunConfig struct {
	Name    string
	Command string
	Timeout time.Duration
}

// RunResult is the outcome of a single adapter invocation.
type RunResult struct {
	Name       string        `json:"name"`
	Command    string        `json:"command"`
	OutputFile string        `json:"output_file,omitempty"`
	Duration   time.Duration `json:"duration"`
	Success    bool          `json:"success"`
	Error      string        `json:"error,omitempty"`
}

// Runner executes inventory adapters and captures their JSON output.
type Runner struct {
	execFn  ExecFunc
	tempDir string
}

// New creates a Runner with the given exec function.
// The temp directory is created lazily on first Run call.
func New(execFn ExecFunc) *Runner {
	return &Runner{
		execFn: execFn,
	}
}

// Run executes each adapter sequentially, capturing output to temp JSON
// files. Partial success: returns all results even if some adapters fail.
func (r *Runner) Run(ctx context.Context, configs []RunConfig) []RunResult {
	if r.tempDir == "" {
		dir, err := os.MkdirTemp("", "hipaascope-inventory-*")
		if err != nil {
			// If we can't create temp dir, fail all
			var results []RunResult
			for _, cfg := range configs {
				results = append(results, RunResult{
					Name:    cfg.Name,
					Command: cfg.Command,
					Success: false,
					Error:   fmt.Sprintf("failed to create temp directory: %v", err),
				})
			}
			return results
		}
		r.tempDir = dir
	}

	var results []RunResult
	for _, cfg := range configs {
		result := r.runOne(ctx, cfg)
		results = append(results, result)
	}
	return results
}

// runOne executes a single adapter.
func (r *Runner) runOne(ctx context.Context, cfg RunConfig) RunResult {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	adapterCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fields := strings.Fields(cfg.Command)
	if len(fields) == 0 {
		return RunResult{
			Name:    cfg.Name,
			Command: cfg.Command,
			Success: false,
			Error:   "empty adapter command",
		}
	}

	start := time.Now()
	stdout, err := r.execFn(adapterCtx, fields[0], fields[1:]...)
	duration := time.Since(start)

	if err != nil {
		return RunResult{
			Name:     cfg.Name,
			Command:  cfg.Command,
			Duration: duration,
			Success:  false,
			Error:    err.Error(),
		}
	}

	// Write output to temp file
	outputFile := filepath.Join(r.tempDir, cfg.Name+".json")
	if err := os.WriteFile(outputFile, stdout, 0o600); err != nil {
		return RunResult{
			Name:     cfg.Name,
			Command:  cfg.Command,
			Duration: duration,
			Success:  false,
			Error:    fmt.Sprintf("failed to write output: %v", err),
		}
	}

	return RunResult{
		Name:       cfg.Name,
		Command:    cfg.Command,
		OutputFile: outputFile,
		Duration:   duration,
		Success:    true,
	}
}

// OutputFiles returns paths of successful run outputs only.
func OutputFiles(results []RunResult) []string {
	var paths []string
	for _, r := range results {
		if r.Success && r.OutputFile != "" {
			paths = append(paths, r.OutputFile)
		}
	}
	return paths
}

// Cleanup removes the temp directory and all output files.
func (r *Runner) Cleanup() error {
	if r.tempDir == "" {
		return nil
	}
	return os.RemoveAll(r.tempDir)
}

// ConfigsFromAdapters converts the configured adapter map into
// RunConfigs, sorted by name for deterministic execution order.
func ConfigsFromAdapters(adapters map[string]string, timeout time.Duration) []RunConfig {
	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)

	var configs []RunConfig
	for _, name := range names {
		configs = append(configs, RunConfig{
			Name:    name,
			Command: adapters[name],
			Timeout: timeout,
		})
	}
	return configs
}
