package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veridianlabs/hipaascope/internal/catalog"
)

var doctorFormat string

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check environment readiness and diagnose common problems",
	Long: `Doctor validates your hipaascope setup end-to-end:

  1. Config file — found and readable?
  2. Rule catalog — found and valid?
  3. Storage — directory writable?
  4. Adapters — binaries resolvable?
  5. History — stored runs present?

Fix the issues it reports, then run 'hipaascope scan' with confidence.`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().StringVar(&doctorFormat, "format", "text",
		"output format: text or json")
}

type doctorCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "ok", "warn", "fail"
	Detail string `json:"detail,omitempty"`
}

type doctorResult struct {
	Checks  []doctorCheck `json:"checks"`
	Summary string        `json:"summary"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	var checks []doctorCheck

	checks = append(checks, checkConfigFile())
	checks = append(checks, checkCatalog())
	checks = append(checks, checkStorage())
	checks = append(checks, checkAdapters()...)
	checks = append(checks, checkHistory())

	fails, warns := 0, 0
	for _, c := range checks {
		switch c.Status {
		case "fail":
			fails++
		case "warn":
			warns++
		}
	}

	summary := "all checks passed"
	if fails > 0 {
		summary = fmt.Sprintf("%d issue(s) found", fails)
	} else if warns > 0 {
		summary = fmt.Sprintf("ok with %d warning(s)", warns)
	}

	result := doctorResult{Checks: checks, Summary: summary}

	if doctorFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return writeDoctorText(result)
}

func writeDoctorText(result doctorResult) error {
	icons := map[string]string{
		"ok":   "✓",
		"warn": "△",
		"fail": "✗",
	}

	for _, c := range result.Checks {
		icon := icons[c.Status]
		if c.Detail != "" {
			fmt.Printf("  %s %-20s %s\n", icon, c.Name, c.Detail)
		} else {
			fmt.Printf("  %s %s\n", icon, c.Name)
		}
	}

	fmt.Printf("\n%s\n", result.Summary)
	return nil
}

func checkConfigFile() doctorCheck {
	if configFile != "" {
		if _, err := os.Stat(configFile); err != nil {
			return doctorCheck{Name: "config", Status: "fail", Detail: fmt.Sprintf("%s: %v", configFile, err)}
		}
		return doctorCheck{Name: "config", Status: "ok", Detail: configFile}
	}

	for _, candidate := range []string{"hipaascope.yaml", "hipaascope.yml"} {
		if _, err := os.Stat(candidate); err == nil {
			return doctorCheck{Name: "config", Status: "ok", Detail: candidate}
		}
	}
	return doctorCheck{
		Name:   "config",
		Status: "warn",
		Detail: "no config file found (using defaults). Run: hipaascope init",
	}
}

func checkCatalog() doctorCheck {
	path := cfg.RulesFile
	if path == "" {
		path = catalog.FindCatalogFile()
	}

	if path == "" {
		return doctorCheck{
			Name:   "catalog",
			Status: "ok",
			Detail: "builtin HIPAA baseline (no rules file configured)",
		}
	}

	cat, err := catalog.Load(context.Background(), path)
	if err != nil {
		return doctorCheck{
			Name:   "catalog",
			Status: "fail",
			Detail: fmt.Sprintf("%s invalid: %v", path, err),
		}
	}
	return doctorCheck{
		Name:   "catalog",
		Status: "ok",
		Detail: fmt.Sprintf("%s (%d rules)", path, len(cat.Rules)),
	}
}

func checkStorage() doctorCheck {
	storagePath, err := cfg.GetStoragePath()
	if err != nil {
		return doctorCheck{Name: "storage", Status: "fail", Detail: err.Error()}
	}

	info, err := os.Stat(storagePath)
	if err != nil {
		// Directory doesn't exist yet; created on first --store
		return doctorCheck{
			Name:   "storage",
			Status: "ok",
			Detail: fmt.Sprintf("%s (will be created on first --store)", storagePath),
		}
	}

	if !info.IsDir() {
		return doctorCheck{
			Name:   "storage",
			Status: "fail",
			Detail: fmt.Sprintf("%s exists but is not a directory", storagePath),
		}
	}

	tmpFile := storagePath + "/.doctor-check"
	if err := os.WriteFile(tmpFile, []byte("ok"), 0600); err != nil {
		return doctorCheck{
			Name:   "storage",
			Status: "fail",
			Detail: fmt.Sprintf("%s not writable: %v", storagePath, err),
		}
	}
	_ = os.Remove(tmpFile)

	return doctorCheck{Name: "storage", Status: "ok", Detail: storagePath}
}

func checkAdapters() []doctorCheck {
	if len(cfg.Adapters) == 0 {
		return []doctorCheck{{
			Name:   "adapters",
			Status: "warn",
			Detail: "none configured — pass snapshot files to scan directly",
		}}
	}

	names := make([]string, 0, len(cfg.Adapters))
	for name := range cfg.Adapters {
		names = append(names, name)
	}
	sort.Strings(names)

	var checks []doctorCheck
	for _, name := range names {
		command := cfg.Adapters[name]
		c := doctorCheck{Name: "adapter:" + name}

		fields := strings.Fields(command)
		if len(fields) == 0 {
			c.Status = "fail"
			c.Detail = "empty command"
			checks = append(checks, c)
			continue
		}

		if path, err := exec.LookPath(fields[0]); err == nil {
			c.Status = "ok"
			c.Detail = path
		} else {
			c.Status = "warn"
			c.Detail = fmt.Sprintf("%s not found in PATH", fields[0])
		}
		checks = append(checks, c)
	}
	return checks
}

func checkHistory() doctorCheck {
	store, err := openStorage()
	if err != nil {
		return doctorCheck{Name: "history", Status: "fail", Detail: err.Error()}
	}

	timestamps, err := store.ListRuns()
	if err != nil || len(timestamps) == 0 {
		return doctorCheck{
			Name:   "history",
			Status: "warn",
			Detail: "no stored runs yet — trend analysis needs at least 2",
		}
	}
	return doctorCheck{
		Name:   "history",
		Status: "ok",
		Detail: fmt.Sprintf("%d stored run(s)", len(timestamps)),
	}
}
