package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/veridianlabs/hipaascope/internal/config"
)

func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	orig := cfg
	cfg = c
	t.Cleanup(func() { cfg = orig })
}

func TestCheckStorageOK(t *testing.T) {
	dir := t.TempDir()
	withConfig(t, &config.Config{StorageDir: dir})

	check := checkStorage()
	if check.Status != "ok" {
		t.Errorf("expected ok, got %s (%s)", check.Status, check.Detail)
	}
}

func TestCheckStorageNotYetCreated(t *testing.T) {
	dir := t.TempDir()
	withConfig(t, &config.Config{StorageDir: filepath.Join(dir, "missing")})

	check := checkStorage()
	if check.Status != "ok" {
		t.Errorf("expected ok for missing dir, got %s (%s)", check.Status, check.Detail)
	}
}

func TestCheckStorageNotADirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "storage-file")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	withConfig(t, &config.Config{StorageDir: file})

	check := checkStorage()
	if check.Status != "fail" {
		t.Errorf("expected fail, got %s (%s)", check.Status, check.Detail)
	}
}

func TestCheckAdaptersNoneConfigured(t *testing.T) {
	withConfig(t, &config.Config{})

	checks := checkAdapters()
	if len(checks) != 1 {
		t.Fatalf("expected 1 check, got %d", len(checks))
	}
	if checks[0].Status != "warn" {
		t.Errorf("expected warn, got %s", checks[0].Status)
	}
}

func TestCheckAdaptersEmptyCommand(t *testing.T) {
	withConfig(t, &config.Config{Adapters: map[string]string{"gcp": "   "}})

	checks := checkAdapters()
	if len(checks) != 1 {
		t.Fatalf("expected 1 check, got %d", len(checks))
	}
	if checks[0].Status != "fail" {
		t.Errorf("expected fail for empty command, got %s", checks[0].Status)
	}
}

func TestCheckAdaptersMissingBinary(t *testing.T) {
	withConfig(t, &config.Config{Adapters: map[string]string{
		"gcp": "definitely-not-a-real-binary-1234 asset list",
	}})

	checks := checkAdapters()
	if checks[0].Status != "warn" {
		t.Errorf("expected warn for missing binary, got %s (%s)", checks[0].Status, checks[0].Detail)
	}
}

func TestCheckCatalogBuiltinFallback(t *testing.T) {
	dir := t.TempDir()
	origDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	withConfig(t, &config.Config{})

	check := checkCatalog()
	if check.Status != "ok" {
		t.Errorf("expected ok for builtin fallback, got %s (%s)", check.Status, check.Detail)
	}
}

func TestCheckCatalogInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(path, []byte("rules: [{id: broken}]"), 0644); err != nil {
		t.Fatal(err)
	}
	withConfig(t, &config.Config{RulesFile: path})

	check := checkCatalog()
	if check.Status != "fail" {
		t.Errorf("expected fail for invalid catalog, got %s (%s)", check.Status, check.Detail)
	}
}
