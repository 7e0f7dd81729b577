package runner

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

// mockExec returns a function that produces canned output per binary.
func mockExec(outputs map[string][]byte, errs map[string]error) ExecFunc {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if err, ok := errs[name]; ok {
			return nil, err
		}
		if out, ok := outputs[name]; ok {
			// Respect context cancellation
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
				return out, nil
			}
		}
		return nil, errors.New("unknown binary: " + name)
	}
}

func TestRun_Success(t *testing.T) {
	jsonOutput := []byte(`{"schema":"inventory/v1","records":[]}`)
	exec := mockExec(
		map[string][]byte{"gcloud": jsonOutput},
		nil,
	)

	r := New(exec)
	defer func() { _ = r.Cleanup() }()

	configs := []RunConfig{
		{
			Name:    "gcp",
			Command: "gcloud asset search-all-resources --format=json",
		},
	}

	results := r.Run(context.Background(), configs)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	res := results[0]
	if !res.Success {
		t.Fatalf("expected success, got error: %s", res.Error)
	}
	if res.OutputFile == "" {
		t.Fatal("expected output file path")
	}

	// Verify file contents
	data, err := os.ReadFile(res.OutputFile)
	if err != nil {
		t.Fatalf("failed to read output file: %v", err)
	}
	if string(data) != string(jsonOutput) {
		t.Errorf("output mismatch: got %s", string(data))
	}
}

func TestRun_CommandError(t *testing.T) {
	exec := mockExec(
		nil,
		map[string]error{"gcloud": errors.New("exit status 1")},
	)

	r := New(exec)
	defer func() { _ = r.Cleanup() }()

	configs := []RunConfig{
		{Name: "gcp", Command: "gcloud asset search-all-resources"},
	}

	results := r.Run(context.Background(), configs)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	if results[0].Success {
		t.Fatal("expected failure")
	}
	if results[0].Error == "" {
		t.Fatal("expected error message")
	}
}

func TestRun_EmptyCommand(t *testing.T) {
	r := New(mockExec(nil, nil))
	defer func() { _ = r.Cleanup() }()

	results := r.Run(context.Background(), []RunConfig{{Name: "gcp", Command: "  "}})
	if results[0].Success {
		t.Fatal("expected failure for empty command")
	}
}

func TestRun_Timeout(t *testing.T) {
	// Exec function that blocks until context is cancelled
	exec := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	r := New(exec)
	defer func() { _ = r.Cleanup() }()

	configs := []RunConfig{
		{
			Name:    "gcp",
			Command: "gcloud asset search-all-resources",
			Timeout: 50 * time.Millisecond,
		},
	}

	results := r.Run(context.Background(), configs)
	if results[0].Success {
		t.Fatal("expected timeout failure")
	}
	if results[0].Duration < 50*time.Millisecond {
		t.Errorf("expected duration >= 50ms, got %v", results[0].Duration)
	}
}

func TestRun_PartialSuccess(t *testing.T) {
	exec := mockExec(
		map[string][]byte{
			"gcloud": []byte(`{"records":[]}`),
			"steampipe": []byte(`{"records":[]}`),
		},
		map[string]error{
			"aws": errors.New("AWS credentials not found"),
		},
	)

	r := New(exec)
	defer func() { _ = r.Cleanup() }()

	configs := []RunConfig{
		{Name: "gcp", Command: "gcloud asset search-all-resources --format=json"},
		{Name: "aws", Command: "aws configservice get-discovered-resource-counts"},
		{Name: "extra", Command: "steampipe query inventory"},
	}

	results := r.Run(context.Background(), configs)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	successCount := 0
	for _, res := range results {
		if res.Success {
			successCount++
		}
	}
	if successCount != 2 {
		t.Errorf("expected 2 successes, got %d", successCount)
	}

	// OutputFiles should return only 2 paths
	paths := OutputFiles(results)
	if len(paths) != 2 {
		t.Errorf("expected 2 output files, got %d", len(paths))
	}
}

func TestRun_MissingBinary(t *testing.T) {
	exec := mockExec(nil, nil)

	r := New(exec)
	defer func() { _ = r.Cleanup() }()

	configs := []RunConfig{
		{Name: "gcp", Command: "/nonexistent/adapter"},
	}

	results := r.Run(context.Background(), configs)
	if results[0].Success {
		t.Fatal("expected failure for missing binary")
	}
}

func TestCleanup(t *testing.T) {
	exec := mockExec(
		map[string][]byte{"test": []byte(`{}`)},
		nil,
	)

	r := New(exec)
	results := r.Run(context.Background(), []RunConfig{
		{Name: "gcp", Command: "test"},
	})

	if !results[0].Success {
		t.Fatalf("expected success: %s", results[0].Error)
	}

	tempDir := r.tempDir
	if _, err := os.Stat(tempDir); err != nil {
		t.Fatalf("temp dir should exist before cleanup: %v", err)
	}

	if err := r.Cleanup(); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}

	if _, err := os.Stat(tempDir); !os.IsNotExist(err) {
		t.Error("temp dir should not exist after cleanup")
	}
}

func TestCleanup_NoTempDir(t *testing.T) {
	r := New(nil)
	if err := r.Cleanup(); err != nil {
		t.Errorf("cleanup with no temp dir should not error: %v", err)
	}
}

func TestOutputFiles_Empty(t *testing.T) {
	paths := OutputFiles(nil)
	if len(paths) != 0 {
		t.Errorf("expected 0 paths, got %d", len(paths))
	}
}

func TestOutputFiles_MixedResults(t *testing.T) {
	results := []RunResult{
		{Success: true, OutputFile: "/tmp/a.json"},
		{Success: false, Error: "failed"},
		{Success: true, OutputFile: "/tmp/b.json"},
		{Success: true, OutputFile: ""},
	}

	paths := OutputFiles(results)
	if len(paths) != 2 {
		t.Errorf("expected 2 paths, got %d", len(paths))
	}
}

func TestConfigsFromAdapters(t *testing.T) {
	adapters := map[string]string{
		"gcp": "gcloud asset search-all-resources --format=json",
		"aws": "aws configservice get-discovered-resource-counts",
	}

	configs := ConfigsFromAdapters(adapters, 2*time.Minute)
	if len(configs) != 2 {
		t.Fatalf("expected 2 configs, got %d", len(configs))
	}

	// Sorted by name
	if configs[0].Name != "aws" || configs[1].Name != "gcp" {
		t.Errorf("expected deterministic order, got %s, %s", configs[0].Name, configs[1].Name)
	}
	if configs[0].Timeout != 2*time.Minute {
		t.Errorf("expected 2m timeout, got %v", configs[0].Timeout)
	}
}
