package main

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"dupfinder/config"
	"dupfinder/logger"
	"dupfinder/scanner"
)

func TestHandleSignalEventCancelsContext(t *testing.T) {
	logger.Init("error")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)

	done := make(chan struct{})
	go func() {
		handleSignalEvent(cancel, sigChan)
		close(done)
	}()
	sigChan <- syscall.SIGTERM

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("expected context to be canceled")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("signal handler did not return")
	}
}

func testConfig(t *testing.T, root, method string) *config.Config {
	t.Helper()
	return &config.Config{
		Paths:            []string{root},
		Method:           method,
		HashType:         "crc32",
		Recursive:        true,
		MinSize:          1,
		MaxSize:          math.MaxUint64,
		OutputFormat:     "json",
		OutputFileName:   filepath.Join(t.TempDir(), "report.json"),
		LogLevel:         "error",
		ConcurrencyLevel: 2,
		ConcurrencySet:   true,
		DiagDir:          t.TempDir(),
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestRunWritesReport(t *testing.T) {
	logger.Init("error")
	root := t.TempDir()
	writeFile(t, root, "a.txt", "duplicate")
	writeFile(t, root, "b/a.txt", "duplicate")
	writeFile(t, root, "c.txt", "unique file")

	cfg := testConfig(t, root, "hash")
	summary, err := run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Status != "completed" || summary.Groups != 1 || summary.TotalFiles != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.WastedSpace != uint64(len("duplicate")) || summary.ScannedFiles != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	data, err := os.ReadFile(cfg.OutputFileName)
	if err != nil {
		t.Fatal(err)
	}
	var report struct {
		Search struct {
			HashType string `json:"hash_type"`
		} `json:"search"`
		Groups []struct {
			Entries []struct {
				Hash string `json:"hash"`
			} `json:"entries"`
		} `json:"groups"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("invalid report: %v", err)
	}
	if report.Search.HashType != "crc32" || len(report.Groups) != 1 || len(report.Groups[0].Entries[0].Hash) != 8 {
		t.Fatalf("unexpected report: %s", data)
	}
}

func TestRunCancelledContext(t *testing.T) {
	logger.Init("error")
	root := t.TempDir()
	writeFile(t, root, "a", "x")
	writeFile(t, root, "b", "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := run(ctx, testConfig(t, root, "size"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Status != "cancelled" && summary.Status != "completed" {
		t.Fatalf("unexpected status %s", summary.Status)
	}
}

func TestRunRejectsUnknownMethod(t *testing.T) {
	if _, err := run(context.Background(), testConfig(t, t.TempDir(), "fuzzy")); err == nil {
		t.Fatal("expected error for unknown method")
	}
}

func TestProgressViewDisabled(t *testing.T) {
	v := newProgressView(false)
	v.Update(scanner.Progress{Stage: scanner.StagePrehash, Current: 1, Total: 2})
	v.Finish()
	if v.bar != nil {
		t.Fatal("disabled view created a bar")
	}
}

func TestProgressVisibleEnv(t *testing.T) {
	t.Setenv("DUPFINDER_DISABLE_PROGRESS", "yes")
	if progressVisible() {
		t.Fatal("expected progress to be hidden")
	}
	t.Setenv("DUPFINDER_DISABLE_PROGRESS", "")
	if !progressVisible() {
		t.Fatal("expected progress to be visible")
	}
}

func TestRunAppliesAction(t *testing.T) {
	logger.Init("error")
	tests := []struct {
		name      string
		action    string
		dryRun    bool
		remaining int
		succeeded int
	}{
		{name: "delete", action: "delete", remaining: 1, succeeded: 2},
		{name: "hardlink", action: "hardlink", remaining: 3, succeeded: 2},
		{name: "dry run", action: "delete", dryRun: true, remaining: 3, succeeded: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			for _, rel := range []string{"a.txt", "b/a.txt", "c/a.txt"} {
				writeFile(t, root, rel, "duplicate")
			}
			cfg := testConfig(t, root, "hash")
			cfg.Action = tt.action
			cfg.Select = "duplicates"
			cfg.DryRun = tt.dryRun

			summary, err := run(context.Background(), cfg)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if summary.Action == nil || summary.Action.Succeeded != tt.succeeded || summary.Action.Failed != 0 {
				t.Fatalf("unexpected action summary: %+v", summary.Action)
			}
			left := 0
			for _, rel := range []string{"a.txt", "b/a.txt", "c/a.txt"} {
				if _, err := os.Stat(filepath.Join(root, rel)); err == nil {
					left++
				}
			}
			if left != tt.remaining {
				t.Fatalf("expected %d files left, got %d", tt.remaining, left)
			}

			data, err := os.ReadFile(cfg.OutputFileName)
			if err != nil {
				t.Fatal(err)
			}
			var report struct {
				Summary struct {
					Action struct {
						Action    string `json:"action"`
						Succeeded int    `json:"succeeded"`
					} `json:"action"`
				} `json:"summary"`
			}
			if err := json.Unmarshal(data, &report); err != nil {
				t.Fatalf("invalid report: %v", err)
			}
			if report.Summary.Action.Action != tt.action || report.Summary.Action.Succeeded != tt.succeeded {
				t.Fatalf("action missing from report: %s", data)
			}
		})
	}
}

func TestRunRejectsBadActionBeforeSearch(t *testing.T) {
	logger.Init("error")
	root := t.TempDir()
	tests := []struct {
		name   string
		method string
		action string
		moveTo string
	}{
		{name: "unknown action", method: "hash", action: "shred"},
		{name: "link without hash", method: "size", action: "symlink"},
		{name: "move without target", method: "hash", action: "move"},
		{name: "move to missing dir", method: "hash", action: "move", moveTo: filepath.Join(root, "missing")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, root, tt.method)
			cfg.Action = tt.action
			cfg.MoveTo = tt.moveTo
			if _, err := run(context.Background(), cfg); err == nil {
				t.Fatal("expected error")
			}
			if _, err := os.Stat(cfg.OutputFileName); err == nil {
				t.Fatal("report written despite invalid action")
			}
		})
	}
}
