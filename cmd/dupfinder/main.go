package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dupfinder/actions"
	"dupfinder/bridge"
	"dupfinder/config"
	"dupfinder/diag"
	"dupfinder/logger"
	"dupfinder/output"
	"dupfinder/scanner"
	"dupfinder/tracing"

	"github.com/dustin/go-humanize"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go handleSignalEvent(cancel, sigChan)

	if _, err := run(ctx, cfg); err != nil {
		logger.Errorf("Search failed: %v", err)
		os.Exit(1)
	}
}

func handleSignalEvent(cancel context.CancelFunc, sigChan <-chan os.Signal) {
	if _, ok := <-sigChan; !ok {
		return
	}
	logger.Info("Interrupt signal received. Stopping search...")
	cancel()
}

// run performs one search described by cfg and writes the report. The
// returned summary is also the report trailer.
func run(ctx context.Context, cfg *config.Config) (output.Summary, error) {
	method, err := bridge.ParseCheckingMethod(cfg.Method)
	if err != nil {
		return output.Summary{}, err
	}
	alg, err := bridge.ParseHashAlgorithm(cfg.HashType)
	if err != nil {
		return output.Summary{}, err
	}
	kind, err := actionKind(cfg)
	if err != nil {
		return output.Summary{}, err
	}

	var recorder tracing.Recorder
	if cfg.TraceFlight {
		if err := recorder.Start(cfg.TraceFlightMaxBytes, cfg.TraceFlightMinAge); err != nil {
			logger.Warnf("Failed to start flight recorder: %v", err)
		} else {
			defer func() {
				if err := recorder.Dump(cfg.TraceFlightFile); err != nil {
					logger.Warnf("Failed to write flight recorder: %v", err)
				}
				recorder.Stop()
			}()
		}
	}

	opts := bridge.DefaultOptions(method, alg, cfg.IgnoreHardLinks, cfg.UseCache)
	opts.MinimalCacheFileSize = cfg.MinimalCacheFileSize
	opts.MinimalPrehashCacheFileSize = cfg.MinimalPrehashCacheFileSize
	opts.CaseSensitiveNameComparison = cfg.CaseSensitiveNames
	opts.MaxIOPerSecond = cfg.MaxIOPerSecond
	opts.CacheDir = cfg.CacheDir
	if cfg.ConcurrencySet {
		opts.Concurrency = cfg.ConcurrencyLevel
	}

	var summary output.Summary
	err = bridge.With(opts, func(h *bridge.Handle) error {
		var serr error
		summary, serr = search(ctx, cfg, h, kind, &recorder)
		return serr
	})
	return summary, err
}

// actionKind parses the configured action and checks the move destination
// before any time is spent searching.
func actionKind(cfg *config.Config) (actions.Kind, error) {
	if cfg.Action == "" {
		return actions.None, nil
	}
	kind, err := actions.ParseKind(cfg.Action)
	if err != nil {
		return actions.None, err
	}
	if kind.Links() && cfg.Method != "hash" {
		return actions.None, fmt.Errorf("action %s requires method hash", kind)
	}
	if kind == actions.Move {
		if cfg.MoveTo == "" {
			return actions.None, actions.ErrNoDestination
		}
		info, err := os.Stat(cfg.MoveTo)
		if err != nil {
			return actions.None, fmt.Errorf("move destination: %w", err)
		}
		if !info.IsDir() {
			return actions.None, fmt.Errorf("move destination %s is not a directory", cfg.MoveTo)
		}
	}
	return kind, nil
}

func configure(cfg *config.Config, h *bridge.Handle) error {
	for _, path := range cfg.Paths {
		if err := h.AddIncludePath(path); err != nil {
			return fmt.Errorf("include %q: %w", path, err)
		}
	}
	for _, path := range cfg.ExcludedPaths {
		if err := h.AddExcludePath(path); err != nil {
			return fmt.Errorf("exclude %q: %w", path, err)
		}
	}
	for _, item := range cfg.ExcludedItems {
		if err := h.AddExcludedItem(item); err != nil {
			return fmt.Errorf("excluded item %q: %w", item, err)
		}
	}
	for _, ext := range cfg.AllowedExtensions {
		if err := h.AddAllowedExtension(ext); err != nil {
			return fmt.Errorf("extension %q: %w", ext, err)
		}
	}
	if err := h.SetRecursive(cfg.Recursive); err != nil {
		return err
	}
	if err := h.SetMinSize(cfg.MinSize); err != nil {
		return err
	}
	return h.SetMaxSize(cfg.MaxSize)
}

func search(ctx context.Context, cfg *config.Config, h *bridge.Handle, kind actions.Kind, recorder *tracing.Recorder) (output.Summary, error) {
	if err := configure(cfg, h); err != nil {
		return output.Summary{}, err
	}

	start := time.Now()
	meta := output.Metadata{
		Method:    cfg.Method,
		Paths:     cfg.Paths,
		StartTime: start.Format(time.RFC3339),
	}
	if cfg.Method == "hash" {
		meta.HashType = cfg.HashType
	}
	writer, err := output.New(cfg, meta)
	if err != nil {
		return output.Summary{}, fmt.Errorf("failed to initialize output: %w", err)
	}

	tracker := &diag.Tracker{}
	view := newProgressView(cfg.Progress && progressVisible())
	_ = h.SetProgressFunc(func(p scanner.Progress) {
		tracker.Observe(p)
		view.Update(p)
	})
	watchdog := diag.NewWatchdog(diag.Options{
		StallThreshold:   cfg.DiagSlowScanThreshold,
		Dir:              cfg.DiagDir,
		GoroutineProfile: cfg.DiagGoroutineLeak,
		Progress:         tracker.Snapshot,
		DumpTrace:        recorder.Dump,
	})
	watchdog.Start(ctx)

	taskCtx, endTask := tracing.StartTask(ctx, "dupfinder.search")
	tracing.Log(taskCtx, "method", cfg.Method)
	h.SearchContext(ctx)
	endTask()
	view.Finish()
	watchdog.Close()

	var found [][]bridge.Entry
	for i := 0; i < h.GroupCount(); i++ {
		entries, err := h.Group(i)
		if err != nil {
			_ = writer.Close()
			return output.Summary{}, err
		}
		if err := writer.WriteGroup(entries); err != nil {
			_ = writer.Close()
			return output.Summary{}, fmt.Errorf("failed to write group %d: %w", i, err)
		}
		if kind != actions.None {
			found = append(found, entries)
		}
	}

	var actionSummary *output.ActionSummary
	if kind != actions.None {
		if h.Status() == bridge.StatusCancelled {
			logger.Warnf("Search stopped early; skipping %s", kind)
		} else {
			actionSummary, err = resolve(ctx, cfg, kind, found)
			if err != nil {
				_ = writer.Close()
				return output.Summary{}, err
			}
		}
	}

	groups, files := writer.Counts()
	summary := output.Summary{
		EndTime:      time.Now().Format(time.RFC3339),
		Status:       h.Status().String(),
		ScannedFiles: h.Information().ScannedFiles,
		Groups:       groups,
		TotalFiles:   files,
		WastedSpace:  h.WastedSpace(),
		Action:       actionSummary,
	}
	writer.SetSummary(summary)
	if err := writer.Close(); err != nil {
		return summary, fmt.Errorf("failed to finalize output: %w", err)
	}

	fields := logger.WithFields(map[string]interface{}{
		"groups":   summary.Groups,
		"files":    summary.TotalFiles,
		"scanned":  summary.ScannedFiles,
		"duration": time.Since(start).Round(time.Millisecond).String(),
	})
	if h.Status() == bridge.StatusCancelled {
		fields.Warn("Search stopped early; report contains partial results")
	} else {
		fields.Infof("Search completed, %s reclaimable", humanize.IBytes(summary.WastedSpace))
	}
	return summary, nil
}

// resolve applies kind to the selected members of groups.
func resolve(ctx context.Context, cfg *config.Config, kind actions.Kind, groups [][]bridge.Entry) (*output.ActionSummary, error) {
	sel := actions.NewSelection(groups)
	switch cfg.Select {
	case "all":
		sel.SelectAll()
	case "none":
		sel.SelectNone()
	default:
		sel.SelectDuplicates()
	}
	if cfg.InvertSelection {
		sel.InvertSelection()
	}

	report, err := actions.Apply(ctx, kind, sel, actions.Options{MoveTo: cfg.MoveTo, DryRun: cfg.DryRun})
	if err != nil && !errors.Is(err, context.Canceled) {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	if err != nil {
		logger.Warnf("Interrupted during %s; report lists the files handled so far", kind)
	}

	summary := &output.ActionSummary{
		Action:    kind.String(),
		DryRun:    report.DryRun,
		Succeeded: report.Succeeded,
		Failed:    report.Failed,
		Skipped:   report.Skipped,
		Bytes:     report.Bytes,
	}
	for _, f := range report.Failures() {
		summary.Failures = append(summary.Failures, output.ActionFailure{Path: f.Path, Error: f.Err.Error()})
	}
	return summary, nil
}
