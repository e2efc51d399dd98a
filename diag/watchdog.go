// Package diag watches a running search and writes diagnostics when its
// progress stalls.
package diag

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/pprof"
	"sync"
	"sync/atomic"
	"time"

	"dupfinder/logger"
	"dupfinder/scanner"
)

type profileWriter interface {
	WriteTo(w io.Writer, debug int) error
}

// Snapshot is the observable position of a search.
type Snapshot struct {
	Stage   string `json:"stage"`
	Current int64  `json:"current"`
	Total   int64  `json:"total"`
}

// Tracker records the latest scanner progress. Observe is a scanner.ProgressFunc.
type Tracker struct {
	stage   atomic.Int32
	current atomic.Int64
	total   atomic.Int64
}

func (t *Tracker) Observe(p scanner.Progress) {
	t.stage.Store(int32(p.Stage))
	t.current.Store(int64(p.Current))
	t.total.Store(int64(p.Total))
}

func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{
		Stage:   scanner.Stage(t.stage.Load()).String(),
		Current: t.current.Load(),
		Total:   t.total.Load(),
	}
}

type Options struct {
	StallThreshold   time.Duration
	Dir              string
	GoroutineProfile bool
	Progress         func() Snapshot
	DumpTrace        func(path string) error
	Now              func() time.Time
	lookupProfile    func(name string) profileWriter
}

// Watchdog polls Progress and, once it has not moved for StallThreshold,
// writes a stall report and a trace dump. Reports repeat at most once per
// threshold while the stall lasts.
type Watchdog struct {
	threshold        time.Duration
	dir              string
	goroutineProfile bool
	progress         func() Snapshot
	dumpTrace        func(path string) error
	now              func() time.Time
	lookupProfile    func(name string) profileWriter

	mu         sync.Mutex
	last       Snapshot
	lastMoveAt time.Time
	lastDumpAt time.Time
	dumps      int

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewWatchdog(opts Options) *Watchdog {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	lookup := opts.lookupProfile
	if lookup == nil {
		lookup = func(name string) profileWriter {
			if p := pprof.Lookup(name); p != nil {
				return p
			}
			return nil
		}
	}
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	return &Watchdog{
		threshold:        opts.StallThreshold,
		dir:              dir,
		goroutineProfile: opts.GoroutineProfile,
		progress:         opts.Progress,
		dumpTrace:        opts.DumpTrace,
		now:              now,
		lookupProfile:    lookup,
	}
}

// Start is a no-op unless both a positive threshold and a progress source
// are configured.
func (w *Watchdog) Start(ctx context.Context) {
	if w == nil || w.threshold <= 0 || w.progress == nil || w.stopCh != nil {
		return
	}
	w.mu.Lock()
	w.last = w.progress()
	w.lastMoveAt = w.now()
	w.lastDumpAt = time.Time{}
	w.mu.Unlock()

	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	interval := min(max(w.threshold/2, 250*time.Millisecond), 2*time.Second)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		defer close(w.doneCh)
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			case <-ticker.C:
				w.inspect(w.now())
			}
		}
	}()
}

// Close stops polling and writes the goroutine profile when requested.
func (w *Watchdog) Close() {
	if w == nil {
		return
	}
	if w.stopCh != nil {
		close(w.stopCh)
		<-w.doneCh
		w.stopCh = nil
		w.doneCh = nil
	}
	if w.goroutineProfile {
		if _, err := w.writeProfile("goroutine", 2); err != nil {
			logger.Warnf("Diagnostics goroutine profile dump failed: %v", err)
		}
	}
}

// Dumps returns how many stall reports were written.
func (w *Watchdog) Dumps() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dumps
}

func (w *Watchdog) inspect(now time.Time) {
	if w.progress == nil || w.threshold <= 0 {
		return
	}
	current := w.progress()

	w.mu.Lock()
	if current != w.last || w.lastMoveAt.IsZero() {
		w.last = current
		w.lastMoveAt = now
		w.mu.Unlock()
		return
	}
	stalledFor := now.Sub(w.lastMoveAt)
	dump := stalledFor >= w.threshold &&
		(w.lastDumpAt.IsZero() || now.Sub(w.lastDumpAt) >= w.threshold)
	if dump {
		w.lastDumpAt = now
		w.dumps++
	}
	w.mu.Unlock()

	if dump {
		logger.Warnf("Search stalled for %s at %s %d/%d", stalledFor.Round(time.Second), current.Stage, current.Current, current.Total)
		if err := w.writeStallReport(now, current, stalledFor); err != nil {
			logger.Warnf("Diagnostics stall report failed: %v", err)
		}
	}
}

func (w *Watchdog) writeStallReport(now time.Time, snap Snapshot, stalledFor time.Duration) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return err
	}
	ts := now.UTC().Format("20060102-150405.000")
	report := map[string]interface{}{
		"event":        "search_stalled",
		"timestamp":    now.UTC().Format(time.RFC3339Nano),
		"progress":     snap,
		"threshold_ms": w.threshold.Milliseconds(),
		"stalled_ms":   stalledFor.Milliseconds(),
	}
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(w.dir, fmt.Sprintf("dupfinder-stall-%s.json", ts)), b, 0600); err != nil {
		return err
	}
	if w.dumpTrace != nil {
		if err := w.dumpTrace(filepath.Join(w.dir, fmt.Sprintf("dupfinder-trace-%s.out", ts))); err != nil {
			logger.Warnf("Diagnostics trace dump failed: %v", err)
		}
	}
	return nil
}

func (w *Watchdog) writeProfile(name string, debug int) (string, error) {
	profile := w.lookupProfile(name)
	if profile == nil {
		return "", fmt.Errorf("pprof profile %q unavailable", name)
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", err
	}
	ts := w.now().UTC().Format("20060102-150405.000")
	path := filepath.Join(w.dir, fmt.Sprintf("dupfinder-%s-%s.pprof", name, ts))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := profile.WriteTo(f, debug); err != nil {
		return "", err
	}
	return path, nil
}
