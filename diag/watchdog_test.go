package diag

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"dupfinder/scanner"
)

type fakeProfileWriter struct {
	content string
}

func (f fakeProfileWriter) WriteTo(w io.Writer, debug int) error {
	_, err := io.WriteString(w, f.content)
	return err
}

func TestTrackerSnapshot(t *testing.T) {
	var tr Tracker
	tr.Observe(scanner.Progress{Stage: scanner.StagePrehash, Current: 3, Total: 10})
	snap := tr.Snapshot()
	if snap.Stage != "prehash" || snap.Current != 3 || snap.Total != 10 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestInspectWritesStallArtifacts(t *testing.T) {
	now := time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC)
	dir := t.TempDir()
	snap := Snapshot{Stage: "full hash", Current: 42, Total: 100}

	w := NewWatchdog(Options{
		StallThreshold: 2 * time.Second,
		Dir:            dir,
		Progress:       func() Snapshot { return snap },
		DumpTrace: func(path string) error {
			return os.WriteFile(path, []byte("trace"), 0600)
		},
		Now: func() time.Time { return now },
	})
	w.last = snap
	w.lastMoveAt = now

	w.inspect(now.Add(time.Second))
	if w.Dumps() != 0 {
		t.Fatal("dumped before the threshold")
	}
	w.inspect(now.Add(3 * time.Second))
	if w.Dumps() != 1 {
		t.Fatalf("expected one dump, got %d", w.Dumps())
	}
	w.inspect(now.Add(4 * time.Second))
	if w.Dumps() != 1 {
		t.Fatal("dumped again within the threshold")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	var foundStall, foundTrace bool
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "dupfinder-stall-") && strings.HasSuffix(name, ".json") {
			foundStall = true
			data, _ := os.ReadFile(filepath.Join(dir, name))
			if !strings.Contains(string(data), `"full hash"`) {
				t.Errorf("stall report lacks stage: %s", data)
			}
		}
		if strings.HasPrefix(name, "dupfinder-trace-") && strings.HasSuffix(name, ".out") {
			foundTrace = true
		}
	}
	if !foundStall || !foundTrace {
		t.Fatalf("expected stall and trace artifacts, got %v", entries)
	}
}

func TestInspectResetsOnProgress(t *testing.T) {
	now := time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC)
	var count atomic.Int64
	w := NewWatchdog(Options{
		StallThreshold: time.Second,
		Dir:            t.TempDir(),
		Progress:       func() Snapshot { return Snapshot{Stage: "collecting", Current: count.Load()} },
		Now:            func() time.Time { return now },
	})
	w.lastMoveAt = now
	for i := 1; i <= 5; i++ {
		count.Add(1)
		w.inspect(now.Add(time.Duration(i) * 2 * time.Second))
	}
	if w.Dumps() != 0 {
		t.Fatalf("moving progress produced %d dumps", w.Dumps())
	}
}

func TestWriteProfileAvailableAndUnavailable(t *testing.T) {
	now := time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC)
	w := NewWatchdog(Options{
		Dir: t.TempDir(),
		Now: func() time.Time { return now },
		lookupProfile: func(name string) profileWriter {
			if name == "goroutine" {
				return fakeProfileWriter{content: "goroutine-profile"}
			}
			return nil
		},
	})

	path, err := w.writeProfile("goroutine", 0)
	if err != nil {
		t.Fatalf("write available profile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "goroutine-profile" {
		t.Fatalf("unexpected profile content: %q %v", data, err)
	}
	if _, err := w.writeProfile("heap-missing", 0); err == nil {
		t.Fatal("expected unavailable profile to return error")
	}
}

func TestCloseWritesGoroutineProfileWhenEnabled(t *testing.T) {
	dir := t.TempDir()
	w := NewWatchdog(Options{
		Dir:              dir,
		GoroutineProfile: true,
		lookupProfile: func(name string) profileWriter {
			return fakeProfileWriter{content: "profile"}
		},
	})
	w.Close()

	matches, err := filepath.Glob(filepath.Join(dir, "dupfinder-goroutine-*.pprof"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 goroutine profile file, got %d", len(matches))
	}
}

func TestStartWithoutThresholdIsNoop(t *testing.T) {
	w := NewWatchdog(Options{Progress: func() Snapshot { return Snapshot{} }})
	w.Start(context.Background())
	if w.stopCh != nil {
		t.Fatal("watchdog started without a threshold")
	}
	w.Close()

	var nilWatchdog *Watchdog
	nilWatchdog.Start(context.Background())
	nilWatchdog.Close()
}
