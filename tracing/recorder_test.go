package tracing

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestDumpWithoutStart(t *testing.T) {
	var r Recorder
	path := filepath.Join(t.TempDir(), "flight.out")
	if err := r.Dump(path); err != nil {
		t.Fatalf("Dump() returned error without recorder: %v", err)
	}
	if _, err := os.Stat(path); err == nil {
		t.Fatal("expected no file to be written when recorder is disabled")
	}
	if r.Running() {
		t.Fatal("zero recorder reports running")
	}
	r.Stop()
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	if err := r.Start(0, 0); err != nil {
		t.Fatal(err)
	}
	if err := r.Dump(filepath.Join(t.TempDir(), "x")); err != nil {
		t.Fatal(err)
	}
	r.Stop()
}

func TestStartDumpStop(t *testing.T) {
	var r Recorder
	if err := r.Start(0, 0); err != nil {
		t.Skipf("flight recorder unavailable: %v", err)
	}
	defer r.Stop()
	if err := r.Start(0, 0); err == nil {
		t.Fatal("second Start should fail")
	}

	ctx, end := StartTask(context.Background(), "dupfinder-test")
	Log(ctx, "stage", "collecting")
	end()

	path := filepath.Join(t.TempDir(), "flight.out")
	if err := r.Dump(path); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		t.Fatalf("expected trace data, got %v %v", info, err)
	}
	r.Stop()
	if r.Running() {
		t.Fatal("recorder still running after Stop")
	}
}
