// Package tracing keeps a runtime/trace flight recorder running during a
// search so a stalled or interrupted run can be dumped for inspection.
package tracing

import (
	"context"
	"fmt"
	"os"
	"runtime/trace"
	"sync"
	"time"
)

// Recorder owns at most one flight recorder. The zero value is ready to use;
// a nil *Recorder ignores every call.
type Recorder struct {
	mu sync.Mutex
	fr *trace.FlightRecorder
}

func (r *Recorder) Start(maxBytes uint64, minAge time.Duration) error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fr != nil {
		return fmt.Errorf("flight recorder already running")
	}
	fr := trace.NewFlightRecorder(trace.FlightRecorderConfig{
		MaxBytes: maxBytes,
		MinAge:   minAge,
	})
	if err := fr.Start(); err != nil {
		return err
	}
	r.fr = fr
	return nil
}

func (r *Recorder) Running() bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fr != nil && r.fr.Enabled()
}

// Dump writes the current window to path. It does nothing when the recorder
// is not running.
func (r *Recorder) Dump(path string) error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fr == nil || !r.fr.Enabled() {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = r.fr.WriteTo(f)
	return err
}

func (r *Recorder) Stop() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fr != nil {
		r.fr.Stop()
		r.fr = nil
	}
}

// StartTask opens a trace task; the returned function ends it.
func StartTask(ctx context.Context, name string) (context.Context, func()) {
	ctx, task := trace.NewTask(ctx, name)
	return ctx, task.End
}

// Log records a message on the task carried by ctx.
func Log(ctx context.Context, category, message string) {
	trace.Log(ctx, category, message)
}
