package bridge

import (
	"context"
	"sync"

	"dupfinder/logger"
	"dupfinder/scanner"
)

// Status reports where a handle is in its lifecycle.
type Status int32

const (
	StatusInvalid   Status = -1
	StatusIdle      Status = 0
	StatusRunning   Status = 1
	StatusCompleted Status = 2
	StatusCancelled Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "invalid"
	}
}

// Search resets the stop flag, hands the queued paths to the engine and runs
// a blocking scan. The queued lists are empty afterwards. It returns false
// only for a nil or destroyed handle; use Status to tell completion from
// cancellation.
func (h *Handle) Search() bool {
	return h.search(nil)
}

// SearchContext is Search with ctx wired to Stop.
func (h *Handle) SearchContext(ctx context.Context) bool {
	return h.search(ctx)
}

func (h *Handle) search(ctx context.Context) bool {
	if !h.valid() {
		return false
	}
	h.stop.Store(false)
	if ctx != nil {
		// The watcher must exit before search returns, or a late store could
		// stop the next search after its reset.
		done := make(chan struct{})
		var watcher sync.WaitGroup
		watcher.Add(1)
		go func() {
			defer watcher.Done()
			select {
			case <-ctx.Done():
				h.stop.Store(true)
			case <-done:
			}
		}()
		defer func() {
			close(done)
			watcher.Wait()
		}()
	}

	included, excluded := h.included, h.excluded
	h.included, h.excluded = nil, nil
	h.finder.SetIncludedPaths(included)
	h.finder.SetExcludedPaths(excluded)

	logger.Debugf("Search starting: %d included, %d excluded", len(included), len(excluded))
	h.status.Store(int32(StatusRunning))
	outcome := h.finder.Search(h.stop, h.progress)
	if outcome == scanner.OutcomeStopped {
		h.status.Store(int32(StatusCancelled))
	} else {
		h.status.Store(int32(StatusCompleted))
	}
	return true
}

// Stop asks a running Search to return early. It may be called from any
// goroutine; a call made before Search starts is discarded by the reset.
func (h *Handle) Stop() {
	if h == nil || h.stop == nil {
		return
	}
	h.stop.Store(true)
}

// Status may be called from any goroutine.
func (h *Handle) Status() Status {
	if h == nil {
		return StatusInvalid
	}
	return Status(h.status.Load())
}
