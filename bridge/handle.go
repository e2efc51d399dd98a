// Package bridge wraps one duplicate search session behind a Handle whose
// lifetime is managed explicitly by the caller. It is the Go half of the C
// library in cmd/libdupfinder and is usable directly from Go.
//
// A Handle is not safe for concurrent use. The single exception is Stop (and
// Status), which may be called from another goroutine while Search runs.
package bridge

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unicode/utf8"

	"dupfinder/logger"
	"dupfinder/scanner"
)

const (
	DefaultMinimalCacheFileSize        = 1024 * 1024
	DefaultMinimalPrehashCacheFileSize = 1024 * 1024
	DefaultCaseSensitiveNameComparison = true
)

var (
	ErrNilHandle   = errors.New("nil or destroyed handle")
	ErrInvalidPath = errors.New("path is not valid UTF-8")
	ErrGroupIndex  = errors.New("group index out of range")
)

// Options configures a Handle at construction. The four caller choices of
// the C constructor are completed by the named defaults above.
type Options struct {
	Method                      CheckingMethod
	HashAlgorithm               HashAlgorithm
	IgnoreHardLinks             bool
	UseCache                    bool
	MinimalCacheFileSize        uint64
	MinimalPrehashCacheFileSize uint64
	CaseSensitiveNameComparison bool

	// Engine tuning; zero values keep the engine defaults.
	Concurrency    int
	MaxIOPerSecond int
	CacheDir       string
}

func DefaultOptions(method CheckingMethod, alg HashAlgorithm, ignoreHardLinks, useCache bool) Options {
	return Options{
		Method:                      method,
		HashAlgorithm:               alg,
		IgnoreHardLinks:             ignoreHardLinks,
		UseCache:                    useCache,
		MinimalCacheFileSize:        DefaultMinimalCacheFileSize,
		MinimalPrehashCacheFileSize: DefaultMinimalPrehashCacheFileSize,
		CaseSensitiveNameComparison: DefaultCaseSensitiveNameComparison,
	}
}

// Handle owns the engine, the stop flag and the paths queued for the next
// search.
type Handle struct {
	finder   *scanner.Finder
	stop     *atomic.Bool
	status   atomic.Int32
	progress scanner.ProgressFunc

	included []string
	excluded []string
}

// New creates a handle with the default engine parameters. It never fails.
func New(method CheckingMethod, alg HashAlgorithm, ignoreHardLinks, useCache bool) *Handle {
	return NewWithOptions(DefaultOptions(method, alg, ignoreHardLinks, useCache))
}

func NewWithOptions(opts Options) *Handle {
	if !opts.Method.Valid() || !opts.HashAlgorithm.Valid() {
		logger.Debugf("Handle created with undeclared tags: method=%s hash=%s", opts.Method, opts.HashAlgorithm)
	}
	params := scanner.NewParameters(
		opts.Method.engine(),
		opts.HashAlgorithm.engine(),
		opts.IgnoreHardLinks,
		opts.UseCache,
		opts.MinimalCacheFileSize,
		opts.MinimalPrehashCacheFileSize,
		opts.CaseSensitiveNameComparison,
	)
	finder := scanner.NewFinder(params)
	finder.SetConcurrency(opts.Concurrency)
	finder.SetMaxIOPerSecond(opts.MaxIOPerSecond)
	finder.SetCacheDir(opts.CacheDir)

	h := &Handle{finder: finder, stop: &atomic.Bool{}}
	h.status.Store(int32(StatusIdle))
	return h
}

// With runs fn with a fresh handle and destroys it afterwards.
func With(opts Options, fn func(*Handle) error) error {
	h := NewWithOptions(opts)
	defer h.Destroy()
	return fn(h)
}

// Destroy releases the engine and queued paths. Calling it on nil is a no-op;
// every other method on a destroyed handle returns its zero value.
func (h *Handle) Destroy() {
	if h == nil {
		return
	}
	h.finder = nil
	h.included = nil
	h.excluded = nil
	h.progress = nil
	h.status.Store(int32(StatusInvalid))
}

func (h *Handle) valid() bool {
	return h != nil && h.finder != nil
}

// Method returns the boundary tag the handle was created with. The second
// result is false for a nil handle or an undeclared tag.
func (h *Handle) Method() (CheckingMethod, bool) {
	if !h.valid() {
		return 0, false
	}
	return methodFromEngine(h.finder.Params().CheckMethod)
}

func (h *Handle) HashAlgorithm() (HashAlgorithm, bool) {
	if !h.valid() {
		return 0, false
	}
	return algorithmFromEngine(h.finder.Params().HashType)
}

// AddIncludePath queues a directory for the next search. Paths are neither
// deduplicated nor checked for existence.
func (h *Handle) AddIncludePath(path string) error {
	if err := h.checkPath(path); err != nil {
		return err
	}
	h.included = append(h.included, path)
	return nil
}

// AddExcludePath queues a directory to skip during the next search.
func (h *Handle) AddExcludePath(path string) error {
	if err := h.checkPath(path); err != nil {
		return err
	}
	h.excluded = append(h.excluded, path)
	return nil
}

// AddExcludedItem forwards a glob matched against file and directory paths.
func (h *Handle) AddExcludedItem(pattern string) error {
	if err := h.checkPath(pattern); err != nil {
		return err
	}
	h.finder.AddExcludedItem(pattern)
	return nil
}

// AddAllowedExtension restricts the search to the given extensions.
func (h *Handle) AddAllowedExtension(ext string) error {
	if err := h.checkPath(ext); err != nil {
		return err
	}
	h.finder.AddAllowedExtension(ext)
	return nil
}

func (h *Handle) checkPath(path string) error {
	if !h.valid() {
		return ErrNilHandle
	}
	if !utf8.ValidString(path) {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return nil
}

// PendingPaths returns copies of the queued include and exclude lists.
func (h *Handle) PendingPaths() (included, excluded []string) {
	if !h.valid() {
		return nil, nil
	}
	return append([]string(nil), h.included...), append([]string(nil), h.excluded...)
}

// SetRecursive, SetMinSize and SetMaxSize take effect in the engine
// immediately. An inverted size range is passed through unchanged.
func (h *Handle) SetRecursive(recursive bool) error {
	if !h.valid() {
		return ErrNilHandle
	}
	h.finder.SetRecursiveSearch(recursive)
	return nil
}

func (h *Handle) SetMinSize(size uint64) error {
	if !h.valid() {
		return ErrNilHandle
	}
	h.finder.SetMinimalFileSize(size)
	return nil
}

func (h *Handle) SetMaxSize(size uint64) error {
	if !h.valid() {
		return ErrNilHandle
	}
	h.finder.SetMaximalFileSize(size)
	return nil
}

// SetProgressFunc installs a callback invoked while Search runs.
func (h *Handle) SetProgressFunc(fn scanner.ProgressFunc) error {
	if !h.valid() {
		return ErrNilHandle
	}
	h.progress = fn
	return nil
}

// Information exposes the engine's statistics for the last search.
func (h *Handle) Information() scanner.Information {
	if !h.valid() {
		return scanner.Information{}
	}
	return h.finder.Information()
}
