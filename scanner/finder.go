package scanner

import (
	"math"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"dupfinder/logger"
	"dupfinder/utils"
)

const (
	DefaultMinimalFileSize = 1
	DefaultMaximalFileSize = math.MaxUint64
)

// Finder groups duplicate files under the configured directories. A Finder is
// not safe for concurrent use except for the stop flag passed to Search.
type Finder struct {
	params Parameters

	includedPaths     []string
	excludedPaths     []string
	excludedItems     []string
	allowedExtensions []string
	recursive         bool
	minimalFileSize   uint64
	maximalFileSize   uint64
	concurrency       int
	maxIOPerSecond    int
	cacheDir          string

	walker walker

	information     Information
	filesBySize     []SizeGroup
	filesByName     []NameGroup
	filesBySizeName []SizeNameGroup
	filesByHash     []HashGroup
}

func NewFinder(params Parameters) *Finder {
	return &Finder{
		params:          params,
		recursive:       true,
		minimalFileSize: DefaultMinimalFileSize,
		maximalFileSize: DefaultMaximalFileSize,
		concurrency:     defaultConcurrency(),
		walker:          stackWalker{},
	}
}

func (f *Finder) Params() Parameters { return f.params }

func (f *Finder) SetIncludedPaths(paths []string) { f.includedPaths = paths }
func (f *Finder) SetExcludedPaths(paths []string) { f.excludedPaths = paths }
func (f *Finder) IncludedPaths() []string         { return f.includedPaths }
func (f *Finder) ExcludedPaths() []string         { return f.excludedPaths }

func (f *Finder) AddExcludedItem(pattern string) {
	f.excludedItems = append(f.excludedItems, pattern)
}

func (f *Finder) AddAllowedExtension(ext string) {
	f.allowedExtensions = append(f.allowedExtensions, ext)
}

func (f *Finder) SetRecursiveSearch(recursive bool) { f.recursive = recursive }
func (f *Finder) SetMinimalFileSize(size uint64)    { f.minimalFileSize = size }
func (f *Finder) SetMaximalFileSize(size uint64)    { f.maximalFileSize = size }

// SetConcurrency sets the number of hashing workers; values below one keep the default.
func (f *Finder) SetConcurrency(n int) {
	if n > 0 {
		f.concurrency = n
	}
}

// SetMaxIOPerSecond limits how many files per second are opened for hashing.
// Zero disables the limit.
func (f *Finder) SetMaxIOPerSecond(n int) {
	if n >= 0 {
		f.maxIOPerSecond = n
	}
}

// SetCacheDir overrides where hash caches are stored.
func (f *Finder) SetCacheDir(dir string) { f.cacheDir = dir }

func (f *Finder) Information() Information         { return f.information }
func (f *Finder) FilesBySize() []SizeGroup         { return f.filesBySize }
func (f *Finder) FilesByName() []NameGroup         { return f.filesByName }
func (f *Finder) FilesBySizeName() []SizeNameGroup { return f.filesBySizeName }
func (f *Finder) FilesByHash() []HashGroup         { return f.filesByHash }

// Search runs synchronously and replaces any previous results. It polls stop
// between directory entries, files hashed and groups formed; when stop is set
// the groups built from the work done so far are kept and OutcomeStopped is
// returned.
func (f *Finder) Search(stop *atomic.Bool, progress ProgressFunc) Outcome {
	if stop == nil {
		stop = &atomic.Bool{}
	}
	if progress == nil {
		progress = func(Progress) {}
	}
	f.resetResults()

	start := time.Now()
	method := f.params.CheckMethod
	if method == MethodNone {
		logger.Debug("Search skipped: no checking method")
		return OutcomeCompleted
	}

	files := f.collect(stop, progress)
	f.information.ScannedFiles = len(files)

	switch method {
	case MethodName:
		f.groupByName(stop, files)
	case MethodSizeName:
		f.groupBySizeName(stop, files)
	case MethodSize:
		f.groupBySize(stop, files)
	case MethodHash:
		f.groupBySize(stop, files)
		f.groupByHash(stop, progress)
	default:
		logger.Warnf("Unknown checking method %s", method)
	}

	outcome := OutcomeCompleted
	if stop.Load() {
		outcome = OutcomeStopped
	}
	logger.WithFields(map[string]interface{}{
		"method":   method.String(),
		"files":    len(files),
		"outcome":  outcome.String(),
		"duration": time.Since(start).Round(time.Millisecond).String(),
	}).Info("Duplicate search finished")
	return outcome
}

func (f *Finder) resetResults() {
	f.information = Information{}
	f.filesBySize = nil
	f.filesByName = nil
	f.filesBySizeName = nil
	f.filesByHash = nil
}

func (f *Finder) nameKey(path string) string {
	name := filepath.Base(path)
	if !f.params.CaseSensitiveNameComparison {
		return strings.ToLower(name)
	}
	return name
}

func (f *Finder) itemMatcher() *utils.ItemMatcher {
	return utils.NewItemMatcher(f.excludedItems, f.allowedExtensions)
}
