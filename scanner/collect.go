package scanner

import (
	"io/fs"
	"sync/atomic"

	"dupfinder/logger"
	"dupfinder/utils"
)

const collectProgressEvery = 256

// collect walks every included directory and returns the regular files that
// pass the exclusion, extension and size filters. Each path is reported once;
// with IgnoreHardLinks only the first path seen per file identity is kept.
func (f *Finder) collect(stop *atomic.Bool, progress ProgressFunc) []FileEntry {
	excluded := utils.NewPathGuard(f.excludedPaths)
	matcher := f.itemMatcher()

	var files []FileEntry
	seenPaths := make(map[string]struct{})
	seenIDs := make(map[fileID]struct{})

	for _, root := range f.includedPaths {
		if stop.Load() {
			break
		}
		if excluded.Contains(root) {
			logger.Debugf("Skipping excluded include path %s", root)
			continue
		}
		err := f.walker.Walk(stop, root, f.recursive, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				logger.Warnf("Failed to access %s: %v", path, err)
				return nil
			}
			if d == nil {
				return nil
			}
			if d.IsDir() {
				if path != root && (excluded.Contains(path) || matcher.Excluded(path)) {
					return fs.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || !matcher.ShouldInclude(path) {
				return nil
			}
			if _, dup := seenPaths[path]; dup {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				logger.Warnf("Failed to stat %s: %v", path, err)
				return nil
			}
			size := uint64(info.Size())
			if size < f.minimalFileSize || size > f.maximalFileSize {
				return nil
			}
			if f.params.IgnoreHardLinks {
				if id, ok := getFileID(path, info); ok {
					if _, linked := seenIDs[id]; linked {
						return nil
					}
					seenIDs[id] = struct{}{}
				}
			}
			seenPaths[path] = struct{}{}
			files = append(files, FileEntry{
				Path:         path,
				Size:         size,
				ModifiedDate: modifiedDate(info),
			})
			if len(files)%collectProgressEvery == 0 {
				progress(Progress{Stage: StageCollecting, Current: len(files)})
			}
			return nil
		})
		if err != nil && err != errStopped {
			logger.Warnf("Error walking path %s: %v", root, err)
		}
	}
	progress(Progress{Stage: StageCollecting, Current: len(files)})
	return files
}
