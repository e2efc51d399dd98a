package scanner

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
)

var errStopped = errors.New("search stopped")

type walker interface {
	Walk(stop *atomic.Bool, startPath string, recursive bool, fn fs.WalkDirFunc) error
}

// stackWalker visits startPath depth-first with an explicit stack. Without
// recursion only the direct children of startPath are visited; nested
// directories are still reported to fn but never read.
type stackWalker struct{}

func (w stackWalker) Walk(stop *atomic.Bool, startPath string, recursive bool, fn fs.WalkDirFunc) error {
	info, err := os.Stat(startPath)
	if err != nil {
		return fn(startPath, nil, err)
	}
	root := fs.FileInfoToDirEntry(info)
	type item struct {
		path  string
		entry fs.DirEntry
		depth int
	}
	stack := []item{{path: startPath, entry: root}}
	for len(stack) > 0 {
		if stop.Load() {
			return errStopped
		}

		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := fn(current.path, current.entry, nil); err != nil {
			if err == fs.SkipDir {
				continue
			}
			return err
		}
		if !current.entry.IsDir() {
			continue
		}
		if current.depth > 0 && !recursive {
			continue
		}

		entries, err := os.ReadDir(current.path)
		if err != nil {
			if ferr := fn(current.path, current.entry, err); ferr != nil && ferr != fs.SkipDir {
				return ferr
			}
			continue
		}
		for i := len(entries) - 1; i >= 0; i-- {
			child := entries[i]
			stack = append(stack, item{
				path:  filepath.Join(current.path, child.Name()),
				entry: child,
				depth: current.depth + 1,
			})
		}
	}
	return nil
}
