package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// PathGuard answers containment queries against a fixed set of roots whose
// symlinks and relative forms are resolved once up front. Empty and missing
// roots are dropped, so "" never stands for the working directory.
type PathGuard struct {
	roots []string
}

func NewPathGuard(roots []string) *PathGuard {
	resolved := make([]string, 0, len(roots))
	for _, root := range roots {
		if strings.TrimSpace(root) == "" {
			continue
		}
		if _, err := os.Stat(root); err != nil {
			continue
		}
		if abs, ok := resolvePath(root); ok {
			resolved = append(resolved, abs)
		}
	}
	return &PathGuard{roots: resolved}
}

// Empty reports whether the guard has no usable roots.
func (g *PathGuard) Empty() bool {
	return g == nil || len(g.roots) == 0
}

func (g *PathGuard) Contains(path string) bool {
	if g.Empty() {
		return false
	}
	absPath, ok := resolvePath(path)
	if !ok {
		return false
	}
	for _, root := range g.roots {
		rel, err := filepath.Rel(root, absPath)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func resolvePath(path string) (string, bool) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		resolved = path
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return "", false
	}
	return abs, true
}
