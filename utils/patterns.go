package utils

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ItemMatcher filters individual files by excluded glob items and an optional
// extension allow-list.
type ItemMatcher struct {
	excludedItems     []string
	allowedExtensions map[string]struct{}
}

// NewItemMatcher drops invalid glob patterns; extensions are compared without
// the leading dot and case-insensitively.
func NewItemMatcher(excludedItems, allowedExtensions []string) *ItemMatcher {
	m := &ItemMatcher{
		excludedItems:     make([]string, 0, len(excludedItems)),
		allowedExtensions: make(map[string]struct{}, len(allowedExtensions)),
	}
	for _, pattern := range excludedItems {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" || !doublestar.ValidatePathPattern(pattern) {
			continue
		}
		m.excludedItems = append(m.excludedItems, pattern)
	}
	for _, ext := range allowedExtensions {
		ext = NormalizeExtension(ext)
		if ext != "" {
			m.allowedExtensions[ext] = struct{}{}
		}
	}
	return m
}

// NormalizeExtension lower-cases ext and strips whitespace and leading dots.
func NormalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(ext), "."))
}

func (m *ItemMatcher) ShouldInclude(path string) bool {
	if m == nil {
		return true
	}
	if len(m.allowedExtensions) > 0 {
		if _, ok := m.allowedExtensions[NormalizeExtension(filepath.Ext(path))]; !ok {
			return false
		}
	}
	return !m.Excluded(path)
}

// Excluded reports whether path matches any excluded item, either as a full
// path or by its base name.
func (m *ItemMatcher) Excluded(path string) bool {
	if m == nil {
		return false
	}
	base := filepath.Base(path)
	for _, pattern := range m.excludedItems {
		if ok, _ := doublestar.PathMatch(pattern, path); ok {
			return true
		}
		if ok, _ := doublestar.PathMatch(pattern, base); ok {
			return true
		}
	}
	return false
}
