package utils

import "testing"

func TestShouldInclude(t *testing.T) {
	matcher := NewItemMatcher(nil, nil)
	if !matcher.ShouldInclude("file.txt") {
		t.Fatal("expected include by default")
	}
	matcher = NewItemMatcher(nil, []string{".JPG", "png"})
	if matcher.ShouldInclude("file.txt") {
		t.Fatal("should not include extension outside allow-list")
	}
	if !matcher.ShouldInclude("photo.jpg") {
		t.Fatal("should include allowed extension regardless of case")
	}
	if matcher.ShouldInclude("README") {
		t.Fatal("file without extension is not on the allow-list")
	}
	matcher = NewItemMatcher([]string{"secret.*"}, nil)
	if matcher.ShouldInclude("/data/secret.txt") {
		t.Fatal("should exclude matching base name")
	}
	if !matcher.ShouldInclude("/data/notes.txt") {
		t.Fatal("should include when exclude does not match")
	}
	matcher = NewItemMatcher([]string{"/data/**/cache/*"}, nil)
	if matcher.ShouldInclude("/data/a/b/cache/blob") {
		t.Fatal("should exclude matching full path glob")
	}
	if !matcher.ShouldInclude("/data/a/b/keep/blob") {
		t.Fatal("should include non-matching full path")
	}
}

func TestNilMatcher(t *testing.T) {
	var matcher *ItemMatcher
	if !matcher.ShouldInclude("anything") || matcher.Excluded("anything") {
		t.Fatal("nil matcher should include everything")
	}
}

func TestInvalidPatternsDropped(t *testing.T) {
	matcher := NewItemMatcher([]string{"[", "  "}, nil)
	if len(matcher.excludedItems) != 0 {
		t.Fatalf("expected invalid patterns to be dropped, got %v", matcher.excludedItems)
	}
}
