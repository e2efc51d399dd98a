package bridge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dupfinder/logger"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestEnumCombinationsRoundTrip(t *testing.T) {
	methods := []CheckingMethod{MethodHash, MethodName, MethodSize, MethodSizeName}
	algorithms := []HashAlgorithm{HashBlake3, HashCrc32, HashXxh3}
	for _, method := range methods {
		for _, alg := range algorithms {
			h := New(method, alg, false, false)
			gotMethod, ok := h.Method()
			if !ok || gotMethod != method {
				t.Errorf("method %s: got %s (ok=%v)", method, gotMethod, ok)
			}
			gotAlg, ok := h.HashAlgorithm()
			if !ok || gotAlg != alg {
				t.Errorf("algorithm %s: got %s (ok=%v)", alg, gotAlg, ok)
			}
			h.Destroy()
		}
	}
}

func TestUndeclaredTags(t *testing.T) {
	logger.Init("error")
	root := t.TempDir()
	writeFile(t, root, "a", "same")
	writeFile(t, root, "b", "same")

	h := New(CheckingMethod(42), HashAlgorithm(9), false, false)
	defer h.Destroy()
	if _, ok := h.Method(); ok {
		t.Fatal("undeclared method should not map back")
	}
	if alg, ok := h.HashAlgorithm(); !ok || alg != HashBlake3 {
		t.Fatalf("expected blake3 fallback, got %s", alg)
	}
	if err := h.AddIncludePath(root); err != nil {
		t.Fatalf("add include: %v", err)
	}
	if !h.Search() {
		t.Fatal("search returned false")
	}
	if h.GroupCount() != 0 || h.WastedSpace() != 0 {
		t.Fatalf("undeclared method exported %d groups", h.GroupCount())
	}
}

func TestParseNames(t *testing.T) {
	for name, want := range map[string]CheckingMethod{
		"hash": MethodHash, "Name": MethodName, "size": MethodSize, "size-name": MethodSizeName,
	} {
		got, err := ParseCheckingMethod(name)
		if err != nil || got != want {
			t.Errorf("ParseCheckingMethod(%q) = %s, %v", name, got, err)
		}
	}
	if _, err := ParseCheckingMethod("fuzzy"); err == nil {
		t.Error("expected error for unknown method")
	}
	alg, err := ParseHashAlgorithm("xxh3")
	if err != nil || alg != HashXxh3 {
		t.Errorf("ParseHashAlgorithm(xxh3) = %s, %v", alg, err)
	}
	if _, err := ParseHashAlgorithm("md5"); err == nil {
		t.Error("expected error for unknown algorithm")
	}
}

func TestHashScenario(t *testing.T) {
	logger.Init("error")
	root := t.TempDir()
	content := "identical payload"
	writeFile(t, root, "one.bin", content)
	writeFile(t, root, "two.bin", content)
	writeFile(t, root, "nested/three.bin", content)
	writeFile(t, root, "other.bin", "something else entirely")

	err := With(DefaultOptions(MethodHash, HashBlake3, false, false), func(h *Handle) error {
		if err := h.AddIncludePath(root); err != nil {
			return err
		}
		if !h.Search() {
			return errors.New("search returned false")
		}
		if h.Status() != StatusCompleted {
			return fmt.Errorf("status %s", h.Status())
		}
		if h.GroupCount() != 1 {
			return fmt.Errorf("expected 1 group, got %d", h.GroupCount())
		}
		group, err := h.Group(0)
		if err != nil {
			return err
		}
		if len(group) != 3 {
			return fmt.Errorf("expected 3 entries, got %d", len(group))
		}
		for _, e := range group {
			if e.Hash == "" || e.Size != uint64(len(content)) || e.ModifiedDate == 0 {
				return fmt.Errorf("incomplete entry %+v", e)
			}
		}
		if h.WastedSpace() != 2*uint64(len(content)) {
			return fmt.Errorf("wasted space %d", h.WastedSpace())
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestNameScenarioHasEmptyFingerprints(t *testing.T) {
	logger.Init("error")
	root := t.TempDir()
	writeFile(t, root, "a/notes.txt", "first")
	writeFile(t, root, "b/notes.txt", "second version")
	writeFile(t, root, "c/other.txt", "x")

	h := New(MethodName, HashBlake3, false, false)
	defer h.Destroy()
	if err := h.AddIncludePath(root); err != nil {
		t.Fatal(err)
	}
	h.Search()
	if h.GroupCount() != 1 {
		t.Fatalf("expected 1 group, got %d", h.GroupCount())
	}
	group, err := h.Group(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(group) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(group))
	}
	for _, e := range group {
		if e.Hash != "" {
			t.Errorf("expected empty hash for %s, got %q", e.Path, e.Hash)
		}
	}
	if h.WastedSpace() != 0 {
		t.Errorf("name method should report no wasted space, got %d", h.WastedSpace())
	}
}

func TestResultsMatchesGroups(t *testing.T) {
	logger.Init("error")
	root := t.TempDir()
	writeFile(t, root, "a", "1234")
	writeFile(t, root, "b", "5678")
	writeFile(t, root, "c", "123456")
	writeFile(t, root, "d", "abcdef")
	writeFile(t, root, "e", "abcdef")

	h := New(MethodSize, HashBlake3, false, false)
	defer h.Destroy()
	_ = h.AddIncludePath(root)
	h.Search()

	set, err := h.Results()
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Groups) != h.GroupCount() || len(set.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(set.Groups))
	}
	if set.TotalFiles != 5 {
		t.Fatalf("expected 5 files, got %d", set.TotalFiles)
	}
	if set.WastedSpace != 4+2*6 {
		t.Fatalf("unexpected wasted space %d", set.WastedSpace)
	}
	for i, group := range set.Groups {
		lazy, err := h.Group(i)
		if err != nil {
			t.Fatal(err)
		}
		if len(lazy) != len(group) || lazy[0].Path != group[0].Path {
			t.Fatalf("group %d differs between exports", i)
		}
	}
}

func TestAccumulatorDrainsOnce(t *testing.T) {
	logger.Init("error")
	root := t.TempDir()
	writeFile(t, root, "a", "dup")
	writeFile(t, root, "b", "dup")

	h := New(MethodHash, HashCrc32, false, false)
	defer h.Destroy()
	if err := h.AddIncludePath(root); err != nil {
		t.Fatal(err)
	}
	if err := h.AddIncludePath(root); err != nil {
		t.Fatal(err)
	}
	if err := h.AddExcludePath(filepath.Join(root, "missing")); err != nil {
		t.Fatal(err)
	}
	included, excluded := h.PendingPaths()
	if len(included) != 2 || len(excluded) != 1 {
		t.Fatalf("expected queued paths without dedup, got %v %v", included, excluded)
	}

	h.Search()
	if h.GroupCount() != 1 {
		t.Fatalf("expected 1 group, got %d", h.GroupCount())
	}
	included, excluded = h.PendingPaths()
	if len(included) != 0 || len(excluded) != 0 {
		t.Fatalf("lists not drained: %v %v", included, excluded)
	}

	h.Search()
	if h.GroupCount() != 0 {
		t.Fatalf("second search without paths found %d groups", h.GroupCount())
	}
	if len(h.finder.IncludedPaths()) != 0 || len(h.finder.ExcludedPaths()) != 0 {
		t.Fatal("engine kept stale paths")
	}
}

func TestEmptyExcludePathExcludesNothing(t *testing.T) {
	logger.Init("error")
	root := t.TempDir()
	writeFile(t, root, "a.bin", "same bytes")
	writeFile(t, root, "b.bin", "same bytes")
	t.Chdir(root)

	h := New(MethodHash, HashBlake3, false, false)
	defer h.Destroy()
	if err := h.AddIncludePath(root); err != nil {
		t.Fatal(err)
	}
	if err := h.AddExcludePath(""); err != nil {
		t.Fatal(err)
	}
	h.Search()
	if h.GroupCount() != 1 || h.Information().ScannedFiles != 2 {
		t.Fatalf("empty exclude path hid files: groups=%d scanned=%d", h.GroupCount(), h.Information().ScannedFiles)
	}
}

func TestInvalidPathRejected(t *testing.T) {
	h := New(MethodHash, HashBlake3, false, false)
	defer h.Destroy()
	bad := string([]byte{'/', 't', 'm', 'p', '/', 0xff, 0xfe})
	if err := h.AddIncludePath(bad); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
	if err := h.AddExcludePath(bad); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
	if err := h.AddExcludedItem(bad); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
	included, excluded := h.PendingPaths()
	if len(included) != 0 || len(excluded) != 0 {
		t.Fatal("rejected path was queued")
	}
	if err := h.AddIncludePath("/tmp/valid"); err != nil {
		t.Fatalf("valid path rejected: %v", err)
	}
}

func TestGroupIndexOutOfRange(t *testing.T) {
	h := New(MethodHash, HashBlake3, false, false)
	defer h.Destroy()
	h.Search()
	for _, index := range []int{-1, 0, 5} {
		if _, err := h.Group(index); !errors.Is(err, ErrGroupIndex) {
			t.Errorf("index %d: expected ErrGroupIndex, got %v", index, err)
		}
	}
}

func TestNilAndDestroyedHandle(t *testing.T) {
	var nilHandle *Handle
	destroyed := New(MethodHash, HashBlake3, false, false)
	destroyed.Destroy()

	for name, h := range map[string]*Handle{"nil": nilHandle, "destroyed": destroyed} {
		if err := h.AddIncludePath("/tmp"); !errors.Is(err, ErrNilHandle) {
			t.Errorf("%s: AddIncludePath: %v", name, err)
		}
		if err := h.AddExcludePath("/tmp"); !errors.Is(err, ErrNilHandle) {
			t.Errorf("%s: AddExcludePath: %v", name, err)
		}
		if err := h.AddAllowedExtension("txt"); !errors.Is(err, ErrNilHandle) {
			t.Errorf("%s: AddAllowedExtension: %v", name, err)
		}
		if err := h.SetRecursive(false); !errors.Is(err, ErrNilHandle) {
			t.Errorf("%s: SetRecursive: %v", name, err)
		}
		if err := h.SetMinSize(1); !errors.Is(err, ErrNilHandle) {
			t.Errorf("%s: SetMinSize: %v", name, err)
		}
		if err := h.SetMaxSize(1); !errors.Is(err, ErrNilHandle) {
			t.Errorf("%s: SetMaxSize: %v", name, err)
		}
		if h.Search() {
			t.Errorf("%s: Search returned true", name)
		}
		h.Stop()
		if h.Status() != StatusInvalid {
			t.Errorf("%s: status %s", name, h.Status())
		}
		if h.GroupCount() != 0 || h.WastedSpace() != 0 {
			t.Errorf("%s: expected empty results", name)
		}
		if _, err := h.Group(0); !errors.Is(err, ErrNilHandle) {
			t.Errorf("%s: Group: %v", name, err)
		}
		if _, err := h.Results(); !errors.Is(err, ErrNilHandle) {
			t.Errorf("%s: Results: %v", name, err)
		}
		h.Destroy()
	}
}

func TestSizeBoundsForwarded(t *testing.T) {
	logger.Init("error")
	root := t.TempDir()
	writeFile(t, root, "small1", "ab")
	writeFile(t, root, "small2", "ab")
	writeFile(t, root, "large1", strings.Repeat("z", 100))
	writeFile(t, root, "large2", strings.Repeat("z", 100))

	h := New(MethodSize, HashBlake3, false, false)
	defer h.Destroy()
	_ = h.SetMinSize(10)
	_ = h.SetMaxSize(1000)
	_ = h.AddIncludePath(root)
	h.Search()
	if h.GroupCount() != 1 {
		t.Fatalf("expected only the large pair, got %d groups", h.GroupCount())
	}

	// An inverted range is not corrected and yields nothing.
	_ = h.SetMinSize(1000)
	_ = h.SetMaxSize(10)
	_ = h.AddIncludePath(root)
	h.Search()
	if h.GroupCount() != 0 {
		t.Fatalf("inverted range produced %d groups", h.GroupCount())
	}
}

// populate writes n files forming n/2 identical pairs spread over 50 sizes.
func populate(t *testing.T, root string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		k := i % (n / 2)
		writeFile(t, root, fmt.Sprintf("d%02d/f%04d", i%20, i), fmt.Sprintf("%0*d", 8+k%50, k))
	}
}

func TestStopFromAnotherGoroutine(t *testing.T) {
	logger.Init("error")
	root := t.TempDir()
	populate(t, root, 2000)

	full := New(MethodHash, HashBlake3, false, false)
	defer full.Destroy()
	_ = full.AddIncludePath(root)
	full.Search()
	fullCount := full.GroupCount()
	if fullCount != 50 {
		t.Fatalf("expected 50 size buckets in full run, got %d", fullCount)
	}
	if set, _ := full.Results(); set.TotalFiles != 2000 {
		t.Fatalf("expected every file in a set, got %d", set.TotalFiles)
	}

	h := New(MethodHash, HashBlake3, false, false)
	defer h.Destroy()
	_ = h.AddIncludePath(root)
	go func() {
		time.Sleep(time.Millisecond)
		h.Stop()
	}()
	if !h.Search() {
		t.Fatal("search returned false")
	}
	status := h.Status()
	if status != StatusCancelled && status != StatusCompleted {
		t.Fatalf("unexpected status %s", status)
	}
	if h.GroupCount() > fullCount {
		t.Fatalf("partial run found %d groups, more than %d", h.GroupCount(), fullCount)
	}

	// The flag is reset, so the next search runs to completion.
	_ = h.AddIncludePath(root)
	h.Search()
	if h.Status() != StatusCompleted || h.GroupCount() != fullCount {
		t.Fatalf("rerun: status %s, %d groups", h.Status(), h.GroupCount())
	}
}

func TestStopBeforeSearchIsDiscarded(t *testing.T) {
	logger.Init("error")
	root := t.TempDir()
	writeFile(t, root, "a", "same")
	writeFile(t, root, "b", "same")

	h := New(MethodHash, HashBlake3, false, false)
	defer h.Destroy()
	h.Stop()
	_ = h.AddIncludePath(root)
	h.Search()
	if h.Status() != StatusCompleted || h.GroupCount() != 1 {
		t.Fatalf("status %s, %d groups", h.Status(), h.GroupCount())
	}
}

func TestSearchContextCancelled(t *testing.T) {
	logger.Init("error")
	root := t.TempDir()
	populate(t, root, 400)

	h := New(MethodHash, HashBlake3, false, false)
	defer h.Destroy()
	_ = h.AddIncludePath(root)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if !h.SearchContext(ctx) {
		t.Fatal("search returned false")
	}
	if status := h.Status(); status != StatusCancelled && status != StatusCompleted {
		t.Fatalf("unexpected status %s", status)
	}
}

func TestCancelledContextDoesNotStopNextSearch(t *testing.T) {
	logger.Init("error")
	root := t.TempDir()
	writeFile(t, root, "a", "same")
	writeFile(t, root, "b", "same")

	h := New(MethodSize, HashBlake3, false, false)
	defer h.Destroy()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 200; i++ {
		_ = h.AddIncludePath(root)
		h.SearchContext(ctx)
		_ = h.AddIncludePath(root)
		h.Search()
		if h.Status() != StatusCompleted || h.GroupCount() != 1 {
			t.Fatalf("iteration %d: search after a cancelled context ended %s with %d groups", i, h.Status(), h.GroupCount())
		}
	}
}

func TestWithDestroysHandle(t *testing.T) {
	var kept *Handle
	err := With(DefaultOptions(MethodSize, HashCrc32, true, false), func(h *Handle) error {
		kept = h
		if h.Status() != StatusIdle {
			return fmt.Errorf("new handle status %s", h.Status())
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if kept.Status() != StatusInvalid {
		t.Fatalf("handle not destroyed: %s", kept.Status())
	}
}
