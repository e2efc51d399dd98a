package bridge

import (
	"fmt"

	"dupfinder/scanner"
)

// Entry is one exported file. Hash is empty unless the method is MethodHash.
type Entry struct {
	Path         string `json:"path"`
	Size         uint64 `json:"size"`
	ModifiedDate uint64 `json:"modified_date"`
	Hash         string `json:"hash"`
}

// ResultSet is every group of the last search exported at once.
type ResultSet struct {
	Groups      [][]Entry `json:"groups"`
	TotalFiles  int       `json:"total_files"`
	WastedSpace uint64    `json:"wasted_space"`
}

// GroupCount returns the number of groups for the handle's method. Hash
// groups are counted per size bucket.
func (h *Handle) GroupCount() int {
	if !h.valid() {
		return 0
	}
	switch h.finder.Params().CheckMethod {
	case scanner.MethodHash:
		return len(h.finder.FilesByHash())
	case scanner.MethodName:
		return len(h.finder.FilesByName())
	case scanner.MethodSize:
		return len(h.finder.FilesBySize())
	case scanner.MethodSizeName:
		return len(h.finder.FilesBySizeName())
	default:
		return 0
	}
}

// WastedSpace is the engine's lost-space statistic. Name and SizeName do not
// compute one and report zero.
func (h *Handle) WastedSpace() uint64 {
	if !h.valid() {
		return 0
	}
	info := h.finder.Information()
	switch h.finder.Params().CheckMethod {
	case scanner.MethodHash:
		return info.LostSpaceByHash
	case scanner.MethodSize:
		return info.LostSpaceBySize
	default:
		return 0
	}
}

// Group returns a copy of the group at index in the engine's order.
func (h *Handle) Group(index int) ([]Entry, error) {
	if !h.valid() {
		return nil, ErrNilHandle
	}
	count := h.GroupCount()
	if index < 0 || index >= count {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrGroupIndex, index, count)
	}

	switch h.finder.Params().CheckMethod {
	case scanner.MethodHash:
		return toEntries(h.finder.FilesByHash()[index].Files(), true), nil
	case scanner.MethodName:
		return toEntries(h.finder.FilesByName()[index].Files, false), nil
	case scanner.MethodSize:
		return toEntries(h.finder.FilesBySize()[index].Files, false), nil
	default:
		return toEntries(h.finder.FilesBySizeName()[index].Files, false), nil
	}
}

// Results exports every group.
func (h *Handle) Results() (ResultSet, error) {
	if !h.valid() {
		return ResultSet{}, ErrNilHandle
	}
	count := h.GroupCount()
	set := ResultSet{
		Groups:      make([][]Entry, 0, count),
		WastedSpace: h.WastedSpace(),
	}
	for i := 0; i < count; i++ {
		group, err := h.Group(i)
		if err != nil {
			return ResultSet{}, err
		}
		set.Groups = append(set.Groups, group)
		set.TotalFiles += len(group)
	}
	return set, nil
}

func toEntries(files []scanner.FileEntry, withHash bool) []Entry {
	entries := make([]Entry, len(files))
	for i, f := range files {
		entries[i] = Entry{
			Path:         f.Path,
			Size:         f.Size,
			ModifiedDate: f.ModifiedDate,
		}
		if withHash {
			entries[i].Hash = f.Hash
		}
	}
	return entries
}
