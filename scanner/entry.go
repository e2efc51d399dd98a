package scanner

import "fmt"

// CheckingMethod selects the key files are grouped by.
type CheckingMethod int

const (
	MethodNone CheckingMethod = iota
	MethodName
	MethodSizeName
	MethodSize
	MethodHash
)

func (m CheckingMethod) String() string {
	switch m {
	case MethodNone:
		return "none"
	case MethodName:
		return "name"
	case MethodSizeName:
		return "size_name"
	case MethodSize:
		return "size"
	case MethodHash:
		return "hash"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// FileEntry is one candidate file. Hash is only set by the hash method.
type FileEntry struct {
	Path         string `json:"path"`
	Size         uint64 `json:"size"`
	ModifiedDate uint64 `json:"modified_date"`
	Hash         string `json:"hash,omitempty"`
}

type SizeGroup struct {
	Size  uint64      `json:"size"`
	Files []FileEntry `json:"files"`
}

type NameGroup struct {
	Name  string      `json:"name"`
	Files []FileEntry `json:"files"`
}

type SizeNameGroup struct {
	Size  uint64      `json:"size"`
	Name  string      `json:"name"`
	Files []FileEntry `json:"files"`
}

// HashGroup holds every set of identical files that share Size. Each set has
// at least two members with the same full-content hash.
type HashGroup struct {
	Size uint64        `json:"size"`
	Sets [][]FileEntry `json:"sets"`
}

// Files returns the sets of g concatenated in order.
func (g HashGroup) Files() []FileEntry {
	total := 0
	for _, set := range g.Sets {
		total += len(set)
	}
	files := make([]FileEntry, 0, total)
	for _, set := range g.Sets {
		files = append(files, set...)
	}
	return files
}

// Information holds the statistics of the last search.
type Information struct {
	ScannedFiles                      int    `json:"scanned_files"`
	NumberOfGroupsBySize              int    `json:"number_of_groups_by_size"`
	NumberOfDuplicatedFilesBySize     int    `json:"number_of_duplicated_files_by_size"`
	NumberOfGroupsByName              int    `json:"number_of_groups_by_name"`
	NumberOfDuplicatedFilesByName     int    `json:"number_of_duplicated_files_by_name"`
	NumberOfGroupsBySizeName          int    `json:"number_of_groups_by_size_name"`
	NumberOfDuplicatedFilesBySizeName int    `json:"number_of_duplicated_files_by_size_name"`
	NumberOfGroupsByHash              int    `json:"number_of_groups_by_hash"`
	NumberOfDuplicatedFilesByHash     int    `json:"number_of_duplicated_files_by_hash"`
	LostSpaceBySize                   uint64 `json:"lost_space_by_size"`
	LostSpaceByHash                   uint64 `json:"lost_space_by_hash"`
}

// Outcome tells whether a search ran to completion.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeStopped
)

func (o Outcome) String() string {
	if o == OutcomeStopped {
		return "stopped"
	}
	return "completed"
}

// Stage identifies the phase reported through ProgressFunc.
type Stage int

const (
	StageCollecting Stage = iota
	StagePrehash
	StageFullHash
)

func (s Stage) String() string {
	switch s {
	case StageCollecting:
		return "collecting"
	case StagePrehash:
		return "prehash"
	case StageFullHash:
		return "full hash"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Progress is a snapshot of search progress. Total is zero while collecting.
type Progress struct {
	Stage   Stage
	Current int
	Total   int
}

// ProgressFunc is called from a single goroutine while Search runs.
type ProgressFunc func(Progress)
