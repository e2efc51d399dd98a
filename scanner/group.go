package scanner

import (
	"sort"
	"sync/atomic"
)

func sortEntries(files []FileEntry) {
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
}

func duplicatedFiles(n int) int {
	if n < 2 {
		return 0
	}
	return n - 1
}

func (f *Finder) groupBySize(stop *atomic.Bool, files []FileEntry) {
	bySize := make(map[uint64][]FileEntry)
	for _, entry := range files {
		bySize[entry.Size] = append(bySize[entry.Size], entry)
	}
	sizes := make([]uint64, 0, len(bySize))
	for size, members := range bySize {
		if len(members) > 1 {
			sizes = append(sizes, size)
		}
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] < sizes[j] })

	groups := make([]SizeGroup, 0, len(sizes))
	for _, size := range sizes {
		if stop.Load() {
			break
		}
		members := bySize[size]
		sortEntries(members)
		groups = append(groups, SizeGroup{Size: size, Files: members})
		f.information.NumberOfGroupsBySize++
		f.information.NumberOfDuplicatedFilesBySize += duplicatedFiles(len(members))
		f.information.LostSpaceBySize += uint64(duplicatedFiles(len(members))) * size
	}
	f.filesBySize = groups
}

func (f *Finder) groupByName(stop *atomic.Bool, files []FileEntry) {
	byName := make(map[string][]FileEntry)
	for _, entry := range files {
		key := f.nameKey(entry.Path)
		byName[key] = append(byName[key], entry)
	}
	names := make([]string, 0, len(byName))
	for name, members := range byName {
		if len(members) > 1 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	groups := make([]NameGroup, 0, len(names))
	for _, name := range names {
		if stop.Load() {
			break
		}
		members := byName[name]
		sortEntries(members)
		groups = append(groups, NameGroup{Name: name, Files: members})
		f.information.NumberOfGroupsByName++
		f.information.NumberOfDuplicatedFilesByName += duplicatedFiles(len(members))
	}
	f.filesByName = groups
}

type sizeNameKey struct {
	size uint64
	name string
}

func (f *Finder) groupBySizeName(stop *atomic.Bool, files []FileEntry) {
	byKey := make(map[sizeNameKey][]FileEntry)
	for _, entry := range files {
		key := sizeNameKey{size: entry.Size, name: f.nameKey(entry.Path)}
		byKey[key] = append(byKey[key], entry)
	}
	keys := make([]sizeNameKey, 0, len(byKey))
	for key, members := range byKey {
		if len(members) > 1 {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].size != keys[j].size {
			return keys[i].size < keys[j].size
		}
		return keys[i].name < keys[j].name
	})

	groups := make([]SizeNameGroup, 0, len(keys))
	for _, key := range keys {
		if stop.Load() {
			break
		}
		members := byKey[key]
		sortEntries(members)
		groups = append(groups, SizeNameGroup{Size: key.size, Name: key.name, Files: members})
		f.information.NumberOfGroupsBySizeName++
		f.information.NumberOfDuplicatedFilesBySizeName += duplicatedFiles(len(members))
	}
	f.filesBySizeName = groups
}
