package scanner

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"dupfinder/hasher"
	"dupfinder/logger"

	"golang.org/x/time/rate"
)

type prehashKey struct {
	size    uint64
	prehash string
}

// groupByHash narrows the size groups to sets of byte-identical files: a
// prehash of the first bytes splits each size group, then a full hash
// confirms the remaining candidates.
func (f *Finder) groupByHash(stop *atomic.Bool, progress ProgressFunc) {
	var candidates []FileEntry
	for _, group := range f.filesBySize {
		candidates = append(candidates, group.Files...)
	}
	if len(candidates) == 0 || stop.Load() {
		return
	}

	caches := f.openCaches()
	defer caches.save()

	prehashes := f.hashFiles(stop, candidates, StagePrehash, caches.prehash, f.params.MinimalPrehashCacheFileSize, progress)

	buckets := make(map[prehashKey][]int)
	for i, sum := range prehashes {
		if sum == "" {
			continue
		}
		key := prehashKey{size: candidates[i].Size, prehash: sum}
		buckets[key] = append(buckets[key], i)
	}

	fullHashes := make([]string, len(candidates))
	var needFull []int
	for _, members := range buckets {
		if len(members) < 2 {
			continue
		}
		for _, idx := range members {
			// The prehash already covers the whole content of small files.
			if candidates[idx].Size <= hasher.PrehashSize {
				fullHashes[idx] = prehashes[idx]
			} else {
				needFull = append(needFull, idx)
			}
		}
	}
	sort.Ints(needFull)

	fullInput := make([]FileEntry, len(needFull))
	for i, idx := range needFull {
		fullInput[i] = candidates[idx]
	}
	computed := f.hashFiles(stop, fullInput, StageFullHash, caches.full, f.params.MinimalCacheFileSize, progress)
	for i, idx := range needFull {
		fullHashes[idx] = computed[i]
	}

	f.buildHashGroups(stop, candidates, fullHashes)
}

func (f *Finder) buildHashGroups(stop *atomic.Bool, candidates []FileEntry, fullHashes []string) {
	bySize := make(map[uint64]map[string][]FileEntry)
	for i, sum := range fullHashes {
		if sum == "" {
			continue
		}
		entry := candidates[i]
		entry.Hash = sum
		sets, ok := bySize[entry.Size]
		if !ok {
			sets = make(map[string][]FileEntry)
			bySize[entry.Size] = sets
		}
		sets[sum] = append(sets[sum], entry)
	}

	sizes := make([]uint64, 0, len(bySize))
	for size := range bySize {
		sizes = append(sizes, size)
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] < sizes[j] })

	groups := make([]HashGroup, 0, len(sizes))
	for _, size := range sizes {
		if stop.Load() {
			break
		}
		var sets [][]FileEntry
		for _, members := range bySize[size] {
			if len(members) < 2 {
				continue
			}
			sortEntries(members)
			sets = append(sets, members)
			f.information.NumberOfDuplicatedFilesByHash += duplicatedFiles(len(members))
			f.information.LostSpaceByHash += uint64(duplicatedFiles(len(members))) * size
		}
		if len(sets) == 0 {
			continue
		}
		sort.Slice(sets, func(i, j int) bool { return sets[i][0].Path < sets[j][0].Path })
		groups = append(groups, HashGroup{Size: size, Sets: sets})
		f.information.NumberOfGroupsByHash += len(sets)
	}
	f.filesByHash = groups
}

// hashFiles hashes files on a worker pool and returns one digest per input,
// empty where the file was skipped, failed or the search was stopped first.
func (f *Finder) hashFiles(stop *atomic.Bool, files []FileEntry, stage Stage, cache *hashCache, minCacheSize uint64, progress ProgressFunc) []string {
	hashes := make([]string, len(files))
	if len(files) == 0 {
		return hashes
	}

	var limit int64
	if stage == StagePrehash {
		limit = hasher.PrehashSize
	}

	var ioLimiter *rate.Limiter
	if f.maxIOPerSecond > 0 {
		ioLimiter = rate.NewLimiter(rate.Limit(f.maxIOPerSecond), f.maxIOPerSecond)
	}

	workers := maxInt(1, f.concurrency)
	tasks := make(chan int, workers)
	progressCh := make(chan int, maxInt(workers*4, 64))
	var progressWG sync.WaitGroup
	progressWG.Add(1)
	go func() {
		defer progressWG.Done()
		done := 0
		for delta := range progressCh {
			done += delta
			progress(Progress{Stage: stage, Current: done, Total: len(files)})
		}
	}()

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range tasks {
				if stop.Load() {
					continue
				}
				entry := files[idx]
				if sum, ok := cache.lookup(entry); ok {
					hashes[idx] = sum
					progressCh <- 1
					continue
				}
				if ioLimiter != nil {
					if err := ioLimiter.Wait(context.Background()); err != nil {
						logger.Debugf("I/O limiter: %v", err)
					}
				}
				sum, err := hasher.HashFile(entry.Path, f.params.HashType, limit)
				if err != nil {
					logger.Warnf("Failed to hash %s: %v", entry.Path, err)
				} else {
					hashes[idx] = sum
					if entry.Size >= minCacheSize {
						cache.store(entry, sum)
					}
				}
				progressCh <- 1
			}
		}()
	}

	for i := range files {
		if stop.Load() {
			break
		}
		tasks <- i
	}
	close(tasks)
	wg.Wait()
	close(progressCh)
	progressWG.Wait()
	return hashes
}
