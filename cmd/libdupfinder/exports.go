package main

/*
#include "dupfinder.h"
*/
import "C"

import (
	"dupfinder/bridge"
	"dupfinder/logger"
)

//export dupfinder_new
func dupfinder_new(method C.DFCheckingMethod, hashType C.DFHashType, ignoreHardLinks C.bool, useCache C.bool) C.DFHandle {
	defer guard("dupfinder_new")
	opts := bridge.DefaultOptions(
		bridge.CheckingMethod(method),
		bridge.HashAlgorithm(hashType),
		bool(ignoreHardLinks),
		bool(useCache),
	)
	opts.Concurrency = settings.Concurrency
	opts.MaxIOPerSecond = settings.MaxIOPerSecond
	opts.CacheDir = settings.CacheDir
	return newHandle(bridge.NewWithOptions(opts))
}

//export dupfinder_free
func dupfinder_free(h C.DFHandle) {
	defer guard("dupfinder_free")
	release(h).Destroy()
}

//export dupfinder_add_directory
func dupfinder_add_directory(h C.DFHandle, path *C.char) C.bool {
	defer guard("dupfinder_add_directory")
	return addText(h, path, (*bridge.Handle).AddIncludePath)
}

//export dupfinder_add_excluded_directory
func dupfinder_add_excluded_directory(h C.DFHandle, path *C.char) C.bool {
	defer guard("dupfinder_add_excluded_directory")
	return addText(h, path, (*bridge.Handle).AddExcludePath)
}

//export dupfinder_add_excluded_item
func dupfinder_add_excluded_item(h C.DFHandle, pattern *C.char) C.bool {
	defer guard("dupfinder_add_excluded_item")
	return addText(h, pattern, (*bridge.Handle).AddExcludedItem)
}

//export dupfinder_add_allowed_extension
func dupfinder_add_allowed_extension(h C.DFHandle, ext *C.char) C.bool {
	defer guard("dupfinder_add_allowed_extension")
	return addText(h, ext, (*bridge.Handle).AddAllowedExtension)
}

func addText(h C.DFHandle, text *C.char, add func(*bridge.Handle, string) error) C.bool {
	handle := lookup(h)
	value, ok := goString(text)
	if handle == nil || !ok {
		return false
	}
	if err := add(handle, value); err != nil {
		logger.Debugf("Rejected value: %v", err)
		return false
	}
	return true
}

//export dupfinder_set_recursive
func dupfinder_set_recursive(h C.DFHandle, recursive C.bool) {
	defer guard("dupfinder_set_recursive")
	_ = lookup(h).SetRecursive(bool(recursive))
}

//export dupfinder_set_min_size
func dupfinder_set_min_size(h C.DFHandle, size C.uint64_t) {
	defer guard("dupfinder_set_min_size")
	_ = lookup(h).SetMinSize(uint64(size))
}

//export dupfinder_set_max_size
func dupfinder_set_max_size(h C.DFHandle, size C.uint64_t) {
	defer guard("dupfinder_set_max_size")
	_ = lookup(h).SetMaxSize(uint64(size))
}

// dupfinder_search blocks until the scan completes or dupfinder_stop is
// observed. It returns false only for an invalid handle.
//
//export dupfinder_search
func dupfinder_search(h C.DFHandle) C.bool {
	defer guard("dupfinder_search")
	return C.bool(lookup(h).Search())
}

// dupfinder_stop may be called from any thread.
//
//export dupfinder_stop
func dupfinder_stop(h C.DFHandle) {
	defer guard("dupfinder_stop")
	lookup(h).Stop()
}

//export dupfinder_get_status
func dupfinder_get_status(h C.DFHandle) C.DFStatus {
	defer guard("dupfinder_get_status")
	return C.DFStatus(lookup(h).Status())
}

//export dupfinder_get_group_count
func dupfinder_get_group_count(h C.DFHandle) C.size_t {
	defer guard("dupfinder_get_group_count")
	return C.size_t(lookup(h).GroupCount())
}

//export dupfinder_get_wasted_space
func dupfinder_get_wasted_space(h C.DFHandle) C.uint64_t {
	defer guard("dupfinder_get_wasted_space")
	return C.uint64_t(lookup(h).WastedSpace())
}

// dupfinder_get_group copies one group into a new buffer that the caller
// releases with dupfinder_entries_free.
//
//export dupfinder_get_group
func dupfinder_get_group(h C.DFHandle, index C.size_t, outEntries **C.DFEntry, outCount *C.size_t) C.bool {
	defer guard("dupfinder_get_group")
	handle := lookup(h)
	if handle == nil || outEntries == nil || outCount == nil {
		return false
	}
	if uint64(index) >= uint64(handle.GroupCount()) {
		return false
	}
	group, err := handle.Group(int(index))
	if err != nil {
		logger.Debugf("dupfinder_get_group: %v", err)
		return false
	}
	entries, count := allocEntries(group)
	if entries == nil {
		return false
	}
	outstanding.Add(1)
	*outEntries = entries
	*outCount = count
	return true
}

//export dupfinder_entries_free
func dupfinder_entries_free(entries *C.DFEntry, count C.size_t) {
	defer guard("dupfinder_entries_free")
	if entries == nil {
		return
	}
	freeEntries(entries, count)
	outstanding.Add(-1)
}

// dupfinder_get_results copies every group at once. Release the result with
// dupfinder_results_free.
//
//export dupfinder_get_results
func dupfinder_get_results(h C.DFHandle) *C.DFResults {
	defer guard("dupfinder_get_results")
	set, err := lookup(h).Results()
	if err != nil {
		return nil
	}
	res := allocResults(set)
	if res != nil {
		outstanding.Add(1)
	}
	return res
}

//export dupfinder_results_free
func dupfinder_results_free(res *C.DFResults) {
	defer guard("dupfinder_results_free")
	if res == nil {
		return
	}
	freeResults(res)
	outstanding.Add(-1)
}

// dupfinder_outstanding_exports reports how many buffers from
// dupfinder_get_group and dupfinder_get_results have not been freed yet.
//
//export dupfinder_outstanding_exports
func dupfinder_outstanding_exports() C.int64_t {
	return C.int64_t(outstanding.Load())
}
