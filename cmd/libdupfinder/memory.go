package main

/*
#include <stdlib.h>
#include "dupfinder.h"
*/
import "C"

import (
	"sync/atomic"
	"unsafe"

	"dupfinder/bridge"
)

// outstanding counts export buffers handed to C and not yet freed.
var outstanding atomic.Int64

func allocEntries(entries []bridge.Entry) (*C.DFEntry, C.size_t) {
	if len(entries) == 0 {
		return nil, 0
	}
	ptr := (*C.DFEntry)(C.calloc(C.size_t(len(entries)), C.size_t(C.sizeof_DFEntry)))
	if ptr == nil {
		return nil, 0
	}
	dst := unsafe.Slice(ptr, len(entries))
	for i, e := range entries {
		dst[i].path = C.CString(e.Path)
		dst[i].size = C.uint64_t(e.Size)
		dst[i].modified_date = C.uint64_t(e.ModifiedDate)
		dst[i].hash = C.CString(e.Hash)
	}
	return ptr, C.size_t(len(entries))
}

func freeEntries(ptr *C.DFEntry, count C.size_t) {
	if ptr == nil {
		return
	}
	for _, e := range unsafe.Slice(ptr, int(count)) {
		C.free(unsafe.Pointer(e.path))
		C.free(unsafe.Pointer(e.hash))
	}
	C.free(unsafe.Pointer(ptr))
}

func allocResults(set bridge.ResultSet) *C.DFResults {
	res := (*C.DFResults)(C.calloc(1, C.size_t(C.sizeof_DFResults)))
	if res == nil {
		return nil
	}
	n := len(set.Groups)
	if n > 0 {
		groups := (*C.DFGroup)(C.calloc(C.size_t(n), C.size_t(C.sizeof_DFGroup)))
		if groups == nil {
			C.free(unsafe.Pointer(res))
			return nil
		}
		dst := unsafe.Slice(groups, n)
		for i, group := range set.Groups {
			dst[i].entries, dst[i].count = allocEntries(group)
		}
		res.groups = groups
	}
	res.group_count = C.size_t(n)
	res.total_files = C.size_t(set.TotalFiles)
	res.wasted_space = C.uint64_t(set.WastedSpace)
	return res
}

func freeResults(res *C.DFResults) {
	if res == nil {
		return
	}
	if res.groups != nil {
		for _, group := range unsafe.Slice(res.groups, int(res.group_count)) {
			freeEntries(group.entries, group.count)
		}
		C.free(unsafe.Pointer(res.groups))
	}
	C.free(unsafe.Pointer(res))
}

// The helpers below give Go code outside cgo files, tests included, a way to
// build inputs and read exported buffers without naming C types.

func cString(s string) *C.char {
	return C.CString(s)
}

func freeCString(p *C.char) {
	C.free(unsafe.Pointer(p))
}

// goString copies a C string. A nil pointer reports false.
func goString(p *C.char) (string, bool) {
	if p == nil {
		return "", false
	}
	return C.GoString(p), true
}

// exportGroup calls dupfinder_get_group with Go-owned out slots.
func exportGroup(h C.DFHandle, index int) (*C.DFEntry, C.size_t, bool) {
	var entries *C.DFEntry
	var count C.size_t
	ok := dupfinder_get_group(h, C.size_t(index), &entries, &count)
	return entries, count, bool(ok)
}

func readEntries(ptr *C.DFEntry, count C.size_t) []bridge.Entry {
	if ptr == nil {
		return nil
	}
	src := unsafe.Slice(ptr, int(count))
	entries := make([]bridge.Entry, len(src))
	for i, e := range src {
		entries[i] = bridge.Entry{
			Path:         C.GoString(e.path),
			Size:         uint64(e.size),
			ModifiedDate: uint64(e.modified_date),
			Hash:         C.GoString(e.hash),
		}
	}
	return entries
}

func readResults(res *C.DFResults) bridge.ResultSet {
	if res == nil {
		return bridge.ResultSet{}
	}
	set := bridge.ResultSet{
		TotalFiles:  int(res.total_files),
		WastedSpace: uint64(res.wasted_space),
	}
	if res.groups == nil {
		return set
	}
	for _, group := range unsafe.Slice(res.groups, int(res.group_count)) {
		set.Groups = append(set.Groups, readEntries(group.entries, group.count))
	}
	return set
}

// addString passes s to one of the dupfinder_add_* functions.
func addString(h C.DFHandle, s string, add func(C.DFHandle, *C.char) C.bool) bool {
	p := C.CString(s)
	defer C.free(unsafe.Pointer(p))
	return bool(add(h, p))
}
