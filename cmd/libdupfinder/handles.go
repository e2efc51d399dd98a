package main

/*
#include "dupfinder.h"
*/
import "C"

import (
	"runtime/cgo"

	"dupfinder/bridge"
	"dupfinder/logger"
)

func newHandle(h *bridge.Handle) C.DFHandle {
	return C.DFHandle(cgo.NewHandle(h))
}

// lookup resolves h. Zero, freed and foreign values resolve to nil.
func lookup(h C.DFHandle) (handle *bridge.Handle) {
	if h == 0 {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Debugf("Invalid handle %#x", uintptr(h))
			handle = nil
		}
	}()
	handle, _ = cgo.Handle(h).Value().(*bridge.Handle)
	return handle
}

// release forgets h and returns the session it referred to.
func release(h C.DFHandle) *bridge.Handle {
	handle := lookup(h)
	if handle == nil {
		return nil
	}
	cgo.Handle(h).Delete()
	return handle
}

// guard keeps a panic from crossing into C. Deferred directly by each export.
func guard(name string) {
	if r := recover(); r != nil {
		logger.Errorf("%s: recovered from panic: %v", name, r)
	}
}
