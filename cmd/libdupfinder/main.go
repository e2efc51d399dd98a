// Command libdupfinder is the C shared library around package bridge.
//
//	go build -buildmode=c-shared -o libdupfinder.so ./cmd/libdupfinder
//
// The generated libdupfinder.h declares every dupfinder_* function; the types
// it uses live in dupfinder.h.
package main

import (
	"dupfinder/config"
	"dupfinder/logger"
)

var settings config.Library

func init() {
	settings = config.FromEnv()
	logger.Init(settings.LogLevel)
	for _, warning := range settings.Warnings {
		logger.Warn(warning)
	}
}

func main() {}
