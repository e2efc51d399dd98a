package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	EnvLogLevel    = "DUPFINDER_LOG_LEVEL"
	EnvCacheDir    = "DUPFINDER_CACHE_DIR"
	EnvConcurrency = "DUPFINDER_CONCURRENCY"
	EnvMaxIO       = "DUPFINDER_MAX_IO"
)

// Library holds the settings the shared library reads from its environment.
// Zero numeric values keep the engine defaults.
type Library struct {
	LogLevel       string
	CacheDir       string
	Concurrency    int
	MaxIOPerSecond int
	// Warnings describes ignored values; the caller logs them once logging is set up.
	Warnings []string
}

func FromEnv() Library {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) Library {
	lib := Library{LogLevel: "warn"}
	if v, ok := lookup(EnvLogLevel); ok {
		level := strings.ToLower(strings.TrimSpace(v))
		if validLogLevel(level) {
			lib.LogLevel = level
		} else {
			lib.Warnings = append(lib.Warnings, fmt.Sprintf("ignoring %s=%q: unknown level", EnvLogLevel, v))
		}
	}
	if v, ok := lookup(EnvCacheDir); ok {
		lib.CacheDir = strings.TrimSpace(v)
	}
	lib.Concurrency = lib.nonNegative(lookup, EnvConcurrency)
	lib.MaxIOPerSecond = lib.nonNegative(lookup, EnvMaxIO)
	return lib
}

func (lib *Library) nonNegative(lookup func(string) (string, bool), key string) int {
	v, ok := lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		lib.Warnings = append(lib.Warnings, fmt.Sprintf("ignoring %s=%q: expected a non-negative integer", key, v))
		return 0
	}
	return n
}
