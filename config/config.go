package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"runtime"
	"strings"
	"time"

	"dupfinder/version"
)

type Config struct {
	Paths                       []string          `json:"paths"`
	ExcludedPaths               []string          `json:"excluded_paths"`
	ExcludedItems               []string          `json:"excluded_items"`
	AllowedExtensions           []string          `json:"allowed_extensions"`
	Method                      string            `json:"method"`
	HashType                    string            `json:"hash_type"`
	Recursive                   bool              `json:"recursive"`
	MinSize                     uint64            `json:"min_size"`
	MaxSize                     uint64            `json:"max_size"`
	IgnoreHardLinks             bool              `json:"ignore_hard_links"`
	UseCache                    bool              `json:"use_cache"`
	CacheDir                    string            `json:"cache_dir"`
	MinimalCacheFileSize        uint64            `json:"minimal_cache_file_size"`
	MinimalPrehashCacheFileSize uint64            `json:"minimal_prehash_cache_file_size"`
	CaseSensitiveNames          bool              `json:"case_sensitive_names"`
	ConcurrencyLevel            int               `json:"concurrency_level"`
	MaxIOPerSecond              int               `json:"max_io_per_second"`
	OutputFormat                string            `json:"output_format"`
	OutputFileName              string            `json:"output_file_name"`
	LogLevel                    string            `json:"log_level"`
	Progress                    bool              `json:"progress"`
	ConfigFile                  string            `json:"config_file"`
	Action                      string            `json:"action"`
	Select                      string            `json:"select"`
	InvertSelection             bool              `json:"invert_selection"`
	MoveTo                      string            `json:"move_to"`
	DryRun                      bool              `json:"dry_run"`
	DiagSlowScanThreshold       time.Duration     `json:"diag_slow_scan_threshold"`
	DiagDir                     string            `json:"diag_dir"`
	DiagGoroutineLeak           bool              `json:"diag_goroutine_leak"`
	TraceFlight                 bool              `json:"trace_flight"`
	TraceFlightFile             string            `json:"trace_flight_file"`
	TraceFlightMaxBytes         uint64            `json:"trace_flight_max_bytes"`
	TraceFlightMinAge           time.Duration     `json:"trace_flight_min_age"`
	OtelEndpoint                string            `json:"otel_endpoint"`
	OtelFromEnv                 bool              `json:"otel_from_env"`
	OtelHeaders                 map[string]string `json:"otel_headers"`
	OtelServiceName             string            `json:"otel_service_name"`
	OtelTimeout                 time.Duration     `json:"otel_timeout"`
	OtelExportPaths             bool              `json:"otel_export_paths"`
	ConcurrencySet              bool              `json:"-"`
}

func defaultConfig() *Config {
	now := time.Now().UTC()
	return &Config{
		Paths:                       []string{"."},
		ExcludedPaths:               []string{},
		ExcludedItems:               []string{},
		AllowedExtensions:           []string{},
		Method:                      "hash",
		HashType:                    "blake3",
		Recursive:                   true,
		MinSize:                     1,
		MaxSize:                     math.MaxUint64,
		UseCache:                    true,
		MinimalCacheFileSize:        1024 * 1024,
		MinimalPrehashCacheFileSize: 1024 * 1024,
		CaseSensitiveNames:          true,
		ConcurrencyLevel:            runtime.NumCPU(),
		MaxIOPerSecond:              0,
		OutputFormat:                "json",
		OutputFileName:              fmt.Sprintf("dupfinder-%s.json", now.Format("20060102-150405")),
		LogLevel:                    "info",
		Progress:                    true,
		Action:                      "none",
		Select:                      "duplicates",
		DiagDir:                     ".",
		TraceFlightFile:             "trace-flight.out",
		OtelHeaders:                 map[string]string{},
		OtelServiceName:             "dupfinder",
		OtelTimeout:                 5 * time.Second,
	}
}

func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	paths := flag.String("path", strings.Join(cfg.Paths, ","), fmt.Sprintf("Comma-separated list of directories to search (default: %s).", strings.Join(cfg.Paths, ",")))
	excludePaths := flag.String("exclude-path", "", "Comma-separated list of directories to skip (default: none).")
	excludeItems := flag.String("exclude-item", "", "Comma-separated list of glob patterns for files or directories to skip (default: none).")
	extensions := flag.String("ext", "", "Comma-separated list of allowed extensions (default: all).")
	method := flag.String("method", cfg.Method, "Checking method: hash, name, size or size_name (default: hash).")
	hashType := flag.String("hash", cfg.HashType, "Hash algorithm: blake3, crc32 or xxh3 (default: blake3).")
	recursive := flag.Bool("recursive", cfg.Recursive, fmt.Sprintf("Descend into subdirectories (default: %t).", cfg.Recursive))
	minSize := flag.Uint64("min-size", cfg.MinSize, fmt.Sprintf("Minimum file size in bytes (default: %d).", cfg.MinSize))
	maxSize := flag.Uint64("max-size", cfg.MaxSize, "Maximum file size in bytes (default: unlimited).")
	ignoreHardLinks := flag.Bool("ignore-hard-links", cfg.IgnoreHardLinks, fmt.Sprintf("Report only one path per hard-linked file (default: %t).", cfg.IgnoreHardLinks))
	useCache := flag.Bool("cache", cfg.UseCache, fmt.Sprintf("Reuse hashes from previous runs (default: %t).", cfg.UseCache))
	cacheDir := flag.String("cache-dir", "", "Hash cache directory (default: user cache directory).")
	caseSensitive := flag.Bool("case-sensitive", cfg.CaseSensitiveNames, fmt.Sprintf("Compare file names case-sensitively (default: %t).", cfg.CaseSensitiveNames))
	concurrency := flag.Int("concurrency", cfg.ConcurrencyLevel, fmt.Sprintf("Number of hashing workers (default: %d).", cfg.ConcurrencyLevel))
	maxIO := flag.Int("max-io-per-second", cfg.MaxIOPerSecond, "Maximum files opened for hashing per second, 0 for unlimited (default: 0).")
	format := flag.String("format", cfg.OutputFormat, "Output format: json, csv or text (default: json).")
	output := flag.String("output", cfg.OutputFileName, "Output file name, - for stdout (default: dupfinder-<timestamp>.json).")
	logLevel := flag.String("log-level", cfg.LogLevel, fmt.Sprintf("Log level: debug, info, warn, error, fatal, or panic (default: %s).", cfg.LogLevel))
	progress := flag.Bool("progress", cfg.Progress, fmt.Sprintf("Show a progress bar (default: %t).", cfg.Progress))
	configFile := flag.String("config", "", "Path to JSON configuration file (default: none).")
	action := flag.String("action", cfg.Action, "Action on selected duplicates: none, delete, trash, move, hardlink or symlink (default: none).")
	selectMode := flag.String("select", cfg.Select, "Files to select in each group: duplicates (all but the first), all or none (default: duplicates).")
	invertSelection := flag.Bool("invert-selection", cfg.InvertSelection, "Invert the selection before acting (default: false).")
	moveTo := flag.String("move-to", cfg.MoveTo, "Destination directory for --action move (default: none).")
	dryRun := flag.Bool("dry-run", cfg.DryRun, "Log what the action would do without changing files (default: false).")
	diagSlowScanThreshold := flag.Duration(
		"diag-slow-scan-threshold",
		cfg.DiagSlowScanThreshold,
		"If positive, emit diagnostics when search progress stalls for this duration (default: 0/off).",
	)
	diagDir := flag.String("diag-dir", cfg.DiagDir, "Diagnostics output directory (default: current directory).")
	diagGoroutineLeak := flag.Bool("diag-goroutine-leak", cfg.DiagGoroutineLeak, "Write goroutine profile on shutdown (default: false).")
	traceFlight := flag.Bool("trace-flight", cfg.TraceFlight, fmt.Sprintf("Enable flight recorder tracing (default: %t).", cfg.TraceFlight))
	traceFlightFile := flag.String("trace-flight-file", cfg.TraceFlightFile, fmt.Sprintf("Flight recorder output file (default: %s).", cfg.TraceFlightFile))
	traceFlightMaxBytes := flag.Uint64("trace-flight-max-bytes", cfg.TraceFlightMaxBytes, "Max bytes for flight recorder buffer (default: 0 for runtime default).")
	traceFlightMinAge := flag.Duration("trace-flight-min-age", cfg.TraceFlightMinAge, "Minimum age of trace events to retain (default: 0).")
	otelEndpoint := flag.String("otel-endpoint", cfg.OtelEndpoint, "OTLP/HTTP logs endpoint for duplicate groups (default: none).")
	otelFromEnv := flag.Bool("otel-from-env", cfg.OtelFromEnv, "Allow OTEL endpoint fallback from OTEL environment variables (default: false).")
	otelHeaders := flag.String("otel-headers", "", "Comma-separated OTEL headers (key=value) for export (default: none).")
	otelServiceName := flag.String("otel-service-name", cfg.OtelServiceName, "OTEL service name for export (default: dupfinder).")
	otelTimeout := flag.Duration("otel-timeout", cfg.OtelTimeout, "OTEL export timeout (default: 5s).")
	otelExportPaths := flag.Bool("otel-export-paths", cfg.OtelExportPaths, "Include file paths in OTEL payloads (default: false).")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Usage = displayHelp
	flag.Parse()

	if *showVersion {
		fmt.Printf("dupfinder version %s\n", version.Version)
		os.Exit(0)
	}

	if *configFile != "" {
		cfg.ConfigFile = *configFile
		if err := cfg.loadFromFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "path":
			cfg.Paths = parseCommaSeparated(*paths)
		case "exclude-path":
			cfg.ExcludedPaths = parseCommaSeparated(*excludePaths)
		case "exclude-item":
			cfg.ExcludedItems = parseCommaSeparated(*excludeItems)
		case "ext":
			cfg.AllowedExtensions = parseCommaSeparated(*extensions)
		case "method":
			cfg.Method = *method
		case "hash":
			cfg.HashType = *hashType
		case "recursive":
			cfg.Recursive = *recursive
		case "min-size":
			cfg.MinSize = *minSize
		case "max-size":
			cfg.MaxSize = *maxSize
		case "ignore-hard-links":
			cfg.IgnoreHardLinks = *ignoreHardLinks
		case "cache":
			cfg.UseCache = *useCache
		case "cache-dir":
			cfg.CacheDir = *cacheDir
		case "case-sensitive":
			cfg.CaseSensitiveNames = *caseSensitive
		case "concurrency":
			cfg.ConcurrencyLevel = *concurrency
			cfg.ConcurrencySet = true
		case "max-io-per-second":
			cfg.MaxIOPerSecond = *maxIO
		case "format":
			cfg.OutputFormat = *format
		case "output":
			cfg.OutputFileName = *output
		case "log-level":
			cfg.LogLevel = *logLevel
		case "progress":
			cfg.Progress = *progress
		case "action":
			cfg.Action = *action
		case "select":
			cfg.Select = *selectMode
		case "invert-selection":
			cfg.InvertSelection = *invertSelection
		case "move-to":
			cfg.MoveTo = *moveTo
		case "dry-run":
			cfg.DryRun = *dryRun
		case "diag-slow-scan-threshold":
			cfg.DiagSlowScanThreshold = *diagSlowScanThreshold
		case "diag-dir":
			cfg.DiagDir = *diagDir
		case "diag-goroutine-leak":
			cfg.DiagGoroutineLeak = *diagGoroutineLeak
		case "trace-flight":
			cfg.TraceFlight = *traceFlight
		case "trace-flight-file":
			cfg.TraceFlightFile = *traceFlightFile
		case "trace-flight-max-bytes":
			cfg.TraceFlightMaxBytes = *traceFlightMaxBytes
		case "trace-flight-min-age":
			cfg.TraceFlightMinAge = *traceFlightMinAge
		case "otel-endpoint":
			cfg.OtelEndpoint = *otelEndpoint
		case "otel-from-env":
			cfg.OtelFromEnv = *otelFromEnv
		case "otel-headers":
			cfg.OtelHeaders = parseHeaders(*otelHeaders)
		case "otel-service-name":
			cfg.OtelServiceName = *otelServiceName
		case "otel-timeout":
			cfg.OtelTimeout = *otelTimeout
		case "otel-export-paths":
			cfg.OtelExportPaths = *otelExportPaths
		}
	})
	if args := flag.Args(); len(args) > 0 {
		cfg.Paths = append(cfg.Paths[:0:0], args...)
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func displayHelp() {
	fmt.Println("dupfinder - find duplicate files")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  dupfinder [options] [directory ...]")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  dupfinder --path \"$HOME/Pictures\" --ext jpg,png")
	fmt.Println("  dupfinder --method name --case-sensitive=false /srv/share")
	fmt.Println("  dupfinder --hash xxh3 --format csv --output dups.csv /data")
	fmt.Println("  dupfinder --action hardlink --dry-run /srv/media")
}

func (cfg *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read config file: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid config file format: %v", err)
	}
	if _, ok := raw["concurrency_level"]; ok {
		cfg.ConcurrencySet = true
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("invalid config file format: %v", err)
	}
	return nil
}

func (cfg *Config) normalize() {
	cfg.Method = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(cfg.Method)), "-", "_")
	cfg.HashType = strings.ToLower(strings.TrimSpace(cfg.HashType))
	cfg.OutputFormat = strings.ToLower(strings.TrimSpace(cfg.OutputFormat))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.Action = strings.ToLower(strings.TrimSpace(cfg.Action))
	cfg.Select = strings.ToLower(strings.TrimSpace(cfg.Select))
	if cfg.Action == "" {
		cfg.Action = "none"
	}
	if cfg.Select == "" {
		cfg.Select = "duplicates"
	}
	if cfg.Method == "" {
		cfg.Method = "hash"
	}
	if cfg.HashType == "" {
		cfg.HashType = "blake3"
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "json"
	}
	if strings.TrimSpace(cfg.DiagDir) == "" {
		cfg.DiagDir = "."
	}
	if cfg.TraceFlight && cfg.TraceFlightFile == "" {
		cfg.TraceFlightFile = "trace-flight.out"
	}
	if len(cfg.Paths) == 0 {
		cfg.Paths = []string{"."}
	}
}

func (cfg *Config) validate() error {
	if len(cfg.Paths) == 0 {
		return fmt.Errorf("at least one directory must be specified")
	}
	switch cfg.Method {
	case "hash", "name", "size", "size_name":
	default:
		return fmt.Errorf("invalid method: %s", cfg.Method)
	}
	switch cfg.HashType {
	case "blake3", "crc32", "xxh3":
	default:
		return fmt.Errorf("invalid hash algorithm: %s", cfg.HashType)
	}
	switch cfg.OutputFormat {
	case "json", "csv", "text":
	default:
		return fmt.Errorf("invalid output format: %s (json, csv or text)", cfg.OutputFormat)
	}
	switch cfg.Action {
	case "none", "delete", "trash", "move":
	case "hardlink", "symlink":
		if cfg.Method != "hash" {
			return fmt.Errorf("action %s requires method hash", cfg.Action)
		}
	default:
		return fmt.Errorf("invalid action: %s", cfg.Action)
	}
	if cfg.Action == "move" && strings.TrimSpace(cfg.MoveTo) == "" {
		return fmt.Errorf("action move requires --move-to")
	}
	switch cfg.Select {
	case "duplicates", "all", "none":
	default:
		return fmt.Errorf("invalid selection: %s (duplicates, all or none)", cfg.Select)
	}
	if cfg.MaxSize < cfg.MinSize {
		return fmt.Errorf("max-size %d is smaller than min-size %d", cfg.MaxSize, cfg.MinSize)
	}
	if cfg.ConcurrencyLevel <= 0 {
		return fmt.Errorf("concurrency level must be positive")
	}
	if cfg.MaxIOPerSecond < 0 {
		return fmt.Errorf("max-io-per-second must be zero or positive")
	}
	if cfg.DiagSlowScanThreshold < 0 {
		return fmt.Errorf("diag-slow-scan-threshold must be zero or positive")
	}
	if cfg.TraceFlightMinAge < 0 {
		return fmt.Errorf("trace-flight-min-age must be zero or positive")
	}
	if cfg.OtelTimeout < 0 {
		return fmt.Errorf("otel-timeout must be zero or positive")
	}
	if cfg.OtelEndpoint != "" {
		if !strings.HasPrefix(cfg.OtelEndpoint, "http://") && !strings.HasPrefix(cfg.OtelEndpoint, "https://") {
			return fmt.Errorf("otel-endpoint must include scheme (http or https)")
		}
	}
	if !validLogLevel(cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	return nil
}

func validLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error", "fatal", "panic":
		return true
	}
	return false
}

func parseCommaSeparated(input string) []string {
	if input == "" {
		return []string{}
	}
	items := strings.Split(input, ",")
	for i, item := range items {
		items[i] = strings.TrimSpace(item)
	}
	return items
}

func parseHeaders(input string) map[string]string {
	headers := make(map[string]string)
	if input == "" {
		return headers
	}
	for _, item := range strings.Split(input, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.SplitN(item, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}
		headers[key] = strings.TrimSpace(parts[1])
	}
	return headers
}
