// Package settings loads process settings from TOML files.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"

	DefaultEncoding       = "utf-8"
	DefaultMaxBufferBytes = 131072

	defaultHTTPTimeoutSec = 10
	defaultDebounceMS     = 250
	defaultRetryInitialMS = 500
	defaultRetryMaxMS     = 60000
)

// Config is the full process settings snapshot.
// Params: decoded TOML sections.
// Returns: validated runtime settings.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Sources  SourcesConfig  `toml:"sources"`
	Throttle ThrottleConfig `toml:"throttle"`
	HTTP     HTTPConfig     `toml:"http"`
	Notify   NotifyConfig   `toml:"notify"`
	Watch    WatchConfig    `toml:"watch"`
}

// LogConfig contains console/file logging sinks.
// Params: sink settings for each output target.
// Returns: logger setup options.
type LogConfig struct {
	Console LogSinkConfig `toml:"console"`
	File    LogSinkConfig `toml:"file"`
}

// LogSinkConfig defines one logging sink.
// Params: sink enable flag, level, format, and path.
// Returns: sink-specific behavior.
type LogSinkConfig struct {
	Enabled bool   `toml:"enabled"`
	Level   string `toml:"level"`
	Format  string `toml:"format"`
	Path    string `toml:"path"`
}

// SourcesConfig lists configuration sources loaded at startup.
// Params: source URLs or paths, default search toggle, decoding limits, and tags.
// Returns: manager bootstrap options.
type SourcesConfig struct {
	Paths          []string `toml:"paths"`
	SearchDefaults *bool    `toml:"search_defaults"`
	Encoding       string   `toml:"encoding"`
	MaxBufferBytes int64    `toml:"max_buffer_bytes"`
	Tag            []string `toml:"tag"`
}

// UseSearchDefaults reports whether default search paths should be added.
// Unset means true only when no explicit paths are configured.
func (s SourcesConfig) UseSearchDefaults() bool {
	if s.SearchDefaults != nil {
		return *s.SearchDefaults
	}
	return len(s.Paths) == 0
}

// ThrottleConfig spaces remote I/O.
type ThrottleConfig struct {
	IntervalMS int `toml:"interval_ms"`
	Burst      int `toml:"burst"`
}

// HTTPConfig configures remote config sources.
type HTTPConfig struct {
	TimeoutSec int `toml:"timeout_sec"`
}

// NotifyConfig configures delivery.
type NotifyConfig struct {
	Retry RetryConfig `toml:"retry"`
}

// RetryConfig configures outbound delivery retries.
// Params: retry toggle, backoff, attempt limits, and logging.
// Returns: retry policy for notifications.
type RetryConfig struct {
	Enabled        bool   `toml:"enabled"`
	Backoff        string `toml:"backoff"`
	InitialMS      int    `toml:"initial_ms"`
	MaxMS          int    `toml:"max_ms"`
	MaxAttempts    int    `toml:"max_attempts"`
	LogEachAttempt bool   `toml:"log_each_attempt"`
}

// WatchConfig configures file-change reloads.
type WatchConfig struct {
	DebounceMS int `toml:"debounce_ms"`
}

// Source describes file or directory settings source.
// Params: at most one of file path or directory path; neither means defaults.
// Returns: normalized source descriptor.
type Source struct {
	File string
	Dir  string
}

// FromCLI builds normalized source configuration from input paths.
// Params: optional file and directory arguments.
// Returns: source descriptor or validation error.
func FromCLI(filePath, dirPath string) (Source, error) {
	filePath = strings.TrimSpace(filePath)
	dirPath = strings.TrimSpace(dirPath)
	if filePath != "" && dirPath != "" {
		return Source{}, errors.New("settings source must be either file or dir")
	}
	return Source{File: filePath, Dir: dirPath}, nil
}

// Load loads and validates settings from one source.
// Params: source selects file, directory, or built-in defaults.
// Returns: validated config or load/validation error.
func Load(src Source) (Config, error) {
	var cfg Config
	var err error
	switch {
	case src.File != "":
		cfg, err = loadFile(src.File)
	case src.Dir != "":
		cfg, err = loadDir(src.Dir)
	}
	if err != nil {
		return Config{}, err
	}
	ApplyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the built-in settings.
func Default() Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return cfg
}

// loadFile reads one TOML settings file.
// Params: file path.
// Returns: decoded config or read/decode error.
func loadFile(path string) (Config, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read settings file %q: %w", path, err)
	}
	var cfg Config
	if err := toml.Unmarshal(body, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode settings file %q: %w", path, err)
	}
	return cfg, nil
}

// loadDir reads and merges TOML files from one directory in lexical order.
// Params: directory containing settings fragments.
// Returns: merged config or load/decode error.
func loadDir(dir string) (Config, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Config{}, fmt.Errorf("read settings dir %q: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.ToLower(filepath.Ext(entry.Name())) != ".toml" {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	if len(files) == 0 {
		return Config{}, fmt.Errorf("no .toml files found in %q", dir)
	}
	sort.Strings(files)

	var merged Config
	for _, file := range files {
		fragment, err := loadFile(file)
		if err != nil {
			return Config{}, err
		}
		mergeConfig(&merged, fragment)
	}
	return merged, nil
}

// mergeConfig overlays one fragment onto dst.
// Lists append; other non-zero sections replace.
func mergeConfig(dst *Config, src Config) {
	if src.Log != (LogConfig{}) {
		dst.Log = src.Log
	}
	dst.Sources.Paths = append(dst.Sources.Paths, src.Sources.Paths...)
	dst.Sources.Tag = append(dst.Sources.Tag, src.Sources.Tag...)
	if src.Sources.SearchDefaults != nil {
		dst.Sources.SearchDefaults = src.Sources.SearchDefaults
	}
	if src.Sources.Encoding != "" {
		dst.Sources.Encoding = src.Sources.Encoding
	}
	if src.Sources.MaxBufferBytes != 0 {
		dst.Sources.MaxBufferBytes = src.Sources.MaxBufferBytes
	}
	if src.Throttle != (ThrottleConfig{}) {
		dst.Throttle = src.Throttle
	}
	if src.HTTP != (HTTPConfig{}) {
		dst.HTTP = src.HTTP
	}
	if src.Notify.Retry != (RetryConfig{}) {
		dst.Notify.Retry = src.Notify.Retry
	}
	if src.Watch != (WatchConfig{}) {
		dst.Watch = src.Watch
	}
}

// ApplyDefaults fills unset fields in place.
func ApplyDefaults(cfg *Config) {
	if cfg.Log.Console.Level == "" {
		cfg.Log.Console.Level = "info"
	}
	if cfg.Log.Console.Format == "" {
		cfg.Log.Console.Format = "line"
	}
	if cfg.Log.File.Level == "" {
		cfg.Log.File.Level = "info"
	}
	if cfg.Log.File.Format == "" {
		cfg.Log.File.Format = "json"
	}
	if !cfg.Log.Console.Enabled && !cfg.Log.File.Enabled {
		cfg.Log.Console.Enabled = true
	}

	if strings.TrimSpace(cfg.Sources.Encoding) == "" {
		cfg.Sources.Encoding = DefaultEncoding
	}
	if cfg.Sources.MaxBufferBytes == 0 {
		cfg.Sources.MaxBufferBytes = DefaultMaxBufferBytes
	}
	if cfg.Throttle.Burst == 0 {
		cfg.Throttle.Burst = 1
	}
	if cfg.HTTP.TimeoutSec == 0 {
		cfg.HTTP.TimeoutSec = defaultHTTPTimeoutSec
	}
	if cfg.Watch.DebounceMS == 0 {
		cfg.Watch.DebounceMS = defaultDebounceMS
	}

	retry := &cfg.Notify.Retry
	if retry.Backoff == "" {
		retry.Backoff = BackoffExponential
	}
	if retry.InitialMS <= 0 {
		retry.InitialMS = defaultRetryInitialMS
	}
	if retry.MaxMS <= 0 {
		retry.MaxMS = defaultRetryMaxMS
	}
}

// Validate checks a defaulted snapshot.
// Params: settings snapshot.
// Returns: first validation error.
func Validate(cfg Config) error {
	if err := validateLogSink("log.console", cfg.Log.Console, false); err != nil {
		return err
	}
	if err := validateLogSink("log.file", cfg.Log.File, true); err != nil {
		return err
	}
	if cfg.Sources.MaxBufferBytes < 0 {
		return errors.New("sources.max_buffer_bytes must be >=0")
	}
	for i, path := range cfg.Sources.Paths {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("sources.paths[%d] is empty", i)
		}
	}
	if cfg.Throttle.IntervalMS < 0 {
		return errors.New("throttle.interval_ms must be >=0")
	}
	if cfg.Throttle.Burst < 0 {
		return errors.New("throttle.burst must be >=0")
	}
	if cfg.HTTP.TimeoutSec < 0 {
		return errors.New("http.timeout_sec must be >=0")
	}
	if cfg.Watch.DebounceMS < 0 {
		return errors.New("watch.debounce_ms must be >=0")
	}

	retry := cfg.Notify.Retry
	switch strings.ToLower(strings.TrimSpace(retry.Backoff)) {
	case BackoffFixed, BackoffExponential:
	default:
		return fmt.Errorf("notify.retry.backoff has unsupported value %q", retry.Backoff)
	}
	if retry.MaxAttempts < 0 {
		return errors.New("notify.retry.max_attempts must be >=0")
	}
	if retry.MaxMS < retry.InitialMS {
		return errors.New("notify.retry.max_ms must be >= initial_ms")
	}
	return nil
}

// validateLogSink validates one logging sink configuration.
// Params: sink name for errors, sink config, and path requirement flag.
// Returns: validation error for unsupported level/format or missing path.
func validateLogSink(name string, sink LogSinkConfig, requirePath bool) error {
	if !sink.Enabled {
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(sink.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%s.level has unsupported value %q", name, sink.Level)
	}

	switch strings.ToLower(strings.TrimSpace(sink.Format)) {
	case "line", "json":
	default:
		return fmt.Errorf("%s.format has unsupported value %q", name, sink.Format)
	}

	if requirePath && strings.TrimSpace(sink.Path) == "" {
		return fmt.Errorf("%s.path is required", name)
	}
	return nil
}
