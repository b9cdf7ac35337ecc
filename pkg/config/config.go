package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration options for detrace.
type Config struct {
	// Strip pass settings
	Strip StripConfig `koanf:"strip" toml:"strip"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude"`

	// Cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`
}

// StripConfig controls the elimination pass.
type StripConfig struct {
	Module      string `koanf:"module" toml:"module"`
	MaxFileSize int64  `koanf:"max_file_size" toml:"max_file_size"` // bytes, 0 = no limit
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns   []string `koanf:"patterns" toml:"patterns"`
	Extensions []string `koanf:"extensions" toml:"extensions"`
	Dirs       []string `koanf:"dirs" toml:"dirs"`
	Gitignore  bool     `koanf:"gitignore" toml:"gitignore"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl"` // TTL in hours
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format" toml:"format"` // text, json, markdown, toon
	Color   bool   `koanf:"color" toml:"color"`
	Verbose bool   `koanf:"verbose" toml:"verbose"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Strip: StripConfig{
			Module:      "debug",
			MaxFileSize: 0,
		},
		Exclude: ExcludeConfig{
			Patterns: []string{
				"*.min.js",
				"*.min.mjs",
				"*.min.cjs",
				"*.bundle.js",
			},
			Extensions: []string{
				".d.ts",
				".map",
				".snap",
			},
			Dirs: []string{
				"node_modules",
				".git",
				".detrace",
				"dist",
				"build",
				"out",
				"coverage",
				"vendor",
				".next",
			},
			Gitignore: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".detrace/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format:  "text",
			Color:   true,
			Verbose: false,
		},
	}
}

// parserFor picks a koanf parser from the file extension. Unknown
// extensions fall back to TOML.
func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	case ".json":
		return json.Parser()
	default:
		return toml.Parser()
	}
}

// Load loads configuration from a file, overlaying it on the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
		return nil, err
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// searchPaths returns the candidate config file paths in search order.
func searchPaths() []string {
	names := []string{
		"detrace.toml",
		".detrace.toml",
		"detrace.yaml",
		".detrace.yaml",
		"detrace.yml",
		".detrace.yml",
		"detrace.json",
		".detrace.json",
	}
	dirs := []string{".", ".detrace"}

	var paths []string
	for _, dir := range dirs {
		for _, name := range names {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths
}

// LoadResult carries the effective config and the file it came from.
type LoadResult struct {
	Config *Config

	// Source is the path of the loaded file, or "" when no config
	// file was found and defaults are in effect.
	Source string
}

// LoadOption configures LoadConfig.
type LoadOption func(*loadOptions)

type loadOptions struct {
	path string
}

// WithPath loads an explicit file instead of searching the standard
// locations. A missing explicit file is an error.
func WithPath(path string) LoadOption {
	return func(o *loadOptions) {
		o.path = path
	}
}

// LoadConfig loads the configuration from an explicit path or from the
// standard search locations. Finding no config file is not an error;
// the defaults are returned with an empty Source.
func LoadConfig(opts ...LoadOption) (*LoadResult, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	if o.path != "" {
		cfg, err := Load(o.path)
		if err != nil {
			return nil, err
		}
		return &LoadResult{Config: cfg, Source: o.path}, nil
	}

	for _, path := range searchPaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cfg, err := Load(path)
		if err != nil {
			return nil, err
		}
		return &LoadResult{Config: cfg, Source: path}, nil
	}

	return &LoadResult{Config: DefaultConfig()}, nil
}

// LoadOrDefault tries to load config from standard locations or returns
// defaults. Unreadable files are skipped rather than reported.
func LoadOrDefault() *Config {
	for _, path := range searchPaths() {
		if _, err := os.Stat(path); err == nil {
			cfg, err := Load(path)
			if err == nil {
				return cfg
			}
		}
	}

	return DefaultConfig()
}

// ShouldExclude checks if a path should be excluded from the pass.
func (c *Config) ShouldExclude(path string) bool {
	// Check directory exclusions
	for _, dir := range c.Exclude.Dirs {
		if strings.Contains(path, string(filepath.Separator)+dir+string(filepath.Separator)) ||
			strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}

	// Check extension exclusions
	for _, excludeExt := range c.Exclude.Extensions {
		if strings.HasSuffix(path, excludeExt) {
			return true
		}
	}

	// Check pattern exclusions
	base := filepath.Base(path)
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}

	return false
}
