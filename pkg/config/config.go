package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	gotoml "github.com/pelletier/go-toml"
)

// EnvPrefix prefixes environment variables that override config keys.
// Sections are separated by a double underscore:
// CODEFORGE_ANALYSIS__WORKERS sets analysis.workers.
const EnvPrefix = "CODEFORGE_"

// ErrNotFound is returned when an explicitly requested config file does not exist.
var ErrNotFound = errors.New("config file not found")

// Config holds all configuration options for codeforge.
type Config struct {
	// Analysis settings
	Analysis AnalysisConfig `koanf:"analysis" json:"analysis"`

	// Complexity rating bands
	Thresholds ThresholdConfig `koanf:"thresholds" json:"thresholds"`

	// Security and performance heuristics
	Heuristics HeuristicsConfig `koanf:"heuristics" json:"heuristics"`

	// CI quality gates
	Gates GatesConfig `koanf:"gates" json:"gates"`

	// Test generation
	TestGen TestGenConfig `koanf:"testgen" json:"testgen"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" json:"exclude"`

	// Cache settings
	Cache CacheConfig `koanf:"cache" json:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" json:"output"`
}

// AnalysisConfig controls file handling and the issue and suggestion limits.
type AnalysisConfig struct {
	MaxFileSize   int64 `koanf:"max_file_size" json:"max_file_size"` // bytes, 0 for no limit
	Workers       int   `koanf:"workers" json:"workers"`             // 0 uses the CPU count
	MaxStatements int   `koanf:"max_statements" json:"max_statements"`
	MaxOperands   int   `koanf:"max_operands" json:"max_operands"`
	MaxParams     int   `koanf:"max_params" json:"max_params"`
	MaxLineLength int   `koanf:"max_line_length" json:"max_line_length"`
	LongLineHints int   `koanf:"long_line_hints" json:"long_line_hints"`
}

// ThresholdConfig defines the cyclomatic complexity bands.
type ThresholdConfig struct {
	CyclomaticMedium int `koanf:"cyclomatic_medium" json:"cyclomatic_medium"`
	CyclomaticHigh   int `koanf:"cyclomatic_high" json:"cyclomatic_high"`
}

// HeuristicsConfig tunes the pattern scanner.
type HeuristicsConfig struct {
	SecurityPenalty    float64  `koanf:"security_penalty" json:"security_penalty"`
	PerformancePenalty float64  `koanf:"performance_penalty" json:"performance_penalty"`
	SecurityHigh       float64  `koanf:"security_high" json:"security_high"`
	SecurityMedium     float64  `koanf:"security_medium" json:"security_medium"`
	PerformanceHigh    float64  `koanf:"performance_high" json:"performance_high"`
	PerformanceMedium  float64  `koanf:"performance_medium" json:"performance_medium"`
	Disabled           []string `koanf:"disabled" json:"disabled"`
}

// GatesConfig defines the CI quality gate limits.
type GatesConfig struct {
	CoverageMin           float64 `koanf:"coverage_min" json:"coverage_min"`
	CoverageTarget        float64 `koanf:"coverage_target" json:"coverage_target"`
	MaxCyclomatic         int     `koanf:"max_cyclomatic" json:"max_cyclomatic"`
	MaxSecurityFindings   int     `koanf:"max_security_findings" json:"max_security_findings"`
	MinMaintainability    float64 `koanf:"min_maintainability" json:"min_maintainability"`
	MinOverallScore       float64 `koanf:"min_overall_score" json:"min_overall_score"`
	MaxResponseTimeMillis int     `koanf:"max_response_time_ms" json:"max_response_time_ms"`
}

// TestGenConfig selects the default test framework per language.
type TestGenConfig struct {
	Frameworks map[string]string `koanf:"frameworks" json:"frameworks"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns   []string `koanf:"patterns" json:"patterns"`
	Extensions []string `koanf:"extensions" json:"extensions"`
	Dirs       []string `koanf:"dirs" json:"dirs"`
	Gitignore  bool     `koanf:"gitignore" json:"gitignore"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" json:"enabled"`
	Dir     string `koanf:"dir" json:"dir"`
	TTL     int    `koanf:"ttl" json:"ttl"` // TTL in hours
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format   string `koanf:"format" json:"format"` // text, markdown, json, toon
	Color    bool   `koanf:"color" json:"color"`
	Verbose  bool   `koanf:"verbose" json:"verbose"`
	LogLevel string `koanf:"log_level" json:"log_level"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			MaxFileSize:   1 << 20,
			Workers:       0,
			MaxStatements: 20,
			MaxOperands:   3,
			MaxParams:     5,
			MaxLineLength: 80,
			LongLineHints: 3,
		},
		Thresholds: ThresholdConfig{
			CyclomaticMedium: 5,
			CyclomaticHigh:   10,
		},
		Heuristics: HeuristicsConfig{
			SecurityPenalty:    20,
			PerformancePenalty: 15,
			SecurityHigh:       50,
			SecurityMedium:     80,
			PerformanceHigh:    60,
			PerformanceMedium:  80,
			Disabled:           []string{},
		},
		Gates: GatesConfig{
			CoverageMin:           80,
			CoverageTarget:        90,
			MaxCyclomatic:         10,
			MaxSecurityFindings:   0,
			MinMaintainability:    50,
			MinOverallScore:       70,
			MaxResponseTimeMillis: 1000,
		},
		TestGen: TestGenConfig{
			Frameworks: map[string]string{
				"python":     "pytest",
				"javascript": "jest",
				"typescript": "jest",
				"java":       "junit",
				"cpp":        "gtest",
				"csharp":     "nunit",
				"go":         "testing",
				"rust":       "cargo",
			},
		},
		Exclude: ExcludeConfig{
			Patterns: []string{
				"*.min.js",
				"*.min.css",
				"*.pb.go",
			},
			Extensions: []string{
				".lock",
				".sum",
			},
			Dirs: []string{
				"vendor",
				"node_modules",
				".git",
				".codeforge",
				"dist",
				"build",
				"__pycache__",
				".venv",
			},
			Gitignore: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".codeforge/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

// searchPaths lists the config files LoadConfig looks for, in order.
var searchPaths = []string{
	"codeforge.toml",
	".codeforge.toml",
	filepath.Join(".codeforge", "codeforge.toml"),
	"codeforge.yaml",
	"codeforge.yml",
	".codeforge.yaml",
	".codeforge.yml",
	"codeforge.json",
	".codeforge.json",
}

// LoadResult is a loaded configuration and the file it came from.
// Source is empty when no file was found and defaults were used.
type LoadResult struct {
	Config *Config
	Source string
}

type loadOptions struct {
	path string
	dir  string
	env  bool
}

// LoadOption configures LoadConfig.
type LoadOption func(*loadOptions)

// WithPath loads a specific file instead of searching.
func WithPath(path string) LoadOption {
	return func(o *loadOptions) {
		o.path = path
	}
}

// WithDir sets the directory searched for config files.
func WithDir(dir string) LoadOption {
	return func(o *loadOptions) {
		o.dir = dir
	}
}

// WithoutEnv ignores CODEFORGE_ environment overrides.
func WithoutEnv() LoadOption {
	return func(o *loadOptions) {
		o.env = false
	}
}

// LoadConfig loads defaults, then the first config file found, then
// environment overrides, and validates the result.
func LoadConfig(opts ...LoadOption) (*LoadResult, error) {
	o := loadOptions{dir: ".", env: true}
	for _, opt := range opts {
		opt(&o)
	}

	source := o.path
	if source == "" {
		source = findConfig(o.dir)
	} else if _, err := os.Stat(source); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, source)
	}

	k := koanf.New(".")
	if source != "" {
		fk := koanf.New(".")
		if err := fk.Load(file.Provider(source), parserFor(source)); err != nil {
			return nil, fmt.Errorf("parse %s: %w", source, err)
		}
		if err := validateRaw(fk.Raw()); err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
		if err := k.Merge(fk); err != nil {
			return nil, err
		}
	}

	if o.env {
		if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
			return nil, fmt.Errorf("load environment: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		if source != "" {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
		return nil, err
	}

	return &LoadResult{Config: cfg, Source: source}, nil
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	result, err := LoadConfig(WithPath(path), WithoutEnv())
	if err != nil {
		return nil, err
	}
	return result.Config, nil
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	result, err := LoadConfig()
	if err != nil {
		return DefaultConfig()
	}
	return result.Config
}

func findConfig(dir string) string {
	for _, name := range searchPaths {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

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

// envValue maps CODEFORGE_SECTION__KEY to section.key. Variables without a
// section separator belong to CLI flags and are skipped. Comma-separated
// values become lists.
func envValue(key, value string) (string, any) {
	name := strings.TrimPrefix(key, EnvPrefix)
	if !strings.Contains(name, "__") {
		return "", nil
	}
	name = strings.ReplaceAll(strings.ToLower(name), "__", ".")
	if strings.Contains(value, ",") {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return name, parts
	}
	return name, value
}

// TOML encodes the config using its koanf key names.
func (c *Config) TOML() ([]byte, error) {
	var buf bytes.Buffer
	enc := gotoml.NewEncoder(&buf).SetTagName("koanf").Order(gotoml.OrderPreserve)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// ShouldExclude checks if a path should be excluded from analysis.
func (c *Config) ShouldExclude(path string) bool {
	path = filepath.ToSlash(path)

	for _, dir := range c.Exclude.Dirs {
		if strings.Contains(path, "/"+dir+"/") || strings.HasPrefix(path, dir+"/") {
			return true
		}
	}

	ext := filepath.Ext(path)
	for _, excludeExt := range c.Exclude.Extensions {
		if ext == excludeExt {
			return true
		}
	}

	base := filepath.Base(path)
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}

	return false
}

// Framework returns the configured test framework for a language, or "".
func (c *Config) Framework(lang string) string {
	return c.TestGen.Frameworks[lang]
}
