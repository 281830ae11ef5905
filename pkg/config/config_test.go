package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gotoml "github.com/pelletier/go-toml"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig() returned nil")
	}

	if cfg.Analysis.MaxStatements != 20 {
		t.Errorf("Analysis.MaxStatements = %d, want 20", cfg.Analysis.MaxStatements)
	}
	if cfg.Analysis.MaxOperands != 3 {
		t.Errorf("Analysis.MaxOperands = %d, want 3", cfg.Analysis.MaxOperands)
	}
	if cfg.Analysis.MaxLineLength != 80 {
		t.Errorf("Analysis.MaxLineLength = %d, want 80", cfg.Analysis.MaxLineLength)
	}

	if cfg.Thresholds.CyclomaticMedium != 5 || cfg.Thresholds.CyclomaticHigh != 10 {
		t.Errorf("Thresholds = %+v, want medium 5 high 10", cfg.Thresholds)
	}

	if cfg.Heuristics.SecurityPenalty != 20 {
		t.Errorf("Heuristics.SecurityPenalty = %g, want 20", cfg.Heuristics.SecurityPenalty)
	}
	if cfg.Heuristics.PerformancePenalty != 15 {
		t.Errorf("Heuristics.PerformancePenalty = %g, want 15", cfg.Heuristics.PerformancePenalty)
	}

	if cfg.Gates.CoverageMin != 80 || cfg.Gates.MaxCyclomatic != 10 || cfg.Gates.MinOverallScore != 70 {
		t.Errorf("Gates = %+v", cfg.Gates)
	}

	if got := cfg.Framework("python"); got != "pytest" {
		t.Errorf("Framework(python) = %q, want pytest", got)
	}
	if got := cfg.Framework("cobol"); got != "" {
		t.Errorf("Framework(cobol) = %q, want empty", got)
	}

	if !cfg.Exclude.Gitignore {
		t.Error("Exclude.Gitignore should be true by default")
	}
	if cfg.Output.Format != "text" {
		t.Errorf("Output.Format = %s, want text", cfg.Output.Format)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadTOML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "codeforge.toml")
	writeFile(t, configPath, `
[analysis]
workers = 4
max_statements = 30

[thresholds]
cyclomatic_high = 15

[heuristics]
disabled = ["eval", "weak_hash"]

[testgen.frameworks]
python = "unittest"

[exclude]
dirs = ["vendor", "custom_exclude"]

[cache]
enabled = false

[output]
format = "json"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Analysis.Workers != 4 {
		t.Errorf("Analysis.Workers = %d, want 4", cfg.Analysis.Workers)
	}
	if cfg.Analysis.MaxStatements != 30 {
		t.Errorf("Analysis.MaxStatements = %d, want 30", cfg.Analysis.MaxStatements)
	}
	if cfg.Analysis.MaxOperands != 3 {
		t.Errorf("unset Analysis.MaxOperands = %d, want default 3", cfg.Analysis.MaxOperands)
	}
	if cfg.Thresholds.CyclomaticHigh != 15 {
		t.Errorf("Thresholds.CyclomaticHigh = %d, want 15", cfg.Thresholds.CyclomaticHigh)
	}
	if len(cfg.Heuristics.Disabled) != 2 || cfg.Heuristics.Disabled[0] != "eval" {
		t.Errorf("Heuristics.Disabled = %v", cfg.Heuristics.Disabled)
	}
	if got := cfg.Framework("python"); got != "unittest" {
		t.Errorf("Framework(python) = %q, want unittest", got)
	}
	if got := cfg.Framework("java"); got != "junit" {
		t.Errorf("Framework(java) = %q, want default junit", got)
	}
	if cfg.Cache.Enabled {
		t.Error("Cache.Enabled should be false")
	}
	if cfg.Output.Format != "json" {
		t.Errorf("Output.Format = %s, want json", cfg.Output.Format)
	}
}

func TestLoadYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "codeforge.yaml")
	writeFile(t, configPath, `
analysis:
  max_params: 7
gates:
  min_overall_score: 75
output:
  format: markdown
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Analysis.MaxParams != 7 {
		t.Errorf("Analysis.MaxParams = %d, want 7", cfg.Analysis.MaxParams)
	}
	if cfg.Gates.MinOverallScore != 75 {
		t.Errorf("Gates.MinOverallScore = %g, want 75", cfg.Gates.MinOverallScore)
	}
	if cfg.Output.Format != "markdown" {
		t.Errorf("Output.Format = %s, want markdown", cfg.Output.Format)
	}
}

func TestLoadJSON(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "codeforge.json")
	writeFile(t, configPath, `{
  "thresholds": {"cyclomatic_medium": 8, "cyclomatic_high": 20},
  "output": {"format": "toon"}
}`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Thresholds.CyclomaticMedium != 8 || cfg.Thresholds.CyclomaticHigh != 20 {
		t.Errorf("Thresholds = %+v, want 8/20", cfg.Thresholds)
	}
	if cfg.Output.Format != "toon" {
		t.Errorf("Output.Format = %s, want toon", cfg.Output.Format)
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/path/codeforge.toml")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "codeforge.toml")
	writeFile(t, configPath, `[analysis
invalid toml`)

	if _, err := Load(configPath); err == nil {
		t.Error("Load() should return error for invalid config")
	}
}

func TestLoadRejectsSchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown section", "[bogus]\nkey = 1\n"},
		{"unknown key", "[analysis]\nmax_widgets = 3\n"},
		{"wrong type", "[analysis]\nworkers = \"many\"\n"},
		{"negative", "[analysis]\nmax_file_size = -1\n"},
		{"bad format", "[output]\nformat = \"xml\"\n"},
		{"bad framework", "[testgen.frameworks]\npython = \"rspec\"\n"},
		{"score out of range", "[gates]\nmin_overall_score = 120\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "codeforge.toml")
			writeFile(t, configPath, tt.content)

			_, err := Load(configPath)
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Load() error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestValidateRelationships(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Thresholds.CyclomaticMedium = 12

	err := cfg.Validate()
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("Validate() error = %v, want ErrInvalid", err)
	}
	if !strings.Contains(err.Error(), "cyclomatic_medium") {
		t.Errorf("error should name the field: %v", err)
	}

	cfg = DefaultConfig()
	cfg.Gates.CoverageMin = 95
	if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
		t.Errorf("coverage_min above target: error = %v, want ErrInvalid", err)
	}
}

func TestLoadConfigSearch(t *testing.T) {
	t.Run("no file", func(t *testing.T) {
		result, err := LoadConfig(WithDir(t.TempDir()), WithoutEnv())
		if err != nil {
			t.Fatalf("LoadConfig() error: %v", err)
		}
		if result.Source != "" {
			t.Errorf("Source = %q, want empty", result.Source)
		}
		if result.Config.Analysis.MaxStatements != 20 {
			t.Error("expected defaults")
		}
	})

	t.Run("dot directory", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, ".codeforge", "codeforge.toml"), "[analysis]\nmax_params = 9\n")

		result, err := LoadConfig(WithDir(dir), WithoutEnv())
		if err != nil {
			t.Fatalf("LoadConfig() error: %v", err)
		}
		if !strings.HasSuffix(result.Source, filepath.Join(".codeforge", "codeforge.toml")) {
			t.Errorf("Source = %q", result.Source)
		}
		if result.Config.Analysis.MaxParams != 9 {
			t.Errorf("MaxParams = %d, want 9", result.Config.Analysis.MaxParams)
		}
	})

	t.Run("toml wins over yaml", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "codeforge.yaml"), "analysis:\n  max_params: 2\n")
		writeFile(t, filepath.Join(dir, "codeforge.toml"), "[analysis]\nmax_params = 3\n")

		result, err := LoadConfig(WithDir(dir), WithoutEnv())
		if err != nil {
			t.Fatalf("LoadConfig() error: %v", err)
		}
		if filepath.Base(result.Source) != "codeforge.toml" {
			t.Errorf("Source = %q, want codeforge.toml", result.Source)
		}
		if result.Config.Analysis.MaxParams != 3 {
			t.Errorf("MaxParams = %d, want 3", result.Config.Analysis.MaxParams)
		}
	})
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "codeforge.toml"), "[analysis]\nworkers = 2\n")

	t.Setenv("CODEFORGE_ANALYSIS__WORKERS", "6")
	t.Setenv("CODEFORGE_OUTPUT__FORMAT", "json")
	t.Setenv("CODEFORGE_HEURISTICS__DISABLED", "eval,exec")
	t.Setenv("CODEFORGE_FORMAT", "markdown") // flag variable, not a config key

	result, err := LoadConfig(WithDir(dir))
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	cfg := result.Config

	if cfg.Analysis.Workers != 6 {
		t.Errorf("Analysis.Workers = %d, want 6 from environment", cfg.Analysis.Workers)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("Output.Format = %q, want json", cfg.Output.Format)
	}
	if len(cfg.Heuristics.Disabled) != 2 || cfg.Heuristics.Disabled[1] != "exec" {
		t.Errorf("Heuristics.Disabled = %v, want [eval exec]", cfg.Heuristics.Disabled)
	}
}

func TestLoadConfigEnvValidated(t *testing.T) {
	t.Setenv("CODEFORGE_OUTPUT__FORMAT", "xml")

	_, err := LoadConfig(WithDir(t.TempDir()))
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("LoadConfig() error = %v, want ErrInvalid", err)
	}
}

func TestLoadOrDefault(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := LoadOrDefault()
	if cfg == nil {
		t.Fatal("LoadOrDefault() returned nil")
	}
	if cfg.Analysis.MaxStatements != 20 {
		t.Errorf("LoadOrDefault() returned non-default MaxStatements: %d", cfg.Analysis.MaxStatements)
	}
}

func TestLoadOrDefaultWithConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".codeforge.toml"), "[analysis]\nmax_statements = 99\n")
	t.Chdir(dir)

	cfg := LoadOrDefault()
	if cfg.Analysis.MaxStatements != 99 {
		t.Errorf("LoadOrDefault() should load from file, got MaxStatements=%d", cfg.Analysis.MaxStatements)
	}
}

func TestTOMLRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Analysis.Workers = 3
	cfg.Heuristics.Disabled = []string{"select_star"}

	data, err := cfg.TOML()
	if err != nil {
		t.Fatalf("TOML() error: %v", err)
	}
	if !strings.Contains(string(data), "max_statements") {
		t.Errorf("TOML output should use koanf key names:\n%s", data)
	}
	if _, err := gotoml.LoadBytes(data); err != nil {
		t.Fatalf("TOML output does not parse: %v", err)
	}

	path := filepath.Join(t.TempDir(), "codeforge.toml")
	writeFile(t, path, string(data))
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() of generated TOML: %v", err)
	}
	if loaded.Analysis.Workers != 3 {
		t.Errorf("Workers = %d, want 3", loaded.Analysis.Workers)
	}
	if len(loaded.Heuristics.Disabled) != 1 || loaded.Heuristics.Disabled[0] != "select_star" {
		t.Errorf("Disabled = %v", loaded.Heuristics.Disabled)
	}
}

func TestSchema(t *testing.T) {
	if !strings.Contains(string(Schema()), `"additionalProperties": false`) {
		t.Error("schema should reject unknown keys")
	}
}

func TestShouldExclude(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		path string
		want bool
	}{
		{"vendor/pkg/file.go", true},
		{"node_modules/pkg/file.js", true},
		{".git/objects/file", true},
		{"src/.codeforge/cache/x.json", true},

		{"app.min.js", true},
		{"api/service.pb.go", true},

		{"go.sum", true},
		{"package.lock", true},

		{"main.go", false},
		{"pkg/util/helper.go", false},
		{"app.js", false},
		{filepath.Join("pkg", "vendor_utils.go"), false},
		{filepath.Join("src", "vendor", "pkg", "file.go"), true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := cfg.ShouldExclude(tt.path)
			if got != tt.want {
				t.Errorf("ShouldExclude(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestShouldExcludeCustomPatterns(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Exclude.Patterns = append(cfg.Exclude.Patterns, "*_generated.go")
	cfg.Exclude.Dirs = append(cfg.Exclude.Dirs, "custom_exclude")

	tests := []struct {
		path string
		want bool
	}{
		{"model_generated.go", true},
		{"custom_exclude/file.go", true},
		{"main.go", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := cfg.ShouldExclude(tt.path)
			if got != tt.want {
				t.Errorf("ShouldExclude(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
