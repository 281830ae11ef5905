// Package workflow generates CI configuration for running codeforge in
// GitHub Actions and evaluates quality gates against an analysis summary.
package workflow

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/panbanda/codeforge/pkg/parser"
	"gopkg.in/yaml.v3"
)

// Feature toggles a group of workflow steps.
type Feature string

const (
	FeatureQuality   Feature = "quality"
	FeatureSecurity  Feature = "security"
	FeatureTests     Feature = "tests"
	FeatureCoverage  Feature = "coverage"
	FeatureArtifacts Feature = "artifacts"
)

// AllFeatures lists every feature in step order.
var AllFeatures = []Feature{FeatureQuality, FeatureSecurity, FeatureTests, FeatureCoverage, FeatureArtifacts}

// ErrUnknownFeature is returned for a feature name outside AllFeatures.
var ErrUnknownFeature = errors.New("unknown workflow feature")

// ParseFeatures converts names to features. Empty input yields all features.
func ParseFeatures(names []string) ([]Feature, error) {
	if len(names) == 0 {
		return slices.Clone(AllFeatures), nil
	}
	out := make([]Feature, 0, len(names))
	for _, n := range names {
		f := Feature(strings.ToLower(strings.TrimSpace(n)))
		if !slices.Contains(AllFeatures, f) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, n)
		}
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out, nil
}

// ReportFile is the analysis report the workflow writes and uploads.
const ReportFile = "codeforge-report.json"

// Options configures the generated workflow.
type Options struct {
	Name           string
	Language       parser.Language
	Features       []Feature
	Branches       []string
	RuntimeVersion string // empty selects the language default
	GoVersion      string // toolchain used to install codeforge
}

// DefaultOptions returns options for a Python project with every feature.
func DefaultOptions() Options {
	return Options{
		Name:      "codeforge",
		Language:  parser.LangPython,
		Features:  slices.Clone(AllFeatures),
		Branches:  []string{"main", "develop"},
		GoVersion: "1.25",
	}
}

func (o Options) has(f Feature) bool {
	return slices.Contains(o.Features, f)
}

type document struct {
	Name        string            `yaml:"name"`
	On          triggers          `yaml:"on"`
	Permissions map[string]string `yaml:"permissions,omitempty"`
	Jobs        map[string]job    `yaml:"jobs"`
}

type triggers struct {
	Push        *branchFilter `yaml:"push,omitempty"`
	PullRequest *branchFilter `yaml:"pull_request,omitempty"`
}

type branchFilter struct {
	Branches []string `yaml:"branches,flow"`
}

type job struct {
	Name   string `yaml:"name,omitempty"`
	RunsOn string `yaml:"runs-on"`
	Steps  []step `yaml:"steps"`
}

type step struct {
	Name string            `yaml:"name,omitempty"`
	If   string            `yaml:"if,omitempty"`
	Uses string            `yaml:"uses,omitempty"`
	With map[string]string `yaml:"with,omitempty"`
	Env  map[string]string `yaml:"env,omitempty"`
	Run  string            `yaml:"run,omitempty"`
}

// runtime describes how to set up and test one language.
type runtime struct {
	setup       string // setup action, empty when the runner has the toolchain
	versionKey  string
	version     string
	extraWith   map[string]string
	install     string
	test        string
	coverage    string // test command with coverage
	coverageOut string
}

func runtimeFor(lang parser.Language) runtime {
	switch lang {
	case parser.LangPython:
		return runtime{
			setup: "actions/setup-python@v5", versionKey: "python-version", version: "3.12",
			install:  "pip install -r requirements.txt pytest pytest-cov",
			test:     "pytest",
			coverage: "pytest --cov=. --cov-report=xml", coverageOut: "coverage.xml",
		}
	case parser.LangJavaScript, parser.LangTypeScript, parser.LangTSX:
		return runtime{
			setup: "actions/setup-node@v4", versionKey: "node-version", version: "20",
			install:  "npm ci",
			test:     "npm test",
			coverage: "npm test -- --coverage", coverageOut: "coverage/",
		}
	case parser.LangGo:
		return runtime{
			setup: "actions/setup-go@v5", versionKey: "go-version", version: "1.25",
			install:  "go mod download",
			test:     "go test ./...",
			coverage: "go test -coverprofile=coverage.out ./...", coverageOut: "coverage.out",
		}
	case parser.LangJava:
		return runtime{
			setup: "actions/setup-java@v4", versionKey: "java-version", version: "21",
			extraWith: map[string]string{"distribution": "temurin"},
			install:   "mvn -B -q dependency:resolve",
			test:      "mvn -B test",
			coverage:  "mvn -B test jacoco:report", coverageOut: "target/site/jacoco/",
		}
	case parser.LangRust:
		return runtime{
			setup: "dtolnay/rust-toolchain@stable", versionKey: "toolchain", version: "stable",
			install:  "cargo fetch",
			test:     "cargo test",
			coverage: "cargo install cargo-llvm-cov && cargo llvm-cov --lcov --output-path lcov.info", coverageOut: "lcov.info",
		}
	case parser.LangCSharp:
		return runtime{
			setup: "actions/setup-dotnet@v4", versionKey: "dotnet-version", version: "8.0.x",
			install:  "dotnet restore",
			test:     "dotnet test",
			coverage: `dotnet test --collect:"XPlat Code Coverage"`, coverageOut: "**/coverage.cobertura.xml",
		}
	case parser.LangRuby:
		return runtime{
			setup: "ruby/setup-ruby@v1", versionKey: "ruby-version", version: "3.3",
			install:  "bundle install",
			test:     "bundle exec rspec",
			coverage: "COVERAGE=true bundle exec rspec", coverageOut: "coverage/",
		}
	case parser.LangPHP:
		return runtime{
			setup: "shivammathur/setup-php@v2", versionKey: "php-version", version: "8.3",
			install:  "composer install --no-interaction",
			test:     "vendor/bin/phpunit",
			coverage: "vendor/bin/phpunit --coverage-clover coverage.xml", coverageOut: "coverage.xml",
		}
	case parser.LangC, parser.LangCPP:
		return runtime{
			install:  "cmake -B build",
			test:     "cmake --build build && ctest --test-dir build",
			coverage: "cmake -B build -DCMAKE_CXX_FLAGS=--coverage && cmake --build build && ctest --test-dir build",
		}
	default:
		return runtime{}
	}
}

// Workflow renders a GitHub Actions workflow.
func Workflow(opts Options) ([]byte, error) {
	if opts.Name == "" {
		opts.Name = "codeforge"
	}
	if len(opts.Branches) == 0 {
		opts.Branches = []string{"main"}
	}
	if opts.GoVersion == "" {
		opts.GoVersion = "1.25"
	}
	for _, f := range opts.Features {
		if !slices.Contains(AllFeatures, f) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, f)
		}
	}

	doc := document{
		Name: opts.Name,
		On: triggers{
			Push:        &branchFilter{Branches: opts.Branches},
			PullRequest: &branchFilter{Branches: opts.Branches},
		},
		Permissions: map[string]string{"contents": "read"},
		Jobs: map[string]job{
			"analyze": {Name: "Code quality", RunsOn: "ubuntu-latest", Steps: steps(opts)},
		},
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode workflow: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode workflow: %w", err)
	}
	return buf.Bytes(), nil
}

func steps(opts Options) []step {
	rt := runtimeFor(opts.Language)
	version := rt.version
	if opts.RuntimeVersion != "" {
		version = opts.RuntimeVersion
	}

	out := []step{{Name: "Checkout", Uses: "actions/checkout@v4", With: map[string]string{"fetch-depth": "0"}}}

	// codeforge installs with the Go toolchain. Go projects share the setup.
	goVersion := opts.GoVersion
	if opts.Language == parser.LangGo {
		goVersion = version
	}
	out = append(out, step{Name: "Set up Go", Uses: "actions/setup-go@v5", With: map[string]string{"go-version": goVersion}})
	if rt.setup != "" && opts.Language != parser.LangGo {
		with := map[string]string{rt.versionKey: version}
		for k, v := range rt.extraWith {
			with[k] = v
		}
		out = append(out, step{Name: "Set up " + languageTitle(opts.Language), Uses: rt.setup, With: with})
	}

	out = append(out, step{Name: "Install codeforge", Run: "go install github.com/panbanda/codeforge/cmd/codeforge@latest"})

	runsTests := opts.has(FeatureTests) || opts.has(FeatureCoverage)
	if runsTests && rt.install != "" {
		out = append(out, step{Name: "Install dependencies", Run: rt.install})
	}

	if opts.has(FeatureQuality) || opts.has(FeatureArtifacts) {
		out = append(out, step{
			Name: "Analyze",
			Env:  map[string]string{"NO_COLOR": "1"},
			Run:  "codeforge --format json --output " + ReportFile + " analyze .",
		})
	}

	if opts.has(FeatureSecurity) || opts.has(FeatureQuality) {
		run := "codeforge gate ."
		if opts.has(FeatureSecurity) && !opts.has(FeatureQuality) {
			run = "codeforge gate --only security ."
		}
		out = append(out, step{Name: "Quality gates", Run: run})
	}

	if runsTests && rt.test != "" {
		name, run := "Test", rt.test
		if opts.has(FeatureCoverage) && rt.coverage != "" {
			name, run = "Test with coverage", rt.coverage
		}
		out = append(out, step{Name: name, Run: run})
	}

	if opts.has(FeatureArtifacts) {
		paths := []string{ReportFile}
		if opts.has(FeatureCoverage) && rt.coverageOut != "" {
			paths = append(paths, rt.coverageOut)
		}
		out = append(out, step{
			Name: "Upload report",
			If:   "always()",
			Uses: "actions/upload-artifact@v4",
			With: map[string]string{"name": "codeforge-report", "path": strings.Join(paths, "\n")},
		})
	}
	return out
}

func languageTitle(lang parser.Language) string {
	switch lang {
	case parser.LangJavaScript, parser.LangTypeScript, parser.LangTSX:
		return "Node.js"
	case parser.LangCSharp:
		return ".NET"
	case parser.LangPHP:
		return "PHP"
	case parser.LangCPP:
		return "C++"
	default:
		s := lang.String()
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	}
}
