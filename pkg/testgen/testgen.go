// Package testgen generates skipped test stubs for a source file from its
// analysis, using one embedded template per test framework.
package testgen

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"
	"unicode"

	"github.com/panbanda/codeforge/pkg/analyzer/complexity"
	"github.com/panbanda/codeforge/pkg/analyzer/quality"
	"github.com/panbanda/codeforge/pkg/models"
	"github.com/panbanda/codeforge/pkg/parser"
	"github.com/rs/zerolog"
)

// Stub limits.
const (
	MaxFunctions   = 3
	MaxClasses     = 2
	MaxSuggestions = 5
)

// Category groups generated cases.
type Category string

const (
	CategoryUnit        Category = "unit"
	CategoryIntegration Category = "integration"
	CategoryEdgeCase    Category = "edge_case"
	CategoryError       Category = "error"
)

// String implements fmt.Stringer for toon serialization.
func (c Category) String() string { return string(c) }

// Case is one generated test stub.
type Case struct {
	Name        string   `json:"name" toon:"name"`
	Category    Category `json:"category" toon:"category"`
	Target      string   `json:"target,omitempty" toon:"target,omitempty"`
	Description string   `json:"description" toon:"description"`
}

// Coverage is a rough coverage estimate for a generated suite.
type Coverage struct {
	Functions int          `json:"functions" toon:"functions"`
	Classes   int          `json:"classes" toon:"classes"`
	Tests     int          `json:"tests" toon:"tests"`
	Percent   float64      `json:"percent" toon:"percent"`
	Level     models.Level `json:"level" toon:"level"`
}

// Suite is a generated test file.
type Suite struct {
	File        string          `json:"file" toon:"file"`
	Language    parser.Language `json:"language" toon:"language"`
	Framework   Framework       `json:"framework" toon:"framework"`
	Code        string          `json:"code" toon:"code"`
	TestCount   int             `json:"test_count" toon:"test_count"`
	Categories  map[string]int  `json:"categories" toon:"categories"`
	Cases       []Case          `json:"cases" toon:"cases"`
	Coverage    Coverage        `json:"coverage" toon:"coverage"`
	Suggestions []string        `json:"suggestions" toon:"suggestions"`
}

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("testgen").Funcs(template.FuncMap{
	"snake":    snake,
	"camel":    camel,
	"pascal":   pascal,
	"sentence": sentence,
}).ParseFS(templateFS, "templates/*.tmpl"))

var goPackage = regexp.MustCompile(`(?m)^package\s+([A-Za-z_][A-Za-z0-9_]*)`)

// Generator produces test suites.
type Generator struct {
	analyzer   *quality.Analyzer
	owned      bool
	thresholds complexity.Thresholds
	logger     zerolog.Logger
}

// Option is a functional option for configuring Generator.
type Option func(*Generator)

// WithAnalyzer sets the analyzer used by Generate. The caller keeps ownership.
func WithAnalyzer(a *quality.Analyzer) Option {
	return func(g *Generator) {
		if a != nil {
			g.analyzer = a
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(g *Generator) {
		g.logger = l
	}
}

// New creates a Generator.
func New(opts ...Option) *Generator {
	g := &Generator{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(g)
	}
	if g.analyzer == nil {
		g.analyzer = quality.New()
		g.owned = true
	}
	g.thresholds = g.analyzer.Thresholds()
	return g
}

// Close releases the analyzer when the Generator created it.
func (g *Generator) Close() {
	if g.owned {
		g.analyzer.Close()
	}
}

// Generate analyzes src and renders a suite for it. An empty lang is
// detected from path; an empty fw selects the language default.
func (g *Generator) Generate(ctx context.Context, src []byte, path string, lang parser.Language, fw Framework) (*Suite, error) {
	if lang == "" {
		lang = parser.DetectLanguage(path)
	}
	if _, err := Resolve(lang, fw); err != nil {
		return nil, err
	}
	fa, err := g.analyzer.AnalyzeSource(ctx, src, path, lang)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", path, err)
	}

	pkg := ""
	if m := goPackage.FindSubmatch(src); lang == parser.LangGo && m != nil {
		pkg = string(m[1])
	}
	return g.render(fa, fw, pkg)
}

// FromAnalysis renders a suite from an existing analysis.
func (g *Generator) FromAnalysis(fa *models.FileAnalysis, fw Framework) (*Suite, error) {
	return g.render(fa, fw, "")
}

type templateData struct {
	Framework Framework
	Source    string
	Module    string
	Package   string
	ESM       bool
	Cases     []Case
}

func (g *Generator) render(fa *models.FileAnalysis, fw Framework, pkg string) (*Suite, error) {
	fw, err := Resolve(fa.Language, fw)
	if err != nil {
		return nil, err
	}

	cases := Cases(fa)
	data := templateData{
		Framework: fw,
		Source:    filepath.ToSlash(fa.Path),
		Module:    moduleName(fa.Path),
		Package:   pkg,
		ESM:       fa.Language == parser.LangTypeScript || fa.Language == parser.LangTSX,
		Cases:     cases,
	}
	if data.Package == "" {
		data.Package = packageName(fa.Path)
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, string(fw)+".tmpl", data); err != nil {
		return nil, fmt.Errorf("render %s tests: %w", fw, err)
	}

	s := &Suite{
		File:       fa.Path,
		Language:   fa.Language,
		Framework:  fw,
		Code:       buf.String(),
		TestCount:  len(cases),
		Categories: make(map[string]int),
		Cases:      cases,
	}
	for _, c := range cases {
		s.Categories[string(c.Category)]++
	}
	s.Coverage = EstimateCoverage(s, fa)
	s.Suggestions = g.suggest(fa)

	g.logger.Debug().
		Str("path", fa.Path).
		Str("framework", string(fw)).
		Int("tests", s.TestCount).
		Msg("tests generated")

	return s, nil
}

// Cases lists the stubs for a file: two per function for the first few
// functions, two per class for the first classes, one integration case,
// and edge cases when the file has functions.
func Cases(fa *models.FileAnalysis) []Case {
	fns := testableFunctions(fa)
	var cases []Case

	for _, fn := range limit(fns, MaxFunctions) {
		cases = append(cases,
			Case{Name: fn + "_basic", Category: CategoryUnit, Target: fn,
				Description: "Test basic functionality of " + fn},
			Case{Name: fn + "_invalid_input", Category: CategoryError, Target: fn,
				Description: "Test " + fn + " rejects invalid input"},
		)
	}
	for _, cls := range limit(classNames(fa), MaxClasses) {
		cases = append(cases,
			Case{Name: cls + "_initialization", Category: CategoryUnit, Target: cls,
				Description: "Test " + cls + " initialization"},
			Case{Name: cls + "_methods", Category: CategoryUnit, Target: cls,
				Description: "Test " + cls + " methods"},
		)
	}
	if len(cases) == 0 {
		return []Case{}
	}

	cases = append(cases, Case{Name: "integration_workflow", Category: CategoryIntegration,
		Description: "Test the components of " + moduleName(fa.Path) + " working together"})
	if len(fns) > 0 {
		cases = append(cases,
			Case{Name: "edge_empty_input", Category: CategoryEdgeCase,
				Description: "Test empty strings, lists and maps"},
			Case{Name: "edge_boundary_values", Category: CategoryEdgeCase,
				Description: "Test zero, negative and very large values"},
			Case{Name: "error_path", Category: CategoryError,
				Description: "Test error handling for invalid types and missing arguments"},
		)
	}
	return cases
}

// EstimateCoverage estimates coverage as tests per function, capped at 95%.
func EstimateCoverage(s *Suite, fa *models.FileAnalysis) Coverage {
	funcs := len(fa.Structure.Functions)
	pct := math.Min(95, float64(s.TestCount)/float64(max(1, funcs))*100)
	pct = math.Round(pct*10) / 10

	level := models.LevelLow
	switch {
	case pct > 80:
		level = models.LevelHigh
	case pct > 60:
		level = models.LevelMedium
	}
	return Coverage{
		Functions: funcs,
		Classes:   len(fa.Structure.Classes),
		Tests:     s.TestCount,
		Percent:   pct,
		Level:     level,
	}
}

func (g *Generator) suggest(fa *models.FileAnalysis) []string {
	out := []string{"Replace the skipped stubs with real assertions"}

	fns := testableFunctions(fa)
	if n := len(fns) - MaxFunctions; n > 0 {
		out = append(out, fmt.Sprintf("Add tests for the %d function%s without stubs", n, plural(n)))
	}
	if n := len(fa.Structure.Classes) - MaxClasses; n > 0 {
		out = append(out, fmt.Sprintf("Add tests for the %d class%s without stubs", n, pluralES(n)))
	}
	for _, fn := range fa.Structure.Functions {
		if fn.Cyclomatic > g.thresholds.High {
			out = append(out, fmt.Sprintf("Cover every branch of %s (cyclomatic %d) with table-driven cases", fn.Name, fn.Cyclomatic))
		}
	}
	if n := len(fa.Security.Issues); n > 0 {
		out = append(out, fmt.Sprintf("Add regression tests for the %d security finding%s", n, plural(n)))
	}
	out = append(out,
		"Add property-based tests for input validation",
		"Consider mutation testing to measure test strength",
	)
	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	return out
}

// testableFunctions returns free functions, skipping methods and existing tests.
func testableFunctions(fa *models.FileAnalysis) []string {
	var names []string
	for _, fn := range fa.Structure.Functions {
		if fn.IsMethod || isTestName(fn.Name) {
			continue
		}
		names = append(names, fn.Name)
	}
	return names
}

func classNames(fa *models.FileAnalysis) []string {
	var names []string
	for _, c := range fa.Structure.Classes {
		if !isTestName(c.Name) {
			names = append(names, c.Name)
		}
	}
	return names
}

func isTestName(name string) bool {
	words := splitWords(name)
	if len(words) == 0 {
		return false
	}
	last := words[len(words)-1]
	return words[0] == "test" || last == "test" || last == "tests"
}

func limit(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func moduleName(path string) string {
	base := filepath.Base(path)
	if base == "." || base == string(filepath.Separator) {
		return "module"
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// packageName derives a Go package name from the file's directory.
func packageName(path string) string {
	dir := filepath.Base(filepath.Dir(path))
	name := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return unicode.ToLower(r)
		}
		return -1
	}, dir)
	if name == "" || unicode.IsDigit(rune(name[0])) {
		return "main"
	}
	return name
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func pluralES(n int) string {
	if n == 1 {
		return ""
	}
	return "es"
}
