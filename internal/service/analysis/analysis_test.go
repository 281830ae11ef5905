package analysis

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/panbanda/codeforge/pkg/analyzer/complexity"
	"github.com/panbanda/codeforge/pkg/config"
	"github.com/panbanda/codeforge/pkg/models"
	"github.com/panbanda/codeforge/pkg/parser"
	"github.com/panbanda/codeforge/pkg/source"
	"github.com/panbanda/codeforge/pkg/testgen"
	"github.com/panbanda/codeforge/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cartGo = `package cart

// Total sums the item prices.
func Total(items []int) int {
	sum := 0
	for _, i := range items {
		if i > 0 {
			sum += i
		}
	}
	return sum
}
`

const evalPy = `def run(expr):
    return eval(expr)
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Cache.Dir = filepath.Join(t.TempDir(), "cache")
	return cfg
}

func TestNew(t *testing.T) {
	svc := New()
	require.NotNil(t, svc)
	assert.NotNil(t, svc.config)

	cfg := testConfig(t)
	svc = New(WithConfig(cfg), WithWorkers(3), WithoutCache())
	assert.Same(t, cfg, svc.Config())
	assert.Equal(t, 3, svc.workers)
	assert.True(t, svc.noCache)

	svc = New(WithConfig(nil))
	assert.NotNil(t, svc.Config(), "nil config keeps the loaded one")
}

func TestConfigMapping(t *testing.T) {
	cfg := testConfig(t)
	cfg.Thresholds.CyclomaticMedium = 4
	cfg.Thresholds.CyclomaticHigh = 8
	cfg.Analysis.MaxParams = 2
	cfg.Gates.MaxCyclomatic = 12
	cfg.Gates.CoverageMin = 70
	svc := New(WithConfig(cfg))

	assert.Equal(t, complexity.Thresholds{Medium: 4, High: 8}, svc.Thresholds())
	assert.Equal(t, 2, svc.Limits().MaxParams)
	assert.Equal(t, 20, svc.Limits().MaxStatements)

	gates := svc.Gates()
	assert.Equal(t, uint32(12), gates.MaxCyclomatic)
	assert.Equal(t, 70.0, gates.CoverageMin)
	assert.Equal(t, workflow.DefaultGates().MinOverallScore, gates.MinOverallScore)
}

func TestHeuristicsDisabledRules(t *testing.T) {
	cfg := testConfig(t)
	svc := New(WithConfig(cfg), WithoutCache())

	fa := analyzeOne(t, svc, evalPy, "run.py")
	require.NotEmpty(t, fa.Security.Issues)
	rule := fa.Security.Issues[0].Rule

	cfg.Heuristics.Disabled = []string{rule}
	fa = analyzeOne(t, New(WithConfig(cfg), WithoutCache()), evalPy, "run.py")
	for _, f := range fa.Security.Issues {
		assert.NotEqual(t, rule, f.Rule)
	}
}

func TestFramework(t *testing.T) {
	cfg := testConfig(t)
	cfg.TestGen.Frameworks["python"] = "unittest"
	cfg.TestGen.Frameworks["typescript"] = "mocha"
	delete(cfg.TestGen.Frameworks, "java")
	svc := New(WithConfig(cfg))

	assert.Equal(t, testgen.Unittest, svc.Framework(parser.LangPython))
	assert.Equal(t, testgen.Mocha, svc.Framework(parser.LangTSX), "tsx follows the typescript setting")
	assert.Equal(t, testgen.JUnit, svc.Framework(parser.LangJava), "falls back to the language default")
	assert.Empty(t, svc.Framework(parser.LangBash))
}

func TestCache(t *testing.T) {
	cfg := testConfig(t)
	c, err := New(WithConfig(cfg)).Cache()
	require.NoError(t, err)
	assert.True(t, c.Enabled())
	assert.DirExists(t, cfg.Cache.Dir)

	c, err = New(WithConfig(cfg), WithoutCache()).Cache()
	require.NoError(t, err)
	assert.False(t, c.Enabled())

	cfg.Cache.Enabled = false
	c, err = New(WithConfig(cfg)).Cache()
	require.NoError(t, err)
	assert.False(t, c.Enabled())
}

func TestAnalyzeFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "cart.go")
	b := filepath.Join(dir, "run.py")
	require.NoError(t, os.WriteFile(a, []byte(cartGo), 0o644))
	require.NoError(t, os.WriteFile(b, []byte(evalPy), 0o644))

	cfg := testConfig(t)
	svc := New(WithConfig(cfg))

	var ticks atomic.Int32
	var lastTotal atomic.Int32
	project, err := svc.AnalyzeFiles(context.Background(), []string{a, b}, func(done, total int, path string) {
		ticks.Add(1)
		lastTotal.Store(int32(total))
	})
	require.NoError(t, err)

	require.Len(t, project.Files, 2)
	assert.Equal(t, 2, project.Summary.TotalFiles)
	assert.Equal(t, int32(2), ticks.Load())
	assert.Equal(t, int32(2), lastTotal.Load())

	c, err := svc.Cache()
	require.NoError(t, err)
	stats, err := c.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries, "results are cached")
}

func TestAnalyzeFilesWithSource(t *testing.T) {
	mem, err := source.NewMemory(map[string]string{"/src/cart.go": cartGo})
	require.NoError(t, err)

	svc := New(WithConfig(testConfig(t)), WithSource(mem), WithoutCache())
	project, err := svc.AnalyzeFiles(context.Background(), []string{"/src/cart.go", "/src/missing.go"}, nil)
	require.NoError(t, err)

	require.Len(t, project.Files, 1)
	assert.Equal(t, "/src/cart.go", project.Files[0].Path)
	require.Len(t, project.Errors, 1)
	assert.Equal(t, "/src/missing.go", project.Errors[0].Path)
}

func TestReview(t *testing.T) {
	svc := New(WithConfig(testConfig(t)), WithoutCache())
	report, err := svc.Review(context.Background(), []byte(evalPy), "run.py", "")
	require.NoError(t, err)

	assert.Equal(t, "run.py", report.File)
	assert.Equal(t, parser.LangPython, report.Language)
	assert.NotEmpty(t, report.Sections)
	assert.NotEmpty(t, report.Improvements)
}

func TestComprehensive(t *testing.T) {
	cfg := testConfig(t)
	cfg.TestGen.Frameworks["go"] = "testify"
	svc := New(WithConfig(cfg), WithoutCache())

	out, err := svc.Comprehensive(context.Background(), []byte(cartGo), "cart/cart.go", "")
	require.NoError(t, err)

	assert.Equal(t, parser.LangGo, out.Analysis.Language)
	assert.Equal(t, "cart/cart.go", out.Review.File)
	assert.Equal(t, "cart/cart.go", out.Refactoring.File)
	require.NotNil(t, out.Tests)
	assert.Equal(t, testgen.Testify, out.Tests.Framework)
	assert.Equal(t, 1, out.Summary.TotalFiles)

	require.NotNil(t, out.Gates)
	coverage, err := out.Gates.Filter(workflow.GateCoverage)
	require.NoError(t, err)
	require.Len(t, coverage.Gates, 1)
	assert.True(t, coverage.Gates[0].Skipped, "no coverage data supplied")
	assert.False(t, out.Gates.Blocked())
}

func TestComprehensiveWithoutTestFramework(t *testing.T) {
	svc := New(WithConfig(testConfig(t)), WithoutCache())
	out, err := svc.Comprehensive(context.Background(), []byte("echo hi\n"), "run.sh", "")
	require.NoError(t, err)
	assert.Nil(t, out.Tests)
	assert.NotNil(t, out.Review)
}

func TestAgentsShareAnalyzer(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analysis.MaxParams = 1
	svc := New(WithConfig(cfg), WithoutCache())

	a, err := svc.NewAnalyzer()
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, 1, a.Limits().MaxParams)

	src := []byte("def pair(a, b):\n    return a, b\n")
	fa, err := a.AnalyzeSource(context.Background(), src, "pair.py", "")
	require.NoError(t, err)

	r := svc.Refactorer(a)
	var kinds []string
	for _, s := range r.Suggest(fa) {
		kinds = append(kinds, string(s.Kind))
	}
	assert.Contains(t, kinds, "parameter_object")

	suite, err := svc.TestGenerator(a).Generate(context.Background(), src, "pair.py", "", "")
	require.NoError(t, err)
	assert.Equal(t, testgen.Pytest, suite.Framework)
}

func analyzeOne(t *testing.T, svc *Service, src, path string) *models.FileAnalysis {
	t.Helper()
	a, err := svc.NewAnalyzer()
	require.NoError(t, err)
	defer a.Close()
	fa, err := a.AnalyzeSource(context.Background(), []byte(src), path, "")
	require.NoError(t, err)
	return fa
}
