// Package quality analyzes source files for code quality: line metrics,
// symbol structure, AST issues, complexity, heuristic security and
// performance scores, and improvement suggestions. One tree-sitter walk
// serves every supported language; files without a grammar fall back to
// textual approximations.
package quality

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panbanda/codeforge/internal/cache"
	"github.com/panbanda/codeforge/internal/fileproc"
	"github.com/panbanda/codeforge/pkg/analyzer"
	"github.com/panbanda/codeforge/pkg/analyzer/complexity"
	"github.com/panbanda/codeforge/pkg/analyzer/heuristics"
	"github.com/panbanda/codeforge/pkg/models"
	"github.com/panbanda/codeforge/pkg/parser"
	"github.com/panbanda/codeforge/pkg/source"
	"github.com/rs/zerolog"
)

// Limits are the size limits behind issues and suggestions.
type Limits struct {
	MaxStatements int `json:"max_statements"` // long_function above this
	MaxOperands   int `json:"max_operands"`   // complex_condition above this
	MaxParams     int `json:"max_params"`
	MaxLineLength int `json:"max_line_length"`
	LongLineHints int `json:"long_line_hints"` // long lines reported individually
}

// DefaultLimits returns the default limits.
func DefaultLimits() Limits {
	return Limits{
		MaxStatements: 20,
		MaxOperands:   3,
		MaxParams:     5,
		MaxLineLength: 80,
		LongLineHints: 3,
	}
}

// Analyzer runs the quality analysis.
type Analyzer struct {
	thresholds complexity.Thresholds
	limits     Limits
	scanner    *heuristics.Scanner
	cache      *cache.Cache
	src        source.ContentSource
	workers    int
	maxSize    int64
	logger     zerolog.Logger

	mu     sync.Mutex // guards parser
	parser *parser.Parser
}

// Compile-time check that Analyzer implements FileAnalyzer.
var _ analyzer.FileAnalyzer[*models.ProjectAnalysis] = (*Analyzer)(nil)

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithThresholds sets the complexity rating bands.
func WithThresholds(t complexity.Thresholds) Option {
	return func(a *Analyzer) {
		a.thresholds = t
	}
}

// WithLimits sets the issue and suggestion limits.
func WithLimits(l Limits) Option {
	return func(a *Analyzer) {
		a.limits = l
	}
}

// WithScanner sets the heuristic rule scanner.
func WithScanner(s *heuristics.Scanner) Option {
	return func(a *Analyzer) {
		if s != nil {
			a.scanner = s
		}
	}
}

// WithCache enables result caching keyed by content hash.
func WithCache(c *cache.Cache) Option {
	return func(a *Analyzer) {
		a.cache = c
	}
}

// WithSource sets where AnalyzeFile and Analyze read content from.
func WithSource(src source.ContentSource) Option {
	return func(a *Analyzer) {
		if src != nil {
			a.src = src
		}
	}
}

// WithWorkers caps the number of files analyzed concurrently.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		a.workers = n
	}
}

// WithMaxFileSize skips files larger than n bytes. Zero disables the limit.
func WithMaxFileSize(n int64) Option {
	return func(a *Analyzer) {
		a.maxSize = n
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Analyzer) {
		a.logger = l
	}
}

// New creates a quality analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		thresholds: complexity.DefaultThresholds(),
		limits:     DefaultLimits(),
		scanner:    heuristics.New(),
		src:        source.NewFilesystem(),
		logger:     zerolog.Nop(),
		parser:     parser.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Close releases the parser held for single-file analysis.
func (a *Analyzer) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.parser != nil {
		a.parser.Close()
		a.parser = nil
	}
}

// Thresholds returns the complexity bands in use.
func (a *Analyzer) Thresholds() complexity.Thresholds {
	return a.thresholds
}

// Limits returns the issue and suggestion limits in use.
func (a *Analyzer) Limits() Limits {
	return a.limits
}

// AnalyzeSource analyzes in-memory source. An empty lang is detected from
// path. Source that fails to parse cleanly still yields a result with
// SyntaxError set.
func (a *Analyzer) AnalyzeSource(ctx context.Context, src []byte, path string, lang parser.Language) (*models.FileAnalysis, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.parser == nil {
		return nil, errors.New("analyzer is closed")
	}
	return a.analyzeWith(ctx, a.parser, path, src, lang)
}

// AnalyzeFile reads path from the configured source and analyzes it.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*models.FileAnalysis, error) {
	content, err := a.src.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if a.maxSize > 0 && int64(len(content)) > a.maxSize {
		return nil, fmt.Errorf("%s: %w", path, fileproc.ErrTooLarge)
	}
	if fileproc.IsBinary(content) {
		return nil, fmt.Errorf("%s: %w", path, fileproc.ErrBinary)
	}
	return a.AnalyzeSource(ctx, content, path, parser.DetectLanguage(path))
}

// Analyze analyzes files in parallel with one parser per worker. Files that
// fail are listed in the result's Errors and do not abort the run.
func (a *Analyzer) Analyze(ctx context.Context, files []string) (*models.ProjectAnalysis, error) {
	opts := fileproc.Options{Workers: a.workers, MaxSize: a.maxSize}
	results, errs := fileproc.MapSource(ctx, files, a.src, opts,
		func(ctx context.Context, p *parser.Parser, path string, content []byte) (*models.FileAnalysis, error) {
			return a.analyzeWith(ctx, p, path, content, parser.DetectLanguage(path))
		})

	project := &models.ProjectAnalysis{Files: results}
	if project.Files == nil {
		project.Files = []*models.FileAnalysis{}
	}
	if errs != nil {
		for _, e := range errs.Sorted() {
			a.logger.Debug().Str("path", e.Path).Err(e.Err).Msg("file skipped")
			project.Errors = append(project.Errors, models.FileError{Path: e.Path, Error: e.Err.Error()})
		}
	}
	project.Summary = Summarize(project.Files)

	if err := ctx.Err(); err != nil {
		return project, err
	}
	return project, nil
}

func (a *Analyzer) cacheKey(path string, lang parser.Language) string {
	return cache.HashBytes([]byte(fmt.Sprintf("%s|%s|%v|%v|%s", path, lang, a.thresholds, a.limits, a.scanner.Signature())))
}

func (a *Analyzer) analyzeWith(ctx context.Context, p *parser.Parser, path string, src []byte, lang parser.Language) (*models.FileAnalysis, error) {
	if lang == "" {
		lang = parser.DetectLanguage(path)
	}

	hash := cache.HashBytes(src)
	key := a.cacheKey(path, lang)
	if fa, ok := cache.Load[*models.FileAnalysis](a.cache, key, hash); ok && fa != nil {
		a.logger.Debug().Str("path", path).Msg("cache hit")
		fa.MarkFlagged()
		return fa, nil
	}

	fa, err := a.compute(ctx, p, path, src, lang)
	if err != nil {
		return nil, err
	}
	fa.ContentHash = hash

	if err := cache.Store(a.cache, key, hash, fa); err != nil {
		a.logger.Warn().Str("path", path).Err(err).Msg("cache write failed")
	}
	return fa, nil
}

func newFileAnalysis(path string, lang parser.Language) *models.FileAnalysis {
	return &models.FileAnalysis{
		Path:     path,
		Language: lang,
		Metrics:  models.Metrics{Maintainability: 100},
		Issues:   []models.Issue{},
		Structure: models.Structure{
			Functions: []models.FunctionMetrics{},
			Classes:   []models.ClassMetrics{},
			Imports:   []models.ImportInfo{},
		},
		Complexity:  models.ComplexityReport{Level: models.LevelLow, Score: 100},
		Security:    models.SecurityReport{Score: 100, Risk: models.LevelLow, Issues: []models.Finding{}},
		Performance: models.PerformanceReport{Score: 100, Optimization: models.LevelLow, Issues: []models.Finding{}},
		Suggestions: []models.Suggestion{},
	}
}

func (a *Analyzer) compute(ctx context.Context, p *parser.Parser, path string, src []byte, lang parser.Language) (*models.FileAnalysis, error) {
	fa := newFileAnalysis(path, lang)
	if len(bytes.TrimSpace(src)) == 0 {
		fa.MarkFlagged()
		return fa, nil
	}

	lines := splitLines(src)
	if lang == parser.LangUnknown {
		a.textual(fa, src, lines)
		fa.MarkFlagged()
		return fa, nil
	}

	result, err := p.Parse(ctx, src, lang, path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer result.Tree.Close()
	root := result.Tree.RootNode()

	counts, commentLines := countLines(lines, commentSpans(root, src))
	syms := parser.ExtractSymbols(result)
	cx := complexity.Measure(result, syms.Functions)

	fa.Metrics = counts
	fa.Metrics.Functions = len(syms.Functions)
	fa.Metrics.Classes = len(syms.Classes)
	fa.Metrics.Imports = len(syms.Imports)
	fa.Metrics.Cyclomatic = cx.Metrics.Cyclomatic
	fa.Metrics.Maintainability = complexity.MaintainabilityIndex(cx.Metrics.Cyclomatic, rawLineCount(src))

	fa.Structure = buildStructure(syms, cx)
	fa.Complexity = models.ComplexityReport{
		Cyclomatic:    cx.Metrics.Cyclomatic,
		Cognitive:     cx.Metrics.Cognitive,
		Level:         a.thresholds.Level(cx.Metrics.Cyclomatic),
		Score:         fa.Metrics.Maintainability,
		MaxNesting:    cx.Metrics.MaxNesting,
		AvgCyclomatic: cx.AvgCyclomatic,
	}

	fa.Issues = a.detectIssues(result, syms)
	if se := parser.FindSyntaxError(result); se != nil {
		fa.SyntaxError = se
		fa.Issues = append([]models.Issue{{
			Type:     models.IssueSyntaxError,
			Message:  se.Error(),
			Line:     se.Line,
			Severity: models.SeverityHigh,
		}}, fa.Issues...)
	}

	loops, nested := loopContext(root)
	sec, perf := a.scanner.Scan(src, heuristics.Context{
		LoopLines:    loops,
		CommentLines: commentLines,
		NestedLoops:  nested,
	})
	fa.Security = a.scanner.Security(sec)
	fa.Performance = a.scanner.Performance(perf)

	fa.Suggestions = a.suggest(result, syms, lines, commentLines)
	fa.MarkFlagged()

	a.logger.Debug().
		Str("path", path).
		Str("language", lang.String()).
		Uint32("cyclomatic", fa.Metrics.Cyclomatic).
		Int("issues", len(fa.Issues)).
		Msg("analyzed")

	return fa, nil
}

func buildStructure(syms *parser.Symbols, cx *complexity.FileResult) models.Structure {
	st := models.Structure{
		Functions:       make([]models.FunctionMetrics, 0, len(syms.Functions)),
		Classes:         make([]models.ClassMetrics, 0, len(syms.Classes)),
		Imports:         make([]models.ImportInfo, 0, len(syms.Imports)),
		MaxNestingDepth: cx.Metrics.MaxNesting,
	}

	for i, fn := range syms.Functions {
		fm := models.FunctionMetrics{
			Name:       fn.Name,
			Receiver:   fn.Receiver,
			StartLine:  fn.StartLine,
			EndLine:    fn.EndLine,
			Lines:      fn.Lines(),
			Params:     fn.Parameters,
			Statements: fn.Statements,
			HasDoc:     fn.HasDoc,
			IsMethod:   fn.IsMethod,
			Cyclomatic: 1,
		}
		if i < len(cx.Functions) {
			m := cx.Functions[i].Metrics
			fm.Cyclomatic = m.Cyclomatic
			fm.Cognitive = m.Cognitive
			fm.MaxNesting = m.MaxNesting
		}
		st.Functions = append(st.Functions, fm)
	}

	for _, cls := range syms.Classes {
		st.Classes = append(st.Classes, models.ClassMetrics{
			Name:      cls.Name,
			Kind:      cls.Kind,
			StartLine: cls.StartLine,
			EndLine:   cls.EndLine,
			Methods:   cls.Methods,
			HasDoc:    cls.HasDoc,
		})
	}

	for _, imp := range syms.Imports {
		st.Imports = append(st.Imports, models.ImportInfo{
			Module: imp.Module,
			Name:   imp.Name,
			Line:   imp.Line,
		})
	}

	return st
}

// textual fills a result for a file without a grammar.
func (a *Analyzer) textual(fa *models.FileAnalysis, src []byte, lines [][]byte) {
	counts, commentLines := countTextualLines(lines)
	cc := complexity.TextualCyclomatic(src)
	nesting := complexity.TextualNesting(src)

	fa.Metrics = counts
	fa.Metrics.Cyclomatic = cc
	fa.Metrics.Maintainability = complexity.MaintainabilityIndex(cc, rawLineCount(src))
	fa.Structure.MaxNestingDepth = nesting
	fa.Complexity = models.ComplexityReport{
		Cyclomatic: cc,
		Level:      a.thresholds.Level(cc),
		Score:      fa.Metrics.Maintainability,
		MaxNesting: nesting,
	}

	sec, perf := a.scanner.Scan(src, heuristics.Context{CommentLines: commentLines})
	fa.Security = a.scanner.Security(sec)
	fa.Performance = a.scanner.Performance(perf)

	fa.Suggestions = append(fa.Suggestions, textualMagicNumbers(lines, commentLines)...)
	fa.Suggestions = append(fa.Suggestions, a.longLines(lines)...)
}
