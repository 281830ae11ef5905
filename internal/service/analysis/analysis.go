// Package analysis wires configuration into the analysis engine. The CLI
// and the MCP server build analyzers, gates and agents through it so both
// honor the same settings.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/panbanda/codeforge/internal/cache"
	"github.com/panbanda/codeforge/pkg/analyzer"
	"github.com/panbanda/codeforge/pkg/analyzer/complexity"
	"github.com/panbanda/codeforge/pkg/analyzer/heuristics"
	"github.com/panbanda/codeforge/pkg/analyzer/quality"
	"github.com/panbanda/codeforge/pkg/config"
	"github.com/panbanda/codeforge/pkg/models"
	"github.com/panbanda/codeforge/pkg/parser"
	"github.com/panbanda/codeforge/pkg/refactor"
	"github.com/panbanda/codeforge/pkg/review"
	"github.com/panbanda/codeforge/pkg/source"
	"github.com/panbanda/codeforge/pkg/testgen"
	"github.com/panbanda/codeforge/pkg/workflow"
	"github.com/rs/zerolog"
)

// Service orchestrates code analysis operations.
type Service struct {
	config  *config.Config
	logger  zerolog.Logger
	source  source.ContentSource
	workers int
	noCache bool
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.config = cfg
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithSource reads file content from src instead of the working tree.
func WithSource(src source.ContentSource) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithWorkers overrides the configured worker count.
func WithWorkers(n int) Option {
	return func(s *Service) {
		s.workers = n
	}
}

// WithoutCache disables the result cache regardless of configuration.
func WithoutCache() Option {
	return func(s *Service) {
		s.noCache = true
	}
}

// New creates a new analysis service.
func New(opts ...Option) *Service {
	s := &Service{
		config: config.LoadOrDefault(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective configuration.
func (s *Service) Config() *config.Config {
	return s.config
}

// Thresholds returns the configured complexity bands.
func (s *Service) Thresholds() complexity.Thresholds {
	t := s.config.Thresholds
	return complexity.Thresholds{Medium: uint32(t.CyclomaticMedium), High: uint32(t.CyclomaticHigh)}
}

// Limits returns the configured issue and suggestion limits.
func (s *Service) Limits() quality.Limits {
	a := s.config.Analysis
	return quality.Limits{
		MaxStatements: a.MaxStatements,
		MaxOperands:   a.MaxOperands,
		MaxParams:     a.MaxParams,
		MaxLineLength: a.MaxLineLength,
		LongLineHints: a.LongLineHints,
	}
}

// Heuristics returns a pattern scanner configured from the heuristics section.
func (s *Service) Heuristics() *heuristics.Scanner {
	h := s.config.Heuristics
	return heuristics.New(
		heuristics.WithDisabledRules(h.Disabled...),
		heuristics.WithPenalties(h.SecurityPenalty, h.PerformancePenalty),
		heuristics.WithBands(
			heuristics.Bands{High: h.SecurityHigh, Medium: h.SecurityMedium},
			heuristics.Bands{High: h.PerformanceHigh, Medium: h.PerformanceMedium},
		),
	)
}

// Gates returns the configured CI quality gates.
func (s *Service) Gates() workflow.QualityGates {
	g := s.config.Gates
	return workflow.QualityGates{
		CoverageMin:           g.CoverageMin,
		CoverageTarget:        g.CoverageTarget,
		MaxCyclomatic:         uint32(g.MaxCyclomatic),
		MaxSecurityFindings:   g.MaxSecurityFindings,
		MinMaintainability:    g.MinMaintainability,
		MinOverallScore:       g.MinOverallScore,
		MaxResponseTimeMillis: g.MaxResponseTimeMillis,
	}
}

// Framework returns the configured test framework for lang, falling back to
// the language default.
func (s *Service) Framework(lang parser.Language) testgen.Framework {
	key := lang
	if lang == parser.LangTSX {
		key = parser.LangTypeScript
	}
	if fw := s.config.Framework(string(key)); fw != "" {
		return testgen.Framework(fw)
	}
	return testgen.DefaultFramework(lang)
}

// Cache opens the configured result cache.
func (s *Service) Cache() (*cache.Cache, error) {
	c := s.config.Cache
	if s.noCache || !c.Enabled {
		return cache.Disabled(), nil
	}
	return cache.New(c.Dir, time.Duration(c.TTL)*time.Hour, true)
}

// NewAnalyzer builds a quality analyzer from configuration. extra options
// are applied last. The caller must Close it.
func (s *Service) NewAnalyzer(extra ...quality.Option) (*quality.Analyzer, error) {
	c, err := s.Cache()
	if err != nil {
		s.logger.Warn().Err(err).Msg("cache unavailable, continuing without it")
		c = cache.Disabled()
	}

	workers := s.config.Analysis.Workers
	if s.workers > 0 {
		workers = s.workers
	}

	opts := []quality.Option{
		quality.WithThresholds(s.Thresholds()),
		quality.WithLimits(s.Limits()),
		quality.WithScanner(s.Heuristics()),
		quality.WithCache(c),
		quality.WithWorkers(workers),
		quality.WithMaxFileSize(s.config.Analysis.MaxFileSize),
		quality.WithLogger(s.logger),
	}
	if s.source != nil {
		opts = append(opts, quality.WithSource(s.source))
	}
	return quality.New(append(opts, extra...)...), nil
}

// AnalyzeFiles analyzes files in parallel. onProgress may be nil.
func (s *Service) AnalyzeFiles(ctx context.Context, files []string, onProgress analyzer.ProgressFunc) (*models.ProjectAnalysis, error) {
	a, err := s.NewAnalyzer()
	if err != nil {
		return nil, err
	}
	defer a.Close()

	if onProgress != nil {
		ctx = analyzer.WithTracker(ctx, analyzer.NewTracker(onProgress))
	}

	start := time.Now()
	project, err := a.Analyze(ctx, files)
	if err != nil {
		return project, fmt.Errorf("analyze: %w", err)
	}
	s.logger.Debug().
		Int("files", len(project.Files)).
		Int("errors", len(project.Errors)).
		Dur("elapsed", time.Since(start)).
		Msg("project analyzed")
	return project, nil
}

// Review analyzes one file and reviews it.
func (s *Service) Review(ctx context.Context, src []byte, path string, lang parser.Language) (*review.Report, error) {
	a, err := s.NewAnalyzer()
	if err != nil {
		return nil, err
	}
	defer a.Close()

	fa, err := a.AnalyzeSource(ctx, src, path, lang)
	if err != nil {
		return nil, err
	}
	return review.Review(fa, review.WithThresholds(s.Thresholds())), nil
}

// Refactorer returns a refactorer sharing a with the caller.
func (s *Service) Refactorer(a *quality.Analyzer) *refactor.Refactorer {
	return refactor.New(refactor.WithAnalyzer(a), refactor.WithLogger(s.logger))
}

// TestGenerator returns a test generator sharing a with the caller.
func (s *Service) TestGenerator(a *quality.Analyzer) *testgen.Generator {
	return testgen.New(testgen.WithAnalyzer(a), testgen.WithLogger(s.logger))
}

// Comprehensive is the combined output of every agent for one file.
type Comprehensive struct {
	Analysis    *models.FileAnalysis `json:"analysis" toon:"analysis"`
	Review      *review.Report       `json:"review" toon:"review"`
	Refactoring *refactor.Plan       `json:"refactoring" toon:"refactoring"`
	Tests       *testgen.Suite       `json:"tests,omitempty" toon:"tests,omitempty"`
	Gates       *workflow.GateResult `json:"gates" toon:"gates"`
	Summary     models.Summary       `json:"summary" toon:"summary"`
}

// Comprehensive runs analysis, review, refactoring and test generation on
// one file and evaluates the quality gates against it. Tests are omitted
// for languages without a test framework.
func (s *Service) Comprehensive(ctx context.Context, src []byte, path string, lang parser.Language) (*Comprehensive, error) {
	a, err := s.NewAnalyzer()
	if err != nil {
		return nil, err
	}
	defer a.Close()

	fa, err := a.AnalyzeSource(ctx, src, path, lang)
	if err != nil {
		return nil, err
	}

	out := &Comprehensive{
		Analysis:    fa,
		Review:      review.Review(fa, review.WithThresholds(s.Thresholds())),
		Refactoring: s.Refactorer(a).Plan(fa),
		Summary:     quality.Summarize([]*models.FileAnalysis{fa}),
	}
	out.Gates = workflow.Evaluate(s.Gates(), out.Summary, nil)

	if testgen.Supported(fa.Language) {
		suite, err := s.TestGenerator(a).FromAnalysis(fa, s.Framework(fa.Language))
		if err != nil {
			return nil, err
		}
		out.Tests = suite
	}
	return out, nil
}
