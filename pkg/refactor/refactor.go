// Package refactor proposes refactorings from an analysis and verifies that a
// refactored file keeps its functions, still parses, and is no more complex
// than the original.
package refactor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/panbanda/codeforge/pkg/analyzer/complexity"
	"github.com/panbanda/codeforge/pkg/analyzer/quality"
	"github.com/panbanda/codeforge/pkg/models"
	"github.com/panbanda/codeforge/pkg/parser"
	"github.com/rs/zerolog"
)

// MaxSuggestions caps Suggest.
const MaxSuggestions = 5

// Limits used by the suggestion rules.
const (
	MaxNesting         = 3
	MinMaintainability = 50
	// TargetMaintainability is the maintainability a plan aims for.
	TargetMaintainability = 70
)

// ErrUnsupportedLanguage is returned by Verify for code without a grammar.
var ErrUnsupportedLanguage = errors.New("refactoring verification needs a supported language")

// Refactorer suggests and verifies refactorings.
type Refactorer struct {
	analyzer   *quality.Analyzer
	owned      bool
	thresholds complexity.Thresholds
	maxParams  int
	logger     zerolog.Logger
}

// Option is a functional option for configuring Refactorer.
type Option func(*Refactorer)

// WithAnalyzer sets the analyzer Verify uses. The caller keeps ownership.
func WithAnalyzer(a *quality.Analyzer) Option {
	return func(r *Refactorer) {
		if a != nil {
			r.analyzer = a
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Refactorer) {
		r.logger = l
	}
}

// New creates a Refactorer. Thresholds and parameter limits come from the
// analyzer.
func New(opts ...Option) *Refactorer {
	r := &Refactorer{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	if r.analyzer == nil {
		r.analyzer = quality.New()
		r.owned = true
	}
	r.thresholds = r.analyzer.Thresholds()
	r.maxParams = r.analyzer.Limits().MaxParams
	return r
}

// Close releases the analyzer when the Refactorer created it.
func (r *Refactorer) Close() {
	if r.owned {
		r.analyzer.Close()
	}
}

// Suggest returns the most important refactorings, highest priority first.
func (r *Refactorer) Suggest(fa *models.FileAnalysis) []Suggestion {
	all := r.suggestions(fa)
	if len(all) > MaxSuggestions {
		all = all[:MaxSuggestions]
	}
	return all
}

func (r *Refactorer) suggestions(fa *models.FileAnalysis) []Suggestion {
	var out []Suggestion
	seen := make(map[string]bool)
	add := func(s Suggestion) {
		key := string(s.Kind) + "\x00" + s.Target + "\x00" + fmt.Sprint(s.Line)
		if !seen[key] {
			seen[key] = true
			out = append(out, s)
		}
	}

	for _, is := range fa.Issues {
		if is.Type == models.IssueSyntaxError {
			add(Suggestion{Kind: KindFixSyntax, Priority: models.SeverityCritical, Line: is.Line,
				Message: "Fix the syntax error before refactoring: " + is.Message})
		}
	}

	complexFns := 0
	for _, fn := range fa.Structure.Functions {
		if fn.Cyclomatic > r.thresholds.High {
			complexFns++
			add(Suggestion{Kind: KindExtractMethod, Priority: models.SeverityHigh, Target: fn.Name, Line: fn.StartLine,
				Message: fmt.Sprintf("Break '%s' (cyclomatic %d) into smaller, focused functions", fn.Name, fn.Cyclomatic)})
		}
	}
	if complexFns == 0 && fa.Metrics.Cyclomatic > r.thresholds.High {
		add(Suggestion{Kind: KindExtractMethod, Priority: models.SeverityHigh,
			Message: fmt.Sprintf("Break complex logic (cyclomatic %d) into smaller, focused functions", fa.Metrics.Cyclomatic)})
	}

	if fa.Metrics.CodeLines > 0 && fa.Metrics.Maintainability < MinMaintainability {
		add(Suggestion{Kind: KindSplitModule, Priority: models.SeverityHigh,
			Message: fmt.Sprintf("Maintainability is %.1f; split the module into cohesive units", fa.Metrics.Maintainability)})
	}

	for _, is := range fa.Issues {
		switch is.Type {
		case models.IssueComplexCondition:
			add(Suggestion{Kind: KindSimplifyCondition, Priority: models.SeverityMedium, Line: is.Line,
				Message: "Simplify complex logic: " + is.Message + "; extract a well-named predicate"})
		case models.IssueLongFunction:
			add(Suggestion{Kind: KindExtractMethod, Priority: models.SeverityMedium, Target: is.Symbol, Line: is.Line,
				Message: is.Message + "; extract cohesive blocks into helpers"})
		case models.IssueNaming:
			add(Suggestion{Kind: KindRename, Priority: models.SeverityLow, Target: is.Symbol, Line: is.Line,
				Message: "Follow naming conventions: " + is.Message})
		case models.IssueUnusedImport:
			add(Suggestion{Kind: KindRemoveImport, Priority: models.SeverityLow, Line: is.Line,
				Message: is.Message + "; remove it"})
		}
	}

	deepFns := 0
	for _, fn := range fa.Structure.Functions {
		if fn.MaxNesting > MaxNesting {
			deepFns++
			add(Suggestion{Kind: KindGuardClauses, Priority: models.SeverityMedium, Target: fn.Name, Line: fn.StartLine,
				Message: fmt.Sprintf("Reduce nesting depth %d in '%s' with guard clauses or helper functions", fn.MaxNesting, fn.Name)})
		}
	}
	if deepFns == 0 && fa.Structure.MaxNestingDepth > MaxNesting {
		add(Suggestion{Kind: KindGuardClauses, Priority: models.SeverityMedium,
			Message: fmt.Sprintf("Reduce nesting depth %d by extracting helper functions", fa.Structure.MaxNestingDepth)})
	}

	for _, fn := range fa.Structure.Functions {
		if len(fn.Params) > r.maxParams {
			add(Suggestion{Kind: KindParameterObject, Priority: models.SeverityMedium, Target: fn.Name, Line: fn.StartLine,
				Message: fmt.Sprintf("'%s' takes %d parameters; introduce a parameter object", fn.Name, len(fn.Params))})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		wi, wj := out[i].Priority.Weight(), out[j].Priority.Weight()
		if wi != wj {
			return wi > wj
		}
		return out[i].Line < out[j].Line
	})
	if out == nil {
		return []Suggestion{}
	}
	return out
}

func current(fa *models.FileAnalysis) Targets {
	t := Targets{
		MaxFunctionCyclomatic: fa.Metrics.Cyclomatic,
		Maintainability:       fa.Metrics.Maintainability,
		MaxNesting:            fa.Structure.MaxNestingDepth,
		Issues:                len(fa.Issues),
	}
	if len(fa.Structure.Functions) > 0 {
		t.MaxFunctionCyclomatic = 0
	}
	for _, fn := range fa.Structure.Functions {
		t.MaxFunctionCyclomatic = max(t.MaxFunctionCyclomatic, fn.Cyclomatic)
		t.MaxParams = max(t.MaxParams, len(fn.Params))
	}
	return t
}

// Plan returns every suggestion together with current and target metrics.
// Targets never ask for a regression.
func (r *Refactorer) Plan(fa *models.FileAnalysis) *Plan {
	cur := current(fa)
	p := &Plan{
		File:    fa.Path,
		Current: cur,
		Target: Targets{
			MaxFunctionCyclomatic: min(cur.MaxFunctionCyclomatic, r.thresholds.High),
			Maintainability:       math.Min(100, math.Max(cur.Maintainability, TargetMaintainability)),
			MaxNesting:            min(cur.MaxNesting, MaxNesting),
			MaxParams:             min(cur.MaxParams, r.maxParams),
			Issues:                0,
		},
		Suggestions: r.suggestions(fa),
		Steps:       []string{},
	}

	for i, s := range p.Suggestions {
		step := fmt.Sprintf("%d. %s", i+1, s.Message)
		if s.Line > 0 {
			step = fmt.Sprintf("%d. Line %d: %s", i+1, s.Line, s.Message)
		}
		p.Steps = append(p.Steps, step)
	}
	if len(p.Suggestions) > 0 {
		p.Steps = append(p.Steps, fmt.Sprintf("%d. Run 'codeforge refactor verify' to confirm functions are preserved", len(p.Suggestions)+1))
	}
	return p
}

// Verify analyzes both versions and compares them. The refactored code
// passes when it parses, keeps every original function, and its cyclomatic
// complexity did not grow.
func (r *Refactorer) Verify(ctx context.Context, original, refactored []byte, lang parser.Language) (*Verification, error) {
	if lang == parser.LangUnknown || lang == "" {
		return nil, ErrUnsupportedLanguage
	}

	before, err := r.analyzer.AnalyzeSource(ctx, original, "original", lang)
	if err != nil {
		return nil, fmt.Errorf("analyze original: %w", err)
	}
	after, err := r.analyzer.AnalyzeSource(ctx, refactored, "refactored", lang)
	if err != nil {
		return nil, fmt.Errorf("analyze refactored: %w", err)
	}

	v := &Verification{
		Language:    lang,
		Parses:      after.SyntaxError == nil,
		SyntaxError: after.SyntaxError,
		Before:      before.Metrics,
		After:       after.Metrics,
		Problems:    []string{},
	}
	v.Missing, v.Added, v.Preserved = compareFunctions(functionNames(before), functionNames(after))
	v.Delta = Delta{
		Cyclomatic:      int(after.Metrics.Cyclomatic) - int(before.Metrics.Cyclomatic),
		Cognitive:       int(after.Complexity.Cognitive) - int(before.Complexity.Cognitive),
		Maintainability: math.Round((after.Metrics.Maintainability-before.Metrics.Maintainability)*100) / 100,
		CodeLines:       after.Metrics.CodeLines - before.Metrics.CodeLines,
		Issues:          len(after.Issues) - len(before.Issues),
		MaxNesting:      after.Structure.MaxNestingDepth - before.Structure.MaxNestingDepth,
	}
	v.ComplexityIncreased = v.Delta.Cyclomatic > 0

	if !v.Parses {
		v.Problems = append(v.Problems, "refactored code does not parse: "+after.SyntaxError.Error())
	}
	if before.SyntaxError != nil {
		v.Problems = append(v.Problems, "original code does not parse; function comparison may be incomplete")
	}
	for _, name := range v.Missing {
		v.Problems = append(v.Problems, fmt.Sprintf("function '%s' is missing", name))
	}
	if v.ComplexityIncreased {
		v.Problems = append(v.Problems, fmt.Sprintf("cyclomatic complexity grew by %d", v.Delta.Cyclomatic))
	}
	v.Success = v.Parses && len(v.Missing) == 0 && !v.ComplexityIncreased

	r.logger.Debug().
		Bool("success", v.Success).
		Int("missing", len(v.Missing)).
		Int("added", len(v.Added)).
		Int("cyclomatic_delta", v.Delta.Cyclomatic).
		Msg("refactoring verified")

	return v, nil
}

// functionNames returns qualified function names; methods are prefixed
// with their receiver.
func functionNames(fa *models.FileAnalysis) map[string]bool {
	names := make(map[string]bool, len(fa.Structure.Functions))
	for _, fn := range fa.Structure.Functions {
		name := fn.Name
		if fn.Receiver != "" {
			name = fn.Receiver + "." + fn.Name
		}
		names[name] = true
	}
	return names
}

func compareFunctions(before, after map[string]bool) (missing, added, preserved []string) {
	missing, added, preserved = []string{}, []string{}, []string{}
	for name := range before {
		if after[name] {
			preserved = append(preserved, name)
		} else {
			missing = append(missing, name)
		}
	}
	for name := range after {
		if !before[name] {
			added = append(added, name)
		}
	}
	sort.Strings(missing)
	sort.Strings(added)
	sort.Strings(preserved)
	return missing, added, preserved
}
