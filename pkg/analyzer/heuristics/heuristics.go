// Package heuristics scores source files for security and performance risks
// using one language-agnostic rule set. Loop-sensitive rules use loop line
// ranges supplied by the caller from the syntax tree.
package heuristics

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/panbanda/codeforge/pkg/models"
)

// Bands are the score cut-offs for rating a category.
// A score below High rates high, below Medium rates medium.
type Bands struct {
	High   float64 `json:"high"`
	Medium float64 `json:"medium"`
}

// Rate converts a score to a level.
func (b Bands) Rate(score float64) models.Level {
	switch {
	case score < b.High:
		return models.LevelHigh
	case score < b.Medium:
		return models.LevelMedium
	default:
		return models.LevelLow
	}
}

// Scanner matches rules against source lines.
type Scanner struct {
	rules              []Rule
	securityPenalty    float64
	performancePenalty float64
	securityBands      Bands
	performanceBands   Bands
}

// Option is a functional option for configuring Scanner.
type Option func(*Scanner)

// WithDisabledRules removes rules by ID.
func WithDisabledRules(ids ...string) Option {
	return func(s *Scanner) {
		disabled := make(map[string]bool, len(ids))
		for _, id := range ids {
			disabled[id] = true
		}
		kept := s.rules[:0]
		for _, r := range s.rules {
			if !disabled[r.ID] {
				kept = append(kept, r)
			}
		}
		s.rules = kept
	}
}

// WithPenalties sets the points deducted per security and performance match.
func WithPenalties(security, performance float64) Option {
	return func(s *Scanner) {
		if security > 0 {
			s.securityPenalty = security
		}
		if performance > 0 {
			s.performancePenalty = performance
		}
	}
}

// WithBands sets the rating cut-offs for security risk and optimization need.
func WithBands(security, performance Bands) Option {
	return func(s *Scanner) {
		s.securityBands = security
		s.performanceBands = performance
	}
}

// New creates a scanner with the default rule set.
func New(opts ...Option) *Scanner {
	s := &Scanner{
		rules:              defaultRules(),
		securityPenalty:    20,
		performancePenalty: 15,
		securityBands:      Bands{High: 50, Medium: 80},
		performanceBands:   Bands{High: 60, Medium: 80},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rules returns the active rules, including the syntax-tree nested loop rule.
func (s *Scanner) Rules() []Rule {
	out := make([]Rule, 0, len(s.rules)+1)
	out = append(out, s.rules...)
	return append(out, NestedLoopRule)
}

// Signature identifies the active rules and penalties. Cached results
// computed under another signature are stale.
func (s *Scanner) Signature() string {
	ids := make([]string, 0, len(s.rules))
	for _, r := range s.rules {
		ids = append(ids, r.ID)
	}
	return fmt.Sprintf("%s|%g|%g|%v|%v", strings.Join(ids, ","), s.securityPenalty, s.performancePenalty, s.securityBands, s.performanceBands)
}

// Context carries syntax-tree facts the line scanner cannot see.
type Context struct {
	// LoopLines holds every line inside a loop.
	LoopLines *roaring.Bitmap
	// CommentLines holds lines that are entirely comments; they are skipped.
	CommentLines *roaring.Bitmap
	// NestedLoops holds the header line of each loop nested in another loop.
	NestedLoops []uint32
}

// Scan matches every rule against each line and returns findings split by category,
// ordered by line.
func (s *Scanner) Scan(source []byte, ctx Context) (security, performance []models.Finding) {
	lines := bytes.Split(source, []byte("\n"))
	for i, raw := range lines {
		lineNo := uint32(i + 1)
		if ctx.CommentLines != nil && ctx.CommentLines.Contains(lineNo) {
			continue
		}
		line := string(raw)
		if strings.TrimSpace(line) == "" {
			continue
		}
		inLoop := ctx.LoopLines != nil && ctx.LoopLines.Contains(lineNo)

		for _, r := range s.rules {
			if r.inLoop && !inLoop {
				continue
			}
			matches := r.pattern.FindAllStringIndex(line, -1)
			if len(matches) == 0 {
				continue
			}
			if r.unless != nil && r.unless.MatchString(line) {
				continue
			}
			// One finding per occurrence.
			for range matches {
				f := models.Finding{
					Rule:     r.ID,
					Category: r.Category,
					Message:  r.Message,
					Line:     lineNo,
					Severity: r.Severity,
					Snippet:  snippet(line),
				}
				if r.Category == models.CategorySecurity {
					security = append(security, f)
				} else {
					performance = append(performance, f)
				}
			}
		}
	}

	for _, line := range ctx.NestedLoops {
		f := models.Finding{
			Rule:     NestedLoopRule.ID,
			Category: NestedLoopRule.Category,
			Message:  NestedLoopRule.Message,
			Line:     line,
			Severity: NestedLoopRule.Severity,
		}
		if int(line) <= len(lines) {
			f.Snippet = snippet(string(lines[line-1]))
		}
		performance = append(performance, f)
	}

	sort.SliceStable(performance, func(i, j int) bool { return performance[i].Line < performance[j].Line })
	return security, performance
}

// Security builds a security report from findings.
func (s *Scanner) Security(findings []models.Finding) models.SecurityReport {
	score := Score(len(findings), s.securityPenalty)
	return models.SecurityReport{
		Score:  score,
		Risk:   s.securityBands.Rate(score),
		Issues: nonNil(findings),
	}
}

// Performance builds a performance report from findings.
func (s *Scanner) Performance(findings []models.Finding) models.PerformanceReport {
	score := Score(len(findings), s.performancePenalty)
	return models.PerformanceReport{
		Score:        score,
		Optimization: s.performanceBands.Rate(score),
		Issues:       nonNil(findings),
	}
}

// Score deducts penalty points per match from 100, with a floor of 0.
func Score(matches int, penalty float64) float64 {
	return math.Max(0, 100-float64(matches)*penalty)
}

func nonNil(f []models.Finding) []models.Finding {
	if f == nil {
		return []models.Finding{}
	}
	return f
}

func snippet(line string) string {
	line = strings.TrimSpace(line)
	const maxLen = 80
	if len(line) > maxLen {
		return line[:maxLen] + "..."
	}
	return line
}
