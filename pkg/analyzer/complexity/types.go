package complexity

import "github.com/panbanda/codeforge/pkg/models"

// Metrics represents code complexity measurements for a function or file.
type Metrics struct {
	Cyclomatic uint32 `json:"cyclomatic"`
	Cognitive  uint32 `json:"cognitive"`
	MaxNesting int    `json:"max_nesting"`
	Lines      int    `json:"lines"`
}

// FunctionResult represents complexity metrics for a single function.
type FunctionResult struct {
	Name      string  `json:"name"`
	StartLine uint32  `json:"start_line"`
	EndLine   uint32  `json:"end_line"`
	Metrics   Metrics `json:"metrics"`
}

// FileResult represents file-level complexity plus the per-function breakdown.
type FileResult struct {
	Metrics       Metrics          `json:"metrics"`
	Functions     []FunctionResult `json:"functions"`
	AvgCyclomatic float64          `json:"avg_cyclomatic"`
	MaxCyclomatic uint32           `json:"max_cyclomatic"`
}

// Condition is a boolean expression that chains many operands.
type Condition struct {
	Line     uint32 `json:"line"`
	Operator string `json:"operator"`
	Operands int    `json:"operands"`
}

// Thresholds defines the limits used to rate complexity.
type Thresholds struct {
	Medium uint32 `json:"medium"`
	High   uint32 `json:"high"`
}

// DefaultThresholds returns the default rating bands:
// above 10 is high, above 5 is medium.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Medium: 5,
		High:   10,
	}
}

// Level rates a cyclomatic complexity value.
func (t Thresholds) Level(cyclomatic uint32) models.Level {
	switch {
	case cyclomatic > t.High:
		return models.LevelHigh
	case cyclomatic > t.Medium:
		return models.LevelMedium
	default:
		return models.LevelLow
	}
}

// ComplexityScore calculates a composite complexity score for ranking.
// Combines cyclomatic, cognitive, nesting, and lines with weighted factors.
func (m *Metrics) ComplexityScore() float64 {
	return float64(m.Cyclomatic)*1.0 +
		float64(m.Cognitive)*1.2 +
		float64(m.MaxNesting)*2.0 +
		float64(m.Lines)*0.1
}
