package refactor

import (
	"github.com/panbanda/codeforge/pkg/models"
	"github.com/panbanda/codeforge/pkg/parser"
)

// Kind names a refactoring technique.
type Kind string

const (
	KindExtractMethod     Kind = "extract_method"
	KindSplitModule       Kind = "split_module"
	KindSimplifyCondition Kind = "simplify_condition"
	KindGuardClauses      Kind = "guard_clauses"
	KindParameterObject   Kind = "parameter_object"
	KindRename            Kind = "rename"
	KindRemoveImport      Kind = "remove_import"
	KindFixSyntax         Kind = "fix_syntax"
)

// String implements fmt.Stringer for toon serialization.
func (k Kind) String() string { return string(k) }

// Suggestion is one concrete refactoring.
type Suggestion struct {
	Kind     Kind            `json:"kind" toon:"kind"`
	Priority models.Severity `json:"priority" toon:"priority"`
	Target   string          `json:"target,omitempty" toon:"target,omitempty"`
	Line     uint32          `json:"line,omitempty" toon:"line,omitempty"`
	Message  string          `json:"message" toon:"message"`
}

// Targets are the headline metrics a plan tracks.
type Targets struct {
	MaxFunctionCyclomatic uint32  `json:"max_function_cyclomatic" toon:"max_function_cyclomatic"`
	Maintainability       float64 `json:"maintainability" toon:"maintainability"`
	MaxNesting            int     `json:"max_nesting" toon:"max_nesting"`
	MaxParams             int     `json:"max_params" toon:"max_params"`
	Issues                int     `json:"issues" toon:"issues"`
}

// Plan is a refactoring plan for one file.
type Plan struct {
	File        string       `json:"file" toon:"file"`
	Current     Targets      `json:"current" toon:"current"`
	Target      Targets      `json:"target" toon:"target"`
	Suggestions []Suggestion `json:"suggestions" toon:"suggestions"`
	Steps       []string     `json:"steps" toon:"steps"`
}

// Delta is the change of a metric from the original to the refactored code.
// Negative values are reductions.
type Delta struct {
	Cyclomatic      int     `json:"cyclomatic" toon:"cyclomatic"`
	Cognitive       int     `json:"cognitive" toon:"cognitive"`
	Maintainability float64 `json:"maintainability" toon:"maintainability"`
	CodeLines       int     `json:"code_lines" toon:"code_lines"`
	Issues          int     `json:"issues" toon:"issues"`
	MaxNesting      int     `json:"max_nesting" toon:"max_nesting"`
}

// Verification compares an original and a refactored version of a file.
type Verification struct {
	Language            parser.Language     `json:"language" toon:"language"`
	Success             bool                `json:"success" toon:"success"`
	Parses              bool                `json:"parses" toon:"parses"`
	SyntaxError         *parser.SyntaxError `json:"syntax_error,omitempty" toon:"syntax_error,omitempty"`
	Missing             []string            `json:"missing" toon:"missing"`
	Added               []string            `json:"added" toon:"added"`
	Preserved           []string            `json:"preserved" toon:"preserved"`
	ComplexityIncreased bool                `json:"complexity_increased" toon:"complexity_increased"`
	Before              models.Metrics      `json:"before" toon:"before"`
	After               models.Metrics      `json:"after" toon:"after"`
	Delta               Delta               `json:"delta" toon:"delta"`
	Problems            []string            `json:"problems" toon:"problems"`
}
