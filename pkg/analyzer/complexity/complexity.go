// Package complexity measures cyclomatic complexity, cognitive complexity and
// control-flow nesting over tree-sitter syntax trees.
package complexity

import (
	"math"

	"github.com/panbanda/codeforge/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// Measure computes file-level metrics from the whole tree and per-function
// metrics for each extracted function.
func Measure(result *parser.ParseResult, functions []parser.FunctionNode) *FileResult {
	root := result.Tree.RootNode()
	fr := &FileResult{
		Metrics: Metrics{
			Cyclomatic: 1 + CountDecisionPoints(root, result.Source, result.Language),
			Cognitive:  CalculateCognitiveComplexity(root, result.Source, result.Language, 0),
			MaxNesting: MaxNesting(root, result.Language),
			Lines:      int(root.EndPoint().Row) + 1,
		},
		Functions: make([]FunctionResult, 0, len(functions)),
	}

	var total uint32
	for _, fn := range functions {
		fc := MeasureFunction(fn, result)
		fr.Functions = append(fr.Functions, fc)
		total += fc.Metrics.Cyclomatic
		if fc.Metrics.Cyclomatic > fr.MaxCyclomatic {
			fr.MaxCyclomatic = fc.Metrics.Cyclomatic
		}
	}
	if len(fr.Functions) > 0 {
		fr.AvgCyclomatic = float64(total) / float64(len(fr.Functions))
	}

	return fr
}

// MeasureFunction computes complexity metrics for a single function.
func MeasureFunction(fn parser.FunctionNode, result *parser.ParseResult) FunctionResult {
	fc := FunctionResult{
		Name:      fn.Name,
		StartLine: fn.StartLine,
		EndLine:   fn.EndLine,
		Metrics: Metrics{
			Cyclomatic: 1,
			Lines:      fn.Lines(),
		},
	}

	if fn.Body == nil {
		return fc
	}

	fc.Metrics.Cyclomatic = 1 + CountDecisionPoints(fn.Body, result.Source, result.Language)
	fc.Metrics.Cognitive = CalculateCognitiveComplexity(fn.Body, result.Source, result.Language, 0)
	fc.Metrics.MaxNesting = MaxNesting(fn.Body, result.Language)

	return fc
}

// MaintainabilityIndex returns max(0, 100 - cc*2 - lines*0.1), rounded to two decimals.
func MaintainabilityIndex(cyclomatic uint32, lines int) float64 {
	mi := 100 - float64(cyclomatic)*2 - float64(lines)*0.1
	if mi < 0 {
		mi = 0
	}
	return math.Round(mi*100) / 100
}

// CountDecisionPoints counts branching statements for cyclomatic complexity.
// Each short-circuit operator adds one, so a boolean chain of N operands adds N-1.
func CountDecisionPoints(node *sitter.Node, source []byte, lang parser.Language) uint32 {
	var count uint32

	decisionTypes := makeSet(getDecisionNodeTypes(lang))

	parser.WalkTyped(node, source, func(n *sitter.Node, nodeType string, src []byte) bool {
		if decisionTypes[nodeType] {
			count++
		}
		if booleanOperator(n, nodeType) != "" {
			count++
		}
		return true
	})

	return count
}

// CalculateCognitiveComplexity computes cognitive complexity with nesting penalties.
func CalculateCognitiveComplexity(node *sitter.Node, source []byte, lang parser.Language, depth int) uint32 {
	info := buildCognitiveTypeInfo(lang)
	return calcCognitiveRecursive(node, source, info, depth)
}

// ComplexConditions returns every boolean chain with more than maxOperands
// operands. Only chains of the same operator are merged, so
// "a and b or c" is two chains of two.
func ComplexConditions(root *sitter.Node, source []byte, maxOperands int) []Condition {
	var out []Condition
	parser.WalkTyped(root, source, func(n *sitter.Node, nodeType string, src []byte) bool {
		op := booleanOperator(n, nodeType)
		if op == "" {
			return true
		}
		if parent := n.Parent(); parent != nil && booleanOperator(parent, parent.Type()) == op {
			return true
		}
		if operands := countOperands(n, op); operands > maxOperands {
			out = append(out, Condition{
				Line:     n.StartPoint().Row + 1,
				Operator: op,
				Operands: operands,
			})
		}
		return true
	})
	return out
}

func countOperands(n *sitter.Node, op string) int {
	if booleanOperator(n, n.Type()) != op {
		return 1
	}
	count := 0
	for i := range int(n.NamedChildCount()) {
		child := n.NamedChild(i)
		if parser.IsComment(child.Type()) {
			continue
		}
		count += countOperands(child, op)
	}
	return count
}

var booleanNodeTypes = makeSet([]string{
	"binary_expression", "logical_expression", "boolean_operator", "binary",
	"list", // bash: cmd1 && cmd2
})

// booleanOperator returns the short-circuit operator of a boolean node,
// normalized to "&&" or "||", or "" for any other node.
func booleanOperator(node *sitter.Node, nodeType string) string {
	if !booleanNodeTypes[nodeType] {
		return ""
	}
	for i := range int(node.ChildCount()) {
		child := node.Child(i)
		if child.IsNamed() {
			continue
		}
		switch child.Type() {
		case "&&", "and":
			return "&&"
		case "||", "or":
			return "||"
		}
	}
	return ""
}

// makeSet converts a slice to a map for O(1) lookups.
func makeSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

// getDecisionNodeTypes returns AST node types that represent decision points.
// Switch statements are not counted; each case is.
func getDecisionNodeTypes(lang parser.Language) []string {
	common := []string{
		"if_statement",
		"while_statement",
		"for_statement",
		"do_statement",
		"catch_clause",
		"ternary_expression",
		"conditional_expression",
	}

	switch lang {
	case parser.LangGo:
		return append(common, "expression_case", "type_case", "communication_case")
	case parser.LangRust:
		return []string{"if_expression", "if_let_expression", "while_expression", "while_let_expression", "for_expression", "loop_expression", "match_arm"}
	case parser.LangPython:
		return []string{"if_statement", "elif_clause", "while_statement", "for_statement", "except_clause", "conditional_expression", "case_clause"}
	case parser.LangTypeScript, parser.LangJavaScript, parser.LangTSX:
		return append(common, "for_in_statement", "switch_case")
	case parser.LangJava:
		return append(common, "enhanced_for_statement", "switch_label")
	case parser.LangCSharp:
		return append(common, "foreach_statement", "switch_section", "switch_expression_arm")
	case parser.LangC, parser.LangCPP:
		return append(common, "for_range_loop", "case_statement")
	case parser.LangRuby:
		return []string{"if", "elsif", "unless", "while", "until", "for", "when", "rescue", "conditional", "if_modifier", "unless_modifier", "while_modifier", "until_modifier"}
	case parser.LangPHP:
		return append(common, "foreach_statement", "else_if_clause", "case_statement")
	case parser.LangBash:
		return []string{"if_statement", "elif_clause", "for_statement", "c_style_for_statement", "while_statement", "case_item"}
	default:
		return common
	}
}

// cognitiveTypeInfo holds lookup maps for cognitive complexity calculation.
type cognitiveTypeInfo struct {
	nesting map[string]bool // Types that increment nesting depth
	flat    map[string]bool // Types that add complexity without nesting
}

// buildCognitiveTypeInfo builds lookup maps from cognitive node types.
func buildCognitiveTypeInfo(lang parser.Language) cognitiveTypeInfo {
	info := cognitiveTypeInfo{
		nesting: make(map[string]bool),
		flat:    make(map[string]bool),
	}
	nesting, flat := getCognitiveNodeTypes(lang)
	for _, t := range nesting {
		info.nesting[t] = true
	}
	for _, t := range flat {
		info.flat[t] = true
	}
	return info
}

// calcCognitiveRecursive walks children, adding base plus depth for each construct.
func calcCognitiveRecursive(node *sitter.Node, source []byte, info cognitiveTypeInfo, depth int) uint32 {
	var complexity uint32

	for i := range int(node.ChildCount()) {
		child := node.Child(i)
		childType := child.Type()

		switch {
		case info.nesting[childType]:
			complexity += 1 + uint32(depth)
			complexity += calcCognitiveRecursive(child, source, info, depth+1)
		case info.flat[childType]:
			complexity += 1 + uint32(depth)
			complexity += calcCognitiveRecursive(child, source, info, depth)
		default:
			complexity += calcCognitiveRecursive(child, source, info, depth)
		}
	}

	return complexity
}

// getCognitiveNodeTypes returns node types that add cognitive complexity.
func getCognitiveNodeTypes(lang parser.Language) (nesting, flat []string) {
	switch lang {
	case parser.LangRuby:
		nesting = []string{"if", "unless", "while", "until", "for", "case", "begin"}
		flat = []string{"elsif", "else", "when", "rescue", "break", "next", "redo"}
	default:
		nesting = []string{
			"if_statement", "if_expression",
			"while_statement", "while_expression",
			"for_statement", "for_expression", "for_in_statement",
			"enhanced_for_statement", "foreach_statement",
			"switch_statement", "match_expression", "match_statement",
			"try_statement", "catch_clause", "except_clause",
		}
		flat = []string{
			"else_clause", "elif_clause", "elseif_clause", "else_if_clause",
			"break_statement", "continue_statement",
			"goto_statement",
		}
	}
	return nesting, flat
}

// nestingTypes are control structures that deepen nesting.
var nestingTypes = makeSet([]string{
	"if_statement", "if_expression", "if_let_expression", "if", "unless",
	"while_statement", "while_expression", "while_let_expression", "while", "until",
	"for_statement", "for_in_statement", "for_expression", "for", "c_style_for_statement",
	"enhanced_for_statement", "foreach_statement", "for_range_loop",
	"do_statement", "loop_expression",
	"switch_statement", "switch_expression", "expression_switch_statement",
	"type_switch_statement", "select_statement", "match_expression", "match_statement",
	"case",
	"try_statement", "begin", "with_statement",
})

var ifTypes = makeSet([]string{"if_statement", "if_expression", "if", "elsif"})

// MaxNesting returns the deepest nesting of control structures under node.
// An if in an else branch stays at the depth of its chain.
func MaxNesting(node *sitter.Node, lang parser.Language) int {
	if lang == parser.LangBash {
		return maxNestingWith(node, node.Type(), 0, bashNesting)
	}
	return maxNestingWith(node, node.Type(), 0, nestingTypes)
}

var bashNesting = makeSet([]string{
	"if_statement", "for_statement", "c_style_for_statement", "while_statement", "case_statement",
})

func maxNestingWith(node *sitter.Node, nodeType string, depth int, types map[string]bool) int {
	maxDepth := depth

	for i := range int(node.ChildCount()) {
		child := node.Child(i)
		childType := child.Type()

		childDepth := depth
		if types[childType] {
			elseIf := ifTypes[childType] && (ifTypes[nodeType] || nodeType == "else_clause" || nodeType == "else")
			if !elseIf {
				childDepth++
			}
		}

		if d := maxNestingWith(child, childType, childDepth, types); d > maxDepth {
			maxDepth = d
		}
	}

	return maxDepth
}
