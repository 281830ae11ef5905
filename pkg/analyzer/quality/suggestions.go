package quality

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/panbanda/codeforge/pkg/models"
	"github.com/panbanda/codeforge/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// Suggestion kinds.
const (
	SuggestMagicNumber    = "magic_number"
	SuggestLongLine       = "long_line"
	SuggestMissingDoc     = "missing_docstring"
	SuggestVarDeclaration = "var_declaration"
	SuggestDebugOutput    = "debug_output"
	SuggestManyParams     = "too_many_parameters"
)

var (
	magicNumber   = regexp.MustCompile(`\b\d{3,}\b`)
	stringLiteral = regexp.MustCompile(`"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'`)
	constantName  = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
)

var numberTypes = map[string]bool{
	"integer":                        true,
	"float":                          true,
	"number":                         true,
	"int_literal":                    true,
	"float_literal":                  true,
	"integer_literal":                true,
	"real_literal":                   true,
	"number_literal":                 true,
	"decimal_integer_literal":        true,
	"decimal_floating_point_literal": true,
}

var constantDeclTypes = map[string]bool{
	"const_declaration":    true,
	"const_item":           true,
	"constant_declaration": true,
	"enum_declaration":     true,
	"enum_item":            true,
}

var debugOutput = map[parser.Language]*regexp.Regexp{
	parser.LangJavaScript: regexp.MustCompile(`\bconsole\.(log|debug)\s*\(`),
	parser.LangTypeScript: regexp.MustCompile(`\bconsole\.(log|debug)\s*\(`),
	parser.LangTSX:        regexp.MustCompile(`\bconsole\.(log|debug)\s*\(`),
	parser.LangJava:       regexp.MustCompile(`\bSystem\.out\.print(ln)?\s*\(`),
	parser.LangPython:     regexp.MustCompile(`(^|[^.\w])print\s*\(`),
}

func (a *Analyzer) suggest(result *parser.ParseResult, syms *parser.Symbols, lines [][]byte, commentLines *roaring.Bitmap) []models.Suggestion {
	var out []models.Suggestion
	root := result.Tree.RootNode()
	lang := result.Language

	if count, first := magicNumbers(root, result.Source); count > 0 {
		out = append(out, magicNumberSuggestion(count, first))
	}

	out = append(out, a.longLines(lines)...)

	for _, fn := range syms.Functions {
		if !fn.HasDoc && needsDoc(lang, fn.Name, fn.IsMethod && fn.Name == fn.Receiver) {
			out = append(out, models.Suggestion{
				Kind:    SuggestMissingDoc,
				Message: fmt.Sprintf("Add a %s to function '%s'", docNoun(lang), fn.Name),
				Line:    fn.StartLine,
			})
		}
	}
	for _, cls := range syms.Classes {
		if !cls.HasDoc && needsDoc(lang, cls.Name, false) {
			out = append(out, models.Suggestion{
				Kind:    SuggestMissingDoc,
				Message: fmt.Sprintf("Add a %s to %s '%s'", docNoun(lang), cls.Kind, cls.Name),
				Line:    cls.StartLine,
			})
		}
	}

	if lang == parser.LangJavaScript || lang == parser.LangTypeScript || lang == parser.LangTSX {
		vars := parser.FindNodesByType(root, result.Source, "variable_declaration")
		if len(vars) > 0 {
			out = append(out, models.Suggestion{
				Kind:    SuggestVarDeclaration,
				Message: fmt.Sprintf("Use let or const instead of var (%d occurrence%s)", len(vars), plural(len(vars))),
				Line:    vars[0].StartPoint().Row + 1,
			})
		}
	}

	if re := debugOutput[lang]; re != nil {
		count, first := 0, uint32(0)
		for i, line := range lines {
			n := uint32(i + 1)
			if commentLines.Contains(n) || !re.Match(line) {
				continue
			}
			if count == 0 {
				first = n
			}
			count++
		}
		if count > 0 {
			out = append(out, models.Suggestion{
				Kind:    SuggestDebugOutput,
				Message: fmt.Sprintf("Replace %d debug print statement%s with a logger", count, plural(count)),
				Line:    first,
			})
		}
	}

	for _, fn := range syms.Functions {
		if len(fn.Parameters) > a.limits.MaxParams {
			out = append(out, models.Suggestion{
				Kind:    SuggestManyParams,
				Message: fmt.Sprintf("Function '%s' takes %d parameters; group them into a parameter object", fn.Name, len(fn.Parameters)),
				Line:    fn.StartLine,
			})
		}
	}

	if out == nil {
		return []models.Suggestion{}
	}
	return out
}

// magicNumbers counts numeric literals with three or more digits outside
// constant declarations, and returns the line of the first one.
func magicNumbers(root *sitter.Node, src []byte) (int, uint32) {
	count, first := 0, uint32(0)
	parser.WalkTyped(root, src, func(n *sitter.Node, nodeType string, src []byte) bool {
		if constantDeclTypes[nodeType] || namesConstant(n, nodeType, src) {
			return false
		}
		if numberTypes[nodeType] && magicNumber.MatchString(parser.GetNodeText(n, src)) {
			if count == 0 {
				first = n.StartPoint().Row + 1
			}
			count++
			return false
		}
		return true
	})
	return count, first
}

// namesConstant reports whether n assigns to an UPPER_CASE name.
func namesConstant(n *sitter.Node, nodeType string, src []byte) bool {
	var target *sitter.Node
	switch nodeType {
	case "assignment", "assignment_expression":
		target = n.ChildByFieldName("left")
	case "variable_declarator":
		target = n.ChildByFieldName("name")
	default:
		return false
	}
	return target != nil && constantName.MatchString(parser.GetNodeText(target, src))
}

// textualMagicNumbers scans code lines with string literals removed.
func textualMagicNumbers(lines [][]byte, commentLines *roaring.Bitmap) []models.Suggestion {
	count, first := 0, uint32(0)
	for i, line := range lines {
		n := uint32(i + 1)
		if commentLines.Contains(n) {
			continue
		}
		matches := magicNumber.FindAllIndex(stringLiteral.ReplaceAll(line, nil), -1)
		if len(matches) > 0 && count == 0 {
			first = n
		}
		count += len(matches)
	}
	if count == 0 {
		return nil
	}
	return []models.Suggestion{magicNumberSuggestion(count, first)}
}

func magicNumberSuggestion(count int, first uint32) models.Suggestion {
	return models.Suggestion{
		Kind:    SuggestMagicNumber,
		Message: fmt.Sprintf("Replace %d magic number%s with named constants", count, plural(count)),
		Line:    first,
	}
}

// longLines reports the first few lines over the length limit and counts the rest.
func (a *Analyzer) longLines(lines [][]byte) []models.Suggestion {
	var out []models.Suggestion
	extra := 0
	for i, line := range lines {
		length := utf8.RuneCount(bytes.TrimRight(line, "\r"))
		if length <= a.limits.MaxLineLength {
			continue
		}
		if len(out) < a.limits.LongLineHints {
			out = append(out, models.Suggestion{
				Kind:    SuggestLongLine,
				Message: fmt.Sprintf("Line is %d characters long (max %d)", length, a.limits.MaxLineLength),
				Line:    uint32(i + 1),
			})
			continue
		}
		extra++
	}
	if extra > 0 {
		out = append(out, models.Suggestion{
			Kind:    SuggestLongLine,
			Message: fmt.Sprintf("%d more line%s exceed %d characters", extra, plural(extra), a.limits.MaxLineLength),
		})
	}
	return out
}

// needsDoc reports whether a definition is expected to carry documentation.
func needsDoc(lang parser.Language, name string, constructor bool) bool {
	if constructor {
		return false
	}
	switch lang {
	case parser.LangGo:
		// Only exported identifiers need doc comments.
		r, _ := utf8.DecodeRuneInString(name)
		return r >= 'A' && r <= 'Z' && !goTestFunc.MatchString(name)
	case parser.LangPython:
		return !dunder.MatchString(name) && !strings.HasPrefix(name, "test_")
	case parser.LangBash:
		return false
	}
	return true
}

func docNoun(lang parser.Language) string {
	if lang == parser.LangPython {
		return "docstring"
	}
	return "doc comment"
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
