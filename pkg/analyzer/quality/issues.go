package quality

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/panbanda/codeforge/pkg/analyzer/complexity"
	"github.com/panbanda/codeforge/pkg/models"
	"github.com/panbanda/codeforge/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

func (a *Analyzer) detectIssues(result *parser.ParseResult, syms *parser.Symbols) []models.Issue {
	var issues []models.Issue
	issues = append(issues, unusedImports(result, syms.Imports)...)

	for _, fn := range syms.Functions {
		if fn.Statements > a.limits.MaxStatements {
			issues = append(issues, models.Issue{
				Type:     models.IssueLongFunction,
				Message:  fmt.Sprintf("Function '%s' has %d statements (max %d)", fn.Name, fn.Statements, a.limits.MaxStatements),
				Line:     fn.StartLine,
				Severity: models.SeverityMedium,
				Symbol:   fn.Name,
			})
		}
	}

	for _, c := range complexity.ComplexConditions(result.Tree.RootNode(), result.Source, a.limits.MaxOperands) {
		issues = append(issues, models.Issue{
			Type:     models.IssueComplexCondition,
			Message:  fmt.Sprintf("Condition joins %d operands with %s (max %d)", c.Operands, c.Operator, a.limits.MaxOperands),
			Line:     c.Line,
			Severity: models.SeverityMedium,
		})
	}

	issues = append(issues, namingIssues(result.Language, syms)...)

	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Line < issues[j].Line })
	if issues == nil {
		return []models.Issue{}
	}
	return issues
}

type nodeKey struct {
	start    uint32
	nodeType string
}

// unusedImports reports imported names that are never referenced outside
// import statements.
func unusedImports(result *parser.ParseResult, imports []parser.ImportNode) []models.Issue {
	skip := make(map[nodeKey]bool)
	checkable := 0
	for _, imp := range imports {
		if imp.Node != nil {
			skip[nodeKey{imp.Node.StartByte(), imp.Node.Type()}] = true
		}
		if imp.Checkable {
			checkable++
		}
	}
	if checkable == 0 {
		return nil
	}

	used := parser.CollectIdentifiers(result.Tree.RootNode(), result.Source, func(n *sitter.Node, nodeType string) bool {
		return skip[nodeKey{n.StartByte(), nodeType}]
	})

	var issues []models.Issue
	for _, imp := range imports {
		if !imp.Checkable || used[imp.Name] > 0 {
			continue
		}
		msg := fmt.Sprintf("Unused import '%s'", imp.Name)
		if imp.Module != "" && imp.Module != imp.Name {
			msg = fmt.Sprintf("Unused import '%s' from %s", imp.Name, imp.Module)
		}
		issues = append(issues, models.Issue{
			Type:     models.IssueUnusedImport,
			Message:  msg,
			Line:     imp.Line,
			Severity: models.SeverityLow,
			Symbol:   imp.Name,
		})
	}
	return issues
}

// Naming styles.
var (
	snakeCase  = regexp.MustCompile(`^_{0,2}[a-z][a-z0-9_]*$`)
	dunder     = regexp.MustCompile(`^__[a-z][a-z0-9_]*__$`)
	rubyMethod = regexp.MustCompile(`^_?[a-z][a-z0-9_]*[?!=]?$`)
	camelCase  = regexp.MustCompile(`^[_$]?[a-z][a-zA-Z0-9]*$`)
	pascalCase = regexp.MustCompile(`^_?[A-Z][a-zA-Z0-9]*$`)
	mixedCaps  = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9]*$`)
	goTestFunc = regexp.MustCompile(`^(Test|Benchmark|Example|Fuzz)`)
	phpMagic   = regexp.MustCompile(`^__[a-z][a-zA-Z]*$`)
)

type namingRule struct {
	style   string
	pattern *regexp.Regexp
}

func functionRule(lang parser.Language) *namingRule {
	switch lang {
	case parser.LangPython, parser.LangRust:
		return &namingRule{"snake_case", snakeCase}
	case parser.LangRuby:
		return &namingRule{"snake_case", rubyMethod}
	case parser.LangJavaScript, parser.LangTypeScript, parser.LangTSX, parser.LangJava, parser.LangPHP:
		return &namingRule{"camelCase", camelCase}
	case parser.LangGo:
		return &namingRule{"mixedCaps", mixedCaps}
	case parser.LangCSharp:
		return &namingRule{"PascalCase", pascalCase}
	default:
		return nil
	}
}

func classRule(lang parser.Language) *namingRule {
	switch lang {
	case parser.LangC, parser.LangCPP, parser.LangBash:
		return nil
	case parser.LangGo:
		return &namingRule{"mixedCaps", mixedCaps}
	default:
		return &namingRule{"PascalCase", pascalCase}
	}
}

// namingIssues checks function and class names against the language's convention.
func namingIssues(lang parser.Language, syms *parser.Symbols) []models.Issue {
	var issues []models.Issue

	if rule := functionRule(lang); rule != nil {
		for _, fn := range syms.Functions {
			if namingExempt(lang, fn) || rule.pattern.MatchString(fn.Name) {
				continue
			}
			issues = append(issues, models.Issue{
				Type:     models.IssueNaming,
				Message:  fmt.Sprintf("Function '%s' should use %s", fn.Name, rule.style),
				Line:     fn.StartLine,
				Severity: models.SeverityLow,
				Symbol:   fn.Name,
			})
		}
	}

	if rule := classRule(lang); rule != nil {
		for _, cls := range syms.Classes {
			if rule.pattern.MatchString(cls.Name) {
				continue
			}
			issues = append(issues, models.Issue{
				Type:     models.IssueNaming,
				Message:  fmt.Sprintf("%s '%s' should use %s", titleCase(cls.Kind), cls.Name, rule.style),
				Line:     cls.StartLine,
				Severity: models.SeverityLow,
				Symbol:   cls.Name,
			})
		}
	}

	return issues
}

func namingExempt(lang parser.Language, fn parser.FunctionNode) bool {
	switch lang {
	case parser.LangPython:
		return dunder.MatchString(fn.Name)
	case parser.LangGo:
		return goTestFunc.MatchString(fn.Name)
	case parser.LangJava, parser.LangCSharp:
		return fn.IsMethod && fn.Name == fn.Receiver // constructor
	case parser.LangPHP:
		return phpMagic.MatchString(fn.Name)
	case parser.LangJavaScript, parser.LangTypeScript, parser.LangTSX:
		// Components and constructor functions are PascalCase.
		return !fn.IsMethod && pascalCase.MatchString(fn.Name)
	}
	return false
}

func titleCase(s string) string {
	if s == "" {
		return "Class"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
