// Package review turns an analysis into a structured code review with eight
// scored sections, a verdict and a prioritised list of improvements.
package review

import (
	"fmt"
	"math"
	"sort"

	"github.com/panbanda/codeforge/pkg/analyzer/complexity"
	"github.com/panbanda/codeforge/pkg/analyzer/quality"
	"github.com/panbanda/codeforge/pkg/models"
)

// MaxImprovements caps the improvement list.
const MaxImprovements = 10

type options struct {
	thresholds complexity.Thresholds
}

// Option is a functional option for configuring a review.
type Option func(*options)

// WithThresholds sets the complexity bands used to judge functions.
func WithThresholds(t complexity.Thresholds) Option {
	return func(o *options) {
		o.thresholds = t
	}
}

var securityAdvice = map[string]string{
	"eval":                  "Replace eval() with a parser such as ast.literal_eval or JSON decoding",
	"exec":                  "Avoid exec(); dispatch through an explicit table of functions",
	"pickle_load":           "Load untrusted data with a safe format such as JSON",
	"shell_injection":       "Pass subprocess arguments as a list and drop shell=True",
	"os_system":             "Use subprocess with an argument list instead of os.system()",
	"hardcoded_secret":      "Read credentials from the environment or a secret store",
	"sql_injection":         "Use parameterised queries instead of building SQL strings",
	"sql_injection_fstring": "Use parameterised queries instead of building SQL strings",
	"inner_html":            "Set textContent or sanitise HTML before inserting it",
	"document_write":        "Build DOM nodes instead of calling document.write()",
	"runtime_exec":          "Use ProcessBuilder with validated arguments",
	"unsafe_c_function":     "Use bounded functions such as strncpy or snprintf",
	"unsafe_block":          "Confine unsafe code to small audited helpers",
	"yaml_load":             "Use yaml.safe_load() or pass SafeLoader",
	"tls_verify_disabled":   "Keep TLS certificate verification enabled",
	"weak_hash":             "Use SHA-256 or a password hash such as bcrypt",
}

var performanceAdvice = map[string]string{
	"nested_loop":        "Replace nested loops with a lookup table or set membership",
	"range_len":          "Iterate over the sequence directly or use enumerate()",
	"string_concat_loop": "Collect string parts in a list and join them once",
	"append_loop":        "Use a comprehension or preallocate the slice",
	"select_star":        "Select only the columns you need",
	"global_statement":   "Pass state explicitly instead of using globals",
	"len_in_loop_header": "Hoist len() out of the loop condition",
	"sleep_loop":         "Wait on an event or condition instead of polling with sleep",
	"regex_compile_loop": "Compile the regular expression once outside the loop",
	"query_loop":         "Batch queries instead of querying inside a loop",
}

var issueAdvice = map[models.IssueType]string{
	models.IssueUnusedImport:     "Remove unused imports",
	models.IssueLongFunction:     "Split long functions into focused helpers",
	models.IssueComplexCondition: "Extract complex conditions into well-named predicates",
	models.IssueNaming:           "Follow the language's naming conventions",
	models.IssueSyntaxError:      "Fix the syntax error before anything else",
}

var suggestionAdvice = map[string]string{
	quality.SuggestMagicNumber:    "Replace magic numbers with named constants",
	quality.SuggestLongLine:       "Wrap long lines to keep them readable",
	quality.SuggestVarDeclaration: "Declare variables with let or const",
	quality.SuggestDebugOutput:    "Replace debug prints with a logger",
	quality.SuggestManyParams:     "Group related parameters into an object",
	quality.SuggestMissingDoc:     "Document public functions and classes",
}

// Review builds a review of one analyzed file.
func Review(fa *models.FileAnalysis, opts ...Option) *Report {
	o := options{thresholds: complexity.DefaultThresholds()}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Report{
		File:     fa.Path,
		Language: fa.Language,
		Sections: []Section{
			codeQuality(fa),
			security(fa),
			performance(fa),
			bestPractices(fa),
			maintainability(fa, o.thresholds),
			testability(fa, o.thresholds),
			documentation(fa),
		},
		Improvements: Improvements(fa),
	}
	r.Sections = append(r.Sections, improvementsSection(r.Sections, r.Improvements))
	r.Summary = summarize(fa, r.Improvements)
	return r
}

func codeQuality(fa *models.FileAnalysis) Section {
	s := newSection(SectionCodeQuality)
	s.Rated = true
	penalty := 0.0
	for _, is := range fa.Issues {
		if is.Type == models.IssueNaming {
			continue // judged under best practices
		}
		s.Findings = append(s.Findings, fmt.Sprintf("Line %d: %s", is.Line, is.Message))
		if is.Type == models.IssueSyntaxError {
			penalty += 4
		} else {
			penalty++
		}
		s.recommend(issueAdvice[is.Type])
	}
	if len(s.Findings) == 0 {
		s.Findings = append(s.Findings, "No structural issues detected")
	}
	s.Score = clamp(10 - penalty)
	return s
}

func security(fa *models.FileAnalysis) Section {
	s := newSection(SectionSecurity)
	s.Rated = true
	s.Score = round1(fa.Security.Score / 10)
	for _, f := range fa.Security.Issues {
		s.Findings = append(s.Findings, fmt.Sprintf("Line %d [%s]: %s", f.Line, f.Severity, f.Message))
		if adv, ok := securityAdvice[f.Rule]; ok {
			s.recommend(adv)
		}
	}
	if len(fa.Security.Issues) == 0 {
		s.Findings = append(s.Findings, "No risky patterns detected")
	} else {
		s.Findings = append(s.Findings, fmt.Sprintf("Security risk is %s (score %.0f)", fa.Security.Risk, fa.Security.Score))
	}
	return s
}

func performance(fa *models.FileAnalysis) Section {
	s := newSection(SectionPerformance)
	s.Rated = true
	s.Score = round1(fa.Performance.Score / 10)
	for _, f := range fa.Performance.Issues {
		s.Findings = append(s.Findings, fmt.Sprintf("Line %d: %s", f.Line, f.Message))
		if adv, ok := performanceAdvice[f.Rule]; ok {
			s.recommend(adv)
		}
	}
	if len(fa.Performance.Issues) == 0 {
		s.Findings = append(s.Findings, "No inefficient patterns detected")
	} else {
		s.Findings = append(s.Findings, fmt.Sprintf("Optimization need is %s (score %.0f)", fa.Performance.Optimization, fa.Performance.Score))
	}
	return s
}

func bestPractices(fa *models.FileAnalysis) Section {
	s := newSection(SectionBestPractices)
	s.Rated = true
	penalty := 0.0
	for _, is := range fa.Issues {
		if is.Type == models.IssueNaming {
			s.Findings = append(s.Findings, fmt.Sprintf("Line %d: %s", is.Line, is.Message))
			s.recommend(issueAdvice[is.Type])
			penalty++
		}
	}
	for _, sg := range fa.Suggestions {
		if sg.Kind == quality.SuggestMissingDoc {
			continue // judged under documentation
		}
		if sg.Line > 0 {
			s.Findings = append(s.Findings, fmt.Sprintf("Line %d: %s", sg.Line, sg.Message))
		} else {
			s.Findings = append(s.Findings, sg.Message)
		}
		s.recommend(suggestionAdvice[sg.Kind])
		penalty += 0.5
	}
	if len(s.Findings) == 0 {
		s.Findings = append(s.Findings, "Follows common conventions")
	}
	s.Score = clamp(10 - penalty)
	return s
}

func maintainability(fa *models.FileAnalysis, th complexity.Thresholds) Section {
	s := newSection(SectionMaintainability)
	s.Rated = true
	s.Score = round1(fa.Metrics.Maintainability / 10)
	s.Findings = append(s.Findings,
		fmt.Sprintf("Maintainability index %.2f", fa.Metrics.Maintainability),
		fmt.Sprintf("Cyclomatic complexity %d (%s)", fa.Complexity.Cyclomatic, fa.Complexity.Level),
	)
	if fa.Structure.MaxNestingDepth > 3 {
		s.Findings = append(s.Findings, fmt.Sprintf("Nesting reaches depth %d", fa.Structure.MaxNestingDepth))
		s.recommend("Flatten nesting with guard clauses and early returns")
	}
	for _, fn := range fa.Structure.Functions {
		if fn.Cyclomatic > th.High {
			s.Findings = append(s.Findings, fmt.Sprintf("Function '%s' has cyclomatic complexity %d", fn.Name, fn.Cyclomatic))
			s.recommend("Extract branches of complex functions into helpers")
		}
	}
	if fa.Metrics.Maintainability < 50 {
		s.recommend("Split the module into smaller units")
	}
	return s
}

func testability(fa *models.FileAnalysis, th complexity.Thresholds) Section {
	s := newSection(SectionTesting)
	s.Rated = true
	fns := fa.Structure.Functions
	if len(fns) == 0 {
		s.Score = 10
		s.Findings = append(s.Findings, "No functions to test")
		return s
	}

	simple, cases := 0, uint32(0)
	for _, fn := range fns {
		cases += fn.Cyclomatic
		if fn.Cyclomatic <= th.Medium {
			simple++
		} else {
			s.Findings = append(s.Findings, fmt.Sprintf("Function '%s' has %d paths to cover", fn.Name, fn.Cyclomatic))
		}
	}
	s.Findings = append(s.Findings, fmt.Sprintf("%d functions need about %d test cases for branch coverage", len(fns), cases))
	s.Score = round1(10 * float64(simple) / float64(len(fns)))
	if simple < len(fns) {
		s.recommend("Reduce branching in complex functions to make them testable")
	}
	s.recommend("Generate test stubs with 'codeforge testgen' and fill in assertions")
	return s
}

func documentation(fa *models.FileAnalysis) Section {
	s := newSection(SectionDocumentation)
	s.Rated = true

	total, missing := len(fa.Structure.Functions)+len(fa.Structure.Classes), 0
	for _, sg := range fa.Suggestions {
		if sg.Kind == quality.SuggestMissingDoc {
			missing++
			s.Findings = append(s.Findings, fmt.Sprintf("Line %d: %s", sg.Line, sg.Message))
		}
	}
	total = max(total, missing)
	if total == 0 {
		s.Score = 10
	} else {
		s.Score = round1(10 * float64(total-missing) / float64(total))
	}
	if fa.Metrics.CodeLines > 0 {
		ratio := float64(fa.Metrics.CommentLines) / float64(fa.Metrics.CodeLines+fa.Metrics.CommentLines)
		s.Findings = append(s.Findings, fmt.Sprintf("Comment density %.0f%%", ratio*100))
	}
	if missing > 0 {
		s.recommend(suggestionAdvice[quality.SuggestMissingDoc])
	}
	return s
}

func improvementsSection(sections []Section, imps []Improvement) Section {
	s := newSection(SectionImprovements)
	s.Rated = true
	sum := 0.0
	for _, sec := range sections {
		sum += sec.Score
	}
	if len(sections) > 0 {
		s.Score = round1(sum / float64(len(sections)))
	}
	for _, imp := range imps {
		s.Findings = append(s.Findings, fmt.Sprintf("[%s] line %d: %s", imp.Severity, imp.Line, imp.Message))
	}
	for _, sec := range sections {
		for _, r := range sec.Recommendations {
			s.recommend(r)
		}
	}
	return s
}

// Improvements lists the most important changes, ordered by severity and
// then by line.
func Improvements(fa *models.FileAnalysis) []Improvement {
	var out []Improvement
	for _, is := range fa.Issues {
		out = append(out, Improvement{Line: is.Line, Severity: is.Severity, Kind: is.Type.String(), Message: is.Message})
	}
	for _, f := range fa.Security.Issues {
		out = append(out, Improvement{Line: f.Line, Severity: f.Severity, Kind: f.Rule, Message: f.Message})
	}
	for _, f := range fa.Performance.Issues {
		out = append(out, Improvement{Line: f.Line, Severity: f.Severity, Kind: f.Rule, Message: f.Message})
	}
	for _, sg := range fa.Suggestions {
		out = append(out, Improvement{Line: sg.Line, Severity: models.SeverityLow, Kind: sg.Kind, Message: sg.Message})
	}

	sort.SliceStable(out, func(i, j int) bool {
		wi, wj := out[i].Severity.Weight(), out[j].Severity.Weight()
		if wi != wj {
			return wi > wj
		}
		return out[i].Line < out[j].Line
	})
	if len(out) > MaxImprovements {
		out = out[:MaxImprovements]
	}
	if out == nil {
		return []Improvement{}
	}
	return out
}

func summarize(fa *models.FileAnalysis, imps []Improvement) Summary {
	overall := fa.OverallScore()
	s := Summary{
		Score:      round1(overall / 10),
		Grade:      models.GradeFromScore(overall),
		BySeverity: make(map[string]int),
	}
	for _, is := range fa.Issues {
		s.BySeverity[is.Severity.String()]++
	}
	for _, f := range fa.Security.Issues {
		s.BySeverity[f.Severity.String()]++
	}
	for _, f := range fa.Performance.Issues {
		s.BySeverity[f.Severity.String()]++
	}
	s.Verdict = verdict(fa, s, len(imps))
	return s
}

func verdict(fa *models.FileAnalysis, s Summary, improvements int) string {
	severe := s.BySeverity[models.SeverityCritical.String()] + s.BySeverity[models.SeverityHigh.String()]
	switch {
	case fa.SyntaxError != nil:
		return "Changes requested: the file does not parse"
	case severe > 0:
		return fmt.Sprintf("Changes requested: %d high-severity finding%s", severe, plural(severe))
	case s.Score >= 8 && improvements == 0:
		return "Approved: no issues found"
	case s.Score >= 8:
		return fmt.Sprintf("Approved with %d minor suggestion%s", improvements, plural(improvements))
	case s.Score >= 6:
		return "Approved with reservations: address the listed improvements"
	default:
		return "Changes requested: overall quality is below the acceptable level"
	}
}

func clamp(v float64) float64 {
	return round1(math.Max(0, math.Min(10, v)))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
