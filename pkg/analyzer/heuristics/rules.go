package heuristics

import (
	"regexp"

	"github.com/panbanda/codeforge/pkg/models"
)

// Rule is a single line-oriented heuristic.
type Rule struct {
	ID       string                 `json:"id" toon:"id"`
	Category models.FindingCategory `json:"category" toon:"category"`
	Severity models.Severity        `json:"severity" toon:"severity"`
	Message  string                 `json:"message" toon:"message"`

	pattern *regexp.Regexp
	unless  *regexp.Regexp // line is exempt when this also matches
	inLoop  bool           // only matches inside a loop body
}

// InLoop reports whether the rule only fires inside loops.
func (r Rule) InLoop() bool { return r.inLoop }

// Pattern returns the rule's regular expression source.
func (r Rule) Pattern() string { return r.pattern.String() }

func rule(id string, cat models.FindingCategory, sev models.Severity, msg, pattern string) Rule {
	return Rule{ID: id, Category: cat, Severity: sev, Message: msg, pattern: regexp.MustCompile(pattern)}
}

func (r Rule) except(pattern string) Rule {
	r.unless = regexp.MustCompile(pattern)
	return r
}

func (r Rule) loopOnly() Rule {
	r.inLoop = true
	return r
}

const (
	sec  = models.CategorySecurity
	perf = models.CategoryPerformance
)

// defaultRules returns the built-in language-agnostic rule set.
func defaultRules() []Rule {
	return []Rule{
		rule("eval", sec, models.SeverityHigh, "Use of eval() can execute arbitrary code",
			`(^|[^.\w])eval\s*\(`),
		rule("exec", sec, models.SeverityHigh, "Use of exec() can execute arbitrary code",
			`(^|[^.\w])exec\s*\(`),
		rule("pickle_load", sec, models.SeverityHigh, "Deserializing with pickle can execute arbitrary code",
			`\bc?[Pp]ickle\.loads?\s*\(`),
		rule("shell_injection", sec, models.SeverityHigh, "subprocess call with shell=True is vulnerable to shell injection",
			`subprocess\.\w+\(.*shell\s*=\s*True`),
		rule("os_system", sec, models.SeverityHigh, "os.system() passes input to the shell",
			`\bos\.(system|popen)\s*\(`),
		rule("hardcoded_secret", sec, models.SeverityHigh, "Hardcoded credential in source",
			`(?i)\b(password|passwd|pwd|secret|api_?key|access_?key|auth_?token|token)\b["']?\s*[:=]\s*["'][^"'\s]{3,}["']`).
			except(`(?i)(os\.environ|getenv|process\.env|example|placeholder|changeme|<[a-z_]+>)`),
		rule("sql_injection", sec, models.SeverityHigh, "SQL built with string concatenation or formatting",
			`(?i)["'][^"']*\b(select\s.+\sfrom|insert\s+into|update\s+\w+\s+set|delete\s+from)\b[^"']*["']\s*(\+|%\s*[\w(]|\.format\s*\()`),
		rule("sql_injection_fstring", sec, models.SeverityHigh, "SQL built with an interpolated string",
			`(?i)(\bf["']|\$"|`+"`"+`)[^"'`+"`"+`]*\b(select\s.+\sfrom|insert\s+into|update\s+\w+\s+set|delete\s+from)\b[^"'`+"`"+`]*(\{|\$\{)`),
		rule("inner_html", sec, models.SeverityMedium, "Assigning innerHTML enables cross-site scripting",
			`\.(inner|outer)HTML\s*=`),
		rule("document_write", sec, models.SeverityMedium, "document.write() enables cross-site scripting",
			`\bdocument\.write(ln)?\s*\(`),
		rule("runtime_exec", sec, models.SeverityHigh, "Runtime.exec() runs external commands",
			`Runtime\.getRuntime\(\)\.exec\s*\(`),
		rule("unsafe_c_function", sec, models.SeverityMedium, "Unbounded C string function risks buffer overflow",
			`\b(strcpy|strcat|gets|sprintf)\s*\(`),
		rule("unsafe_block", sec, models.SeverityMedium, "unsafe block bypasses memory safety checks",
			`\bunsafe\s*\{`),
		rule("yaml_load", sec, models.SeverityMedium, "yaml.load() without SafeLoader can construct arbitrary objects",
			`\byaml\.load\s*\(`).except(`SafeLoader|safe_load`),
		rule("tls_verify_disabled", sec, models.SeverityMedium, "TLS certificate verification disabled",
			`verify\s*=\s*False|InsecureSkipVerify:\s*true|rejectUnauthorized:\s*false`),
		rule("weak_hash", sec, models.SeverityLow, "MD5/SHA1 are unsuitable for security purposes",
			`\b(hashlib\.)?(md5|sha1)\s*\(|MessageDigest\.getInstance\("(MD5|SHA-?1)"\)`),

		rule("range_len", perf, models.SeverityLow, "Iterate directly or use enumerate() instead of range(len())",
			`\brange\s*\(\s*len\s*\(`),
		rule("string_concat_loop", perf, models.SeverityMedium, "String concatenation in a loop; collect parts and join",
			`\b\w+\s*\+=\s*(["'`+"`"+`]|f["']|str\()`).loopOnly(),
		rule("append_loop", perf, models.SeverityLow, "Appending in a loop; consider a comprehension or preallocation",
			`\.append\s*\(`).loopOnly(),
		rule("select_star", perf, models.SeverityLow, "SELECT * fetches every column",
			`(?i)\bselect\s+\*\s+from\b`),
		rule("global_statement", perf, models.SeverityLow, "Global variable access is slower and harder to reason about",
			`^\s*global\s+\w+`),
		rule("len_in_loop_header", perf, models.SeverityLow, "len() evaluated on every loop iteration",
			`^\s*while\b[^\n]*\blen\s*\(`),
		rule("sleep_loop", perf, models.SeverityMedium, "Sleeping inside a loop; consider event-driven waiting",
			`\b(time\.)?sleep\s*\(|Thread\.sleep\s*\(`).loopOnly(),
		rule("regex_compile_loop", perf, models.SeverityLow, "Regular expression compiled inside a loop",
			`\bre\.compile\s*\(|regexp\.(Must)?Compile\s*\(|new RegExp\s*\(`).loopOnly(),
		rule("query_loop", perf, models.SeverityMedium, "Database query inside a loop (N+1 pattern)",
			`\.(execute|executemany|query|raw)\s*\(`).loopOnly(),
	}
}

// NestedLoopRule describes loops nested inside other loops. It is reported
// from syntax-tree context rather than a line pattern.
var NestedLoopRule = Rule{
	ID:       "nested_loop",
	Category: perf,
	Severity: models.SeverityMedium,
	Message:  "Nested loop; consider a lookup table or a better algorithm",
	pattern:  regexp.MustCompile(`$^`),
}
