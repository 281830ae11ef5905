package mcpserver

// Tool descriptions with interpretation guidance for LLMs.
// Each description explains what the tool does, when to use it,
// how to interpret results, and key thresholds.

func describeAnalyzeCode() string {
	return `Analyzes a single piece of source code for quality, complexity, security and performance.

USE WHEN:
- Checking a snippet or a file the user pasted before commenting on it
- Getting objective numbers to back a code review
- Comparing two alternative implementations

INTERPRETING RESULTS:
- complexity.level: low (cyclomatic <= 5), medium (<= 10), high (> 10)
- metrics.maintainability: 0-100, below 50 is hard to maintain
- security.score: starts at 100, -20 per finding; risk high below 50, medium below 80
- performance.score: starts at 100, -15 per finding; optimization need high below 60
- issues: unused_import, long_function, complex_condition, naming_convention, syntax_error
- syntax_error set means the parser found errors; metrics are still reported

METRICS RETURNED:
- metrics: total/code/comment/blank lines, functions, classes, imports, cyclomatic, maintainability
- structure: per-function cyclomatic, cognitive, nesting, params; classes; imports
- security and performance findings with rule, line and severity
- issues and suggestions with line numbers`
}

func describeAnalyzePaths() string {
	return `Analyzes every source file under the given paths and summarizes the project.

USE WHEN:
- Assessing the overall health of a repository or package
- Reviewing only the files changed on a branch (changed_since)
- Finding the files that need attention first

INTERPRETING RESULTS:
- summary.max_cyclomatic above 10 fails the default complexity gate
- summary.p90_cyclomatic shows the trend across files, not the single worst file
- summary.by_severity counts issues and findings; any critical or high deserves a look
- summary.overall_score is the mean of security, performance and maintainability
- errors lists files that could not be read; they are skipped, not fatal

METRICS RETURNED:
- files: the per-file analysis of analyze_code
- summary: totals, averages, percentiles, grade, counts by language, type and severity
- errors: unreadable or oversized files`
}

func describeReviewCode() string {
	return `Produces a structured code review for a single piece of source code.

USE WHEN:
- The user asks for a review of code they wrote
- Preparing review comments for a pull request
- Explaining what to fix first in a file

INTERPRETING RESULTS:
- summary.score: 0-10 overall, with a letter grade A-F
- summary.verdict: one-line recommendation
- sections: code_quality, security, performance, best_practices, maintainability, testing, documentation
- improvements are ordered by severity, critical first; line numbers point at the code
- An empty security section means no known risky pattern matched, not that the code is secure

METRICS RETURNED:
- summary: score, grade, counts by severity, verdict
- sections: findings and recommendations per review area
- improvements: prioritized changes with line, severity and kind`
}

func describeGenerateTests() string {
	return `Generates test stubs for a piece of source code in the chosen test framework.

USE WHEN:
- Bootstrapping a test file for untested code
- Listing which functions and classes still need tests
- Choosing test categories (unit, integration, edge cases, errors)

INTERPRETING RESULTS:
- code contains skipped or pending stubs; each must be filled with real assertions
- Up to 3 functions and 2 classes get unit stubs; suggestions name the rest
- coverage.percent is an estimate from the stub count, not measured coverage
- coverage.level: high above 80, medium above 60

METRICS RETURNED:
- code: the generated test file
- test_count and categories (unit, integration, edge_case, error)
- cases: one entry per stub with name, category and target
- coverage estimate and follow-up suggestions`
}

func describeSuggestRefactoring() string {
	return `Builds a prioritized refactoring plan for a piece of source code.

USE WHEN:
- A function or file is too complex to change safely
- Planning a cleanup before adding a feature
- Explaining how to reduce complexity in concrete steps

INTERPRETING RESULTS:
- suggestions are ordered by priority; fix_syntax always comes first
- extract_method targets functions above the high complexity threshold (default 10)
- guard_clauses targets nesting deeper than 3
- parameter_object targets functions with more parameters than the limit (default 5)
- target shows where the metrics should land; it never asks to make a metric worse

METRICS RETURNED:
- current and target: max function cyclomatic, maintainability, nesting, params, issues
- suggestions: kind, priority, target symbol, line, message
- steps: a numbered plan ending with a verification step`
}

func describeVerifyRefactoring() string {
	return `Checks that refactored code still parses, keeps every function and did not grow more complex.

USE WHEN:
- After applying a refactoring suggested by suggest_refactoring
- Before committing a large mechanical change
- Confirming that a rename did not drop a public function

INTERPRETING RESULTS:
- success is true only when the code parses, no function is missing and complexity did not increase
- missing lists functions present before and gone after; methods are qualified as Type.name
- added functions are expected when extracting methods
- delta values are after minus before; negative cyclomatic and positive maintainability are improvements

METRICS RETURNED:
- success, parses, syntax_error
- missing, added, preserved function lists
- before and after metrics and their delta
- problems: human-readable reasons for failure`
}

func describeGenerateWorkflow() string {
	return `Generates a GitHub Actions workflow that runs codeforge and the project's tests in CI.

USE WHEN:
- Setting up CI for a repository
- Adding quality gates to an existing pipeline
- Showing the commands needed to run codeforge in CI

INTERPRETING RESULTS:
- The workflow is YAML ready to save as .github/workflows/codeforge.yml
- quality writes a JSON analysis report and runs codeforge gate, which fails the job on a blocking gate
- security alone runs only the security gate
- tests runs the test suite; coverage runs it with coverage output
- artifacts uploads the analysis report and coverage file

METRICS RETURNED:
- The workflow document as YAML text`
}

func describeEvaluateGates() string {
	return `Evaluates CI quality gates against the files under the given paths.

USE WHEN:
- Deciding whether a change is ready to merge
- Explaining why a CI quality check failed
- Checking one gate in isolation (only)

INTERPRETING RESULTS:
- status: pass, warn or block; the overall status is the worst gate
- block gates: coverage below minimum (80), max cyclomatic above 10, any security finding
- warn gates: coverage below target (90), maintainability below 50, overall score below 70
- The coverage gate is skipped when no coverage value is supplied
- response_time is informational and never blocks

METRICS RETURNED:
- status: overall outcome
- gates: name, status, actual, threshold, message and skipped flag per gate`
}
