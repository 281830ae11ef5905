package complexity

import (
	"bytes"
	"regexp"
)

var textualDecision = regexp.MustCompile(`\b(if|elif|elsif|for|foreach|while|until|case|when|catch|except|rescue)\b|&&|\|\|`)

// TextualCyclomatic approximates cyclomatic complexity for files without a
// grammar by counting branching keywords outside comment lines.
func TextualCyclomatic(source []byte) uint32 {
	var count uint32 = 1
	for _, line := range bytes.Split(source, []byte("\n")) {
		trimmed := bytes.TrimSpace(line)
		if IsCommentLine(trimmed) {
			continue
		}
		count += uint32(len(textualDecision.FindAllIndex(trimmed, -1)))
	}
	return count
}

// TextualNesting approximates nesting depth from brace and parenthesis depth.
func TextualNesting(source []byte) int {
	depth, maxDepth := 0, 0
	for _, b := range source {
		switch b {
		case '{', '(':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case '}', ')':
			if depth > 0 {
				depth--
			}
		}
	}
	return maxDepth
}

// IsCommentLine reports whether a trimmed line starts with a common comment marker.
func IsCommentLine(line []byte) bool {
	for _, prefix := range [][]byte{[]byte("//"), []byte("#"), []byte("--"), []byte(";"), []byte("/*"), []byte("*")} {
		if bytes.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
