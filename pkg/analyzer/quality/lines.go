package quality

import (
	"bytes"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/panbanda/codeforge/pkg/analyzer/complexity"
	"github.com/panbanda/codeforge/pkg/models"
	"github.com/panbanda/codeforge/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// splitLines splits src on newlines. A trailing newline does not start a
// new line. Carriage returns are kept so byte offsets stay aligned.
func splitLines(src []byte) [][]byte {
	lines := bytes.Split(src, []byte("\n"))
	if n := len(lines); n > 0 && len(lines[n-1]) == 0 {
		lines = lines[:n-1]
	}
	return lines
}

// rawLineCount counts newline-separated segments of src, including the
// empty segment after a trailing newline. It feeds the maintainability index.
func rawLineCount(src []byte) int {
	return bytes.Count(src, []byte("\n")) + 1
}

type span struct {
	start, end uint32 // byte offsets, end exclusive
}

// commentSpans returns the byte ranges of comment nodes in source order.
func commentSpans(root *sitter.Node, src []byte) []span {
	var spans []span
	parser.WalkTyped(root, src, func(n *sitter.Node, nodeType string, _ []byte) bool {
		if parser.IsComment(nodeType) {
			spans = append(spans, span{n.StartByte(), n.EndByte()})
			return false
		}
		return true
	})
	return spans
}

// countLines classifies each line as blank, comment or code. A line is a
// comment line when a single comment covers all of its non-space text.
func countLines(lines [][]byte, comments []span) (models.Metrics, *roaring.Bitmap) {
	m := models.Metrics{TotalLines: len(lines)}
	commentLines := roaring.New()

	var offset uint32
	j := 0
	for i, line := range lines {
		lineStart := offset
		offset += uint32(len(line)) + 1
		line = bytes.TrimSuffix(line, []byte("\r"))

		first := bytes.IndexFunc(line, notSpace)
		if first < 0 {
			m.BlankLines++
			continue
		}
		last := bytes.LastIndexFunc(line, notSpace)
		firstOff := lineStart + uint32(first)
		lastOff := lineStart + uint32(last)

		for j < len(comments) && comments[j].end <= firstOff {
			j++
		}
		if j < len(comments) && comments[j].start <= firstOff && comments[j].end > lastOff {
			m.CommentLines++
			commentLines.Add(uint32(i + 1))
			continue
		}
		m.CodeLines++
	}
	return m, commentLines
}

// countTextualLines classifies lines by comment prefix for files without a grammar.
func countTextualLines(lines [][]byte) (models.Metrics, *roaring.Bitmap) {
	m := models.Metrics{TotalLines: len(lines)}
	commentLines := roaring.New()
	for i, line := range lines {
		trimmed := bytes.TrimSpace(line)
		switch {
		case len(trimmed) == 0:
			m.BlankLines++
		case complexity.IsCommentLine(trimmed):
			m.CommentLines++
			commentLines.Add(uint32(i + 1))
		default:
			m.CodeLines++
		}
	}
	return m, commentLines
}

func notSpace(r rune) bool {
	return r != ' ' && r != '\t' && r != '\f' && r != '\v'
}

var loopTypes = map[string]bool{
	"for_statement":          true,
	"for_in_statement":       true,
	"enhanced_for_statement": true,
	"foreach_statement":      true,
	"for_range_loop":         true,
	"c_style_for_statement":  true,
	"while_statement":        true,
	"do_statement":           true,
	"for_expression":         true,
	"while_expression":       true,
	"while_let_expression":   true,
	"loop_expression":        true,
	"for":                    true, // ruby
	"while":                  true,
	"until":                  true,
	"while_modifier":         true,
	"until_modifier":         true,
}

// loopContext returns every line inside a loop and the header line of each
// loop nested inside another loop.
func loopContext(root *sitter.Node) (*roaring.Bitmap, []uint32) {
	lines := roaring.New()
	var nested []uint32

	var walk func(n *sitter.Node, depth int)
	walk = func(n *sitter.Node, depth int) {
		if loopTypes[n.Type()] {
			start := n.StartPoint().Row + 1
			end := n.EndPoint().Row + 1
			if n.EndPoint().Column == 0 && end > start {
				end--
			}
			lines.AddRange(uint64(start), uint64(end)+1)
			if depth > 0 {
				nested = append(nested, start)
			}
			depth++
		}
		for i := range int(n.NamedChildCount()) {
			walk(n.NamedChild(i), depth)
		}
	}
	walk(root, 0)

	return lines, nested
}
