package parser

import (
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// ErrUnsupportedLanguage is returned when no grammar exists for a language.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// SyntaxError describes the first parse error in a tree.
// Tree-sitter recovers from errors, so a tree with a SyntaxError is still usable.
type SyntaxError struct {
	Line    uint32 `json:"line" toon:"line"`
	Column  uint32 `json:"column" toon:"column"`
	Snippet string `json:"snippet,omitempty" toon:"snippet,omitempty"`
	Missing string `json:"missing,omitempty" toon:"missing,omitempty"`
	Count   int    `json:"count" toon:"count"`
}

func (e *SyntaxError) Error() string {
	if e.Missing != "" {
		return fmt.Sprintf("syntax error at line %d, column %d: missing %q", e.Line, e.Column, e.Missing)
	}
	if e.Snippet != "" {
		return fmt.Sprintf("syntax error at line %d, column %d near %q", e.Line, e.Column, e.Snippet)
	}
	return fmt.Sprintf("syntax error at line %d, column %d", e.Line, e.Column)
}

// FindSyntaxError returns the first ERROR or MISSING node in document order,
// or nil when the tree parsed cleanly.
func FindSyntaxError(result *ParseResult) *SyntaxError {
	if result == nil || result.Tree == nil {
		return nil
	}
	root := result.Tree.RootNode()
	if !root.HasError() {
		return nil
	}

	var first *SyntaxError
	count := 0
	Walk(root, result.Source, func(n *sitter.Node, src []byte) bool {
		if !n.HasError() && !n.IsMissing() {
			return false
		}
		isErr := n.Type() == "ERROR"
		if !isErr && !n.IsMissing() {
			return true
		}
		count++
		if first == nil {
			first = &SyntaxError{
				Line:   n.StartPoint().Row + 1,
				Column: n.StartPoint().Column + 1,
			}
			if n.IsMissing() {
				first.Missing = n.Type()
			} else {
				first.Snippet = snippet(GetNodeText(n, src))
			}
		}
		return !isErr
	})

	if first == nil {
		// HasError was set but no concrete node was found.
		first = &SyntaxError{Line: 1, Column: 1}
		count = 1
	}
	first.Count = count
	return first
}

func snippet(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	const maxLen = 40
	if len(text) > maxLen {
		text = text[:maxLen] + "..."
	}
	return text
}

// CollectIdentifiers counts identifier-like leaves in the tree, skipping any
// subtree for which skip returns true. Used to find unreferenced imports.
func CollectIdentifiers(root *sitter.Node, source []byte, skip func(*sitter.Node, string) bool) map[string]int {
	ids := make(map[string]int)
	WalkTyped(root, source, func(n *sitter.Node, nodeType string, src []byte) bool {
		if skip != nil && skip(n, nodeType) {
			return false
		}
		if isIdentifierType(nodeType) {
			ids[GetNodeText(n, src)]++
		}
		return true
	})
	return ids
}

func isIdentifierType(nodeType string) bool {
	switch nodeType {
	case "identifier", "name", "constant":
		return true
	}
	return strings.HasSuffix(nodeType, "_identifier")
}
