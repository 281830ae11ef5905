package parser

import (
	"path"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// FunctionNode represents a parsed function or method.
type FunctionNode struct {
	Name       string
	StartLine  uint32
	EndLine    uint32
	Parameters []string
	Receiver   string // owning class/struct for methods
	IsMethod   bool
	HasDoc     bool
	Statements int // top-level statements in the body
	Body       *sitter.Node
	Node       *sitter.Node
}

// Lines returns the number of source lines spanned by the function.
func (f FunctionNode) Lines() int {
	return int(f.EndLine-f.StartLine) + 1
}

// ClassNode represents a parsed class, struct, trait or interface.
type ClassNode struct {
	Name      string
	Kind      string
	StartLine uint32
	EndLine   uint32
	HasDoc    bool
	Methods   []string
	Node      *sitter.Node
}

// ImportNode represents one name bound by an import statement.
type ImportNode struct {
	Module string
	Name   string // local name the import binds, empty for side-effect imports
	Line   uint32
	// Checkable is false when usage cannot be determined from identifiers
	// (C includes, C# usings, wildcard imports, Ruby requires).
	Checkable bool
	Node      *sitter.Node
}

// Symbols holds everything extracted from a single parse in one walk.
type Symbols struct {
	Functions []FunctionNode
	Classes   []ClassNode
	Imports   []ImportNode
}

// ExtractSymbols walks the tree once and collects functions, classes and imports.
// Anonymous functions (callbacks, lambdas) are not reported.
func ExtractSymbols(result *ParseResult) *Symbols {
	syms := &Symbols{}
	if result == nil || result.Tree == nil {
		return syms
	}

	lang := result.Language
	funcTypes := makeSet(getFunctionNodeTypes(lang))
	classTypes := makeSet(getClassNodeTypes(lang))
	importTypes := makeSet(getImportNodeTypes(lang))

	WalkTyped(result.Tree.RootNode(), result.Source, func(node *sitter.Node, nodeType string, src []byte) bool {
		switch {
		case funcTypes[nodeType]:
			if fn := extractFunction(node, src, lang, funcTypes, classTypes); fn != nil {
				syms.Functions = append(syms.Functions, *fn)
			}
		case classTypes[nodeType]:
			if cls := extractClass(node, src, lang); cls != nil {
				syms.Classes = append(syms.Classes, *cls)
			}
		case importTypes[nodeType]:
			// Ruby imports are plain calls; only require calls stop the descent.
			imports := extractImports(node, src, lang)
			if len(imports) == 0 {
				return true
			}
			syms.Imports = append(syms.Imports, imports...)
			return false
		}
		return true
	})

	for i := range syms.Classes {
		cls := &syms.Classes[i]
		for _, fn := range syms.Functions {
			if fn.IsMethod && fn.Receiver == cls.Name {
				cls.Methods = append(cls.Methods, fn.Name)
			}
		}
	}

	return syms
}

// GetFunctions extracts all named function definitions from parsed code.
func GetFunctions(result *ParseResult) []FunctionNode {
	return ExtractSymbols(result).Functions
}

// GetClasses extracts all class definitions from parsed code.
func GetClasses(result *ParseResult) []ClassNode {
	return ExtractSymbols(result).Classes
}

// GetImports extracts all imported names from parsed code.
func GetImports(result *ParseResult) []ImportNode {
	return ExtractSymbols(result).Imports
}

// getFunctionNodeTypes returns the AST node types for functions in each language.
func getFunctionNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{"function_declaration", "method_declaration"}
	case LangRust:
		return []string{"function_item"}
	case LangPython:
		return []string{"function_definition"}
	case LangTypeScript, LangJavaScript, LangTSX:
		return []string{"function_declaration", "generator_function_declaration", "function", "function_expression", "arrow_function", "method_definition"}
	case LangJava:
		return []string{"method_declaration", "constructor_declaration"}
	case LangC, LangCPP:
		return []string{"function_definition"}
	case LangCSharp:
		return []string{"method_declaration", "constructor_declaration", "local_function_statement"}
	case LangRuby:
		return []string{"method", "singleton_method"}
	case LangPHP:
		return []string{"function_definition", "method_declaration"}
	case LangBash:
		return []string{"function_definition"}
	default:
		return nil
	}
}

// getClassNodeTypes returns the AST node types for classes in each language.
func getClassNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{"type_spec"}
	case LangRust:
		return []string{"struct_item", "enum_item", "trait_item"}
	case LangPython:
		return []string{"class_definition"}
	case LangTypeScript, LangTSX:
		return []string{"class_declaration", "abstract_class_declaration", "class", "interface_declaration"}
	case LangJavaScript:
		return []string{"class_declaration", "class"}
	case LangJava:
		return []string{"class_declaration", "interface_declaration", "enum_declaration", "record_declaration"}
	case LangCPP:
		return []string{"class_specifier", "struct_specifier"}
	case LangC:
		return []string{"struct_specifier"}
	case LangCSharp:
		return []string{"class_declaration", "interface_declaration", "struct_declaration", "record_declaration"}
	case LangRuby:
		return []string{"class", "module"}
	case LangPHP:
		return []string{"class_declaration", "interface_declaration", "trait_declaration"}
	default:
		return nil
	}
}

func getImportNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{"import_declaration"}
	case LangRust:
		return []string{"use_declaration"}
	case LangPython:
		return []string{"import_statement", "import_from_statement"}
	case LangTypeScript, LangJavaScript, LangTSX:
		return []string{"import_statement"}
	case LangJava:
		return []string{"import_declaration"}
	case LangCSharp:
		return []string{"using_directive"}
	case LangC, LangCPP:
		return []string{"preproc_include"}
	case LangRuby:
		return []string{"call"}
	case LangPHP:
		return []string{"namespace_use_declaration"}
	default:
		return nil
	}
}

// extractFunction extracts function details from an AST node.
func extractFunction(node *sitter.Node, source []byte, lang Language, funcTypes, classTypes map[string]bool) *FunctionNode {
	fn := &FunctionNode{
		StartLine: node.StartPoint().Row + 1,
		EndLine:   node.EndPoint().Row + 1,
		Node:      node,
	}

	fn.Name = functionName(node, source, lang)
	if fn.Name == "" {
		return nil
	}
	if lang == LangCPP {
		if idx := strings.LastIndex(fn.Name, "::"); idx >= 0 {
			fn.Receiver = fn.Name[:idx]
			fn.Name = fn.Name[idx+2:]
			fn.IsMethod = true
		}
	}

	if lang == LangGo && node.Type() == "method_declaration" {
		fn.Receiver = goReceiverType(node, source)
		fn.IsMethod = true
	}
	if !fn.IsMethod {
		if owner, ok := enclosingOwner(node, source, funcTypes, classTypes); ok {
			fn.Receiver = owner
			fn.IsMethod = true
		}
	}

	fn.Body = functionBody(node)
	fn.Statements = countStatements(fn.Body)
	fn.Parameters = extractParameters(node, source, lang, fn.IsMethod)
	fn.HasDoc = hasDocumentation(node, source, lang)

	return fn
}

func functionName(node *sitter.Node, source []byte, lang Language) string {
	if lang == LangC || lang == LangCPP {
		if decl := findFunctionDeclarator(node.ChildByFieldName("declarator")); decl != nil {
			return GetNodeText(decl.ChildByFieldName("declarator"), source)
		}
		return ""
	}

	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		return GetNodeText(nameNode, source)
	}

	// Function expressions take the name of what they are assigned to.
	parent := node.Parent()
	if parent == nil {
		return ""
	}
	switch parent.Type() {
	case "variable_declarator", "public_field_definition", "field_definition":
		return GetNodeText(parent.ChildByFieldName("name"), source)
	case "pair":
		return strings.Trim(GetNodeText(parent.ChildByFieldName("key"), source), `"'`)
	case "assignment_expression":
		left := GetNodeText(parent.ChildByFieldName("left"), source)
		if idx := strings.LastIndex(left, "."); idx >= 0 {
			left = left[idx+1:]
		}
		return left
	}
	return ""
}

// findFunctionDeclarator descends a C/C++ declarator chain to the function_declarator.
func findFunctionDeclarator(node *sitter.Node) *sitter.Node {
	for node != nil {
		if node.Type() == "function_declarator" {
			return node
		}
		node = node.ChildByFieldName("declarator")
	}
	return nil
}

var genericArgs = regexp.MustCompile(`\[.*\]$`)

func goReceiverType(node *sitter.Node, source []byte) string {
	receiver := node.ChildByFieldName("receiver")
	if receiver == nil {
		return ""
	}
	for i := range int(receiver.NamedChildCount()) {
		child := receiver.NamedChild(i)
		if child.Type() != "parameter_declaration" {
			continue
		}
		text := strings.TrimPrefix(GetNodeText(child.ChildByFieldName("type"), source), "*")
		return genericArgs.ReplaceAllString(text, "")
	}
	return ""
}

// enclosingOwner finds the class or impl block a function is declared in.
// A function nested inside another function is not a method.
func enclosingOwner(node *sitter.Node, source []byte, funcTypes, classTypes map[string]bool) (string, bool) {
	for p := node.Parent(); p != nil; p = p.Parent() {
		pt := p.Type()
		if funcTypes[pt] {
			return "", false
		}
		if pt == "impl_item" {
			return genericArgs.ReplaceAllString(GetNodeText(p.ChildByFieldName("type"), source), ""), true
		}
		if classTypes[pt] {
			if name := className(p, source); name != "" {
				return name, true
			}
			return "", false
		}
	}
	return "", false
}

func functionBody(node *sitter.Node) *sitter.Node {
	if body := node.ChildByFieldName("body"); body != nil {
		return body
	}
	if body := node.ChildByFieldName("block"); body != nil {
		return body
	}
	for i := range int(node.NamedChildCount()) {
		child := node.NamedChild(i)
		switch child.Type() {
		case "body_statement", "block", "compound_statement", "statement_block":
			return child
		}
	}
	return nil
}

var blockTypes = makeSet([]string{
	"block", "statement_block", "compound_statement", "body_statement",
	"declaration_list", "constructor_body",
})

func countStatements(body *sitter.Node) int {
	if body == nil {
		return 0
	}
	if !blockTypes[body.Type()] {
		// Expression-bodied arrow functions and lambdas.
		return 1
	}
	count := 0
	for i := range int(body.NamedChildCount()) {
		child := body.NamedChild(i)
		t := child.Type()
		if IsComment(t) {
			continue
		}
		if t == "statement_list" {
			count += countNamedStatements(child)
			continue
		}
		count++
	}
	return count
}

func countNamedStatements(list *sitter.Node) int {
	count := 0
	for i := range int(list.NamedChildCount()) {
		if !IsComment(list.NamedChild(i).Type()) {
			count++
		}
	}
	return count
}

var skippedParams = makeSet([]string{"self", "cls", "&self", "&mut self", "mut self"})

func extractParameters(node *sitter.Node, source []byte, lang Language, isMethod bool) []string {
	params := node.ChildByFieldName("parameters")
	if params == nil && (lang == LangC || lang == LangCPP) {
		if decl := findFunctionDeclarator(node.ChildByFieldName("declarator")); decl != nil {
			params = decl.ChildByFieldName("parameters")
		}
	}
	if params == nil {
		if single := node.ChildByFieldName("parameter"); single != nil {
			return []string{GetNodeText(single, source)}
		}
		return nil
	}

	var names []string
	for i := range int(params.NamedChildCount()) {
		child := params.NamedChild(i)
		ct := child.Type()
		if IsComment(ct) || ct == "self_parameter" {
			continue
		}
		if lang == LangGo && (ct == "parameter_declaration" || ct == "variadic_parameter_declaration") {
			found := false
			for j := range int(child.NamedChildCount()) {
				if id := child.NamedChild(j); id.Type() == "identifier" {
					names = append(names, GetNodeText(id, source))
					found = true
				}
			}
			if !found {
				names = append(names, "_")
			}
			continue
		}
		name := parameterName(child, source)
		if name == "" || name == "void" {
			continue
		}
		if isMethod && lang == LangPython && skippedParams[name] {
			continue
		}
		names = append(names, name)
	}
	return names
}

func parameterName(node *sitter.Node, source []byte) string {
	if strings.HasSuffix(node.Type(), "identifier") {
		return GetNodeText(node, source)
	}
	for _, field := range []string{"name", "pattern", "declarator"} {
		if n := node.ChildByFieldName(field); n != nil {
			return parameterName(n, source)
		}
	}
	var name string
	Walk(node, source, func(n *sitter.Node, src []byte) bool {
		if name != "" {
			return false
		}
		if n.Type() == "identifier" {
			name = GetNodeText(n, src)
			return false
		}
		return true
	})
	if name == "" {
		name = GetNodeText(node, source)
	}
	return name
}

// docWrappers are parent nodes whose leading comment documents the child.
var docWrappers = makeSet([]string{
	"export_statement", "decorated_definition", "template_declaration",
	"type_declaration",
})

// hasDocumentation reports whether a definition carries a docstring or a
// comment immediately preceding it.
func hasDocumentation(node *sitter.Node, source []byte, lang Language) bool {
	if lang == LangPython {
		return hasDocstring(node)
	}

	target := node
	if p := node.Parent(); p != nil && docWrappers[p.Type()] {
		target = p
	}

	prev := target.PrevNamedSibling()
	for prev != nil && (prev.Type() == "attribute_item" || prev.Type() == "decorator" || prev.Type() == "attribute_list") {
		prev = prev.PrevNamedSibling()
	}
	if prev == nil || !IsComment(prev.Type()) {
		return false
	}
	return target.StartPoint().Row-prev.EndPoint().Row <= 1
}

func hasDocstring(node *sitter.Node) bool {
	body := node.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return false
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return false
	}
	return first.NamedChild(0).Type() == "string"
}

// extractClass extracts class details from an AST node.
func extractClass(node *sitter.Node, source []byte, lang Language) *ClassNode {
	switch lang {
	case LangGo:
		// Only struct and interface type specs count as classes.
		typ := node.ChildByFieldName("type")
		if typ == nil || (typ.Type() != "struct_type" && typ.Type() != "interface_type") {
			return nil
		}
	case LangC, LangCPP:
		// Forward declarations and struct-typed variables have no body.
		if node.ChildByFieldName("body") == nil {
			return nil
		}
	}

	name := className(node, source)
	if name == "" {
		return nil
	}

	return &ClassNode{
		Name:      name,
		Kind:      classKindForNodeType(node.Type()),
		StartLine: node.StartPoint().Row + 1,
		EndLine:   node.EndPoint().Row + 1,
		HasDoc:    hasDocumentation(node, source, lang),
		Node:      node,
	}
}

func className(node *sitter.Node, source []byte) string {
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		return GetNodeText(nameNode, source)
	}
	for i := range int(node.NamedChildCount()) {
		child := node.NamedChild(i)
		switch child.Type() {
		case "type_identifier", "identifier", "constant":
			return GetNodeText(child, source)
		}
	}
	return ""
}

func classKindForNodeType(nodeType string) string {
	switch nodeType {
	case "struct_item", "struct_specifier", "struct_declaration":
		return "struct"
	case "interface_declaration":
		return "interface"
	case "trait_item", "trait_declaration":
		return "trait"
	case "enum_item", "enum_declaration":
		return "enum"
	case "type_spec":
		return "type"
	case "module":
		return "module"
	default:
		return "class"
	}
}

// extractImports returns one ImportNode per name bound by an import statement.
func extractImports(node *sitter.Node, source []byte, lang Language) []ImportNode {
	line := node.StartPoint().Row + 1
	mk := func(module, name string, checkable bool) ImportNode {
		return ImportNode{Module: module, Name: name, Line: line, Checkable: checkable && name != "", Node: node}
	}

	var out []ImportNode
	switch lang {
	case LangPython:
		out = pythonImports(node, source, mk)
	case LangTypeScript, LangJavaScript, LangTSX:
		out = jsImports(node, source, mk)
	case LangGo:
		for _, spec := range FindNodesByType(node, source, "import_spec") {
			module := strings.Trim(GetNodeText(spec.ChildByFieldName("path"), source), "\"`")
			alias := GetNodeText(spec.ChildByFieldName("name"), source)
			switch alias {
			case "_", ".":
				out = append(out, mk(module, "", false))
			case "":
				// The package name is not always the last path element.
				out = append(out, mk(module, goPackageName(module), false))
			default:
				out = append(out, mk(module, alias, true))
			}
			out[len(out)-1].Line = spec.StartPoint().Row + 1
		}
	case LangJava:
		text := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(GetNodeText(node, source), "import")), ";")
		text = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "static "))
		if strings.HasSuffix(text, ".*") {
			out = append(out, mk(text, "", false))
		} else {
			out = append(out, mk(text, lastSegment(text, "."), true))
		}
	case LangRust:
		module := GetNodeText(node.ChildByFieldName("argument"), source)
		for _, name := range rustUseNames(node.ChildByFieldName("argument"), source) {
			out = append(out, mk(module, name, name != "self"))
		}
		if len(out) == 0 {
			out = append(out, mk(module, "", false))
		}
	case LangCSharp:
		text := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(GetNodeText(node, source), "using")), ";")
		out = append(out, mk(strings.TrimSpace(text), "", false))
	case LangC, LangCPP:
		out = append(out, mk(strings.Trim(GetNodeText(node.ChildByFieldName("path"), source), `"<>`), "", false))
	case LangRuby:
		method := GetNodeText(node.ChildByFieldName("method"), source)
		if method != "require" && method != "require_relative" {
			return nil
		}
		arg := strings.Trim(GetNodeText(node.ChildByFieldName("arguments"), source), `()'" `)
		out = append(out, mk(arg, "", false))
	case LangPHP:
		for _, clause := range FindNodesByType(node, source, "namespace_use_clause") {
			text := strings.TrimSpace(GetNodeText(clause, source))
			name := lastSegment(text, `\`)
			if idx := strings.Index(text, " as "); idx >= 0 {
				name = strings.TrimSpace(text[idx+4:])
				text = strings.TrimSpace(text[:idx])
			}
			out = append(out, mk(text, name, true))
		}
	}
	return out
}

func pythonImports(node *sitter.Node, source []byte, mk func(string, string, bool) ImportNode) []ImportNode {
	var out []ImportNode
	if node.Type() == "import_statement" {
		for i := range int(node.NamedChildCount()) {
			child := node.NamedChild(i)
			switch child.Type() {
			case "dotted_name":
				module := GetNodeText(child, source)
				out = append(out, mk(module, strings.SplitN(module, ".", 2)[0], true))
			case "aliased_import":
				module := GetNodeText(child.ChildByFieldName("name"), source)
				out = append(out, mk(module, GetNodeText(child.ChildByFieldName("alias"), source), true))
			}
		}
		return out
	}

	moduleNode := node.ChildByFieldName("module_name")
	module := GetNodeText(moduleNode, source)
	if module == "__future__" {
		return nil
	}
	for i := range int(node.NamedChildCount()) {
		child := node.NamedChild(i)
		if moduleNode != nil && child.StartByte() == moduleNode.StartByte() && child.EndByte() == moduleNode.EndByte() {
			continue
		}
		switch child.Type() {
		case "dotted_name":
			out = append(out, mk(module, lastSegment(GetNodeText(child, source), "."), true))
		case "aliased_import":
			out = append(out, mk(module, GetNodeText(child.ChildByFieldName("alias"), source), true))
		case "wildcard_import":
			out = append(out, mk(module, "", false))
		}
	}
	return out
}

func jsImports(node *sitter.Node, source []byte, mk func(string, string, bool) ImportNode) []ImportNode {
	module := strings.Trim(GetNodeText(node.ChildByFieldName("source"), source), "\"'`")
	var out []ImportNode
	for i := range int(node.NamedChildCount()) {
		clause := node.NamedChild(i)
		if clause.Type() != "import_clause" {
			continue
		}
		for j := range int(clause.NamedChildCount()) {
			part := clause.NamedChild(j)
			switch part.Type() {
			case "identifier":
				out = append(out, mk(module, GetNodeText(part, source), true))
			case "namespace_import":
				for _, id := range FindNodesByType(part, source, "identifier") {
					out = append(out, mk(module, GetNodeText(id, source), true))
				}
			case "named_imports":
				for _, spec := range FindNodesByType(part, source, "import_specifier") {
					name := GetNodeText(spec.ChildByFieldName("alias"), source)
					if name == "" {
						name = GetNodeText(spec.ChildByFieldName("name"), source)
					}
					out = append(out, mk(module, name, true))
				}
			}
		}
	}
	if len(out) == 0 {
		out = append(out, mk(module, "", false))
	}
	return out
}

func rustUseNames(node *sitter.Node, source []byte) []string {
	if node == nil {
		return nil
	}
	switch node.Type() {
	case "identifier", "self", "crate", "super":
		return []string{GetNodeText(node, source)}
	case "scoped_identifier":
		return []string{GetNodeText(node.ChildByFieldName("name"), source)}
	case "use_as_clause":
		return []string{GetNodeText(node.ChildByFieldName("alias"), source)}
	case "scoped_use_list":
		return rustUseNames(node.ChildByFieldName("list"), source)
	case "use_list":
		var names []string
		for i := range int(node.NamedChildCount()) {
			names = append(names, rustUseNames(node.NamedChild(i), source)...)
		}
		return names
	default:
		return nil
	}
}

var majorVersion = regexp.MustCompile(`^v[0-9]+$`)

// goPackageName guesses the package name of an import path.
func goPackageName(importPath string) string {
	base := path.Base(importPath)
	if majorVersion.MatchString(base) {
		base = path.Base(path.Dir(importPath))
	}
	base = strings.TrimPrefix(base, "go-")
	return strings.ReplaceAll(base, "-", "")
}

func lastSegment(s, sep string) string {
	if idx := strings.LastIndex(s, sep); idx >= 0 {
		return s[idx+len(sep):]
	}
	return s
}
