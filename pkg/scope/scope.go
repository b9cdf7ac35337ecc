// Package scope resolves identifier references to their declaring
// bindings in JavaScript and TypeScript syntax trees. Resolution is
// by binding identity, not by name: two declarations of the same name
// in different scopes stay distinct, and shadowed names resolve to the
// innermost declaration.
package scope

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/detrace/detrace/pkg/parser"
)

// Kind classifies how a binding was introduced.
type Kind string

const (
	KindVar      Kind = "var"
	KindLet      Kind = "let"
	KindConst    Kind = "const"
	KindImport   Kind = "import"
	KindFunction Kind = "function"
	KindClass    Kind = "class"
	KindParam    Kind = "param"
	KindCatch    Kind = "catch"
)

// Binding is a single declared name.
type Binding struct {
	ID   uint32
	Name string
	Kind Kind

	// Decl is the construct that introduced the binding: a
	// variable_declarator, an import_statement, a function or class
	// declaration, or a parameter pattern.
	Decl *sitter.Node

	// NameNode is the identifier leaf that spells the name inside Decl.
	NameNode *sitter.Node
}

// Table holds the resolved bindings and references for one tree.
type Table struct {
	bindings []Binding
	refs     map[uint32][]*sitter.Node
	byRange  map[uint64]uint32
}

// Len returns the number of bindings.
func (t *Table) Len() int {
	return len(t.bindings)
}

// Binding returns the binding with the given id, or nil.
func (t *Table) Binding(id uint32) *Binding {
	if int(id) >= len(t.bindings) {
		return nil
	}
	return &t.bindings[id]
}

// Bindings returns all bindings in declaration order.
func (t *Table) Bindings() []Binding {
	return t.bindings
}

// BindingAt resolves an identifier leaf (reference or declaration
// name) to its binding id.
func (t *Table) BindingAt(node *sitter.Node) (uint32, bool) {
	if node == nil {
		return 0, false
	}
	id, ok := t.byRange[spanKey(node)]
	return id, ok
}

// RefsOf returns the reference sites of a binding, in source order.
// The declaration name itself is not a reference.
func (t *Table) RefsOf(id uint32) []*sitter.Node {
	return t.refs[id]
}

func spanKey(n *sitter.Node) uint64 {
	return uint64(n.StartByte())<<32 | uint64(n.EndByte())
}

func isNameLeaf(n *sitter.Node) bool {
	return n != nil && (n.Type() == "identifier" || n.Type() == "type_identifier")
}

// frame is one lexical scope during resolution. Hoist frames are the
// targets of var hoisting: the program scope and every function-like
// scope.
type frame struct {
	parent *frame
	hoist  bool
	names  map[string]uint32
}

func (f *frame) hoistTarget() *frame {
	for cur := f; cur != nil; cur = cur.parent {
		if cur.hoist {
			return cur
		}
	}
	return f
}

type occurrence struct {
	node  *sitter.Node
	frame *frame
}

type resolver struct {
	source  []byte
	table   *Table
	pending []occurrence
}

// Resolve builds the binding table for a parsed tree. All declarations
// are registered before any reference is resolved, so references that
// precede their declaration (var hoisting, functions calling forward)
// still bind correctly.
func Resolve(root *sitter.Node, source []byte) *Table {
	r := &resolver{
		source: source,
		table: &Table{
			refs:    make(map[uint32][]*sitter.Node),
			byRange: make(map[uint64]uint32),
		},
	}
	global := &frame{hoist: true, names: make(map[string]uint32)}
	r.walk(root, global)
	r.resolveOccurrences()
	return r.table
}

func (r *resolver) push(parent *frame, hoist bool) *frame {
	return &frame{parent: parent, hoist: hoist, names: make(map[string]uint32)}
}

func (r *resolver) walk(node *sitter.Node, fr *frame) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "variable_declaration", "lexical_declaration":
		kind := declarationKind(node)
		for i := range int(node.NamedChildCount()) {
			decl := node.NamedChild(i)
			if decl.Type() != "variable_declarator" {
				continue
			}
			r.declarePattern(decl.ChildByFieldName("name"), fr, kind, decl)
			r.walk(decl.ChildByFieldName("value"), fr)
		}

	case "import_statement":
		r.declareImports(node, fr)

	case "function_declaration", "generator_function_declaration":
		if name := node.ChildByFieldName("name"); name != nil {
			r.declare(name, fr, KindFunction, node)
		}
		inner := r.push(fr, true)
		r.declareParams(node, inner)
		r.walk(node.ChildByFieldName("body"), inner)

	case "function", "function_expression", "generator_function":
		// A named function expression binds its own name inside itself.
		inner := r.push(fr, true)
		if name := node.ChildByFieldName("name"); name != nil {
			r.declare(name, inner, KindFunction, node)
		}
		r.declareParams(node, inner)
		r.walk(node.ChildByFieldName("body"), inner)

	case "arrow_function":
		inner := r.push(fr, true)
		if p := node.ChildByFieldName("parameter"); p != nil {
			r.declarePattern(p, inner, KindParam, p)
		}
		r.declareParams(node, inner)
		r.walk(node.ChildByFieldName("body"), inner)

	case "method_definition":
		inner := r.push(fr, true)
		r.declareParams(node, inner)
		r.walk(node.ChildByFieldName("body"), inner)

	case "class_declaration", "abstract_class_declaration":
		// TypeScript spells class names as type_identifier.
		name := node.ChildByFieldName("name")
		if isNameLeaf(name) {
			r.declare(name, fr, KindClass, node)
		}
		r.walkChildrenExcept(node, fr, name)

	case "class":
		// Class expression: the name, if any, is visible only inside.
		name := node.ChildByFieldName("name")
		inner := fr
		if isNameLeaf(name) {
			inner = r.push(fr, false)
			r.declare(name, inner, KindClass, node)
		}
		r.walkChildrenExcept(node, inner, name)

	case "statement_block":
		inner := r.push(fr, false)
		for i := range int(node.NamedChildCount()) {
			r.walk(node.NamedChild(i), inner)
		}

	case "for_statement":
		inner := r.push(fr, false)
		for i := range int(node.NamedChildCount()) {
			r.walk(node.NamedChild(i), inner)
		}

	case "for_in_statement":
		inner := r.push(fr, false)
		left := node.ChildByFieldName("left")
		if kind, ok := forHeadKind(node); ok {
			r.declarePattern(left, inner, kind, node)
		} else {
			r.walk(left, inner)
		}
		r.walk(node.ChildByFieldName("right"), inner)
		r.walk(node.ChildByFieldName("body"), inner)

	case "catch_clause":
		inner := r.push(fr, false)
		if p := node.ChildByFieldName("parameter"); p != nil {
			r.declarePattern(p, inner, KindCatch, p)
		}
		r.walk(node.ChildByFieldName("body"), inner)

	case "export_statement":
		r.walkExport(node, fr)

	case "identifier", "shorthand_property_identifier":
		r.pending = append(r.pending, occurrence{node: node, frame: fr})

	default:
		for i := range int(node.NamedChildCount()) {
			r.walk(node.NamedChild(i), fr)
		}
	}
}

// walkChildrenExcept walks all named children except the given one.
func (r *resolver) walkChildrenExcept(node *sitter.Node, fr *frame, skip *sitter.Node) {
	for i := range int(node.NamedChildCount()) {
		child := node.NamedChild(i)
		if skip != nil && child.StartByte() == skip.StartByte() && child.EndByte() == skip.EndByte() {
			continue
		}
		r.walk(child, fr)
	}
}

// walkExport records export specifier names as references to local
// bindings while skipping the exported aliases, which name the public
// surface rather than any local. Re-exports with a source clause name
// another module's bindings and reference nothing local.
func (r *resolver) walkExport(node *sitter.Node, fr *frame) {
	reexport := node.ChildByFieldName("source") != nil
	for i := range int(node.NamedChildCount()) {
		child := node.NamedChild(i)
		if child.Type() != "export_clause" {
			r.walk(child, fr)
			continue
		}
		if reexport {
			continue
		}
		for j := range int(child.NamedChildCount()) {
			spec := child.NamedChild(j)
			if spec.Type() != "export_specifier" {
				continue
			}
			if name := spec.ChildByFieldName("name"); name != nil && name.Type() == "identifier" {
				r.pending = append(r.pending, occurrence{node: name, frame: fr})
			}
		}
	}
}

func (r *resolver) declareImports(stmt *sitter.Node, fr *frame) {
	for i := range int(stmt.NamedChildCount()) {
		child := stmt.NamedChild(i)
		switch child.Type() {
		case "import_clause":
			r.declareImportClause(child, fr, stmt)
		case "import_require_clause":
			// TypeScript: import d = require("mod")
			for j := range int(child.NamedChildCount()) {
				if c := child.NamedChild(j); c.Type() == "identifier" {
					r.declare(c, fr, KindImport, stmt)
				}
			}
		}
	}
}

func (r *resolver) declareImportClause(clause *sitter.Node, fr *frame, stmt *sitter.Node) {
	for i := range int(clause.NamedChildCount()) {
		child := clause.NamedChild(i)
		switch child.Type() {
		case "identifier":
			// Default import.
			r.declare(child, fr, KindImport, stmt)
		case "namespace_import":
			for j := range int(child.NamedChildCount()) {
				if c := child.NamedChild(j); c.Type() == "identifier" {
					r.declare(c, fr, KindImport, stmt)
				}
			}
		case "named_imports":
			for j := range int(child.NamedChildCount()) {
				spec := child.NamedChild(j)
				if spec.Type() != "import_specifier" {
					continue
				}
				local := spec.ChildByFieldName("alias")
				if local == nil {
					local = spec.ChildByFieldName("name")
				}
				if local != nil && local.Type() == "identifier" {
					r.declare(local, fr, KindImport, stmt)
				}
			}
		}
	}
}

func (r *resolver) declareParams(node *sitter.Node, fr *frame) {
	params := node.ChildByFieldName("parameters")
	if params == nil {
		return
	}
	for i := range int(params.NamedChildCount()) {
		r.declareParamNode(params.NamedChild(i), fr)
	}
}

func (r *resolver) declareParamNode(node *sitter.Node, fr *frame) {
	switch node.Type() {
	case "identifier":
		r.declare(node, fr, KindParam, node)
	case "object_pattern", "array_pattern", "rest_pattern":
		r.declarePattern(node, fr, KindParam, node)
	case "assignment_pattern":
		r.declarePattern(node.ChildByFieldName("left"), fr, KindParam, node)
		r.walk(node.ChildByFieldName("right"), fr)
	case "required_parameter", "optional_parameter":
		// TypeScript parameter wrappers.
		r.declarePattern(node.ChildByFieldName("pattern"), fr, KindParam, node)
		r.walk(node.ChildByFieldName("value"), fr)
	}
}

// declarePattern registers every name a binding pattern introduces.
// Default values inside patterns are expressions and are walked for
// references.
func (r *resolver) declarePattern(node *sitter.Node, fr *frame, kind Kind, decl *sitter.Node) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "identifier", "shorthand_property_identifier_pattern":
		r.declare(node, fr, kind, decl)
	case "object_pattern":
		for i := range int(node.NamedChildCount()) {
			child := node.NamedChild(i)
			switch child.Type() {
			case "shorthand_property_identifier_pattern":
				r.declare(child, fr, kind, decl)
			case "pair_pattern":
				r.declarePattern(child.ChildByFieldName("value"), fr, kind, decl)
			case "object_assignment_pattern":
				r.declarePattern(child.ChildByFieldName("left"), fr, kind, decl)
				r.walk(child.ChildByFieldName("right"), fr)
			case "rest_pattern":
				for j := range int(child.NamedChildCount()) {
					r.declarePattern(child.NamedChild(j), fr, kind, decl)
				}
			}
		}
	case "array_pattern":
		for i := range int(node.NamedChildCount()) {
			child := node.NamedChild(i)
			if child.Type() == "assignment_pattern" {
				r.declarePattern(child.ChildByFieldName("left"), fr, kind, decl)
				r.walk(child.ChildByFieldName("right"), fr)
				continue
			}
			r.declarePattern(child, fr, kind, decl)
		}
	case "assignment_pattern":
		r.declarePattern(node.ChildByFieldName("left"), fr, kind, decl)
		r.walk(node.ChildByFieldName("right"), fr)
	case "rest_pattern":
		for i := range int(node.NamedChildCount()) {
			r.declarePattern(node.NamedChild(i), fr, kind, decl)
		}
	}
}

func (r *resolver) declare(nameNode *sitter.Node, fr *frame, kind Kind, decl *sitter.Node) {
	name := parser.GetNodeText(nameNode, r.source)
	if name == "" {
		return
	}

	target := fr
	if kind == KindVar {
		target = fr.hoistTarget()
	}

	// var redeclaration reuses the existing binding.
	if id, ok := target.names[name]; ok {
		r.table.byRange[spanKey(nameNode)] = id
		return
	}

	id := uint32(len(r.table.bindings))
	r.table.bindings = append(r.table.bindings, Binding{
		ID:       id,
		Name:     name,
		Kind:     kind,
		Decl:     decl,
		NameNode: nameNode,
	})
	target.names[name] = id
	r.table.byRange[spanKey(nameNode)] = id
}

func (r *resolver) resolveOccurrences() {
	for _, occ := range r.pending {
		name := parser.GetNodeText(occ.node, r.source)
		id, ok := lookup(occ.frame, name)
		if !ok {
			// Unresolved names are ambient globals (console, require).
			continue
		}
		r.table.refs[id] = append(r.table.refs[id], occ.node)
		r.table.byRange[spanKey(occ.node)] = id
	}
}

func lookup(fr *frame, name string) (uint32, bool) {
	for cur := fr; cur != nil; cur = cur.parent {
		if id, ok := cur.names[name]; ok {
			return id, true
		}
	}
	return 0, false
}

func declarationKind(node *sitter.Node) Kind {
	for i := range int(node.ChildCount()) {
		switch node.Child(i).Type() {
		case "var":
			return KindVar
		case "let":
			return KindLet
		case "const":
			return KindConst
		}
	}
	return KindVar
}

// forHeadKind reports whether a for-in/for-of head declares its loop
// variable, and with which keyword.
func forHeadKind(node *sitter.Node) (Kind, bool) {
	for i := range int(node.ChildCount()) {
		switch node.Child(i).Type() {
		case "var":
			return KindVar, true
		case "let":
			return KindLet, true
		case "const":
			return KindConst, true
		}
	}
	return KindVar, false
}
