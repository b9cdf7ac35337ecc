package strip

import (
	"github.com/RoaringBitmap/roaring/v2"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/detrace/detrace/pkg/parser"
	"github.com/detrace/detrace/pkg/scope"
)

// TaintSet tracks which bindings carry values derived from the
// stripped module. Marking is monotone: a binding never leaves the
// set, so propagation terminates at the fixed point.
type TaintSet struct {
	bitmap *roaring.Bitmap
}

// NewTaintSet creates an empty taint set.
func NewTaintSet() *TaintSet {
	return &TaintSet{bitmap: roaring.New()}
}

// Mark adds a binding and reports whether it was newly added.
func (s *TaintSet) Mark(id uint32) bool {
	return s.bitmap.CheckedAdd(id)
}

// Has reports whether the binding is tainted.
func (s *TaintSet) Has(id uint32) bool {
	return s.bitmap.Contains(id)
}

// Count returns the number of tainted bindings.
func (s *TaintSet) Count() uint64 {
	return s.bitmap.GetCardinality()
}

type originKind int

const (
	originNone originKind = iota
	originBinding
	originRequire
)

// origin identifies where a value expression comes from: a local
// binding, a require of the stripped module, or neither. Chains of
// calls, member reads and wrappers anchor at their leftmost base, so
// d("a"), d.extend("x") and (d as any).enabled all trace back to d.
type origin struct {
	kind originKind
	id   uint32
}

// collector gathers taint seeds and binding-to-binding derivation
// edges in one walk over the tree.
type collector struct {
	target string
	table  *scope.Table
	source []byte

	seeds []uint32
	edges map[uint32][]uint32

	// sideEffects are statements that use the module without binding
	// anything: side-effect imports and bare require statements.
	sideEffects []*sitter.Node

	// byDecl groups binding ids by the span of their declaring node,
	// so a destructuring declarator maps to every name it introduces.
	byDecl map[uint64][]uint32
}

func newCollector(target string, table *scope.Table, source []byte) *collector {
	c := &collector{
		target: target,
		table:  table,
		source: source,
		edges:  make(map[uint32][]uint32),
		byDecl: make(map[uint64][]uint32),
	}
	for _, b := range table.Bindings() {
		if b.Decl != nil {
			key := spanOf(b.Decl)
			c.byDecl[key] = append(c.byDecl[key], b.ID)
		}
	}
	return c
}

func spanOf(n *sitter.Node) uint64 {
	return uint64(n.StartByte())<<32 | uint64(n.EndByte())
}

func (c *collector) collect(root *sitter.Node) {
	parser.Walk(root, c.source, func(node *sitter.Node, source []byte) bool {
		switch node.Type() {
		case "import_statement":
			c.collectImport(node)
			return false
		case "variable_declarator":
			c.collectDeclarator(node)
		case "assignment_expression":
			c.collectAssignment(node)
		case "expression_statement":
			if expr := node.NamedChild(0); expr != nil {
				if c.valueOrigin(expr).kind == originRequire {
					c.sideEffects = append(c.sideEffects, node)
					return false
				}
			}
		}
		return true
	})
}

func (c *collector) collectImport(stmt *sitter.Node) {
	src, ok := importSource(stmt, c.source)
	if !ok || src != c.target {
		return
	}

	locals := importLocals(stmt)
	if len(locals) == 0 {
		c.sideEffects = append(c.sideEffects, stmt)
		return
	}
	for _, leaf := range locals {
		if id, ok := c.table.BindingAt(leaf); ok {
			c.seeds = append(c.seeds, id)
		}
	}
}

func (c *collector) collectDeclarator(decl *sitter.Node) {
	value := decl.ChildByFieldName("value")
	if value == nil {
		return
	}
	targets := c.byDecl[spanOf(decl)]
	if len(targets) == 0 {
		return
	}
	switch org := c.valueOrigin(value); org.kind {
	case originRequire:
		c.seeds = append(c.seeds, targets...)
	case originBinding:
		c.edges[org.id] = append(c.edges[org.id], targets...)
	}
}

func (c *collector) collectAssignment(assign *sitter.Node) {
	left := assign.ChildByFieldName("left")
	if left == nil || left.Type() != "identifier" {
		return
	}
	id, ok := c.table.BindingAt(left)
	if !ok {
		return
	}
	switch org := c.valueOrigin(assign.ChildByFieldName("right")); org.kind {
	case originRequire:
		c.seeds = append(c.seeds, id)
	case originBinding:
		c.edges[org.id] = append(c.edges[org.id], id)
	}
}

// valueOrigin traces a value expression to its anchor.
func (c *collector) valueOrigin(node *sitter.Node) origin {
	if node == nil {
		return origin{}
	}
	switch node.Type() {
	case "identifier":
		if id, ok := c.table.BindingAt(node); ok {
			return origin{kind: originBinding, id: id}
		}
		return origin{}
	case "call_expression":
		if c.isTargetRequire(node) {
			return origin{kind: originRequire}
		}
		return c.valueOrigin(node.ChildByFieldName("function"))
	case "new_expression":
		return c.valueOrigin(node.ChildByFieldName("constructor"))
	case "member_expression", "subscript_expression":
		return c.valueOrigin(node.ChildByFieldName("object"))
	case "parenthesized_expression", "await_expression", "non_null_expression",
		"as_expression", "satisfies_expression":
		return c.valueOrigin(node.NamedChild(0))
	default:
		return origin{}
	}
}

// isTargetRequire reports whether a call is require("<target>") using
// the ambient require. A locally bound name called require is user
// code, not the module loader.
func (c *collector) isTargetRequire(call *sitter.Node) bool {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "identifier" {
		return false
	}
	if parser.GetNodeText(fn, c.source) != "require" {
		return false
	}
	if _, bound := c.table.BindingAt(fn); bound {
		return false
	}
	args := call.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return false
	}
	val, ok := parser.StringLiteralValue(args.NamedChild(0), c.source)
	return ok && val == c.target
}

// importSource returns the module name an import statement loads.
func importSource(stmt *sitter.Node, source []byte) (string, bool) {
	if s := stmt.ChildByFieldName("source"); s != nil {
		return parser.StringLiteralValue(s, source)
	}
	// TypeScript import-equals: import d = require("mod")
	for i := range int(stmt.NamedChildCount()) {
		child := stmt.NamedChild(i)
		if child.Type() != "import_require_clause" {
			continue
		}
		for j := range int(child.NamedChildCount()) {
			if c := child.NamedChild(j); c.Type() == "string" {
				return parser.StringLiteralValue(c, source)
			}
		}
	}
	return "", false
}

// importLocals returns the identifier leaves an import statement
// declares: the default name, the namespace name, and named specifier
// locals.
func importLocals(stmt *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := range int(stmt.NamedChildCount()) {
		child := stmt.NamedChild(i)
		switch child.Type() {
		case "import_clause":
			out = append(out, importClauseLocals(child)...)
		case "import_require_clause":
			for j := range int(child.NamedChildCount()) {
				if c := child.NamedChild(j); c.Type() == "identifier" {
					out = append(out, c)
				}
			}
		}
	}
	return out
}

func importClauseLocals(clause *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := range int(clause.NamedChildCount()) {
		child := clause.NamedChild(i)
		switch child.Type() {
		case "identifier":
			out = append(out, child)
		case "namespace_import":
			for j := range int(child.NamedChildCount()) {
				if c := child.NamedChild(j); c.Type() == "identifier" {
					out = append(out, c)
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
					out = append(out, local)
				}
			}
		}
	}
	return out
}

// propagate grows the taint set to its fixed point. The queue is
// consumed by index so ids appended mid-sweep are processed in the
// same pass.
func propagate(set *TaintSet, seeds []uint32, edges map[uint32][]uint32) {
	queue := make([]uint32, 0, len(seeds)*2)
	for _, id := range seeds {
		if set.Mark(id) {
			queue = append(queue, id)
		}
	}

	head := 0
	for head < len(queue) {
		current := queue[head]
		head++

		for _, to := range edges[current] {
			if set.Mark(to) {
				queue = append(queue, to)
			}
		}
	}
}
