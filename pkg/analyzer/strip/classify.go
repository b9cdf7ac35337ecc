package strip

import (
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/detrace/detrace/pkg/parser"
	"github.com/detrace/detrace/pkg/scope"
)

// classifier turns tainted bindings into concrete edits. Each
// declaration and each reference is classified independently; edits
// land in the plan, which dedupes by span.
type classifier struct {
	source []byte
	table  *scope.Table
	taint  *TaintSet
	col    *collector
	plan   *Plan

	// Declarator and export-specifier removals are buffered per parent
	// statement so sibling survival can be decided once all tainted
	// bindings have been seen.
	declRemovals  map[uint64]map[uint64]bool
	declParents   map[uint64]*sitter.Node
	exportRemoved map[uint64]map[uint64]bool
	exportParents map[uint64]*sitter.Node
}

func newClassifier(source []byte, table *scope.Table, taint *TaintSet, col *collector, plan *Plan) *classifier {
	return &classifier{
		source:        source,
		table:         table,
		taint:         taint,
		col:           col,
		plan:          plan,
		declRemovals:  make(map[uint64]map[uint64]bool),
		declParents:   make(map[uint64]*sitter.Node),
		exportRemoved: make(map[uint64]map[uint64]bool),
		exportParents: make(map[uint64]*sitter.Node),
	}
}

func (c *classifier) run() {
	for _, b := range c.table.Bindings() {
		if !c.taint.Has(b.ID) {
			continue
		}
		c.classifyDeclaration(b)
		for _, ref := range c.table.RefsOf(b.ID) {
			c.classifyRef(ref)
		}
	}
	c.flushDeclaratorRemovals()
	c.flushExportRemovals()
}

// classifyDeclaration removes the site that introduced a tainted
// binding. Imports drop the whole statement; declarators are removed
// only when their initializer itself derives from the stripped module,
// so a later re-assignment does not erase an unrelated initial value.
func (c *classifier) classifyDeclaration(b scope.Binding) {
	if b.Decl == nil {
		return
	}
	switch b.Kind {
	case scope.KindImport:
		c.deleteStatement(b.Decl, "imports the stripped module")
	case scope.KindVar, scope.KindLet, scope.KindConst:
		if b.Decl.Type() != "variable_declarator" {
			return
		}
		value := b.Decl.ChildByFieldName("value")
		if value == nil {
			c.markDeclaratorRemoved(b.Decl)
			return
		}
		switch org := c.col.valueOrigin(value); org.kind {
		case originRequire:
			c.markDeclaratorRemoved(b.Decl)
		case originBinding:
			if c.taint.Has(org.id) {
				c.markDeclaratorRemoved(b.Decl)
			}
		}
	}
}

// classifyRef handles one identifier reference to a tainted binding.
func (c *classifier) classifyRef(ref *sitter.Node) {
	parent := ref.Parent()
	if parent == nil {
		return
	}
	if parent.Type() == "export_specifier" {
		c.markExportRemoved(parent)
		return
	}

	cur := c.climb(ref)
	parent = cur.Parent()
	if parent == nil {
		c.replace(cur)
		return
	}

	switch parent.Type() {
	case "expression_statement":
		c.deleteStatement(parent, "call on a stripped value")
	case "variable_declarator":
		// The declaration pass owns this site.
	case "assignment_expression", "augmented_assignment_expression":
		if parent.ChildByFieldName("left") == cur {
			// Writing through a stripped value; the enclosing
			// statement goes if it is a plain expression statement.
			if gp := parent.Parent(); gp != nil && gp.Type() == "expression_statement" {
				c.deleteStatement(gp, "assignment of a stripped value")
			}
			return
		}
		if gp := parent.Parent(); gp != nil && gp.Type() == "expression_statement" {
			c.deleteStatement(gp, "assignment of a stripped value")
			return
		}
		c.replace(cur)
	case "export_statement":
		c.deleteStatement(parent, "export of a stripped value")
	default:
		c.replace(cur)
	}
}

// climb walks from a reference up through chains anchored on it:
// member and subscript reads, calls, construction and transparent
// wrappers. It stops at the outermost expression whose value is still
// derived from the reference.
func (c *classifier) climb(node *sitter.Node) *sitter.Node {
	cur := node
	for {
		parent := cur.Parent()
		if parent == nil {
			return cur
		}
		switch parent.Type() {
		case "member_expression", "subscript_expression":
			if parent.ChildByFieldName("object") != cur {
				return cur
			}
		case "call_expression":
			if parent.ChildByFieldName("function") != cur {
				return cur
			}
		case "new_expression":
			if parent.ChildByFieldName("constructor") != cur {
				return cur
			}
		case "parenthesized_expression", "non_null_expression", "await_expression",
			"as_expression", "satisfies_expression":
			// Transparent wrappers.
		default:
			return cur
		}
		cur = parent
	}
}

// replace swaps an expression for the undefined placeholder. Wrapping
// parentheses are unwrapped first so constructs like if conditions
// stay syntactically valid.
func (c *classifier) replace(node *sitter.Node) {
	cur := node
	for cur.Type() == "parenthesized_expression" {
		inner := cur.NamedChild(0)
		if inner == nil {
			break
		}
		cur = inner
	}
	text := placeholder
	if cur.Type() == "shorthand_property_identifier" {
		// {d} must keep its key when the value is replaced.
		text = parser.GetNodeText(cur, c.source) + ": " + placeholder
	}
	c.plan.add(Edit{
		Kind:      EditReplaceExpression,
		StartByte: cur.StartByte(),
		EndByte:   cur.EndByte(),
		Line:      cur.StartPoint().Row + 1,
		Text:      text,
		Detail:    "use of a stripped value",
	})
}

// deleteStatement removes a whole statement. When the statement is the
// sole body of an if, loop or label, it is replaced by an empty
// statement instead so the construct stays parseable.
func (c *classifier) deleteStatement(stmt *sitter.Node, detail string) {
	if parent := stmt.Parent(); parent != nil {
		switch parent.Type() {
		case "program", "statement_block", "switch_case", "switch_default":
		case "export_statement":
			// Deleting an exported declaration takes the export with it;
			// a bare export keyword is not valid syntax.
			c.deleteStatement(parent, detail)
			return
		default:
			c.plan.add(Edit{
				Kind:      EditReplaceExpression,
				StartByte: stmt.StartByte(),
				EndByte:   stmt.EndByte(),
				Line:      stmt.StartPoint().Row + 1,
				Text:      ";",
				Detail:    detail,
			})
			return
		}
	}
	start, end := widenStatement(c.source, stmt.StartByte(), stmt.EndByte())
	c.plan.add(Edit{
		Kind:      EditDeleteStatement,
		StartByte: start,
		EndByte:   end,
		Line:      stmt.StartPoint().Row + 1,
		Detail:    detail,
	})
}

func (c *classifier) markDeclaratorRemoved(decl *sitter.Node) {
	parent := decl.Parent()
	if parent == nil {
		return
	}
	key := spanOf(parent)
	if c.declRemovals[key] == nil {
		c.declRemovals[key] = make(map[uint64]bool)
		c.declParents[key] = parent
	}
	c.declRemovals[key][spanOf(decl)] = true
}

func (c *classifier) markExportRemoved(spec *sitter.Node) {
	clause := spec.Parent()
	if clause == nil {
		return
	}
	stmt := clause.Parent()
	if stmt == nil {
		return
	}
	key := spanOf(stmt)
	if c.exportRemoved[key] == nil {
		c.exportRemoved[key] = make(map[uint64]bool)
		c.exportParents[key] = stmt
	}
	c.exportRemoved[key][spanOf(spec)] = true
}

// flushDeclaratorRemovals emits edits for buffered declarator
// removals. If every declarator in a statement is marked the whole
// statement goes; otherwise each run of consecutive marked declarators
// is deleted together with the separating commas.
func (c *classifier) flushDeclaratorRemovals() {
	for _, key := range sortedKeys(c.declRemovals) {
		parent := c.declParents[key]
		removed := c.declRemovals[key]

		var items []*sitter.Node
		for i := range int(parent.NamedChildCount()) {
			child := parent.NamedChild(i)
			if child.Type() == "variable_declarator" {
				items = append(items, child)
			}
		}
		c.removeListItems(parent, items, removed, "declaration initialized from the stripped module")
	}
}

func (c *classifier) flushExportRemovals() {
	for _, key := range sortedKeys(c.exportRemoved) {
		stmt := c.exportParents[key]
		removed := c.exportRemoved[key]

		var clause *sitter.Node
		for i := range int(stmt.NamedChildCount()) {
			if child := stmt.NamedChild(i); child.Type() == "export_clause" {
				clause = child
				break
			}
		}
		if clause == nil {
			continue
		}
		var items []*sitter.Node
		for i := range int(clause.NamedChildCount()) {
			if child := clause.NamedChild(i); child.Type() == "export_specifier" {
				items = append(items, child)
			}
		}
		c.removeListItems(stmt, items, removed, "export of a stripped value")
	}
}

// removeListItems deletes marked items from a comma-separated list.
// All marked means the enclosing statement is deleted outright.
func (c *classifier) removeListItems(stmt *sitter.Node, items []*sitter.Node, removed map[uint64]bool, detail string) {
	if len(items) == 0 {
		return
	}
	all := true
	for _, item := range items {
		if !removed[spanOf(item)] {
			all = false
			break
		}
	}
	if all {
		c.deleteStatement(stmt, detail)
		return
	}

	for i := 0; i < len(items); {
		if !removed[spanOf(items[i])] {
			i++
			continue
		}
		j := i
		for j+1 < len(items) && removed[spanOf(items[j+1])] {
			j++
		}
		var start, end uint32
		if j+1 < len(items) {
			// A survivor follows: delete up to its start so its
			// leading comma becomes the run's trailing comma.
			start = items[i].StartByte()
			end = items[j+1].StartByte()
		} else {
			// Trailing run: delete from the previous survivor's end
			// so the comma before the run goes with it.
			start = items[i-1].EndByte()
			end = items[j].EndByte()
		}
		c.plan.add(Edit{
			Kind:      EditRemoveDeclarator,
			StartByte: start,
			EndByte:   end,
			Line:      items[i].StartPoint().Row + 1,
			Detail:    detail,
		})
		i = j + 1
	}
}

func sortedKeys[K ~uint64, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
