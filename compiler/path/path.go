// Package path implements the Path/Visitor traversal the front end walks
// the AST with . A Path wraps one node plus the route that
// reached it from the root, so a scoping or reference-resolution pass can
// walk up to an enclosing function or block without threading its own
// stack.
package path

import (
	"strconv"

	"workflowasm/compiler/ast"
)

// Entry is one (key, index?) step of a Path's route from the root, e.g.
// ("Body", 3) for the fourth statement of a block.
type Entry struct {
	Key      string
	Index    int
	HasIndex bool
}

// Path wraps an ast.Node together with its parent path and the field it
// was reached through. Child paths are created lazily and cached so
// repeated Get calls return the same Path (and so per-Path annotations,
// like a resolved Binding, stick).
type Path struct {
	Node   ast.Node
	Parent *Path
	Entry  Entry

	// Binding is set by the scope-resolution pass on Identifier paths
	// that resolve to a name (see compiler/scope).
	Binding any

	children map[string]*Path
}

// NewRoot creates the root Path for a Program.
func NewRoot(node ast.Node) *Path {
	return &Path{Node: node, children: make(map[string]*Path)}
}

func (p *Path) childKey(e Entry) string {
	if e.HasIndex {
		return e.Key + "#" + strconv.Itoa(e.Index)
	}
	return e.Key
}

// child returns (creating if necessary) the cached child Path for node
// reached via e.
func (p *Path) child(e Entry, node ast.Node) *Path {
	if node == nil {
		return nil
	}
	key := p.childKey(e)
	if c, ok := p.children[key]; ok {
		return c
	}
	c := &Path{Node: node, Parent: p, Entry: e, children: make(map[string]*Path)}
	p.children[key] = c
	return c
}

// Get returns the child Path reached through the named field, optionally
// at a slice index (Get("Body", stmt, 2) for stmt, the third element of a
// []Stmt field). The caller supplies the resolved child node; callers that only
// have the parent Path use Children() below to enumerate all of them
// uniformly instead of naming fields one at a time.
func (p *Path) Get(key string, node ast.Node, index ...int) *Path {
	e := Entry{Key: key}
	if len(index) > 0 {
		e.Index = index[0]
		e.HasIndex = true
	}
	return p.child(e, node)
}

// FindAncestor walks Parent pointers until pred reports true, returning
// nil if the root is reached without a match.
func (p *Path) FindAncestor(pred func(*Path) bool) *Path {
	for a := p.Parent; a != nil; a = a.Parent {
		if pred(a) {
			return a
		}
	}
	return nil
}

// CompileError is raised by Raise; it carries the offending node's source
// Position so a host can report a precise location.
type CompileError struct {
	Class   string
	Pos     ast.Position
	Details string
}

func (e *CompileError) Error() string {
	return e.Class + ": " + e.Details
}

// Raise builds a CompileError anchored at this Path's node.
func (p *Path) Raise(class, details string) error {
	return &CompileError{Class: class, Pos: p.Node.Position(), Details: details}
}

// Children returns the direct child Paths of p, in traversal order, using
// each AST node kind's own shape.
func (p *Path) Children() []*Path {
	var out []*Path
	add := func(key string, node ast.Node, idx ...int) {
		if c := p.Get(key, node, idx...); c != nil {
			out = append(out, c)
		}
	}
	addSlice := func(key string, nodes []ast.Node) {
		for i, n := range nodes {
			add(key, n, i)
		}
	}

	switch n := p.Node.(type) {
	case *ast.Program:
		addSlice("Body", stmtsToNodes(n.Body))
	case *ast.FunctionDeclaration:
		for i, param := range n.Params {
			add("Params", param, i)
		}
		add("Rest", n.Rest)
		add("Body", n.Body)
	case *ast.BlockStatement:
		addSlice("Body", stmtsToNodes(n.Body))
	case *ast.VariableDeclaration:
		for i, d := range n.Declarations {
			add("Declarations", d, i)
		}
	case *ast.VariableDeclarator:
		add("ID", n.ID)
		add("Init", n.Init)
	case *ast.ExpressionStatement:
		add("Expression", n.Expression)
	case *ast.IfStatement:
		add("Test", n.Test)
		add("Consequent", n.Consequent)
		add("Alternate", n.Alternate)
	case *ast.WhileStatement:
		add("Test", n.Test)
		add("Body", n.Body)
	case *ast.ForStatement:
		add("Init", n.Init)
		add("Test", n.Test)
		add("Update", n.Update)
		add("Body", n.Body)
	case *ast.ForInStatement:
		add("Left", n.Left)
		add("Right", n.Right)
		add("Body", n.Body)
	case *ast.ReturnStatement:
		add("Argument", n.Argument)
	case *ast.ThrowStatement:
		add("Argument", n.Argument)
	case *ast.BinaryExpression:
		add("Left", n.Left)
		add("Right", n.Right)
	case *ast.UnaryExpression:
		add("Argument", n.Argument)
	case *ast.CallExpression:
		add("Callee", n.Callee)
		for i, arg := range n.Arguments {
			add("Arguments", arg, i)
		}
	case *ast.MemberExpression:
		add("Object", n.Object)
		add("Property", n.Property)
	case *ast.ArrayExpression:
		for i, el := range n.Elements {
			add("Elements", el, i)
		}
	case *ast.ObjectExpression:
		for i, prop := range n.Properties {
			add("Properties", prop, i)
		}
	case *ast.Property:
		add("Key", n.Key)
		add("Value", n.Value)
	case *ast.AssignmentExpression:
		add("Left", n.Left)
		add("Right", n.Right)
	case *ast.ArrayPattern:
		for i, el := range n.Elements {
			if el != nil {
				add("Elements", el, i)
			}
		}
		add("Rest", n.Rest)
	case *ast.ObjectPattern:
		for i, prop := range n.Properties {
			add("Properties", prop, i)
		}
		add("Rest", n.Rest)
	case *ast.ObjectPatternProperty:
		add("Value", n.Value)
	case *ast.RestElement:
		add("Element", n.Element)
	case *ast.AssignmentPattern:
		add("Left", n.Left)
		add("Default", n.Default)
	case *ast.Literal:
		for i, part := range n.Parts {
			add("Parts", part, i)
		}
	}
	return out
}

func stmtsToNodes(stmts []ast.Stmt) []ast.Node {
	out := make([]ast.Node, len(stmts))
	for i, s := range stmts {
		out[i] = s
	}
	return out
}
