package scope

import (
	"regexp"
	"strconv"

	"workflowasm/compiler/ast"
	"workflowasm/compiler/path"
)

// semverPattern validates the literal inside @version(...): a loose,
// common semver-range grammar (exact version, or a ^/~/comparator
// prefixed one). No semver library appears anywhere in the example
// corpus this repo is grounded on, so validation is done with the
// standard library's regexp rather than introducing an unwitnessed
// dependency.
var semverPattern = regexp.MustCompile(`^(\^|~|>=|<=|>|<|=)?\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?(\+[0-9A-Za-z.-]+)?$`)

// ValidateSemver reports whether s parses as the semantic version
// specifier a @version annotation's literal must hold.
func ValidateSemver(s string) bool {
	return semverPattern.MatchString(s)
}

// scopeBuilder drives the first pre-pass: it opens a Scope at each
// Program/FunctionDeclaration/non-function BlockStatement and declares
// every binding it names.
type scopeBuilder struct {
	path.BaseVisitor
	scopes  ScopeOf
	current *Scope
	err     error
}

// ResolveScopes performs the scoping pre-pass over root (a Path rooted at
// an *ast.Program), returning the program's root Scope and a ScopeOf
// mapping usable by ResolveReferences. It stops at the first error:
// double binding, or an invalid/missing @version annotation.
func ResolveScopes(root *path.Path) (*Scope, ScopeOf, error) {
	prog, ok := root.Node.(*ast.Program)
	if !ok {
		return nil, nil, root.Raise("InvalidRoot", "ResolveScopes requires a Program root")
	}
	_ = prog

	b := &scopeBuilder{scopes: make(ScopeOf)}
	rootScope := NewScope(nil)
	b.current = rootScope
	b.scopes[root] = rootScope

	path.Walk(b, root)
	if b.err != nil {
		return nil, nil, b.err
	}
	return rootScope, b.scopes, nil
}

func (b *scopeBuilder) Enter(p *path.Path) bool {
	if b.err != nil {
		return false
	}

	switch n := p.Node.(type) {
	case *ast.FunctionDeclaration:
		if err := b.declareFunction(n); err != nil {
			b.err = err
			return false
		}
		if err := b.validateAnnotations(p, n); err != nil {
			b.err = err
			return false
		}
		child := NewScope(b.current)
		b.scopes[p] = child
		b.declareParams(child, n)
		b.current = child

	case *ast.BlockStatement:
		// The function body block shares the function's own scope
		// ; every other block opens its own.
		if _, isFunctionBody := p.Parent.Node.(*ast.FunctionDeclaration); !isFunctionBody {
			child := NewScope(b.current)
			b.scopes[p] = child
			b.current = child
		} else {
			b.scopes[p] = b.current
		}

	case *ast.ImportDeclaration:
		for _, spec := range n.Specifiers {
			local := spec.Local
			if local == "" {
				local = spec.Name
			}
			if _, err := b.current.DeclareImport(local, spec.Package, spec.Semver); err != nil {
				b.err = p.Raise("DuplicateBinding", err.Error())
				return false
			}
		}

	case *ast.VariableDeclarator:
		if err := b.declarePattern(n.ID); err != nil {
			b.err = p.Raise("DuplicateBinding", err.Error())
			return false
		}

	case *ast.ForStatement:
		// A for loop gets its own scope so an Init declarator (and any
		// block-scoped shadowing across sibling loops) doesn't leak into
		// or collide with the enclosing function scope.
		child := NewScope(b.current)
		b.scopes[p] = child
		b.current = child

	case *ast.ForInStatement:
		child := NewScope(b.current)
		b.scopes[p] = child
		b.current = child
		if err := b.declarePattern(n.Left); err != nil {
			b.err = p.Raise("DuplicateBinding", err.Error())
			return false
		}
	}
	return true
}

func (b *scopeBuilder) Exit(p *path.Path) {
	if b.err != nil {
		return
	}
	switch n := p.Node.(type) {
	case *ast.FunctionDeclaration:
		_ = n
		if b.current.Parent != nil {
			b.current = b.current.Parent
		}
	case *ast.BlockStatement:
		if _, isFunctionBody := p.Parent.Node.(*ast.FunctionDeclaration); !isFunctionBody {
			if b.current.Parent != nil {
				b.current = b.current.Parent
			}
		}
	case *ast.ForStatement, *ast.ForInStatement:
		if b.current.Parent != nil {
			b.current = b.current.Parent
		}
	}
}

func (b *scopeBuilder) declareFunction(n *ast.FunctionDeclaration) error {
	if _, err := b.current.Declare(n.Name, MODULE_FUNCTION); err != nil {
		return &path.CompileError{Class: "DuplicateBinding", Pos: n.Pos, Details: err.Error()}
	}
	return nil
}

func (b *scopeBuilder) declareParams(fnScope *Scope, n *ast.FunctionDeclaration) {
	for _, param := range n.Params {
		_ = b.declarePatternIn(fnScope, param)
	}
	if n.Rest != nil {
		_ = b.declarePatternIn(fnScope, n.Rest)
	}
}

func (b *scopeBuilder) declarePattern(p ast.Pattern) error {
	return b.declarePatternIn(b.current, p)
}

// declarePatternIn recursively declares every name a (possibly nested)
// binding pattern introduces, across all pattern kinds.
func (b *scopeBuilder) declarePatternIn(s *Scope, p ast.Pattern) error {
	switch pat := p.(type) {
	case nil, *ast.EmptyPattern:
		return nil
	case *ast.Identifier:
		_, err := s.Declare(pat.Name, VARIABLE)
		return err
	case *ast.ArrayPattern:
		for _, el := range pat.Elements {
			if err := b.declarePatternIn(s, el); err != nil {
				return err
			}
		}
		return b.declarePatternIn(s, pat.Rest)
	case *ast.ObjectPattern:
		for _, prop := range pat.Properties {
			if err := b.declarePatternIn(s, prop.Value); err != nil {
				return err
			}
		}
		return b.declarePatternIn(s, pat.Rest)
	case *ast.RestElement:
		return b.declarePatternIn(s, pat.Element)
	case *ast.AssignmentPattern:
		return b.declarePatternIn(s, pat.Left)
	default:
		return nil
	}
}

func (b *scopeBuilder) validateAnnotations(p *path.Path, n *ast.FunctionDeclaration) error {
	var versionAnns []*ast.Annotation
	for _, a := range n.Annotations {
		if a.Name == "version" {
			versionAnns = append(versionAnns, a)
		}
	}
	if len(versionAnns) != 1 {
		return p.Raise("CompilationError", "function "+n.Name+" must carry exactly one @version annotation")
	}
	if !ValidateSemver(versionAnns[0].Literal) {
		return p.Raise("CompilationError", "function "+n.Name+"'s @version literal is not a valid semantic version specifier: "+versionAnns[0].Literal)
	}
	return nil
}

// referenceResolver drives the second pre-pass: every Identifier that is a
// reference (not a declaration target, not a static member property) is
// looked up in the scope chain and annotated with its Binding.
type referenceResolver struct {
	path.BaseVisitor
	scopes ScopeOf
	stack  []*Scope
	err    error
}

// ResolveReferences performs the reference-resolution pre-pass, annotating
// each reference Path's Binding field. scopes must be the ScopeOf returned
// by ResolveScopes on the same tree.
func ResolveReferences(root *path.Path, rootScope *Scope, scopes ScopeOf) error {
	r := &referenceResolver{scopes: scopes, stack: []*Scope{rootScope}}
	path.Walk(r, root)
	return r.err
}

func (r *referenceResolver) currentScope() *Scope { return r.stack[len(r.stack)-1] }

func (r *referenceResolver) Enter(p *path.Path) bool {
	if r.err != nil {
		return false
	}
	if sc, ok := r.scopes[p]; ok && sc != r.currentScope() {
		r.stack = append(r.stack, sc)
	}

	id, ok := p.Node.(*ast.Identifier)
	if !ok || !isReferenceContext(p) {
		return true
	}
	b, found := r.currentScope().Lookup(id.Name)
	if !found {
		r.err = &UnresolvedIdentifierError{Name: id.Name, Pos: posString(id.Pos)}
		return false
	}
	p.Binding = b
	return true
}

func (r *referenceResolver) Exit(p *path.Path) {
	if _, ok := r.scopes[p]; ok && len(r.stack) > 1 {
		r.stack = r.stack[:len(r.stack)-1]
	}
}

// isReferenceContext reports whether the Identifier at p occurs somewhere
// an existing binding must be looked up, as opposed to a declaration
// target (a new binding site) or a static (non-computed) member name.
func isReferenceContext(p *path.Path) bool {
	parent := p.Parent
	if parent == nil {
		return false
	}
	switch pn := parent.Node.(type) {
	case *ast.VariableDeclarator:
		// The declarator's own ID is a binding site, not a reference.
		return p.Entry.Key != "ID"
	case *ast.FunctionDeclaration:
		// Parameter identifiers are binding sites.
		return p.Entry.Key != "Params" && p.Entry.Key != "Rest"
	case *ast.MemberExpression:
		// A static property name (`obj.prop`) is not a variable
		// reference; a computed one (`obj[prop]`) is.
		if p.Entry.Key == "Property" && !pn.Computed {
			return false
		}
		return true
	case *ast.ArrayPattern, *ast.ObjectPattern, *ast.RestElement, *ast.AssignmentPattern:
		// Identifiers nested directly in a binding pattern (array/object
		// destructuring, rest, or a default-value pattern's left side)
		// are binding sites, not references. AssignmentExpression's
		// Left is handled separately below since plain `x = e` targets
		// an existing binding.
		return false
	default:
		return true
	}
}

func posString(pos ast.Position) string {
	return strconv.Itoa(pos.Line) + ":" + strconv.Itoa(pos.Column)
}
