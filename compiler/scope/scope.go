// Package scope implements the front end's two scoping pre-passes:
// ResolveScopes opens a Scope per Program/FunctionDeclaration/non-function
// BlockStatement and registers bindings; ResolveReferences then resolves
// every Identifier reference against the scope chain.
package scope

import (
	"strconv"

	"workflowasm/compiler/path"
)

// BindingKind distinguishes how a name came to be bound.
type BindingKind int

const (
	// VARIABLE is a local from a pattern, a let/var declarator, or a
	// function parameter.
	VARIABLE BindingKind = iota
	// MODULE_FUNCTION is a top-level `fn` declaration in this program.
	MODULE_FUNCTION
	// IMPORTED_FUNCTION comes from an ImportSpecifier; it additionally
	// carries the source package and the semver range it was imported at.
	IMPORTED_FUNCTION
)

func (k BindingKind) String() string {
	switch k {
	case VARIABLE:
		return "VARIABLE"
	case MODULE_FUNCTION:
		return "MODULE_FUNCTION"
	case IMPORTED_FUNCTION:
		return "IMPORTED_FUNCTION"
	default:
		return "UNKNOWN"
	}
}

// Binding is one name bound in a Scope.
type Binding struct {
	Kind BindingKind
	Name string

	// CompiledName is the mangled name SETVAR/GETVAR address this binding
	// by, unique across the whole program (Scope.Prefix + Name).
	CompiledName string

	// Package/Semver are only meaningful for IMPORTED_FUNCTION.
	Package string
	Semver  string
}

// Scope holds the bindings introduced directly in one Program,
// FunctionDeclaration, or non-function BlockStatement.
type Scope struct {
	Parent   *Scope
	Prefix   string
	Bindings map[string]*Binding

	childCounter int
	labelCounter int
}

// NewScope creates a child scope of parent with a unique compiled-name
// prefix derived from it.
func NewScope(parent *Scope) *Scope {
	s := &Scope{Bindings: make(map[string]*Binding)}
	if parent == nil {
		s.Prefix = "$0$"
		return s
	}
	parent.childCounter++
	s.Parent = parent
	s.Prefix = parent.Prefix + strconv.Itoa(parent.childCounter) + "$"
	return s
}

// NextLabel mints a unique label name for this scope's IL (e.g. for
// if/while lowering's "exit"/"alt" targets).
func (s *Scope) NextLabel(hint string) string {
	s.labelCounter++
	return s.Prefix + hint + strconv.Itoa(s.labelCounter)
}

// Declare registers a new binding in this scope. It returns an error if
// name is already bound directly in s: a double binding in the same scope
// is a hard compile error.
func (s *Scope) Declare(name string, kind BindingKind) (*Binding, error) {
	if _, exists := s.Bindings[name]; exists {
		return nil, &DuplicateBindingError{Name: name}
	}
	b := &Binding{Kind: kind, Name: name, CompiledName: s.Prefix + name}
	s.Bindings[name] = b
	return b, nil
}

// DeclareImport registers an IMPORTED_FUNCTION binding carrying its
// package and semver.
func (s *Scope) DeclareImport(local, pkg, semver string) (*Binding, error) {
	b, err := s.Declare(local, IMPORTED_FUNCTION)
	if err != nil {
		return nil, err
	}
	b.Package = pkg
	b.Semver = semver
	return b, nil
}

// Lookup searches s and its ancestors for name.
func (s *Scope) Lookup(name string) (*Binding, bool) {
	for sc := s; sc != nil; sc = sc.Parent {
		if b, ok := sc.Bindings[name]; ok {
			return b, true
		}
	}
	return nil, false
}

// DuplicateBindingError is raised by Declare on a double-binding.
type DuplicateBindingError struct{ Name string }

func (e *DuplicateBindingError) Error() string {
	return "duplicate binding in scope: " + e.Name
}

// UnresolvedIdentifierError is raised by ResolveReferences for a name with
// no binding anywhere in the scope chain.
type UnresolvedIdentifierError struct {
	Name string
	Pos  string
}

func (e *UnresolvedIdentifierError) Error() string {
	return "unresolved identifier " + e.Name + " at " + e.Pos
}

// ScopeOf maps each opened Path (Program/FunctionDeclaration/
// non-function BlockStatement) to the Scope it owns; ResolveReferences
// consumes this to find, for any Path, the nearest enclosing scope.
type ScopeOf map[*path.Path]*Scope
