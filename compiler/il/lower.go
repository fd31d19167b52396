package il

import (
	"workflowasm/bytecode"
	"workflowasm/compiler/ast"
	"workflowasm/compiler/path"
	"workflowasm/compiler/scope"
	"workflowasm/value"
)

// loopLabels is the (continue, break) target pair for the nearest
// enclosing loop, used to lower BreakStatement/ContinueStatement.
type loopLabels struct {
	continueLabel string
	breakLabel    string
}

type lowerer struct {
	scopeOf   scope.ScopeOf
	fnScope   *scope.Scope
	loopStack []loopLabels
}

// Lower compiles every FunctionDeclaration in root (a Path rooted at an
// *ast.Program that has already been through scope.ResolveScopes and
// scope.ResolveReferences) into IL, one statement/expression lowering
// rule at a time.
// ImportDeclarations and any top-level statement outside a function
// declaration are otherwise ignored: the bytecode object file is a map of
// named functions, and this repo has no implicit module-level entry point
// beyond the functions it declares.
func Lower(root *path.Path, scopes scope.ScopeOf) (*Program, error) {
	prog, ok := root.Node.(*ast.Program)
	if !ok {
		return nil, root.Raise("InvalidRoot", "Lower requires a Program root")
	}

	out := &Program{}
	for i, stmt := range prog.Body {
		fn, ok := stmt.(*ast.FunctionDeclaration)
		if !ok {
			continue
		}
		fnPath := root.Get("Body", fn, i)
		fnScope := scopes[fnPath]
		l := &lowerer{scopeOf: scopes, fnScope: fnScope}
		instrs, err := l.lowerFunction(fnPath, fn)
		if err != nil {
			return nil, err
		}
		out.Functions = append(out.Functions, Function{Name: fn.Name, Instrs: instrs})
	}
	return out, nil
}

func (l *lowerer) lowerFunction(p *path.Path, fn *ast.FunctionDeclaration) ([]Instr, error) {
	var out []Instr

	n := len(fn.Params)
	out = append(out, NormalizeArgs(n, fn.Rest != nil))

	// NORMALIZE_ARGS leaves the call's fixed arguments on the stack
	// bottom (param 0) to top (param n-1), with the rest list (if any)
	// on top of those. Bind top-down with compilePattern: the rest
	// parameter first, then the fixed parameters from last to first.
	if fn.Rest != nil {
		restPath := p.Get("Rest", fn.Rest)
		instrs, err := l.compilePattern(restPath, fn.Rest)
		if err != nil {
			return nil, err
		}
		out = append(out, instrs...)
	}
	for i := len(fn.Params) - 1; i >= 0; i-- {
		param := fn.Params[i]
		paramPath := p.Get("Params", param, i)
		instrs, err := l.compilePattern(paramPath, param)
		if err != nil {
			return nil, err
		}
		out = append(out, instrs...)
	}

	bodyPath := p.Get("Body", fn.Body)
	instrs, err := l.lowerBlockBody(bodyPath, fn.Body)
	if err != nil {
		return nil, err
	}
	out = append(out, instrs...)
	return out, nil
}

// lowerBlockBody lowers a block's statements without opening a fresh IL
// scope marker -- used for a function's own body block, which shares the
// function's scope.
func (l *lowerer) lowerBlockBody(p *path.Path, b *ast.BlockStatement) ([]Instr, error) {
	var out []Instr
	for i, stmt := range b.Body {
		stmtPath := p.Get("Body", stmt, i)
		instrs, err := l.lowerStmt(stmtPath, stmt)
		if err != nil {
			return nil, err
		}
		out = append(out, instrs...)
	}
	return out, nil
}

func (l *lowerer) lowerBlock(p *path.Path, b *ast.BlockStatement) ([]Instr, error) {
	sc := l.scopeOf[p]
	prefix := ""
	if sc != nil {
		prefix = sc.Prefix
	}
	body, err := l.lowerBlockBody(p, b)
	if err != nil {
		return nil, err
	}
	out := []Instr{OpenScope(prefix)}
	out = append(out, body...)
	out = append(out, CloseScope(prefix))
	return out, nil
}

func (l *lowerer) lowerStmt(p *path.Path, s ast.Stmt) ([]Instr, error) {
	switch n := s.(type) {
	case *ast.BlockStatement:
		return l.lowerBlock(p, n)

	case *ast.VariableDeclaration:
		var out []Instr
		for i, decl := range n.Declarations {
			declPath := p.Get("Declarations", decl, i)
			instrs, err := l.lowerDeclarator(declPath, decl)
			if err != nil {
				return nil, err
			}
			out = append(out, instrs...)
		}
		return out, nil

	case *ast.ExpressionStatement:
		exprPath := p.Get("Expression", n.Expression)
		instrs, err := l.lowerExpr(exprPath, n.Expression)
		if err != nil {
			return nil, err
		}
		// The statement's value is discarded.
		return append(instrs, Asm(bytecode.POP, 1)), nil

	case *ast.IfStatement:
		return l.lowerIf(p, n)

	case *ast.WhileStatement:
		return l.lowerWhile(p, n)

	case *ast.ForStatement:
		return l.lowerFor(p, n)

	case *ast.ForInStatement:
		return l.lowerForIn(p, n)

	case *ast.ReturnStatement:
		var out []Instr
		if n.Argument != nil {
			argPath := p.Get("Argument", n.Argument)
			instrs, err := l.lowerExpr(argPath, n.Argument)
			if err != nil {
				return nil, err
			}
			out = append(out, instrs...)
		} else {
			out = append(out, PushLiteral(value.Null{}))
		}
		out = append(out, Asm(bytecode.RETURN, 0))
		return out, nil

	case *ast.ThrowStatement:
		argPath := p.Get("Argument", n.Argument)
		instrs, err := l.lowerExpr(argPath, n.Argument)
		if err != nil {
			return nil, err
		}
		return append(instrs, Asm(bytecode.THROW, 0)), nil

	case *ast.BreakStatement:
		if len(l.loopStack) == 0 {
			return nil, p.Raise("CompilationError", "break outside a loop")
		}
		target := l.loopStack[len(l.loopStack)-1].breakLabel
		return []Instr{Goto(target)}, nil

	case *ast.ContinueStatement:
		if len(l.loopStack) == 0 {
			return nil, p.Raise("CompilationError", "continue outside a loop")
		}
		target := l.loopStack[len(l.loopStack)-1].continueLabel
		return []Instr{Goto(target)}, nil

	default:
		return nil, p.Raise("CompilationError", "unsupported statement node")
	}
}

func (l *lowerer) lowerDeclarator(p *path.Path, decl *ast.VariableDeclarator) ([]Instr, error) {
	var out []Instr
	if decl.Init != nil {
		initPath := p.Get("Init", decl.Init)
		instrs, err := l.lowerExpr(initPath, decl.Init)
		if err != nil {
			return nil, err
		}
		out = append(out, instrs...)
	} else {
		out = append(out, PushLiteral(value.Null{}))
	}
	idPath := p.Get("ID", decl.ID)
	instrs, err := l.compilePattern(idPath, decl.ID)
	if err != nil {
		return nil, err
	}
	return append(out, instrs...), nil
}

// compilePattern lowers a binding pattern against a value already sitting
// on top of the stack, consuming it. An Identifier binds with a direct
// SETVAR, and an AssignmentPattern or RestElement binds its inner pattern;
// ArrayPattern, ObjectPattern and every other pattern kind are rejected
// with a CompilationError, so no destructuring is emitted.
func (l *lowerer) compilePattern(p *path.Path, pat ast.Pattern) ([]Instr, error) {
	switch pt := pat.(type) {
	case *ast.Identifier:
		b, ok := l.fnScope.Lookup(pt.Name)
		if !ok {
			// declared in this same pass; look in the path's own scope.
			b, ok = l.localLookup(p, pt.Name)
			if !ok {
				return nil, p.Raise("UnresolvedIdentifier", "unbound pattern target "+pt.Name)
			}
		}
		return []Instr{PushLiteral(value.String(b.CompiledName)), SetVar()}, nil

	case *ast.AssignmentPattern:
		// `x = default` as a parameter pattern: NORMALIZE_ARGS already
		// padded a missing argument with NULL, so defaulting is left to
		// the function body's own null-check idiom in this repo rather
		// than synthesized here; bind the left pattern directly.
		return l.compilePattern(p.Get("Left", pt.Left), pt.Left)

	case *ast.RestElement:
		return l.compilePattern(p.Get("Element", pt.Element), pt.Element)

	default:
		return nil, p.Raise("CompilationError", "unsupported binding pattern")
	}
}

// localLookup is a fallback for compilePattern call sites (parameters,
// the for-in loop variable) whose binding lives in a scope the lowerer
// hasn't kept a direct handle to; it walks up from p's nearest recorded
// Scope.
func (l *lowerer) localLookup(p *path.Path, name string) (*scope.Binding, bool) {
	for a := p; a != nil; a = a.Parent {
		if sc, ok := l.scopeOf[a]; ok {
			return sc.Lookup(name)
		}
	}
	return nil, false
}

func (l *lowerer) lowerIf(p *path.Path, n *ast.IfStatement) ([]Instr, error) {
	testPath := p.Get("Test", n.Test)
	test, err := l.lowerExpr(testPath, n.Test)
	if err != nil {
		return nil, err
	}
	consPath := p.Get("Consequent", n.Consequent)
	cons, err := l.lowerStmt(consPath, n.Consequent)
	if err != nil {
		return nil, err
	}

	exitLabel := l.newLabel(p, "exit")
	if n.Alternate == nil {
		out := append([]Instr{}, test...)
		out = append(out, Asm(bytecode.TEST, 1), Goto(exitLabel))
		out = append(out, cons...)
		out = append(out, Label(exitLabel))
		return out, nil
	}

	altLabel := l.newLabel(p, "alt")
	altPath := p.Get("Alternate", n.Alternate)
	alt, err := l.lowerStmt(altPath, n.Alternate)
	if err != nil {
		return nil, err
	}
	out := append([]Instr{}, test...)
	out = append(out, Asm(bytecode.TEST, 1), Goto(altLabel))
	out = append(out, cons...)
	out = append(out, Goto(exitLabel))
	out = append(out, Label(altLabel))
	out = append(out, alt...)
	out = append(out, Label(exitLabel))
	return out, nil
}

func (l *lowerer) lowerWhile(p *path.Path, n *ast.WhileStatement) ([]Instr, error) {
	startLabel := l.newLabel(p, "loop")
	endLabel := l.newLabel(p, "end")

	testPath := p.Get("Test", n.Test)
	test, err := l.lowerExpr(testPath, n.Test)
	if err != nil {
		return nil, err
	}

	l.loopStack = append(l.loopStack, loopLabels{continueLabel: startLabel, breakLabel: endLabel})
	bodyPath := p.Get("Body", n.Body)
	body, err := l.lowerStmt(bodyPath, n.Body)
	l.loopStack = l.loopStack[:len(l.loopStack)-1]
	if err != nil {
		return nil, err
	}

	out := []Instr{Label(startLabel)}
	out = append(out, test...)
	out = append(out, Asm(bytecode.TEST, 1), Goto(endLabel))
	out = append(out, body...)
	out = append(out, Goto(startLabel), Label(endLabel))
	return out, nil
}

func (l *lowerer) lowerFor(p *path.Path, n *ast.ForStatement) ([]Instr, error) {
	var out []Instr
	if n.Init != nil {
		initPath := p.Get("Init", n.Init)
		instrs, err := l.lowerStmt(initPath, n.Init)
		if err != nil {
			return nil, err
		}
		out = append(out, instrs...)
	}

	startLabel := l.newLabel(p, "loop")
	endLabel := l.newLabel(p, "end")
	continueLabel := l.newLabel(p, "continue")

	out = append(out, Label(startLabel))
	if n.Test != nil {
		testPath := p.Get("Test", n.Test)
		test, err := l.lowerExpr(testPath, n.Test)
		if err != nil {
			return nil, err
		}
		out = append(out, test...)
		out = append(out, Asm(bytecode.TEST, 1), Goto(endLabel))
	}

	l.loopStack = append(l.loopStack, loopLabels{continueLabel: continueLabel, breakLabel: endLabel})
	bodyPath := p.Get("Body", n.Body)
	body, err := l.lowerStmt(bodyPath, n.Body)
	l.loopStack = l.loopStack[:len(l.loopStack)-1]
	if err != nil {
		return nil, err
	}
	out = append(out, body...)
	out = append(out, Label(continueLabel))

	if n.Update != nil {
		updatePath := p.Get("Update", n.Update)
		update, err := l.lowerExpr(updatePath, n.Update)
		if err != nil {
			return nil, err
		}
		out = append(out, update...)
		out = append(out, Asm(bytecode.POP, 1))
	}
	out = append(out, Goto(startLabel), Label(endLabel))
	return out, nil
}

// lowerForIn desugars `for (x in right) body` into an index-based while
// loop driven by the len/list_get/map_keys natives, since the bytecode
// instruction set has no dedicated iterator opcode ( only
// defines stack-position addressing).
func (l *lowerer) lowerForIn(p *path.Path, n *ast.ForInStatement) ([]Instr, error) {
	rightPath := p.Get("Right", n.Right)
	right, err := l.lowerExpr(rightPath, n.Right)
	if err != nil {
		return nil, err
	}

	sc := l.scopeOf[p]
	if sc == nil {
		sc = l.fnScope
	}
	seqVar := sc.Prefix + "$forin_seq"
	idxVar := sc.Prefix + "$forin_idx"

	// The loop always iterates by LIST position; a MAP's keys (an
	// ObjectExpression's static shape) are collected up front with
	// map_keys, the same way list_get/map_get stand in for a missing
	// container-indexing opcode elsewhere in this lowering.
	var out []Instr
	out = append(out, right...)
	if _, isObject := n.Right.(*ast.ObjectExpression); isObject {
		out = append(out, PushLiteral(value.Int64(1)), PushLiteral(value.NewNative("map_keys")), Asm(bytecode.CALL, 0))
	}
	out = append(out, PushLiteral(value.String(seqVar)), SetVar())
	out = append(out, PushLiteral(value.Int64(0)))
	out = append(out, PushLiteral(value.String(idxVar)), SetVar())

	startLabel := l.newLabel(p, "forin_loop")
	endLabel := l.newLabel(p, "forin_end")
	continueLabel := l.newLabel(p, "forin_continue")

	out = append(out, Label(startLabel))
	// TEST: idx < len(seq)
	out = append(out, PushLiteral(value.String(idxVar)), GetVar())
	out = append(out, PushLiteral(value.String(seqVar)), GetVar())
	out = append(out, PushLiteral(value.Int64(1)))
	out = append(out, PushLiteral(value.NewNative("len")), Asm(bytecode.CALL, 0))
	out = append(out, Asm(bytecode.BINOP, int32(bytecode.OpLt)))
	out = append(out, Asm(bytecode.TEST, 1), Goto(endLabel))

	// x = list_get(seq, idx)
	out = append(out, PushLiteral(value.String(seqVar)), GetVar())
	out = append(out, PushLiteral(value.String(idxVar)), GetVar())
	out = append(out, PushLiteral(value.Int64(2)), PushLiteral(value.NewNative("list_get")), Asm(bytecode.CALL, 0))
	leftPath := p.Get("Left", n.Left)
	bindLeft, err := l.compilePattern(leftPath, n.Left)
	if err != nil {
		return nil, err
	}
	out = append(out, bindLeft...)

	l.loopStack = append(l.loopStack, loopLabels{continueLabel: continueLabel, breakLabel: endLabel})
	bodyPath := p.Get("Body", n.Body)
	body, err := l.lowerStmt(bodyPath, n.Body)
	l.loopStack = l.loopStack[:len(l.loopStack)-1]
	if err != nil {
		return nil, err
	}
	out = append(out, body...)

	out = append(out, Label(continueLabel))
	out = append(out, PushLiteral(value.String(idxVar)), GetVar())
	out = append(out, PushLiteral(value.Int64(1)))
	out = append(out, Asm(bytecode.BINOP, int32(bytecode.OpAdd)))
	out = append(out, PushLiteral(value.String(idxVar)), SetVar())
	out = append(out, Goto(startLabel), Label(endLabel))
	return out, nil
}

func (l *lowerer) newLabel(p *path.Path, hint string) string {
	sc := l.scopeOf[p]
	if sc == nil {
		sc = l.fnScope
	}
	return sc.NextLabel(hint)
}

func (l *lowerer) lowerExpr(p *path.Path, e ast.Expr) ([]Instr, error) {
	switch n := e.(type) {
	case *ast.Literal:
		if n.Kind == ast.LiteralTemplate {
			return l.lowerTemplate(p, n)
		}
		return l.lowerLiteral(n), nil

	case *ast.Identifier:
		b := p.Binding
		binding, ok := b.(*scope.Binding)
		if !ok {
			return nil, p.Raise("UnresolvedIdentifier", "identifier "+n.Name+" was not resolved")
		}
		switch binding.Kind {
		case scope.VARIABLE:
			return []Instr{PushLiteral(value.String(binding.CompiledName)), GetVar()}, nil
		case scope.MODULE_FUNCTION:
			return []Instr{PushFn("", binding.Name, "")}, nil
		case scope.IMPORTED_FUNCTION:
			return []Instr{PushFn(binding.Package, binding.Name, binding.Semver)}, nil
		default:
			return nil, p.Raise("CompilationError", "identifier has unknown binding kind")
		}

	case *ast.BinaryExpression:
		return l.lowerBinary(p, n)

	case *ast.UnaryExpression:
		argPath := p.Get("Argument", n.Argument)
		arg, err := l.lowerExpr(argPath, n.Argument)
		if err != nil {
			return nil, err
		}
		op := bytecode.OpMinus
		if n.Operator == ast.UnaryNot {
			op = bytecode.OpNot
		}
		return append(arg, Asm(bytecode.UNOP, int32(op))), nil

	case *ast.CallExpression:
		return l.lowerCall(p, n)

	case *ast.MemberExpression:
		return l.lowerMemberGet(p, n)

	case *ast.ArrayExpression:
		return l.lowerArray(p, n)

	case *ast.ObjectExpression:
		return l.lowerObject(p, n)

	case *ast.AssignmentExpression:
		return l.lowerAssignment(p, n)

	default:
		return nil, p.Raise("CompilationError", "unsupported expression node")
	}
}

func (l *lowerer) lowerLiteral(n *ast.Literal) []Instr {
	switch n.Kind {
	case ast.LiteralNull:
		return []Instr{PushLiteral(value.Null{})}
	case ast.LiteralBool:
		return []Instr{PushLiteral(value.Bool(n.Bool))}
	case ast.LiteralInt:
		return []Instr{PushLiteral(value.Int64(n.Int))}
	case ast.LiteralFloat:
		return []Instr{PushLiteral(value.Double(n.Float))}
	case ast.LiteralString:
		return []Instr{PushLiteral(value.String(n.Str))}
	default:
		return []Instr{PushLiteral(value.Null{})}
	}
}

// lowerTemplate concatenates a template literal's parts with STRING ADD,
// casting each non-literal-string part through the string() native first.
func (l *lowerer) lowerTemplate(p *path.Path, n *ast.Literal) ([]Instr, error) {
	out := []Instr{PushLiteral(value.String(""))}
	for i, part := range n.Parts {
		if lit, ok := part.(*ast.Literal); ok && lit.Kind == ast.LiteralString {
			out = append(out, PushLiteral(value.String(lit.Str)))
		} else {
			partPath := p.Get("Parts", part, i)
			instrs, err := l.lowerExpr(partPath, part)
			if err != nil {
				return nil, err
			}
			out = append(out, instrs...)
			out = append(out, PushLiteral(value.Int64(1)), PushLiteral(value.NewNative("string")), Asm(bytecode.CALL, 0))
		}
		out = append(out, Asm(bytecode.BINOP, int32(bytecode.OpAdd)))
	}
	return out, nil
}

// binaryOpTable maps the primitive source operators directly onto a
// BINOP/UNOP sequence; negated operators (!=, >, >=) are synthesized from
// it below 
var binaryOpTable = map[ast.BinaryOperator]bytecode.BinaryOp{
	ast.OpAdd: bytecode.OpAdd,
	ast.OpSub: bytecode.OpSub,
	ast.OpMul: bytecode.OpMul,
	ast.OpDiv: bytecode.OpDiv,
	ast.OpMod: bytecode.OpMod,
	ast.OpPow: bytecode.OpPow,
	ast.OpAnd: bytecode.OpAnd,
	ast.OpOr:  bytecode.OpOr,
	ast.OpEq:  bytecode.OpEq,
	ast.OpLt:  bytecode.OpLt,
	ast.OpLe:  bytecode.OpLe,
}

func (l *lowerer) lowerBinary(p *path.Path, n *ast.BinaryExpression) ([]Instr, error) {
	leftPath := p.Get("Left", n.Left)
	left, err := l.lowerExpr(leftPath, n.Left)
	if err != nil {
		return nil, err
	}
	rightPath := p.Get("Right", n.Right)
	right, err := l.lowerExpr(rightPath, n.Right)
	if err != nil {
		return nil, err
	}
	out := append(append([]Instr{}, left...), right...)

	switch n.Operator {
	case ast.OpNe:
		// != is EQ followed by NOT.
		out = append(out, Asm(bytecode.BINOP, int32(bytecode.OpEq)), Asm(bytecode.UNOP, int32(bytecode.OpNot)))
		return out, nil
	case ast.OpGt:
		// a > b  ==  !(a <= b)
		out = append(out, Asm(bytecode.BINOP, int32(bytecode.OpLe)), Asm(bytecode.UNOP, int32(bytecode.OpNot)))
		return out, nil
	case ast.OpGe:
		// a >= b  ==  !(a < b)
		out = append(out, Asm(bytecode.BINOP, int32(bytecode.OpLt)), Asm(bytecode.UNOP, int32(bytecode.OpNot)))
		return out, nil
	}

	op, ok := binaryOpTable[n.Operator]
	if !ok {
		return nil, p.Raise("CompilationError", "unknown binary operator")
	}
	out = append(out, Asm(bytecode.BINOP, int32(op)))
	return out, nil
}

func (l *lowerer) lowerCall(p *path.Path, n *ast.CallExpression) ([]Instr, error) {
	var out []Instr
	for i, arg := range n.Arguments {
		argPath := p.Get("Arguments", arg, i)
		instrs, err := l.lowerExpr(argPath, arg)
		if err != nil {
			return nil, err
		}
		out = append(out, instrs...)
	}
	out = append(out, PushLiteral(value.Int64(int64(len(n.Arguments)))))

	calleePath := p.Get("Callee", n.Callee)
	callee, err := l.lowerExpr(calleePath, n.Callee)
	if err != nil {
		return nil, err
	}
	out = append(out, callee...)
	out = append(out, Asm(bytecode.CALL, 0))
	return out, nil
}

// lowerMemberGet lowers `obj.prop`/`obj[prop]` to a CALL against list_get
// or map_get. Since the source language doesn't statically distinguish
// which container a MemberExpression indexes, the non-computed
// (`obj.prop`) form always targets map_get (property access implies a
// MAP-shaped record); the computed (`obj[prop]`) form always targets
// list_get (index access implies a LIST).
func (l *lowerer) lowerMemberGet(p *path.Path, n *ast.MemberExpression) ([]Instr, error) {
	objPath := p.Get("Object", n.Object)
	obj, err := l.lowerExpr(objPath, n.Object)
	if err != nil {
		return nil, err
	}

	var key []Instr
	native := "list_get"
	if !n.Computed {
		native = "map_get"
		ident, ok := n.Property.(*ast.Identifier)
		if !ok {
			return nil, p.Raise("CompilationError", "non-computed member property must be an identifier")
		}
		key = []Instr{PushLiteral(value.String(ident.Name))}
	} else {
		native = "list_get"
		propPath := p.Get("Property", n.Property)
		instrs, err := l.lowerExpr(propPath, n.Property)
		if err != nil {
			return nil, err
		}
		key = instrs
	}

	out := append(append([]Instr{}, obj...), key...)
	out = append(out, PushLiteral(value.Int64(2)), PushLiteral(value.NewNative(native)), Asm(bytecode.CALL, 0))
	return out, nil
}

// lowerArray builds the LIST at runtime by folding list_append over a
// literal empty LIST, since there is no bulk-construct opcode.
func (l *lowerer) lowerArray(p *path.Path, n *ast.ArrayExpression) ([]Instr, error) {
	out := []Instr{PushLiteral(value.NewList())}
	for i, el := range n.Elements {
		elPath := p.Get("Elements", el, i)
		instrs, err := l.lowerExpr(elPath, el)
		if err != nil {
			return nil, err
		}
		out = append(out, instrs...)
		out = append(out, PushLiteral(value.Int64(2)), PushLiteral(value.NewNative("list_append")), Asm(bytecode.CALL, 0))
	}
	return out, nil
}

func (l *lowerer) lowerObject(p *path.Path, n *ast.ObjectExpression) ([]Instr, error) {
	out := []Instr{PushLiteral(value.NewMap())}
	for i, prop := range n.Properties {
		propPath := p.Get("Properties", prop, i)
		keyPath := propPath.Get("Key", prop.Key)
		key, err := l.lowerExpr(keyPath, prop.Key)
		if err != nil {
			return nil, err
		}
		valPath := propPath.Get("Value", prop.Value)
		val, err := l.lowerExpr(valPath, prop.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, key...)
		out = append(out, val...)
		out = append(out, PushLiteral(value.Int64(3)), PushLiteral(value.NewNative("map_set")), Asm(bytecode.CALL, 0))
	}
	return out, nil
}

func (l *lowerer) lowerAssignment(p *path.Path, n *ast.AssignmentExpression) ([]Instr, error) {
	rightPath := p.Get("Right", n.Right)
	right, err := l.lowerExpr(rightPath, n.Right)
	if err != nil {
		return nil, err
	}
	out := append([]Instr{}, right...)
	out = append(out, Asm(bytecode.DUP, 0))

	leftPath := p.Get("Left", n.Left)
	switch left := n.Left.(type) {
	case *ast.Identifier:
		instrs, err := l.compilePattern(leftPath, left)
		if err != nil {
			return nil, err
		}
		out = append(out, instrs...)
	case *ast.MemberExpression:
		instrs, err := l.lowerMemberAssign(leftPath, left)
		if err != nil {
			return nil, err
		}
		out = append(out, instrs...)
	default:
		instrs, err := l.compilePattern(leftPath, n.Left)
		if err != nil {
			return nil, err
		}
		out = append(out, instrs...)
	}
	return out, nil
}

// lowerMemberAssign lowers `obj.prop = v` / `obj[idx] = v` when the
// assignment's DUP'd value is already on top of the stack: it computes
// the updated container via map_set/list_set and binds it back to the
// object expression's own target (only a plain Identifier object is
// supported, matching this repo's record/array model of "containers are
// rebound by value, not mutated through arbitrary lvalue chains").
func (l *lowerer) lowerMemberAssign(p *path.Path, n *ast.MemberExpression) ([]Instr, error) {
	objIdent, ok := n.Object.(*ast.Identifier)
	if !ok {
		return nil, p.Raise("CompilationError", "assignment target must index a plain variable")
	}
	objPath := p.Get("Object", n.Object)
	obj, err := l.lowerExpr(objPath, n.Object)
	if err != nil {
		return nil, err
	}

	var key []Instr
	native := "list_set"
	if !n.Computed {
		native = "map_set"
		ident, ok := n.Property.(*ast.Identifier)
		if !ok {
			return nil, p.Raise("CompilationError", "non-computed member property must be an identifier")
		}
		key = []Instr{PushLiteral(value.String(ident.Name))}
	} else {
		propPath := p.Get("Property", n.Property)
		instrs, err := l.lowerExpr(propPath, n.Property)
		if err != nil {
			return nil, err
		}
		key = instrs
	}

	b, found := l.localLookup(objPath, objIdent.Name)
	if !found {
		return nil, p.Raise("UnresolvedIdentifier", "unbound assignment target "+objIdent.Name)
	}

	// Stack on entry (bottom -> top): value, obj, key. ROLL -2 pulls
	// value (two below the top) back onto the top, leaving
	// (obj, key, value) in the order the setter call expects.
	result := append([]Instr{}, obj...)
	result = append(result, key...)
	result = append(result, Asm(bytecode.ROLL, -2))
	result = append(result, PushLiteral(value.Int64(3)), PushLiteral(value.NewNative(native)), Asm(bytecode.CALL, 0))
	result = append(result, PushLiteral(value.String(b.CompiledName)), SetVar())
	return result, nil
}
