// Package il implements the compiler back end's intermediate language: a
// flatter, label-addressed form between the AST and bytecode that the
// assembler (compiler/asm) turns into a bytecode.Function.
package il

import (
	"workflowasm/bytecode"
	"workflowasm/value"
)

// Op identifies an ILInstruction's kind.
type Op int

const (
	NOOP Op = iota
	// ASM emits exactly one bytecode instruction verbatim (the
	// WFASM/ASM op).
	ASM
	// PUSHLITERAL emits a push of Literal; the assembler chooses
	// PUSHNULL/PUSHINT fast paths or falls back to a ktable PUSHK.
	PUSHLITERAL
	// PUSHFN emits a push of a CALLABLE referring to a function.
	PUSHFN
	// LABEL marks the next bytecode address with Name.
	LABEL
	// GOTO emits a JMP to the address Name resolves to.
	GOTO
	// OPEN_SCOPE/CLOSE_SCOPE are reserved hooks for variable-lifetime
	// bookkeeping; the assembler currently emits nothing for them.
	OPEN_SCOPE
	CLOSE_SCOPE
	// SETVAR/GETVAR are paired with a preceding PUSHLITERAL(string) and
	// dispatch to the local-variable-table bytecode ops.
	SETVAR
	GETVAR
	// NORMALIZE_ARGS adjusts the stack to exactly N args at function
	// entry, optionally collecting the remainder into a LIST when Rest is
	// true.
	NORMALIZE_ARGS
)

// Instr is one IL instruction. Only the fields relevant to Op are
// meaningful; the rest are zero.
type Instr struct {
	Op Op

	// ASM
	BC  bytecode.OpCode
	Arg int32

	// PUSHLITERAL
	Literal value.Value

	// PUSHFN
	Package string
	Name    string
	Semver  string

	// LABEL / GOTO
	Label string

	// OPEN_SCOPE / CLOSE_SCOPE
	Prefix string

	// NORMALIZE_ARGS
	N    int
	Rest bool
}

func Asm(op bytecode.OpCode, arg int32) Instr { return Instr{Op: ASM, BC: op, Arg: arg} }
func PushLiteral(v value.Value) Instr         { return Instr{Op: PUSHLITERAL, Literal: v} }
func PushFn(pkg, name, semver string) Instr {
	return Instr{Op: PUSHFN, Package: pkg, Name: name, Semver: semver}
}
func Label(name string) Instr   { return Instr{Op: LABEL, Label: name} }
func Goto(name string) Instr    { return Instr{Op: GOTO, Label: name} }
func SetVar() Instr             { return Instr{Op: SETVAR} }
func GetVar() Instr             { return Instr{Op: GETVAR} }
func OpenScope(prefix string) Instr  { return Instr{Op: OPEN_SCOPE, Prefix: prefix} }
func CloseScope(prefix string) Instr { return Instr{Op: CLOSE_SCOPE, Prefix: prefix} }
func NormalizeArgs(n int, rest bool) Instr {
	return Instr{Op: NORMALIZE_ARGS, N: n, Rest: rest}
}

// Function is one compiled function's IL stream.
type Function struct {
	Name  string
	Instrs []Instr
}

// Program is the IL for every function declared in a compilation unit.
type Program struct {
	Package   string
	Functions []Function
}
