// Package asm turns compiler/il's label-addressed intermediate
// instructions into the flat, address-addressed bytecode.Function the VM
// executes: it resolves LABEL/GOTO pairs to absolute JMP targets, folds
// literals into each function's constant table, and picks the
// PUSHNULL/PUSHINT fast paths over a PUSHK lookup wherever an il.Instr's
// literal allows it. NORMALIZE_ARGS is synthesized directly as raw
// bytecode, since the instruction set has no dedicated arity-fixup op.
package asm

import (
	"math"

	"workflowasm/bytecode"
	"workflowasm/compiler/il"
	"workflowasm/value"
)

// AssembleError reports a problem turning IL into bytecode: an unresolved
// label, most commonly from a GOTO whose matching LABEL was dropped by a
// buggy lowering pass.
type AssembleError struct {
	Function string
	Details  string
}

func (e *AssembleError) Error() string {
	return "asm: " + e.Function + ": " + e.Details
}

// Assemble lowers one il.Function to a bytecode.Function.
func Assemble(fn il.Function) (*bytecode.Function, error) {
	a := &assembler{name: fn.Name, labels: make(map[string]int)}
	if err := a.emitAll(fn.Instrs); err != nil {
		return nil, err
	}
	for _, g := range a.pending {
		addr, ok := a.labels[g.label]
		if !ok {
			return nil, &AssembleError{Function: a.name, Details: "undefined label " + g.label}
		}
		a.out[g.addr].Arg = int32(addr)
	}
	return &bytecode.Function{Instructions: a.out, Constants: a.ktable}, nil
}

// AssembleProgram assembles every function in an il.Program into a
// name-keyed map suitable for an objectfile.ObjectFile.
func AssembleProgram(prog *il.Program) (map[string]*bytecode.Function, error) {
	out := make(map[string]*bytecode.Function, len(prog.Functions))
	for _, fn := range prog.Functions {
		bc, err := Assemble(fn)
		if err != nil {
			return nil, err
		}
		out[fn.Name] = bc
	}
	return out, nil
}

type assembler struct {
	name    string
	out     []bytecode.Instruction
	ktable  []value.Value
	labels  map[string]int
	pending []pendingGoto
}

// pendingGoto records a JMP instruction (at index addr in a.out) whose Arg
// still needs patching once every LABEL in the function has been seen.
type pendingGoto struct {
	addr  int
	label string
}

func (a *assembler) emitAll(instrs []il.Instr) error {
	for _, in := range instrs {
		switch in.Op {
		case il.NOOP, il.OPEN_SCOPE, il.CLOSE_SCOPE:
			// No bytecode; scope bookkeeping is purely a compile-time
			// naming device (each binding's compiled name already encodes
			// its scope via the Scope.Prefix mangling).

		case il.LABEL:
			a.labels[in.Label] = len(a.out)

		case il.GOTO:
			idx := len(a.out)
			a.out = append(a.out, bytecode.Instruction{Op: bytecode.JMP})
			a.pending = append(a.pending, pendingGoto{addr: idx, label: in.Label})

		case il.ASM:
			a.out = append(a.out, bytecode.Instruction{Op: in.BC, Arg: in.Arg})

		case il.PUSHLITERAL:
			a.emitPushLiteral(in.Literal)

		case il.PUSHFN:
			a.out = append(a.out, bytecode.Instruction{Op: bytecode.PUSHK, Arg: a.intern(functionValue(in))})

		case il.SETVAR:
			a.out = append(a.out, bytecode.Instruction{Op: bytecode.SETVAR})

		case il.GETVAR:
			a.out = append(a.out, bytecode.Instruction{Op: bytecode.GETVAR})

		case il.NORMALIZE_ARGS:
			a.emitNormalizeArgs(in)

		default:
			return &AssembleError{Function: a.name, Details: "unknown IL op"}
		}
	}
	return nil
}

// emitPushLiteral picks the size-saving PUSHNULL/PUSHINT fast paths when
// the literal allows it, otherwise interns it into the constant table
// and emits PUSHK. PUSHINT's arg is a 32-bit instruction
// operand, so only Int64 literals that fit in an int32 qualify; anything
// wider still round-trips correctly through the constant table.
func (a *assembler) emitPushLiteral(v value.Value) {
	switch lit := v.(type) {
	case value.Null:
		a.out = append(a.out, bytecode.Instruction{Op: bytecode.PUSHNULL})
		return
	case value.Int64:
		if int64(lit) >= math.MinInt32 && int64(lit) <= math.MaxInt32 {
			a.out = append(a.out, bytecode.Instruction{Op: bytecode.PUSHINT, Arg: int32(lit)})
			return
		}
	}
	a.out = append(a.out, bytecode.Instruction{Op: bytecode.PUSHK, Arg: a.intern(v)})
}

// intern dedups v into the constant table, returning its index.
func (a *assembler) intern(v value.Value) int32 {
	for i, k := range a.ktable {
		if value.Equal(k, v) {
			return int32(i)
		}
	}
	a.ktable = append(a.ktable, v)
	return int32(len(a.ktable) - 1)
}

// functionValue builds the CALLABLE constant a PUSHFN instruction pushes:
// a script function reference for a module-local function, or an imported
// one scoped by its package and the semver range it was bound at.
func functionValue(in il.Instr) value.Value {
	if in.Package == "" {
		return value.NewFunction(in.Name)
	}
	return value.NewFunction(in.Package + "@" + in.Semver + "/" + in.Name)
}

// restAccumulatorName is the Locals key NORMALIZE_ARGS uses to build up a
// rest parameter's LIST. It can never collide with a compiled source
// variable: every such name carries a Scope.Prefix of the form "$n$...",
// which always starts with '$', never '@'.
const restAccumulatorName = "@rest"

// emitNormalizeArgs adjusts the callee's value stack to exactly in.N
// fixed arguments: missing trailing arguments are padded with NULL, and
// extras are either dropped (no rest parameter) or collected into a LIST
// bound to the rest parameter.
//
// On entry the stack holds the actual call arguments bottom (arg 0) to
// top (arg k-1). Positive ROLL/stack indices address absolute
// bottom-relative positions, so once the first n slots are guaranteed
// present, position n always names the next not-yet-collected extra
// argument regardless of how many have already been rolled off.
func (a *assembler) emitNormalizeArgs(in il.Instr) {
	n := int32(in.N)

	padStart := len(a.out)
	a.out = append(a.out,
		bytecode.Instruction{Op: bytecode.PUSHDEPTH},
		bytecode.Instruction{Op: bytecode.PUSHINT, Arg: n},
		bytecode.Instruction{Op: bytecode.BINOP, Arg: int32(bytecode.OpLt)}, // depth < n
	)
	padTest := len(a.out)
	a.out = append(a.out,
		bytecode.Instruction{Op: bytecode.TEST, Arg: 1},
		bytecode.Instruction{Op: bytecode.JMP}, // -> padExit, patched below
		bytecode.Instruction{Op: bytecode.PUSHNULL},
		bytecode.Instruction{Op: bytecode.JMP, Arg: int32(padStart)},
	)
	a.out[padTest+1].Arg = int32(len(a.out))

	if !in.Rest {
		trimStart := len(a.out)
		a.out = append(a.out,
			bytecode.Instruction{Op: bytecode.PUSHINT, Arg: n + 1},
			bytecode.Instruction{Op: bytecode.PUSHDEPTH},
			bytecode.Instruction{Op: bytecode.BINOP, Arg: int32(bytecode.OpLt)}, // n+1 < depth+1, i.e. n < depth
		)
		trimTest := len(a.out)
		a.out = append(a.out,
			bytecode.Instruction{Op: bytecode.TEST, Arg: 1},
			bytecode.Instruction{Op: bytecode.JMP}, // -> trimExit
			bytecode.Instruction{Op: bytecode.POP, Arg: 1},
			bytecode.Instruction{Op: bytecode.JMP, Arg: int32(trimStart)},
		)
		a.out[trimTest+1].Arg = int32(len(a.out))
		return
	}

	restName := value.String(restAccumulatorName)
	a.out = append(a.out,
		bytecode.Instruction{Op: bytecode.PUSHK, Arg: a.intern(value.NewList())},
		bytecode.Instruction{Op: bytecode.PUSHK, Arg: a.intern(restName)},
		bytecode.Instruction{Op: bytecode.SETVAR},
	)

	collectStart := len(a.out)
	a.out = append(a.out,
		bytecode.Instruction{Op: bytecode.PUSHINT, Arg: n + 1},
		bytecode.Instruction{Op: bytecode.PUSHDEPTH},
		bytecode.Instruction{Op: bytecode.BINOP, Arg: int32(bytecode.OpLt)}, // n+1 < depth+1, i.e. n < depth
	)
	collectTest := len(a.out)
	a.out = append(a.out,
		bytecode.Instruction{Op: bytecode.TEST, Arg: 1},
		bytecode.Instruction{Op: bytecode.JMP}, // -> collectExit
	)
	a.out = append(a.out,
		// Pull the not-yet-collected extra nearest the fixed args
		// (always at absolute position n) to the top.
		bytecode.Instruction{Op: bytecode.ROLL, Arg: n},
		bytecode.Instruction{Op: bytecode.PUSHK, Arg: a.intern(restName)},
		bytecode.Instruction{Op: bytecode.GETVAR},
		// Stack: ..., extra, restList -> swap to (restList, extra), the
		// order list_append's (list, elem) signature expects.
		bytecode.Instruction{Op: bytecode.ROLL, Arg: -1},
		bytecode.Instruction{Op: bytecode.PUSHINT, Arg: 2},
		bytecode.Instruction{Op: bytecode.PUSHK, Arg: a.intern(value.NewNative("list_append"))},
		bytecode.Instruction{Op: bytecode.CALL},
		bytecode.Instruction{Op: bytecode.PUSHK, Arg: a.intern(restName)},
		bytecode.Instruction{Op: bytecode.SETVAR},
		bytecode.Instruction{Op: bytecode.JMP, Arg: int32(collectStart)},
	)
	a.out[collectTest+1].Arg = int32(len(a.out))

	a.out = append(a.out,
		bytecode.Instruction{Op: bytecode.PUSHK, Arg: a.intern(restName)},
		bytecode.Instruction{Op: bytecode.GETVAR},
	)
}
