package bytecode_test

import (
	"testing"

	"workflowasm/bytecode"
)

func TestOpCodeStringCoversTheWholeTable(t *testing.T) {
	cases := map[bytecode.OpCode]string{
		bytecode.NOOP:      "NOOP",
		bytecode.PUSHNULL:  "PUSHNULL",
		bytecode.PUSHINT:   "PUSHINT",
		bytecode.PUSHDEPTH: "PUSHDEPTH",
		bytecode.PUSHK:     "PUSHK",
		bytecode.DUP:       "DUP",
		bytecode.POP:       "POP",
		bytecode.ROLL:      "ROLL",
		bytecode.TEST:      "TEST",
		bytecode.JMP:       "JMP",
		bytecode.CALL:      "CALL",
		bytecode.RETURN:    "RETURN",
		bytecode.THROW:     "THROW",
		bytecode.UNOP:      "UNOP",
		bytecode.BINOP:     "BINOP",
		bytecode.SETVAR:      "SETVAR",
		bytecode.GETVAR:      "GETVAR",
		bytecode.MAKECLOSURE: "MAKECLOSURE",
		bytecode.GETUPVAL:    "GETUPVAL",
		bytecode.SETUPVAL:    "SETUPVAL",
	}
	for op, want := range cases {
		if got := op.String(); got != want {
			t.Errorf("OpCode(%d).String() = %q, want %q", op, got, want)
		}
	}
}

func TestOpCodeStringUnknown(t *testing.T) {
	unknown := bytecode.OpCode(255)
	if got := unknown.String(); got != "UNKNOWN" {
		t.Errorf("OpCode(255).String() = %q, want %q", got, "UNKNOWN")
	}
}

func TestBinaryOpStringOnlyCoversPrimitiveOperators(t *testing.T) {
	cases := map[bytecode.BinaryOp]string{
		bytecode.OpAdd: "ADD",
		bytecode.OpSub: "SUB",
		bytecode.OpMul: "MUL",
		bytecode.OpDiv: "DIV",
		bytecode.OpMod: "MOD",
		bytecode.OpPow: "POW",
		bytecode.OpAnd: "AND",
		bytecode.OpOr:  "OR",
		bytecode.OpEq:  "EQ",
		bytecode.OpLt:  "LT",
		bytecode.OpLe:  "LE",
	}
	for op, want := range cases {
		if got := op.String(); got != want {
			t.Errorf("BinaryOp(%d).String() = %q, want %q", op, got, want)
		}
	}
}

func TestBinaryOpStringUnknown(t *testing.T) {
	unknown := bytecode.BinaryOp(99)
	if got := unknown.String(); got != "?" {
		t.Errorf("BinaryOp(99).String() = %q, want %q", got, "?")
	}
}
