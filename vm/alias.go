package vm

import "workflowasm/bytecode"

// Instruction, OpCode and friends are re-exported from bytecode so callers
// that only touch the VM (not the assembler or object files) need not
// import bytecode directly.
type (
	Instruction = bytecode.Instruction
	OpCode      = bytecode.OpCode
	UnaryOp     = bytecode.UnaryOp
	BinaryOp    = bytecode.BinaryOp
	CallMode    = bytecode.CallMode
	Function    = bytecode.Function
)

const (
	NOOP      = bytecode.NOOP
	PUSHNULL  = bytecode.PUSHNULL
	PUSHINT   = bytecode.PUSHINT
	PUSHDEPTH = bytecode.PUSHDEPTH
	PUSHK     = bytecode.PUSHK
	DUP       = bytecode.DUP
	POP       = bytecode.POP
	ROLL      = bytecode.ROLL
	TEST      = bytecode.TEST
	JMP       = bytecode.JMP
	OP_CALL   = bytecode.CALL
	OP_RETURN = bytecode.RETURN
	OP_THROW  = bytecode.THROW
	UNOP      = bytecode.UNOP
	BINOP     = bytecode.BINOP
	SETVAR    = bytecode.SETVAR
	GETVAR    = bytecode.GETVAR

	MAKECLOSURE = bytecode.MAKECLOSURE
	GETUPVAL    = bytecode.GETUPVAL
	SETUPVAL    = bytecode.SETUPVAL

	OpMinus = bytecode.OpMinus
	OpNot   = bytecode.OpNot

	OpAdd = bytecode.OpAdd
	OpSub = bytecode.OpSub
	OpMul = bytecode.OpMul
	OpDiv = bytecode.OpDiv
	OpMod = bytecode.OpMod
	OpPow = bytecode.OpPow
	OpAnd = bytecode.OpAnd
	OpOr  = bytecode.OpOr
	OpEq  = bytecode.OpEq
	OpLt  = bytecode.OpLt
	OpLe  = bytecode.OpLe

	CallNormal = bytecode.CallNormal
	CallTry    = bytecode.CallTry
)
