package bytecode

import "workflowasm/value"

// CallMode is the arg of a CALL instruction: it tells the interpreter what
// frame type to give the callee when it is a FUNCTION or CLOSURE.
type CallMode int32

const (
	CallNormal CallMode = iota // new frame is CALL-typed
	CallTry                    // new frame is TRY-typed
)

// Instruction is a single bytecode op plus its opcode-specific 32-bit arg.
type Instruction struct {
	Op  OpCode
	Arg int32
}

// Function is a compiled function: its instruction stream and constant
// table (the "Bytecode" data model).
type Function struct {
	Instructions []Instruction
	Constants    []value.Value
}
