package vm

import (
	"math"

	"workflowasm/value"
)

// execUnop implements MINUS on INT64/DOUBLE and NOT on BOOL/NULL (NULL
// negates to true).
func (s *State) execUnop(frame *Frame, op UnaryOp) error {
	v, ok := frame.Pop()
	if !ok {
		frame.SetReturnError(statusf(INVALID_ARGUMENT, "UNOP on empty stack"))
		return nil
	}

	switch op {
	case OpMinus:
		switch n := v.(type) {
		case value.Int64:
			frame.Push(value.Int64(-uint64(n)))
		case value.Double:
			frame.Push(-n)
		default:
			frame.SetReturnError(statusf(INVALID_ARGUMENT, "MINUS requires INT64 or DOUBLE, got %s", v.Tag()))
		}
	case OpNot:
		switch v.(type) {
		case value.Bool, value.Null:
			frame.Push(value.Bool(!value.Truthy(v)))
		default:
			frame.SetReturnError(statusf(INVALID_ARGUMENT, "NOT requires BOOL or NULL, got %s", v.Tag()))
		}
	default:
		frame.SetReturnError(statusf(UNIMPLEMENTED, "unknown unary operator"))
	}
	frame.IP++
	return nil
}

// execBinop implements the binary operator table. On error the
// current frame is terminated via SetReturnError and IP is not advanced,
// mirroring the opcode table's "or throw" behavior for UNOP/BINOP.
func (s *State) execBinop(frame *Frame, op BinaryOp) error {
	b, ok := frame.Pop()
	if !ok {
		frame.SetReturnError(statusf(INVALID_ARGUMENT, "BINOP missing right operand"))
		return nil
	}
	a, ok := frame.Pop()
	if !ok {
		frame.SetReturnError(statusf(INVALID_ARGUMENT, "BINOP missing left operand"))
		return nil
	}

	switch op {
	case OpAnd:
		frame.Push(value.Bool(value.Truthy(a) && value.Truthy(b)))
		frame.IP++
		return nil
	case OpOr:
		frame.Push(value.Bool(value.Truthy(a) || value.Truthy(b)))
		frame.IP++
		return nil
	case OpEq:
		frame.Push(value.Bool(value.Equal(a, b)))
		frame.IP++
		return nil
	}

	if op == OpLt || op == OpLe {
		result, status := compare(a, b, op)
		if status != nil {
			frame.SetReturnError(value.Message{TypeName: "Status", Payload: status})
			return nil
		}
		frame.Push(value.Bool(result))
		frame.IP++
		return nil
	}

	result, status := arith(a, b, op)
	if status != nil {
		frame.SetReturnError(value.Message{TypeName: "Status", Payload: status})
		return nil
	}
	frame.Push(result)
	frame.IP++
	return nil
}

func typeMismatch(a, b value.Value) *Status {
	return &Status{Code: INVALID_ARGUMENT, Message: "operand type mismatch: " + a.Tag().String() + " vs " + b.Tag().String()}
}

func compare(a, b value.Value, op BinaryOp) (bool, *Status) {
	if a.Tag() != b.Tag() {
		return false, typeMismatch(a, b)
	}
	switch av := a.(type) {
	case value.Int64:
		bv := b.(value.Int64)
		if op == OpLt {
			return av < bv, nil
		}
		return av <= bv, nil
	case value.Uint64:
		bv := b.(value.Uint64)
		if op == OpLt {
			return av < bv, nil
		}
		return av <= bv, nil
	case value.Double:
		bv := b.(value.Double)
		if op == OpLt {
			return av < bv, nil
		}
		return av <= bv, nil
	case value.String:
		bv := b.(value.String)
		if op == OpLt {
			return av < bv, nil
		}
		return av <= bv, nil
	default:
		return false, &Status{Code: INVALID_ARGUMENT, Message: "relational operators require INT64/UINT64/DOUBLE/STRING, got " + a.Tag().String()}
	}
}

func arith(a, b value.Value, op BinaryOp) (value.Value, *Status) {
	if op == OpAdd {
		if as, ok := a.(value.String); ok {
			bs, ok := b.(value.String)
			if !ok {
				return nil, typeMismatch(a, b)
			}
			return as + bs, nil
		}
	}
	if _, ok := a.(value.String); ok {
		return nil, &Status{Code: INVALID_ARGUMENT, Message: "STRING only supports ADD"}
	}

	if a.Tag() != b.Tag() {
		return nil, typeMismatch(a, b)
	}

	switch av := a.(type) {
	case value.Int64:
		bv := b.(value.Int64)
		return arithInt64(av, bv, op)
	case value.Uint64:
		bv := b.(value.Uint64)
		return arithUint64(av, bv, op)
	case value.Double:
		bv := b.(value.Double)
		return arithDouble(av, bv, op)
	default:
		return nil, &Status{Code: INVALID_ARGUMENT, Message: "type " + a.Tag().String() + " does not support arithmetic"}
	}
}

func arithInt64(a, b value.Int64, op BinaryOp) (value.Value, *Status) {
	ua, ub := uint64(a), uint64(b)
	switch op {
	case OpAdd:
		return value.Int64(ua + ub), nil
	case OpSub:
		return value.Int64(ua - ub), nil
	case OpMul:
		return value.Int64(ua * ub), nil
	case OpDiv:
		if b == 0 {
			return nil, &Status{Code: INVALID_ARGUMENT, Message: "division by zero"}
		}
		return a / b, nil
	case OpMod:
		if b == 0 {
			return nil, &Status{Code: INVALID_ARGUMENT, Message: "division by zero"}
		}
		return a % b, nil
	case OpPow:
		return value.Int64(wrapPow(ua, ub)), nil
	default:
		return nil, &Status{Code: UNIMPLEMENTED, Message: "unknown arithmetic operator"}
	}
}

func arithUint64(a, b value.Uint64, op BinaryOp) (value.Value, *Status) {
	switch op {
	case OpAdd:
		return a + b, nil
	case OpSub:
		return a - b, nil
	case OpMul:
		return a * b, nil
	case OpDiv:
		if b == 0 {
			return nil, &Status{Code: INVALID_ARGUMENT, Message: "division by zero"}
		}
		return a / b, nil
	case OpMod:
		if b == 0 {
			return nil, &Status{Code: INVALID_ARGUMENT, Message: "division by zero"}
		}
		return a % b, nil
	case OpPow:
		return value.Uint64(wrapPow(uint64(a), uint64(b))), nil
	default:
		return nil, &Status{Code: UNIMPLEMENTED, Message: "unknown arithmetic operator"}
	}
}

func arithDouble(a, b value.Double, op BinaryOp) (value.Value, *Status) {
	switch op {
	case OpAdd:
		return a + b, nil
	case OpSub:
		return a - b, nil
	case OpMul:
		return a * b, nil
	case OpDiv:
		return value.Double(float64(a) / float64(b)), nil
	case OpMod:
		return value.Double(math.Mod(float64(a), float64(b))), nil
	case OpPow:
		return value.Double(math.Pow(float64(a), float64(b))), nil
	default:
		return nil, &Status{Code: UNIMPLEMENTED, Message: "unknown arithmetic operator"}
	}
}

// wrapPow computes base^exp modulo 2^64 via binary exponentiation, the
// same wrap-around rule every other integer arithmetic BINOP follows.
func wrapPow(base, exp uint64) uint64 {
	result := uint64(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}
