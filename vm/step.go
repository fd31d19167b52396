package vm

import "workflowasm/value"

// Step advances the VM by one observable transition. It returns a
// non-nil error only for fatal implementer bugs (see errors.go); every
// script-level failure is communicated by terminating a frame with
// ReturnError, never by a Go error.
func (s *State) Step() error {
	if s.RunningStatus() == HALT {
		return errSteppedHalted
	}

	top := s.Top()
	if top.Terminated() {
		return s.handleTermination(top)
	}

	frame := s.ControlFrame()
	inst, ok := s.Config.GetInstruction(frame.FP, frame.IP)
	if !ok {
		frame.SetReturnError(statusf(OUT_OF_RANGE, "instruction pointer out of range"))
		return nil
	}

	return s.dispatch(frame, inst)
}

// handleTermination runs one pending deferred callable, or pops the
// terminated frame and propagates its result.
func (s *State) handleTermination(top *Frame) error {
	if c, ok := top.PopDeferred(); ok {
		ignore := NewControlFrame(IGNORE, calleeFP(c), nil)
		if c.Kind == value.NativeCallable {
			native, found := s.Config.GetNativeFunction(c.ID)
			if !found {
				ignore.SetReturnError(statusf(INTERNAL, "deferred native %q not found", c.ID))
			} else {
				result, status := safeCallNative(s, native, append([]value.Value(nil), c.BoundArgs...))
				if status != nil {
					ignore.SetReturnError(value.Message{TypeName: "Status", Payload: status})
				} else {
					ignore.SetReturnValue(result)
				}
			}
		} else {
			s.prepareCallFrame(ignore, c, nil)
		}
		s.pushFrame(ignore)
		return nil
	}

	if top.Type == MAIN {
		return errSteppedHalted
	}

	popped := s.popFrame()
	if len(s.CallStack) == 0 {
		return errPoppedMain
	}
	caller := s.ControlFrame()

	switch popped.Type {
	case CALL:
		if popped.ReturnError != nil {
			caller.SetReturnError(popped.ReturnError)
		} else {
			caller.Push(popped.ReturnValue)
		}
	case TRY:
		if popped.ReturnError != nil {
			caller.Push(value.Null{})
			caller.Push(popped.ReturnError)
		} else {
			caller.Push(popped.ReturnValue)
			caller.Push(value.Null{})
		}
	case IGNORE:
		if popped.ReturnError != nil {
			s.Config.OnIgnoredError(s, popped.ReturnError)
		}
	case PASSTHROUGH:
		if popped.ReturnError != nil {
			caller.SetReturnError(popped.ReturnError)
		} else {
			caller.SetReturnValue(popped.ReturnValue)
		}
	default:
		return errUnknownFrame
	}
	return nil
}

func calleeFP(c value.Callable) string { return c.ID }

// dispatch executes one non-terminated instruction on frame.
func (s *State) dispatch(frame *Frame, inst Instruction) error {
	switch inst.Op {
	case NOOP:
		frame.IP++
		return nil

	case PUSHNULL:
		frame.Push(value.Null{})
		frame.IP++
		return nil

	case PUSHINT:
		frame.Push(value.Int64(inst.Arg))
		frame.IP++
		return nil

	case PUSHDEPTH:
		frame.Push(value.Int64(frame.Depth()))
		frame.IP++
		return nil

	case PUSHK:
		k, ok := s.Config.GetConstant(frame.FP, int(inst.Arg))
		if !ok {
			frame.SetReturnError(statusf(OUT_OF_RANGE, "constant %d not found for %s", inst.Arg, frame.FP))
			return nil
		}
		frame.Push(k)
		frame.IP++
		return nil

	case DUP:
		v, ok := frame.At(int(inst.Arg))
		if !ok {
			frame.SetReturnError(statusf(OUT_OF_RANGE, "stack index %d out of range", inst.Arg))
			return nil
		}
		frame.Push(v)
		frame.IP++
		return nil

	case POP:
		n := int(inst.Arg)
		if frame.Depth() < n {
			frame.SetReturnError(statusf(OUT_OF_RANGE, "cannot pop %d values: depth is %d", n, frame.Depth()))
			return nil
		}
		frame.Stack = frame.Stack[:frame.Depth()-n]
		frame.IP++
		return nil

	case ROLL:
		v, ok := frame.At(int(inst.Arg))
		if !ok {
			frame.SetReturnError(statusf(OUT_OF_RANGE, "stack index %d out of range", inst.Arg))
			return nil
		}
		n := frame.Depth()
		pos := resolveIndex(int(inst.Arg), n)
		frame.Stack = append(frame.Stack[:pos], frame.Stack[pos+1:]...)
		frame.Push(v)
		frame.IP++
		return nil

	case TEST:
		v, ok := frame.Pop()
		if !ok {
			frame.SetReturnError(statusf(OUT_OF_RANGE, "TEST on empty stack"))
			return nil
		}
		truthy := value.Truthy(v)
		if truthy == (inst.Arg == 0) {
			frame.IP++
		} else {
			frame.IP += 2
		}
		return nil

	case JMP:
		frame.IP = int(inst.Arg)
		return nil

	case OP_CALL:
		return s.execCall(frame, CallMode(inst.Arg))

	case OP_RETURN:
		v, ok := frame.Pop()
		if !ok {
			v = value.Null{}
		}
		frame.SetReturnValue(v)
		return nil

	case OP_THROW:
		v, ok := frame.Pop()
		if !ok {
			v = value.Null{}
		}
		frame.SetReturnError(v)
		return nil

	case UNOP:
		return s.execUnop(frame, UnaryOp(inst.Arg))

	case BINOP:
		return s.execBinop(frame, BinaryOp(inst.Arg))

	case SETVAR:
		name, ok := frame.Pop()
		if !ok {
			frame.SetReturnError(statusf(OUT_OF_RANGE, "SETVAR missing name"))
			return nil
		}
		nameStr, ok := name.(value.String)
		if !ok {
			frame.SetReturnError(statusf(INVALID_ARGUMENT, "SETVAR name must be STRING"))
			return nil
		}
		v, ok := frame.Pop()
		if !ok {
			frame.SetReturnError(statusf(OUT_OF_RANGE, "SETVAR missing value"))
			return nil
		}
		frame.Locals[string(nameStr)] = v
		frame.IP++
		return nil

	case GETVAR:
		name, ok := frame.Pop()
		if !ok {
			frame.SetReturnError(statusf(OUT_OF_RANGE, "GETVAR missing name"))
			return nil
		}
		nameStr, ok := name.(value.String)
		if !ok {
			frame.SetReturnError(statusf(INVALID_ARGUMENT, "GETVAR name must be STRING"))
			return nil
		}
		v, ok := frame.Locals[string(nameStr)]
		if !ok {
			frame.SetReturnError(statusf(OUT_OF_RANGE, "unbound variable %q", string(nameStr)))
			return nil
		}
		frame.Push(v)
		frame.IP++
		return nil

	case MAKECLOSURE:
		return s.execMakeClosure(frame, int(inst.Arg))

	case GETUPVAL:
		id, ok := frame.upvalueID(int(inst.Arg))
		if !ok {
			frame.SetReturnError(statusf(OUT_OF_RANGE, "upvalue index %d out of range", inst.Arg))
			return nil
		}
		v, ok := s.Heap.Get(id)
		if !ok {
			frame.SetReturnError(statusf(OUT_OF_RANGE, "heap cell %d not found", id))
			return nil
		}
		frame.Push(v)
		frame.IP++
		return nil

	case SETUPVAL:
		id, ok := frame.upvalueID(int(inst.Arg))
		if !ok {
			frame.SetReturnError(statusf(OUT_OF_RANGE, "upvalue index %d out of range", inst.Arg))
			return nil
		}
		v, ok := frame.Pop()
		if !ok {
			frame.SetReturnError(statusf(OUT_OF_RANGE, "SETUPVAL missing value"))
			return nil
		}
		if !s.Heap.Set(id, v) {
			frame.SetReturnError(statusf(OUT_OF_RANGE, "heap cell %d not found", id))
			return nil
		}
		frame.IP++
		return nil

	default:
		frame.SetReturnError(statusf(UNIMPLEMENTED, "unknown opcode %v", inst.Op))
		return nil
	}
}

// execMakeClosure implements MAKECLOSURE n: the value stack holds (top ->
// bottom) a FUNCTION callable naming the closure's body, then n heap cell
// IDs (topmost id last-captured, matching CALL's argument-popping order).
// It replaces all of that with a single CLOSURE callable over the same
// function id and upvalue IDs.
func (s *State) execMakeClosure(frame *Frame, n int) error {
	calleeVal, ok := frame.Pop()
	if !ok {
		frame.SetReturnError(statusf(INVALID_ARGUMENT, "MAKECLOSURE on empty stack (missing function)"))
		return nil
	}
	fn, ok := calleeVal.(value.Callable)
	if !ok || fn.Kind != value.FunctionCallable {
		frame.SetReturnError(statusf(INVALID_ARGUMENT, "MAKECLOSURE target is not a FUNCTION callable"))
		return nil
	}

	if frame.Depth() < n {
		frame.SetReturnError(statusf(INVALID_ARGUMENT, "MAKECLOSURE expected %d upvalues, only %d on stack", n, frame.Depth()))
		return nil
	}
	upvalues := make([]int64, n)
	for i := n - 1; i >= 0; i-- {
		v, _ := frame.Pop()
		id, ok := v.(value.Int64)
		if !ok {
			frame.SetReturnError(statusf(INVALID_ARGUMENT, "MAKECLOSURE upvalue must be an INT64 heap id"))
			return nil
		}
		upvalues[i] = int64(id)
	}

	frame.Push(value.NewClosure(fn.ID, nil, upvalues))
	frame.IP++
	return nil
}

// resolveIndex converts a stack index (0 is the top, positive counts up
// from the bottom, negative counts down from the top) into an absolute
// stack slot, assuming the index has already been validated
// via Frame.At.
func resolveIndex(i, depth int) int {
	if i == 0 {
		return depth - 1
	}
	if i > 0 {
		return i
	}
	return depth - 1 + i
}
