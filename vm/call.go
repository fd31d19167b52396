package vm

import "workflowasm/value"

// execCall implements the call protocol. The value stack at entry must
// hold (top -> bottom): callable, argcount, arg_{n-1}, ..., arg_0.
func (s *State) execCall(frame *Frame, mode CallMode) error {
	calleeVal, ok := frame.Pop()
	if !ok {
		frame.SetReturnError(statusf(INVALID_ARGUMENT, "CALL on empty stack (missing callable)"))
		return nil
	}
	callable, ok := calleeVal.(value.Callable)
	if !ok {
		frame.SetReturnError(statusf(INVALID_ARGUMENT, "CALL target is not a CALLABLE"))
		return nil
	}

	countVal, ok := frame.Pop()
	if !ok {
		frame.SetReturnError(statusf(INVALID_ARGUMENT, "CALL missing argcount"))
		return nil
	}
	argc, ok := value.CoerceArgCount(countVal)
	if !ok {
		frame.SetReturnError(statusf(INVALID_ARGUMENT, "CALL argcount is not a non-negative integer"))
		return nil
	}

	if frame.Depth() < int(argc) {
		frame.SetReturnError(statusf(INVALID_ARGUMENT, "CALL expected %d args, only %d on stack", argc, frame.Depth()))
		return nil
	}
	args := make([]value.Value, argc)
	for i := int(argc) - 1; i >= 0; i-- {
		v, _ := frame.Pop()
		args[i] = v
	}

	// Return lands on the next instruction.
	frame.IP++

	switch callable.Kind {
	case value.NativeCallable:
		return s.callNative(frame, callable, args)
	case value.FunctionCallable, value.ClosureCallable:
		return s.callScript(frame, callable, args, mode)
	default:
		frame.SetReturnError(statusf(INTERNAL, "callable has unknown kind"))
		return nil
	}
}

func (s *State) callNative(frame *Frame, callable value.Callable, args []value.Value) error {
	native, ok := s.Config.GetNativeFunction(callable.ID)
	if !ok {
		frame.SetReturnError(statusf(INTERNAL, "native %q not found", callable.ID))
		return nil
	}

	result, status := safeCallNative(s, native, args)
	if status != nil {
		frame.SetReturnError(value.Message{TypeName: "Status", Payload: status})
		return nil
	}
	frame.Push(result)
	return nil
}

// safeCallNative invokes a Native and translates any host-level panic to
// INTERNAL: a native must not raise host exceptions into the VM.
func safeCallNative(s *State, native Native, args []value.Value) (result value.Value, status *Status) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			status = &Status{Code: INTERNAL, Message: "native panicked"}
		}
	}()
	return native.Call(s, args)
}

func (s *State) callScript(frame *Frame, callable value.Callable, args []value.Value, mode CallMode) error {
	if len(s.CallStack)+1 > s.Config.MaxCallStackDepth() {
		frame.SetReturnError(statusf(INTERNAL, "call stack depth exceeds limit"))
		return nil
	}

	frameType := CALL
	if mode == CallTry {
		frameType = TRY
	}

	initial := args
	if callable.Kind == value.ClosureCallable {
		initial = append(append([]value.Value(nil), args...), callable.BoundArgs...)
	}
	newFrame := NewControlFrame(frameType, callable.ID, initial)
	if callable.Kind == value.ClosureCallable {
		newFrame.Upvalues = append([]int64(nil), callable.Upvalues...)
	}
	s.pushFrame(newFrame)
	return nil
}

// prepareCallFrame is used when constructing the IGNORE subframe for a
// deferred callable on frame termination: the deferred callable's bound
// args (for a closure) or an empty arg list (for a plain function/native
// reference) seed the new frame's stack.
func (s *State) prepareCallFrame(f *Frame, c value.Callable, extraArgs []value.Value) {
	initial := make([]value.Value, 0, len(extraArgs)+len(c.BoundArgs))
	initial = append(initial, extraArgs...)
	if c.Kind == value.ClosureCallable {
		initial = append(initial, c.BoundArgs...)
		f.Upvalues = append([]int64(nil), c.Upvalues...)
	}
	f.Stack = initial
}
