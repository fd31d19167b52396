package vm

import (
	"testing"

	"workflowasm/value"
)

func TestCallRejectsNonCallableTarget(t *testing.T) {
	cfg := newTestConfig()
	cfg.constants["main"] = []value.Value{value.Int64(7)}
	cfg.functions["main"] = []Instruction{
		{Op: PUSHINT, Arg: 0},
		{Op: PUSHK, Arg: 0}, // not a CALLABLE
		{Op: OP_CALL, Arg: int32(CallNormal)},
		{Op: OP_RETURN},
	}
	s := NewState(cfg, "main")
	result, err := s.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	status, ok := AsStatus(result.Error)
	if !ok || status.Code != INVALID_ARGUMENT {
		t.Fatalf("result.Error = %v, want INVALID_ARGUMENT", result.Error)
	}
}

func TestCallMissingArgsIsInvalidArgument(t *testing.T) {
	cfg := newTestConfig()
	cfg.constants["main"] = []value.Value{value.NewNative("noop")}
	cfg.natives["noop"] = NativeFunc(func(_ *State, _ []value.Value) (value.Value, *Status) {
		return value.Null{}, nil
	})
	cfg.functions["main"] = []Instruction{
		{Op: PUSHINT, Arg: 3}, // claims 3 args, none pushed
		{Op: PUSHK, Arg: 0},
		{Op: OP_CALL, Arg: int32(CallNormal)},
		{Op: OP_RETURN},
	}
	s := NewState(cfg, "main")
	result, err := s.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	status, ok := AsStatus(result.Error)
	if !ok || status.Code != INVALID_ARGUMENT {
		t.Fatalf("result.Error = %v, want INVALID_ARGUMENT", result.Error)
	}
}

func TestNativePanicTranslatesToInternal(t *testing.T) {
	cfg := newTestConfig()
	cfg.natives["boom"] = NativeFunc(func(_ *State, _ []value.Value) (value.Value, *Status) {
		panic("kaboom")
	})
	cfg.constants["main"] = []value.Value{value.NewNative("boom")}
	cfg.functions["main"] = []Instruction{
		{Op: PUSHINT, Arg: 0},
		{Op: PUSHK, Arg: 0},
		{Op: OP_CALL, Arg: int32(CallNormal)},
		{Op: OP_RETURN},
	}
	s := NewState(cfg, "main")
	result, err := s.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	status, ok := AsStatus(result.Error)
	if !ok || status.Code != INTERNAL {
		t.Fatalf("result.Error = %v, want INTERNAL", result.Error)
	}
}

func TestCallStackDepthLimitIsEnforced(t *testing.T) {
	cfg := newTestConfig()
	cfg.maxDepth = 2
	cfg.constants["recurse"] = []value.Value{value.NewFunction("recurse")}
	cfg.functions["recurse"] = []Instruction{
		{Op: PUSHINT, Arg: 0},
		{Op: PUSHK, Arg: 0},
		{Op: OP_CALL, Arg: int32(CallNormal)},
		{Op: OP_RETURN},
	}
	cfg.constants["main"] = cfg.constants["recurse"]
	cfg.functions["main"] = cfg.functions["recurse"]

	s := NewState(cfg, "main")
	result, err := s.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	status, ok := AsStatus(result.Error)
	if !ok || status.Code != INTERNAL {
		t.Fatalf("result.Error = %v, want INTERNAL (stack depth exceeded)", result.Error)
	}
}

func TestUnknownNativeIdIsInternal(t *testing.T) {
	cfg := newTestConfig()
	cfg.constants["main"] = []value.Value{value.NewNative("missing")}
	cfg.functions["main"] = []Instruction{
		{Op: PUSHINT, Arg: 0},
		{Op: PUSHK, Arg: 0},
		{Op: OP_CALL, Arg: int32(CallNormal)},
		{Op: OP_RETURN},
	}
	s := NewState(cfg, "main")
	result, err := s.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	status, ok := AsStatus(result.Error)
	if !ok || status.Code != INTERNAL {
		t.Fatalf("result.Error = %v, want INTERNAL", result.Error)
	}
}
