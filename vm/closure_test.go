package vm

import (
	"testing"

	"workflowasm/value"
)

// newCounterConfig builds a config whose "counter" function increments
// and returns the value in its upvalue 0 cell (GETUPVAL/ADD/SETUPVAL/
// RETURN), plus an alloc_cell native; a closure over one cell therefore
// mutates that same cell across separate call frames. Each test supplies
// its own main.
func newCounterConfig(t *testing.T) *testConfig {
	t.Helper()
	cfg := newTestConfig()
	cfg.natives["alloc_cell"] = NativeFunc(func(s *State, args []value.Value) (value.Value, *Status) {
		id := s.Heap.Alloc(args[0])
		return value.Int64(id), nil
	})
	cfg.functions["counter"] = []Instruction{
		{Op: GETUPVAL, Arg: 0},
		{Op: PUSHINT, Arg: 1},
		{Op: BINOP, Arg: int32(OpAdd)},
		{Op: DUP, Arg: 0},
		{Op: SETUPVAL, Arg: 0},
		{Op: OP_RETURN},
	}
	cfg.constants["main"] = []value.Value{
		value.NewNative("alloc_cell"),
		value.NewFunction("counter"),
		value.String("counter"),
	}
	return cfg
}

func TestClosureCapturesHeapCellAcrossCalls(t *testing.T) {
	cfg := newCounterConfig(t)
	cfg.functions["main"] = []Instruction{
		{Op: PUSHINT, Arg: 5}, // initial cell value
		{Op: PUSHINT, Arg: 1}, // argcount
		{Op: PUSHK, Arg: 0},   // alloc_cell native
		{Op: OP_CALL, Arg: int32(CallNormal)},
		// stack: [cellID]
		{Op: PUSHK, Arg: 1}, // counter function
		{Op: MAKECLOSURE, Arg: 1},
		// stack: [closure]
		{Op: PUSHK, Arg: 2}, // "counter"
		{Op: SETVAR},
		// first call
		{Op: PUSHINT, Arg: 0},
		{Op: PUSHK, Arg: 2},
		{Op: GETVAR},
		{Op: OP_CALL, Arg: int32(CallNormal)},
		{Op: POP, Arg: 1}, // discard first result (6)
		// second call proves the cell mutation persisted
		{Op: PUSHINT, Arg: 0},
		{Op: PUSHK, Arg: 2},
		{Op: GETVAR},
		{Op: OP_CALL, Arg: int32(CallNormal)},
		{Op: OP_RETURN},
	}

	s := NewState(cfg, "main")
	result, err := s.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Error != nil {
		t.Fatalf("unexpected error result: %v", result.Error)
	}
	if result.Value != value.Int64(7) {
		t.Fatalf("result = %v, want 7 (5 -> 6 -> 7 across two calls)", result.Value)
	}
}

func TestMakeClosureRejectsNonFunctionCallable(t *testing.T) {
	cfg := newTestConfig()
	cfg.constants["main"] = []value.Value{value.NewNative("whatever")}
	cfg.functions["main"] = []Instruction{
		{Op: PUSHK, Arg: 0},
		{Op: MAKECLOSURE, Arg: 0},
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

func TestMakeClosureRejectsNonInt64Upvalue(t *testing.T) {
	cfg := newTestConfig()
	cfg.functions["fn"] = []Instruction{{Op: PUSHNULL}, {Op: OP_RETURN}}
	cfg.constants["main"] = []value.Value{value.String("not an id"), value.NewFunction("fn")}
	cfg.functions["main"] = []Instruction{
		{Op: PUSHK, Arg: 0}, // bogus upvalue
		{Op: PUSHK, Arg: 1}, // function
		{Op: MAKECLOSURE, Arg: 1},
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

func TestMakeClosureRejectsInsufficientStack(t *testing.T) {
	cfg := newTestConfig()
	cfg.functions["fn"] = []Instruction{{Op: PUSHNULL}, {Op: OP_RETURN}}
	cfg.constants["main"] = []value.Value{value.NewFunction("fn")}
	cfg.functions["main"] = []Instruction{
		{Op: PUSHK, Arg: 0}, // function only, no upvalue ids
		{Op: MAKECLOSURE, Arg: 2},
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

func TestGetUpvalIndexOutOfRange(t *testing.T) {
	cfg := newTestConfig()
	// fn's own body reads GETUPVAL 0 although its closure captures nothing.
	cfg.functions["fn"] = []Instruction{
		{Op: GETUPVAL, Arg: 0},
		{Op: OP_RETURN},
	}
	cfg.constants["main"] = []value.Value{value.NewFunction("fn")}
	cfg.functions["main"] = []Instruction{
		{Op: PUSHINT, Arg: 0},     // argcount, pushed first so it ends up below the callable
		{Op: PUSHK, Arg: 0},       // function
		{Op: MAKECLOSURE, Arg: 0}, // closure with zero upvalues, replaces the function on top
		{Op: OP_CALL, Arg: int32(CallNormal)},
		{Op: OP_RETURN},
	}

	s := NewState(cfg, "main")
	result, err := s.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	status, ok := AsStatus(result.Error)
	if !ok || status.Code != OUT_OF_RANGE {
		t.Fatalf("result.Error = %v, want OUT_OF_RANGE", result.Error)
	}
}

func TestSetUpvalIndexOutOfRange(t *testing.T) {
	cfg := newTestConfig()
	cfg.functions["fn"] = []Instruction{
		{Op: PUSHINT, Arg: 7},
		{Op: SETUPVAL, Arg: 0},
		{Op: PUSHNULL},
		{Op: OP_RETURN},
	}
	cfg.constants["main"] = []value.Value{value.NewFunction("fn")}
	cfg.functions["main"] = []Instruction{
		{Op: PUSHINT, Arg: 0},
		{Op: PUSHK, Arg: 0},
		{Op: MAKECLOSURE, Arg: 0},
		{Op: OP_CALL, Arg: int32(CallNormal)},
		{Op: OP_RETURN},
	}

	s := NewState(cfg, "main")
	result, err := s.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	status, ok := AsStatus(result.Error)
	if !ok || status.Code != OUT_OF_RANGE {
		t.Fatalf("result.Error = %v, want OUT_OF_RANGE", result.Error)
	}
}

func TestGetUpvalMissingCellIsOutOfRange(t *testing.T) {
	cfg := newTestConfig()
	cfg.functions["reader"] = []Instruction{
		{Op: GETUPVAL, Arg: 0},
		{Op: OP_RETURN},
	}
	s := NewState(cfg, "main")
	id := s.Heap.Alloc(value.Int64(1))
	s.Heap.DecRef(id) // disposes the cell (RefCount 1 -> 0)

	cfg.constants["main"] = []value.Value{value.NewClosure("reader", nil, []int64{id})}
	cfg.functions["main"] = []Instruction{
		{Op: PUSHINT, Arg: 0},
		{Op: PUSHK, Arg: 0},
		{Op: OP_CALL, Arg: int32(CallNormal)},
		{Op: OP_RETURN},
	}

	result, err := s.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	status, ok := AsStatus(result.Error)
	if !ok || status.Code != OUT_OF_RANGE {
		t.Fatalf("result.Error = %v, want OUT_OF_RANGE", result.Error)
	}
}
