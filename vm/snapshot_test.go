package vm

import (
	"bytes"
	"testing"

	"workflowasm/value"
)

// snapshotTestConfig builds a scenario with a not-yet-terminated TRY frame
// on top of MAIN, so EncodeSnapshot/DecodeSnapshot must round-trip a
// multi-frame call stack, not just the trivial single-MAIN-frame case.
func snapshotTestConfig() *testConfig {
	cfg := newTestConfig()
	cfg.functions["boom"] = []Instruction{
		{Op: PUSHNULL},
		{Op: OP_THROW},
	}
	cfg.constants["main"] = []value.Value{value.NewFunction("boom")}
	cfg.functions["main"] = []Instruction{
		{Op: PUSHINT, Arg: 0},
		{Op: PUSHK, Arg: 0},
		{Op: OP_CALL, Arg: int32(CallTry)},
		{Op: OP_RETURN},
	}
	return cfg
}

func TestSnapshotRoundTripsHeapAndCallStack(t *testing.T) {
	cfg := snapshotTestConfig()
	s := NewState(cfg, "main")

	// Step through PUSHINT, PUSHK, CALL so a TRY frame for "boom" is
	// pushed and left unterminated.
	for i := 0; i < 3; i++ {
		if err := s.Step(); err != nil {
			t.Fatalf("Step() #%d error = %v", i, err)
		}
	}
	if len(s.CallStack) != 2 {
		t.Fatalf("CallStack depth = %d, want 2 (main + boom)", len(s.CallStack))
	}
	if !s.Top().IsControlFrame() {
		t.Fatalf("pushed TRY frame is not recognized as a control frame")
	}

	cellID := s.Heap.Alloc(value.Int64(42))
	s.Top().PushDeferred(value.NewNative("cleanup"))
	s.CallStack[0].Locals["x"] = value.String("hello")
	s.CallStack[0].Upvalues = []int64{cellID}

	var buf bytes.Buffer
	if err := EncodeSnapshot(&buf, s); err != nil {
		t.Fatalf("EncodeSnapshot() error = %v", err)
	}

	restored, err := DecodeSnapshot(&buf, cfg)
	if err != nil {
		t.Fatalf("DecodeSnapshot() error = %v", err)
	}

	if restored.Heap.Len() != 1 {
		t.Fatalf("restored heap len = %d, want 1", restored.Heap.Len())
	}
	if v, ok := restored.Heap.Get(cellID); !ok || v != value.Int64(42) {
		t.Fatalf("restored heap cell %d = (%v, %v), want (42, true)", cellID, v, ok)
	}

	if len(restored.CallStack) != 2 {
		t.Fatalf("restored CallStack depth = %d, want 2", len(restored.CallStack))
	}
	main := restored.CallStack[0]
	if main.FP != "main" || main.IP != s.CallStack[0].IP {
		t.Fatalf("restored main frame = {FP:%q IP:%d}, want {FP:main IP:%d}", main.FP, main.IP, s.CallStack[0].IP)
	}
	if got, ok := main.Locals["x"]; !ok || got != value.String("hello") {
		t.Fatalf("restored main.Locals[x] = (%v, %v), want (hello, true)", got, ok)
	}
	if len(main.Upvalues) != 1 || main.Upvalues[0] != cellID {
		t.Fatalf("restored main.Upvalues = %v, want [%d]", main.Upvalues, cellID)
	}

	boom := restored.CallStack[1]
	if boom.Type != TRY || boom.FP != "boom" {
		t.Fatalf("restored boom frame = {Type:%v FP:%q}, want {Type:TRY FP:boom}", boom.Type, boom.FP)
	}
	if boom.Terminated() {
		t.Fatalf("restored boom frame should still be unterminated")
	}
	if !boom.IsControlFrame() {
		t.Fatalf("restored boom frame is not recognized as a control frame")
	}
	if len(boom.Deferred) != 1 || boom.Deferred[0].Kind != value.NativeCallable || boom.Deferred[0].ID != "cleanup" {
		t.Fatalf("restored boom.Deferred = %v, want [native(cleanup)]", boom.Deferred)
	}

	if restored.ControlFrame() != boom {
		t.Fatalf("restored ControlFrame() did not recompute to the topmost control frame")
	}
	if restored.RunningStatus() != RUN {
		t.Fatalf("restored RunningStatus() = %v, want RUN", restored.RunningStatus())
	}
}

func TestSnapshotRoundTripsTerminatedFrameWithError(t *testing.T) {
	cfg := newTestConfig()
	cfg.functions["main"] = []Instruction{{Op: PUSHNULL}, {Op: OP_THROW}}
	s := NewState(cfg, "main")
	if err := s.Step(); err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if err := s.Step(); err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if !s.Main().Terminated() {
		t.Fatalf("main frame should be terminated after THROW")
	}

	var buf bytes.Buffer
	if err := EncodeSnapshot(&buf, s); err != nil {
		t.Fatalf("EncodeSnapshot() error = %v", err)
	}
	restored, err := DecodeSnapshot(&buf, cfg)
	if err != nil {
		t.Fatalf("DecodeSnapshot() error = %v", err)
	}
	if !restored.Main().Terminated() {
		t.Fatalf("restored main frame should be terminated")
	}
	if _, isNull := restored.Main().ReturnError.(value.Null); !isNull {
		t.Fatalf("restored main.ReturnError = %v, want NULL", restored.Main().ReturnError)
	}
	if restored.RunningStatus() != HALT {
		t.Fatalf("restored RunningStatus() = %v, want HALT", restored.RunningStatus())
	}
}

func TestSnapshotRoundTripsListsMapsAndClosures(t *testing.T) {
	cfg := newTestConfig()
	cfg.functions["main"] = []Instruction{{Op: PUSHNULL}, {Op: OP_RETURN}}
	s := NewState(cfg, "main")

	id := s.Heap.Alloc(value.Int64(1))
	list := value.NewList(value.Int64(1), value.String("two"), value.Bool(true))
	m := value.NewMap().Set(value.String("k"), value.Int64(9))
	closure := value.NewClosure("main", []value.Value{value.Int64(3)}, []int64{id})
	s.Main().Push(list)
	s.Main().Push(m)
	s.Main().Push(closure)

	var buf bytes.Buffer
	if err := EncodeSnapshot(&buf, s); err != nil {
		t.Fatalf("EncodeSnapshot() error = %v", err)
	}
	restored, err := DecodeSnapshot(&buf, cfg)
	if err != nil {
		t.Fatalf("DecodeSnapshot() error = %v", err)
	}

	stack := restored.Main().Stack
	if len(stack) != 3 {
		t.Fatalf("restored stack depth = %d, want 3", len(stack))
	}
	if !value.Equal(stack[0], list) {
		t.Fatalf("restored list = %v, want %v", stack[0], list)
	}
	gotMap, ok := stack[1].(*value.Map)
	if !ok || !value.Equal(gotMap, m) {
		t.Fatalf("restored map = %v, want %v", stack[1], m)
	}
	gotClosure, ok := stack[2].(value.Callable)
	if !ok || !value.Equal(gotClosure, closure) {
		t.Fatalf("restored closure = %v, want %v", stack[2], closure)
	}
}

func TestEncodeSnapshotRejectsUnsupportedMessageValue(t *testing.T) {
	cfg := newTestConfig()
	cfg.functions["main"] = []Instruction{{Op: PUSHNULL}, {Op: OP_RETURN}}
	s := NewState(cfg, "main")
	s.Main().Push(value.Message{TypeName: "Status", Payload: &Status{Code: INTERNAL}})

	var buf bytes.Buffer
	if err := EncodeSnapshot(&buf, s); err == nil {
		t.Fatalf("EncodeSnapshot() with a MESSAGE value on the stack should error")
	}
}
