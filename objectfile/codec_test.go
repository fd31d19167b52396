package objectfile

import (
	"bufio"
	"bytes"
	"testing"

	"workflowasm/bytecode"
	"workflowasm/value"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ob := New("demo", map[string]*bytecode.Function{
		"main": {
			Instructions: []bytecode.Instruction{
				{Op: bytecode.PUSHK, Arg: 0},
				{Op: bytecode.PUSHK, Arg: 1},
				{Op: bytecode.BINOP, Arg: int32(bytecode.OpAdd)},
				{Op: bytecode.RETURN},
			},
			Constants: []value.Value{
				value.Int64(2),
				value.Double(1.5),
			},
		},
		"helper": {
			Instructions: []bytecode.Instruction{{Op: bytecode.PUSHNULL}, {Op: bytecode.RETURN}},
			Constants: []value.Value{
				value.String("hello"),
				value.Bytes("\x00\x01"),
				value.Bool(true),
				value.Uint64(7),
				value.NewNative("len"),
				value.NewFunction("helper"),
			},
		},
	})

	var buf bytes.Buffer
	if err := Encode(&buf, ob); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Package != "demo" {
		t.Fatalf("Package = %q, want demo", got.Package)
	}
	if len(got.Functions) != 2 {
		t.Fatalf("Functions = %d, want 2", len(got.Functions))
	}

	main, ok := got.Functions["main"]
	if !ok {
		t.Fatal("missing main function")
	}
	if len(main.Instructions) != 4 || main.Instructions[2].Op != bytecode.BINOP {
		t.Fatalf("main.Instructions = %v", main.Instructions)
	}
	if main.Constants[0] != value.Int64(2) || main.Constants[1] != value.Double(1.5) {
		t.Fatalf("main.Constants = %v", main.Constants)
	}

	helper := got.Functions["helper"]
	wantStr := value.String("hello")
	if helper.Constants[0] != wantStr {
		t.Fatalf("helper.Constants[0] = %v, want %v", helper.Constants[0], wantStr)
	}
	if !value.Equal(helper.Constants[1], value.Bytes("\x00\x01")) {
		t.Fatalf("helper.Constants[1] = %v, want bytes", helper.Constants[1])
	}
	if helper.Constants[2] != value.Bool(true) {
		t.Fatalf("helper.Constants[2] = %v, want true", helper.Constants[2])
	}
	if helper.Constants[3] != value.Uint64(7) {
		t.Fatalf("helper.Constants[3] = %v, want 7", helper.Constants[3])
	}
	nativeC, ok := helper.Constants[4].(value.Callable)
	if !ok || nativeC.Kind != value.NativeCallable || nativeC.ID != "len" {
		t.Fatalf("helper.Constants[4] = %v, want native(len)", helper.Constants[4])
	}
	fnC, ok := helper.Constants[5].(value.Callable)
	if !ok || fnC.Kind != value.FunctionCallable || fnC.ID != "helper" {
		t.Fatalf("helper.Constants[5] = %v, want function(helper)", helper.Constants[5])
	}
}

func TestDecodeRejectsUnknownValueTag(t *testing.T) {
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	mustWriteString(t, bw, "")     // package name
	mustWriteVarint(t, bw, 1)      // function count
	mustWriteString(t, bw, "f")    // function name
	mustWriteVarint(t, bw, 0)      // instruction count
	mustWriteVarint(t, bw, 1)      // constant count
	if err := bw.WriteByte(0xFE); err != nil { // unknown value tag
		t.Fatal(err)
	}
	if err := bw.Flush(); err != nil {
		t.Fatal(err)
	}

	if _, err := Decode(&buf); err == nil {
		t.Fatal("Decode() with an unknown value tag should fail")
	}
}

func mustWriteString(t *testing.T, w *bufio.Writer, s string) {
	t.Helper()
	if err := writeString(w, s); err != nil {
		t.Fatal(err)
	}
}

func mustWriteVarint(t *testing.T, w *bufio.Writer, n int64) {
	t.Helper()
	if err := writeVarint(w, n); err != nil {
		t.Fatal(err)
	}
}
