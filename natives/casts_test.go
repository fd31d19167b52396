package natives

import (
	"testing"

	"workflowasm/value"
	"workflowasm/vm"
)

func call(t *testing.T, id string, args ...value.Value) (value.Value, *vm.Status) {
	t.Helper()
	r := NewRegistry()
	n, ok := r.Get(id)
	if !ok {
		t.Fatalf("native %q not registered", id)
	}
	return n.Call(nil, args)
}

func TestCastInt64(t *testing.T) {
	cases := []struct {
		name string
		in   value.Value
		want value.Int64
	}{
		{"from uint64", value.Uint64(7), 7},
		{"from double truncates", value.Double(3.9), 3},
		{"from true", value.Bool(true), 1},
		{"from false", value.Bool(false), 0},
		{"identity", value.Int64(-5), -5},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, status := call(t, "int64", c.in)
			if status != nil {
				t.Fatalf("unexpected error: %v", status)
			}
			if got != c.want {
				t.Errorf("int64(%v) = %v, want %v", c.in, got, c.want)
			}
		})
	}

	if _, status := call(t, "int64", value.String("x")); status == nil {
		t.Error("expected INVALID_ARGUMENT casting STRING to int64")
	}
	if _, status := call(t, "int64", value.Int64(1), value.Int64(2)); status == nil {
		t.Error("expected arity error for int64 with 2 args")
	}
}

func TestCastStringAndBool(t *testing.T) {
	got, status := call(t, "string", value.Int64(42))
	if status != nil {
		t.Fatalf("unexpected error: %v", status)
	}
	if got != value.String("42") {
		t.Errorf("string(42) = %v, want \"42\"", got)
	}

	got, status = call(t, "bool", value.Int64(0))
	if status != nil {
		t.Fatalf("unexpected error: %v", status)
	}
	if got != value.Bool(true) {
		t.Errorf("bool(0) = %v, want true (every INT64 is truthy)", got)
	}
}

func TestLen(t *testing.T) {
	cases := []struct {
		name string
		in   value.Value
		want value.Int64
	}{
		{"string", value.String("hello"), 5},
		{"bytes", value.Bytes{1, 2, 3}, 3},
		{"list", value.NewList(value.Int64(1), value.Int64(2)), 2},
		{"map", value.NewMap().Set(value.String("k"), value.Int64(1)), 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, status := call(t, "len", c.in)
			if status != nil {
				t.Fatalf("unexpected error: %v", status)
			}
			if got != c.want {
				t.Errorf("len(%v) = %v, want %v", c.in, got, c.want)
			}
		})
	}

	if _, status := call(t, "len", value.Int64(1)); status == nil {
		t.Error("expected INVALID_ARGUMENT for len(INT64)")
	}
}
