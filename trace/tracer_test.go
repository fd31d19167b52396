package trace

import (
	"bytes"
	"strings"
	"testing"

	"workflowasm/value"
	"workflowasm/vm"
)

func TestStepWritesOneLinePerInstruction(t *testing.T) {
	var buf bytes.Buffer
	Init(true, nil, &buf)

	Step("main", 0, 1, vm.Instruction{Op: vm.PUSHINT, Arg: 5})

	got := buf.String()
	if !strings.Contains(got, "main:0") || !strings.Contains(got, "depth=1") {
		t.Fatalf("Step output = %q, want it to name the fp, ip and depth", got)
	}
}

func TestStepIsNoOpWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	Init(false, nil, &buf)

	Step("main", 0, 1, vm.Instruction{Op: vm.PUSHINT, Arg: 5})

	if buf.Len() != 0 {
		t.Fatalf("buf = %q, want no output while disabled", buf.String())
	}
}

func TestStepHonorsFilter(t *testing.T) {
	var buf bytes.Buffer
	Init(true, []string{"worker/*"}, &buf)

	Step("main", 0, 1, vm.Instruction{Op: vm.PUSHINT, Arg: 5})
	if buf.Len() != 0 {
		t.Fatalf("buf = %q, want non-matching fp suppressed", buf.String())
	}

	Step("worker/job1", 0, 1, vm.Instruction{Op: vm.PUSHINT, Arg: 5})
	if !strings.Contains(buf.String(), "worker/job1") {
		t.Fatalf("buf = %q, want matching fp traced", buf.String())
	}
}

func TestTerminateReportsValueOrError(t *testing.T) {
	var buf bytes.Buffer
	Init(true, nil, &buf)

	Terminate("main", vm.Result{Value: value.Int64(9)})
	if !strings.Contains(buf.String(), "RETURN 9") {
		t.Fatalf("buf = %q, want a RETURN line naming the value", buf.String())
	}

	buf.Reset()
	Terminate("main", vm.Result{Error: value.String("boom")})
	if !strings.Contains(buf.String(), "RETURN_ERROR") || !strings.Contains(buf.String(), "boom") {
		t.Fatalf("buf = %q, want a RETURN_ERROR line naming the error", buf.String())
	}
}

func TestIsEnabledReflectsInit(t *testing.T) {
	Init(true, nil, &bytes.Buffer{})
	if !IsEnabled() {
		t.Fatalf("IsEnabled() = false, want true after Init(true, ...)")
	}
	Init(false, nil, &bytes.Buffer{})
	if IsEnabled() {
		t.Fatalf("IsEnabled() = true, want false after Init(false, ...)")
	}
}
