// Package trace implements a filter-matched, mutex-guarded, io.Writer-backed
// execution tracer: one line per vm.Step call, naming the opcode,
// instruction pointer, and frame depth.
package trace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"workflowasm/vm"
)

// Tracer logs one line per traced Step, filtered by function pointer glob
// pattern.
type Tracer struct {
	enabled bool
	filters []string
	writer  io.Writer
	mu      sync.Mutex
}

// globalTracer is the process-wide tracer cmd/wfasmrun wires up from its
// -trace flag.
var globalTracer *Tracer

// Init initializes the global tracer. A nil writer defaults to os.Stderr.
func Init(enabled bool, filters []string, writer io.Writer) {
	if writer == nil {
		writer = os.Stderr
	}
	globalTracer = &Tracer{enabled: enabled, filters: filters, writer: writer}
}

// IsEnabled reports whether the global tracer is active.
func IsEnabled() bool {
	return globalTracer != nil && globalTracer.enabled
}

func (t *Tracer) matchesFilter(fp string) bool {
	if len(t.filters) == 0 {
		return true
	}
	for _, pattern := range t.filters {
		if matched, _ := filepath.Match(pattern, fp); matched {
			return true
		}
	}
	return false
}

// Step logs one instruction about to execute in frame fp at ip, at the
// given call-stack depth. Call this immediately before s.Step().
func (t *Tracer) Step(fp string, ip int, depth int, inst vm.Instruction) {
	if !t.enabled || !t.matchesFilter(fp) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.writer, "[TRACE] %s:%d depth=%d %s %d\n", fp, ip, depth, inst.Op, inst.Arg)
}

// Terminate logs a frame's termination, successful or not.
func (t *Tracer) Terminate(fp string, result vm.Result) {
	if !t.enabled || !t.matchesFilter(fp) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if result.Error != nil {
		fmt.Fprintf(t.writer, "[TRACE] %s RETURN_ERROR %s\n", fp, result.Error.String())
		return
	}
	fmt.Fprintf(t.writer, "[TRACE] %s RETURN %s\n", fp, result.Value.String())
}

// Step logs via the global tracer, a no-op when tracing is off.
func Step(fp string, ip int, depth int, inst vm.Instruction) {
	if globalTracer != nil {
		globalTracer.Step(fp, ip, depth, inst)
	}
}

// Terminate logs via the global tracer, a no-op when tracing is off.
func Terminate(fp string, result vm.Result) {
	if globalTracer != nil {
		globalTracer.Terminate(fp, result)
	}
}
