package config

import (
	"strings"
	"testing"

	"workflowasm/bytecode"
	"workflowasm/natives"
	"workflowasm/objectfile"
	"workflowasm/value"
	"workflowasm/vm"
)

func testObjectFile() *objectfile.ObjectFile {
	return objectfile.New("demo", map[string]*bytecode.Function{
		"main": {
			Instructions: []bytecode.Instruction{
				{Op: bytecode.PUSHK, Arg: 0},
				{Op: bytecode.RETURN},
			},
			Constants: []value.Value{value.Int64(42)},
		},
	})
}

func TestStaticRunsObjectFile(t *testing.T) {
	cfg := NewStatic(testObjectFile(), natives.NewRegistry())
	s := vm.NewState(cfg, "main")
	result, err := s.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Value != value.Int64(42) {
		t.Fatalf("result = %v, want 42", result.Value)
	}
}

func TestFromYAMLAppliesTunables(t *testing.T) {
	doc := `
maxCallStackDepth: 7
enabledNatives:
  - len
`
	cfg, err := FromYAML(strings.NewReader(doc), testObjectFile())
	if err != nil {
		t.Fatalf("FromYAML() error = %v", err)
	}
	if cfg.MaxCallStackDepth() != 7 {
		t.Fatalf("MaxCallStackDepth() = %d, want 7", cfg.MaxCallStackDepth())
	}
	if _, ok := cfg.GetNativeFunction("len"); !ok {
		t.Fatal("expected \"len\" to remain enabled")
	}
	if _, ok := cfg.GetNativeFunction("int64"); ok {
		t.Fatal("expected \"int64\" to be excluded by enabledNatives")
	}
}

func TestFromYAMLDefaultsMaxDepth(t *testing.T) {
	cfg, err := FromYAML(strings.NewReader("maxCallStackDepth: 0\n"), testObjectFile())
	if err != nil {
		t.Fatalf("FromYAML() error = %v", err)
	}
	if cfg.MaxCallStackDepth() != DefaultMaxCallStackDepth {
		t.Fatalf("MaxCallStackDepth() = %d, want default %d", cfg.MaxCallStackDepth(), DefaultMaxCallStackDepth)
	}
}
