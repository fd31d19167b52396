package conformance

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"workflowasm/bytecode"
	"workflowasm/config"
	"workflowasm/natives"
	"workflowasm/objectfile"
	"workflowasm/value"
	"workflowasm/vm"
)

// Result is the outcome of running one Scenario: whether its actual
// vm.Result matched Expect, and a human-readable reason when it didn't.
type Result struct {
	File    string
	Name    string
	Passed  bool
	Reason  string
	Skipped bool
}

// Run loads every fixture in dir and executes each against a fresh
// vm.State, comparing the observed Result to the fixture's Expect.
func Run(dir string) ([]Result, error) {
	loaded, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(loaded))
	for _, l := range loaded {
		results = append(results, runOne(l))
	}
	return results, nil
}

func runOne(l LoadedScenario) Result {
	sc := l.Scenario
	ob, err := buildObjectFile(sc)
	if err != nil {
		return Result{File: l.File, Name: sc.Name, Reason: err.Error()}
	}

	cfg := config.NewStatic(ob, natives.NewRegistry())
	state := vm.NewState(cfg, sc.Entry)
	got, err := state.Run()
	if err != nil {
		return Result{File: l.File, Name: sc.Name, Reason: fmt.Sprintf("Run error: %v", err)}
	}

	if reason, ok := matchesExpect(sc.Expect, got); !ok {
		return Result{File: l.File, Name: sc.Name, Reason: reason}
	}
	return Result{File: l.File, Name: sc.Name, Passed: true}
}

func buildObjectFile(sc Scenario) (*objectfile.ObjectFile, error) {
	functions := make(map[string]*bytecode.Function, len(sc.Functions))
	for name, spec := range sc.Functions {
		instrs := make([]bytecode.Instruction, len(spec.Instructions))
		for i, is := range spec.Instructions {
			op, ok := opcodeByName(is.Op)
			if !ok {
				return nil, fmt.Errorf("function %s instruction %d: unknown opcode %q", name, i, is.Op)
			}
			instrs[i] = bytecode.Instruction{Op: op, Arg: is.Arg}
		}
		consts := make([]value.Value, len(spec.Constants))
		for i, lit := range spec.Constants {
			v, err := literalToValue(lit)
			if err != nil {
				return nil, fmt.Errorf("function %s constant %d: %w", name, i, err)
			}
			consts[i] = v
		}
		functions[name] = &bytecode.Function{Instructions: instrs, Constants: consts}
	}
	return objectfile.New(sc.Name, functions), nil
}

func opcodeByName(name string) (bytecode.OpCode, bool) {
	for op := bytecode.NOOP; op <= bytecode.SETUPVAL; op++ {
		if op.String() == name {
			return op, true
		}
	}
	return 0, false
}

func literalToValue(lit Literal) (value.Value, error) {
	switch lit.Kind {
	case "null":
		return value.Null{}, nil
	case "bool":
		return value.Bool(lit.Value == "true"), nil
	case "int64":
		n, err := strconv.ParseInt(lit.Value, 10, 64)
		if err != nil {
			return nil, err
		}
		return value.Int64(n), nil
	case "uint64":
		n, err := strconv.ParseUint(lit.Value, 10, 64)
		if err != nil {
			return nil, err
		}
		return value.Uint64(n), nil
	case "double":
		f, err := strconv.ParseFloat(lit.Value, 64)
		if err != nil {
			return nil, err
		}
		return value.Double(f), nil
	case "string":
		return value.String(lit.Value), nil
	case "bytes":
		b, err := base64.StdEncoding.DecodeString(lit.Value)
		if err != nil {
			return nil, err
		}
		return value.Bytes(b), nil
	case "function":
		return value.NewFunction(lit.ID), nil
	case "native":
		return value.NewNative(lit.ID), nil
	default:
		return nil, fmt.Errorf("unknown literal kind %q", lit.Kind)
	}
}

func matchesExpect(expect ExpectedResult, got vm.Result) (string, bool) {
	if expect.Error != nil {
		if got.Error == nil {
			return "expected an error, got none", false
		}
		if reason, ok := matchesExpectedError(*expect.Error, got.Error); !ok {
			return reason, false
		}
	} else if got.Error != nil {
		return fmt.Sprintf("expected no error, got %s", got.Error.String()), false
	}

	if expect.Value != nil {
		want, err := literalToValue(*expect.Value)
		if err != nil {
			return err.Error(), false
		}
		if got.Value == nil || !value.Equal(want, got.Value) {
			return fmt.Sprintf("expected value %s, got %v", want.String(), got.Value), false
		}
	}
	return "", true
}

func matchesExpectedError(expect ExpectedError, got value.Value) (string, bool) {
	if expect.Kind == "status" {
		status, ok := vm.AsStatus(got)
		if !ok {
			return fmt.Sprintf("expected a Status error, got %v", got), false
		}
		if expect.Code != "" && status.Code.String() != expect.Code {
			return fmt.Sprintf("expected Status code %s, got %s", expect.Code, status.Code), false
		}
		if expect.Message != "" && status.Message != expect.Message {
			return fmt.Sprintf("expected Status message %q, got %q", expect.Message, status.Message), false
		}
		return "", true
	}

	want, err := literalToValue(Literal{Kind: expect.Kind, Value: expect.Value})
	if err != nil {
		return err.Error(), false
	}
	if !value.Equal(want, got) {
		return fmt.Sprintf("expected error %s, got %s", want.String(), got.String()), false
	}
	return "", true
}
