// Command wfasmrun loads an assembled object file and drives it to HALT,
// the way cmd/barn's standalone inspection flags drove a loaded database
// without starting the network server. With -worker it instead listens
// for jobs sent over a stream.Pipe connection and runs whichever object
// file each job carries; -dispatch is the client side of that same
// protocol, shipping -object to a running worker instead of executing it
// locally.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"workflowasm/config"
	"workflowasm/natives"
	"workflowasm/objectfile"
	"workflowasm/trace"
	"workflowasm/vm"
)

func main() {
	objPath := flag.String("object", "", "Path to an assembled object file")
	entry := flag.String("entry", "main", "Function ID to run as MAIN")
	tunablesPath := flag.String("tunables", "", "Path to a YAML tunables file (default: built-in limits, all natives enabled)")

	traceEnabled := flag.Bool("trace", false, "Enable execution tracing")
	traceFilter := flag.String("trace-filter", "", "Comma-separated trace filter patterns (glob, e.g. 'main,worker/*')")

	workerAddr := flag.String("worker", "", "Listen on this address and serve jobs received over stream.Pipe instead of running -object directly")
	dispatchAddr := flag.String("dispatch", "", "Send -object as a single job to a -worker at this address instead of running it in-process")

	flag.Parse()

	if *traceEnabled {
		var filters []string
		if *traceFilter != "" {
			for _, f := range strings.Split(*traceFilter, ",") {
				filters = append(filters, strings.TrimSpace(f))
			}
		}
		trace.Init(true, filters, os.Stderr)
		log.Printf("tracing enabled (filters: %v)", filters)
	} else {
		trace.Init(false, nil, nil)
	}

	if *workerAddr != "" {
		if err := runWorker(*workerAddr, *tunablesPath); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	if *objPath == "" {
		fmt.Fprintln(os.Stderr, "wfasmrun: -object is required")
		flag.Usage()
		os.Exit(2)
	}

	if *dispatchAddr != "" {
		if err := runDispatch(*dispatchAddr, *objPath, *entry); err != nil {
			if err == errJobFailed {
				os.Exit(1)
			}
			log.Fatalf("%v", err)
		}
		return
	}

	f, err := os.Open(*objPath)
	if err != nil {
		log.Fatalf("opening object file: %v", err)
	}
	ob, err := objectfile.Decode(f)
	f.Close()
	if err != nil {
		log.Fatalf("decoding object file: %v", err)
	}

	cfg, err := loadConfig(*tunablesPath, ob)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	log.Printf("running %s:%s", ob.Package, *entry)
	state := vm.NewState(cfg, *entry)
	result, err := run(state, ob.Package)
	if err != nil {
		log.Fatalf("run error: %v", err)
	}
	if result.Error != nil {
		fmt.Printf("ERROR %s\n", result.Error.String())
		os.Exit(1)
	}
	fmt.Printf("%s\n", result.Value.String())
}

// run drives state to HALT like State.Run, but announces each instruction
// to the trace package first when tracing is enabled, since vm cannot
// import trace itself (trace imports vm to describe Step/Terminate).
func run(state *vm.State, pkg string) (vm.Result, error) {
	if !trace.IsEnabled() {
		return state.Run()
	}
	for {
		switch state.RunningStatus() {
		case vm.HALT:
			m := state.Main()
			result := vm.Result{Value: m.ReturnValue, Error: m.ReturnError}
			trace.Terminate(pkg, result)
			return result, nil
		case vm.ASYNC, vm.SUSPEND:
			return vm.Result{}, fmt.Errorf("wfasmrun: run suspended (%s); single-shot CLI cannot resume", state.RunningStatus())
		default:
			top := state.Top()
			trace.Step(top.FP, top.IP, len(state.CallStack), mustInstruction(state, top))
			if err := state.Step(); err != nil {
				return vm.Result{}, err
			}
		}
	}
}

func mustInstruction(state *vm.State, f *vm.Frame) vm.Instruction {
	inst, ok := state.Config.GetInstruction(f.FP, f.IP)
	if !ok {
		return vm.Instruction{}
	}
	return inst
}

func loadConfig(tunablesPath string, ob *objectfile.ObjectFile) (*config.Static, error) {
	if tunablesPath == "" {
		return config.NewStatic(ob, natives.NewRegistry()), nil
	}
	return config.FromYAMLFile(tunablesPath, ob)
}
