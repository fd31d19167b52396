package vm

import "workflowasm/value"

// RunningStatus is computed from the MAIN frame.
type RunningStatus int

const (
	RUN RunningStatus = iota
	HALT
	ASYNC
	SUSPEND
)

func (s RunningStatus) String() string {
	switch s {
	case RUN:
		return "RUN"
	case HALT:
		return "HALT"
	case ASYNC:
		return "ASYNC"
	case SUSPEND:
		return "SUSPEND"
	default:
		return "?"
	}
}

// State is the VM's full execution state: heap, call stack, and the Config
// collaborator that supplies program content.
type State struct {
	Heap      *value.Heap
	CallStack []*Frame
	Config    Config

	// controlFrame caches the topmost control frame; it must always equal
	// the actual topmost control frame on the stack.
	controlFrame *Frame

	status RunningStatus
}

// NewState constructs a State with a single MAIN frame ready to execute
// mainFP from ip 0.
func NewState(cfg Config, mainFP string) *State {
	main := NewControlFrame(MAIN, mainFP, nil)
	s := &State{
		Heap:      value.NewHeap(),
		CallStack: []*Frame{main},
		Config:    cfg,
	}
	s.controlFrame = main
	return s
}

// Main returns the MAIN frame: the root of the call stack, which is
// always present while the VM is live.
func (s *State) Main() *Frame {
	return s.CallStack[0]
}

// Top returns the topmost frame on the call stack.
func (s *State) Top() *Frame {
	return s.CallStack[len(s.CallStack)-1]
}

// ControlFrame returns the nearest control frame, i.e. the one whose value
// stack CALL/TEST/PUSH* etc. operate on.
func (s *State) ControlFrame() *Frame {
	return s.controlFrame
}

// pushFrame pushes f onto the call stack and, if it is a control frame,
// updates the cached control frame.
func (s *State) pushFrame(f *Frame) {
	s.CallStack = append(s.CallStack, f)
	if f.IsControlFrame() {
		s.controlFrame = f
	}
}

// popFrame removes the topmost frame. MAIN is never popped; callers must
// check before calling.
func (s *State) popFrame() *Frame {
	n := len(s.CallStack)
	f := s.CallStack[n-1]
	s.CallStack = s.CallStack[:n-1]
	if f.IsControlFrame() {
		// Recompute the new topmost control frame.
		s.controlFrame = nil
		for i := len(s.CallStack) - 1; i >= 0; i-- {
			if s.CallStack[i].IsControlFrame() {
				s.controlFrame = s.CallStack[i]
				break
			}
		}
	}
	return f
}

// RunningStatus computes the VM's running status from the MAIN frame:
// HALT iff MAIN is terminated, else whatever status step last observed
// (RUN/ASYNC/SUSPEND).
func (s *State) RunningStatus() RunningStatus {
	if s.Main().Terminated() && len(s.CallStack) == 1 {
		return HALT
	}
	if s.status == ASYNC || s.status == SUSPEND {
		return s.status
	}
	return RUN
}

// Result is the observable outcome of running a State to HALT: either a
// return value or an error value, never both.
type Result struct {
	Value value.Value
	Error value.Value
}

// Run drives Step until RunningStatus leaves RUN, returning the MAIN
// frame's terminal (value, error) once HALTed. It is a convenience wrapper
// around the single-step contract for tests and the CLI; production
// supervisors are expected to call Step directly and respect ASYNC/SUSPEND.
func (s *State) Run() (Result, error) {
	for {
		switch s.RunningStatus() {
		case HALT:
			m := s.Main()
			return Result{Value: m.ReturnValue, Error: m.ReturnError}, nil
		case ASYNC, SUSPEND:
			return Result{}, errSuspended
		default:
			if err := s.Step(); err != nil {
				return Result{}, err
			}
		}
	}
}
