package vm

import "errors"

// Fatal errors are implementer bugs, never script-observable: popping
// MAIN, stepping a HALTed state, or encountering an UNKNOWN frame type.
// Step returns these as plain Go errors instead of mutating state.
var (
	errPoppedMain     = errors.New("vm: attempted to pop the MAIN frame")
	errSteppedHalted  = errors.New("vm: step called on a HALTed state")
	errUnknownFrame   = errors.New("vm: encountered an UNKNOWN frame type")
	errSuspended      = errors.New("vm: Run called while state is ASYNC/SUSPEND")
)
