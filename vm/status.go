package vm

import (
	"fmt"

	"workflowasm/value"
)

// Code is one of the closed RPC-style canonical status codes.
type Code int

const (
	OK Code = iota
	INVALID_ARGUMENT
	OUT_OF_RANGE
	UNIMPLEMENTED
	INTERNAL
	UNKNOWN
)

func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case INVALID_ARGUMENT:
		return "INVALID_ARGUMENT"
	case OUT_OF_RANGE:
		return "OUT_OF_RANGE"
	case UNIMPLEMENTED:
		return "UNIMPLEMENTED"
	case INTERNAL:
		return "INTERNAL"
	case UNKNOWN:
		return "UNKNOWN"
	default:
		return "UNKNOWN"
	}
}

// Status is a VM-originated error: a MESSAGE-tagged Value carrying
// {code, message}. NewStatus returns the value.Message whose
// Payload a caller can type-assert back to *Status when inspecting an
// error that unwound out of the VM.
type Status struct {
	Code    Code
	Message string
}

func (s *Status) Error() string {
	return fmt.Sprintf("%s: %s", s.Code, s.Message)
}

// NewStatus builds the MESSAGE value an instruction raises on failure.
func NewStatus(code Code, message string) value.Message {
	return value.Message{TypeName: "Status", Payload: &Status{Code: code, Message: message}}
}

// AsStatus extracts the *Status carried by a MESSAGE value produced by
// NewStatus, if v is such a value.
func AsStatus(v value.Value) (*Status, bool) {
	m, ok := v.(value.Message)
	if !ok || m.TypeName != "Status" {
		return nil, false
	}
	s, ok := m.Payload.(*Status)
	return s, ok
}

func statusf(code Code, format string, args ...any) value.Message {
	return NewStatus(code, fmt.Sprintf(format, args...))
}
