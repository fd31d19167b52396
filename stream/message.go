// Package stream implements the minimal worker/orchestrator framed
// protocol: a closed Message sum type and a loopback Conn, using
// length-prefixed binary records over any io.ReadWriteCloser. This
// package does not drive retries, job scheduling, or socket listening;
// driving a vm.State to HALT from a received Job is left to a supervisor
// (demonstrated in cmd/wfasmrun).
package stream

import "workflowasm/objectfile"

// Kind identifies which Message variant is present.
type Kind byte

const (
	KindHandshake Kind = iota
	KindPing
	KindPong
	KindJob
	KindJobResult
)

func (k Kind) String() string {
	switch k {
	case KindHandshake:
		return "HANDSHAKE"
	case KindPing:
		return "PING"
	case KindPong:
		return "PONG"
	case KindJob:
		return "JOB"
	case KindJobResult:
		return "JOB_RESULT"
	default:
		return "UNKNOWN"
	}
}

// Message is a single frame exchanged over a Conn. Only the fields
// relevant to Kind are meaningful; the rest are zero, mirroring
// bytecode.Instruction's opcode-specific-arg shape.
type Message struct {
	Kind Kind

	// HANDSHAKE
	WorkerID string
	Version  string

	// JOB
	JobID      string
	Object     *objectfile.ObjectFile
	EntryPoint string

	// JOB_RESULT
	ResultOK     bool
	ResultValue  string // string-rendered Value.String(), since the wire
	ResultStatus string // codec only needs to report outcome, not replay it

}

func Handshake(workerID, version string) Message {
	return Message{Kind: KindHandshake, WorkerID: workerID, Version: version}
}

func Ping() Message { return Message{Kind: KindPing} }
func Pong() Message { return Message{Kind: KindPong} }

func NewJob(jobID string, ob *objectfile.ObjectFile, entry string) Message {
	return Message{Kind: KindJob, JobID: jobID, Object: ob, EntryPoint: entry}
}

func JobSucceeded(jobID, value string) Message {
	return Message{Kind: KindJobResult, JobID: jobID, ResultOK: true, ResultValue: value}
}

func JobFailed(jobID, status string) Message {
	return Message{Kind: KindJobResult, JobID: jobID, ResultOK: false, ResultStatus: status}
}
