package main

import (
	"fmt"
	"log"
	"net"
	"os"

	"workflowasm/objectfile"
	"workflowasm/stream"
	"workflowasm/vm"
)

// runWorker listens on addr and serves jobs received over stream.Pipe
// connections, one goroutine per connection. Each JOB message carries its
// own ObjectFile, so a single worker process can run jobs from any number
// of distinct programs; tunablesPath (possibly empty) is reloaded fresh for
// every job rather than cached, so a worker doesn't need restarting when
// the tunables file changes.
func runWorker(addr, tunablesPath string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("wfasmrun: listen %s: %w", addr, err)
	}
	log.Printf("worker listening on %s", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("wfasmrun: accept: %w", err)
		}
		go serveConn(conn, tunablesPath)
	}
}

func serveConn(rwc net.Conn, tunablesPath string) {
	defer rwc.Close()
	pipe := stream.NewPipe(rwc)
	peer := rwc.RemoteAddr()

	for {
		msg, err := pipe.Recv()
		if err != nil {
			log.Printf("worker: connection %s closed: %v", peer, err)
			return
		}
		switch msg.Kind {
		case stream.KindPing:
			if err := pipe.Send(stream.Pong()); err != nil {
				log.Printf("worker: sending PONG to %s: %v", peer, err)
				return
			}
		case stream.KindJob:
			result := runJob(msg, tunablesPath)
			if err := pipe.Send(result); err != nil {
				log.Printf("worker: sending result for job %s to %s: %v", msg.JobID, peer, err)
				return
			}
		default:
			log.Printf("worker: ignoring unexpected message kind %s from %s", msg.Kind, peer)
		}
	}
}

// runJob drives one received JOB to HALT and renders the outcome as a
// JOB_RESULT message; it never returns an error itself, mirroring
// main's top-level ERROR/value rendering, so the caller always has a
// result to send back over the wire.
func runJob(msg stream.Message, tunablesPath string) stream.Message {
	ob := msg.Object
	if ob == nil {
		return stream.JobFailed(msg.JobID, "INVALID_ARGUMENT: job carries no object file")
	}

	cfg, err := loadConfig(tunablesPath, ob)
	if err != nil {
		return stream.JobFailed(msg.JobID, fmt.Sprintf("INTERNAL: loading config: %v", err))
	}

	entry := msg.EntryPoint
	if entry == "" {
		entry = "main"
	}
	state := vm.NewState(cfg, entry)
	result, err := run(state, ob.Package)
	if err != nil {
		return stream.JobFailed(msg.JobID, fmt.Sprintf("INTERNAL: %v", err))
	}
	if result.Error != nil {
		return stream.JobFailed(msg.JobID, result.Error.String())
	}
	return stream.JobSucceeded(msg.JobID, result.Value.String())
}

// runDispatch connects to a worker at addr, ships the object file at
// objPath as a single job targeting entry, and prints the JOB_RESULT it
// gets back -- the client-side counterpart to runWorker, exercised by
// operators driving a remote worker instead of running objects in-process.
func runDispatch(addr, objPath, entry string) error {
	ob, err := loadObjectFile(objPath)
	if err != nil {
		return err
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("wfasmrun: dial %s: %w", addr, err)
	}
	defer conn.Close()
	pipe := stream.NewPipe(conn)

	jobID := fmt.Sprintf("%s:%s", ob.Package, entry)
	if err := pipe.Send(stream.NewJob(jobID, ob, entry)); err != nil {
		return fmt.Errorf("wfasmrun: sending job: %w", err)
	}

	result, err := pipe.Recv()
	if err != nil {
		return fmt.Errorf("wfasmrun: receiving result: %w", err)
	}
	if result.Kind != stream.KindJobResult {
		return fmt.Errorf("wfasmrun: expected JOB_RESULT, got %s", result.Kind)
	}
	if !result.ResultOK {
		fmt.Printf("ERROR %s\n", result.ResultStatus)
		return errJobFailed
	}
	fmt.Printf("%s\n", result.ResultValue)
	return nil
}

var errJobFailed = fmt.Errorf("wfasmrun: job reported failure")

func loadObjectFile(path string) (*objectfile.ObjectFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return objectfile.Decode(f)
}
