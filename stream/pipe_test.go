package stream

import (
	"io"
	"testing"

	"workflowasm/bytecode"
	"workflowasm/objectfile"
	"workflowasm/value"
)

// rwc adapts an io.PipeReader/io.PipeWriter pair into one ReadWriteCloser
// so two Pipes can talk to each other in-process.
type rwc struct {
	io.Reader
	io.Writer
	closers []io.Closer
}

func (c rwc) Close() error {
	for _, cl := range c.closers {
		cl.Close()
	}
	return nil
}

func connectedPipes() (*Pipe, *Pipe) {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()
	a := NewPipe(rwc{Reader: ar, Writer: aw, closers: []io.Closer{ar, aw}})
	b := NewPipe(rwc{Reader: br, Writer: bw, closers: []io.Closer{br, bw}})
	return a, b
}

func TestPipeRoundTripsHandshake(t *testing.T) {
	a, b := connectedPipes()
	defer a.Close()
	defer b.Close()

	done := make(chan error, 1)
	go func() { done <- a.Send(Handshake("worker-1", "1.0.0")) }()

	got, err := b.Recv()
	if err != nil {
		t.Fatalf("Recv() error = %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got.Kind != KindHandshake || got.WorkerID != "worker-1" || got.Version != "1.0.0" {
		t.Fatalf("got %+v, want a matching HANDSHAKE", got)
	}
}

func TestPipeRoundTripsJobAndResult(t *testing.T) {
	a, b := connectedPipes()
	defer a.Close()
	defer b.Close()

	ob := objectfile.New("demo", map[string]*bytecode.Function{
		"main": {
			Instructions: []bytecode.Instruction{{Op: bytecode.PUSHK, Arg: 0}, {Op: bytecode.RETURN}},
			Constants:    []value.Value{value.Int64(9)},
		},
	})
	job := NewJob("job-1", ob, "main")

	done := make(chan error, 1)
	go func() { done <- a.Send(job) }()

	got, err := b.Recv()
	if err != nil {
		t.Fatalf("Recv() error = %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got.Kind != KindJob || got.JobID != "job-1" || got.EntryPoint != "main" {
		t.Fatalf("got %+v, want a matching JOB", got)
	}
	if got.Object == nil || got.Object.Package != "demo" {
		t.Fatalf("got.Object = %+v, want the decoded demo object file", got.Object)
	}

	result := JobSucceeded("job-1", "9")
	go func() { done <- b.Send(result) }()
	gotResult, err := a.Recv()
	if err != nil {
		t.Fatalf("Recv() error = %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if gotResult.Kind != KindJobResult || !gotResult.ResultOK || gotResult.ResultValue != "9" {
		t.Fatalf("got %+v, want a matching JOB_RESULT", gotResult)
	}
}

func TestPipePingPong(t *testing.T) {
	a, b := connectedPipes()
	defer a.Close()
	defer b.Close()

	done := make(chan error, 1)
	go func() { done <- a.Send(Ping()) }()
	got, err := b.Recv()
	if err != nil {
		t.Fatalf("Recv() error = %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got.Kind != KindPing {
		t.Fatalf("got %+v, want PING", got)
	}
}
