package stream

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"workflowasm/objectfile"
)

func writeMessage(w *bufio.Writer, m Message) error {
	if err := w.WriteByte(byte(m.Kind)); err != nil {
		return err
	}
	switch m.Kind {
	case KindHandshake:
		if err := writeString(w, m.WorkerID); err != nil {
			return err
		}
		return writeString(w, m.Version)
	case KindPing, KindPong:
		return nil
	case KindJob:
		if err := writeString(w, m.JobID); err != nil {
			return err
		}
		if err := writeString(w, m.EntryPoint); err != nil {
			return err
		}
		return objectfile.Encode(w, m.Object)
	case KindJobResult:
		if err := writeString(w, m.JobID); err != nil {
			return err
		}
		ok := byte(0)
		if m.ResultOK {
			ok = 1
		}
		if err := w.WriteByte(ok); err != nil {
			return err
		}
		if err := writeString(w, m.ResultValue); err != nil {
			return err
		}
		return writeString(w, m.ResultStatus)
	default:
		return fmt.Errorf("stream: unknown message kind %d", m.Kind)
	}
}

func readMessage(r *bufio.Reader) (Message, error) {
	kb, err := r.ReadByte()
	if err != nil {
		return Message{}, err
	}
	kind := Kind(kb)
	switch kind {
	case KindHandshake:
		workerID, err := readString(r)
		if err != nil {
			return Message{}, err
		}
		version, err := readString(r)
		if err != nil {
			return Message{}, err
		}
		return Handshake(workerID, version), nil
	case KindPing:
		return Ping(), nil
	case KindPong:
		return Pong(), nil
	case KindJob:
		jobID, err := readString(r)
		if err != nil {
			return Message{}, err
		}
		entry, err := readString(r)
		if err != nil {
			return Message{}, err
		}
		ob, err := objectfile.Decode(r)
		if err != nil {
			return Message{}, err
		}
		return NewJob(jobID, ob, entry), nil
	case KindJobResult:
		jobID, err := readString(r)
		if err != nil {
			return Message{}, err
		}
		okByte, err := r.ReadByte()
		if err != nil {
			return Message{}, err
		}
		value, err := readString(r)
		if err != nil {
			return Message{}, err
		}
		status, err := readString(r)
		if err != nil {
			return Message{}, err
		}
		return Message{Kind: KindJobResult, JobID: jobID, ResultOK: okByte != 0, ResultValue: value, ResultStatus: status}, nil
	default:
		return Message{}, fmt.Errorf("stream: unknown message kind %d", kb)
	}
}

func writeString(w *bufio.Writer, s string) error {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutVarint(buf[:], int64(len(s)))
	if _, err := w.Write(buf[:n]); err != nil {
		return err
	}
	_, err := w.WriteString(s)
	return err
}

func readString(r *bufio.Reader) (string, error) {
	n, err := binary.ReadVarint(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
