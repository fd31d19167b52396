package vm

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"workflowasm/value"
)

// Wire value type tags for snapshot encoding. Unlike objectfile's constant
// codec, a live State can hold any Value a running program produced,
// including LIST/MAP (built at runtime by natives) and CLOSURE callables
// (built by MAKECLOSURE) -- objectfile.Encode never needs either.
const (
	snapNull byte = iota
	snapBool
	snapInt64
	snapUint64
	snapDouble
	snapString
	snapBytes
	snapEnum
	snapList
	snapMap
	snapNativeCallable
	snapFunctionCallable
	snapClosureCallable
)

// EncodeSnapshot writes s's full execution state (heap, call stack) in the
// length-prefixed binary format objectfile/stream also use. Config is never
// part of the snapshot: the program content and native registry it
// supplies must be re-established by whatever loads the snapshot back
// (DecodeSnapshot takes one as a parameter), the same way NewState does.
func EncodeSnapshot(w io.Writer, s *State) error {
	bw := bufio.NewWriter(w)
	if err := writeHeap(bw, s.Heap); err != nil {
		return err
	}
	if err := writeVarint(bw, int64(len(s.CallStack))); err != nil {
		return err
	}
	for _, f := range s.CallStack {
		if err := writeFrame(bw, f); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// DecodeSnapshot reconstructs a State from a stream written by
// EncodeSnapshot, wiring cfg in as the Config collaborator (never
// serialized). The restored State's cached control frame and running
// status are recomputed from the call stack, exactly as NewState would for
// a freshly built one.
func DecodeSnapshot(r io.Reader, cfg Config) (*State, error) {
	br := bufio.NewReader(r)
	heap, err := readHeap(br)
	if err != nil {
		return nil, err
	}
	count, err := readVarint(br)
	if err != nil {
		return nil, err
	}
	stack := make([]*Frame, count)
	for i := range stack {
		f, err := readFrame(br)
		if err != nil {
			return nil, err
		}
		stack[i] = f
	}
	if len(stack) == 0 {
		return nil, fmt.Errorf("vm: snapshot has an empty call stack")
	}

	s := &State{Heap: heap, CallStack: stack, Config: cfg}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].IsControlFrame() {
			s.controlFrame = stack[i]
			break
		}
	}
	return s, nil
}

func writeHeap(w *bufio.Writer, h *value.Heap) error {
	if err := writeVarint(w, h.NextID()); err != nil {
		return err
	}
	snap := h.Snapshot()
	if err := writeVarint(w, int64(len(snap))); err != nil {
		return err
	}
	for id, cell := range snap {
		if err := writeVarint(w, id); err != nil {
			return err
		}
		if err := writeVarint(w, int64(cell.RefCount)); err != nil {
			return err
		}
		if err := writeValue(w, cell.Val); err != nil {
			return err
		}
	}
	return nil
}

func readHeap(r *bufio.Reader) (*value.Heap, error) {
	nextID, err := readVarint(r)
	if err != nil {
		return nil, err
	}
	count, err := readVarint(r)
	if err != nil {
		return nil, err
	}
	cells := make(map[int64]value.Cell, count)
	for i := int64(0); i < count; i++ {
		id, err := readVarint(r)
		if err != nil {
			return nil, err
		}
		refCount, err := readVarint(r)
		if err != nil {
			return nil, err
		}
		v, err := readValue(r)
		if err != nil {
			return nil, err
		}
		cells[id] = value.Cell{Val: v, RefCount: int(refCount)}
	}
	h := value.NewHeap()
	h.Restore(cells, nextID)
	return h, nil
}

func writeFrame(w *bufio.Writer, f *Frame) error {
	if err := w.WriteByte(byte(f.Type)); err != nil {
		return err
	}
	if err := writeString(w, f.FP); err != nil {
		return err
	}
	if err := writeVarint(w, int64(f.IP)); err != nil {
		return err
	}

	isControl := f.IsControlFrame()
	if err := writeBool(w, isControl); err != nil {
		return err
	}
	if isControl {
		if err := writeVarint(w, int64(len(f.Stack))); err != nil {
			return err
		}
		for _, v := range f.Stack {
			if err := writeValue(w, v); err != nil {
				return err
			}
		}
		if err := writeVarint(w, int64(len(f.Locals))); err != nil {
			return err
		}
		for name, v := range f.Locals {
			if err := writeString(w, name); err != nil {
				return err
			}
			if err := writeValue(w, v); err != nil {
				return err
			}
		}
		if err := writeVarint(w, int64(len(f.Upvalues))); err != nil {
			return err
		}
		for _, id := range f.Upvalues {
			if err := writeVarint(w, id); err != nil {
				return err
			}
		}
	}

	if err := writeBool(w, f.Terminated()); err != nil {
		return err
	}
	if f.Terminated() {
		isError := f.ReturnError != nil
		if err := writeBool(w, isError); err != nil {
			return err
		}
		if isError {
			if err := writeValue(w, f.ReturnError); err != nil {
				return err
			}
		} else {
			if err := writeValue(w, f.ReturnValue); err != nil {
				return err
			}
		}
	}

	if err := writeVarint(w, int64(len(f.Deferred))); err != nil {
		return err
	}
	for _, c := range f.Deferred {
		if err := writeCallable(w, c); err != nil {
			return err
		}
	}
	return nil
}

func readFrame(r *bufio.Reader) (*Frame, error) {
	typByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	fp, err := readString(r)
	if err != nil {
		return nil, err
	}
	ip, err := readVarint(r)
	if err != nil {
		return nil, err
	}

	f := &Frame{Type: FrameType(typByte), FP: fp, IP: int(ip), Locals: make(map[string]value.Value)}

	isControl, err := readBool(r)
	if err != nil {
		return nil, err
	}
	if isControl {
		stackLen, err := readVarint(r)
		if err != nil {
			return nil, err
		}
		f.Stack = make([]value.Value, stackLen)
		for i := range f.Stack {
			v, err := readValue(r)
			if err != nil {
				return nil, err
			}
			f.Stack[i] = v
		}

		localsLen, err := readVarint(r)
		if err != nil {
			return nil, err
		}
		for i := int64(0); i < localsLen; i++ {
			name, err := readString(r)
			if err != nil {
				return nil, err
			}
			v, err := readValue(r)
			if err != nil {
				return nil, err
			}
			f.Locals[name] = v
		}

		upvalLen, err := readVarint(r)
		if err != nil {
			return nil, err
		}
		f.Upvalues = make([]int64, upvalLen)
		for i := range f.Upvalues {
			id, err := readVarint(r)
			if err != nil {
				return nil, err
			}
			f.Upvalues[i] = id
		}
	}

	terminated, err := readBool(r)
	if err != nil {
		return nil, err
	}
	if terminated {
		isError, err := readBool(r)
		if err != nil {
			return nil, err
		}
		v, err := readValue(r)
		if err != nil {
			return nil, err
		}
		if isError {
			f.SetReturnError(v)
		} else {
			f.SetReturnValue(v)
		}
	}

	deferredLen, err := readVarint(r)
	if err != nil {
		return nil, err
	}
	f.Deferred = make([]value.Callable, deferredLen)
	for i := range f.Deferred {
		c, err := readCallable(r)
		if err != nil {
			return nil, err
		}
		f.Deferred[i] = c
	}

	return f, nil
}

func writeCallable(w *bufio.Writer, c value.Callable) error {
	switch c.Kind {
	case value.NativeCallable:
		if err := w.WriteByte(snapNativeCallable); err != nil {
			return err
		}
		return writeString(w, c.ID)
	case value.FunctionCallable:
		if err := w.WriteByte(snapFunctionCallable); err != nil {
			return err
		}
		return writeString(w, c.ID)
	case value.ClosureCallable:
		if err := w.WriteByte(snapClosureCallable); err != nil {
			return err
		}
		if err := writeString(w, c.ID); err != nil {
			return err
		}
		if err := writeVarint(w, int64(len(c.BoundArgs))); err != nil {
			return err
		}
		for _, v := range c.BoundArgs {
			if err := writeValue(w, v); err != nil {
				return err
			}
		}
		if err := writeVarint(w, int64(len(c.Upvalues))); err != nil {
			return err
		}
		for _, id := range c.Upvalues {
			if err := writeVarint(w, id); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("vm: CALLABLE kind %d has no snapshot form", c.Kind)
	}
}

func readCallable(r *bufio.Reader) (value.Callable, error) {
	kind, err := r.ReadByte()
	if err != nil {
		return value.Callable{}, err
	}
	return readCallableBody(r, kind)
}

// readCallableBody decodes a CALLABLE's fields once its tag byte has
// already been consumed -- by readCallable directly, or by readValue when
// the tag doubles as the CALLABLE's own dispatch tag.
func readCallableBody(r *bufio.Reader, kind byte) (value.Callable, error) {
	switch kind {
	case snapNativeCallable:
		id, err := readString(r)
		if err != nil {
			return value.Callable{}, err
		}
		return value.NewNative(id), nil
	case snapFunctionCallable:
		id, err := readString(r)
		if err != nil {
			return value.Callable{}, err
		}
		return value.NewFunction(id), nil
	case snapClosureCallable:
		id, err := readString(r)
		if err != nil {
			return value.Callable{}, err
		}
		boundLen, err := readVarint(r)
		if err != nil {
			return value.Callable{}, err
		}
		bound := make([]value.Value, boundLen)
		for i := range bound {
			v, err := readValue(r)
			if err != nil {
				return value.Callable{}, err
			}
			bound[i] = v
		}
		upvalLen, err := readVarint(r)
		if err != nil {
			return value.Callable{}, err
		}
		upvals := make([]int64, upvalLen)
		for i := range upvals {
			id, err := readVarint(r)
			if err != nil {
				return value.Callable{}, err
			}
			upvals[i] = id
		}
		return value.NewClosure(id, bound, upvals), nil
	default:
		return value.Callable{}, fmt.Errorf("vm: unknown snapshot callable kind %d", kind)
	}
}

func writeValue(w *bufio.Writer, v value.Value) error {
	switch lit := v.(type) {
	case value.Null:
		return w.WriteByte(snapNull)
	case value.Bool:
		if err := w.WriteByte(snapBool); err != nil {
			return err
		}
		return writeBool(w, bool(lit))
	case value.Int64:
		if err := w.WriteByte(snapInt64); err != nil {
			return err
		}
		return writeVarint(w, int64(lit))
	case value.Uint64:
		if err := w.WriteByte(snapUint64); err != nil {
			return err
		}
		return writeVarint(w, int64(lit))
	case value.Double:
		if err := w.WriteByte(snapDouble); err != nil {
			return err
		}
		return writeVarint(w, int64(math.Float64bits(float64(lit))))
	case value.String:
		if err := w.WriteByte(snapString); err != nil {
			return err
		}
		return writeString(w, string(lit))
	case value.Bytes:
		if err := w.WriteByte(snapBytes); err != nil {
			return err
		}
		return writeBytes(w, []byte(lit))
	case value.Enum:
		if err := w.WriteByte(snapEnum); err != nil {
			return err
		}
		if err := writeString(w, lit.TypeName); err != nil {
			return err
		}
		return writeVarint(w, lit.Ordinal)
	case *value.List:
		if err := w.WriteByte(snapList); err != nil {
			return err
		}
		elems := lit.Elements()
		if err := writeVarint(w, int64(len(elems))); err != nil {
			return err
		}
		for _, e := range elems {
			if err := writeValue(w, e); err != nil {
				return err
			}
		}
		return nil
	case *value.Map:
		if err := w.WriteByte(snapMap); err != nil {
			return err
		}
		pairs := lit.Pairs()
		if err := writeVarint(w, int64(len(pairs))); err != nil {
			return err
		}
		for _, kv := range pairs {
			if err := writeValue(w, kv[0]); err != nil {
				return err
			}
			if err := writeValue(w, kv[1]); err != nil {
				return err
			}
		}
		return nil
	case value.Callable:
		return writeCallable(w, lit)
	default:
		// MESSAGE carries an opaque host Payload (e.g. a *Status) that has
		// no general wire form; a frame terminated by an ignored/caught
		// error is not expected to be snapshotted mid-unwind.
		return fmt.Errorf("vm: value tag %v has no snapshot form", v.Tag())
	}
}

func readValue(r *bufio.Reader) (value.Value, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case snapNull:
		return value.Null{}, nil
	case snapBool:
		b, err := readBool(r)
		if err != nil {
			return nil, err
		}
		return value.Bool(b), nil
	case snapInt64:
		n, err := readVarint(r)
		if err != nil {
			return nil, err
		}
		return value.Int64(n), nil
	case snapUint64:
		n, err := readVarint(r)
		if err != nil {
			return nil, err
		}
		return value.Uint64(uint64(n)), nil
	case snapDouble:
		n, err := readVarint(r)
		if err != nil {
			return nil, err
		}
		return value.Double(math.Float64frombits(uint64(n))), nil
	case snapString:
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		return value.String(s), nil
	case snapBytes:
		b, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		return value.Bytes(b), nil
	case snapEnum:
		typeName, err := readString(r)
		if err != nil {
			return nil, err
		}
		ordinal, err := readVarint(r)
		if err != nil {
			return nil, err
		}
		return value.Enum{TypeName: typeName, Ordinal: ordinal}, nil
	case snapList:
		n, err := readVarint(r)
		if err != nil {
			return nil, err
		}
		elems := make([]value.Value, n)
		for i := range elems {
			v, err := readValue(r)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return value.NewList(elems...), nil
	case snapMap:
		n, err := readVarint(r)
		if err != nil {
			return nil, err
		}
		m := value.NewMap()
		for i := int64(0); i < n; i++ {
			k, err := readValue(r)
			if err != nil {
				return nil, err
			}
			v, err := readValue(r)
			if err != nil {
				return nil, err
			}
			m = m.Set(k, v)
		}
		return m, nil
	case snapNativeCallable, snapFunctionCallable, snapClosureCallable:
		c, err := readCallableBody(r, tag)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("vm: unknown snapshot value tag %d", tag)
	}
}

func writeVarint(w *bufio.Writer, n int64) error {
	var buf [binary.MaxVarintLen64]byte
	nn := binary.PutVarint(buf[:], n)
	_, err := w.Write(buf[:nn])
	return err
}

func readVarint(r *bufio.Reader) (int64, error) {
	return binary.ReadVarint(r)
}

func writeBool(w *bufio.Writer, b bool) error {
	if b {
		return w.WriteByte(1)
	}
	return w.WriteByte(0)
}

func readBool(r *bufio.Reader) (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func writeBytes(w *bufio.Writer, b []byte) error {
	if err := writeVarint(w, int64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r *bufio.Reader) ([]byte, error) {
	n, err := readVarint(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeString(w *bufio.Writer, s string) error {
	return writeBytes(w, []byte(s))
}

func readString(r *bufio.Reader) (string, error) {
	b, err := readBytes(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
