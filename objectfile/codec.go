package objectfile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"

	"workflowasm/bytecode"
	"workflowasm/value"
)

// Wire value type tags. Only the tags the compiler can ever place in a
// constant table appear here : the compiler folds scalar
// literals and native/function references into PUSHK constants, but
// builds MAP/LIST values at runtime via natives (compiler/il/lower.go),
// so those never need a wire form here.
const (
	wireNull byte = iota
	wireBool
	wireInt64
	wireUint64
	wireDouble
	wireString
	wireBytes
	wireNativeCallable
	wireFunctionCallable
)

// Encode writes ob in the length-prefixed record format: a header (package
// name, function count), then per function (name, instruction count, raw
// instructions, constant count, constants). Every variable-length field is
// prefixed with its length as a binary.Varint.
func Encode(w io.Writer, ob *ObjectFile) error {
	bw := bufio.NewWriter(w)
	if err := writeString(bw, ob.Package); err != nil {
		return err
	}
	names := make([]string, 0, len(ob.Functions))
	for name := range ob.Functions {
		names = append(names, name)
	}
	sort.Strings(names) // deterministic output for reproducible builds/tests

	if err := writeVarint(bw, int64(len(names))); err != nil {
		return err
	}
	for _, name := range names {
		if err := writeFunction(bw, name, ob.Functions[name]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeFunction(w *bufio.Writer, name string, fn *bytecode.Function) error {
	if err := writeString(w, name); err != nil {
		return err
	}
	if err := writeVarint(w, int64(len(fn.Instructions))); err != nil {
		return err
	}
	for _, inst := range fn.Instructions {
		if err := w.WriteByte(byte(inst.Op)); err != nil {
			return err
		}
		if err := writeVarint(w, int64(inst.Arg)); err != nil {
			return err
		}
	}
	if err := writeVarint(w, int64(len(fn.Constants))); err != nil {
		return err
	}
	for _, k := range fn.Constants {
		if err := writeValue(w, k); err != nil {
			return err
		}
	}
	return nil
}

func writeValue(w *bufio.Writer, v value.Value) error {
	switch lit := v.(type) {
	case value.Null:
		return w.WriteByte(wireNull)
	case value.Bool:
		if err := w.WriteByte(wireBool); err != nil {
			return err
		}
		b := byte(0)
		if bool(lit) {
			b = 1
		}
		return w.WriteByte(b)
	case value.Int64:
		if err := w.WriteByte(wireInt64); err != nil {
			return err
		}
		return writeVarint(w, int64(lit))
	case value.Uint64:
		if err := w.WriteByte(wireUint64); err != nil {
			return err
		}
		return writeVarint(w, int64(lit))
	case value.Double:
		if err := w.WriteByte(wireDouble); err != nil {
			return err
		}
		return writeVarint(w, int64(math.Float64bits(float64(lit))))
	case value.String:
		if err := w.WriteByte(wireString); err != nil {
			return err
		}
		return writeString(w, string(lit))
	case value.Bytes:
		if err := w.WriteByte(wireBytes); err != nil {
			return err
		}
		return writeBytes(w, []byte(lit))
	case value.Callable:
		switch lit.Kind {
		case value.NativeCallable:
			if err := w.WriteByte(wireNativeCallable); err != nil {
				return err
			}
			return writeString(w, lit.ID)
		case value.FunctionCallable:
			if err := w.WriteByte(wireFunctionCallable); err != nil {
				return err
			}
			return writeString(w, lit.ID)
		default:
			return fmt.Errorf("objectfile: CALLABLE kind %d has no wire form (closures are never compiler constants)", lit.Kind)
		}
	default:
		return fmt.Errorf("objectfile: value tag %v has no wire form", v.Tag())
	}
}

// Decode reads an ObjectFile written by Encode.
func Decode(r io.Reader) (*ObjectFile, error) {
	br := bufio.NewReader(r)
	pkg, err := readString(br)
	if err != nil {
		return nil, err
	}
	count, err := readVarint(br)
	if err != nil {
		return nil, err
	}
	fns := make(map[string]*bytecode.Function, count)
	for i := int64(0); i < count; i++ {
		name, fn, err := readFunction(br)
		if err != nil {
			return nil, err
		}
		fns[name] = fn
	}
	return &ObjectFile{Package: pkg, Functions: fns}, nil
}

func readFunction(r *bufio.Reader) (string, *bytecode.Function, error) {
	name, err := readString(r)
	if err != nil {
		return "", nil, err
	}
	instrCount, err := readVarint(r)
	if err != nil {
		return "", nil, err
	}
	instrs := make([]bytecode.Instruction, instrCount)
	for i := range instrs {
		op, err := r.ReadByte()
		if err != nil {
			return "", nil, err
		}
		arg, err := readVarint(r)
		if err != nil {
			return "", nil, err
		}
		instrs[i] = bytecode.Instruction{Op: bytecode.OpCode(op), Arg: int32(arg)}
	}
	kCount, err := readVarint(r)
	if err != nil {
		return "", nil, err
	}
	ks := make([]value.Value, kCount)
	for i := range ks {
		v, err := readValue(r)
		if err != nil {
			return "", nil, err
		}
		ks[i] = v
	}
	return name, &bytecode.Function{Instructions: instrs, Constants: ks}, nil
}

func readValue(r *bufio.Reader) (value.Value, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case wireNull:
		return value.Null{}, nil
	case wireBool:
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return value.Bool(b != 0), nil
	case wireInt64:
		n, err := readVarint(r)
		if err != nil {
			return nil, err
		}
		return value.Int64(n), nil
	case wireUint64:
		n, err := readVarint(r)
		if err != nil {
			return nil, err
		}
		return value.Uint64(uint64(n)), nil
	case wireDouble:
		n, err := readVarint(r)
		if err != nil {
			return nil, err
		}
		return value.Double(math.Float64frombits(uint64(n))), nil
	case wireString:
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		return value.String(s), nil
	case wireBytes:
		b, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		return value.Bytes(b), nil
	case wireNativeCallable:
		id, err := readString(r)
		if err != nil {
			return nil, err
		}
		return value.NewNative(id), nil
	case wireFunctionCallable:
		id, err := readString(r)
		if err != nil {
			return nil, err
		}
		return value.NewFunction(id), nil
	default:
		return nil, fmt.Errorf("objectfile: unknown wire value tag %d", tag)
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
