package natives

import (
	"strconv"

	"workflowasm/value"
	"workflowasm/vm"
)

func registerCasts(r *Registry) {
	r.Register("int64", vm.NativeFunc(castInt64))
	r.Register("uint64", vm.NativeFunc(castUint64))
	r.Register("double", vm.NativeFunc(castDouble))
	r.Register("bool", vm.NativeFunc(castBool))
	r.Register("string", vm.NativeFunc(castString))
	r.Register("len", vm.NativeFunc(lenNative))
}

func arityError(name string, want, got int) *vm.Status {
	return &vm.Status{Code: vm.INVALID_ARGUMENT, Message: argMismatch(name, want, got)}
}

func argMismatch(name string, want, got int) string {
	return name + ": expected " + strconv.Itoa(want) + " argument(s), got " + strconv.Itoa(got)
}

func castInt64(_ *vm.State, args []value.Value) (value.Value, *vm.Status) {
	if len(args) != 1 {
		return nil, arityError("int64", 1, len(args))
	}
	switch v := args[0].(type) {
	case value.Int64:
		return v, nil
	case value.Uint64:
		return value.Int64(v), nil
	case value.Double:
		return value.Int64(int64(v)), nil
	case value.Bool:
		if v {
			return value.Int64(1), nil
		}
		return value.Int64(0), nil
	default:
		return nil, &vm.Status{Code: vm.INVALID_ARGUMENT, Message: "int64: cannot cast " + v.Tag().String()}
	}
}

func castUint64(_ *vm.State, args []value.Value) (value.Value, *vm.Status) {
	if len(args) != 1 {
		return nil, arityError("uint64", 1, len(args))
	}
	switch v := args[0].(type) {
	case value.Uint64:
		return v, nil
	case value.Int64:
		return value.Uint64(v), nil
	case value.Double:
		return value.Uint64(int64(v)), nil
	case value.Bool:
		if v {
			return value.Uint64(1), nil
		}
		return value.Uint64(0), nil
	default:
		return nil, &vm.Status{Code: vm.INVALID_ARGUMENT, Message: "uint64: cannot cast " + v.Tag().String()}
	}
}

func castDouble(_ *vm.State, args []value.Value) (value.Value, *vm.Status) {
	if len(args) != 1 {
		return nil, arityError("double", 1, len(args))
	}
	switch v := args[0].(type) {
	case value.Double:
		return v, nil
	case value.Int64:
		return value.Double(v), nil
	case value.Uint64:
		return value.Double(v), nil
	case value.Bool:
		if v {
			return value.Double(1), nil
		}
		return value.Double(0), nil
	default:
		return nil, &vm.Status{Code: vm.INVALID_ARGUMENT, Message: "double: cannot cast " + v.Tag().String()}
	}
}

func castBool(_ *vm.State, args []value.Value) (value.Value, *vm.Status) {
	if len(args) != 1 {
		return nil, arityError("bool", 1, len(args))
	}
	return value.Bool(value.Truthy(args[0])), nil
}

func castString(_ *vm.State, args []value.Value) (value.Value, *vm.Status) {
	if len(args) != 1 {
		return nil, arityError("string", 1, len(args))
	}
	return value.String(args[0].String()), nil
}

// lenNative computes: STRING (code-unit length, taken as UTF-8 byte count
// since STRING is immutable UTF-8 text), BYTES (byte length), LIST
// (element count), MAP (entry count).
func lenNative(_ *vm.State, args []value.Value) (value.Value, *vm.Status) {
	if len(args) != 1 {
		return nil, arityError("len", 1, len(args))
	}
	switch v := args[0].(type) {
	case value.String:
		return value.Int64(len(v)), nil
	case value.Bytes:
		return value.Int64(len(v)), nil
	case *value.List:
		return value.Int64(v.Len()), nil
	case *value.Map:
		return value.Int64(v.Len()), nil
	default:
		return nil, &vm.Status{Code: vm.INVALID_ARGUMENT, Message: "len: unsupported type " + v.Tag().String()}
	}
}
