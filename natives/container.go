package natives

import (
	"workflowasm/value"
	"workflowasm/vm"
)

// registerContainers gives compiled source a way to index and update
// LIST/MAP values. The bytecode instruction set has no dedicated indexing
// opcode (only stack-position addressing via DUP/ROLL), so element access
// on a container compiles to a CALL against these natives instead.
func registerContainers(r *Registry) {
	r.Register("list_get", vm.NativeFunc(listGet))
	r.Register("list_set", vm.NativeFunc(listSet))
	r.Register("list_append", vm.NativeFunc(listAppend))
	r.Register("map_get", vm.NativeFunc(mapGet))
	r.Register("map_set", vm.NativeFunc(mapSet))
	r.Register("map_delete", vm.NativeFunc(mapDelete))
	r.Register("map_keys", vm.NativeFunc(mapKeys))
}

func listGet(_ *vm.State, args []value.Value) (value.Value, *vm.Status) {
	if len(args) != 2 {
		return nil, arityError("list_get", 2, len(args))
	}
	list, ok := args[0].(*value.List)
	if !ok {
		return nil, &vm.Status{Code: vm.INVALID_ARGUMENT, Message: "list_get: first argument must be LIST"}
	}
	idx, ok := args[1].(value.Int64)
	if !ok {
		return nil, &vm.Status{Code: vm.INVALID_ARGUMENT, Message: "list_get: index must be INT64"}
	}
	v, ok := list.Get(int(idx))
	if !ok {
		return nil, &vm.Status{Code: vm.OUT_OF_RANGE, Message: "list_get: index out of range"}
	}
	return v, nil
}

func listSet(_ *vm.State, args []value.Value) (value.Value, *vm.Status) {
	if len(args) != 3 {
		return nil, arityError("list_set", 3, len(args))
	}
	list, ok := args[0].(*value.List)
	if !ok {
		return nil, &vm.Status{Code: vm.INVALID_ARGUMENT, Message: "list_set: first argument must be LIST"}
	}
	idx, ok := args[1].(value.Int64)
	if !ok {
		return nil, &vm.Status{Code: vm.INVALID_ARGUMENT, Message: "list_set: index must be INT64"}
	}
	if int(idx) < 0 || int(idx) >= list.Len() {
		return nil, &vm.Status{Code: vm.OUT_OF_RANGE, Message: "list_set: index out of range"}
	}
	return list.Set(int(idx), args[2]), nil
}

func listAppend(_ *vm.State, args []value.Value) (value.Value, *vm.Status) {
	if len(args) != 2 {
		return nil, arityError("list_append", 2, len(args))
	}
	list, ok := args[0].(*value.List)
	if !ok {
		return nil, &vm.Status{Code: vm.INVALID_ARGUMENT, Message: "list_append: first argument must be LIST"}
	}
	return list.Append(args[1]), nil
}

func mapGet(_ *vm.State, args []value.Value) (value.Value, *vm.Status) {
	if len(args) != 2 {
		return nil, arityError("map_get", 2, len(args))
	}
	m, ok := args[0].(*value.Map)
	if !ok {
		return nil, &vm.Status{Code: vm.INVALID_ARGUMENT, Message: "map_get: first argument must be MAP"}
	}
	if !value.IsMapKey(args[1]) {
		return nil, &vm.Status{Code: vm.INVALID_ARGUMENT, Message: "map_get: key is not a valid MapKey"}
	}
	v, ok := m.Get(args[1])
	if !ok {
		return nil, &vm.Status{Code: vm.OUT_OF_RANGE, Message: "map_get: key not found"}
	}
	return v, nil
}

func mapSet(_ *vm.State, args []value.Value) (value.Value, *vm.Status) {
	if len(args) != 3 {
		return nil, arityError("map_set", 3, len(args))
	}
	m, ok := args[0].(*value.Map)
	if !ok {
		return nil, &vm.Status{Code: vm.INVALID_ARGUMENT, Message: "map_set: first argument must be MAP"}
	}
	if !value.IsMapKey(args[1]) {
		return nil, &vm.Status{Code: vm.INVALID_ARGUMENT, Message: "map_set: key is not a valid MapKey"}
	}
	return m.Set(args[1], args[2]), nil
}

func mapDelete(_ *vm.State, args []value.Value) (value.Value, *vm.Status) {
	if len(args) != 2 {
		return nil, arityError("map_delete", 2, len(args))
	}
	m, ok := args[0].(*value.Map)
	if !ok {
		return nil, &vm.Status{Code: vm.INVALID_ARGUMENT, Message: "map_delete: first argument must be MAP"}
	}
	if !value.IsMapKey(args[1]) {
		return nil, &vm.Status{Code: vm.INVALID_ARGUMENT, Message: "map_delete: key is not a valid MapKey"}
	}
	return m.Delete(args[1]), nil
}

func mapKeys(_ *vm.State, args []value.Value) (value.Value, *vm.Status) {
	if len(args) != 1 {
		return nil, arityError("map_keys", 1, len(args))
	}
	m, ok := args[0].(*value.Map)
	if !ok {
		return nil, &vm.Status{Code: vm.INVALID_ARGUMENT, Message: "map_keys: argument must be MAP"}
	}
	return value.NewList(m.Keys()...), nil
}
