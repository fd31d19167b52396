package natives

import (
	"strings"

	crypt "github.com/amoghe/go-crypt"
	"github.com/sergeymakinen/go-crypt/apr1crypt"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/ripemd160"

	"workflowasm/value"
	"workflowasm/vm"
)

// registerCrypto adds the supplemental crypto natives this repo provides
// beyond the core built-in list: password hashing and digest primitives,
// reachable without the host needing to special-case anything beyond a
// native id lookup.
func registerCrypto(r *Registry) {
	r.Register("ripemd160", vm.NativeFunc(ripemd160Native))
	r.Register("argon2_hash", vm.NativeFunc(argon2HashNative))
	r.Register("crypt", vm.NativeFunc(cryptNative))
}

func ripemd160Native(_ *vm.State, args []value.Value) (value.Value, *vm.Status) {
	if len(args) != 1 {
		return nil, arityError("ripemd160", 1, len(args))
	}
	var data []byte
	switch v := args[0].(type) {
	case value.String:
		data = []byte(v)
	case value.Bytes:
		data = []byte(v)
	default:
		return nil, &vm.Status{Code: vm.INVALID_ARGUMENT, Message: "ripemd160: expected STRING or BYTES"}
	}
	h := ripemd160.New()
	h.Write(data)
	return value.Bytes(h.Sum(nil)), nil
}

// argon2HashNative derives a 32-byte key with Argon2id using fixed
// parameters (2 passes, 19 MiB of memory, 1 thread): one opinionated
// hashing builtin rather than a tunable-everything one.
func argon2HashNative(_ *vm.State, args []value.Value) (value.Value, *vm.Status) {
	if len(args) != 2 {
		return nil, arityError("argon2_hash", 2, len(args))
	}
	password, ok := args[0].(value.String)
	if !ok {
		return nil, &vm.Status{Code: vm.INVALID_ARGUMENT, Message: "argon2_hash: password must be STRING"}
	}
	var salt []byte
	switch s := args[1].(type) {
	case value.Bytes:
		salt = []byte(s)
	case value.String:
		salt = []byte(s)
	default:
		return nil, &vm.Status{Code: vm.INVALID_ARGUMENT, Message: "argon2_hash: salt must be BYTES or STRING"}
	}
	const (
		time    = 2
		memory  = 19 * 1024
		threads = 1
		keyLen  = 32
	)
	digest := argon2.IDKey([]byte(password), salt, time, memory, threads, keyLen)
	return value.Bytes(digest), nil
}

// cryptNative hashes a password against a crypt(3)-style salt without
// depending on cgo: glibc-family salts ($1$/$5$/$6$ and traditional DES)
// go through github.com/amoghe/go-crypt, and Apache's $apr1$ variant goes
// through github.com/sergeymakinen/go-crypt/apr1crypt, as a portable
// equivalent to a platform-specific crypt(3) call.
func cryptNative(_ *vm.State, args []value.Value) (value.Value, *vm.Status) {
	if len(args) != 2 {
		return nil, arityError("crypt", 2, len(args))
	}
	password, ok := args[0].(value.String)
	if !ok {
		return nil, &vm.Status{Code: vm.INVALID_ARGUMENT, Message: "crypt: password must be STRING"}
	}
	salt, ok := args[1].(value.String)
	if !ok {
		return nil, &vm.Status{Code: vm.INVALID_ARGUMENT, Message: "crypt: salt must be STRING"}
	}

	if strings.HasPrefix(string(salt), "$apr1$") {
		hashed, err := apr1crypt.Crypt([]byte(password), []byte(salt))
		if err != nil {
			return nil, &vm.Status{Code: vm.INVALID_ARGUMENT, Message: "crypt: " + err.Error()}
		}
		return value.String(hashed), nil
	}

	hashed, err := crypt.Crypt(string(password), string(salt))
	if err != nil {
		return nil, &vm.Status{Code: vm.INVALID_ARGUMENT, Message: "crypt: " + err.Error()}
	}
	return value.String(hashed), nil
}
