package natives

import (
	"encoding/hex"
	"testing"

	"workflowasm/value"
	"workflowasm/vm"
)

func TestRipemd160KnownVector(t *testing.T) {
	// RIPEMD-160 of the empty string is a well-known constant.
	got, status := call(t, "ripemd160", value.String(""))
	if status != nil {
		t.Fatalf("unexpected error: %v", status)
	}
	want, err := hex.DecodeString("9c1185a5c5e9fc54612808977ee8f548b2258d31")
	if err != nil {
		t.Fatalf("bad test fixture: %v", err)
	}
	b, ok := got.(value.Bytes)
	if !ok {
		t.Fatalf("ripemd160 returned %T, want value.Bytes", got)
	}
	if hex.EncodeToString([]byte(b)) != hex.EncodeToString(want) {
		t.Errorf("ripemd160(\"\") = %x, want %x", []byte(b), want)
	}
}

func TestRipemd160RejectsNonStringBytes(t *testing.T) {
	if _, status := call(t, "ripemd160", value.Int64(1)); status == nil {
		t.Fatal("expected INVALID_ARGUMENT for an INT64 argument")
	} else if status.Code != vm.INVALID_ARGUMENT {
		t.Errorf("status.Code = %v, want INVALID_ARGUMENT", status.Code)
	}
}

func TestArgon2HashIsDeterministicAndThirtyTwoBytes(t *testing.T) {
	got1, status := call(t, "argon2_hash", value.String("hunter2"), value.Bytes("somesalt"))
	if status != nil {
		t.Fatalf("unexpected error: %v", status)
	}
	got2, status := call(t, "argon2_hash", value.String("hunter2"), value.Bytes("somesalt"))
	if status != nil {
		t.Fatalf("unexpected error: %v", status)
	}
	b1, ok := got1.(value.Bytes)
	if !ok {
		t.Fatalf("argon2_hash returned %T, want value.Bytes", got1)
	}
	b2 := got2.(value.Bytes)
	if len(b1) != 32 {
		t.Errorf("len(argon2_hash(...)) = %d, want 32", len(b1))
	}
	if !value.Equal(b1, b2) {
		t.Errorf("argon2_hash is not deterministic for identical password/salt")
	}
}

func TestArgon2HashRejectsWrongTypes(t *testing.T) {
	if _, status := call(t, "argon2_hash", value.Int64(1), value.Bytes("salt")); status == nil {
		t.Error("expected INVALID_ARGUMENT when password is not STRING")
	}
	if _, status := call(t, "argon2_hash", value.String("pw"), value.Int64(1)); status == nil {
		t.Error("expected INVALID_ARGUMENT when salt is neither BYTES nor STRING")
	}
}

func TestCryptRejectsWrongTypesAndArity(t *testing.T) {
	if _, status := call(t, "crypt", value.Int64(1), value.String("$1$abc")); status == nil {
		t.Error("expected INVALID_ARGUMENT when password is not STRING")
	}
	if _, status := call(t, "crypt", value.String("pw"), value.Int64(1)); status == nil {
		t.Error("expected INVALID_ARGUMENT when salt is not STRING")
	}
	if _, status := call(t, "crypt", value.String("pw")); status == nil {
		t.Error("expected an arity error with only 1 argument")
	}
}
