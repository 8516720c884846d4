package expect

import (
	"errors"
	"testing"
)

func TestFunctionRegistryRegisterAndCall(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("Upper", func(args ...any) (any, error) { return len(args), nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := registry.Register("upper", func(args ...any) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	got, err := registry.Call("UPPER", 1, 2)
	if err != nil || got != 2 {
		t.Fatalf("expected case-insensitive call, got %v (%v)", got, err)
	}
	if _, err := registry.Call("missing"); err == nil {
		t.Fatalf("expected unknown function error")
	}
}

func TestFunctionRegistryRejectsReservedNames(t *testing.T) {
	registry := NewFunctionRegistry()
	for _, name := range []string{CandidateBinding, PresentBinding, "Expected", "call", ""} {
		if err := registry.Register(name, func(...any) (any, error) { return nil, nil }); err == nil {
			t.Fatalf("expected %q to be rejected", name)
		}
	}
}

func TestFunctionRegistrySeal(t *testing.T) {
	registry := NewFunctionRegistry()
	registry.Seal()
	err := registry.Register("late", func(...any) (any, error) { return nil, nil })
	if !errors.Is(err, ErrRegistrySealed) {
		t.Fatalf("expected ErrRegistrySealed, got %v", err)
	}

	open := NewFunctionRegistry().MustRegister("a", func(...any) (any, error) { return nil, nil })
	clone := open.Clone()
	if !clone.Sealed() || open.Sealed() {
		t.Fatalf("expected clone to be sealed and source to stay open")
	}
	if names := clone.Names(); len(names) != 1 || names[0] != "a" {
		t.Fatalf("unexpected clone names %v", names)
	}
}
