package bot

import (
	"context"
	"reflect"
	"testing"
)

func nopHandler(ctx context.Context, inv *Invocation) (*Result, error) {
	return &Result{Text: "ok"}, nil
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Spec{Name: "ping", Level: LevelNone, Fn: nopHandler}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	spec, ok := r.Lookup("ping")
	if !ok {
		t.Fatal("Lookup failed for registered command")
	}
	if spec.Name != "ping" {
		t.Errorf("spec.Name = %q", spec.Name)
	}
	if _, ok := r.Lookup("pong"); ok {
		t.Error("Lookup should miss for unregistered command")
	}
}

func TestRegistryRejectsBadSpecs(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Spec{Name: "", Fn: nopHandler}); err == nil {
		t.Error("empty name should be rejected")
	}
	if err := r.Register(Spec{Name: "x", Fn: nil}); err == nil {
		t.Error("nil handler should be rejected")
	}
	if err := r.Register(Spec{Name: "x", Level: Level(42), Fn: nopHandler}); err == nil {
		t.Error("unknown level should be rejected")
	}
}

func TestRegistryRejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Spec{Name: "ping", Fn: nopHandler}); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := r.Register(Spec{Name: "ping", Fn: nopHandler}); err == nil {
		t.Error("duplicate registration should fail")
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	r := NewRegistry()
	for _, n := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(Spec{Name: n, Fn: nopHandler}); err != nil {
			t.Fatalf("Register %q: %v", n, err)
		}
	}
	want := []string{"alpha", "mid", "zeta"}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names = %v, want %v", got, want)
	}
}

func TestMustRegisterPanicsOnConflict(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustRegister should panic on duplicate")
		}
	}()
	r := NewRegistry()
	r.MustRegister(
		Spec{Name: "ping", Fn: nopHandler},
		Spec{Name: "ping", Fn: nopHandler},
	)
}
