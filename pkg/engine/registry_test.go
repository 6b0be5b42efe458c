package engine

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestRegistry_Register_Duplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&fakeComponent{name: "postgresql"}); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}

	err := r.Register(&fakeComponent{name: "postgresql"})
	if err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	if !errors.Is(err, &Error{Kind: ErrorKindRegistration, Code: ErrCodeDuplicateName}) {
		t.Errorf("expected DUPLICATE_NAME registration error, got: %v", err)
	}
}

func TestRegistry_Register_UnknownDependency(t *testing.T) {
	r := NewRegistry()
	err := r.Register(&fakeComponent{name: "postgis", deps: []string{"postgresql"}})
	if err == nil {
		t.Fatal("expected registration with unknown dependency to fail")
	}
	if !errors.Is(err, &Error{Kind: ErrorKindRegistration, Code: ErrCodeUnknownDependency}) {
		t.Errorf("expected UNKNOWN_DEPENDENCY error, got: %v", err)
	}
	if !strings.Contains(err.Error(), `"postgresql"`) {
		t.Errorf("error should name the missing dependency, got: %v", err)
	}
}

func TestRegistry_Register_EmptyName(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&fakeComponent{name: ""}); err == nil {
		t.Fatal("expected empty name to be rejected")
	}
}

func TestRegistry_Resolve_Order(t *testing.T) {
	// a <- b <- c plus d depending on a: every dependency must precede
	// its dependents, ties broken by registration order.
	r := buildRegistry(t,
		&fakeComponent{name: "a"},
		&fakeComponent{name: "b", deps: []string{"a"}},
		&fakeComponent{name: "c", deps: []string{"b"}},
		&fakeComponent{name: "d", deps: []string{"a"}},
	)

	plan, err := r.Resolve(nil)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	got := plan.Names()
	want := []string{"a", "b", "d", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected order %v, got %v", want, got)
	}
}

func TestRegistry_Resolve_OrderProperty(t *testing.T) {
	r := buildRegistry(t,
		&fakeComponent{name: "a"},
		&fakeComponent{name: "b"},
		&fakeComponent{name: "c", deps: []string{"a", "b"}},
		&fakeComponent{name: "d", deps: []string{"c"}},
		&fakeComponent{name: "e", deps: []string{"b"}},
	)

	plan, err := r.Resolve(nil)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	position := make(map[string]int)
	for i, name := range plan.Names() {
		position[name] = i
	}
	for _, name := range r.Names() {
		desc, _ := r.Descriptor(name)
		for _, dep := range desc.Dependencies {
			if position[dep] >= position[name] {
				t.Errorf("dependency %q must precede %q, got positions %d and %d",
					dep, name, position[dep], position[name])
			}
		}
	}
}

func TestRegistry_Resolve_Deterministic(t *testing.T) {
	r := buildRegistry(t,
		&fakeComponent{name: "a"},
		&fakeComponent{name: "b"},
		&fakeComponent{name: "c"},
	)

	first, err := r.Resolve(nil)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := r.Resolve(nil)
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if !reflect.DeepEqual(first.Names(), again.Names()) {
			t.Fatalf("resolution is not deterministic: %v vs %v", first.Names(), again.Names())
		}
	}
	if !reflect.DeepEqual(first.Names(), []string{"a", "b", "c"}) {
		t.Errorf("ties should break by registration order, got %v", first.Names())
	}
}

func TestRegistry_Resolve_SubsetClosure(t *testing.T) {
	r := buildRegistry(t,
		&fakeComponent{name: "postgresql"},
		&fakeComponent{name: "postgis", deps: []string{"postgresql"}},
		&fakeComponent{name: "osmdata", deps: []string{"postgis"}},
		&fakeComponent{name: "nginx"},
	)

	plan, err := r.Resolve([]string{"osmdata"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	want := []string{"postgresql", "postgis", "osmdata"}
	if !reflect.DeepEqual(plan.Names(), want) {
		t.Errorf("expected closure %v, got %v", want, plan.Names())
	}
}

func TestRegistry_Resolve_UnknownComponent(t *testing.T) {
	r := buildRegistry(t, &fakeComponent{name: "a"})

	_, err := r.Resolve([]string{"nope"})
	if err == nil {
		t.Fatal("expected resolve of unknown component to fail")
	}
	if !errors.Is(err, &Error{Kind: ErrorKindRegistration, Code: ErrCodeNotFound}) {
		t.Errorf("expected NOT_FOUND error, got: %v", err)
	}
	if !strings.Contains(err.Error(), `"nope"`) {
		t.Errorf("error should name the unknown component, got: %v", err)
	}
}

func TestRegistry_Resolve_CycleDetection(t *testing.T) {
	// Register cannot build a cycle (dependencies must pre-exist), so wire
	// one directly into the registry's internals.
	r := buildRegistry(t,
		&fakeComponent{name: "a"},
		&fakeComponent{name: "b", deps: []string{"a"}},
		&fakeComponent{name: "c", deps: []string{"b"}},
		&fakeComponent{name: "standalone"},
	)
	descA := r.descriptors["a"]
	descA.Dependencies = []string{"c"}
	r.descriptors["a"] = descA

	_, err := r.Resolve(nil)
	if err == nil {
		t.Fatal("expected cycle to be detected")
	}
	if !errors.Is(err, &Error{Kind: ErrorKindRegistration, Code: ErrCodeCycle}) {
		t.Errorf("expected CYCLIC_DEPENDENCY error, got: %v", err)
	}

	// The message must name exactly the cycle members, not bystanders.
	msg := err.Error()
	for _, member := range []string{"a", "b", "c"} {
		if !strings.Contains(msg, member) {
			t.Errorf("cycle error should name %q, got: %v", member, err)
		}
	}
	if strings.Contains(msg, "standalone") {
		t.Errorf("cycle error should not name uninvolved components, got: %v", err)
	}
}

func TestRegistry_Get(t *testing.T) {
	r := buildRegistry(t, &fakeComponent{name: "a"})

	if _, err := r.Get("a"); err != nil {
		t.Errorf("expected to find registered component: %v", err)
	}
	if _, err := r.Get("missing"); !errors.Is(err, &Error{Kind: ErrorKindRegistration, Code: ErrCodeNotFound}) {
		t.Errorf("expected NOT_FOUND error, got: %v", err)
	}
}

func TestRegistry_DescriptorCapturesOptionalInterfaces(t *testing.T) {
	r := buildRegistry(t, &fakeComponent{name: "postgis", desc: "spatial extensions", cat: "database"})

	d, err := r.Descriptor("postgis")
	if err != nil {
		t.Fatalf("descriptor lookup failed: %v", err)
	}
	if d.Description != "spatial extensions" {
		t.Errorf("expected description to be captured, got %q", d.Description)
	}
	if d.Category != "database" {
		t.Errorf("expected category to be captured, got %q", d.Category)
	}
}

func TestExecutionPlan_Reversed(t *testing.T) {
	plan := &ExecutionPlan{Steps: []PlanStep{{Name: "a"}, {Name: "b"}, {Name: "c"}}}
	got := plan.Reversed().Names()
	want := []string{"c", "b", "a"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if plan.Names()[0] != "a" {
		t.Error("Reversed must not mutate the original plan")
	}
}
