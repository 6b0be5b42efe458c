package catalog

import (
	"context"
	"testing"

	"github.com/OpenTasmania/oj-server-sub001/pkg/engine"
)

// recordingProvisioner logs every delegated call.
type recordingProvisioner struct {
	calls []string
}

func (p *recordingProvisioner) Install(_ context.Context, _ *engine.ExecutionContext, component string) error {
	p.calls = append(p.calls, "install:"+component)
	return nil
}

func (p *recordingProvisioner) Uninstall(_ context.Context, _ *engine.ExecutionContext, component string) error {
	p.calls = append(p.calls, "uninstall:"+component)
	return nil
}

func (p *recordingProvisioner) Installed(_ context.Context, _ *engine.ExecutionContext, component string) (bool, error) {
	p.calls = append(p.calls, "probe:"+component)
	return false, nil
}

func TestRegister_WholeManifest(t *testing.T) {
	r := engine.NewRegistry()
	if err := Register(r, &recordingProvisioner{}); err != nil {
		t.Fatalf("registration failed: %v", err)
	}
	if r.Len() != len(Components()) {
		t.Errorf("expected %d components registered, got %d", len(Components()), r.Len())
	}
}

func TestManifest_DependenciesRegisteredFirst(t *testing.T) {
	seen := make(map[string]bool)
	for _, e := range Components() {
		for _, dep := range e.Dependencies {
			if !seen[dep] {
				t.Errorf("component %q depends on %q which appears later in the manifest", e.Name, dep)
			}
		}
		seen[e.Name] = true
	}
}

func TestManifest_ResolvesAcyclically(t *testing.T) {
	r := engine.NewRegistry()
	if err := Register(r, &recordingProvisioner{}); err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	plan, err := r.Resolve(nil)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(plan.Steps) != len(Components()) {
		t.Errorf("expected %d plan steps, got %d", len(Components()), len(plan.Steps))
	}

	position := make(map[string]int)
	for i, name := range plan.Names() {
		position[name] = i
	}
	for _, e := range Components() {
		for _, dep := range e.Dependencies {
			if position[dep] >= position[e.Name] {
				t.Errorf("%q must come before %q in the plan", dep, e.Name)
			}
		}
	}
}

func TestConfigurator_DelegatesToProvisioner(t *testing.T) {
	r := engine.NewRegistry()
	prov := &recordingProvisioner{}
	if err := Register(r, prov); err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	c, err := r.Get("postgis")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}

	run := engine.NewExecutionContext(nil)
	ctx := context.Background()

	if err := c.Install(ctx, run); err != nil {
		t.Fatalf("install failed: %v", err)
	}
	if err := c.Uninstall(ctx, run); err != nil {
		t.Fatalf("uninstall failed: %v", err)
	}
	if _, err := c.IsInstalled(ctx, run); err != nil {
		t.Fatalf("probe failed: %v", err)
	}

	want := []string{"install:postgis", "uninstall:postgis", "probe:postgis"}
	for i, call := range want {
		if prov.calls[i] != call {
			t.Errorf("expected call %d to be %s, got %s", i, call, prov.calls[i])
		}
	}
}

func TestConfigurator_ExposesDescriptorMetadata(t *testing.T) {
	r := engine.NewRegistry()
	if err := Register(r, &recordingProvisioner{}); err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	d, err := r.Descriptor("osrm")
	if err != nil {
		t.Fatalf("descriptor lookup failed: %v", err)
	}
	if d.Category != CategoryRouting {
		t.Errorf("expected routing category, got %q", d.Category)
	}
	if d.Description == "" {
		t.Error("expected a description")
	}
}

func TestGTFSResources_CoreTablesRequired(t *testing.T) {
	required := 0
	optional := 0
	for _, r := range GTFSResources() {
		if r.Feature == "" {
			required++
		} else {
			optional++
		}
	}
	if required == 0 {
		t.Error("expected required core tables")
	}
	if optional == 0 {
		t.Error("expected feature-gated optional tables")
	}
}

func TestRegisterHooks_LazyProvisioning(t *testing.T) {
	hooks := engine.NewHooks()
	if err := RegisterHooks(hooks); err != nil {
		t.Fatalf("hook registration failed: %v", err)
	}

	cap := &recordingCapability{}

	// Without flags only the required tables are created.
	run := engine.NewExecutionContext(nil)
	if err := hooks.FireProvision(context.Background(), run, engine.BeforeResourceProvision, cap); err != nil {
		t.Fatalf("provisioning hook failed: %v", err)
	}
	base := len(cap.ensured)

	// Enabling shapes adds exactly its table.
	cap.ensured = nil
	run = engine.NewExecutionContext(map[string]bool{FeatureShapes: true})
	if err := hooks.FireProvision(context.Background(), run, engine.BeforeResourceProvision, cap); err != nil {
		t.Fatalf("provisioning hook failed: %v", err)
	}
	if len(cap.ensured) != base+1 {
		t.Errorf("expected %d resources with shapes enabled, got %d", base+1, len(cap.ensured))
	}
}

type recordingCapability struct {
	ensured []string
}

func (c *recordingCapability) EnsureResource(_ context.Context, kind, name string) error {
	c.ensured = append(c.ensured, kind+"/"+name)
	return nil
}

func (c *recordingCapability) ApplyManifest(_ context.Context, _ engine.ManifestFragment) error {
	return nil
}
