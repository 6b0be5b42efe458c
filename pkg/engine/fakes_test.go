package engine

import (
	"context"
	"fmt"
	"testing"
)

// fakeComponent is a scriptable Configurator for tests.
type fakeComponent struct {
	name string
	deps []string
	desc string
	cat  string

	installErr   error
	uninstallErr error
	installed    bool
	probeErr     error
	panicOn      bool

	log *[]string
}

func (f *fakeComponent) Name() string           { return f.name }
func (f *fakeComponent) Dependencies() []string { return f.deps }
func (f *fakeComponent) Description() string    { return f.desc }
func (f *fakeComponent) Category() string       { return f.cat }

func (f *fakeComponent) Install(_ context.Context, _ *ExecutionContext) error {
	if f.log != nil {
		*f.log = append(*f.log, "install:"+f.name)
	}
	if f.panicOn {
		panic("boom in " + f.name)
	}
	return f.installErr
}

func (f *fakeComponent) Uninstall(_ context.Context, _ *ExecutionContext) error {
	if f.log != nil {
		*f.log = append(*f.log, "uninstall:"+f.name)
	}
	return f.uninstallErr
}

func (f *fakeComponent) IsInstalled(_ context.Context, _ *ExecutionContext) (bool, error) {
	return f.installed, f.probeErr
}

// memStore is an in-memory StateStore.
type memStore struct {
	entries []string
	index   map[string]struct{}

	resetOnValidate bool
	validateErr     error
	markErr         error

	opens  int
	closes int
	clears int
}

func newMemStore() *memStore {
	return &memStore{index: make(map[string]struct{})}
}

func (m *memStore) ValidateOrReset() (bool, error) {
	if m.validateErr != nil {
		return false, m.validateErr
	}
	if m.resetOnValidate {
		m.entries = nil
		m.index = make(map[string]struct{})
		m.resetOnValidate = false
		return true, nil
	}
	return false, nil
}

func (m *memStore) IsCompleted(stepID string) bool {
	_, ok := m.index[stepID]
	return ok
}

func (m *memStore) MarkCompleted(stepID string) error {
	if m.markErr != nil {
		return m.markErr
	}
	if _, dup := m.index[stepID]; dup {
		return nil
	}
	m.entries = append(m.entries, stepID)
	m.index[stepID] = struct{}{}
	return nil
}

func (m *memStore) ListCompleted() []string {
	return append([]string(nil), m.entries...)
}

func (m *memStore) Clear() error {
	m.clears++
	m.entries = nil
	m.index = make(map[string]struct{})
	return nil
}

func (m *memStore) Close() error {
	m.closes++
	return nil
}

func (m *memStore) opener() StoreOpener {
	return StoreOpenerFunc(func() (StateStore, error) {
		m.opens++
		return m, nil
	})
}

// memCapability records EnsureResource and ApplyManifest calls.
type memCapability struct {
	ensured   []string
	manifests []string
	ensureErr error
}

func (c *memCapability) EnsureResource(_ context.Context, kind, name string) error {
	if c.ensureErr != nil {
		return c.ensureErr
	}
	c.ensured = append(c.ensured, fmt.Sprintf("%s/%s", kind, name))
	return nil
}

func (c *memCapability) ApplyManifest(_ context.Context, fragment ManifestFragment) error {
	c.manifests = append(c.manifests, fragment.Name)
	return nil
}

// buildRegistry registers a chain of fake components and returns them by
// name.
func buildRegistry(t *testing.T, components ...*fakeComponent) *Registry {
	t.Helper()
	r := NewRegistry()
	for _, c := range components {
		if err := r.Register(c); err != nil {
			t.Fatalf("failed to register %q: %v", c.name, err)
		}
	}
	return r
}
