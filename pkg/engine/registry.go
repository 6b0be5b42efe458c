package engine

import (
	"fmt"
	"sort"
	"strings"
)

// Registry holds all registered configurators and resolves
// dependency-respecting execution plans.
//
// Registration is explicit and happens at startup, strictly before any run
// begins. Dependencies are validated eagerly: a component may only depend on
// components registered before it, so the graph is acyclic by construction
// at registration time. Resolve still detects cycles defensively since plans
// can be requested for descriptor sets assembled by other means.
type Registry struct {
	components  map[string]Configurator
	descriptors map[string]ComponentDescriptor
	order       []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		components:  make(map[string]Configurator),
		descriptors: make(map[string]ComponentDescriptor),
	}
}

// Register adds a configurator to the registry. It fails with a
// DUPLICATE_NAME error on name collision and an UNKNOWN_DEPENDENCY error
// when a dependency has not been registered yet.
func (r *Registry) Register(c Configurator) error {
	name := c.Name()
	if name == "" {
		return NewRegistrationError("component has empty name", nil).
			WithCode(ErrCodeInternal)
	}

	if _, exists := r.components[name]; exists {
		return NewRegistrationError(fmt.Sprintf("component %q is already registered", name), nil).
			WithCode(ErrCodeDuplicateName).
			WithComponent(name)
	}

	deps := append([]string(nil), c.Dependencies()...)
	for _, dep := range deps {
		if _, exists := r.components[dep]; !exists {
			return NewRegistrationError(
				fmt.Sprintf("component %q depends on unknown component %q", name, dep), nil).
				WithCode(ErrCodeUnknownDependency).
				WithComponent(name)
		}
	}

	desc := ComponentDescriptor{
		Name:         name,
		Dependencies: deps,
	}
	if d, ok := c.(Describer); ok {
		desc.Description = d.Description()
	}
	if cat, ok := c.(Categorizer); ok {
		desc.Category = cat.Category()
	}

	r.components[name] = c
	r.descriptors[name] = desc
	r.order = append(r.order, name)
	return nil
}

// Get returns the configurator registered under name.
func (r *Registry) Get(name string) (Configurator, error) {
	c, ok := r.components[name]
	if !ok {
		return nil, NewRegistrationError(fmt.Sprintf("component %q is not registered", name), nil).
			WithCode(ErrCodeNotFound).
			WithComponent(name)
	}
	return c, nil
}

// Descriptor returns the descriptor registered under name.
func (r *Registry) Descriptor(name string) (ComponentDescriptor, error) {
	d, ok := r.descriptors[name]
	if !ok {
		return ComponentDescriptor{}, NewRegistrationError(
			fmt.Sprintf("component %q is not registered", name), nil).
			WithCode(ErrCodeNotFound).
			WithComponent(name)
	}
	return d, nil
}

// Names returns all registered component names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of registered components.
func (r *Registry) Len() int {
	return len(r.order)
}

// Resolve computes the execution plan for the requested component set. An
// empty request resolves all registered components; otherwise the plan
// covers the transitive dependency closure of the request. The order is a
// topological sort (Kahn's algorithm) with ties broken by registration
// order, so resolution is deterministic. Complexity is O(V+E) over the
// closure subgraph.
func (r *Registry) Resolve(requested []string) (*ExecutionPlan, error) {
	closure, err := r.closure(requested)
	if err != nil {
		return nil, err
	}

	if cycle := r.findCycle(closure); len(cycle) > 0 {
		return nil, NewRegistrationError(
			fmt.Sprintf("cyclic dependency: %s", strings.Join(cycle, " -> ")), nil).
			WithCode(ErrCodeCycle)
	}

	// Kahn's algorithm restricted to the closure. The ready queue is kept
	// sorted by registration index so ties resolve deterministically.
	regIndex := make(map[string]int, len(r.order))
	for i, name := range r.order {
		regIndex[name] = i
	}

	inDegree := make(map[string]int, len(closure))
	dependents := make(map[string][]string, len(closure))
	for name := range closure {
		desc := r.descriptors[name]
		for _, dep := range desc.Dependencies {
			if _, in := closure[dep]; !in {
				continue
			}
			inDegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	ready := make([]string, 0, len(closure))
	for name := range closure {
		if inDegree[name] == 0 {
			ready = append(ready, name)
		}
	}
	sortByIndex(ready, regIndex)

	plan := &ExecutionPlan{Steps: make([]PlanStep, 0, len(closure))}
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]

		desc := r.descriptors[name]
		plan.Steps = append(plan.Steps, PlanStep{
			Name:        name,
			Description: desc.Description,
			Category:    desc.Category,
		})

		released := make([]string, 0, len(dependents[name]))
		for _, dependent := range dependents[name] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				released = append(released, dependent)
			}
		}
		ready = append(ready, released...)
		sortByIndex(ready, regIndex)
	}

	if len(plan.Steps) != len(closure) {
		// Unreachable if findCycle is correct.
		return nil, NewRegistrationError("failed to order all components", nil).
			WithCode(ErrCodeInternal)
	}

	return plan, nil
}

// closure computes the transitive dependency closure of the requested set,
// or the full registered set when the request is empty.
func (r *Registry) closure(requested []string) (map[string]struct{}, error) {
	closure := make(map[string]struct{})

	if len(requested) == 0 {
		for _, name := range r.order {
			closure[name] = struct{}{}
		}
		return closure, nil
	}

	stack := make([]string, 0, len(requested))
	for _, name := range requested {
		if _, ok := r.components[name]; !ok {
			return nil, NewRegistrationError(
				fmt.Sprintf("component %q is not registered", name), nil).
				WithCode(ErrCodeNotFound).
				WithComponent(name)
		}
		stack = append(stack, name)
	}

	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := closure[name]; seen {
			continue
		}
		closure[name] = struct{}{}
		for _, dep := range r.descriptors[name].Dependencies {
			stack = append(stack, dep)
		}
	}

	return closure, nil
}

// findCycle runs a depth-first search over the closure subgraph and returns
// the members of the first cycle found, or nil when the subgraph is acyclic.
func (r *Registry) findCycle(closure map[string]struct{}) []string {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current path
		black = 2 // finished
	)
	color := make(map[string]int, len(closure))
	var path []string
	var cycle []string

	var visit func(name string) bool
	visit = func(name string) bool {
		color[name] = gray
		path = append(path, name)

		for _, dep := range r.descriptors[name].Dependencies {
			if _, in := closure[dep]; !in {
				continue
			}
			switch color[dep] {
			case white:
				if visit(dep) {
					return true
				}
			case gray:
				// Extract exactly the cycle members from the path.
				for i, n := range path {
					if n == dep {
						cycle = append([]string(nil), path[i:]...)
						break
					}
				}
				return true
			}
		}

		path = path[:len(path)-1]
		color[name] = black
		return false
	}

	// Iterate in registration order for deterministic cycle reporting.
	for _, name := range r.order {
		if _, in := closure[name]; !in {
			continue
		}
		if color[name] == white && visit(name) {
			return cycle
		}
	}
	return nil
}

func sortByIndex(names []string, index map[string]int) {
	sort.Slice(names, func(i, j int) bool {
		return index[names[i]] < index[names[j]]
	})
}
