// Package catalog declares the components of the map and transit server
// stack and wires them into an engine registry.
//
// The catalog is a static manifest: every component, its dependencies,
// and its category are listed here explicitly, and registration happens
// in a single Register call at startup. What a component's install
// actually does is delegated to an injected Provisioner, keeping the
// catalog itself free of system-mutation code.
package catalog
