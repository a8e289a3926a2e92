package interp

import (
	"fmt"
	"sort"
)

// Registry maps function names to implementations. It is filled once at
// startup, then frozen and shared read-only by every run.
type Registry struct {
	funcs  map[string]*Function
	order  []string
	frozen bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]*Function)}
}

// Register adds functions after validating their declarations.
func (r *Registry) Register(fns ...*Function) error {
	if r.frozen {
		panic("interp: register on a frozen registry")
	}
	for _, f := range fns {
		if err := f.validate(); err != nil {
			return err
		}
		if _, dup := r.funcs[f.Name]; dup {
			return fmt.Errorf("%s: registered twice", f.Name)
		}
		r.funcs[f.Name] = f
		r.order = append(r.order, f.Name)
	}
	return nil
}

// MustRegister is Register for package-level setup code, where a bad
// declaration is a programming error.
func (r *Registry) MustRegister(fns ...*Function) {
	if err := r.Register(fns...); err != nil {
		panic("interp: " + err.Error())
	}
}

// Alias registers an existing function under another name.
func (r *Registry) Alias(alias, name string) error {
	f, ok := r.funcs[name]
	if !ok {
		return fmt.Errorf("alias %s: unknown function %s", alias, name)
	}
	cp := *f
	cp.Name = alias
	return r.Register(&cp)
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() *Registry {
	r.frozen = true
	return r
}

// Frozen reports whether Freeze was called.
func (r *Registry) Frozen() bool {
	return r.frozen
}

// Lookup finds a function by name.
func (r *Registry) Lookup(name string) (*Function, bool) {
	f, ok := r.funcs[name]
	return f, ok
}

// Len returns the number of registered functions.
func (r *Registry) Len() int {
	return len(r.funcs)
}

// Functions returns all functions in registration order.
func (r *Registry) Functions() []*Function {
	out := make([]*Function, len(r.order))
	for i, name := range r.order {
		out[i] = r.funcs[name]
	}
	return out
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}
