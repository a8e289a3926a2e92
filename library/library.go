// Package library assembles the complete function registry available to
// programs.
package library

import (
	"sync"

	"github.com/robinvdvleuten/ledgerscript/functions"
	"github.com/robinvdvleuten/ledgerscript/interp"
	"github.com/robinvdvleuten/ledgerscript/iterate"
	"github.com/robinvdvleuten/ledgerscript/schedule"
	"github.com/robinvdvleuten/ledgerscript/txn"
)

var (
	once     sync.Once
	registry *interp.Registry
)

// Default returns the shared, frozen registry. It is built on first use.
func Default() *interp.Registry {
	once.Do(func() {
		registry = MustNew()
	})
	return registry
}

// New builds a fresh frozen registry.
func New() (*interp.Registry, error) {
	r := interp.NewRegistry()
	for _, register := range []func(*interp.Registry) error{
		functions.Register,
		schedule.Register,
		txn.Register,
		iterate.Register,
	} {
		if err := register(r); err != nil {
			return nil, err
		}
	}
	return r.Freeze(), nil
}

// MustNew is New for startup code; a registration error panics.
func MustNew() *interp.Registry {
	r, err := New()
	if err != nil {
		panic("library: " + err.Error())
	}
	return r
}

// Categories groups function names by category, in registration order.
func Categories(r *interp.Registry) ([]string, map[string][]*interp.Function) {
	var order []string
	groups := make(map[string][]*interp.Function)
	for _, f := range r.Functions() {
		if _, ok := groups[f.Category]; !ok {
			order = append(order, f.Category)
		}
		groups[f.Category] = append(groups[f.Category], f)
	}
	return order, groups
}
