package callback

import (
	"context"
	"fmt"
	"sync"
)

// Func checks one callback. args are the stored Callback.Args.
type Func func(ctx context.Context, args []string) (bool, error)

// Registry is a Validator resolving callbacks by name.
// Every callback must pass; an unregistered name fails validation.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

var _ Validator = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register binds name to fn, replacing any previous binding.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	r.funcs[name] = fn
	r.mu.Unlock()
}

func (r *Registry) lookup(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

func (r *Registry) Validate(ctx context.Context, callbacks []Callback) (bool, error) {
	for _, cb := range callbacks {
		fn, ok := r.lookup(cb.Name)
		if !ok {
			return false, nil
		}
		pass, err := fn(ctx, cb.Args)
		if err != nil {
			return false, fmt.Errorf("callback %q: %w", cb.Name, err)
		}
		if !pass {
			return false, nil
		}
	}
	return true, nil
}
