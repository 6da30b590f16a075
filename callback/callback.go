// Package callback describes validation callbacks attached to cache entries.
//
// A Callback is stored in the entry metadata as plain data (a name and string
// arguments). It is resolved at read time by a Validator, usually a Registry
// of named functions, so the stored record never holds code.
package callback

import "context"

// Callback names a registered check and the arguments to call it with.
type Callback struct {
	Name string   `json:"name"`
	Args []string `json:"args,omitempty"`
}

// New is shorthand for Callback{Name: name, Args: args}.
func New(name string, args ...string) Callback {
	return Callback{Name: name, Args: args}
}

// Validator decides whether the callbacks of an entry still hold.
// ok=false means the entry is stale; err is reserved for failures to decide.
type Validator interface {
	Validate(ctx context.Context, callbacks []Callback) (ok bool, err error)
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(ctx context.Context, callbacks []Callback) (bool, error)

func (f ValidatorFunc) Validate(ctx context.Context, callbacks []Callback) (bool, error) {
	return f(ctx, callbacks)
}
