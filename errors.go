package tagcache

import (
	"errors"
	"fmt"
)

var (
	// ErrJournalRequired is returned by Write when tags or a priority are
	// given but the store has no journal. Nothing is written.
	ErrJournalRequired = errors.New("tagcache: tags or priority require a journal")

	// ErrValidatorRequired is returned by Write when callbacks are given but
	// the store has no validator. Nothing is written.
	ErrValidatorRequired = errors.New("tagcache: callbacks require a validator")

	// ErrInvalidDependencies reports a Dependencies value that cannot be stored.
	ErrInvalidDependencies = errors.New("tagcache: invalid dependencies")

	// ErrBackend marks failures of the backing store during a write.
	ErrBackend = errors.New("tagcache: backing store failure")
)

// WriteError is returned when a write reached the backing store and failed.
// The entry was removed afterwards so no half-written state is left behind;
// RemoveErr is set when that cleanup failed too.
type WriteError struct {
	Key       string
	Err       error
	RemoveErr error
}

func (e *WriteError) Error() string {
	switch {
	case e.Err != nil && e.RemoveErr != nil:
		return fmt.Sprintf("tagcache: write %q failed: %v; cleanup failed: %v", e.Key, e.Err, e.RemoveErr)
	case e.Err != nil:
		return fmt.Sprintf("tagcache: write %q failed: %v", e.Key, e.Err)
	default:
		return fmt.Sprintf("tagcache: write %q: unknown error", e.Key)
	}
}

func (e *WriteError) Unwrap() []error {
	errs := make([]error, 0, 3)
	errs = append(errs, ErrBackend)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.RemoveErr != nil {
		errs = append(errs, e.RemoveErr)
	}
	return errs
}
