package tagcache

import "context"

// Locker guards writers of one key. The store calls Unlock after every
// successful Write; callers that need mutual exclusion call Storage.Lock
// before computing the value. The default NopLocker does nothing, so
// concurrent writers of one key race and the last one wins.
type Locker interface {
	Lock(ctx context.Context, key string) error
	Unlock(ctx context.Context, key string) error
}

type NopLocker struct{}

func (NopLocker) Lock(context.Context, string) error   { return nil }
func (NopLocker) Unlock(context.Context, string) error { return nil }
