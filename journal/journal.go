// Package journal keeps the tag and priority invalidation index of tagcache
// inside the backing store.
//
// Keys (jns = journal namespace):
//
//	<jns>:<tag>:keys   - set of storage keys carrying tag
//	<jns>:<key>:tags   - set of tags of storage key (reverse index)
//	<jns>:priority     - sorted set storage key -> priority
//
// Every (tag, key) pair lives in both sets or in neither: all index changes
// for one key are applied in one atomic batch. Batches spanning many keys
// (CleanEntry with several keys, Clean) run one batch per key; a failure
// leaves the other keys' batches intact and is reported as a joined error.
package journal

import (
	"context"
	"errors"
	"fmt"

	"github.com/unkn0wn-root/tagcache/backend"
	"github.com/unkn0wn-root/tagcache/internal/keys"
	"github.com/unkn0wn-root/tagcache/log"
)

const (
	DefaultNamespace = "tagcache.Journal"

	keyPriority = "priority"
	suffixTags  = "tags"
	suffixKeys  = "keys"
)

// Entry is the index information recorded for one key.
type Entry struct {
	Tags     []string
	Priority *int64
}

// Conditions select keys to clean. Set conditions are combined as a union.
type Conditions struct {
	All      bool
	Tags     []string
	Priority *int64 // every key with priority <= *Priority
}

// Cleaned is the result of Clean: either every journal key was dropped
// (Everything) or Keys lists the storage keys whose index entries were removed.
type Cleaned struct {
	Everything bool
	Keys       []string
}

// EntryError reports a failed per-key index cleanup.
type EntryError struct {
	Key string
	Err error
}

func (e *EntryError) Error() string { return fmt.Sprintf("journal: clean %q: %v", e.Key, e.Err) }
func (e *EntryError) Unwrap() error { return e.Err }

type Options struct {
	Namespace string     // "" => DefaultNamespace
	Logger    log.Logger // nil => log.Nop
}

type Journal struct {
	be  backend.Backend
	ns  string
	log log.Logger
}

func New(be backend.Backend, opts Options) *Journal {
	j := &Journal{be: be, ns: opts.Namespace, log: opts.Logger}
	if j.ns == "" {
		j.ns = DefaultNamespace
	}
	if j.log == nil {
		j.log = log.Nop{}
	}
	return j
}

// Namespace returns the key prefix owned by this journal.
func (j *Journal) Namespace() string { return j.ns }

// Write records e for key, replacing whatever was recorded before.
func (j *Journal) Write(ctx context.Context, key string, e Entry) error {
	if err := j.CleanEntry(ctx, key); err != nil {
		return err
	}

	tags := keys.Unique(e.Tags)
	err := j.be.Atomic(ctx, func(b backend.Batch) {
		// add entry to each tag & tag to entry
		for _, tag := range tags {
			b.SAdd(j.formatKey(tag, suffixKeys), key)
			b.SAdd(j.formatKey(key, suffixTags), tag)
		}
		if e.Priority != nil {
			b.ZAdd(j.formatKey(keyPriority, ""), key, *e.Priority)
		}
	})
	if err != nil {
		return fmt.Errorf("journal: write %q: %w", key, err)
	}
	return nil
}

// CleanEntry drops every index record of the given keys. Keys without
// records are fine. Each key is cleaned in its own batch; failures are
// collected and the remaining keys still run.
func (j *Journal) CleanEntry(ctx context.Context, storageKeys ...string) error {
	var errs []error
	for _, key := range storageKeys {
		if err := j.cleanOne(ctx, key); err != nil {
			j.log.Warn("journal clean entry failed", log.Fields{"key": key, "err": err})
			errs = append(errs, &EntryError{Key: key, Err: err})
		}
	}
	return errors.Join(errs...)
}

func (j *Journal) cleanOne(ctx context.Context, key string) error {
	tags, err := j.be.SMembers(ctx, j.formatKey(key, suffixTags))
	if err != nil {
		return err
	}
	return j.be.Atomic(ctx, func(b backend.Batch) {
		for _, tag := range tags {
			b.SRem(j.formatKey(tag, suffixKeys), key)
		}
		// drop tags of entry and priority, in case there are some
		b.Del(j.formatKey(key, suffixTags))
		b.ZRem(j.formatKey(keyPriority, ""), key)
	})
}

// Clean removes index records matching c and returns the affected storage
// keys, de-duplicated in first-seen order. With c.All every key under the
// journal namespace is dropped in one batch and Cleaned.Everything is set.
//
// On partial failure the keys found so far are still returned together with
// the joined error, so callers can drop their payloads.
func (j *Journal) Clean(ctx context.Context, c Conditions) (Cleaned, error) {
	if c.All {
		all, err := j.be.Keys(ctx, j.ns+":")
		if err != nil {
			return Cleaned{}, fmt.Errorf("journal: list keys: %w", err)
		}
		if err := j.be.Atomic(ctx, func(b backend.Batch) { b.Del(all...) }); err != nil {
			return Cleaned{}, fmt.Errorf("journal: drop all: %w", err)
		}
		j.log.Debug("journal cleaned all", log.Fields{"keys": len(all)})
		return Cleaned{Everything: true}, nil
	}

	var (
		found []string
		errs  []error
	)
	for _, tag := range c.Tags {
		entries, err := j.tagEntries(ctx, tag)
		if err != nil {
			errs = append(errs, fmt.Errorf("journal: tag %q: %w", tag, err))
			continue
		}
		if err := j.CleanEntry(ctx, entries...); err != nil {
			errs = append(errs, err)
		}
		found = append(found, entries...)
	}

	if c.Priority != nil {
		entries, err := j.priorityEntries(ctx, *c.Priority)
		if err != nil {
			errs = append(errs, fmt.Errorf("journal: priority %d: %w", *c.Priority, err))
		} else {
			if err := j.CleanEntry(ctx, entries...); err != nil {
				errs = append(errs, err)
			}
			found = append(found, entries...)
		}
	}

	return Cleaned{Keys: keys.Unique(found)}, errors.Join(errs...)
}

// Tags returns the tags currently recorded for key.
func (j *Journal) Tags(ctx context.Context, key string) ([]string, error) {
	return j.be.SMembers(ctx, j.formatKey(key, suffixTags))
}

func (j *Journal) priorityEntries(ctx context.Context, priority int64) ([]string, error) {
	return j.be.ZRangeByScore(ctx, j.formatKey(keyPriority, ""), backend.MinScore, priority)
}

func (j *Journal) tagEntries(ctx context.Context, tag string) ([]string, error) {
	return j.be.SMembers(ctx, j.formatKey(tag, suffixKeys))
}

func (j *Journal) formatKey(key, suffix string) string {
	return keys.Format(j.ns, key, suffix)
}
