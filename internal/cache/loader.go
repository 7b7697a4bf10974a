// Package cache provides an in-flight de-duplicating, no-expiry loader.
//
// A Loader remembers every key it has ever fetched for as long as the Loader
// value itself lives. There is no per-entry invalidation: the intended usage
// is session scoping, where the owner discards the whole Loader when the
// underlying data may have changed.
package cache

import (
	"context"
	"sync"
)

type entry[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// Loader memoizes one fetch per key. Concurrent callers for the same key
// before the first fetch resolves all share that single fetch and receive the
// identical outcome; failures are cached the same way successes are.
type Loader[K comparable, V any] struct {
	fetch func(ctx context.Context, key K) (V, error)

	mu      sync.Mutex
	entries map[K]*entry[V]
}

func NewLoader[K comparable, V any](fetch func(ctx context.Context, key K) (V, error)) *Loader[K, V] {
	return &Loader[K, V]{
		fetch:   fetch,
		entries: make(map[K]*entry[V]),
	}
}

// Get returns the cached outcome for key, claiming and running the fetch if
// this is the first request. A caller whose context expires while waiting gets
// the context error; the fetch itself keeps running so later callers still
// receive its result.
func (l *Loader[K, V]) Get(ctx context.Context, key K) (V, error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry[V]{done: make(chan struct{})}
		l.entries[key] = e
		go l.run(key, e)
	}
	l.mu.Unlock()

	select {
	case <-e.done:
		return e.val, e.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Resolved reports whether key has a settled outcome.
func (l *Loader[K, V]) Resolved(key K) bool {
	l.mu.Lock()
	e, ok := l.entries[key]
	l.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// Forget drops the entry for key so the next Get fetches again. This is for
// owners that scope cached data to the life of the underlying records (the
// availability bundler resets a story after a mutation); per-session caches
// never call it.
func (l *Loader[K, V]) Forget(key K) {
	l.mu.Lock()
	delete(l.entries, key)
	l.mu.Unlock()
}

func (l *Loader[K, V]) run(key K, e *entry[V]) {
	// The fetch deliberately runs under context.Background: the first
	// caller's deadline must not poison the cached result for everyone else.
	e.val, e.err = l.fetch(context.Background(), key)
	close(e.done)
}
