package pool

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Factory constructs an upstream client.
type Factory[C any] func(ctx context.Context) (C, error)

// Source hands out clients of one kind. The two kinds differ in reuse:
// a Singleton returns one shared long-lived client, a Fresh constructs a
// disposable client per call.
type Source[C any] interface {
	Acquire(ctx context.Context) (C, error)
}

// Resetter is implemented by sources whose current client can be discarded
// so the next acquire reconstructs.
type Resetter interface {
	Reset()
}

// Singleton owns one reusable client, constructed lazily on first acquire.
// Reset swaps the reference: callers already holding the old client keep
// using it undisturbed, and only future acquires see a new one.
type Singleton[C any] struct {
	factory Factory[C]

	mu     sync.RWMutex
	client C
	built  bool
	sf     singleflight.Group // prevents thundering herd on first acquire
}

// NewSingleton creates a singleton source around the factory. The factory
// is not called until the first Acquire.
func NewSingleton[C any](factory Factory[C]) *Singleton[C] {
	return &Singleton[C]{factory: factory}
}

// Acquire returns the shared client, constructing it on first use.
// Concurrent first acquires collapse into a single construction; every
// waiter receives the same client or the same ConstructionError. A failed
// construction is not cached, so the next acquire tries again.
func (s *Singleton[C]) Acquire(ctx context.Context) (C, error) {
	s.mu.RLock()
	if s.built {
		c := s.client
		s.mu.RUnlock()
		return c, nil
	}
	s.mu.RUnlock()

	v, err, _ := s.sf.Do("construct", func() (any, error) {
		// A concurrent flight may have built it while we queued.
		s.mu.RLock()
		if s.built {
			c := s.client
			s.mu.RUnlock()
			return c, nil
		}
		s.mu.RUnlock()

		c, err := s.factory(ctx)
		if err != nil {
			return nil, &ConstructionError{Err: err}
		}

		s.mu.Lock()
		s.client = c
		s.built = true
		s.mu.Unlock()
		return c, nil
	})
	if err != nil {
		var zero C
		return zero, err
	}
	return v.(C), nil
}

// Reset discards the current client. In-flight operations on the old
// client complete against it; the next Acquire reconstructs.
func (s *Singleton[C]) Reset() {
	s.mu.Lock()
	var zero C
	s.client = zero
	s.built = false
	s.mu.Unlock()
}

// Fresh constructs a new client on every acquire and never retains it.
// Used for streaming-style clients that cannot be reused after stop.
type Fresh[C any] struct {
	factory Factory[C]
}

// NewFresh creates a per-call source around the factory.
func NewFresh[C any](factory Factory[C]) *Fresh[C] {
	return &Fresh[C]{factory: factory}
}

// Acquire constructs and returns a new client. The source keeps no
// reference; lifetime and timeouts are the caller's responsibility.
func (f *Fresh[C]) Acquire(ctx context.Context) (C, error) {
	c, err := f.factory(ctx)
	if err != nil {
		var zero C
		return zero, &ConstructionError{Err: err}
	}
	return c, nil
}

var (
	_ Source[any] = (*Singleton[any])(nil)
	_ Source[any] = (*Fresh[any])(nil)
	_ Resetter    = (*Singleton[any])(nil)
)
