// Package gate provides a settable-once result cell shared by racing producers.
package gate

import (
	"context"
	"sync"
)

// Once holds a single value of type T. The first Set wins; later Sets are
// ignored and report false. Readers can block on Wait or select on Done.
type Once[T any] struct {
	mu    sync.Mutex
	set   bool
	value T
	done  chan struct{}
	init  sync.Once
}

func (g *Once[T]) doneChan() chan struct{} {
	g.init.Do(func() {
		g.done = make(chan struct{})
	})
	return g.done
}

// Set stores v if no value has been stored yet and reports whether it did.
func (g *Once[T]) Set(v T) bool {
	done := g.doneChan()

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.set {
		return false
	}
	g.value = v
	g.set = true
	close(done)
	return true
}

// Done is closed once a value has been stored.
func (g *Once[T]) Done() <-chan struct{} {
	return g.doneChan()
}

// IsSet reports whether a value has been stored.
func (g *Once[T]) IsSet() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.set
}

// Value returns the stored value and whether one has been stored.
func (g *Once[T]) Value() (T, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value, g.set
}

// Wait blocks until a value is stored or ctx is done.
func (g *Once[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-g.doneChan():
		v, _ := g.Value()
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
