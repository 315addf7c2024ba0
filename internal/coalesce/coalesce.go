// Package coalesce runs at most one call per key at a time, keeping only the
// latest waiting call.
//
// A call for a key that has nothing in flight starts immediately. A call
// arriving while another is in flight becomes the key's pending call; if a
// pending call already exists it is replaced and its caller receives
// ErrSuperseded. In-flight calls are never cancelled. When the in-flight call
// finishes, the pending call (if any) starts.
package coalesce

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned to a caller whose pending call was replaced by
// a newer call for the same key before it started.
var ErrSuperseded = errors.New("superseded by a newer request")

// Func is the work run for a key.
type Func[V any] func(ctx context.Context) (V, error)

type call[V any] struct {
	ctx  context.Context
	fn   Func[V]
	done chan struct{}
	val  V
	err  error
}

type keyState[V any] struct {
	pending *call[V]
}

// Group coalesces calls by key. The zero value is ready to use.
type Group[V any] struct {
	mu   sync.Mutex
	keys map[string]*keyState[V]
}

// Do runs fn for key under the coalescing contract and waits for its result.
// If ctx ends first Do returns ctx.Err(), but a started call still runs to
// completion. fn receives a context that carries ctx's values and is never
// cancelled.
func (g *Group[V]) Do(ctx context.Context, key string, fn Func[V]) (V, error) {
	c := &call[V]{
		ctx:  context.WithoutCancel(ctx),
		fn:   fn,
		done: make(chan struct{}),
	}

	g.mu.Lock()
	if g.keys == nil {
		g.keys = make(map[string]*keyState[V])
	}
	st, running := g.keys[key]
	if !running {
		g.keys[key] = &keyState[V]{}
		g.mu.Unlock()
		go g.run(key, c)
	} else {
		if prev := st.pending; prev != nil {
			prev.err = ErrSuperseded
			close(prev.done)
		}
		st.pending = c
		g.mu.Unlock()
	}

	select {
	case <-c.done:
		return c.val, c.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

func (g *Group[V]) run(key string, c *call[V]) {
	for c != nil {
		c.val, c.err = c.fn(c.ctx)
		close(c.done)

		g.mu.Lock()
		st := g.keys[key]
		c, st.pending = st.pending, nil
		if c == nil {
			delete(g.keys, key)
		}
		g.mu.Unlock()
	}
}

// InFlight reports whether a call for key is currently running.
func (g *Group[V]) InFlight(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.keys[key]
	return ok
}

// HasPending reports whether a call for key is waiting to start.
func (g *Group[V]) HasPending(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.keys[key]
	return ok && st.pending != nil
}
