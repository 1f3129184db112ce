package wardview

import (
	"context"
	"errors"
	"sync"

	"github.com/ehr/records/internal/domain/appmodel"
	"github.com/ehr/records/internal/platform/eventbus"
)

var errNotFound = errors.New("wardview: not found")

// waiter subscribes to one request's private bus and hands the first result
// of type E to the request goroutine.
type waiter[E any] struct {
	op      string
	results chan E
	failed  chan appmodel.FetchFailed
	missing chan appmodel.ItemNotFound

	mu   sync.Mutex
	done bool
}

func newWaiter[E any](op string) *waiter[E] {
	return &waiter[E]{
		op:      op,
		results: make(chan E, 1),
		failed:  make(chan appmodel.FetchFailed, 1),
		missing: make(chan appmodel.ItemNotFound, 1),
	}
}

func release(ev any) {
	if r, ok := ev.(eventbus.Releaser); ok {
		_ = r.Release()
	}
}

// accept keeps e for the request, or releases it when the request has
// finished or already has a result.
func (w *waiter[E]) accept(e E) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		release(e)
		return
	}
	select {
	case w.results <- e:
	default:
		release(e)
	}
}

// finish stops accepting results and releases one that was never read.
func (w *waiter[E]) finish() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.done = true
	select {
	case e := <-w.results:
		release(e)
	default:
	}
}

func (w *waiter[E]) Handlers() []eventbus.Handler {
	return []eventbus.Handler{
		eventbus.Handle(w.accept),
		eventbus.Handle(func(f appmodel.FetchFailed) {
			if f.Op == w.op {
				select {
				case w.failed <- f:
				default:
				}
			}
		}),
		eventbus.Handle(func(m appmodel.ItemNotFound) {
			if m.Op == w.op {
				select {
				case w.missing <- m:
				default:
				}
			}
		}),
	}
}

// await starts a fetch and waits for its result. Each call uses a fresh bus,
// so no other request can claim the result. If ctx ends first, a late
// result is released instead of delivered.
func await[E any](ctx context.Context, opts []eventbus.Option, op string, start func(appmodel.Poster)) (E, error) {
	var zero E
	bus := eventbus.New(opts...)
	w := newWaiter[E](op)
	bus.Register(w)
	defer func() {
		bus.Unregister(w)
		w.finish()
	}()

	start(bus)

	select {
	case e := <-w.results:
		return e, nil
	case f := <-w.failed:
		return zero, f
	case <-w.missing:
		return zero, errNotFound
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
