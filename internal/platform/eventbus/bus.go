// Package eventbus delivers fetch results and other app events to whoever is
// listening, and takes over cleanup of results nobody is listening for.
package eventbus

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Releaser is implemented by events that carry a resource (an open cursor, a
// location forest) which must be closed by whoever ends up owning the event.
type Releaser interface {
	Release() error
}

// Handler receives events of one type.
type Handler interface {
	// Deliver hands ev to the handler if it accepts ev's type and reports
	// whether it did.
	Deliver(ev any) bool
}

type typedHandler[E any] struct {
	fn func(E)
}

func (h typedHandler[E]) Deliver(ev any) bool {
	e, ok := ev.(E)
	if !ok {
		return false
	}
	h.fn(e)
	return true
}

// Handle returns a Handler that accepts events assignable to E.
func Handle[E any](fn func(E)) Handler {
	return typedHandler[E]{fn: fn}
}

// Subscriber is registered on a Bus. Implementations must be comparable
// (usually a pointer) since Unregister finds them by identity.
type Subscriber interface {
	Handlers() []Handler
}

// Observer is told about bus traffic. telemetry.BusMetrics implements it.
type Observer interface {
	EventPosted(event string, claimed bool)
	EventReleased(event string, err error)
}

type registration struct {
	sub      Subscriber
	handlers []Handler
}

// Bus is a synchronous publish/subscribe bus. Handlers run on the posting
// goroutine, outside the bus lock, so they may register, unregister or post.
//
// An event no registered handler accepts is unclaimed. Unclaimed events go to
// the no-subscriber hook, which by default releases them when they implement
// Releaser. A claimed event is never released by the bus: ownership has
// passed to the handler.
type Bus struct {
	mu   sync.RWMutex
	subs []registration

	noSubscriber    func(ev any)
	allUnregistered func()

	logger   zerolog.Logger
	observer Observer
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the bus logger.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Bus) { b.logger = l.With().Str("component", "eventbus").Logger() }
}

// WithObserver reports bus traffic to o.
func WithObserver(o Observer) Option {
	return func(b *Bus) { b.observer = o }
}

// New creates a bus with the default release-on-unclaimed hook.
func New(opts ...Option) *Bus {
	b := &Bus{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(b)
	}
	b.noSubscriber = b.Release
	return b
}

// Register adds sub. Its Handlers are read once, here. Registering a
// subscriber that is already registered does nothing.
func (b *Bus) Register(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.subs {
		if r.sub == sub {
			return
		}
	}
	b.subs = append(b.subs, registration{sub: sub, handlers: sub.Handlers()})
	b.logger.Debug().Int("subscribers", len(b.subs)).Msg("subscriber registered")
}

// Unregister removes sub. Unknown subscribers are ignored. When the last
// subscriber leaves, the OnAllUnregistered hook runs.
func (b *Bus) Unregister(sub Subscriber) {
	b.mu.Lock()
	idx := -1
	for i, r := range b.subs {
		if r.sub == sub {
			idx = i
			break
		}
	}
	if idx < 0 {
		b.mu.Unlock()
		return
	}
	b.subs = append(b.subs[:idx:idx], b.subs[idx+1:]...)
	empty := len(b.subs) == 0
	hook := b.allUnregistered
	b.mu.Unlock()

	b.logger.Debug().Bool("empty", empty).Msg("subscriber unregistered")
	if empty && hook != nil {
		hook()
	}
}

// Subscribers returns the number of registered subscribers.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// OnNoSubscriber replaces the hook that receives unclaimed events. A nil fn
// restores the default, Release.
func (b *Bus) OnNoSubscriber(fn func(ev any)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if fn == nil {
		fn = b.Release
	}
	b.noSubscriber = fn
}

// OnAllUnregistered sets a hook run each time the subscriber set becomes
// empty through Unregister.
func (b *Bus) OnAllUnregistered(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allUnregistered = fn
}

// Post delivers ev to every handler that accepts it and reports whether any
// did. An unclaimed ev is passed to the no-subscriber hook before Post
// returns.
func (b *Bus) Post(ev any) bool {
	b.mu.RLock()
	var handlers []Handler
	for _, r := range b.subs {
		handlers = append(handlers, r.handlers...)
	}
	hook := b.noSubscriber
	b.mu.RUnlock()

	claimed := false
	for _, h := range handlers {
		if h.Deliver(ev) {
			claimed = true
		}
	}

	name := EventName(ev)
	if b.observer != nil {
		b.observer.EventPosted(name, claimed)
	}
	if !claimed {
		b.logger.Debug().Str("event", name).Msg("event unclaimed")
		hook(ev)
	}
	return claimed
}

// Release closes the resource carried by ev, if any. It is the default
// no-subscriber hook.
func (b *Bus) Release(ev any) {
	r, ok := ev.(Releaser)
	if !ok {
		return
	}
	name := EventName(ev)
	err := r.Release()
	if err != nil {
		b.logger.Error().Err(err).Str("event", name).Msg("failed to release unclaimed event")
	} else {
		b.logger.Debug().Str("event", name).Msg("released unclaimed event")
	}
	if b.observer != nil {
		b.observer.EventReleased(name, err)
	}
}

// EventName returns the unqualified type name of ev without type arguments.
func EventName(ev any) string {
	name := strings.TrimPrefix(fmt.Sprintf("%T", ev), "*")
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}
