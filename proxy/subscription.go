package proxy

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/rbaliyan/hubevent/transport"
)

// Arguments is the untyped, positional payload of one delivered event.
type Arguments []any

// ArgumentsHandler receives the raw arguments of every delivery on a
// subscription.
type ArgumentsHandler func(args Arguments) error

// InvocationHandler receives the raw arguments together with the name of the
// method that was actually invoked. Used by the reserved channels.
type InvocationHandler func(args Arguments, method string) error

// record is one registration in a handler list.
type record[H any] struct {
	id      string
	handler H
	removed atomic.Bool
}

// handlerList is an ordered, copy-on-write list of records. Dispatch
// iterates over a snapshot, so concurrent add/remove never disturbs an
// in-flight delivery.
type handlerList[H any] struct {
	mu      sync.RWMutex
	records []*record[H]
}

func (l *handlerList[H]) add(h H) *record[H] {
	rec := &record[H]{id: transport.NewID(), handler: h}
	l.mu.Lock()
	defer l.mu.Unlock()
	next := make([]*record[H], len(l.records), len(l.records)+1)
	copy(next, l.records)
	l.records = append(next, rec)
	return rec
}

func (l *handlerList[H]) remove(rec *record[H]) bool {
	rec.removed.Store(true)
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, r := range l.records {
		if r == rec {
			next := make([]*record[H], 0, len(l.records)-1)
			next = append(next, l.records[:i]...)
			l.records = append(next, l.records[i+1:]...)
			return true
		}
	}
	return false
}

func (l *handlerList[H]) snapshot() []*record[H] {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.records
}

func (l *handlerList[H]) len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Subscription is the handler registry of one event name on one hub.
// It holds two independent lists: arguments-only handlers, used by typed
// adapters and observers, and invocation handlers, used by the reserved
// AnyEvent and MissingEvent channels.
//
// Handlers run synchronously, in registration order, on the goroutine that
// delivers the event.
type Subscription struct {
	name        string
	hub         *Hub
	arguments   handlerList[ArgumentsHandler]
	invocations handlerList[InvocationHandler]
}

// Name returns the event name
func (s *Subscription) Name() string {
	return s.name
}

// OnArguments appends h to the arguments-only list.
func (s *Subscription) OnArguments(h ArgumentsHandler) *Registration {
	rec := s.arguments.add(h)
	s.hub.logger.Debug("handler added", "event", s.name, "registration", rec.id, "list", "arguments")
	return newRegistration(rec.id, s.name, func() {
		if s.arguments.remove(rec) {
			s.hub.logger.Debug("handler removed", "event", s.name, "registration", rec.id)
		}
	})
}

// OnInvocation appends h to the invocation list.
func (s *Subscription) OnInvocation(h InvocationHandler) *Registration {
	rec := s.invocations.add(h)
	s.hub.logger.Debug("handler added", "event", s.name, "registration", rec.id, "list", "invocations")
	return newRegistration(rec.id, s.name, func() {
		if s.invocations.remove(rec) {
			s.hub.logger.Debug("handler removed", "event", s.name, "registration", rec.id)
		}
	})
}

// Handlers returns the number of arguments-only handlers.
func (s *Subscription) Handlers() int {
	return s.arguments.len()
}

// InvocationHandlers returns the number of invocation handlers.
func (s *Subscription) InvocationHandlers() int {
	return s.invocations.len()
}

// deliverArguments runs every arguments-only handler. A failing handler does
// not stop the ones after it; all failures are joined.
func (s *Subscription) deliverArguments(ctx context.Context, args Arguments) error {
	var errs []error
	for _, rec := range s.arguments.snapshot() {
		if rec.removed.Load() {
			continue
		}
		if err := s.call(ctx, rec.id, func() error { return rec.handler(args) }); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// deliverInvocation runs every invocation handler with the invoked method name.
func (s *Subscription) deliverInvocation(ctx context.Context, args Arguments, method string) error {
	var errs []error
	for _, rec := range s.invocations.snapshot() {
		if rec.removed.Load() {
			continue
		}
		if err := s.call(ctx, rec.id, func() error { return rec.handler(args, method) }); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Subscription) call(ctx context.Context, id string, fn func() error) (err error) {
	if s.hub.recoveryEnabled {
		defer func() {
			if r := recover(); r != nil {
				s.hub.logger.Error("handler panic recovered",
					"event", s.name,
					"registration", id,
					"error", r,
					"stack", string(debug.Stack()),
				)
				err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
			}
			if err != nil {
				err = s.fail(ctx, id, err)
			}
		}()
		return fn()
	}
	if err := fn(); err != nil {
		return s.fail(ctx, id, err)
	}
	return nil
}

func (s *Subscription) fail(ctx context.Context, id string, err error) error {
	s.hub.logger.Warn("handler failed", "event", s.name, "registration", id, "error", err)
	s.hub.metrics.handlerFailed(ctx, s.name)
	return fmt.Errorf("event %q handler %s: %w", s.name, id, err)
}

// Registration is the disposal handle of one handler. Close removes exactly
// that handler; it is safe to call more than once.
type Registration struct {
	id     string
	name   string
	closed atomic.Bool
	remove func()
}

func newRegistration(id, name string, remove func()) *Registration {
	return &Registration{id: id, name: name, remove: remove}
}

// ID returns the unique registration identifier
func (r *Registration) ID() string {
	return r.id
}

// Name returns the event name the handler is registered for
func (r *Registration) Name() string {
	return r.name
}

// Closed reports whether Close has been called
func (r *Registration) Closed() bool {
	return r.closed.Load()
}

// Close removes the handler. Deliveries that start afterwards never reach it.
func (r *Registration) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	r.remove()
	return nil
}
