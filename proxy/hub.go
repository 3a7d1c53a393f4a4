// Package proxy provides the client-side hub a connection delivers
// server-pushed invocations to.
//
// A Hub owns one Subscription per event name and the proxy's state values.
// Invoke routes one incoming call:
//
//   - when the method is bound (its subscription has at least one
//     arguments-only handler), those handlers run, followed by the
//     invocation handlers of AnyEvent
//   - otherwise the invocation handlers of MissingEvent run
//
// Exactly one of the two reserved channels fires per call. All handlers run
// synchronously on the goroutine calling Invoke, in registration order.
//
// Basic example:
//
//	hub := proxy.New(proxy.WithName("chat"))
//	reg := hub.Subscribe("message").OnArguments(func(args proxy.Arguments) error {
//	    fmt.Println(args...)
//	    return nil
//	})
//	defer reg.Close()
//
//	err := hub.Invoke(ctx, "message", proxy.Arguments{"alice", "hi"})
package proxy

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Reserved event names
const (
	// AnyEvent fires for every call routed to a bound method.
	AnyEvent = "$any"
	// MissingEvent fires for every call whose method is not bound.
	MissingEvent = "$missing"
)

// ErrHandlerPanic is wrapped by the error returned for a handler that
// panicked while recovery is enabled.
var ErrHandlerPanic = errors.New("handler panicked")

// IsReserved reports whether name is one of the reserved event names.
func IsReserved(name string) bool {
	return name == AnyEvent || name == MissingEvent
}

// Hub is a proxy's subscription registry and state store.
type Hub struct {
	name            string
	logger          *slog.Logger
	recoveryEnabled bool
	tracer          trace.Tracer
	metrics         *hubMetrics

	subsMu sync.RWMutex
	subs   map[string]*Subscription

	stateMu sync.RWMutex
	state   map[string]any
}

// New creates a new hub
func New(opts ...Option) *Hub {
	o := newOptions(opts...)

	h := &Hub{
		name:            o.name,
		logger:          o.logger.With("component", "hub>"+o.name),
		recoveryEnabled: o.recoveryEnabled,
		subs:            make(map[string]*Subscription),
		state:           make(map[string]any),
	}
	if o.tracingEnabled {
		h.tracer = otel.Tracer("hubevent")
	}
	if o.metricsEnabled {
		h.metrics = newHubMetrics()
	}
	return h
}

// Name returns the hub name
func (h *Hub) Name() string {
	return h.name
}

// Logger returns the hub logger
func (h *Hub) Logger() *slog.Logger {
	return h.logger
}

// Subscribe returns the subscription for name, creating it on first use.
// Repeated calls with the same name return the same subscription.
func (h *Hub) Subscribe(name string) *Subscription {
	h.subsMu.RLock()
	sub, ok := h.subs[name]
	h.subsMu.RUnlock()
	if ok {
		return sub
	}

	h.subsMu.Lock()
	defer h.subsMu.Unlock()
	if sub, ok := h.subs[name]; ok {
		return sub
	}
	sub = &Subscription{name: name, hub: h}
	h.subs[name] = sub
	h.logger.Debug("subscription created", "event", name)
	return sub
}

// Lookup returns the subscription for name if one was created.
func (h *Hub) Lookup(name string) (*Subscription, bool) {
	h.subsMu.RLock()
	defer h.subsMu.RUnlock()
	sub, ok := h.subs[name]
	return sub, ok
}

// Names returns the sorted names of bound methods.
func (h *Hub) Names() []string {
	h.subsMu.RLock()
	defer h.subsMu.RUnlock()
	var names []string
	for name, sub := range h.subs {
		if !IsReserved(name) && sub.Handlers() > 0 {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// bound returns the subscription of method if it has arguments handlers.
func (h *Hub) bound(method string) (*Subscription, bool) {
	if IsReserved(method) {
		return nil, false
	}
	sub, ok := h.Lookup(method)
	if !ok || sub.Handlers() == 0 {
		return nil, false
	}
	return sub, true
}

// Invoke delivers one incoming call. Every handler runs even if an earlier
// one fails; the returned error joins all handler failures.
func (h *Hub) Invoke(ctx context.Context, method string, args Arguments) error {
	sub, bound := h.bound(method)

	if h.tracer != nil {
		var span trace.Span
		ctx, span = h.tracer.Start(ctx, h.name+".invoke "+method,
			trace.WithAttributes(
				attribute.String(spanKeyHub, h.name),
				attribute.String(spanKeyMethod, method),
				attribute.Int(spanKeyArguments, len(args)),
				attribute.Bool(spanKeyBound, bound),
			),
			trace.WithSpanKind(trace.SpanKindConsumer))
		defer span.End()
	}
	h.metrics.invoked(ctx, method, bound)

	var err error
	if bound {
		err = sub.deliverArguments(ctx, args)
		if anySub, ok := h.Lookup(AnyEvent); ok {
			err = errors.Join(err, anySub.deliverInvocation(ctx, args, method))
		}
	} else {
		h.logger.Debug("unrecognized method", "method", method, "args", len(args))
		if missing, ok := h.Lookup(MissingEvent); ok {
			err = missing.deliverInvocation(ctx, args, method)
		}
	}

	if err != nil {
		trace.SpanFromContext(ctx).SetStatus(codes.Error, err.Error())
	}
	return err
}

// SetState stores a state value
func (h *Hub) SetState(name string, value any) {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	h.state[name] = value
}

// DeleteState removes a state value
func (h *Hub) DeleteState(name string) {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	delete(h.state, name)
}

// State returns a state value and whether it is set
func (h *Hub) State(name string) (any, bool) {
	h.stateMu.RLock()
	defer h.stateMu.RUnlock()
	v, ok := h.state[name]
	return v, ok
}
