package hubevent

import (
	"context"
	"fmt"
	"sync"

	"github.com/rbaliyan/hubevent/proxy"
	"github.com/rbaliyan/hubevent/transport"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Observer receives every delivery of an observed event
type Observer interface {
	OnNext(args proxy.Arguments)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(args proxy.Arguments)

// OnNext calls f(args)
func (f ObserverFunc) OnNext(args proxy.Arguments) {
	f(args)
}

// Observable is a push sequence of the raw arguments delivered for one event
// name. The sequence never completes on its own and does not replay: an
// observer sees only deliveries made after it subscribed.
type Observable struct {
	name string
	sub  *proxy.Subscription
}

// Observe returns the observable sequence of deliveries for the event name
func Observe(p Proxy, name string) (*Observable, error) {
	if err := validateMethod(p, name, false); err != nil {
		return nil, err
	}
	return &Observable{name: name, sub: p.Subscribe(name)}, nil
}

// Name returns the observed event name
func (o *Observable) Name() string {
	return o.name
}

// Subscribe forwards every later delivery to obs, unchanged. Closing the
// returned registration removes only this observer.
func (o *Observable) Subscribe(obs Observer) (*proxy.Registration, error) {
	if obs == nil {
		return nil, fmt.Errorf("%w: observer for %q is nil", ErrInvalidArgument, o.name)
	}
	return o.sub.OnArguments(func(args proxy.Arguments) error {
		obs.OnNext(args)
		return nil
	}), nil
}

var (
	observeDroppedOnce sync.Once
	observeDropped     metric.Int64Counter
)

func droppedCounter() metric.Int64Counter {
	observeDroppedOnce.Do(func() {
		observeDropped, _ = otel.Meter("hubevent").Int64Counter("hubevent.observe.dropped",
			metric.WithDescription("Number of deliveries dropped because an observer channel was full"),
			metric.WithUnit("{delivery}"),
		)
	})
	return observeDropped
}

// Chan returns a channel receiving every later delivery, and a stop function
// that unsubscribes and closes the channel. The forwarding never blocks the
// delivering goroutine: when the buffer is full the delivery is dropped and
// counted. Cancelling ctx has the same effect as stop; with a context that is
// never cancelled, stop must be called to release the subscription.
func (o *Observable) Chan(ctx context.Context, size int) (<-chan proxy.Arguments, func(), error) {
	if size < 0 {
		return nil, nil, fmt.Errorf("%w: negative buffer size %d", ErrInvalidArgument, size)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	logger := transport.Logger("hubevent>observe").With("event", o.name)
	ch := make(chan proxy.Arguments, size)
	var (
		mu     sync.Mutex
		closed bool
	)

	reg, _ := o.Subscribe(ObserverFunc(func(args proxy.Arguments) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- args:
		default:
			logger.Warn("observer channel full, delivery dropped")
			if c := droppedCounter(); c != nil {
				c.Add(ctx, 1, metric.WithAttributes(attribute.String("event", o.name)))
			}
		}
	}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		reg.Close()
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()

	stop := func() {
		cancel()
		<-done
	}
	return ch, stop, nil
}
