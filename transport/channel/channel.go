// Package channel provides an in-memory transport implementation using Go channels.
//
// Channel transport is suitable for connecting a hub to an invocation source in
// the same process (tests, embedded servers, loopback connections). It does NOT
// provide delivery guarantees:
//
//   - Messages are lost on process crash or restart
//   - Messages may be dropped if WithTimeout is set and subscribers are slow
//   - No persistence or redelivery mechanism
//
// When a codec is configured with WithCodec, every published message is
// encoded and decoded once, so subscribers observe the same untyped argument
// values a network connection using that codec would produce.
package channel

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rbaliyan/hubevent/transport"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Transport implements transport.Transport using Go channels
type Transport struct {
	status     int32
	streams    sync.Map // map[string]*stream
	bufferSize uint
	timeout    time.Duration
	codec      transport.Codec
	logger     *slog.Logger
	onError    func(error)

	droppedCounter metric.Int64Counter
}

// stream manages subscribers for a single stream, in subscription order
type stream struct {
	name   string
	mu     sync.RWMutex
	subs   []*subscription
	closed int32
}

// subscription implements transport.Subscription
type subscription struct {
	id       string
	ch       chan transport.Message
	st       *stream
	closed   int32
	closedCh chan struct{}
	sendMu   sync.RWMutex
}

func (s *subscription) ID() string {
	return s.id
}

func (s *subscription) Messages() <-chan transport.Message {
	return s.ch
}

func (s *subscription) Close(ctx context.Context) error {
	if atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		close(s.closedCh)
		if s.st != nil {
			s.st.remove(s)
		}
		// Wait for in-flight sends to observe closedCh before closing ch
		s.sendMu.Lock()
		close(s.ch)
		s.sendMu.Unlock()
	}
	return nil
}

func (st *stream) remove(sub *subscription) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for i, s := range st.subs {
		if s == sub {
			st.subs = append(st.subs[:i:i], st.subs[i+1:]...)
			return
		}
	}
}

func (st *stream) snapshot() []*subscription {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.subs
}

// New creates a new channel-based transport.
func New(opts ...Option) *Transport {
	o := newOptions(opts...)

	meter := otel.Meter("hubevent.transport.channel")
	droppedCounter, _ := meter.Int64Counter("hubevent.transport.channel.dropped",
		metric.WithDescription("Number of messages dropped by channel transport"),
		metric.WithUnit("{message}"),
	)

	return &Transport{
		status:         1,
		bufferSize:     o.bufferSize,
		timeout:        o.timeout,
		codec:          o.codec,
		logger:         o.logger,
		onError:        o.onError,
		droppedCounter: droppedCounter,
	}
}

func (t *Transport) isOpen() bool {
	return atomic.LoadInt32(&t.status) == 1
}

// RegisterStream creates resources for a stream
func (t *Transport) RegisterStream(ctx context.Context, name string) error {
	if !t.isOpen() {
		return transport.ErrTransportClosed
	}

	if _, loaded := t.streams.LoadOrStore(name, &stream{name: name}); loaded {
		return transport.ErrStreamAlreadyExists
	}

	t.logger.Debug("registered stream", "stream", name)
	return nil
}

// UnregisterStream cleans up stream resources and closes all subscriptions
func (t *Transport) UnregisterStream(ctx context.Context, name string) error {
	if !t.isOpen() {
		return transport.ErrTransportClosed
	}

	val, ok := t.streams.LoadAndDelete(name)
	if !ok {
		return transport.ErrStreamNotRegistered
	}

	st := val.(*stream)
	st.close(ctx)

	t.logger.Debug("unregistered stream", "stream", name)
	return nil
}

func (st *stream) close(ctx context.Context) {
	atomic.StoreInt32(&st.closed, 1)
	for _, sub := range st.snapshot() {
		sub.Close(ctx)
	}
}

func (t *Transport) load(name string) (*stream, error) {
	val, ok := t.streams.Load(name)
	if !ok {
		return nil, transport.ErrStreamNotRegistered
	}
	st := val.(*stream)
	if atomic.LoadInt32(&st.closed) == 1 {
		return nil, transport.ErrStreamNotRegistered
	}
	return st, nil
}

// Publish sends a message to every subscriber of a stream
func (t *Transport) Publish(ctx context.Context, name string, msg transport.Message) error {
	if !t.isOpen() {
		return transport.ErrTransportClosed
	}

	st, err := t.load(name)
	if err != nil {
		return err
	}

	subs := st.snapshot()
	if len(subs) == 0 {
		t.logger.Debug("dropping message, no subscribers", "stream", name, "msg_id", msg.ID())
		t.recordDrop(ctx, name, "no_subscribers")
		return nil
	}

	if t.codec != nil {
		data, err := t.codec.Encode(msg)
		if err != nil {
			return err
		}
		decoded, err := t.codec.Decode(data)
		if err != nil {
			return err
		}
		msg = transport.NewMessage(decoded.ID(), decoded.Target(), decoded.Arguments(), decoded.Metadata(),
			trace.SpanContextFromContext(msg.Context()))
	}

	// NOTE: a slow subscriber with a timeout configured loses the message;
	// the others still receive it.
	for _, sub := range subs {
		if err := t.sendToSubscriber(ctx, sub, msg); err != nil {
			if errors.Is(err, transport.ErrPublishTimeout) {
				t.logger.Debug("message dropped due to timeout (subscriber too slow)",
					"stream", name,
					"subscriber", sub.id,
					"msg_id", msg.ID())
				t.recordDrop(ctx, name, "timeout")
			}
			t.onError(err)
		}
	}

	return nil
}

func (t *Transport) recordDrop(ctx context.Context, name, reason string) {
	if t.droppedCounter != nil {
		t.droppedCounter.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("stream", name),
				attribute.String("reason", reason),
			))
	}
}

func (t *Transport) sendToSubscriber(ctx context.Context, sub *subscription, msg transport.Message) error {
	sub.sendMu.RLock()
	defer sub.sendMu.RUnlock()

	if atomic.LoadInt32(&sub.closed) == 1 {
		return transport.ErrSubscriptionClosed
	}

	var timeout <-chan time.Time
	if t.timeout > 0 {
		timer := time.NewTimer(t.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-sub.closedCh:
		return transport.ErrSubscriptionClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout:
		return transport.ErrPublishTimeout
	case sub.ch <- msg:
		return nil
	}
}

// Subscribe creates a subscription to receive messages for a stream
func (t *Transport) Subscribe(ctx context.Context, name string) (transport.Subscription, error) {
	if !t.isOpen() {
		return nil, transport.ErrTransportClosed
	}

	st, err := t.load(name)
	if err != nil {
		return nil, err
	}

	sub := &subscription{
		id:       transport.NewID(),
		ch:       make(chan transport.Message, t.bufferSize),
		st:       st,
		closedCh: make(chan struct{}),
	}

	st.mu.Lock()
	st.subs = append(st.subs, sub)
	st.mu.Unlock()

	t.logger.Debug("added subscriber", "stream", name, "subscriber", sub.id)
	return sub, nil
}

// Close shuts down the transport and all streams
func (t *Transport) Close(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&t.status, 1, 0) {
		return nil // Already closed
	}

	t.streams.Range(func(key, value any) bool {
		value.(*stream).close(ctx)
		return true
	})

	t.logger.Debug("transport closed")
	return nil
}

// Compile-time interface checks
var _ transport.Transport = (*Transport)(nil)
var _ transport.Subscription = (*subscription)(nil)
