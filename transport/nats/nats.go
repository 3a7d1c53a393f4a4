// Package nats carries invocation messages over NATS Core pub/sub.
//
// Each stream maps to the subject "<prefix>.<stream>". Delivery is
// at-most-once: messages published while nobody is subscribed are lost, and
// a subscriber whose buffer is full drops messages. This matches the
// fire-and-forget nature of server-pushed invocations.
//
// Example:
//
//	nc, err := nats.Connect(nats.DefaultURL)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	t, err := natstransport.New(nc, natstransport.WithSubjectPrefix("chat"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	conn, err := bridge.Connect(ctx, t, "conn-1", hub)
package nats

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/nats-io/nats.go"
	"github.com/rbaliyan/hubevent/transport"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ErrConnRequired is returned by New without a NATS connection
var ErrConnRequired = errors.New("nats connection required")

// Transport implements transport.Transport over NATS Core.
type Transport struct {
	status     int32
	conn       *nats.Conn
	codec      transport.Codec
	prefix     string
	bufferSize uint
	logger     *slog.Logger
	onError    func(error)
	dropped    metric.Int64Counter

	streams sync.Map // map[string]*stream
}

// stream tracks the subscriptions of one stream
type stream struct {
	name string
	mu   sync.Mutex
	subs map[string]*subscription
}

// subscription implements transport.Subscription
type subscription struct {
	id       string
	stream   *stream
	ch       chan transport.Message
	closedCh chan struct{}
	closed   int32
	sub      *nats.Subscription
	codec    transport.Codec
	logger   *slog.Logger
	onError  func(error)
	dropped  metric.Int64Counter
	sendMu   sync.RWMutex
}

// New creates a NATS Core transport on an established connection.
func New(conn *nats.Conn, opts ...Option) (*Transport, error) {
	if conn == nil {
		return nil, ErrConnRequired
	}
	return newTransport(conn, opts...), nil
}

func newTransport(conn *nats.Conn, opts ...Option) *Transport {
	o := newOptions(opts...)
	t := &Transport{
		status:     1,
		conn:       conn,
		codec:      o.codec,
		prefix:     o.prefix,
		bufferSize: o.bufferSize,
		logger:     o.logger,
		onError:    o.onError,
	}
	t.dropped, _ = otel.Meter("hubevent").Int64Counter("hubevent.transport.nats.dropped",
		metric.WithDescription("Number of invocation messages dropped by the NATS transport"),
		metric.WithUnit("{message}"),
	)
	return t
}

// Subject returns the NATS subject of a stream
func (t *Transport) Subject(name string) string {
	if t.prefix == "" {
		return name
	}
	return t.prefix + "." + name
}

func (t *Transport) isOpen() bool {
	return atomic.LoadInt32(&t.status) == 1
}

// RegisterStream creates resources for a stream
func (t *Transport) RegisterStream(ctx context.Context, name string) error {
	if !t.isOpen() {
		return transport.ErrTransportClosed
	}
	if _, loaded := t.streams.LoadOrStore(name, &stream{name: name, subs: make(map[string]*subscription)}); loaded {
		return transport.ErrStreamAlreadyExists
	}
	t.logger.Debug("registered stream", "stream", name, "subject", t.Subject(name))
	return nil
}

// UnregisterStream closes every subscription of the stream
func (t *Transport) UnregisterStream(ctx context.Context, name string) error {
	if !t.isOpen() {
		return transport.ErrTransportClosed
	}
	v, ok := t.streams.LoadAndDelete(name)
	if !ok {
		return transport.ErrStreamNotRegistered
	}
	v.(*stream).closeAll(ctx)
	t.logger.Debug("unregistered stream", "stream", name)
	return nil
}

// Publish encodes msg and publishes it on the stream subject
func (t *Transport) Publish(ctx context.Context, name string, msg transport.Message) error {
	if !t.isOpen() {
		return transport.ErrTransportClosed
	}
	if _, ok := t.streams.Load(name); !ok {
		return transport.ErrStreamNotRegistered
	}

	data, err := t.codec.Encode(msg)
	if err != nil {
		return err
	}
	if err := t.conn.Publish(t.Subject(name), data); err != nil {
		t.onError(err)
		return err
	}

	t.logger.Debug("published message", "stream", name, "msg_id", msg.ID(), "target", msg.Target())
	return nil
}

// Subscribe subscribes to the stream subject
func (t *Transport) Subscribe(ctx context.Context, name string) (transport.Subscription, error) {
	if !t.isOpen() {
		return nil, transport.ErrTransportClosed
	}
	v, ok := t.streams.Load(name)
	if !ok {
		return nil, transport.ErrStreamNotRegistered
	}
	st := v.(*stream)

	sub := t.newSubscription(st)
	natsSub, err := t.conn.Subscribe(t.Subject(name), sub.handleMessage)
	if err != nil {
		return nil, err
	}
	sub.sub = natsSub

	st.mu.Lock()
	st.subs[sub.id] = sub
	st.mu.Unlock()

	t.logger.Debug("subscribed", "stream", name, "subscriber", sub.id)
	return sub, nil
}

func (t *Transport) newSubscription(st *stream) *subscription {
	return &subscription{
		id:       transport.NewID(),
		stream:   st,
		ch:       make(chan transport.Message, t.bufferSize),
		closedCh: make(chan struct{}),
		codec:    t.codec,
		logger:   t.logger,
		onError:  t.onError,
		dropped:  t.dropped,
	}
}

// Close shuts down the transport and closes all subscriptions.
// The NATS connection is owned by the caller and stays open.
func (t *Transport) Close(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&t.status, 1, 0) {
		return nil
	}
	t.streams.Range(func(key, value any) bool {
		value.(*stream).closeAll(ctx)
		t.streams.Delete(key)
		return true
	})
	t.logger.Debug("transport closed")
	return nil
}

func (st *stream) closeAll(ctx context.Context) {
	st.mu.Lock()
	subs := make([]*subscription, 0, len(st.subs))
	for _, s := range st.subs {
		subs = append(subs, s)
	}
	st.mu.Unlock()

	for _, s := range subs {
		s.Close(ctx)
	}
}

func (s *subscription) ID() string {
	return s.id
}

func (s *subscription) Messages() <-chan transport.Message {
	return s.ch
}

func (s *subscription) Close(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil
	}
	close(s.closedCh)
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	s.stream.mu.Lock()
	delete(s.stream.subs, s.id)
	s.stream.mu.Unlock()

	s.sendMu.Lock()
	close(s.ch)
	s.sendMu.Unlock()
	return nil
}

func (s *subscription) handleMessage(msg *nats.Msg) {
	decoded, err := s.codec.Decode(msg.Data)
	if err != nil {
		s.logger.Warn("dropping undecodable message", "subject", msg.Subject, "error", err)
		s.onError(err)
		s.drop("decode")
		return
	}

	s.sendMu.RLock()
	defer s.sendMu.RUnlock()

	select {
	case <-s.closedCh:
		return
	default:
	}

	out := transport.NewMessage(decoded.ID(), decoded.Target(), decoded.Arguments(), decoded.Metadata(), trace.SpanContext{})
	select {
	case s.ch <- out:
	default:
		s.logger.Warn("subscriber buffer full, message dropped", "subscriber", s.id, "msg_id", decoded.ID())
		s.drop("buffer_full")
	}
}

func (s *subscription) drop(reason string) {
	if s.dropped != nil {
		s.dropped.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("stream", s.stream.name),
			attribute.String("reason", reason),
		))
	}
}

// Compile-time checks
var (
	_ transport.Transport    = (*Transport)(nil)
	_ transport.Subscription = (*subscription)(nil)
)
