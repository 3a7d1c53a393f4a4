// Package transport provides the shared types used to carry server-pushed
// invocations from a connection to a proxy hub.
//
// Transport implementations (channel, and anything that can deliver a stream of
// invocation messages) should import this package rather than the hub packages
// to avoid import cycles.
package transport

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rbaliyan/hubevent/transport/codec"
	"github.com/rbaliyan/hubevent/transport/message"
	"go.opentelemetry.io/otel/trace"
)

// Transport errors
var (
	ErrTransportClosed     = errors.New("transport closed")
	ErrStreamNotRegistered = errors.New("stream not registered")
	ErrStreamAlreadyExists = errors.New("stream already registered")
	ErrSubscriptionClosed  = errors.New("subscription closed")
	ErrPublishTimeout      = errors.New("publish timeout")
)

// Transport moves invocation messages for named streams. A stream usually
// corresponds to one client connection.
type Transport interface {
	// RegisterStream creates resources for a stream.
	// Must be called before Publish or Subscribe.
	RegisterStream(ctx context.Context, name string) error

	// UnregisterStream cleans up stream resources and closes all subscriptions.
	UnregisterStream(ctx context.Context, name string) error

	// Publish sends a message to every subscriber of a stream.
	// Returns ErrStreamNotRegistered if the stream is not registered and
	// nil if there are no subscribers (message is dropped).
	Publish(ctx context.Context, name string, msg Message) error

	// Subscribe creates a subscription receiving every message of a stream,
	// in publish order.
	Subscribe(ctx context.Context, name string) (Subscription, error)

	// Close shuts down the transport and all streams.
	Close(ctx context.Context) error
}

// Subscription represents a subscriber's connection to a stream
type Subscription interface {
	// ID returns the unique subscription identifier
	ID() string

	// Messages returns the channel to receive messages
	Messages() <-chan Message

	// Close unsubscribes and closes the message channel
	Close(ctx context.Context) error
}

// Message is the message interface from the message package
type Message = message.Message

// Codec is the codec interface from the codec package
type Codec = codec.Codec

// DefaultCodec returns the default wire codec (JSON)
func DefaultCodec() Codec {
	return codec.Default()
}

// NewMessage creates a new invocation message
func NewMessage(id, target string, args []any, metadata map[string]string, spanCtx trace.SpanContext) Message {
	return message.New(id, target, args, metadata, spanCtx)
}

var counter uint64

// NewID generates a new unique ID
func NewID() string {
	u, err := uuid.NewRandom()
	if err == nil {
		return u.String()
	}
	return strconv.FormatUint(atomic.AddUint64(&counter, 1), 10)
}

// Logger returns a logger with the given component name
func Logger(component string) *slog.Logger {
	return slog.Default().With("component", component)
}
