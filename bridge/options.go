package bridge

import (
	"log/slog"

	"github.com/rbaliyan/hubevent/idempotency"
	"github.com/rbaliyan/hubevent/ratelimit"
	"github.com/rbaliyan/hubevent/transport"
)

type options struct {
	logger      *slog.Logger
	limiter     ratelimit.Limiter
	dropLimited bool
	ackErrors   bool
	dedup       idempotency.Store
}

// Option configures a Connection
type Option func(*options)

func newOptions(opts ...Option) *options {
	o := &options{
		logger: transport.Logger("bridge"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithAckErrors passes invocation errors to Message.Ack instead of acking
// every delivered message as successful. Default is false.
func WithAckErrors(enabled bool) Option {
	return func(o *options) {
		o.ackErrors = enabled
	}
}

// WithLimiter throttles delivery per method. By default the connection waits
// for the limiter, which holds back every later invocation of the stream.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(o *options) {
		o.limiter = l
	}
}

// WithDropLimited drops invocations the limiter does not admit right away,
// acking them with ErrRateLimited, instead of waiting.
func WithDropLimited(enabled bool) Option {
	return func(o *options) {
		o.dropLimited = enabled
	}
}

// WithDeduplication skips messages whose ID store has already seen. They are
// acked as successful without reaching the invoker. Store errors are logged
// and the message is delivered.
func WithDeduplication(store idempotency.Store) Option {
	return func(o *options) {
		o.dedup = store
	}
}
