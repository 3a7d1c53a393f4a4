package nats

import (
	"log/slog"

	"github.com/rbaliyan/hubevent/transport"
)

// DefaultBufferSize is the default subscriber buffer size
const DefaultBufferSize = 100

// DefaultSubjectPrefix is the default subject prefix
const DefaultSubjectPrefix = "hubevent"

type options struct {
	codec      transport.Codec
	prefix     string
	bufferSize uint
	logger     *slog.Logger
	onError    func(error)
}

// Option configures the NATS transport
type Option func(*options)

func newOptions(opts ...Option) *options {
	o := &options{
		codec:      transport.DefaultCodec(),
		prefix:     DefaultSubjectPrefix,
		bufferSize: DefaultBufferSize,
		logger:     transport.Logger("transport>nats"),
		onError:    func(error) {},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithCodec sets the codec for message serialization
func WithCodec(c transport.Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithSubjectPrefix sets the subject prefix. An empty prefix publishes on the
// stream name itself.
func WithSubjectPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithBufferSize sets the subscriber buffer size
func WithBufferSize(size uint) Option {
	return func(o *options) {
		o.bufferSize = size
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithErrorHandler sets the error handler callback
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) {
		if fn != nil {
			o.onError = fn
		}
	}
}
