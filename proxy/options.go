package proxy

import "log/slog"

// DefaultHubName is used when no name is configured
var DefaultHubName = "hub"

// options holds configuration for a hub (unexported)
type options struct {
	name            string
	logger          *slog.Logger
	recoveryEnabled bool
	tracingEnabled  bool
	metricsEnabled  bool
}

// Option option function for hub configuration
type Option func(*options)

// WithName sets the hub name used in logs, spans and metrics
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger sets a custom logger for the hub
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRecovery enables/disables panic recovery in handlers.
// With recovery enabled a panicking handler is reported as an error wrapping
// ErrHandlerPanic and the remaining handlers still run.
func WithRecovery(enabled bool) Option {
	return func(o *options) {
		o.recoveryEnabled = enabled
	}
}

// WithTracing enables/disables an OpenTelemetry span per invocation
func WithTracing(enabled bool) Option {
	return func(o *options) {
		o.tracingEnabled = enabled
	}
}

// WithMetrics enables/disables OpenTelemetry metrics
func WithMetrics(enabled bool) Option {
	return func(o *options) {
		o.metricsEnabled = enabled
	}
}

// newOptions creates options with defaults and applies provided options
func newOptions(opts ...Option) *options {
	o := &options{
		name:            DefaultHubName,
		logger:          slog.Default(),
		recoveryEnabled: true,
		tracingEnabled:  true,
		metricsEnabled:  true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
