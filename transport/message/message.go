// Package message provides the invocation Message type carried by transports.
//
// This package is imported by both codec and transport packages to avoid circular
// dependencies while providing a unified message type.
package message

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// Message is one server-to-client method invocation
type Message interface {
	// ID returns the unique message identifier
	ID() string
	// Target returns the name of the invoked method
	Target() string
	// Arguments returns the untyped, positional invocation arguments
	Arguments() []any
	// Metadata returns optional key-value metadata
	Metadata() map[string]string
	// Context returns a context with trace information (if available)
	Context() context.Context
	// Ack acknowledges the message. Pass nil for success, or the handling error.
	Ack(error) error
}

type message struct {
	id       string
	target   string
	args     []any
	metadata map[string]string
	span     trace.SpanContext
	ackFn    func(error) error
}

func (m *message) ID() string                  { return m.id }
func (m *message) Target() string              { return m.target }
func (m *message) Arguments() []any            { return m.args }
func (m *message) Metadata() map[string]string { return m.metadata }
func (m *message) Context() context.Context {
	if !m.span.IsValid() {
		return context.Background()
	}
	return trace.ContextWithRemoteSpanContext(context.Background(), m.span)
}
func (m *message) Ack(err error) error {
	if m.ackFn != nil {
		return m.ackFn(err)
	}
	return nil
}

// New creates a new message
func New(id, target string, args []any, metadata map[string]string, spanCtx trace.SpanContext) Message {
	return &message{
		id:       id,
		target:   target,
		args:     args,
		metadata: metadata,
		span:     spanCtx,
	}
}

// WithAck returns a copy of msg whose Ack calls ackFn.
// Transports use this to attach their own acknowledgment behavior.
func WithAck(msg Message, ackFn func(error) error) Message {
	m := &message{
		id:       msg.ID(),
		target:   msg.Target(),
		args:     msg.Arguments(),
		metadata: msg.Metadata(),
		span:     trace.SpanContextFromContext(msg.Context()),
		ackFn:    ackFn,
	}
	return m
}

// Compile-time interface check
var _ Message = (*message)(nil)
