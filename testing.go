package hubevent

import (
	"context"
	"sync"
	"time"

	"github.com/rbaliyan/hubevent/proxy"
	"github.com/rbaliyan/hubevent/transport"
)

// TestHub creates a hub configured for testing, with recovery enabled and
// tracing and metrics disabled.
func TestHub(name string) *proxy.Hub {
	return proxy.New(
		proxy.WithName(name),
		proxy.WithTracing(false),
		proxy.WithMetrics(false),
	)
}

// RecordedCall represents a single recorded callback invocation
type RecordedCall struct {
	Method string
	Args   []any
	Time   time.Time
}

// Recorder collects callback invocations of any arity for later assertions.
//
// Example:
//
//	rec := hubevent.NewRecorder()
//	hubevent.On2(hub, "chat", func(user string, n int) { rec.Record("chat", user, n) })
//	hubevent.OnAny(hub, rec.Invocation())
type Recorder struct {
	mu    sync.Mutex
	calls []RecordedCall
}

// NewRecorder creates a new recorder
func NewRecorder() *Recorder {
	return &Recorder{calls: make([]RecordedCall, 0)}
}

// Record appends one call
func (r *Recorder) Record(method string, args ...any) {
	r.mu.Lock()
	r.calls = append(r.calls, RecordedCall{
		Method: method,
		Args:   args,
		Time:   time.Now(),
	})
	r.mu.Unlock()
}

// Invocation returns a callback for OnAny and OnMissing recording the invoked
// method and its raw arguments
func (r *Recorder) Invocation() func(proxy.Arguments, string) {
	return func(args proxy.Arguments, method string) {
		r.Record(method, args...)
	}
}

// Observer returns an observer recording every delivery under name
func (r *Recorder) Observer(name string) Observer {
	return ObserverFunc(func(args proxy.Arguments) {
		r.Record(name, args...)
	})
}

// Calls returns a copy of all recorded calls
func (r *Recorder) Calls() []RecordedCall {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]RecordedCall, len(r.calls))
	copy(result, r.calls)
	return result
}

// CallsFor returns the recorded calls for a method
func (r *Recorder) CallsFor(method string) []RecordedCall {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []RecordedCall
	for _, c := range r.calls {
		if c.Method == method {
			result = append(result, c)
		}
	}
	return result
}

// Count returns the number of recorded calls
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// Last returns the last recorded call, or nil if none
func (r *Recorder) Last() *RecordedCall {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.calls) == 0 {
		return nil
	}
	call := r.calls[len(r.calls)-1]
	return &call
}

// Reset clears all recorded calls
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = make([]RecordedCall, 0)
	r.mu.Unlock()
}

// WaitFor waits until at least n calls were recorded or timeout is reached.
// Returns true if the expected count was reached, false on timeout.
func (r *Recorder) WaitFor(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if r.Count() >= n {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// RecordedMessage represents a message that was published during a test
type RecordedMessage struct {
	Stream    string
	Message   transport.Message
	Timestamp time.Time
}

// RecordingTransport wraps a transport and records all published messages.
type RecordingTransport struct {
	transport.Transport
	mu       sync.Mutex
	messages []RecordedMessage
}

// NewRecordingTransport creates a transport that records all published messages.
// It wraps the provided transport (which is required).
//
// Example:
//
//	import "github.com/rbaliyan/hubevent/transport/channel"
//	t := hubevent.NewRecordingTransport(channel.New())
func NewRecordingTransport(t transport.Transport) *RecordingTransport {
	if t == nil {
		panic("hubevent: transport is required for NewRecordingTransport")
	}
	return &RecordingTransport{
		Transport: t,
		messages:  make([]RecordedMessage, 0),
	}
}

// Publish records the message and delegates to the underlying transport
func (t *RecordingTransport) Publish(ctx context.Context, stream string, msg transport.Message) error {
	t.mu.Lock()
	t.messages = append(t.messages, RecordedMessage{
		Stream:    stream,
		Message:   msg,
		Timestamp: time.Now(),
	})
	t.mu.Unlock()

	return t.Transport.Publish(ctx, stream, msg)
}

// Messages returns a copy of all recorded messages
func (t *RecordingTransport) Messages() []RecordedMessage {
	t.mu.Lock()
	defer t.mu.Unlock()

	result := make([]RecordedMessage, len(t.messages))
	copy(result, t.messages)
	return result
}

// CountFor returns the number of messages published for a target method
func (t *RecordingTransport) CountFor(target string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := 0
	for _, m := range t.messages {
		if m.Message.Target() == target {
			count++
		}
	}
	return count
}
