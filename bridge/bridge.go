// Package bridge connects a transport stream to a proxy hub.
//
// A Connection is the single delivery path of a hub: one goroutine receives
// invocation messages from the stream, in order, and calls Invoke for each.
// All handlers of one invocation therefore finish before the next invocation
// starts.
//
// Example:
//
//	t := channel.New(channel.WithCodec(codec.JSON{}))
//	t.RegisterStream(ctx, "conn-1")
//
//	hub := proxy.New(proxy.WithName("chat"))
//	hubevent.On2(hub, "message", func(user string, text string) { ... })
//
//	conn, err := bridge.Connect(ctx, t, "conn-1", hub)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/rbaliyan/hubevent/idempotency"
	"github.com/rbaliyan/hubevent/proxy"
	"github.com/rbaliyan/hubevent/ratelimit"
	"github.com/rbaliyan/hubevent/transport"
)

var (
	// ErrRateLimited is acked for invocations dropped by the limiter
	ErrRateLimited = errors.New("invocation rate limited")
	// ErrInvokerRequired is returned by Connect without a hub
	ErrInvokerRequired = errors.New("invoker required")
	// ErrTransportRequired is returned by Connect without a transport
	ErrTransportRequired = errors.New("transport required")
)

// Invoker delivers one incoming call. *proxy.Hub implements it.
type Invoker interface {
	Invoke(ctx context.Context, method string, args proxy.Arguments) error
}

var _ Invoker = (*proxy.Hub)(nil)

// Connection feeds one transport stream into an Invoker.
type Connection struct {
	stream      string
	invoker     Invoker
	sub         transport.Subscription
	logger      *slog.Logger
	limiter     ratelimit.Limiter
	dropLimited bool
	ackErrors   bool
	dedup       idempotency.Store

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	delivered atomic.Int64
	failed    atomic.Int64
	limited   atomic.Int64
	skipped   atomic.Int64
}

// Connect subscribes to stream on t and starts delivering its messages to
// inv. The stream must be registered on t.
func Connect(ctx context.Context, t transport.Transport, stream string, inv Invoker, opts ...Option) (*Connection, error) {
	if t == nil {
		return nil, ErrTransportRequired
	}
	if inv == nil {
		return nil, ErrInvokerRequired
	}
	o := newOptions(opts...)

	sub, err := t.Subscribe(ctx, stream)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		stream:      stream,
		invoker:     inv,
		sub:         sub,
		logger:      o.logger.With("stream", stream, "subscriber", sub.ID()),
		limiter:     o.limiter,
		dropLimited: o.dropLimited,
		ackErrors:   o.ackErrors,
		dedup:       o.dedup,
		ctx:         runCtx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	go c.run()

	c.logger.Debug("connected")
	return c, nil
}

// Stream returns the name of the stream
func (c *Connection) Stream() string {
	return c.stream
}

// Done is closed once the connection stopped delivering, either because
// Close was called or because the stream was closed by the transport.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Delivered returns the number of invocations delivered to the invoker
func (c *Connection) Delivered() int64 {
	return c.delivered.Load()
}

// Failed returns the number of delivered invocations that returned an error
func (c *Connection) Failed() int64 {
	return c.failed.Load()
}

// Limited returns the number of invocations dropped by the limiter
func (c *Connection) Limited() int64 {
	return c.limited.Load()
}

// Skipped returns the number of duplicate messages skipped
func (c *Connection) Skipped() int64 {
	return c.skipped.Load()
}

// Close stops delivery and closes the subscription. It waits for the
// invocation in progress, if any, to finish.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.sub.Close(context.Background())
		<-c.done
		c.logger.Debug("disconnected",
			"delivered", c.delivered.Load(),
			"failed", c.failed.Load(),
			"limited", c.limited.Load(),
			"skipped", c.skipped.Load())
	})
	return err
}

func (c *Connection) run() {
	defer close(c.done)
	for {
		select {
		case <-c.ctx.Done():
			return
		case msg, ok := <-c.sub.Messages():
			if !ok {
				c.logger.Debug("stream closed")
				return
			}
			if !c.deliver(msg) {
				return
			}
		}
	}
}

// deliver invokes one message. It returns false when the connection is
// shutting down.
func (c *Connection) deliver(msg transport.Message) bool {
	method := msg.Target()

	if c.dedup != nil {
		seen, err := c.dedup.Seen(c.ctx, msg.ID())
		if err != nil {
			c.logger.Warn("deduplication check failed", "msg_id", msg.ID(), "error", err)
		} else if seen {
			c.skipped.Add(1)
			c.logger.Debug("skipping duplicate message", "method", method, "msg_id", msg.ID())
			c.ack(msg, nil)
			return true
		}
	}

	if c.limiter != nil {
		if c.dropLimited {
			if !c.limiter.Allow(c.ctx, method) {
				c.limited.Add(1)
				c.logger.Warn("invocation rate limited", "method", method, "msg_id", msg.ID())
				c.forget(msg)
				c.ack(msg, ErrRateLimited)
				return true
			}
		} else if err := c.limiter.Wait(c.ctx, method); err != nil {
			c.forget(msg)
			return false
		}
	}

	err := c.invoker.Invoke(msg.Context(), method, proxy.Arguments(msg.Arguments()))
	c.delivered.Add(1)
	if err != nil {
		c.failed.Add(1)
		c.logger.Warn("invocation failed", "method", method, "msg_id", msg.ID(), "error", err)
	}

	if c.ackErrors {
		// a nacked message may come back and must be delivered again
		if err != nil {
			c.forget(msg)
		}
		c.ack(msg, err)
	} else {
		c.ack(msg, nil)
	}
	return true
}

// forget clears the dedup mark of a message that was not delivered, so that
// a redelivery reaches the hub.
func (c *Connection) forget(msg transport.Message) {
	if c.dedup == nil {
		return
	}
	if err := c.dedup.Forget(context.WithoutCancel(c.ctx), msg.ID()); err != nil {
		c.logger.Warn("deduplication reset failed", "msg_id", msg.ID(), "error", err)
	}
}

func (c *Connection) ack(msg transport.Message, err error) {
	if ackErr := msg.Ack(err); ackErr != nil {
		c.logger.Warn("ack failed", "msg_id", msg.ID(), "error", ackErr)
	}
}
