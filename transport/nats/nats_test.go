package nats

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/nats-io/nats.go"
	"github.com/rbaliyan/hubevent/transport"
	"github.com/rbaliyan/hubevent/transport/codec"
	"github.com/rbaliyan/hubevent/transport/message"
	"go.opentelemetry.io/otel/trace"
)

func TestNewRequiresConn(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrConnRequired) {
		t.Errorf("expected ErrConnRequired, got %v", err)
	}
}

func TestSubject(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{DefaultSubjectPrefix, "hubevent.conn-1"},
		{"chat", "chat.conn-1"},
		{"", "conn-1"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			tr := newTransport(nil, WithSubjectPrefix(tt.prefix))
			if got := tr.Subject("conn-1"); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestRegisterStream(t *testing.T) {
	ctx := context.Background()
	tr := newTransport(nil)

	if err := tr.RegisterStream(ctx, "conn-1"); err != nil {
		t.Fatalf("RegisterStream failed: %v", err)
	}
	if err := tr.RegisterStream(ctx, "conn-1"); err != transport.ErrStreamAlreadyExists {
		t.Errorf("expected ErrStreamAlreadyExists, got %v", err)
	}
	if err := tr.UnregisterStream(ctx, "conn-1"); err != nil {
		t.Fatalf("UnregisterStream failed: %v", err)
	}
	if err := tr.UnregisterStream(ctx, "conn-1"); err != transport.ErrStreamNotRegistered {
		t.Errorf("expected ErrStreamNotRegistered, got %v", err)
	}
	if err := tr.Publish(ctx, "conn-1", message.New("id", "chat", nil, nil, trace.SpanContext{})); err != transport.ErrStreamNotRegistered {
		t.Errorf("expected ErrStreamNotRegistered, got %v", err)
	}

	tr.Close(ctx)
	if err := tr.RegisterStream(ctx, "conn-2"); err != transport.ErrTransportClosed {
		t.Errorf("expected ErrTransportClosed, got %v", err)
	}
}

func testSubscription(t *testing.T, size uint, opts ...Option) (*Transport, *subscription) {
	t.Helper()
	tr := newTransport(nil, append([]Option{WithBufferSize(size)}, opts...)...)
	tr.RegisterStream(context.Background(), "conn-1")
	v, _ := tr.streams.Load("conn-1")
	st := v.(*stream)
	sub := tr.newSubscription(st)
	st.subs[sub.id] = sub
	return tr, sub
}

func encode(t *testing.T, c transport.Codec, id, target string, args ...any) []byte {
	t.Helper()
	data, err := c.Encode(message.New(id, target, args, map[string]string{"k": "v"}, trace.SpanContext{}))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return data
}

func TestHandleMessage(t *testing.T) {
	_, sub := testSubscription(t, 1, WithCodec(codec.MsgPack{}))

	sub.handleMessage(&nats.Msg{Subject: "hubevent.conn-1", Data: encode(t, codec.MsgPack{}, "id-1", "chat", "alice", "hi")})

	select {
	case msg := <-sub.Messages():
		if msg.ID() != "id-1" || msg.Target() != "chat" {
			t.Errorf("unexpected message %s %s", msg.ID(), msg.Target())
		}
		if diff := cmp.Diff([]any{"alice", "hi"}, msg.Arguments()); diff != "" {
			t.Errorf("arguments mismatch (-want +got):\n%s", diff)
		}
		if msg.Metadata()["k"] != "v" {
			t.Errorf("expected metadata k=v, got %v", msg.Metadata())
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
}

func TestHandleMessageDrops(t *testing.T) {
	var errs []error
	_, sub := testSubscription(t, 1, WithErrorHandler(func(err error) { errs = append(errs, err) }))

	sub.handleMessage(&nats.Msg{Data: []byte("not json")})
	if len(errs) != 1 || !errors.Is(errs[0], codec.ErrDecodeFailure) {
		t.Errorf("expected one decode failure, got %v", errs)
	}

	c := codec.JSON{}
	sub.handleMessage(&nats.Msg{Data: encode(t, c, "id-1", "chat")})
	sub.handleMessage(&nats.Msg{Data: encode(t, c, "id-2", "chat")})

	if got := (<-sub.Messages()).ID(); got != "id-1" {
		t.Errorf("expected id-1, got %s", got)
	}
	select {
	case msg := <-sub.Messages():
		t.Errorf("expected overflow to be dropped, got %s", msg.ID())
	default:
	}
}

func TestSubscriptionClose(t *testing.T) {
	ctx := context.Background()
	tr, sub := testSubscription(t, 1)

	sub.Close(ctx)
	sub.Close(ctx)

	if _, ok := <-sub.Messages(); ok {
		t.Error("expected channel to be closed")
	}
	sub.handleMessage(&nats.Msg{Data: encode(t, codec.JSON{}, "id-1", "chat")})

	v, _ := tr.streams.Load("conn-1")
	if n := len(v.(*stream).subs); n != 0 {
		t.Errorf("expected subscription removed from stream, got %d", n)
	}
}

// TestPublishSubscribe runs against a live server when NATS_URL is set.
func TestPublishSubscribe(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set")
	}
	ctx := context.Background()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer nc.Close()

	tr, err := New(nc, WithSubjectPrefix("hubevent-test"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer tr.Close(ctx)

	tr.RegisterStream(ctx, "conn-1")
	sub, err := tr.Subscribe(ctx, "conn-1")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	nc.Flush()

	if err := tr.Publish(ctx, "conn-1", message.New("id-1", "chat", []any{"alice"}, nil, trace.SpanContext{})); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-sub.Messages():
		if msg.Target() != "chat" {
			t.Errorf("expected chat, got %s", msg.Target())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}
