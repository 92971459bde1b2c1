package bus

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMessageBus_PublishConsume(t *testing.T) {
	mb := NewMessageBus(2)
	msg := InboundMessage{ChatID: "C1", MessageID: "100", Content: "hello"}

	if err := mb.PublishInbound(context.Background(), msg); err != nil {
		t.Fatalf("PublishInbound: %v", err)
	}
	if mb.Len() != 1 {
		t.Fatalf("Len = %d, want 1", mb.Len())
	}

	got, ok := mb.ConsumeInbound(context.Background())
	if !ok {
		t.Fatal("expected a message")
	}
	if got.MessageID != "100" || got.Content != "hello" {
		t.Errorf("got %+v", got)
	}
}

func TestMessageBus_TryPublishFull(t *testing.T) {
	mb := NewMessageBus(1)
	if err := mb.TryPublishInbound(InboundMessage{MessageID: "1"}); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	if err := mb.TryPublishInbound(InboundMessage{MessageID: "2"}); !errors.Is(err, ErrBusFull) {
		t.Fatalf("second publish: got %v, want ErrBusFull", err)
	}
}

func TestMessageBus_CloseDrains(t *testing.T) {
	mb := NewMessageBus(4)
	for _, id := range []string{"1", "2"} {
		if err := mb.TryPublishInbound(InboundMessage{MessageID: id}); err != nil {
			t.Fatalf("publish %s: %v", id, err)
		}
	}
	mb.Close()
	mb.Close() // idempotent

	if err := mb.TryPublishInbound(InboundMessage{MessageID: "3"}); !errors.Is(err, ErrBusClosed) {
		t.Fatalf("publish after close: got %v, want ErrBusClosed", err)
	}
	if err := mb.PublishInbound(context.Background(), InboundMessage{}); !errors.Is(err, ErrBusClosed) {
		t.Fatalf("blocking publish after close: got %v, want ErrBusClosed", err)
	}

	var drained []string
	for {
		msg, ok := mb.ConsumeInbound(context.Background())
		if !ok {
			break
		}
		drained = append(drained, msg.MessageID)
	}
	if len(drained) != 2 || drained[0] != "1" || drained[1] != "2" {
		t.Errorf("drained = %v, want [1 2]", drained)
	}
}

func TestMessageBus_CloseReleasesBlockedPublisher(t *testing.T) {
	mb := NewMessageBus(1)
	if err := mb.TryPublishInbound(InboundMessage{MessageID: "1"}); err != nil {
		t.Fatalf("fill: %v", err)
	}

	published := make(chan error, 1)
	go func() {
		published <- mb.PublishInbound(context.Background(), InboundMessage{MessageID: "2"})
	}()
	// Let the publisher block on the full queue.
	time.Sleep(20 * time.Millisecond)

	closed := make(chan struct{})
	go func() {
		mb.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close blocked behind a waiting publisher")
	}

	select {
	case err := <-published:
		if !errors.Is(err, ErrBusClosed) {
			t.Fatalf("blocked publish: got %v, want ErrBusClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("publisher not released by Close")
	}

	if msg, ok := mb.ConsumeInbound(context.Background()); !ok || msg.MessageID != "1" {
		t.Fatalf("drain: got %+v ok=%v, want message 1", msg, ok)
	}
	if _, ok := mb.ConsumeInbound(context.Background()); ok {
		t.Fatal("expected closed and drained bus")
	}
}

func TestMessageBus_ConsumeRespectsContext(t *testing.T) {
	mb := NewMessageBus(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, ok := mb.ConsumeInbound(ctx); ok {
		t.Fatal("expected no message after context timeout")
	}
}

func TestInboundMessage_IsReply(t *testing.T) {
	tests := []struct {
		name string
		msg  InboundMessage
		want bool
	}{
		{"top level", InboundMessage{MessageID: "100"}, false},
		{"reply", InboundMessage{MessageID: "101", ThreadID: "100"}, true},
		{"thread parent", InboundMessage{MessageID: "100", ThreadID: "100"}, false},
	}
	for _, tt := range tests {
		if got := tt.msg.IsReply(); got != tt.want {
			t.Errorf("%s: IsReply() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
