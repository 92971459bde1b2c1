package bus

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrBusClosed is returned when publishing to a closed MessageBus.
	ErrBusClosed = errors.New("message bus closed")
	// ErrBusFull is returned by TryPublishInbound when the queue is at capacity.
	ErrBusFull = errors.New("message bus full")
)

const DefaultQueueSize = 100

// MessageBus is a bounded queue of inbound messages waiting for a relay worker.
// Closing the bus stops new publishes; consumers keep receiving until the
// queue is drained.
type MessageBus struct {
	mu       sync.RWMutex
	inbound  chan InboundMessage
	done     chan struct{}
	doneOnce sync.Once
	closed   bool
}

func NewMessageBus(size int) *MessageBus {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &MessageBus{
		inbound: make(chan InboundMessage, size),
		done:    make(chan struct{}),
	}
}

// PublishInbound enqueues msg, waiting for room until ctx is done or the bus
// is closed.
func (mb *MessageBus) PublishInbound(ctx context.Context, msg InboundMessage) error {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	if mb.closed {
		return ErrBusClosed
	}
	select {
	case mb.inbound <- msg:
		return nil
	case <-mb.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPublishInbound enqueues msg without waiting.
func (mb *MessageBus) TryPublishInbound(msg InboundMessage) error {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	if mb.closed {
		return ErrBusClosed
	}
	select {
	case mb.inbound <- msg:
		return nil
	default:
		return ErrBusFull
	}
}

// ConsumeInbound returns the next queued message. ok is false once the bus is
// closed and drained, or when ctx is done.
func (mb *MessageBus) ConsumeInbound(ctx context.Context) (InboundMessage, bool) {
	select {
	case msg, ok := <-mb.inbound:
		return msg, ok
	case <-ctx.Done():
		return InboundMessage{}, false
	}
}

// Len returns the number of queued messages.
func (mb *MessageBus) Len() int {
	return len(mb.inbound)
}

// Close stops publishing. Blocked publishers are released with ErrBusClosed
// before the queue is closed.
func (mb *MessageBus) Close() {
	mb.doneOnce.Do(func() { close(mb.done) })
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if !mb.closed {
		mb.closed = true
		close(mb.inbound)
	}
}
