package relay

import (
	"context"
	"sync/atomic"

	"github.com/belltown/termrelay/internal/queue"
)

// OutboundQueue is the ordered, unbounded hand-off channel between the input
// worker and the remote writer.
//
// Push never blocks, by design: the remote device's send slowness must not
// stall the operator's ability to keep composing input. A break control byte
// is pushed as an ordinary message and thus preserves send order relative to
// other pending input.
//
// The queue is safe for one concurrent producer and one concurrent consumer
// without external locking.
type OutboundQueue struct {
	items  queue.Queue[[]byte]
	notify chan struct{}
	closed atomic.Bool
}

// NewOutboundQueue creates an empty OutboundQueue.
func NewOutboundQueue() *OutboundQueue {
	return &OutboundQueue{
		items:  queue.NewLockFreeQueue[[]byte](),
		notify: make(chan struct{}, 1),
	}
}

// Push enqueues msg. It never blocks.
func (q *OutboundQueue) Push(msg []byte) {
	q.items.Enqueue(msg)
	q.wake()
}

// Pop blocks until a message is available, the context is done, or the queue
// is closed. Messages are delivered in FIFO order, each consumed exactly
// once. Pending messages are still drained after Close.
func (q *OutboundQueue) Pop(ctx context.Context) ([]byte, error) {
	for {
		if msg, ok := q.items.Dequeue(); ok {
			return msg, nil
		}

		if q.closed.Load() {
			return nil, ErrQueueClosed
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.notify:
		}
	}
}

// Close marks the queue closed and unblocks a consumer parked in Pop.
func (q *OutboundQueue) Close() {
	q.closed.Store(true)
	q.wake()
}

// Len returns the number of pending messages.
func (q *OutboundQueue) Len() int {
	return q.items.Length()
}

func (q *OutboundQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
