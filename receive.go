package wsclient

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// receiveQueue holds delivered messages until Receive takes them.
//
// Each blocked receiver parks on its own channel. A delivery wakes exactly
// one of them, in the order they started waiting; closing wakes them all.
type receiveQueue struct {
	mu      sync.Mutex
	items   []*IncomingMessage
	waiters []chan struct{}
	closed  bool
}

func newReceiveQueue() *receiveQueue {
	return &receiveQueue{}
}

// push appends msg and wakes one waiting receiver.
func (q *receiveQueue) push(msg *IncomingMessage) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, msg)
	q.wakeOne()
}

// close marks the queue as finished and wakes every waiting receiver.
// Messages already queued can still be taken.
func (q *receiveQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	for _, w := range q.waiters {
		close(w)
	}
	q.waiters = nil
}

// pop returns the oldest message, waiting for one if the queue is empty.
func (q *receiveQueue) pop(ctx context.Context) (*IncomingMessage, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			msg := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.mu.Unlock()
			return msg, nil
		}
		if q.closed {
			q.mu.Unlock()
			return nil, ErrConnectionClosing
		}
		w := make(chan struct{}, 1)
		q.waiters = append(q.waiters, w)
		q.mu.Unlock()

		// Woken by a delivery or by close; loop to find out which.
		select {
		case <-w:
		case <-ctx.Done():
			q.abandon(w)
			return nil, ctx.Err()
		}
	}
}

// abandon removes a waiter that gave up. If a delivery had already woken it,
// the wakeup is passed on so the message is not stranded.
func (q *receiveQueue) abandon(w chan struct{}) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, other := range q.waiters {
		if other == w {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			return
		}
	}
	if !q.closed && len(q.items) > 0 {
		q.wakeOne()
	}
}

// wakeOne must be called with q.mu held.
func (q *receiveQueue) wakeOne() {
	if len(q.waiters) == 0 {
		return
	}
	w := q.waiters[0]
	q.waiters[0] = nil
	q.waiters = q.waiters[1:]
	w <- struct{}{}
}

func (q *receiveQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Receive returns the next message from the peer, in arrival order, waiting
// until one arrives. Once the connection has closed and every delivered
// message has been taken, it fails with ErrConnectionClosing.
func (s *Session) Receive(ctx context.Context) (*IncomingMessage, error) {
	return s.recv.pop(ctx)
}

// handleReceive relays one transport delivery into the receive queue.
// A frame of unknown type or one that fails to read is dropped whole.
func (s *Session) handleReceive(typ MessageType, r io.Reader) error {
	if !typ.valid() {
		s.logger.Debug("dropped message",
			slog.String("type", typ.String()),
			slog.String("reason", "unsupported type"),
		)
		return ErrTypeMismatch
	}

	msg := &IncomingMessage{typ: typ}
	if _, err := msg.buf.ReadFrom(r); err != nil {
		s.logger.Debug("dropped message",
			slog.String("type", typ.String()),
			slog.Any("error", err),
		)
		return err
	}

	if s.cfg.onReceive != nil {
		s.cfg.onReceive(msg)
	}

	s.logger.Debug("received message",
		slog.String("type", typ.String()),
		slog.Int("len", msg.Len()),
	)

	s.recv.push(msg)
	return nil
}
