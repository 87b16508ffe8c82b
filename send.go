package wsclient

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// pendingSend pairs an admitted message with its result.
type pendingSend struct {
	msg    *OutgoingMessage
	result *Future[int64]
}

// sendQueue orders admitted messages. scheduled counts messages that have
// been admitted but not yet resolved, including the one in flight.
type sendQueue struct {
	mu        sync.Mutex
	items     []*pendingSend
	scheduled int
}

// push admits p. It reports true when nothing else is scheduled, in which
// case p is not queued and the caller must start dispatching it.
func (q *sendQueue) push(p *pendingSend) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.scheduled++
	if q.scheduled == 1 {
		return true
	}
	q.items = append(q.items, p)
	return false
}

// advance retires the message in flight and pops the next one, if any.
func (q *sendQueue) advance() *pendingSend {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.scheduled--
	if len(q.items) == 0 {
		return nil
	}
	next := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return next
}

func (q *sendQueue) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.scheduled
}

// Send queues msg for delivery and returns its result, which resolves with
// the number of bytes written once the message has been committed.
//
// Validation failures resolve the result immediately without touching the
// transport. Messages are written in the order Send is called, one at a
// time; a failed message does not stop the ones queued behind it.
func (s *Session) Send(msg *OutgoingMessage) *Future[int64] {
	if err := s.validate(msg); err != nil {
		return failedFuture[int64](err)
	}

	p := &pendingSend{msg: msg, result: newFuture[int64]()}
	if s.sends.push(p) {
		go s.dispatchLoop(p)
	}
	return p.result
}

func (s *Session) validate(msg *OutgoingMessage) error {
	if s.currentWriter() == nil {
		return ErrNotConnected
	}
	if msg == nil {
		return ErrInvalidArgument
	}
	if msg.typ != s.cfg.messageType {
		return ErrTypeMismatch
	}
	if msg.length <= 0 {
		return ErrEmptyMessage
	}
	if msg.length > s.transport.MaxMessageSize() {
		return ErrMessageTooLarge
	}
	return nil
}

// dispatchLoop is the single send worker. It runs while messages are
// scheduled and exits when the queue drains; the next Send restarts it.
func (s *Session) dispatchLoop(p *pendingSend) {
	for p != nil {
		n, err := s.dispatch(p.msg)
		next := s.sends.advance()
		p.result.resolve(n, err)
		p = next
	}
}

// dispatch writes one message to the transport.
func (s *Session) dispatch(msg *OutgoingMessage) (int64, error) {
	if s.cfg.onSend != nil {
		s.cfg.onSend(msg)
	}

	buf := make([]byte, msg.length)
	read, err := io.ReadFull(msg.body, buf)
	if err != nil {
		return 0, &SendError{
			Op:        "read",
			MessageID: msg.id,
			Err:       fmt.Errorf("%w: read %d of %d bytes: %v", ErrSendIncomplete, read, msg.length, err),
		}
	}

	w := s.currentWriter()
	if _, err := w.Write(buf); err != nil {
		return 0, &SendError{Op: "write", MessageID: msg.id, Err: &TransportError{Op: "write", Err: err}}
	}

	written, err := w.Commit(s.ctx)
	if err != nil {
		s.logger.Debug("send failed",
			slog.String("message_id", msg.id),
			slog.Any("error", err),
		)
		return 0, &SendError{Op: "commit", MessageID: msg.id, Err: &TransportError{Op: "commit", Err: err}}
	}
	if written != read {
		return int64(written), &SendError{
			Op:        "commit",
			MessageID: msg.id,
			Err:       fmt.Errorf("%w: wrote %d of %d bytes", ErrSendIncomplete, written, read),
		}
	}

	s.logger.Debug("sent message",
		slog.String("message_id", msg.id),
		slog.String("type", msg.typ.String()),
		slog.Int("len", written),
	)
	return int64(written), nil
}
