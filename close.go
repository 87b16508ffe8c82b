package wsclient

import (
	"context"
	"log/slog"
)

// Close starts a normal closure and waits until the transport confirms the
// connection is closed. See CloseWithStatus.
func (s *Session) Close(ctx context.Context) error {
	return s.CloseWithStatus(ctx, CloseNormal, "")
}

// CloseWithStatus sends a close frame with the given status and reason, then
// waits until the transport reports the connection closed. There is no
// internal timeout; bound the wait with ctx.
//
// Only the first call sends a close frame. Later calls wait on the same
// closure and return nil once it completes.
func (s *Session) CloseWithStatus(ctx context.Context, status CloseStatus, reason string) error {
	if !s.closed.resolved() {
		s.closeReq.Do(func() {
			s.requestClose(status, reason)
		})
	}

	select {
	case <-s.closed.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		if s.closed.resolved() {
			return nil
		}
		return ErrClosed
	}
}

func (s *Session) requestClose(status CloseStatus, reason string) {
	if !s.markDone() {
		// Nothing to hand-shake with; a Connect still dialing gives up.
		s.handleClosed(status)
		return
	}

	s.logger.Debug("closing session",
		slog.String("status", status.String()),
		slog.String("reason", reason),
	)

	if err := s.transport.RequestClose(status, reason); err != nil {
		s.logger.Warn("close request failed", slog.Any("error", err))
		s.handleClosed(CloseAbnormal)
	}
}

// handleClosed runs when the transport reports the connection closed. Every
// blocked receiver is released and the close signal completes; repeated
// calls have no further effect.
func (s *Session) handleClosed(status CloseStatus) {
	s.recv.close()
	if s.closed.resolve(status, nil) {
		s.logger.Debug("session closed", slog.String("status", status.String()))
	}
}

// CloseStatus returns the close status recorded when the connection closed.
// The second result is false while the connection is still open.
func (s *Session) CloseStatus() (CloseStatus, bool) {
	if !s.closed.resolved() {
		return 0, false
	}
	return s.closed.val, true
}

// Dispose releases the session without a close handshake. It cancels
// in-flight writes, wakes every blocked Receive and Close call, and tears the
// transport down. It is safe to call more than once.
func (s *Session) Dispose() {
	s.disposeOnce.Do(func() {
		s.markDone()
		s.recv.close()
		if err := s.transport.Close(); err != nil {
			s.logger.Debug("transport close failed", slog.Any("error", err))
		}
		s.cancel()
	})
}
