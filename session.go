package wsclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"
)

// Session is one client-side WebSocket connection.
// It is safe for concurrent use by multiple goroutines.
type Session struct {
	id        string
	url       string
	cfg       sessionConfig
	transport Transport
	logger    *slog.Logger

	// ctx is cancelled by Dispose and bounds in-flight writes.
	ctx    context.Context
	cancel context.CancelFunc

	connMu    sync.RWMutex
	attempted bool
	writer    MessageWriter
	// done is set once Close or Dispose has made the session terminal.
	done bool

	sends sendQueue
	recv  *receiveQueue

	closed      *Future[CloseStatus]
	closeReq    sync.Once
	disposeOnce sync.Once
}

// New creates a session for url. No network activity happens until Connect.
// It fails with ErrInvalidArgument if the configured message type is neither
// text nor binary.
func New(url string, opts ...Option) (*Session, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if url == "" {
		return nil, &ConfigError{Field: "url", Value: `""`}
	}
	if !cfg.messageType.valid() {
		return nil, &ConfigError{Field: "message type", Value: cfg.messageType}
	}

	if cfg.readLimit < 0 {
		return nil, &ConfigError{Field: "read limit", Value: cfg.readLimit}
	}

	transport := cfg.transport
	if transport == nil {
		transport = NewTransport(cfg.transportOptions())
	}

	id := uuid.New().String()
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}
	logger = logger.With(slog.String("session_id", id), slog.String("url", url))

	ctx, cancel := context.WithCancel(context.Background())

	return &Session{
		id:        id,
		url:       url,
		cfg:       cfg,
		transport: transport,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		recv:      newReceiveQueue(),
		closed:    newFuture[CloseStatus](),
	}, nil
}

// Connect makes a single connection attempt. Failures are returned as
// *ConnectionError and match ErrConnectFailed, and leave the session closed.
// A session connects at most once; later calls fail with ErrAlreadyConnected.
// Connecting after Close or Dispose, or while either runs, fails with
// ErrClosed.
func (s *Session) Connect(ctx context.Context) error {
	s.connMu.Lock()
	if s.done {
		s.connMu.Unlock()
		return ErrClosed
	}
	if s.attempted {
		s.connMu.Unlock()
		return ErrAlreadyConnected
	}
	s.attempted = true
	s.connMu.Unlock()

	// Subscribe first so events racing with the handshake are not lost.
	s.transport.Subscribe(EventHandlers{
		OnReceive: s.handleReceive,
		OnClosed:  s.handleClosed,
	})

	s.logger.Debug("connecting", slog.String("type", s.cfg.messageType.String()))

	// Dispose aborts the handshake.
	dialCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	w, err := s.transport.Connect(dialCtx, s.url, s.cfg.messageType)
	if err != nil {
		if s.ctx.Err() != nil {
			return ErrClosed
		}
		var connErr *ConnectionError
		if !errors.As(err, &connErr) {
			err = &ConnectionError{Op: "connect", URL: s.url, Err: err}
		}
		s.logger.Debug("connect failed", slog.Any("error", err))
		// A failed connect is final; nothing will ever be received.
		s.handleClosed(CloseAbnormal)
		return err
	}

	s.connMu.Lock()
	if s.done {
		s.connMu.Unlock()
		// Closed while dialing. The transport holds the new connection now,
		// so this Close tears it down.
		if err := s.transport.Close(); err != nil {
			s.logger.Debug("transport close failed", slog.Any("error", err))
		}
		return ErrClosed
	}
	s.writer = w
	s.connMu.Unlock()

	s.logger.Debug("connected")
	return nil
}

// markDone makes the session terminal and reports whether a writer had been
// installed by then.
func (s *Session) markDone() bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.done = true
	return s.writer != nil
}

// ID returns the session ID used in logs.
func (s *Session) ID() string {
	return s.id
}

// URL returns the target address.
func (s *Session) URL() string {
	return s.url
}

// MessageType returns the configured framing mode.
func (s *Session) MessageType() MessageType {
	return s.cfg.messageType
}

// Pending returns the number of sends that have been accepted but have not
// yet resolved.
func (s *Session) Pending() int {
	return s.sends.pending()
}

func (s *Session) currentWriter() MessageWriter {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	return s.writer
}
