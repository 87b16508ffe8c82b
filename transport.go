package wsclient

import (
	"bytes"
	"context"
	"io"
	"math"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

// DefaultReadLimit bounds the size of a single incoming message.
const DefaultReadLimit = 32 * 1024 * 1024 // 32MB

// EventHandlers are the callbacks a Transport invokes as the connection
// delivers data or goes away. Both may be called from any goroutine.
type EventHandlers struct {
	// OnReceive is called once per complete message. The reader is only
	// valid for the duration of the call.
	OnReceive func(typ MessageType, r io.Reader) error

	// OnClosed is called exactly once when the connection is closed, whether
	// locally, by the peer, or by a network failure.
	OnClosed func(status CloseStatus)
}

// MessageWriter buffers one outgoing message and commits it as a single
// WebSocket message.
type MessageWriter interface {
	Write(p []byte) (int, error)

	// Commit sends the buffered bytes and returns how many were written.
	Commit(ctx context.Context) (int, error)
}

// Transport provides connection-level WebSocket primitives to a Session.
// Implementations must be safe for concurrent use.
type Transport interface {
	// Subscribe registers the event handlers. It is called before Connect.
	Subscribe(h EventHandlers)

	// Connect performs a single connection attempt. Failures should be
	// reported as *ConnectionError.
	Connect(ctx context.Context, url string, typ MessageType) (MessageWriter, error)

	// MaxMessageSize is the largest message the transport accepts.
	MaxMessageSize() int64

	// RequestClose starts the close handshake without waiting for it.
	RequestClose(status CloseStatus, reason string) error

	// Close tears the connection down immediately.
	Close() error
}

// DialOptions configures the WebSocket connection.
type DialOptions struct {
	// HTTPHeader specifies additional HTTP headers to send during handshake.
	HTTPHeader http.Header

	// HTTPClient is the HTTP client used for the handshake.
	// If nil, http.DefaultClient is used.
	HTTPClient *http.Client

	// Subprotocols lists the WebSocket subprotocols to negotiate.
	Subprotocols []string

	// ReadLimit bounds incoming message size. Zero means DefaultReadLimit.
	ReadLimit int64
}

// NewTransport returns the default Transport, backed by github.com/coder/websocket.
func NewTransport(opts *DialOptions) Transport {
	t := &wsTransport{readLimit: DefaultReadLimit}
	if opts != nil {
		t.opts = *opts
		if opts.ReadLimit > 0 {
			t.readLimit = opts.ReadLimit
		}
	}
	return t
}

// wsTransport implements Transport over coder/websocket.
type wsTransport struct {
	opts      DialOptions
	readLimit int64

	mu        sync.Mutex
	handlers  EventHandlers
	conn      *websocket.Conn
	cancel    context.CancelFunc
	requested CloseStatus

	closeOnce sync.Once
}

func (t *wsTransport) Subscribe(h EventHandlers) {
	t.mu.Lock()
	t.handlers = h
	t.mu.Unlock()
}

func (t *wsTransport) Connect(ctx context.Context, url string, typ MessageType) (MessageWriter, error) {
	dialOpts := &websocket.DialOptions{
		HTTPClient:   t.opts.HTTPClient,
		Subprotocols: t.opts.Subprotocols,
	}
	if t.opts.HTTPHeader != nil {
		dialOpts.HTTPHeader = t.opts.HTTPHeader.Clone()
	}

	conn, resp, err := websocket.Dial(ctx, url, dialOpts)
	if err != nil {
		connErr := &ConnectionError{Op: "dial", URL: url, Err: err}
		if resp != nil {
			connErr.Code = resp.StatusCode
		}
		return nil, connErr
	}
	conn.SetReadLimit(t.readLimit)

	// The read loop outlives the dial context.
	readCtx, cancel := context.WithCancel(context.Background())

	t.mu.Lock()
	t.conn = conn
	t.cancel = cancel
	t.mu.Unlock()

	go t.readLoop(readCtx, conn)

	return &wsWriter{conn: conn, typ: toCoderType(typ)}, nil
}

func (t *wsTransport) MaxMessageSize() int64 {
	return math.MaxUint32
}

func (t *wsTransport) RequestClose(status CloseStatus, reason string) error {
	t.mu.Lock()
	conn := t.conn
	if conn != nil && t.requested == 0 {
		t.requested = status
	}
	t.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	// Close blocks until the handshake completes; the read loop reports it.
	go conn.Close(websocket.StatusCode(status), reason)
	return nil
}

func (t *wsTransport) Close() error {
	t.mu.Lock()
	conn := t.conn
	cancel := t.cancel
	t.mu.Unlock()

	if conn == nil {
		t.fireClosed(CloseAbnormal)
		return nil
	}
	err := conn.CloseNow()
	cancel()
	return err
}

// readLoop hands every message to OnReceive until the connection fails.
func (t *wsTransport) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		typ, r, err := conn.Reader(ctx)
		if err != nil {
			t.fireClosed(t.closeStatus(err))
			return
		}

		t.mu.Lock()
		onReceive := t.handlers.OnReceive
		t.mu.Unlock()

		if onReceive != nil {
			_ = onReceive(fromCoderType(typ), r)
		}

		// The next Reader call requires the previous message to be consumed.
		if _, err := io.Copy(io.Discard, r); err != nil {
			t.fireClosed(t.closeStatus(err))
			return
		}
	}
}

func (t *wsTransport) closeStatus(err error) CloseStatus {
	if code := websocket.CloseStatus(err); code != -1 {
		return CloseStatus(code)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.requested != 0 {
		return t.requested
	}
	return CloseAbnormal
}

func (t *wsTransport) fireClosed(status CloseStatus) {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		onClosed := t.handlers.OnClosed
		cancel := t.cancel
		t.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if onClosed != nil {
			onClosed(status)
		}
	})
}

// wsWriter buffers a message and writes it in one frame on Commit.
type wsWriter struct {
	conn *websocket.Conn
	typ  websocket.MessageType
	buf  bytes.Buffer
}

func (w *wsWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *wsWriter) Commit(ctx context.Context) (int, error) {
	defer w.buf.Reset()
	if err := w.conn.Write(ctx, w.typ, w.buf.Bytes()); err != nil {
		return 0, err
	}
	return w.buf.Len(), nil
}

func toCoderType(typ MessageType) websocket.MessageType {
	if typ == MessageBinary {
		return websocket.MessageBinary
	}
	return websocket.MessageText
}

func fromCoderType(typ websocket.MessageType) MessageType {
	switch typ {
	case websocket.MessageText:
		return MessageText
	case websocket.MessageBinary:
		return MessageBinary
	default:
		return MessageType(0)
	}
}
