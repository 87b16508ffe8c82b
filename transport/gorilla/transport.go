// Package gorilla provides a wsclient.Transport backed by
// github.com/gorilla/websocket.
package gorilla

import (
	"context"
	"errors"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/chrisboulton/wsclient-go"
	"github.com/gorilla/websocket"
)

// closeWriteWait bounds writing the close frame.
const closeWriteWait = 5 * time.Second

// Options configures the transport.
type Options struct {
	// Dialer performs the handshake. If nil, websocket.DefaultDialer is used.
	Dialer *websocket.Dialer

	// HTTPHeader specifies additional HTTP headers to send during handshake.
	HTTPHeader http.Header

	// ReadLimit bounds incoming message size. Zero means wsclient.DefaultReadLimit.
	ReadLimit int64
}

// Transport implements wsclient.Transport.
type Transport struct {
	dialer    *websocket.Dialer
	header    http.Header
	readLimit int64

	mu        sync.Mutex
	handlers  wsclient.EventHandlers
	conn      *websocket.Conn
	requested wsclient.CloseStatus

	// gorilla allows one concurrent writer of data messages.
	writeMu sync.Mutex

	closeOnce sync.Once
}

// New creates a transport. opts may be nil.
func New(opts *Options) *Transport {
	t := &Transport{
		dialer:    websocket.DefaultDialer,
		readLimit: wsclient.DefaultReadLimit,
	}
	if opts != nil {
		if opts.Dialer != nil {
			t.dialer = opts.Dialer
		}
		if opts.HTTPHeader != nil {
			t.header = opts.HTTPHeader.Clone()
		}
		if opts.ReadLimit > 0 {
			t.readLimit = opts.ReadLimit
		}
	}
	return t
}

func (t *Transport) Subscribe(h wsclient.EventHandlers) {
	t.mu.Lock()
	t.handlers = h
	t.mu.Unlock()
}

func (t *Transport) Connect(ctx context.Context, url string, typ wsclient.MessageType) (wsclient.MessageWriter, error) {
	conn, resp, err := t.dialer.DialContext(ctx, url, t.header)
	if err != nil {
		connErr := &wsclient.ConnectionError{Op: "dial", URL: url, Err: err}
		if resp != nil {
			connErr.Code = resp.StatusCode
		}
		return nil, connErr
	}
	conn.SetReadLimit(t.readLimit)

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	go t.readLoop(conn)

	frame := websocket.TextMessage
	if typ == wsclient.MessageBinary {
		frame = websocket.BinaryMessage
	}
	return &writer{t: t, conn: conn, frame: frame}, nil
}

func (t *Transport) MaxMessageSize() int64 {
	return math.MaxUint32
}

func (t *Transport) RequestClose(status wsclient.CloseStatus, reason string) error {
	t.mu.Lock()
	conn := t.conn
	if conn != nil && t.requested == 0 {
		t.requested = status
	}
	t.mu.Unlock()

	if conn == nil {
		return wsclient.ErrNotConnected
	}

	// The peer echoes the close frame; the read loop sees it and reports.
	msg := websocket.FormatCloseMessage(int(status), reason)
	return conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteWait))
}

func (t *Transport) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		t.fireClosed(wsclient.CloseAbnormal)
		return nil
	}
	return conn.Close()
}

func (t *Transport) readLoop(conn *websocket.Conn) {
	defer conn.Close()

	for {
		mt, r, err := conn.NextReader()
		if err != nil {
			t.fireClosed(t.closeStatus(err))
			return
		}

		t.mu.Lock()
		onReceive := t.handlers.OnReceive
		t.mu.Unlock()

		if onReceive == nil {
			continue
		}

		typ := wsclient.MessageType(0)
		switch mt {
		case websocket.TextMessage:
			typ = wsclient.MessageText
		case websocket.BinaryMessage:
			typ = wsclient.MessageBinary
		}
		// NextReader discards whatever the handler leaves unread.
		_ = onReceive(typ, r)
	}
}

func (t *Transport) closeStatus(err error) wsclient.CloseStatus {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return wsclient.CloseStatus(ce.Code)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.requested != 0 {
		return t.requested
	}
	return wsclient.CloseAbnormal
}

func (t *Transport) fireClosed(status wsclient.CloseStatus) {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		onClosed := t.handlers.OnClosed
		t.mu.Unlock()

		if onClosed != nil {
			onClosed(status)
		}
	})
}

// writer buffers a message and sends it as one data message on Commit.
type writer struct {
	t     *Transport
	conn  *websocket.Conn
	frame int
	buf   []byte
}

func (w *writer) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *writer) Commit(ctx context.Context) (int, error) {
	data := w.buf
	w.buf = nil

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	w.t.writeMu.Lock()
	defer w.t.writeMu.Unlock()

	// A zero deadline clears whatever an earlier commit set.
	deadline, _ := ctx.Deadline()
	if err := w.conn.SetWriteDeadline(deadline); err != nil {
		return 0, err
	}

	if err := w.conn.WriteMessage(w.frame, data); err != nil {
		return 0, err
	}
	return len(data), nil
}

var _ wsclient.Transport = (*Transport)(nil)
