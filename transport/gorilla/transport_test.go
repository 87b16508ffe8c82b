package gorilla

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chrisboulton/wsclient-go"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{}

// newEchoServer echoes every message back. A text message "close" makes the
// server send a close frame with status 1001.
func newEchoServer(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt == websocket.TextMessage && string(data) == "close" {
				msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye")
				conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
				// Wait for the client's echo before dropping the connection.
				conn.SetReadDeadline(time.Now().Add(time.Second))
				conn.ReadMessage()
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newSession(t *testing.T, url string, opts ...wsclient.Option) *wsclient.Session {
	t.Helper()
	opts = append([]wsclient.Option{wsclient.WithTransport(New(nil))}, opts...)
	sess, err := wsclient.New(url, opts...)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	t.Cleanup(sess.Dispose)
	return sess
}

func TestTransport_EchoRoundTrip(t *testing.T) {
	url := newEchoServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess := newSession(t, url)
	if err := sess.Connect(ctx); err != nil {
		t.Fatalf("Connect error: %v", err)
	}

	results := []*wsclient.Future[int64]{
		sess.Send(wsclient.NewTextMessage("one")),
		sess.Send(wsclient.NewTextMessage("two")),
		sess.Send(wsclient.NewTextMessage("three")),
	}
	for i, f := range results {
		if _, err := f.Wait(ctx); err != nil {
			t.Fatalf("send %d error: %v", i, err)
		}
	}

	for _, want := range []string{"one", "two", "three"} {
		msg, err := sess.Receive(ctx)
		if err != nil {
			t.Fatalf("Receive error: %v", err)
		}
		if text, _ := msg.Text(); text != want {
			t.Errorf("Receive = %s, want %s", text, want)
		}
	}

	if err := sess.Close(ctx); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if status, ok := sess.CloseStatus(); !ok || status != wsclient.CloseNormal {
		t.Errorf("CloseStatus() = (%s, %v), want (normal, true)", status, ok)
	}
	if _, err := sess.Receive(ctx); !errors.Is(err, wsclient.ErrConnectionClosing) {
		t.Errorf("err = %v, want ErrConnectionClosing", err)
	}
}

func TestTransport_Binary(t *testing.T) {
	url := newEchoServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess := newSession(t, url, wsclient.WithMessageType(wsclient.MessageBinary))
	if err := sess.Connect(ctx); err != nil {
		t.Fatalf("Connect error: %v", err)
	}

	if _, err := sess.Send(wsclient.NewBinaryMessage([]byte{1, 2, 3})).Wait(ctx); err != nil {
		t.Fatalf("send error: %v", err)
	}
	msg, err := sess.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive error: %v", err)
	}
	if msg.Type() != wsclient.MessageBinary || msg.Len() != 3 {
		t.Errorf("got %s len %d, want binary len 3", msg.Type(), msg.Len())
	}
}

func TestTransport_PeerClose(t *testing.T) {
	url := newEchoServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess := newSession(t, url)
	if err := sess.Connect(ctx); err != nil {
		t.Fatalf("Connect error: %v", err)
	}

	sess.Send(wsclient.NewTextMessage("close"))

	if _, err := sess.Receive(ctx); !errors.Is(err, wsclient.ErrConnectionClosing) {
		t.Errorf("err = %v, want ErrConnectionClosing", err)
	}
	if status, ok := sess.CloseStatus(); !ok || status != wsclient.CloseGoingAway {
		t.Errorf("CloseStatus() = (%s, %v), want (going_away, true)", status, ok)
	}
}

func TestTransport_ConnectRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	sess := newSession(t, "ws"+strings.TrimPrefix(srv.URL, "http"))

	err := sess.Connect(context.Background())
	if !errors.Is(err, wsclient.ErrConnectFailed) {
		t.Fatalf("err = %v, want ErrConnectFailed", err)
	}
	var connErr *wsclient.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %T", err)
	}
	if connErr.Code != http.StatusUnauthorized {
		t.Errorf("Code = %d, want 401", connErr.Code)
	}
}

func TestTransport_HeaderAndReadLimit(t *testing.T) {
	gotHeader := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader <- r.Header.Get("X-Token")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(strings.Repeat("x", 64)))
		conn.SetReadDeadline(time.Now().Add(time.Second))
		conn.ReadMessage()
	}))
	defer srv.Close()

	header := http.Header{}
	header.Set("X-Token", "secret")
	transport := New(&Options{HTTPHeader: header, ReadLimit: 16})

	sess, err := wsclient.New("ws"+strings.TrimPrefix(srv.URL, "http"), wsclient.WithTransport(transport))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer sess.Dispose()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sess.Connect(ctx); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	if v := <-gotHeader; v != "secret" {
		t.Errorf("X-Token = %q, want secret", v)
	}

	// The oversized message is never surfaced; the connection fails instead.
	if _, err := sess.Receive(ctx); !errors.Is(err, wsclient.ErrConnectionClosing) {
		t.Errorf("err = %v, want ErrConnectionClosing", err)
	}
}

func TestTransport_CommitDeadlineDoesNotCarryOver(t *testing.T) {
	url := newEchoServer(t)
	transport := New(nil)
	defer transport.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	w, err := transport.Connect(ctx, url, wsclient.MessageText)
	if err != nil {
		t.Fatalf("Connect error: %v", err)
	}

	short, cancelShort := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancelShort()
	w.Write([]byte("first"))
	if _, err := w.Commit(short); err != nil {
		t.Fatalf("first commit error: %v", err)
	}

	// Let the first commit's deadline pass.
	<-short.Done()
	time.Sleep(50 * time.Millisecond)

	w.Write([]byte("second"))
	if n, err := w.Commit(context.Background()); err != nil || n != len("second") {
		t.Errorf("second commit = (%d, %v), want (%d, nil)", n, err, len("second"))
	}
}
