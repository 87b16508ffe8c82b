// Package wsclient provides a client-side WebSocket session with ordered
// sends, a pull-style receive queue and a deterministic close handshake.
//
// A [Session] sits on top of a [Transport], which does the framing and the
// network I/O. The default transport uses github.com/coder/websocket; the
// transport/gorilla package provides one backed by github.com/gorilla/websocket.
//
// # Thread Safety
//
// [Session] is safe for concurrent use by multiple goroutines. Messages are
// written one at a time in the order [Session.Send] is called, and
// [Session.Receive] hands out each delivered message to exactly one caller,
// in arrival order.
//
// # Basic Usage
//
//	ctx := context.Background()
//
//	sess, err := wsclient.New("wss://example.com/ws")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Dispose()
//
//	if err := sess.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Send does not block; wait on the result when you need it.
//	if _, err := sess.Send(wsclient.NewTextMessage("hello")).Wait(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	msg, err := sess.Receive(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	text, _ := msg.Text()
//	fmt.Println(text)
//
//	_ = sess.Close(ctx)
//
// # Errors
//
// Every failure can be classified with [errors.Is] against the sentinel
// errors of this package. [ErrConnectFailed] is fatal to the session;
// [ErrNotConnected], [ErrTypeMismatch], [ErrEmptyMessage] and
// [ErrMessageTooLarge] are reported before anything reaches the transport;
// [ErrSendIncomplete] and [ErrTransportFault] affect a single message;
// [ErrConnectionClosing] means no more messages will arrive.
//
// # Observability
//
// Use [WithLogger], [WithOnSend], and [WithOnReceive] to add logging and
// monitoring to the session:
//
//	sess, err := wsclient.New(url,
//	    wsclient.WithLogger(slog.Default()),
//	    wsclient.WithOnSend(func(msg *wsclient.OutgoingMessage) {
//	        metrics.MessagesSent.Inc()
//	    }),
//	)
package wsclient
