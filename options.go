package wsclient

import "log/slog"

// Option configures a Session.
type Option func(*sessionConfig)

type sessionConfig struct {
	messageType MessageType
	logger      *slog.Logger
	transport   Transport
	dialOpts    *DialOptions
	readLimit   int64
	onSend      func(*OutgoingMessage)
	onReceive   func(*IncomingMessage)
}

func defaultConfig() sessionConfig {
	return sessionConfig{
		messageType: MessageText,
	}
}

// WithMessageType sets the framing mode of the session. Every outgoing
// message must match it. The default is MessageText.
func WithMessageType(typ MessageType) Option {
	return func(c *sessionConfig) {
		c.messageType = typ
	}
}

// WithLogger sets a structured logger for the session.
func WithLogger(logger *slog.Logger) Option {
	return func(c *sessionConfig) {
		c.logger = logger
	}
}

// WithTransport replaces the default coder/websocket transport.
// This is useful for testing or custom transport implementations.
func WithTransport(t Transport) Option {
	return func(c *sessionConfig) {
		c.transport = t
	}
}

// WithDialOptions configures the default transport. It is ignored when
// WithTransport is also given.
func WithDialOptions(opts DialOptions) Option {
	return func(c *sessionConfig) {
		c.dialOpts = &opts
	}
}

// WithReadLimit bounds the size of a single incoming message on the default
// transport. It takes precedence over DialOptions.ReadLimit.
func WithReadLimit(n int64) Option {
	return func(c *sessionConfig) {
		c.readLimit = n
	}
}

// WithOnSend sets a callback invoked as each message is dispatched.
func WithOnSend(fn func(*OutgoingMessage)) Option {
	return func(c *sessionConfig) {
		c.onSend = fn
	}
}

// WithOnReceive sets a callback invoked as each message is queued for Receive.
func WithOnReceive(fn func(*IncomingMessage)) Option {
	return func(c *sessionConfig) {
		c.onReceive = fn
	}
}

// transportOptions merges the dial options with the standalone read limit.
func (c *sessionConfig) transportOptions() *DialOptions {
	if c.readLimit == 0 {
		return c.dialOpts
	}
	var opts DialOptions
	if c.dialOpts != nil {
		opts = *c.dialOpts
	}
	opts.ReadLimit = c.readLimit
	return &opts
}
