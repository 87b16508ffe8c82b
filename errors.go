package wsclient

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	ErrNotConnected      = errors.New("wsclient: client not connected")
	ErrAlreadyConnected  = errors.New("wsclient: client already connected")
	ErrTypeMismatch      = errors.New("wsclient: message type mismatch")
	ErrEmptyMessage      = errors.New("wsclient: cannot send empty message")
	ErrMessageTooLarge   = errors.New("wsclient: message size too large")
	ErrSendIncomplete    = errors.New("wsclient: failed to send all the bytes")
	ErrConnectionClosing = errors.New("wsclient: connection is closing")
	ErrInvalidArgument   = errors.New("wsclient: invalid argument")
	ErrConnectFailed     = errors.New("wsclient: connect failed")
	ErrTransportFault    = errors.New("wsclient: transport fault")
	ErrClosed            = errors.New("wsclient: session closed")
)

// ConnectionError represents a failed connection attempt.
// Code carries the transport's native status (the HTTP handshake status for
// the bundled transports), or zero when none was available.
type ConnectionError struct {
	Op   string
	URL  string
	Code int
	Err  error
}

func (e *ConnectionError) Error() string {
	msg := "wsclient: " + e.Op
	if e.URL != "" {
		msg += " " + e.URL
	}
	if e.Code != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Code)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Is reports a match against ErrConnectFailed.
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnectFailed
}

// TransportError represents a fault raised by the transport while writing.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("wsclient: transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports a match against ErrTransportFault.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransportFault
}

// SendError represents the failure of one dispatched message.
type SendError struct {
	Op        string
	MessageID string
	Err       error
}

func (e *SendError) Error() string {
	if e.MessageID != "" {
		return fmt.Sprintf("wsclient: send %s [%s]: %v", e.Op, e.MessageID, e.Err)
	}
	return fmt.Sprintf("wsclient: send %s: %v", e.Op, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// ConfigError represents a rejected session configuration.
type ConfigError struct {
	Field string
	Value any
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("wsclient: invalid %s: %v", e.Field, e.Value)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidArgument
}
