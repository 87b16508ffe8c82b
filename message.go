package wsclient

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// MessageType is the framing mode of a WebSocket data message.
type MessageType int

const (
	MessageText MessageType = iota + 1
	MessageBinary
)

func (t MessageType) String() string {
	switch t {
	case MessageText:
		return "text"
	case MessageBinary:
		return "binary"
	default:
		return "MessageType(" + strconv.Itoa(int(t)) + ")"
	}
}

func (t MessageType) valid() bool {
	return t == MessageText || t == MessageBinary
}

// CloseStatus is a WebSocket close code as defined by RFC 6455.
type CloseStatus uint16

const (
	CloseNormal               CloseStatus = 1000
	CloseGoingAway            CloseStatus = 1001
	CloseProtocolError        CloseStatus = 1002
	CloseUnsupported          CloseStatus = 1003
	CloseNoStatus             CloseStatus = 1005
	CloseAbnormal             CloseStatus = 1006
	CloseInconsistentDataType CloseStatus = 1007
	ClosePolicyViolation      CloseStatus = 1008
	CloseTooLarge             CloseStatus = 1009
	CloseNegotiateError       CloseStatus = 1010
	CloseServerTerminate      CloseStatus = 1011
)

var closeStatusNames = map[CloseStatus]string{
	CloseNormal:               "normal",
	CloseGoingAway:            "going_away",
	CloseProtocolError:        "protocol_error",
	CloseUnsupported:          "unsupported",
	CloseNoStatus:             "no_status",
	CloseAbnormal:             "abnormal_close",
	CloseInconsistentDataType: "inconsistent_datatype",
	ClosePolicyViolation:      "policy_violation",
	CloseTooLarge:             "too_large",
	CloseNegotiateError:       "negotiate_error",
	CloseServerTerminate:      "server_terminate",
}

func (s CloseStatus) String() string {
	if name, ok := closeStatusNames[s]; ok {
		return name
	}
	return "CloseStatus(" + strconv.Itoa(int(s)) + ")"
}

// OutgoingMessage is a message queued for sending. Its body is consumed when
// the message is dispatched, so a message should be sent at most once.
type OutgoingMessage struct {
	id     string
	typ    MessageType
	length int64
	body   io.Reader
}

// NewTextMessage creates a UTF-8 text message.
func NewTextMessage(text string) *OutgoingMessage {
	return NewStreamMessage(MessageText, strings.NewReader(text), int64(len(text)))
}

// NewBinaryMessage creates a binary message. The slice is not copied.
func NewBinaryMessage(data []byte) *OutgoingMessage {
	return NewStreamMessage(MessageBinary, bytes.NewReader(data), int64(len(data)))
}

// NewStreamMessage creates a message whose body is read from r when it is
// dispatched. Exactly length bytes are read.
func NewStreamMessage(typ MessageType, r io.Reader, length int64) *OutgoingMessage {
	return &OutgoingMessage{
		id:     uuid.New().String(),
		typ:    typ,
		length: length,
		body:   r,
	}
}

// ID returns the message ID used in logs and errors.
func (m *OutgoingMessage) ID() string {
	return m.id
}

// Type returns the message type.
func (m *OutgoingMessage) Type() MessageType {
	return m.typ
}

// Len returns the number of body bytes that will be sent.
func (m *OutgoingMessage) Len() int64 {
	return m.length
}

// IncomingMessage is one complete message delivered by the peer.
type IncomingMessage struct {
	typ MessageType
	buf bytes.Buffer
}

// Type returns the message type.
func (m *IncomingMessage) Type() MessageType {
	return m.typ
}

// Len returns the body length in bytes.
func (m *IncomingMessage) Len() int {
	return m.buf.Len()
}

// Bytes returns the message body. The slice aliases the message buffer.
func (m *IncomingMessage) Bytes() []byte {
	return m.buf.Bytes()
}

// Text returns the body of a text message.
func (m *IncomingMessage) Text() (string, error) {
	if m.typ != MessageText {
		return "", ErrTypeMismatch
	}
	return m.buf.String(), nil
}

// Body returns a reader over the message body.
func (m *IncomingMessage) Body() io.Reader {
	return bytes.NewReader(m.buf.Bytes())
}
