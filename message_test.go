package wsclient

import (
	"bytes"
	"io"
	"testing"
)

func TestNewTextMessage(t *testing.T) {
	msg := NewTextMessage("héllo")

	if msg.Type() != MessageText {
		t.Errorf("Type() = %s, want text", msg.Type())
	}
	if msg.Len() != 6 {
		t.Errorf("Len() = %d, want 6", msg.Len())
	}
	if msg.ID() == "" {
		t.Error("ID() is empty")
	}
	if other := NewTextMessage("héllo"); other.ID() == msg.ID() {
		t.Error("message IDs should be unique")
	}
}

func TestNewBinaryMessage(t *testing.T) {
	msg := NewBinaryMessage([]byte{0, 1, 2})

	if msg.Type() != MessageBinary {
		t.Errorf("Type() = %s, want binary", msg.Type())
	}
	data, _ := io.ReadAll(msg.body)
	if !bytes.Equal(data, []byte{0, 1, 2}) {
		t.Errorf("body = %v", data)
	}
}

func TestIncomingMessage_Text(t *testing.T) {
	msg := &IncomingMessage{typ: MessageText}
	msg.buf.WriteString("ack1")

	text, err := msg.Text()
	if err != nil {
		t.Fatalf("Text error: %v", err)
	}
	if text != "ack1" {
		t.Errorf("Text() = %s, want ack1", text)
	}
	if msg.Len() != 4 {
		t.Errorf("Len() = %d, want 4", msg.Len())
	}

	body, _ := io.ReadAll(msg.Body())
	if string(body) != "ack1" {
		t.Errorf("Body() = %s, want ack1", body)
	}
	// Body can be read again.
	body, _ = io.ReadAll(msg.Body())
	if string(body) != "ack1" {
		t.Errorf("second Body() = %s, want ack1", body)
	}
}

func TestIncomingMessage_TextOnBinary(t *testing.T) {
	msg := &IncomingMessage{typ: MessageBinary}
	msg.buf.Write([]byte{0xff})

	if _, err := msg.Text(); err != ErrTypeMismatch {
		t.Errorf("err = %v, want ErrTypeMismatch", err)
	}
}

func TestMessageType_String(t *testing.T) {
	tests := []struct {
		typ  MessageType
		want string
	}{
		{MessageText, "text"},
		{MessageBinary, "binary"},
		{MessageType(0), "MessageType(0)"},
	}

	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("String() = %s, want %s", got, tt.want)
		}
	}
}

func TestCloseStatus_String(t *testing.T) {
	tests := []struct {
		status CloseStatus
		want   string
	}{
		{CloseNormal, "normal"},
		{CloseGoingAway, "going_away"},
		{CloseAbnormal, "abnormal_close"},
		{CloseServerTerminate, "server_terminate"},
		{CloseStatus(4000), "CloseStatus(4000)"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("String() = %s, want %s", got, tt.want)
		}
	}
}
