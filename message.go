package pipe

import "bytes"

// Message is one logical unit of data carried by a pipe.
// A Message is immutable once created. A zero-length Message is valid and
// distinct from "no message", which Read reports as a nil *Message.
type Message struct {
	body []byte
}

// NewMessage creates a Message holding a copy of p.
// A nil p produces a zero-length message.
func NewMessage(p []byte) *Message {
	body := make([]byte, len(p))
	copy(body, p)
	return &Message{body: body}
}

// Length returns the length of the message body.
func (m *Message) Length() int {
	return len(m.body)
}

// Body returns the message data. The returned slice must not be modified;
// use Bytes for a copy the caller owns.
func (m *Message) Body() []byte {
	return m.body
}

// Bytes returns a copy of the message data.
func (m *Message) Bytes() []byte {
	p := make([]byte, len(m.body))
	copy(p, m.body)
	return p
}

// Equal reports whether the message body equals p.
func (m *Message) Equal(p []byte) bool {
	return bytes.Equal(m.body, p)
}
