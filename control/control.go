// Package control defines the application messages the shizu demo programs
// exchange over a pipe. It sits above the transport: the pipe itself
// attaches no meaning to message contents.
package control

import (
	"github.com/idlib/pipe"
)

// Kind classifies a received message.
type Kind int

const (
	KindUnknown Kind = iota
	KindShutdown
)

func (k Kind) String() string {
	if k == KindShutdown {
		return "shutdown"
	}
	return "unknown"
}

// shutdownBody is the payload that asks a server to stop.
var shutdownBody = [...]byte{'s', 'h', 'i', 'z', 'u'}

// Shutdown returns a new shutdown message.
func Shutdown() *pipe.Message {
	return pipe.NewMessage(shutdownBody[:])
}

// IsShutdown reports whether m is a shutdown message.
func IsShutdown(m *pipe.Message) bool {
	return m != nil && m.Equal(shutdownBody[:])
}

// Classify returns the kind of m.
func Classify(m *pipe.Message) Kind {
	if IsShutdown(m) {
		return KindShutdown
	}
	return KindUnknown
}
