// Package pipe provides a minimal message transport over local named pipes.
//
// A server process opens a named endpoint with Listen and a client process
// connects to it with Dial. Both sides exchange discrete, variable-length
// messages. Message boundaries come from the platform's message-mode
// framing; no length prefix is written to the wire.
//
// Reads never block: Read returns a nil message when nothing is available,
// when no client has connected yet, or when the peer has disconnected.
// Callers that want blocking semantics poll, or use Server.
//
// A Pipe is not safe for concurrent use.
package pipe

import (
	"github.com/pkg/errors"
)

// Role identifies which side of a pipe an endpoint is.
type Role int

const (
	RoleServer Role = iota
	RoleClient
)

func (r Role) String() string {
	if r == RoleServer {
		return "server"
	}
	return "client"
}

// Pipe is one endpoint of a named pipe connection.
type Pipe struct {
	role   Role
	handle Handle
	logger Logger

	opts options

	closed bool
}

// Listen opens the server endpoint of the pipe called name.
// capacity is the buffer size requested for each direction.
// Errors match ErrInvalidArgument for a bad name or capacity, and
// ErrEnvironmentFailed when the operating system refuses the endpoint.
func Listen(name string, capacity int, opt ...Option) (*Pipe, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if capacity <= 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "buffer capacity %d must be positive", capacity)
	}

	opts := newOptions(opt)
	h, err := opts.transport.Listen(opts.transport.Prefix()+name, capacity)
	if err != nil {
		return nil, envError("listen "+name, err)
	}

	p := newPipe(RoleServer, h, opts)
	p.logger.Info("pipe listening", "name", name, "capacity", capacity)
	return p, nil
}

// Dial opens the client endpoint of the pipe called name.
// It fails with ErrEnvironmentFailed if no server is listening under name.
func Dial(name string, opt ...Option) (*Pipe, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	opts := newOptions(opt)
	h, err := opts.transport.Dial(opts.transport.Prefix() + name)
	if err != nil {
		return nil, envError("dial "+name, err)
	}

	p := newPipe(RoleClient, h, opts)
	p.logger.Info("pipe connected", "name", name)
	return p, nil
}

func newPipe(role Role, h Handle, opts options) *Pipe {
	return &Pipe{
		role:   role,
		handle: h,
		logger: withFields(opts.logger, "role", role.String()),
		opts:   opts,
	}
}

// Role returns whether p is a server or a client endpoint.
func (p *Pipe) Role() Role {
	return p.role
}

// Write sends the whole of m as one message.
// A short write is reported as ErrEnvironmentFailed; it is not retried.
// m remains owned by the caller.
func (p *Pipe) Write(m *Message) error {
	if p == nil || m == nil {
		return errors.Wrap(ErrInvalidArgument, "write: nil pipe or message")
	}
	if p.closed {
		return ErrClosed
	}

	n, err := p.handle.Write(m.body)
	if err != nil {
		p.logger.Debug("write failed", "length", m.Length(), "error", err)
		return envError("write", err)
	}
	if n != m.Length() {
		p.logger.Debug("short write", "length", m.Length(), "written", n)
		return envError("write", errors.Errorf("short write: %d of %d bytes", n, m.Length()))
	}
	return nil
}

// Close releases the native handle. Closing an already closed pipe does
// nothing.
func (p *Pipe) Close() error {
	if p == nil {
		return errors.Wrap(ErrInvalidArgument, "close: nil pipe")
	}
	if p.closed {
		return nil
	}
	p.closed = true

	err := p.handle.Close()
	p.handle = nil
	p.logger.Info("pipe closed")
	return envError("close", err)
}
