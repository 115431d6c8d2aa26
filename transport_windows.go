//go:build windows

package pipe

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

const namespacePrefix = `\\.\pipe\`

// WindowsTransport carries pipes over message-mode Windows named pipes in
// non-blocking (PIPE_NOWAIT) read mode.
type WindowsTransport struct{}

// DefaultTransport returns the transport for the current platform.
func DefaultTransport() Transport {
	return &WindowsTransport{}
}

// Prefix implements Transport.
func (t *WindowsTransport) Prefix() string { return namespacePrefix }

// Listen implements Transport.
func (t *WindowsTransport) Listen(path string, capacity int) (Handle, error) {
	name, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateNamedPipe(
		name,
		windows.PIPE_ACCESS_DUPLEX,
		windows.PIPE_TYPE_MESSAGE|windows.PIPE_READMODE_MESSAGE|windows.PIPE_NOWAIT,
		windows.PIPE_UNLIMITED_INSTANCES,
		uint32(capacity),
		uint32(capacity),
		0,
		nil,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "CreateNamedPipe %s", path)
	}
	return &namedPipeHandle{h: h, server: true}, nil
}

// Dial implements Transport. The client handle is switched to message read
// mode without waiting so that client reads poll like server reads.
func (t *WindowsTransport) Dial(path string) (Handle, error) {
	name, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateFile(
		name,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		0,
		nil,
		windows.OPEN_EXISTING,
		0,
		0,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "CreateFile %s", path)
	}

	mode := uint32(windows.PIPE_READMODE_MESSAGE | windows.PIPE_NOWAIT)
	if err := windows.SetNamedPipeHandleState(h, &mode, nil, nil); err != nil {
		windows.CloseHandle(h)
		return nil, errors.Wrap(err, "SetNamedPipeHandleState")
	}
	return &namedPipeHandle{h: h}, nil
}

type namedPipeHandle struct {
	h      windows.Handle
	server bool
}

func (p *namedPipeHandle) Read(b []byte) (int, Outcome, error) {
	var n uint32
	err := windows.ReadFile(p.h, b, &n, nil)
	switch err {
	case nil:
		return int(n), Complete, nil
	case windows.ERROR_MORE_DATA:
		return int(n), More, nil
	case windows.ERROR_PIPE_LISTENING:
		return 0, NotConnected, nil
	case windows.ERROR_NO_DATA:
		return 0, Empty, nil
	case windows.ERROR_BROKEN_PIPE, windows.ERROR_PIPE_NOT_CONNECTED:
		if p.server {
			if err := p.rearm(); err != nil {
				return 0, Complete, err
			}
		}
		return 0, Disconnected, nil
	default:
		return 0, Complete, errors.Wrap(err, "ReadFile")
	}
}

// rearm returns a server instance whose client left to the listening state.
func (p *namedPipeHandle) rearm() error {
	if err := windows.DisconnectNamedPipe(p.h); err != nil {
		return errors.Wrap(err, "DisconnectNamedPipe")
	}
	switch err := windows.ConnectNamedPipe(p.h, nil); err {
	case nil, windows.ERROR_PIPE_LISTENING, windows.ERROR_PIPE_CONNECTED:
		return nil
	default:
		return errors.Wrap(err, "ConnectNamedPipe")
	}
}

func (p *namedPipeHandle) Write(b []byte) (int, error) {
	var n uint32
	if err := windows.WriteFile(p.h, b, &n, nil); err != nil {
		return int(n), errors.Wrap(err, "WriteFile")
	}
	return int(n), nil
}

func (p *namedPipeHandle) Close() error {
	return windows.CloseHandle(p.h)
}
