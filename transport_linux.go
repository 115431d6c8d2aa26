//go:build linux

package pipe

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const abstractPrefix = "@pipe/"

// LinuxTransport carries pipes over SOCK_SEQPACKET unix domain sockets,
// which preserve message boundaries the way message-mode named pipes do.
//
// Buffer capacity is applied with SO_RCVBUF and SO_SNDBUF; the kernel
// enforces a floor of a few kilobytes, and a single message must fit in the
// sender's send buffer. Writes never wait: a write to a peer whose queue is
// full fails with EAGAIN.
type LinuxTransport struct {
	// Dir is the directory socket files are created in. When empty, sockets
	// live in the abstract namespace and leave nothing on disk.
	Dir string
}

// DefaultTransport returns the transport for the current platform.
func DefaultTransport() Transport {
	return &LinuxTransport{}
}

// Prefix implements Transport.
func (t *LinuxTransport) Prefix() string {
	if t.Dir == "" {
		return abstractPrefix
	}
	return filepath.Clean(t.Dir) + string(filepath.Separator)
}

// Listen implements Transport.
func (t *LinuxTransport) Listen(path string, capacity int) (Handle, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_SEQPACKET|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrap(err, "socket")
	}
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "bind %s", path)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		unlinkSocket(path)
		return nil, errors.Wrapf(err, "listen %s", path)
	}

	h := &seqpacketHandle{listener: fd, conn: -1, capacity: capacity}
	if !strings.HasPrefix(path, "@") {
		h.path = path
	}
	return h, nil
}

// Dial implements Transport. A server whose backlog is full refuses the
// client with EAGAIN instead of making it wait.
func (t *LinuxTransport) Dial(path string) (Handle, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_SEQPACKET|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrap(err, "socket")
	}
	if err := unix.Connect(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "connect %s", path)
	}
	return &seqpacketHandle{listener: -1, conn: fd}, nil
}

func unlinkSocket(path string) {
	if path != "" && !strings.HasPrefix(path, "@") {
		_ = unix.Unlink(path)
	}
}

// seqpacketHandle is one end of a seqpacket connection. On the server side
// it also owns the listening socket and accepts one client at a time.
type seqpacketHandle struct {
	listener int // -1 on the client side
	conn     int // -1 while no peer is connected
	capacity int
	path     string // socket file removed on close, empty for abstract sockets

	// pending is the unread rest of the current packet. Packets are received
	// whole and handed out in caller-sized fragments.
	pending []byte
}

func (h *seqpacketHandle) Read(p []byte) (int, Outcome, error) {
	if len(h.pending) > 0 {
		return h.deliver(p)
	}

	if h.conn < 0 {
		if h.listener < 0 {
			return 0, Disconnected, nil
		}
		ok, err := h.accept()
		if err != nil {
			return 0, Complete, err
		}
		if !ok {
			return 0, NotConnected, nil
		}
	}

	size, err := h.peek()
	switch {
	case err == unix.EAGAIN:
		return 0, Empty, nil
	case err == unix.ECONNRESET || err == unix.EPIPE:
		return 0, h.hangup(), nil
	case err != nil:
		return 0, Complete, errors.Wrap(err, "recvmsg")
	}

	if size == 0 {
		// EOF and an empty packet both peek as zero bytes.
		closed, err := h.peerClosed()
		if err != nil {
			return 0, Complete, errors.Wrap(err, "poll")
		}
		if closed {
			return 0, h.hangup(), nil
		}
	}

	packet := make([]byte, size)
	n, err := h.recv(packet)
	if err != nil {
		return 0, Complete, errors.Wrap(err, "recvmsg")
	}
	h.pending = packet[:n]
	return h.deliver(p)
}

func (h *seqpacketHandle) deliver(p []byte) (int, Outcome, error) {
	n := copy(p, h.pending)
	h.pending = h.pending[n:]
	if len(h.pending) > 0 {
		return n, More, nil
	}
	h.pending = nil
	return n, Complete, nil
}

// peek returns the full size of the next packet without consuming it.
func (h *seqpacketHandle) peek() (int, error) {
	for {
		n, _, _, _, err := unix.Recvmsg(h.conn, nil, nil, unix.MSG_PEEK|unix.MSG_TRUNC)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}

func (h *seqpacketHandle) recv(p []byte) (int, error) {
	for {
		n, _, _, _, err := unix.Recvmsg(h.conn, p, nil, 0)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}

func (h *seqpacketHandle) peerClosed() (bool, error) {
	fds := []unix.PollFd{{Fd: int32(h.conn), Events: unix.POLLIN | unix.POLLRDHUP}}
	for {
		_, err := unix.Poll(fds, 0)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, err
		}
		return fds[0].Revents&(unix.POLLHUP|unix.POLLRDHUP) != 0, nil
	}
}

// accept takes the next queued client, if any.
func (h *seqpacketHandle) accept() (bool, error) {
	for {
		fd, _, err := unix.Accept4(h.listener, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		switch {
		case err == unix.EINTR || err == unix.ECONNABORTED:
			continue
		case err == unix.EAGAIN:
			return false, nil
		case err != nil:
			return false, errors.Wrap(err, "accept")
		}

		for _, opt := range []int{unix.SO_RCVBUF, unix.SO_SNDBUF} {
			if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, opt, h.capacity); err != nil {
				unix.Close(fd)
				return false, errors.Wrap(err, "setsockopt")
			}
		}
		h.conn = fd
		return true, nil
	}
}

// hangup drops the current peer. A server goes back to accepting clients.
func (h *seqpacketHandle) hangup() Outcome {
	unix.Close(h.conn)
	h.conn = -1
	h.pending = nil
	return Disconnected
}

func (h *seqpacketHandle) Write(p []byte) (int, error) {
	if h.conn < 0 {
		if h.listener < 0 {
			return 0, errors.Wrap(unix.EPIPE, "write")
		}
		ok, err := h.accept()
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, errors.New("write: no client connected")
		}
	}

	for {
		n, err := unix.SendmsgN(h.conn, p, nil, nil, unix.MSG_NOSIGNAL)
		switch {
		case err == unix.EINTR:
			continue
		case err != nil:
			// EAGAIN when the peer's queue is full; nothing was sent.
			return 0, errors.Wrap(err, "sendmsg")
		}
		return n, nil
	}
}

func (h *seqpacketHandle) Close() error {
	var err error
	if h.conn >= 0 {
		err = unix.Close(h.conn)
		h.conn = -1
	}
	if h.listener >= 0 {
		if cerr := unix.Close(h.listener); err == nil {
			err = cerr
		}
		h.listener = -1
		unlinkSocket(h.path)
	}
	return err
}
