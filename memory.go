package pipe

import (
	"sync"

	"github.com/pkg/errors"
)

// MemoryTransport is an in-process Transport with message-mode semantics.
// It is intended for tests. Each Listen path serves one client at a time;
// when the client closes, the server returns to waiting for the next one.
type MemoryTransport struct {
	// QueueLimit bounds the number of unread messages in each direction of a
	// pipe. A write to a full queue fails without waiting. Zero means no
	// limit. It applies to pipes opened after it is set.
	QueueLimit int

	mu        sync.Mutex
	endpoints map[string]*memoryEndpoint
}

// NewMemoryTransport creates an empty in-process transport.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{endpoints: make(map[string]*memoryEndpoint)}
}

// Prefix implements Transport.
func (t *MemoryTransport) Prefix() string { return "memory:" }

// Listen implements Transport.
func (t *MemoryTransport) Listen(path string, capacity int) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.endpoints[path]; ok {
		return nil, errors.Errorf("%s: address already in use", path)
	}
	if capacity <= 0 {
		return nil, errors.Errorf("%s: invalid buffer capacity %d", path, capacity)
	}
	ep := &memoryEndpoint{transport: t, path: path, limit: t.QueueLimit}
	t.endpoints[path] = ep
	return &memoryHandle{ep: ep, server: true}, nil
}

// Dial implements Transport.
func (t *MemoryTransport) Dial(path string) (Handle, error) {
	t.mu.Lock()
	ep, ok := t.endpoints[path]
	t.mu.Unlock()
	if !ok {
		return nil, errors.Errorf("%s: no such pipe", path)
	}

	ep.mu.Lock()
	defer ep.mu.Unlock()
	// The previous session must be fully read by the server first.
	if ep.connected || ep.peerGone || len(ep.toServer) > 0 {
		return nil, errors.Errorf("%s: all pipe instances are busy", path)
	}
	ep.connected = true
	ep.toClient = nil
	return &memoryHandle{ep: ep}, nil
}

// memoryEndpoint is the shared state of one server and its current client.
type memoryEndpoint struct {
	transport *MemoryTransport
	path      string
	limit     int

	mu        sync.Mutex
	connected bool
	peerGone  bool     // client closed; reported once to the server
	toServer  [][]byte // queued messages, head partially consumed in place
	toClient  [][]byte
	closed    bool
}

type memoryHandle struct {
	ep     *memoryEndpoint
	server bool
}

func (h *memoryHandle) Read(p []byte) (int, Outcome, error) {
	ep := h.ep
	ep.mu.Lock()
	defer ep.mu.Unlock()

	queue := &ep.toClient
	if h.server {
		queue = &ep.toServer
	}

	if len(*queue) == 0 {
		switch {
		case h.server && ep.peerGone:
			ep.peerGone = false
			return 0, Disconnected, nil
		case h.server && !ep.connected:
			return 0, NotConnected, nil
		case !h.server && ep.closed:
			return 0, Disconnected, nil
		}
		return 0, Empty, nil
	}

	head := (*queue)[0]
	n := copy(p, head)
	if n < len(head) {
		(*queue)[0] = head[n:]
		return n, More, nil
	}
	*queue = (*queue)[1:]
	return n, Complete, nil
}

func (h *memoryHandle) Write(p []byte) (int, error) {
	ep := h.ep
	ep.mu.Lock()
	defer ep.mu.Unlock()

	switch {
	case ep.closed:
		return 0, errors.New("broken pipe")
	case !ep.connected:
		return 0, errors.New("pipe is not connected")
	}

	queue := &ep.toServer
	if h.server {
		queue = &ep.toClient
	}
	if ep.limit > 0 && len(*queue) >= ep.limit {
		return 0, errors.Errorf("%s: queue full (%d messages)", ep.path, ep.limit)
	}

	msg := make([]byte, len(p))
	copy(msg, p)
	*queue = append(*queue, msg)
	return len(p), nil
}

func (h *memoryHandle) Close() error {
	ep := h.ep
	if h.server {
		ep.transport.mu.Lock()
		delete(ep.transport.endpoints, ep.path)
		ep.transport.mu.Unlock()

		ep.mu.Lock()
		ep.closed = true
		ep.mu.Unlock()
		return nil
	}

	ep.mu.Lock()
	defer ep.mu.Unlock()
	// Messages the client already wrote stay readable by the server.
	ep.connected = false
	ep.peerGone = true
	ep.toClient = nil
	return nil
}
