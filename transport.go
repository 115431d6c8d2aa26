package pipe

// Outcome classifies a single raw read from a Handle.
type Outcome int

const (
	// Complete means the read transferred the rest of the current message.
	Complete Outcome = iota
	// More means the read transferred a fragment and more of the same
	// message is immediately available.
	More
	// NotConnected means no peer has connected to the server endpoint yet.
	NotConnected
	// Empty means the peer is connected but nothing is queued.
	Empty
	// Disconnected means the peer closed its end of the pipe.
	Disconnected
)

func (o Outcome) String() string {
	switch o {
	case Complete:
		return "complete"
	case More:
		return "more"
	case NotConnected:
		return "not connected"
	case Empty:
		return "empty"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Handle is one open native pipe connection.
//
// Read never blocks. It copies at most len(p) bytes of the pending message
// into p and classifies the result. Transport conditions that are not
// failures (NotConnected, Empty, Disconnected) are reported through the
// Outcome with a nil error; a non-nil error is an unclassified failure.
//
// Write sends p as one message and returns the number of bytes written.
type Handle interface {
	Read(p []byte) (int, Outcome, error)
	Write(p []byte) (int, error)
	Close() error
}

// Transport opens native pipe handles.
// Paths passed to Listen and Dial are Prefix() followed by a validated name.
type Transport interface {
	// Prefix returns the namespace root endpoint names are appended to.
	Prefix() string
	// Listen creates a server endpoint with the given buffer capacity in
	// each direction. The endpoint starts out waiting for a client.
	Listen(path string, capacity int) (Handle, error)
	// Dial opens the server endpoint at path for reading and writing.
	Dial(path string) (Handle, error)
}
