package pipe

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrStop may be returned by a Handler to end Serve without an error.
var ErrStop = errors.New("stop serving")

// ErrServerClosed is returned by Serve after Close has been called.
var ErrServerClosed = errors.New("pipe: server closed")

// Handler processes messages received by a Server.
type Handler interface {
	// Handle is called for each message in arrival order, on the goroutine
	// running Serve. Returning ErrStop ends Serve with a nil error; any other
	// error ends Serve with that error.
	Handle(m *Message) error
}

// HandlerFunc adapts an ordinary function to a Handler.
type HandlerFunc func(m *Message) error

// Handle calls f(m).
func (f HandlerFunc) Handle(m *Message) error {
	return f(m)
}

// Server drives the read loop of a server pipe, polling at a fixed interval
// while no message is available.
type Server struct {
	pipe         *Pipe
	logger       Logger
	pollInterval time.Duration

	mu          sync.Mutex
	shutdown    bool
	shutdownNow chan struct{} // closed by Close to wake a sleeping Serve
}

// NewServer opens the server endpoint name and wraps it in a Server.
func NewServer(name string, capacity int, opts ...Option) (*Server, error) {
	p, err := Listen(name, capacity, opts...)
	if err != nil {
		return nil, err
	}

	return &Server{
		pipe:         p,
		logger:       p.logger,
		pollInterval: p.opts.pollInterval,
		shutdownNow:  make(chan struct{}),
	}, nil
}

// Serve reads messages and passes them to handler until the handler stops
// it, ctx is canceled, Close is called or a read fails.
// Serve does not close the pipe; call Close when done.
func (s *Server) Serve(ctx context.Context, handler Handler) error {
	s.logger.Info("server started", "poll_interval", s.pollInterval)

	timer := time.NewTimer(s.pollInterval)
	defer timer.Stop()

	for {
		if err := ctx.Err(); err != nil {
			s.logger.Info("server stopped", "reason", err)
			return err
		}

		msg, err := s.read()
		if err != nil {
			if !errors.Is(err, ErrServerClosed) {
				s.logger.Error("read error", "error", err)
			}
			return err
		}

		if msg == nil {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.pollInterval)

			select {
			case <-ctx.Done():
			case <-s.shutdownNow:
			case <-timer.C:
			}
			continue
		}

		if err := handler.Handle(msg); err != nil {
			if errors.Is(err, ErrStop) {
				s.logger.Info("server stopped by handler")
				return nil
			}
			s.logger.Debug("handler error", "error", err)
			return err
		}
	}
}

// read holds the lock for one non-blocking Read so that Close never races
// with an in-flight read.
func (s *Server) read() (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shutdown {
		return nil, ErrServerClosed
	}
	return s.pipe.Read()
}

// Write sends m to the connected client.
func (s *Server) Write(m *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shutdown {
		return ErrServerClosed
	}
	return s.pipe.Write(m)
}

// Close stops Serve and releases the pipe. It is safe to call from another
// goroutine and more than once.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shutdown {
		return nil
	}
	s.shutdown = true
	close(s.shutdownNow)

	return s.pipe.Close()
}
