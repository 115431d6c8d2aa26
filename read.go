package pipe

import (
	"bytes"

	"github.com/pkg/errors"
)

// Read returns the next message available on p, or nil if there is none.
//
// Read assembles one message from as many raw reads as the transport needs,
// so a message larger than the chunk size is never returned in pieces, and
// stops at the message boundary so queued messages are never merged.
// No client yet, nothing queued, and a disconnected peer all yield a nil
// message and a nil error. Any other transport failure discards the
// partially assembled message and returns ErrEnvironmentFailed.
func (p *Pipe) Read() (*Message, error) {
	if p == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "read: nil pipe")
	}
	if p.closed {
		return nil, ErrClosed
	}
	return p.assemble()
}

func (p *Pipe) assemble() (msg *Message, err error) {
	var buf bytes.Buffer
	defer func() {
		if r := recover(); r != nil {
			if r != bytes.ErrTooLarge {
				panic(r)
			}
			msg, err = nil, errors.Wrapf(ErrAllocationFailed, "read: message buffer at %d bytes", buf.Len())
		}
	}()

	chunk := make([]byte, p.opts.chunkSize)
	received := false
	fragments := 0

loop:
	for {
		n, outcome, rerr := p.handle.Read(chunk)
		if rerr != nil {
			p.logger.Warn("read aborted", "buffered", buf.Len(), "fragments", fragments, "error", rerr)
			return nil, envError("read", rerr)
		}

		switch outcome {
		case Complete, More:
			received = true
			fragments++
			if limit := p.opts.maxMessageSize; limit > 0 && buf.Len()+n > limit {
				return nil, p.discard(chunk, outcome, buf.Len()+n)
			}
			buf.Write(chunk[:n])
			if outcome == Complete {
				break loop
			}
		case NotConnected, Empty:
			break loop
		case Disconnected:
			p.logger.Info("peer disconnected", "buffered", buf.Len())
			break loop
		default:
			return nil, envError("read", errors.Errorf("unknown read outcome %d", outcome))
		}
	}

	if !received {
		return nil, nil
	}

	p.logger.Debug("message received", "length", buf.Len(), "fragments", fragments)
	return NewMessage(buf.Bytes()), nil
}

// discard reads and drops the rest of an oversized message so that its tail
// is not returned by the next Read.
func (p *Pipe) discard(chunk []byte, last Outcome, size int) error {
	for last == More {
		n, outcome, err := p.handle.Read(chunk)
		if err != nil {
			return envError("read", err)
		}
		size += n
		last = outcome
	}
	p.logger.Warn("message discarded", "size", size, "limit", p.opts.maxMessageSize)
	return errors.Wrapf(ErrMessageTooLarge, "read: %d bytes exceeds limit %d", size, p.opts.maxMessageSize)
}
