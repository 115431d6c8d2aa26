package pipe

import "github.com/pkg/errors"

// Errors returned by pipe operations. Every error returned by this package
// matches exactly one of the first three with errors.Is.
var (
	// ErrInvalidArgument is returned for nil or malformed caller input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrAllocationFailed is returned when a message could not be allocated.
	ErrAllocationFailed = errors.New("allocation failed")
	// ErrEnvironmentFailed is returned when the operating system refused an
	// operation or reported an unclassified transport error.
	ErrEnvironmentFailed = errors.New("environment failed")
)

var (
	// ErrClosed is returned when operating on a closed pipe.
	ErrClosed = errors.WithMessage(ErrInvalidArgument, "pipe closed")
	// ErrMessageTooLarge is returned by Read when a message exceeds the
	// configured maximum size. The oversized message is discarded.
	ErrMessageTooLarge = errors.WithMessage(ErrAllocationFailed, "message too large")
	// ErrUnsupported is returned by the default transport on platforms
	// without a pipe driver.
	ErrUnsupported = errors.WithMessage(ErrEnvironmentFailed, "pipes not supported on this platform")
)

// Status is the closed set of outcomes of a pipe operation.
type Status int

const (
	Success Status = iota
	InvalidArgument
	AllocationFailed
	EnvironmentFailed
)

// StatusOf classifies err. Errors that do not originate from this package
// are reported as EnvironmentFailed.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, ErrInvalidArgument):
		return InvalidArgument
	case errors.Is(err, ErrAllocationFailed):
		return AllocationFailed
	default:
		return EnvironmentFailed
	}
}

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case InvalidArgument:
		return "invalid argument"
	case AllocationFailed:
		return "allocation failed"
	case EnvironmentFailed:
		return "environment failed"
	default:
		return "unknown status"
	}
}

// environmentError attaches the OS cause to ErrEnvironmentFailed so that both
// errors.Is(err, ErrEnvironmentFailed) and errors.Cause-style inspection of
// the syscall error work.
type environmentError struct {
	op    string
	cause error
}

func (e *environmentError) Error() string {
	return e.op + ": " + ErrEnvironmentFailed.Error() + ": " + e.cause.Error()
}

func (e *environmentError) Is(target error) bool { return target == ErrEnvironmentFailed }

func (e *environmentError) Unwrap() error { return e.cause }

func (e *environmentError) Cause() error { return e.cause }

// envError wraps an operating system error as an environment failure.
func envError(op string, cause error) error {
	if cause == nil {
		return nil
	}
	if errors.Is(cause, ErrEnvironmentFailed) {
		return errors.WithMessage(cause, op)
	}
	return &environmentError{op: op, cause: cause}
}
