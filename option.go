package pipe

import (
	"time"
)

// options holds the configuration for a pipe.
type options struct {
	transport Transport
	logger    Logger

	chunkSize      int           // size of a single raw read
	maxMessageSize int           // maximum size of an assembled message, 0 for no limit
	pollInterval   time.Duration // Server sleep between idle reads
}

// Option is a function that configures pipe options.
type Option func(*options)

// Default configuration values.
const (
	// DefaultChunkSize is the default size of a single raw read.
	DefaultChunkSize = 1024
	// DefaultPollInterval is the default delay between idle Server reads.
	DefaultPollInterval = 10 * time.Millisecond
)

// checkOptions applies default values to unset options.
func checkOptions(opts *options) {
	if opts.transport == nil {
		opts.transport = DefaultTransport()
	}

	if opts.chunkSize <= 0 {
		opts.chunkSize = DefaultChunkSize
	}

	if opts.maxMessageSize < 0 {
		opts.maxMessageSize = 0
	}

	if opts.pollInterval <= 0 {
		opts.pollInterval = DefaultPollInterval
	}

	if opts.logger == nil {
		opts.logger = defaultLogger()
	}
}

func newOptions(opt []Option) options {
	var opts options
	for _, o := range opt {
		o(&opts)
	}
	checkOptions(&opts)
	return opts
}

// TransportOption returns an Option that sets the transport used to open
// native handles. The platform transport is used by default.
func TransportOption(t Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// ChunkSizeOption returns an Option that sets the size of a single raw read.
// Messages larger than the chunk size are assembled from several reads.
func ChunkSizeOption(size int) Option {
	return func(o *options) {
		o.chunkSize = size
	}
}

// MaxMessageSizeOption returns an Option that limits the size of a message
// Read will assemble. Larger messages are drained and reported as
// ErrMessageTooLarge. Zero disables the limit.
func MaxMessageSizeOption(size int) Option {
	return func(o *options) {
		o.maxMessageSize = size
	}
}

// PollIntervalOption returns an Option that sets how long a Server sleeps
// after a read that returned no message.
func PollIntervalOption(d time.Duration) Option {
	return func(o *options) {
		o.pollInterval = d
	}
}

// LoggerOption returns an Option that sets the logger.
// If not set, the default slog logger will be used.
func LoggerOption(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
