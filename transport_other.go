//go:build !linux && !windows

package pipe

// DefaultTransport returns the transport for the current platform. This
// platform has no pipe driver; every open fails with ErrUnsupported.
func DefaultTransport() Transport {
	return unsupportedTransport{}
}

type unsupportedTransport struct{}

func (unsupportedTransport) Prefix() string { return "" }

func (unsupportedTransport) Listen(string, int) (Handle, error) { return nil, ErrUnsupported }

func (unsupportedTransport) Dial(string) (Handle, error) { return nil, ErrUnsupported }
