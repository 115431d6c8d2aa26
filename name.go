package pipe

import "github.com/pkg/errors"

// Endpoint names are embedded verbatim into a platform namespace path, so the
// budget is computed against the longest prefix any driver uses.
const (
	// MaxPathLength is the total path budget of an endpoint.
	MaxPathLength = 5012
	// NamespacePrefixLength is the length of the reserved namespace prefix.
	NamespacePrefixLength = 9
	// MaxNameLength is the longest name ValidateName accepts.
	MaxNameLength = MaxPathLength - NamespacePrefixLength
)

// ValidateName reports whether name may be used as an endpoint name.
// A valid name matches [A-Za-z_][A-Za-z0-9_]* and is 1 to MaxNameLength
// bytes long. The returned error matches ErrInvalidArgument.
func ValidateName(name string) error {
	n := len(name)
	if n == 0 || n > MaxNameLength {
		return errors.Wrapf(ErrInvalidArgument, "name length %d out of range [1, %d]", n, MaxNameLength)
	}
	if !isNameStart(name[0]) {
		return errors.Wrapf(ErrInvalidArgument, "name must start with a letter or underscore, got %q", name[0])
	}
	for i := 1; i < n; i++ {
		if !isNameStart(name[i]) && !('0' <= name[i] && name[i] <= '9') {
			return errors.Wrapf(ErrInvalidArgument, "invalid character %q at offset %d in name", name[i], i)
		}
	}
	return nil
}

func isNameStart(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || c == '_'
}
