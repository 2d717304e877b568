package pipeline

import "errors"

// Errors that the HTTP layer maps to client errors (400). Everything else
// coming out of Process is a server-side failure.
var (
	// ErrMissingProfileID: profileId absent or blank after trimming.
	ErrMissingProfileID = errors.New("profileId is required")

	// ErrMissingImageRef: neither storagePath nor imageUrl supplied.
	ErrMissingImageRef = errors.New("storagePath or imageUrl is required")

	// ErrUnresolvableImage: no stage produced a usable image URL.
	ErrUnresolvableImage = errors.New("unable to resolve image URL")
)

// IsClientError reports whether err should surface as HTTP 400.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingProfileID) ||
		errors.Is(err, ErrMissingImageRef) ||
		errors.Is(err, ErrUnresolvableImage)
}
