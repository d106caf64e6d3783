package ksaudio

// Error is a failure kind returned by every entry point of the package.
// Errors returned to callers either are an Error or wrap one, so errors.Is can be used to match the kind.
type Error int32

const (
	// ErrInvalidParameter is returned for nil or malformed input. It is checked first in every entry point.
	ErrInvalidParameter Error = iota + 1
	// ErrBufferTooSmall is returned for a zero-size probe. The required size is reported alongside.
	ErrBufferTooSmall
	// ErrInvalidBufferSize is returned when a non-zero buffer is too small for the record.
	ErrInvalidBufferSize
	// ErrNotImplemented is returned for an unknown attribute or unsupported verb.
	ErrNotImplemented
	// ErrNoMatch is returned when no format can be negotiated.
	ErrNoMatch
	// ErrAlreadyCommitted is returned when a buffer is already bound.
	ErrAlreadyCommitted
	// ErrDeviceNotReady is returned when an endpoint is used before Init.
	ErrDeviceNotReady
	// ErrInsufficientResources is returned when no buffer or stream instance is available.
	ErrInsufficientResources
	// ErrUnsuccessful is returned for queries the virtual device cannot answer, such as hardware registers.
	ErrUnsuccessful
)

var errorStrings = map[Error]string{
	ErrInvalidParameter:      "invalid parameter",
	ErrBufferTooSmall:        "buffer too small",
	ErrInvalidBufferSize:     "invalid buffer size",
	ErrNotImplemented:        "not implemented",
	ErrNoMatch:               "no match",
	ErrAlreadyCommitted:      "already committed",
	ErrDeviceNotReady:        "device not ready",
	ErrInsufficientResources: "insufficient resources",
	ErrUnsuccessful:          "unsuccessful",
}

// Error implements the error interface.
func (e Error) Error() string {
	if s, ok := errorStrings[e]; ok {
		return "ksaudio: " + s
	}

	return "ksaudio: unknown error"
}
