package eiscp

import "errors"

// Domain errors for the eiscp package.
var (
	// ErrTransport is returned when an exchange fails on every attempt.
	// It wraps the last underlying error.
	ErrTransport = errors.New("eiscp: transport failure")

	// ErrRejected is returned when the receiver answers "N/A". It is never
	// retried.
	ErrRejected = errors.New("eiscp: command rejected by receiver")

	// ErrConnectionFailed is returned when a connection to the receiver
	// cannot be opened.
	ErrConnectionFailed = errors.New("eiscp: connection failed")

	// ErrTimeout is returned when the receiver does not answer in time.
	ErrTimeout = errors.New("eiscp: response timed out")

	// ErrInvalidCommand is returned when a command cannot be encoded.
	ErrInvalidCommand = errors.New("eiscp: invalid command")

	// ErrInvalidPacket is returned when a frame read from the receiver is
	// malformed.
	ErrInvalidPacket = errors.New("eiscp: invalid packet")

	// ErrDecodingFailed is returned when a response parameter cannot be
	// decoded.
	ErrDecodingFailed = errors.New("eiscp: decoding failed")
)
