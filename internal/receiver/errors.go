package receiver

import "errors"

// ErrOutOfRange is returned when a requested level is refused before it
// reaches the receiver.
var ErrOutOfRange = errors.New("receiver: value out of range")
