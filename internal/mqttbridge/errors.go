package mqttbridge

import "errors"

// ErrInvalidValue is returned when a command payload carries a missing or
// mistyped value.
var ErrInvalidValue = errors.New("mqttbridge: invalid command value")
