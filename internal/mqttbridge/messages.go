package mqttbridge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mtyszkiewicz/onkyo-ctl/internal/bridges/eiscp"
)

// CommandMessage is received on <prefix>/command/<operation>.
type CommandMessage struct {
	// ID correlates the command with its acknowledgement. One is generated
	// when empty.
	ID string `json:"id"`

	// Value is the operation argument: an integer level for volume/set and
	// subwoofer/set, a selector for input/set, a profile name for
	// profile/set. Other operations ignore it.
	Value json.RawMessage `json:"value,omitempty"`
}

// IntValue decodes Value as an integer.
func (c CommandMessage) IntValue() (int, error) {
	if len(c.Value) == 0 {
		return 0, fmt.Errorf("value is required")
	}
	var v int
	if err := json.Unmarshal(c.Value, &v); err != nil {
		return 0, fmt.Errorf("value must be an integer: %w", err)
	}
	return v, nil
}

// StringValue decodes Value as a non-empty string.
func (c CommandMessage) StringValue() (string, error) {
	if len(c.Value) == 0 {
		return "", fmt.Errorf("value is required")
	}
	var v string
	if err := json.Unmarshal(c.Value, &v); err != nil {
		return "", fmt.Errorf("value must be a string: %w", err)
	}
	if v == "" {
		return "", fmt.Errorf("value is required")
	}
	return v, nil
}

// AckStatus represents the acknowledgement status of a command.
type AckStatus string

const (
	// AckAccepted indicates the command was executed by the receiver.
	AckAccepted AckStatus = "accepted"

	// AckFailed indicates the command could not be executed.
	AckFailed AckStatus = "failed"
)

// AckMessage is published on <prefix>/ack/<operation>.
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	Operation string    `json:"operation"`
	Status    AckStatus `json:"status"`

	// Result is the value the proxy reported: a bool for power, an int for
	// levels, a selector string or a profile.
	Result any `json:"result,omitempty"`

	Error *AckError `json:"error,omitempty"`
}

// AckError contains error details for failed commands.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes for command failures.
const (
	ErrCodeInvalidCommand    = "INVALID_COMMAND"
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrCodeDeviceBusy        = "DEVICE_BUSY"
	ErrCodeDeviceUnreachable = "DEVICE_UNREACHABLE"
	ErrCodeProtocolError     = "PROTOCOL_ERROR"
	ErrCodeBridgeError       = "BRIDGE_ERROR"
)

// NewAck creates an accepted acknowledgement.
func NewAck(cmd CommandMessage, operation string, result any) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		Operation: operation,
		Status:    AckAccepted,
		Result:    result,
	}
}

// NewAckError creates a failed acknowledgement.
func NewAckError(cmd CommandMessage, operation, code, message string) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		Operation: operation,
		Status:    AckFailed,
		Error:     &AckError{Code: code, Message: message},
	}
}

// StateMessage is the retained receiver state on <prefix>/state. Fields are
// nil until the bridge has observed them.
type StateMessage struct {
	Timestamp      time.Time `json:"timestamp"`
	IsPowered      *bool     `json:"is_powered,omitempty"`
	Profile        string    `json:"profile,omitempty"`
	Selector       string    `json:"selector,omitempty"`
	VolumeLevel    *int      `json:"volume_level,omitempty"`
	SubwooferLevel *int      `json:"subwoofer_level,omitempty"`
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	// HealthHealthy indicates the bridge is operating normally.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded indicates the last receiver exchange failed.
	HealthDegraded HealthStatus = "degraded"

	// HealthStarting indicates the bridge is starting up.
	HealthStarting HealthStatus = "starting"

	// HealthStopping indicates the bridge is shutting down.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage is published on <prefix>/health.
type HealthMessage struct {
	Timestamp     time.Time           `json:"timestamp"`
	Status        HealthStatus        `json:"status"`
	Reason        string              `json:"reason,omitempty"`
	Version       string              `json:"version"`
	UptimeSeconds int64               `json:"uptime_seconds"`
	Receiver      *eiscp.SessionStats `json:"receiver,omitempty"`
}
