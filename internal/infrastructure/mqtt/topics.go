package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is the root of every onkyo-ctl topic.
const DefaultTopicPrefix = "onkyo"

// Topics builds onkyo-ctl MQTT topics under a configurable prefix.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{Prefix: "livingroom/onkyo"}
//	topics.Command("volume/set")
//	// Returns: "livingroom/onkyo/command/volume/set"
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return strings.TrimSuffix(t.Prefix, "/")
}

// Command returns the topic a command operation is received on.
//
// Example: onkyo/command/power/on
func (t Topics) Command(operation string) string {
	return fmt.Sprintf("%s/command/%s", t.prefix(), operation)
}

// Ack returns the topic a command acknowledgement is published on.
//
// Example: onkyo/ack/power/on
func (t Topics) Ack(operation string) string {
	return fmt.Sprintf("%s/ack/%s", t.prefix(), operation)
}

// State returns the retained receiver state topic.
//
// Example: onkyo/state
func (t Topics) State() string {
	return t.prefix() + "/state"
}

// Health returns the bridge health topic.
//
// Example: onkyo/health
func (t Topics) Health() string {
	return t.prefix() + "/health"
}

// Status returns the online/offline status topic, also used for the LWT.
//
// Example: onkyo/status
func (t Topics) Status() string {
	return t.prefix() + "/status"
}

// AllCommands returns a pattern matching every command topic.
//
// Pattern: onkyo/command/#
func (t Topics) AllCommands() string {
	return t.prefix() + "/command/#"
}

// CommandOperation extracts the operation from a command topic. It returns
// false when topic is not a command topic under this prefix.
//
// Example: "onkyo/command/volume/set" returns "volume/set".
func (t Topics) CommandOperation(topic string) (string, bool) {
	base := t.prefix() + "/command/"
	if !strings.HasPrefix(topic, base) || len(topic) == len(base) {
		return "", false
	}
	return topic[len(base):], true
}
