package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementReceiverState = "receiver_state"
	MeasurementExchange      = "eiscp_exchange"
)

// Exchange outcomes recorded in the outcome tag.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// StatePoint builds a receiver_state point. field names what changed
// (power, volume, subwoofer); profile is the active profile name, or empty
// when unknown.
func StatePoint(profile, field string, value float64, ts time.Time) *write.Point {
	tags := map[string]string{"field": field}
	if profile != "" {
		tags["profile"] = profile
	}
	return write.NewPoint(
		MeasurementReceiverState,
		tags,
		map[string]interface{}{"value": value},
		ts,
	)
}

// ExchangePoint builds an eiscp_exchange point for one request/response
// round trip. command is the three-letter ISCP prefix.
func ExchangePoint(command, outcome string, attempts int, d time.Duration, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementExchange,
		map[string]string{
			"command": command,
			"outcome": outcome,
		},
		map[string]interface{}{
			"attempts":    attempts,
			"duration_ms": float64(d.Microseconds()) / 1000,
		},
		ts,
	)
}

// WriteReceiverState records a receiver state change. The write is
// non-blocking.
func (c *Client) WriteReceiverState(profile, field string, value float64) {
	c.WritePoint(StatePoint(profile, field, value, time.Now()))
}

// WriteExchange records one exchange with the receiver.
func (c *Client) WriteExchange(command, outcome string, attempts int, d time.Duration) {
	c.WritePoint(ExchangePoint(command, outcome, attempts, d, time.Now()))
}

// WritePoint writes a pre-built point. It is dropped when the client is not
// connected.
func (c *Client) WritePoint(point *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(point)
}
