// Package influxdb records onkyo-ctl telemetry in InfluxDB v2.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched non-blocking writes and health checks. Two
// measurements are written:
//
//	receiver_state  tags: field, profile     fields: value
//	eiscp_exchange  tags: command, outcome   fields: attempts, duration_ms
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
//
//	client.WriteReceiverState("tv", "volume", 25)
//
// Write errors are delivered asynchronously through SetOnError.
package influxdb
