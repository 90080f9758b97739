package main

import (
	"errors"
	"sync"
	"time"

	"github.com/mtyszkiewicz/onkyo-ctl/internal/bridges/eiscp"
	"github.com/mtyszkiewicz/onkyo-ctl/internal/infrastructure/influxdb"
	"github.com/mtyszkiewicz/onkyo-ctl/internal/profile"
	"github.com/mtyszkiewicz/onkyo-ctl/internal/receiver"
)

// telemetryWriter is the subset of *influxdb.Client used for telemetry.
type telemetryWriter interface {
	WriteReceiverState(profile, field string, value float64)
	WriteExchange(command, outcome string, attempts int, d time.Duration)
}

// telemetry turns proxy events and session exchanges into InfluxDB points.
type telemetry struct {
	w       telemetryWriter
	catalog *profile.Catalog

	// profile tags state points; empty until a selector has been seen or
	// when it is not in the catalog.
	profile string
	mu      sync.Mutex
}

func newTelemetry(w telemetryWriter, catalog *profile.Catalog) *telemetry {
	return &telemetry{w: w, catalog: catalog}
}

func (t *telemetry) recordEvent(ev receiver.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch ev.Type {
	case receiver.EventPower:
		if on, ok := ev.Value.(bool); ok {
			value := 0.0
			if on {
				value = 1
			}
			t.w.WriteReceiverState(t.profile, "power", value)
		}
	case receiver.EventVolume:
		if level, ok := ev.Value.(int); ok {
			t.w.WriteReceiverState(t.profile, "volume", float64(level))
		}
	case receiver.EventSubwoofer:
		if level, ok := ev.Value.(int); ok {
			t.w.WriteReceiverState(t.profile, "subwoofer", float64(level))
		}
	case receiver.EventInput:
		if selector, ok := ev.Value.(string); ok {
			t.setProfile(t.catalog.LookupBySelector(selector))
		}
	case receiver.EventProfile:
		if p, ok := ev.Value.(profile.Profile); ok {
			t.setProfile(p)
			t.w.WriteReceiverState(t.profile, "volume", float64(p.VolumeLevel))
			t.w.WriteReceiverState(t.profile, "subwoofer", float64(p.SubwooferLevel))
		}
	}
}

func (t *telemetry) setProfile(p profile.Profile) {
	if p.IsUnknown() {
		t.profile = ""
		return
	}
	t.profile = p.Name
}

func (t *telemetry) recordExchange(rec eiscp.ExchangeRecord) {
	command := rec.Message
	if len(command) > 3 {
		command = command[:3]
	}
	t.w.WriteExchange(command, exchangeOutcome(rec.Err), rec.Attempts, rec.Duration)
}

func exchangeOutcome(err error) string {
	switch {
	case err == nil:
		return influxdb.OutcomeOK
	case errors.Is(err, eiscp.ErrRejected):
		return influxdb.OutcomeRejected
	default:
		return influxdb.OutcomeFailed
	}
}
