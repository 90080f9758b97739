package receiver

import "time"

// EventType identifies what changed.
type EventType string

// Event types.
const (
	EventPower     EventType = "power"
	EventVolume    EventType = "volume"
	EventSubwoofer EventType = "subwoofer"
	EventInput     EventType = "input"
	EventProfile   EventType = "profile"
)

// Event reports a change made through the proxy.
//
// Value holds a bool for power, an int for volume and subwoofer, the
// selector string for input, and a profile.Profile for profile changes.
type Event struct {
	Type      EventType `json:"type"`
	Value     any       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Subscribe registers fn to receive events. Callbacks run synchronously
// after the operation completes and the proxy lock is released, so they may
// call back into the proxy.
func (p *Proxy) Subscribe(fn func(Event)) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	p.subscribers = append(p.subscribers, fn)
}

func (p *Proxy) emit(t EventType, value any) {
	p.subMu.RLock()
	subs := make([]func(Event), len(p.subscribers))
	copy(subs, p.subscribers)
	p.subMu.RUnlock()

	ev := Event{Type: t, Value: value, Timestamp: time.Now().UTC()}
	for _, fn := range subs {
		fn(ev)
	}
}
