package mqttbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mtyszkiewicz/onkyo-ctl/internal/bridges/eiscp"
	"github.com/mtyszkiewicz/onkyo-ctl/internal/infrastructure/mqtt"
	"github.com/mtyszkiewicz/onkyo-ctl/internal/profile"
	"github.com/mtyszkiewicz/onkyo-ctl/internal/receiver"
)

const (
	// commandTimeout bounds how long a command waits for the proxy. It
	// covers the full retry schedule of a compound operation.
	commandTimeout = 30 * time.Second

	// seedTimeout bounds the initial power query.
	seedTimeout = 10 * time.Second
)

// Receiver is the proxy surface the bridge drives. *receiver.Proxy
// implements it.
type Receiver interface {
	IsPowered(ctx context.Context) (bool, error)
	PowerOn(ctx context.Context) (bool, error)
	PowerOff(ctx context.Context) (bool, error)
	SwitchPower(ctx context.Context) (bool, error)

	SetVolume(ctx context.Context, level int) (int, error)
	VolumeUp(ctx context.Context) (int, error)
	VolumeDown(ctx context.Context) (int, error)

	SetSubwooferLevel(ctx context.Context, level int) (int, error)
	SubwooferUp(ctx context.Context) (int, error)
	SubwooferDown(ctx context.Context) (int, error)

	SetInputSelector(ctx context.Context, selector string) (string, error)
	SetProfile(ctx context.Context, name string) (profile.Profile, error)

	Catalog() *profile.Catalog
	Subscribe(fn func(receiver.Event))
}

var _ Receiver = (*receiver.Proxy)(nil)

// MQTTClient is the interface for MQTT operations.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

var _ MQTTClient = (*mqtt.Client)(nil)

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Options holds configuration for creating a bridge.
type Options struct {
	Receiver   Receiver
	MQTTClient MQTTClient

	// Topics defaults to the "onkyo" prefix.
	Topics mqtt.Topics

	// QoS for subscriptions, acks and state.
	QoS byte

	// Stats is optional; it feeds the receiver section of health messages.
	Stats StatsSource

	HealthInterval time.Duration
	Version        string
	Logger         Logger
}

// operation executes one command against the receiver.
type operation func(ctx context.Context, cmd CommandMessage) (any, error)

// Bridge translates MQTT commands into proxy calls and proxy events into
// retained MQTT state.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	recv   Receiver
	mqtt   MQTTClient
	topics mqtt.Topics
	qos    byte
	health *HealthReporter
	ops    map[string]operation

	state   StateMessage
	stateMu sync.Mutex

	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc

	logger   Logger
	loggerMu sync.RWMutex
}

// NewBridge creates a bridge. Call Start to begin operation.
func NewBridge(opts Options) (*Bridge, error) {
	if opts.Receiver == nil {
		return nil, fmt.Errorf("receiver is required")
	}
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		recv:      opts.Receiver,
		mqtt:      opts.MQTTClient,
		topics:    opts.Topics,
		qos:       opts.QoS,
		done:      make(chan struct{}),
		ctx:       ctx,
		ctxCancel: ctxCancel,
		logger:    opts.Logger,
	}
	b.ops = b.operations()

	b.health = NewHealthReporter(HealthReporterConfig{
		Topic:     b.topics.Health(),
		Version:   opts.Version,
		Interval:  opts.HealthInterval,
		Publisher: opts.MQTTClient,
		Stats:     opts.Stats,
	})
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

// Start subscribes to command topics, starts relaying proxy events and
// begins health reporting.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	commandTopic := b.topics.AllCommands()
	if err := b.mqtt.Subscribe(commandTopic, b.qos, b.handleMessage); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logInfo("subscribed to commands", "topic", commandTopic)

	b.recv.Subscribe(b.handleEvent)

	b.health.Start(ctx)
	if err := b.health.PublishNow(); err != nil {
		b.logError("failed to publish healthy status", err)
	}

	b.wg.Add(1)
	go b.seedState()

	b.logInfo("bridge started", "state_topic", b.topics.State())
	return nil
}

// Stop cancels in-flight commands, stops health reporting and waits for
// background work.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.ctxCancel()
		b.health.Stop()
		b.wg.Wait()
		b.logInfo("bridge stopped")
	})
}

// State returns the last published state.
func (b *Bridge) State() StateMessage {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	return b.state
}

func (b *Bridge) operations() map[string]operation {
	return map[string]operation{
		"power/on": func(ctx context.Context, _ CommandMessage) (any, error) {
			return b.recv.PowerOn(ctx)
		},
		"power/off": func(ctx context.Context, _ CommandMessage) (any, error) {
			return b.recv.PowerOff(ctx)
		},
		"power/switch": func(ctx context.Context, _ CommandMessage) (any, error) {
			return b.recv.SwitchPower(ctx)
		},
		"volume/set": func(ctx context.Context, cmd CommandMessage) (any, error) {
			level, err := cmd.IntValue()
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidValue, err)
			}
			return b.recv.SetVolume(ctx, level)
		},
		"volume/up": func(ctx context.Context, _ CommandMessage) (any, error) {
			return b.recv.VolumeUp(ctx)
		},
		"volume/down": func(ctx context.Context, _ CommandMessage) (any, error) {
			return b.recv.VolumeDown(ctx)
		},
		"subwoofer/set": func(ctx context.Context, cmd CommandMessage) (any, error) {
			level, err := cmd.IntValue()
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidValue, err)
			}
			return b.recv.SetSubwooferLevel(ctx, level)
		},
		"subwoofer/up": func(ctx context.Context, _ CommandMessage) (any, error) {
			return b.recv.SubwooferUp(ctx)
		},
		"subwoofer/down": func(ctx context.Context, _ CommandMessage) (any, error) {
			return b.recv.SubwooferDown(ctx)
		},
		"input/set": func(ctx context.Context, cmd CommandMessage) (any, error) {
			selector, err := cmd.StringValue()
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidValue, err)
			}
			return b.recv.SetInputSelector(ctx, selector)
		},
		"profile/set": func(ctx context.Context, cmd CommandMessage) (any, error) {
			name, err := cmd.StringValue()
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidValue, err)
			}
			return b.recv.SetProfile(ctx, name)
		},
	}
}

// handleMessage processes a message on <prefix>/command/#.
func (b *Bridge) handleMessage(topic string, payload []byte) error {
	op, ok := b.topics.CommandOperation(topic)
	if !ok {
		b.logWarn("ignoring message on unexpected topic", "topic", topic)
		return nil
	}

	var cmd CommandMessage
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &cmd); err != nil {
			cmd.ID = uuid.NewString()
			return b.publishAck(op, NewAckError(cmd, op, ErrCodeInvalidParameters,
				fmt.Sprintf("malformed payload: %v", err)))
		}
	}
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}

	fn, ok := b.ops[op]
	if !ok {
		return b.publishAck(op, NewAckError(cmd, op, ErrCodeInvalidCommand,
			fmt.Sprintf("unknown operation %q", op)))
	}

	b.logDebug("received command", "command_id", cmd.ID, "operation", op)

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	result, err := fn(ctx, cmd)
	b.trackReachability(err)
	if err != nil {
		b.logWarn("command failed", "command_id", cmd.ID, "operation", op, "error", err)
		return b.publishAck(op, NewAckError(cmd, op, errorCode(err), err.Error()))
	}

	return b.publishAck(op, NewAck(cmd, op, result))
}

// trackReachability updates health from a command outcome. Errors raised
// before the receiver is contacted leave it unchanged.
func (b *Bridge) trackReachability(err error) {
	switch {
	case err == nil:
		b.health.SetReceiverReachable(true)
	case errors.Is(err, eiscp.ErrTransport):
		b.health.SetReceiverReachable(false)
	case errors.Is(err, eiscp.ErrRejected), errors.Is(err, eiscp.ErrDecodingFailed):
		b.health.SetReceiverReachable(true)
	}
}

// errorCode maps an operation error to an ack error code.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidValue),
		errors.Is(err, receiver.ErrOutOfRange),
		errors.Is(err, profile.ErrProfileNotFound),
		errors.Is(err, eiscp.ErrInvalidCommand):
		return ErrCodeInvalidParameters
	case errors.Is(err, eiscp.ErrRejected):
		return ErrCodeDeviceBusy
	case errors.Is(err, eiscp.ErrTransport):
		return ErrCodeDeviceUnreachable
	case errors.Is(err, eiscp.ErrDecodingFailed), errors.Is(err, eiscp.ErrInvalidPacket):
		return ErrCodeProtocolError
	default:
		return ErrCodeBridgeError
	}
}

func (b *Bridge) publishAck(op string, ack AckMessage) error {
	payload, err := json.Marshal(ack)
	if err != nil {
		return fmt.Errorf("marshal ack: %w", err)
	}
	if err := b.mqtt.Publish(b.topics.Ack(op), payload, b.qos, false); err != nil {
		return fmt.Errorf("publish ack: %w", err)
	}
	return nil
}

// handleEvent folds a proxy event into the state and republishes it.
func (b *Bridge) handleEvent(ev receiver.Event) {
	select {
	case <-b.done:
		return
	default:
	}

	b.stateMu.Lock()
	b.applyEvent(ev)
	state := b.state
	b.stateMu.Unlock()

	if err := b.publishState(state); err != nil {
		b.logError("failed to publish state", err)
	}
}

// applyEvent must be called with stateMu held.
func (b *Bridge) applyEvent(ev receiver.Event) {
	b.state.Timestamp = ev.Timestamp

	switch ev.Type {
	case receiver.EventPower:
		if on, ok := ev.Value.(bool); ok {
			b.state.IsPowered = &on
		}
	case receiver.EventVolume:
		if level, ok := ev.Value.(int); ok {
			b.state.VolumeLevel = &level
		}
	case receiver.EventSubwoofer:
		if level, ok := ev.Value.(int); ok {
			b.state.SubwooferLevel = &level
		}
	case receiver.EventInput:
		if selector, ok := ev.Value.(string); ok {
			b.state.Selector = selector
			b.state.Profile = b.recv.Catalog().LookupBySelector(selector).Name
		}
	case receiver.EventProfile:
		if p, ok := ev.Value.(profile.Profile); ok {
			volume, subwoofer := p.VolumeLevel, p.SubwooferLevel
			b.state.Profile = p.Name
			b.state.Selector = p.Selector
			b.state.VolumeLevel = &volume
			b.state.SubwooferLevel = &subwoofer
		}
	}
}

func (b *Bridge) publishState(state StateMessage) error {
	if !b.mqtt.IsConnected() {
		return nil
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return b.mqtt.Publish(b.topics.State(), payload, b.qos, true)
}

// seedState publishes the power state observed at startup. Only power is
// queried so that a power-on gate is never triggered.
func (b *Bridge) seedState() {
	defer b.wg.Done()

	ctx, cancel := context.WithTimeout(b.ctx, seedTimeout)
	defer cancel()

	on, err := b.recv.IsPowered(ctx)
	b.trackReachability(err)
	if err != nil {
		b.logWarn("initial power query failed", "error", err)
		return
	}

	b.handleEvent(receiver.Event{Type: receiver.EventPower, Value: on, Timestamp: time.Now().UTC()})
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()
	b.health.SetLogger(logger)
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

func (b *Bridge) logDebug(msg string, kv ...any) {
	if l := b.getLogger(); l != nil {
		l.Debug(msg, kv...)
	}
}

func (b *Bridge) logInfo(msg string, kv ...any) {
	if l := b.getLogger(); l != nil {
		l.Info(msg, kv...)
	}
}

func (b *Bridge) logWarn(msg string, kv ...any) {
	if l := b.getLogger(); l != nil {
		l.Warn(msg, kv...)
	}
}

func (b *Bridge) logError(msg string, err error) {
	if l := b.getLogger(); l != nil {
		l.Error(msg, "error", err)
	}
}
