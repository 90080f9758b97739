package receiver

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/mtyszkiewicz/onkyo-ctl/internal/bridges/eiscp"
	"github.com/mtyszkiewicz/onkyo-ctl/internal/infrastructure/config"
	"github.com/mtyszkiewicz/onkyo-ctl/internal/profile"
)

// DefaultMaxVolume is the volume ceiling when no profile is active.
const DefaultMaxVolume = 50

// Device is the command channel to the receiver. *eiscp.Session implements
// it.
type Device interface {
	// Command sends a KEY=VALUE command and decodes the reply.
	Command(ctx context.Context, cmd string) (eiscp.Command, error)

	// Level sends a raw ISCP message and parses the signed level in the
	// reply.
	Level(ctx context.Context, msg string) (int, error)
}

var _ Device = (*eiscp.Session)(nil)

// Options tune the proxy's guards.
type Options struct {
	// MaxVolume is the ceiling when no profile is active, and the upper
	// bound for every profile. Default: 50.
	MaxVolume int

	// RejectVolumeAboveMax refuses SetVolume above the effective maximum
	// with ErrOutOfRange instead of clamping.
	RejectVolumeAboveMax bool

	// EnsurePowerOn sends a power-on command before every non-power
	// operation.
	EnsurePowerOn bool

	// VerifyProfile makes SetProfile re-read the receiver after applying a
	// profile and report the observed values.
	VerifyProfile bool
}

// OptionsFromConfig maps device configuration onto Options.
func OptionsFromConfig(cfg config.DeviceConfig) Options {
	return Options{
		MaxVolume:            cfg.MaxVolume,
		RejectVolumeAboveMax: cfg.VolumePolicy == config.VolumePolicyReject,
		EnsurePowerOn:        cfg.EnsurePowerOn,
		VerifyProfile:        cfg.VerifyProfile,
	}
}

// Snapshot is the live state of the receiver, read fresh on every request.
type Snapshot struct {
	Profile        string `json:"profile"`
	Selector       string `json:"selector"`
	VolumeLevel    int    `json:"volume_level"`
	SubwooferLevel int    `json:"subwoofer_level"`
	MaxVolume      int    `json:"max_volume"`
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Proxy is the single point of control for the receiver.
type Proxy struct {
	dev     Device
	catalog *profile.Catalog
	opts    Options

	// mu makes each public operation atomic with respect to the others.
	mu sync.Mutex

	snapshots singleflight.Group

	logger   Logger
	loggerMu sync.RWMutex

	subscribers []func(Event)
	subMu       sync.RWMutex
}

// New creates a Proxy.
func New(dev Device, catalog *profile.Catalog, opts Options) *Proxy {
	if opts.MaxVolume <= 0 {
		opts.MaxVolume = DefaultMaxVolume
	}
	return &Proxy{dev: dev, catalog: catalog, opts: opts}
}

// SetLogger sets the logger.
func (p *Proxy) SetLogger(l Logger) {
	p.loggerMu.Lock()
	defer p.loggerMu.Unlock()
	p.logger = l
}

// Catalog returns the profile catalog.
func (p *Proxy) Catalog() *profile.Catalog {
	return p.catalog
}

// run holds the proxy lock for fn and detaches it from ctx cancellation.
// With powerGate set and EnsurePowerOn enabled, the receiver is powered on
// first.
func (p *Proxy) run(ctx context.Context, powerGate bool, fn func(ctx context.Context) error) error {
	ctx = context.WithoutCancel(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	if powerGate && p.opts.EnsurePowerOn {
		if _, err := p.dev.Command(ctx, powerCommand(eiscp.ValueOn)); err != nil {
			return fmt.Errorf("ensure power on: %w", err)
		}
	}
	return fn(ctx)
}

// IsPowered queries the power state.
func (p *Proxy) IsPowered(ctx context.Context) (bool, error) {
	var on bool
	err := p.run(ctx, false, func(ctx context.Context) error {
		var err error
		on, err = p.queryPower(ctx)
		return err
	})
	return on, err
}

// PowerOn turns the receiver on. The result is the commanded state.
func (p *Proxy) PowerOn(ctx context.Context) (bool, error) {
	return p.setPower(ctx, true)
}

// PowerOff puts the receiver in standby. The result is the commanded state.
func (p *Proxy) PowerOff(ctx context.Context) (bool, error) {
	return p.setPower(ctx, false)
}

// SwitchPower reads the power state and commands the opposite.
func (p *Proxy) SwitchPower(ctx context.Context) (bool, error) {
	var on bool
	err := p.run(ctx, false, func(ctx context.Context) error {
		current, err := p.queryPower(ctx)
		if err != nil {
			return err
		}
		on = !current
		return p.sendPower(ctx, on)
	})
	if err != nil {
		return false, err
	}
	p.emit(EventPower, on)
	return on, nil
}

func (p *Proxy) setPower(ctx context.Context, on bool) (bool, error) {
	err := p.run(ctx, false, func(ctx context.Context) error {
		return p.sendPower(ctx, on)
	})
	if err != nil {
		return false, err
	}
	p.emit(EventPower, on)
	return on, nil
}

func (p *Proxy) queryPower(ctx context.Context) (bool, error) {
	resp, err := p.dev.Command(ctx, powerCommand(eiscp.ValueQuery))
	if err != nil {
		return false, err
	}
	return resp.Value == eiscp.ValueOn, nil
}

func (p *Proxy) sendPower(ctx context.Context, on bool) error {
	value := eiscp.ValueOff
	if on {
		value = eiscp.ValueOn
	}
	_, err := p.dev.Command(ctx, powerCommand(value))
	return err
}

// GetVolume returns the master volume.
func (p *Proxy) GetVolume(ctx context.Context) (int, error) {
	var level int
	err := p.run(ctx, true, func(ctx context.Context) error {
		var err error
		level, err = p.volumeCommand(ctx, eiscp.ValueQuery)
		return err
	})
	return level, err
}

// SetVolume sets the master volume, limited to the effective maximum: the
// active profile's ceiling or the default ceiling, whichever is lower.
// Returns the level reported by the receiver.
func (p *Proxy) SetVolume(ctx context.Context, level int) (int, error) {
	if level < 0 {
		return 0, fmt.Errorf("%w: volume %d is negative", ErrOutOfRange, level)
	}

	var result int
	err := p.run(ctx, true, func(ctx context.Context) error {
		current, err := p.currentProfile(ctx)
		if err != nil {
			return err
		}

		maxVolume := p.effectiveMax(current)
		target := level
		if level > maxVolume {
			if p.opts.RejectVolumeAboveMax {
				return fmt.Errorf("%w: volume %d above maximum %d", ErrOutOfRange, level, maxVolume)
			}
			p.logInfo("volume clamped", "requested", level, "max_volume", maxVolume, "profile", current.Name)
			target = maxVolume
		}

		result, err = p.volumeCommand(ctx, fmt.Sprint(target))
		return err
	})
	if err != nil {
		return 0, err
	}
	p.emit(EventVolume, result)
	return result, nil
}

// VolumeUp steps the master volume up and returns the new level.
func (p *Proxy) VolumeUp(ctx context.Context) (int, error) {
	return p.stepVolume(ctx, eiscp.ValueLevelUp)
}

// VolumeDown steps the master volume down and returns the new level.
func (p *Proxy) VolumeDown(ctx context.Context) (int, error) {
	return p.stepVolume(ctx, eiscp.ValueLevelDown)
}

func (p *Proxy) stepVolume(ctx context.Context, step string) (int, error) {
	var level int
	err := p.run(ctx, true, func(ctx context.Context) error {
		var err error
		level, err = p.volumeCommand(ctx, step)
		return err
	})
	if err != nil {
		return 0, err
	}
	p.emit(EventVolume, level)
	return level, nil
}

func (p *Proxy) volumeCommand(ctx context.Context, value string) (int, error) {
	resp, err := p.dev.Command(ctx, eiscp.KeyMasterVolume+"="+value)
	if err != nil {
		return 0, err
	}
	return resp.Int()
}

// GetSubwooferLevel returns the subwoofer level.
func (p *Proxy) GetSubwooferLevel(ctx context.Context) (int, error) {
	var level int
	err := p.run(ctx, true, func(ctx context.Context) error {
		var err error
		level, err = p.subwooferExchange(ctx, eiscp.MsgSubwooferQuery)
		return err
	})
	return level, err
}

// SetSubwooferLevel sets the subwoofer level. Levels must lie strictly
// between -8 and 8; anything else returns ErrOutOfRange without contacting
// the receiver.
func (p *Proxy) SetSubwooferLevel(ctx context.Context, level int) (int, error) {
	if level <= profile.MinSubwooferLevel || level >= profile.MaxSubwooferLevel {
		return 0, fmt.Errorf("%w: subwoofer level %d must be between %d and %d exclusive",
			ErrOutOfRange, level, profile.MinSubwooferLevel, profile.MaxSubwooferLevel)
	}

	var result int
	err := p.run(ctx, true, func(ctx context.Context) error {
		var err error
		result, err = p.sendSubwoofer(ctx, level)
		return err
	})
	if err != nil {
		return 0, err
	}
	p.emit(EventSubwoofer, result)
	return result, nil
}

// SubwooferUp steps the subwoofer level up and returns the new level.
func (p *Proxy) SubwooferUp(ctx context.Context) (int, error) {
	return p.stepSubwoofer(ctx, eiscp.MsgSubwooferUp)
}

// SubwooferDown steps the subwoofer level down and returns the new level.
func (p *Proxy) SubwooferDown(ctx context.Context) (int, error) {
	return p.stepSubwoofer(ctx, eiscp.MsgSubwooferDown)
}

func (p *Proxy) stepSubwoofer(ctx context.Context, msg string) (int, error) {
	var level int
	err := p.run(ctx, true, func(ctx context.Context) error {
		var err error
		level, err = p.subwooferExchange(ctx, msg)
		return err
	})
	if err != nil {
		return 0, err
	}
	p.emit(EventSubwoofer, level)
	return level, nil
}

func (p *Proxy) sendSubwoofer(ctx context.Context, level int) (int, error) {
	msg, err := eiscp.SubwooferSet(level)
	if err != nil {
		return 0, err
	}
	return p.subwooferExchange(ctx, msg)
}

func (p *Proxy) subwooferExchange(ctx context.Context, msg string) (int, error) {
	return p.dev.Level(ctx, msg)
}

// GetInputSelector returns the current input as a comma-joined selector.
func (p *Proxy) GetInputSelector(ctx context.Context) (string, error) {
	var selector string
	err := p.run(ctx, true, func(ctx context.Context) error {
		var err error
		selector, err = p.inputCommand(ctx, eiscp.ValueQuery)
		return err
	})
	return selector, err
}

// SetInputSelector switches input. selector may be a whole group
// ("video2,cbl,sat") or one of its names ("cbl").
func (p *Proxy) SetInputSelector(ctx context.Context, selector string) (string, error) {
	var result string
	err := p.run(ctx, true, func(ctx context.Context) error {
		var err error
		result, err = p.inputCommand(ctx, selector)
		return err
	})
	if err != nil {
		return "", err
	}
	p.emit(EventInput, result)
	return result, nil
}

func (p *Proxy) inputCommand(ctx context.Context, value string) (string, error) {
	resp, err := p.dev.Command(ctx, eiscp.KeyInputSelector+"="+value)
	if err != nil {
		return "", err
	}
	return resp.Value, nil
}

// CurrentProfile returns the profile matching the current input, or the
// unknown profile when none matches.
func (p *Proxy) CurrentProfile(ctx context.Context) (profile.Profile, error) {
	var current profile.Profile
	err := p.run(ctx, true, func(ctx context.Context) error {
		var err error
		current, err = p.currentProfile(ctx)
		return err
	})
	return current, err
}

func (p *Proxy) currentProfile(ctx context.Context) (profile.Profile, error) {
	selector, err := p.inputCommand(ctx, eiscp.ValueQuery)
	if err != nil {
		return profile.Profile{}, err
	}
	return p.catalog.LookupBySelector(selector), nil
}

// SetProfile applies the named profile: input selector, then volume, then
// subwoofer level. Unknown names return profile.ErrProfileNotFound before
// anything is sent.
//
// The volume sent is capped at the global ceiling. The returned profile
// carries the values sent unless VerifyProfile is set, in which case the
// receiver is read back.
func (p *Proxy) SetProfile(ctx context.Context, name string) (profile.Profile, error) {
	target, err := p.catalog.Lookup(name)
	if err != nil {
		return profile.Profile{}, err
	}

	result := target
	result.VolumeLevel = min(target.VolumeLevel, p.opts.MaxVolume)
	err = p.run(ctx, true, func(ctx context.Context) error {
		if _, err := p.inputCommand(ctx, target.Selector); err != nil {
			return fmt.Errorf("apply %s selector: %w", name, err)
		}
		if _, err := p.volumeCommand(ctx, fmt.Sprint(result.VolumeLevel)); err != nil {
			return fmt.Errorf("apply %s volume: %w", name, err)
		}
		// Catalog levels are validated at startup and may sit on the
		// boundary, so they bypass the public range check.
		if _, err := p.sendSubwoofer(ctx, target.SubwooferLevel); err != nil {
			return fmt.Errorf("apply %s subwoofer: %w", name, err)
		}

		if !p.opts.VerifyProfile {
			return nil
		}
		snap, err := p.snapshot(ctx)
		if err != nil {
			return fmt.Errorf("verify %s: %w", name, err)
		}
		result.VolumeLevel = snap.VolumeLevel
		result.SubwooferLevel = snap.SubwooferLevel
		if snap.Selector != target.Selector {
			p.logWarn("profile selector not confirmed", "profile", name, "want", target.Selector, "got", snap.Selector)
			result = p.catalog.LookupBySelector(snap.Selector)
			result.VolumeLevel = snap.VolumeLevel
			result.SubwooferLevel = snap.SubwooferLevel
		}
		return nil
	})
	if err != nil {
		return profile.Profile{}, err
	}

	p.logInfo("profile applied", "profile", result.Name, "volume", result.VolumeLevel, "subwoofer", result.SubwooferLevel)
	p.emit(EventProfile, result)
	return result, nil
}

// DeviceInfo reads a fresh snapshot. Concurrent callers share one read.
func (p *Proxy) DeviceInfo(ctx context.Context) (Snapshot, error) {
	v, err, _ := p.snapshots.Do("device", func() (any, error) {
		var snap Snapshot
		err := p.run(ctx, true, func(ctx context.Context) error {
			var err error
			snap, err = p.snapshot(ctx)
			return err
		})
		return snap, err
	})
	if err != nil {
		return Snapshot{}, err
	}
	return v.(Snapshot), nil
}

func (p *Proxy) snapshot(ctx context.Context) (Snapshot, error) {
	current, err := p.currentProfile(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	volume, err := p.volumeCommand(ctx, eiscp.ValueQuery)
	if err != nil {
		return Snapshot{}, err
	}
	subwoofer, err := p.subwooferExchange(ctx, eiscp.MsgSubwooferQuery)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Profile:        current.Name,
		Selector:       current.Selector,
		VolumeLevel:    volume,
		SubwooferLevel: subwoofer,
		MaxVolume:      p.effectiveMax(current),
	}, nil
}

// effectiveMax is the volume ceiling while current is active.
func (p *Proxy) effectiveMax(current profile.Profile) int {
	if current.IsUnknown() {
		return p.opts.MaxVolume
	}
	return min(current.MaxVolume, p.opts.MaxVolume)
}

func powerCommand(value string) string {
	return eiscp.KeySystemPower + "=" + value
}

func (p *Proxy) getLogger() Logger {
	p.loggerMu.RLock()
	defer p.loggerMu.RUnlock()
	return p.logger
}

func (p *Proxy) logInfo(msg string, kv ...any) {
	if l := p.getLogger(); l != nil {
		l.Info(msg, kv...)
	}
}

func (p *Proxy) logWarn(msg string, kv ...any) {
	if l := p.getLogger(); l != nil {
		l.Warn(msg, kv...)
	}
}
