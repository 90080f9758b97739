// onkyoctl controls an Onkyo receiver from the command line.
//
// Commands go through the same proxy as the HTTP service, so volume
// ceilings and profiles behave identically. The chat subcommand opens an
// interactive session for raw ISCP messages.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/mtyszkiewicz/onkyo-ctl/internal/bridges/eiscp"
	"github.com/mtyszkiewicz/onkyo-ctl/internal/infrastructure/config"
	"github.com/mtyszkiewicz/onkyo-ctl/internal/infrastructure/logging"
	"github.com/mtyszkiewicz/onkyo-ctl/internal/profile"
	"github.com/mtyszkiewicz/onkyo-ctl/internal/receiver"
)

// Version information - set at build time via ldflags
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := &app{out: os.Stdout}
	if err := a.command().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds what the subcommands share. session and proxy are built in the
// Before hook from configuration and flags.
type app struct {
	out io.Writer

	// dialer replaces the configured transport when set.
	dialer eiscp.Dialer

	session *eiscp.Session
	proxy   *receiver.Proxy
}

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:    "onkyoctl",
		Usage:   "Onkyo receiver client",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Aliases: []string{"H"},
				Usage:   "receiver host address",
				Sources: cli.EnvVars("ONKYO_HOST"),
			},
			&cli.StringFlag{
				Name:    "port",
				Aliases: []string{"P"},
				Usage:   "receiver eISCP port",
				Sources: cli.EnvVars("ONKYO_PORT"),
			},
			&cli.StringFlag{
				Name:  "transport",
				Usage: "tcp or serial",
			},
			&cli.StringFlag{
				Name:  "serial-device",
				Usage: "serial port, e.g. /dev/ttyUSB0",
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "YAML configuration file",
				Sources: cli.EnvVars("ONKYO_CONFIG"),
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log receiver exchanges to stderr",
			},
		},
		Before:                a.before,
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			a.powerCommand(),
			a.volumeCommand(),
			a.subwooferCommand(),
			a.inputCommand(),
			a.profileCommand(),
			{
				Name:  "device",
				Usage: "Show a live snapshot of the receiver",
				Action: func(ctx context.Context, _ *cli.Command) error {
					snap, err := a.proxy.DeviceInfo(ctx)
					if err != nil {
						return err
					}
					return a.printJSON(snap)
				},
			},
			{
				Name:      "raw",
				Usage:     "Send one raw ISCP message and print the reply",
				ArgsUsage: "<MESSAGE>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 1 {
						return fmt.Errorf("usage: raw <MESSAGE>")
					}
					reply, err := a.session.Exchange(ctx, cmd.Args().First())
					if err != nil {
						return err
					}
					fmt.Fprintln(a.out, reply)
					return nil
				},
			},
			{
				Name:  "chat",
				Usage: "Chat with the receiver using raw ISCP messages",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return a.chat(ctx)
				},
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
	}
}

// before loads configuration, applies flag overrides and builds the proxy.
func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return ctx, fmt.Errorf("loading config: %w", err)
	}

	if cmd.IsSet("host") {
		cfg.Device.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		port, err := strconv.Atoi(cmd.String("port"))
		if err != nil {
			return ctx, fmt.Errorf("invalid port %q: %w", cmd.String("port"), err)
		}
		cfg.Device.Port = port
	}
	if cmd.IsSet("transport") {
		cfg.Device.Transport = cmd.String("transport")
	}
	if cmd.IsSet("serial-device") {
		cfg.Device.SerialDevice = cmd.String("serial-device")
		if !cmd.IsSet("transport") {
			cfg.Device.Transport = config.TransportSerial
		}
	}
	if err := cfg.Validate(); err != nil {
		return ctx, err
	}

	log := logging.Discard()
	if cmd.Bool("verbose") {
		log = logging.New(config.LoggingConfig{Level: "debug", Format: "text", Output: "stderr"}, version)
	}

	dialer := a.dialer
	if dialer == nil {
		if dialer, err = eiscp.NewDialer(cfg.Device); err != nil {
			return ctx, err
		}
	}
	a.session = eiscp.NewSession(dialer, eiscp.SessionConfigFrom(cfg.Device))
	a.session.SetLogger(log.With("component", "eiscp"))

	catalog, err := profile.FromConfig(cfg.Profiles)
	if err != nil {
		return ctx, fmt.Errorf("loading profile catalog: %w", err)
	}
	a.proxy = receiver.New(a.session, catalog, receiver.OptionsFromConfig(cfg.Device))
	a.proxy.SetLogger(log.With("component", "receiver"))

	return ctx, nil
}

func (a *app) powerCommand() *cli.Command {
	return &cli.Command{
		Name:  "power",
		Usage: "Control device power",
		Commands: []*cli.Command{
			a.powerAction("query", "Query power state", func(ctx context.Context) (bool, error) { return a.proxy.IsPowered(ctx) }),
			a.powerAction("on", "Turn device on", func(ctx context.Context) (bool, error) { return a.proxy.PowerOn(ctx) }),
			a.powerAction("off", "Turn device off", func(ctx context.Context) (bool, error) { return a.proxy.PowerOff(ctx) }),
			a.powerAction("switch", "Toggle power", func(ctx context.Context) (bool, error) { return a.proxy.SwitchPower(ctx) }),
		},
	}
}

func (a *app) powerAction(name, usage string, fn func(context.Context) (bool, error)) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Action: func(ctx context.Context, _ *cli.Command) error {
			on, err := fn(ctx)
			if err != nil {
				return err
			}
			if on {
				fmt.Fprintln(a.out, "on")
			} else {
				fmt.Fprintln(a.out, "off")
			}
			return nil
		},
	}
}

func (a *app) volumeCommand() *cli.Command {
	return a.levelCommand("volume", "Control master volume", levelOps{
		query: func(ctx context.Context) (int, error) { return a.proxy.GetVolume(ctx) },
		set:   func(ctx context.Context, n int) (int, error) { return a.proxy.SetVolume(ctx, n) },
		up:    func(ctx context.Context) (int, error) { return a.proxy.VolumeUp(ctx) },
		down:  func(ctx context.Context) (int, error) { return a.proxy.VolumeDown(ctx) },
	})
}

func (a *app) subwooferCommand() *cli.Command {
	return a.levelCommand("subwoofer", "Control subwoofer level", levelOps{
		query: func(ctx context.Context) (int, error) { return a.proxy.GetSubwooferLevel(ctx) },
		set:   func(ctx context.Context, n int) (int, error) { return a.proxy.SetSubwooferLevel(ctx, n) },
		up:    func(ctx context.Context) (int, error) { return a.proxy.SubwooferUp(ctx) },
		down:  func(ctx context.Context) (int, error) { return a.proxy.SubwooferDown(ctx) },
	})
}

type levelOps struct {
	query, up, down func(context.Context) (int, error)
	set             func(context.Context, int) (int, error)
}

func (a *app) levelCommand(name, usage string, ops levelOps) *cli.Command {
	step := func(sub, usage string, fn func(context.Context) (int, error)) *cli.Command {
		return &cli.Command{
			Name:  sub,
			Usage: usage,
			Action: func(ctx context.Context, _ *cli.Command) error {
				level, err := fn(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, level)
				return nil
			},
		}
	}

	return &cli.Command{
		Name:  name,
		Usage: usage,
		Commands: []*cli.Command{
			step("query", "Query current "+name+" level", ops.query),
			{
				Name:      "set",
				Usage:     "Set " + name + " level",
				ArgsUsage: "<level>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 1 {
						return fmt.Errorf("usage: %s set <level>", name)
					}
					n, err := strconv.Atoi(cmd.Args().First())
					if err != nil {
						return fmt.Errorf("invalid %s level: %w", name, err)
					}
					level, err := ops.set(ctx, n)
					if err != nil {
						return err
					}
					fmt.Fprintln(a.out, level)
					return nil
				},
			},
			step("up", "Increase "+name, ops.up),
			step("down", "Decrease "+name, ops.down),
		},
	}
}

func (a *app) inputCommand() *cli.Command {
	return &cli.Command{
		Name:  "input",
		Usage: "Control input selector",
		Commands: []*cli.Command{
			{
				Name:  "query",
				Usage: "Query current input",
				Action: func(ctx context.Context, _ *cli.Command) error {
					selector, err := a.proxy.GetInputSelector(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintln(a.out, selector)
					return nil
				},
			},
			{
				Name:      "set",
				Usage:     "Switch input",
				ArgsUsage: "<selector>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 1 {
						return fmt.Errorf("usage: input set <selector>")
					}
					selector, err := a.proxy.SetInputSelector(ctx, cmd.Args().First())
					if err != nil {
						return err
					}
					fmt.Fprintln(a.out, selector)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List known inputs",
				Action: func(_ context.Context, _ *cli.Command) error {
					for _, in := range eiscp.InputSelectors() {
						fmt.Fprintf(a.out, "%s  %s\n", in.Code, in.Name)
					}
					return nil
				},
			},
		},
	}
}

func (a *app) profileCommand() *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Apply listening profiles",
		Commands: []*cli.Command{
			{
				Name:  "query",
				Usage: "Show the profile matching the current input",
				Action: func(ctx context.Context, _ *cli.Command) error {
					p, err := a.proxy.CurrentProfile(ctx)
					if err != nil {
						return err
					}
					return a.printJSON(p)
				},
			},
			{
				Name:      "set",
				Usage:     "Apply a profile",
				ArgsUsage: "<name>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 1 {
						return fmt.Errorf("usage: profile set <name>")
					}
					p, err := a.proxy.SetProfile(ctx, cmd.Args().First())
					if err != nil {
						return err
					}
					return a.printJSON(p)
				},
			},
			{
				Name:  "list",
				Usage: "List configured profiles",
				Action: func(_ context.Context, _ *cli.Command) error {
					for _, p := range a.proxy.Catalog().All() {
						fmt.Fprintf(a.out, "%-10s selector=%s volume=%d subwoofer=%+d max=%d\n",
							p.Name, p.Selector, p.VolumeLevel, p.SubwooferLevel, p.MaxVolume)
					}
					return nil
				},
			},
		},
	}
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
