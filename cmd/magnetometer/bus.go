package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"sync"

	"github.com/urfave/cli/v2"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"

	"github.com/mklimuk/magnetometer"
	"github.com/mklimuk/magnetometer/adapter"
	"github.com/mklimuk/magnetometer/cmd/magnetometer/console"
	"github.com/mklimuk/magnetometer/compass"
	"github.com/mklimuk/magnetometer/config"
	"github.com/mklimuk/magnetometer/i2c"
	"github.com/mklimuk/magnetometer/sim"
	"github.com/mklimuk/magnetometer/snsctx"
)

const defaultLinuxBus = 1

// loadConfig reads the optional config file and applies global flag
// overrides on top of it.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return cfg, err
		}
	}
	if c.IsSet("adapter") {
		cfg.Adapter = c.String("adapter")
	}
	if c.IsSet("device") {
		cfg.Device = c.String("device")
	}
	if c.IsSet("bus") {
		cfg.Bus = c.Int("bus")
	}
	return cfg, cfg.Validate()
}

func openBus(ctx context.Context, cfg config.Config, verbose bool) (magnetometer.I2CBus, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Adapter {
	case config.AdapterMCP2221:
		a := adapter.NewMCP2221()
		if err := a.Init(ctx); err != nil {
			return nil, nil, fmt.Errorf("adapter initialization error: %w", err)
		}
		return a, noop, nil
	case config.AdapterGeneric:
		b, err := i2c.NewGenericBus(cfg.Device)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	case config.AdapterNanoPi:
		npi := nanopi.NewNeoAdaptor()
		if err := npi.Connect(); err != nil {
			return nil, nil, fmt.Errorf("adaptor connect error: %w", err)
		}
		b := i2c.NewGobotBus(npi, cfg.Bus)
		return b, func() error { return errors.Join(b.Close(), npi.Finalize()) }, nil
	case config.AdapterLinux:
		nr := cfg.Bus
		if nr < 0 {
			nr = defaultLinuxBus
		}
		b := i2c.NewLinuxBus(nr, verbose)
		return b, b.Close, nil
	case config.AdapterSim:
		return simBus(cfg.Address), noop, nil
	}
	return nil, nil, fmt.Errorf("unknown adapter %q", cfg.Adapter)
}

var (
	simMx      sync.Mutex
	simDevices = map[byte]*sim.Device{}
)

// simBus returns the simulated sensor at address, creating it on first use.
// It lives as long as the process.
func simBus(address byte) *sim.Device {
	simMx.Lock()
	defer simMx.Unlock()
	dev, ok := simDevices[address]
	if !ok {
		dev = newSimBus(address)
		simDevices[address] = dev
	}
	return dev
}

// newSimBus returns a simulated sensor slowly rotating in the XY plane.
func newSimBus(address byte) *sim.Device {
	dev := sim.NewAt(address)
	var angle float64
	dev.Source = func() sim.Sample {
		angle += math.Pi / 36
		return sim.Sample{
			X:    int16(3000 * math.Cos(angle)),
			Y:    int16(3000 * math.Sin(angle)),
			Z:    -1200,
			Temp: 2500,
		}
	}
	return dev
}

// withBus opens the configured bus and runs fn with it. Errors that are not
// already exit codes are reported with exit code 1.
func withBus(c *cli.Context, fn func(ctx context.Context, cfg config.Config, bus magnetometer.I2CBus) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return console.Exit(1, "configuration error: %s", console.Red(err))
	}
	verbose := c.Bool("verbose")
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()
	ctx = snsctx.SetVerbose(ctx, verbose)
	ctx = snsctx.WithDevice(ctx, "qmc5883l")

	bus, closeBus, err := openBus(ctx, cfg, verbose)
	if err != nil {
		return console.Exit(1, "%s", console.Red(err))
	}
	defer func() {
		if err := closeBus(); err != nil {
			console.Errorf("error closing bus: %s", console.Red(err))
		}
	}()

	err = fn(ctx, cfg, bus)
	if errors.Is(err, magnetometer.ErrBusBusy) {
		releaseBus(ctx, bus)
	}
	if err != nil {
		var exerr cli.ExitCoder
		if errors.As(err, &exerr) {
			return err
		}
		return console.Exit(1, "%s", console.Red(err))
	}
	return nil
}

func deviceOptions(c *cli.Context, cfg config.Config) []compass.ConfigOption {
	opts := cfg.Options()
	if c.Bool("verbose") {
		opts = append(opts, compass.WithTracer(compass.LogTracer(slog.Default())))
	}
	return opts
}

// withDevice initializes the sensor with set (or the configured settings
// when set is nil) and runs fn.
func withDevice(c *cli.Context, set *compass.Settings, fn func(ctx context.Context, d *compass.QMC5883L) error) error {
	return withBus(c, func(ctx context.Context, cfg config.Config, bus magnetometer.I2CBus) error {
		if set == nil {
			set = &cfg.Settings
		}
		d, err := compass.New(ctx, bus, *set, deviceOptions(c, cfg)...)
		if err != nil {
			return fmt.Errorf("sensor initialization error: %w", err)
		}
		return fn(ctx, d)
	})
}

// withAttached runs fn on the sensor as it is, without reset or
// configuration, so fn sees the state left by earlier commands.
func withAttached(c *cli.Context, fn func(ctx context.Context, d *compass.QMC5883L) error) error {
	return withBus(c, func(ctx context.Context, cfg config.Config, bus magnetometer.I2CBus) error {
		return fn(ctx, compass.Attach(bus, deviceOptions(c, cfg)...))
	})
}

// releaseBus frees a transport left holding the bus after a busy error so
// the next invocation starts clean.
func releaseBus(ctx context.Context, bus magnetometer.I2CBus) {
	r, ok := bus.(magnetometer.Releaser)
	if !ok {
		return
	}
	if err := r.Release(ctx); err != nil {
		console.Warnf("could not release bus: %s", err)
		return
	}
	console.Warnf("bus was busy and has been released, retry the command")
}
