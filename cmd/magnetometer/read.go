package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/magnetometer/cmd/magnetometer/console"
	"github.com/mklimuk/magnetometer/compass"
)

// Reading is one field sample as printed by the cli.
type Reading struct {
	X    int16 `yaml:"x"`
	Y    int16 `yaml:"y"`
	Z    int16 `yaml:"z"`
	Temp int16 `yaml:"temp"`
}

var yamlFlag = &cli.BoolFlag{Name: "yaml", Usage: "print YAML instead of text"}

var readCmd = cli.Command{
	Name:  "read",
	Usage: "read all three axes in one transaction",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "no-wait", Usage: "do not wait for data ready"},
		&cli.DurationFlag{Name: "timeout", Value: 2 * time.Second, Usage: "data ready wait limit"},
		yamlFlag,
	},
	Action: func(c *cli.Context) error {
		return withDevice(c, nil, func(ctx context.Context, d *compass.QMC5883L) error {
			if !c.Bool("no-wait") {
				waitCtx, cancel := context.WithTimeout(ctx, c.Duration("timeout"))
				defer cancel()
				if err := waitReady(waitCtx, d, 10*time.Millisecond); err != nil {
					return fmt.Errorf("data not ready: %w", err)
				}
			}
			r, err := sample(ctx, d)
			if err != nil {
				return err
			}
			return printReading(c.Bool("yaml"), r)
		})
	},
}

var axisCmd = cli.Command{
	Name:      "axis",
	Usage:     "read a single axis",
	ArgsUsage: "<x|y|z>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return console.Exit(1, "expected 1 argument, got %d", c.NArg())
		}
		axis, err := parseAxis(c.Args().First())
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		return withDevice(c, nil, func(ctx context.Context, d *compass.QMC5883L) error {
			val, err := d.Read(ctx, axis)
			if err != nil {
				return err
			}
			console.PInfof(console.PictoMagnet, "%s: %s", axis, console.White(val))
			return nil
		})
	},
}

var tempCmd = cli.Command{
	Name:    "temperature",
	Aliases: []string{"temp"},
	Usage:   "read the raw (uncalibrated) temperature output",
	Action: func(c *cli.Context) error {
		return withDevice(c, nil, func(ctx context.Context, d *compass.QMC5883L) error {
			t, err := d.Temperature(ctx)
			if err != nil {
				return err
			}
			console.PInfof(console.PictoThermometer, "%s", console.White(t))
			return nil
		})
	},
}

var statusCmd = cli.Command{
	Name:  "status",
	Usage: "read status and control flags without reset (clears DRDY)",
	Action: func(c *cli.Context) error {
		return withAttached(c, func(ctx context.Context, d *compass.QMC5883L) error {
			status, err := d.Status(ctx)
			if err != nil {
				return err
			}
			ctrl, err := d.Control2(ctx)
			if err != nil {
				return err
			}
			console.Printf("status: %s %s %s\ncontrol: %s\n",
				console.Flag("DRDY", status.Has(compass.StatusDRDY)),
				console.Flag("OVL", status.Has(compass.StatusOVL)),
				console.Flag("DOR", status.Has(compass.StatusDOR)),
				console.White(ctrl))
			return nil
		})
	},
}

var watchCmd = cli.Command{
	Name:  "watch",
	Usage: "print samples as they become ready until interrupted",
	Flags: []cli.Flag{
		&cli.DurationFlag{Name: "interval", Value: 100 * time.Millisecond, Usage: "poll interval"},
		&cli.IntFlag{Name: "count", Usage: "stop after this many samples (0 = unlimited)"},
		yamlFlag,
	},
	Action: func(c *cli.Context) error {
		return withDevice(c, nil, func(ctx context.Context, d *compass.QMC5883L) error {
			return watch(ctx, d, c.Duration("interval"), c.Int("count"), func(r Reading) error {
				return printReading(c.Bool("yaml"), r)
			})
		})
	},
}

func parseAxis(s string) (compass.Axis, error) {
	switch strings.ToLower(s) {
	case "x":
		return compass.AxisX, nil
	case "y":
		return compass.AxisY, nil
	case "z":
		return compass.AxisZ, nil
	}
	return 0, fmt.Errorf("unknown axis %q", s)
}

// waitReady polls the data ready flag until it is set or ctx ends.
func waitReady(ctx context.Context, m compass.Magnetometer, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		ready, err := m.IsReady(ctx)
		if err != nil {
			return err
		}
		if ready {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func sample(ctx context.Context, m compass.Magnetometer) (Reading, error) {
	x, y, z, err := m.ReadAll(ctx)
	if err != nil {
		return Reading{}, err
	}
	t, err := m.Temperature(ctx)
	if err != nil {
		return Reading{}, err
	}
	return Reading{X: x, Y: y, Z: z, Temp: t}, nil
}

// watch emits a reading every time the sensor reports fresh data. It returns
// nil when ctx is cancelled or count readings were emitted.
func watch(ctx context.Context, m compass.Magnetometer, interval time.Duration, count int, emit func(Reading) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	emitted := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return nil
		}
		ready, err := m.IsReady(ctx)
		if err != nil {
			return err
		}
		if !ready {
			continue
		}
		r, err := sample(ctx, m)
		if err != nil {
			return err
		}
		if err := emit(r); err != nil {
			return err
		}
		emitted++
		if count > 0 && emitted >= count {
			return nil
		}
	}
}

func printReading(asYAML bool, r Reading) error {
	if asYAML {
		enc := yaml.NewEncoder(console.Writer())
		defer func() { _ = enc.Close() }()
		return enc.Encode(r)
	}
	console.PInfof(console.PictoCompass, "X: %s Y: %s Z: %s %s %s",
		console.White(r.X), console.White(r.Y), console.White(r.Z), console.PictoThermometer, console.White(r.Temp))
	return nil
}
