package main

import (
	"context"
	"strconv"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/magnetometer/cmd/magnetometer/console"
	"github.com/mklimuk/magnetometer/compass"
)

var settingsCmd = cli.Command{
	Name:  "settings",
	Usage: "inspect or change the measurement settings",
	Subcommands: cli.Commands{
		&settingsGetCmd,
		&settingsSetCmd,
	},
}

var settingsGetCmd = cli.Command{
	Name:  "get",
	Usage: "print the settings read back from the device (no reset)",
	Action: func(c *cli.Context) error {
		return withAttached(c, func(ctx context.Context, d *compass.QMC5883L) error {
			set, err := d.Settings(ctx)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(console.Writer())
			defer func() { _ = enc.Close() }()
			return enc.Encode(set)
		})
	},
}

var settingsSetCmd = cli.Command{
	Name:  "set",
	Usage: "initialize the device with the given settings",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "odr", Usage: "output data rate: 10Hz, 50Hz, 100Hz or 200Hz"},
		&cli.StringFlag{Name: "osr", Usage: "over sample ratio: 512, 256, 128 or 64"},
		&cli.StringFlag{Name: "range", Usage: "full scale: 2G or 8G"},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
		set, err := settingsFromFlags(c, cfg.Settings)
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		return withDevice(c, &set, func(ctx context.Context, d *compass.QMC5883L) error {
			applied, err := d.Settings(ctx)
			if err != nil {
				return err
			}
			console.PInfof(console.PictoCompass, "settings applied: %s", console.White(applied))
			return nil
		})
	},
}

// settingsFromFlags overrides base with every settings flag that was given.
func settingsFromFlags(c *cli.Context, base compass.Settings) (compass.Settings, error) {
	set := base
	if c.IsSet("odr") {
		if err := set.ODR.UnmarshalText([]byte(c.String("odr"))); err != nil {
			return set, err
		}
	}
	if c.IsSet("osr") {
		if err := set.OSR.UnmarshalText([]byte(c.String("osr"))); err != nil {
			return set, err
		}
	}
	if c.IsSet("range") {
		if err := set.RNG.UnmarshalText([]byte(c.String("range"))); err != nil {
			return set, err
		}
	}
	return set, nil
}

var periodCmd = cli.Command{
	Name:  "period",
	Usage: "inspect or change the set/reset period register",
	Subcommands: cli.Commands{
		{
			Name:  "get",
			Usage: "print the set/reset period register (no reset)",
			Action: func(c *cli.Context) error {
				return withAttached(c, func(ctx context.Context, d *compass.QMC5883L) error {
					p, err := d.ResetPeriod(ctx)
					if err != nil {
						return err
					}
					console.PInfof(console.PictoReset, "set/reset period: %s", console.White(p))
					return nil
				})
			},
		},
		{
			Name:      "set",
			ArgsUsage: "<period>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return console.Exit(1, "expected 1 argument, got %d", c.NArg())
				}
				p, err := strconv.ParseInt(c.Args().First(), 0, 8)
				if err != nil {
					return console.Exit(1, "invalid period: %s", console.Red(err))
				}
				return withAttached(c, func(ctx context.Context, d *compass.QMC5883L) error {
					if err := d.SetResetPeriod(ctx, int8(p)); err != nil {
						return err
					}
					console.PInfof(console.PictoReset, "set/reset period: %s", console.White(p))
					return nil
				})
			},
		},
	},
}

var configCmd = cli.Command{
	Name:  "config",
	Usage: "print the effective configuration (file merged with flags)",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
		data, err := cfg.Marshal()
		if err != nil {
			return console.Exit(1, "encoding error: %s", console.Red(err))
		}
		console.Printf("%s", data)
		return nil
	},
}
