package main

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/magnetometer/cmd/magnetometer/console"
	"github.com/mklimuk/magnetometer/compass"
)

var standbyCmd = cli.Command{
	Name:  "standby",
	Usage: "put the sensor in standby mode, keeping its settings",
	Action: func(c *cli.Context) error {
		return withAttached(c, func(ctx context.Context, d *compass.QMC5883L) error {
			if err := d.ToStandby(ctx); err != nil {
				return err
			}
			console.PInfof(console.PictoSleep, "sensor in standby")
			return nil
		})
	},
}

var syncCmd = cli.Command{
	Name:  "sync",
	Usage: "report the measurement mode read back from the settings register (no reset)",
	Action: func(c *cli.Context) error {
		return withAttached(c, func(ctx context.Context, d *compass.QMC5883L) error {
			standby, err := d.Sync(ctx)
			if err != nil {
				return err
			}
			if standby {
				console.PInfof(console.PictoSleep, "mode: %s", console.Yellow("standby"))
				return nil
			}
			console.PInfof(console.PictoCompass, "mode: %s", console.Green("continuous"))
			return nil
		})
	},
}

var resetCmd = cli.Command{
	Name:  "reset",
	Usage: "soft reset the sensor, leaving every register at its power-on value",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
	},
	Action: func(c *cli.Context) error {
		if !c.Bool("yes") {
			ok, err := console.Confirm("reset the sensor?")
			if err != nil {
				return console.Exit(1, "prompt error: %s", console.Red(err))
			}
			if !ok {
				console.PInfof(console.PictoStop, "aborted")
				return nil
			}
		}
		return withAttached(c, func(ctx context.Context, d *compass.QMC5883L) error {
			if err := d.Reset(ctx); err != nil {
				return err
			}
			console.PInfof(console.PictoReset, "sensor reset")
			return nil
		})
	},
}
