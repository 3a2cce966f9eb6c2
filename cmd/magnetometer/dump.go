package main

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/magnetometer"
	"github.com/mklimuk/magnetometer/cmd/magnetometer/console"
	"github.com/mklimuk/magnetometer/config"
)

const dumpSize = 0x0E

// dumpCmd reads the raw register file without initializing the sensor.
var dumpCmd = cli.Command{
	Name:  "dump",
	Usage: "hex dump of registers 0x00-0x0D (no reset, clears DRDY)",
	Action: func(c *cli.Context) error {
		return withBus(c, func(ctx context.Context, cfg config.Config, bus magnetometer.I2CBus) error {
			regs, err := dumpRegisters(ctx, bus, cfg.Address)
			if err != nil {
				return err
			}
			console.Printf("%s", hex.Dump(regs))
			return nil
		})
	},
}

// dumpRegisters reads one register per transaction so the result does not
// depend on the pointer rollover setting.
func dumpRegisters(ctx context.Context, bus magnetometer.AddressableWriteReader, address byte) ([]byte, error) {
	regs := make([]byte, dumpSize)
	for reg := range regs {
		if err := bus.WriteReadAddr(ctx, address, []byte{byte(reg)}, regs[reg:reg+1]); err != nil {
			return nil, fmt.Errorf("register %#02x: %w", reg, err)
		}
	}
	return regs, nil
}
