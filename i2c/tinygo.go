package i2c

import (
	"context"
	"fmt"

	"tinygo.org/x/drivers"

	"github.com/mklimuk/magnetometer"
)

var _ magnetometer.I2CBus = &TinyGoBus{}

// TinyGoBus adapts a TinyGo style bus (machine.I2C or any drivers.I2C).
type TinyGoBus struct {
	bus drivers.I2C
}

func NewTinyGoBus(bus drivers.I2C) *TinyGoBus {
	return &TinyGoBus{bus: bus}
}

func (b *TinyGoBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	if err := b.bus.Tx(uint16(address), buffer, nil); err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *TinyGoBus) WriteReadAddr(ctx context.Context, address byte, out []byte, in []byte) error {
	if err := b.bus.Tx(uint16(address), out, in); err != nil {
		return fmt.Errorf("could not write/read i2c bus %x: %w", address, err)
	}
	return nil
}
