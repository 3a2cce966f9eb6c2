package i2c

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mklimuk/magnetometer"
	gobot "gobot.io/x/gobot/v2/drivers/i2c"
)

var _ magnetometer.I2CBus = &GobotBus{}

// GobotBus routes transactions through a gobot adaptor (e.g. a NanoPi NEO).
// Connections are opened per address on first use.
type GobotBus struct {
	mx        sync.Mutex
	connector gobot.Connector
	busNr     int
	conns     map[byte]gobot.Connection
}

// NewGobotBus uses busNr on the connector; a negative busNr selects the
// adaptor default.
func NewGobotBus(connector gobot.Connector, busNr int) *GobotBus {
	if busNr < 0 {
		busNr = connector.DefaultI2cBus()
	}
	return &GobotBus{
		connector: connector,
		busNr:     busNr,
		conns:     make(map[byte]gobot.Connection),
	}
}

func (b *GobotBus) conn(address byte) (gobot.Connection, error) {
	if c, ok := b.conns[address]; ok {
		return c, nil
	}
	c, err := b.connector.GetI2cConnection(int(address), b.busNr)
	if err != nil {
		return nil, fmt.Errorf("could not open i2c connection %d/%x: %w", b.busNr, address, err)
	}
	b.conns[address] = c
	return c, nil
}

func (b *GobotBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	c, err := b.conn(address)
	if err != nil {
		return err
	}
	if _, err := c.Write(buffer); err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	return nil
}

// WriteReadAddr uses an I2C block read for single byte register pointers and
// falls back to a write followed by a read otherwise.
func (b *GobotBus) WriteReadAddr(ctx context.Context, address byte, out []byte, in []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	c, err := b.conn(address)
	if err != nil {
		return err
	}
	if len(out) == 1 {
		if err := c.ReadBlockData(out[0], in); err != nil {
			return fmt.Errorf("could not read register %x from i2c bus %x: %w", out[0], address, err)
		}
		return nil
	}
	if len(out) > 0 {
		if _, err := c.Write(out); err != nil {
			return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
		}
	}
	if _, err := c.Read(in); err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GobotBus) Close() error {
	b.mx.Lock()
	defer b.mx.Unlock()
	var errs []error
	for addr, c := range b.conns {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("could not close connection %x: %w", addr, err))
		}
		delete(b.conns, addr)
	}
	return errors.Join(errs...)
}
