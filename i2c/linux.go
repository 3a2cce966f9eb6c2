package i2c

import (
	"context"
	"errors"
	"fmt"
	"sync"

	d2r2 "github.com/d2r2/go-i2c"
	logger "github.com/d2r2/go-logger"

	"github.com/mklimuk/magnetometer"
)

var _ magnetometer.I2CBus = &LinuxBus{}

// LinuxBus talks to /dev/i2c-N directly. The register pointer write and the
// data read are two separate transactions, which is fine for devices that
// keep their pointer between transactions.
type LinuxBus struct {
	mx    sync.Mutex
	busNr int
	devs  map[byte]*d2r2.I2C
}

// NewLinuxBus opens bus busNr lazily. Library logging is limited to info
// unless verbose is set.
func NewLinuxBus(busNr int, verbose bool) *LinuxBus {
	level := logger.InfoLevel
	if verbose {
		level = logger.DebugLevel
	}
	_ = logger.ChangePackageLogLevel("i2c", level)
	return &LinuxBus{busNr: busNr, devs: make(map[byte]*d2r2.I2C)}
}

func (b *LinuxBus) dev(address byte) (*d2r2.I2C, error) {
	if d, ok := b.devs[address]; ok {
		return d, nil
	}
	d, err := d2r2.NewI2C(address, b.busNr)
	if err != nil {
		return nil, fmt.Errorf("could not open i2c-%d address %x: %w", b.busNr, address, err)
	}
	b.devs[address] = d
	return d, nil
}

func (b *LinuxBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	d, err := b.dev(address)
	if err != nil {
		return err
	}
	if _, err := d.WriteBytes(buffer); err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *LinuxBus) WriteReadAddr(ctx context.Context, address byte, out []byte, in []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	d, err := b.dev(address)
	if err != nil {
		return err
	}
	if len(out) > 0 {
		if _, err := d.WriteBytes(out); err != nil {
			return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
		}
	}
	n, err := d.ReadBytes(in)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	if n != len(in) {
		return fmt.Errorf("short read from i2c bus %x: %d of %d bytes", address, n, len(in))
	}
	return nil
}

func (b *LinuxBus) Close() error {
	b.mx.Lock()
	defer b.mx.Unlock()
	var errs []error
	for addr, d := range b.devs {
		if err := d.Close(); err != nil {
			errs = append(errs, fmt.Errorf("could not close device %x: %w", addr, err))
		}
		delete(b.devs, addr)
	}
	return errors.Join(errs...)
}
