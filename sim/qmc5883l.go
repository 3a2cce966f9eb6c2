// Package sim provides an in-memory QMC5883L that speaks the register
// protocol over the magnetometer.I2CBus interface.
package sim

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/mklimuk/magnetometer"
)

const DefaultAddress = 0x0D

const (
	regData      = 0x00
	regDataEnd   = 0x06
	regStatus    = 0x06
	regTemp      = 0x07
	regSettings  = 0x09
	regControl2  = 0x0A
	registerSize = 0x10

	statusDRDY = 0b0001
	statusOVL  = 0b0010
	statusDOR  = 0b0100

	ctrlSoftReset = 0x80
	ctrlRollover  = 0x40
	ctrlWritable  = 0x41

	modeMask       = 0b11
	modeContinuous = 0b01
)

var ErrNoDevice = errors.New("no device acknowledged address")

var _ magnetometer.I2CBus = &Device{}

// Sample is one conversion result.
type Sample struct {
	X, Y, Z int16
	Temp    int16
}

// Write is one recorded write transaction (register pointer first).
type Write struct {
	Address byte
	Data    []byte
}

// Device simulates a QMC5883L register file.
type Device struct {
	mx      sync.Mutex
	address byte
	regs    [registerSize]byte
	pointer byte
	writes  []Write

	failAfter int
	failErr   error

	// Source, when set, feeds a new sample every time the status register is
	// read in continuous mode.
	Source func() Sample
}

func New() *Device {
	return NewAt(DefaultAddress)
}

func NewAt(address byte) *Device {
	return &Device{address: address, failAfter: -1}
}

// FailAfter makes the transaction following n successful ones fail with err.
func (d *Device) FailAfter(n int, err error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.failAfter = n
	d.failErr = err
}

func (d *Device) fail() error {
	if d.failAfter < 0 {
		return nil
	}
	if d.failAfter == 0 {
		d.failAfter = -1
		return d.failErr
	}
	d.failAfter--
	return nil
}

func (d *Device) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if err := d.fail(); err != nil {
		return err
	}
	if address != d.address {
		return fmt.Errorf("write to %#02x: %w", address, ErrNoDevice)
	}
	d.write(address, buffer)
	return nil
}

func (d *Device) WriteReadAddr(ctx context.Context, address byte, out []byte, in []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if err := d.fail(); err != nil {
		return err
	}
	if address != d.address {
		return fmt.Errorf("write/read %#02x: %w", address, ErrNoDevice)
	}
	if len(out) > 1 {
		d.write(address, out)
	} else if len(out) == 1 {
		d.pointer = out[0] % registerSize
	}
	d.read(in)
	return nil
}

func (d *Device) write(address byte, buffer []byte) {
	d.writes = append(d.writes, Write{Address: address, Data: append([]byte(nil), buffer...)})
	if len(buffer) == 0 {
		return
	}
	d.pointer = buffer[0] % registerSize
	for _, b := range buffer[1:] {
		d.store(d.pointer, b)
		d.pointer = (d.pointer + 1) % registerSize
	}
}

func (d *Device) store(reg byte, val byte) {
	switch reg {
	case regControl2:
		if val&ctrlSoftReset != 0 {
			d.regs = [registerSize]byte{}
			return
		}
		d.regs[regControl2] = val & ctrlWritable
	case regSettings, 0x0B:
		d.regs[reg] = val
	}
}

func (d *Device) read(in []byte) {
	if d.pointer == regStatus && d.continuous() && d.Source != nil {
		d.load(d.Source())
	}
	rollover := d.regs[regControl2]&ctrlRollover != 0
	for i := range in {
		in[i] = d.regs[d.pointer]
		if rollover && d.pointer == regDataEnd {
			d.pointer = regData
		} else {
			d.pointer = (d.pointer + 1) % registerSize
		}
	}
	// any read clears data ready and data skip
	d.regs[regStatus] &^= statusDRDY | statusDOR
}

func (d *Device) continuous() bool {
	return d.regs[regSettings]&modeMask == modeContinuous
}

// Measure loads a sample if the device is in continuous mode and reports
// whether it did.
func (d *Device) Measure(s Sample) bool {
	d.mx.Lock()
	defer d.mx.Unlock()
	if !d.continuous() {
		return false
	}
	d.load(s)
	return true
}

func (d *Device) load(s Sample) {
	status := d.regs[regStatus]
	if status&statusDRDY != 0 {
		status |= statusDOR
	}
	status |= statusDRDY
	status &^= statusOVL
	for _, v := range []int16{s.X, s.Y, s.Z} {
		if v == math.MaxInt16 || v == math.MinInt16 {
			status |= statusOVL
		}
	}
	binary.LittleEndian.PutUint16(d.regs[0:2], uint16(s.X))
	binary.LittleEndian.PutUint16(d.regs[2:4], uint16(s.Y))
	binary.LittleEndian.PutUint16(d.regs[4:6], uint16(s.Z))
	d.regs[regStatus] = status
	binary.LittleEndian.PutUint16(d.regs[regTemp:regTemp+2], uint16(s.Temp))
}

// Register returns the raw content of reg.
func (d *Device) Register(reg byte) byte {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.regs[reg%registerSize]
}

// SetRegister overwrites reg without any side effects.
func (d *Device) SetRegister(reg byte, val byte) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.regs[reg%registerSize] = val
}

// Standby reports whether the mode bits select standby.
func (d *Device) Standby() bool {
	d.mx.Lock()
	defer d.mx.Unlock()
	return !d.continuous()
}

// Writes returns a copy of the write log.
func (d *Device) Writes() []Write {
	d.mx.Lock()
	defer d.mx.Unlock()
	return append([]Write(nil), d.writes...)
}
