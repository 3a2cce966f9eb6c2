package compass

import (
	"context"
	"encoding/binary"

	"github.com/mklimuk/magnetometer"
)

// DefaultAddress is the fixed 7-bit bus address of the QMC5883L.
const DefaultAddress = 0x0D

// Register map
const (
	regDataX          = 0x00 // X LSB, X MSB, Y LSB, Y MSB, Z LSB, Z MSB
	regDataY          = 0x02
	regDataZ          = 0x04
	regStatus         = 0x06
	regTemperature    = 0x07 // LSB, MSB
	regSettings       = 0x09
	regControl2       = 0x0A
	regSetResetPeriod = 0x0B
)

// Axis selects one of the three data register pairs.
type Axis byte

const (
	AxisX Axis = regDataX
	AxisY Axis = regDataY
	AxisZ Axis = regDataZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	default:
		return "?"
	}
}

// registers issues raw register transactions to a single device address.
// access runs before every call that reaches the transport.
type registers struct {
	transport magnetometer.I2CBus
	address   byte
	access    func()
	tracer    Tracer
}

func (r *registers) touch() {
	if r.access != nil {
		r.access()
	}
}

func (r *registers) trace(ctx context.Context, ev Event) {
	if r.tracer != nil {
		r.tracer.Trace(ctx, ev)
	}
}

func (r *registers) readByte(ctx context.Context, reg byte) (byte, error) {
	var buf [1]byte
	r.touch()
	err := r.transport.WriteReadAddr(ctx, r.address, []byte{reg}, buf[:])
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (r *registers) writeByte(ctx context.Context, reg byte, val byte) error {
	r.touch()
	return r.transport.WriteToAddr(ctx, r.address, []byte{reg, val})
}

// readBurst reads n consecutive registers in one transaction. It depends on
// the rollover pointer being enabled.
func (r *registers) readBurst(ctx context.Context, reg byte, n int) ([]byte, error) {
	buf := make([]byte, n)
	r.touch()
	err := r.transport.WriteReadAddr(ctx, r.address, []byte{reg}, buf)
	if err != nil {
		return nil, err
	}
	r.trace(ctx, Event{Kind: EventBurstRead, Register: reg, Data: buf})
	return buf, nil
}

func (r *registers) readInt16(ctx context.Context, reg byte) (int16, error) {
	buf, err := r.readBurst(ctx, reg, 2)
	if err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(buf)), nil
}

func (r *registers) readAxis(ctx context.Context, axis Axis) (int16, error) {
	return r.readInt16(ctx, byte(axis))
}

// readAllAxes fetches X, Y and Z from the same conversion cycle.
func (r *registers) readAllAxes(ctx context.Context) (int16, int16, int16, error) {
	buf, err := r.readBurst(ctx, regDataX, 6)
	if err != nil {
		return 0, 0, 0, err
	}
	x, y, z := decodeAxes(buf)
	return x, y, z, nil
}

func decodeAxes(buf []byte) (x, y, z int16) {
	return int16(binary.LittleEndian.Uint16(buf[0:2])),
		int16(binary.LittleEndian.Uint16(buf[2:4])),
		int16(binary.LittleEndian.Uint16(buf[4:6]))
}

func (r *registers) readTemperature(ctx context.Context) (int16, error) {
	return r.readInt16(ctx, regTemperature)
}

func (r *registers) readPeriod(ctx context.Context) (int8, error) {
	raw, err := r.readByte(ctx, regSetResetPeriod)
	if err != nil {
		return 0, err
	}
	return int8(raw), nil
}

func (r *registers) writePeriod(ctx context.Context, val int8) error {
	return r.writeByte(ctx, regSetResetPeriod, byte(val))
}
