package compass

import (
	"context"
	"fmt"

	"github.com/mklimuk/magnetometer"
)

// QMC5883L represents QST QMC5883L 3-axis magnetic sensor
// See: https://datasheet.lcsc.com/lcsc/QST-QMC5883L-TR_C192585.pdf
//
// Usage: instantiate with New, then poll IsReady and call ReadAll.
//
// The driver is not safe for concurrent use. Sharing the bus with other
// devices is the transport's business.
type QMC5883L struct {
	regs    registers
	standby bool
}

type Config struct {
	Address        byte
	Tracer         Tracer
	SetResetPeriod *int8
}

type ConfigOption func(*Config)

func WithAddress(address byte) ConfigOption {
	return func(c *Config) {
		c.Address = address
	}
}

func WithTracer(tracer Tracer) ConfigOption {
	return func(c *Config) {
		c.Tracer = tracer
	}
}

// WithSetResetPeriod makes New program the set/reset period register after
// the settings. The datasheet recommends 0x01.
func WithSetResetPeriod(period int8) ConfigOption {
	return func(c *Config) {
		c.SetResetPeriod = &period
	}
}

// New resets the device, applies set and re-enables pointer rollover.
// The device is left in continuous measurement mode.
func New(ctx context.Context, trans magnetometer.I2CBus, set Settings, opts ...ConfigOption) (*QMC5883L, error) {
	d, config := attach(trans, opts)
	err := d.Reset(ctx)
	if err != nil {
		return nil, err
	}
	err = d.ChangeSettings(ctx, set)
	if err != nil {
		return nil, err
	}
	err = writeFlags(ctx, &d.regs, Control2Rollover)
	if err != nil {
		return nil, fmt.Errorf("qmc5883l: could not enable pointer rollover: %w", err)
	}
	if config.SetResetPeriod != nil {
		err = d.SetResetPeriod(ctx, *config.SetResetPeriod)
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Attach returns a handle to a device configured earlier (by another
// process or host) without touching the bus. The standby mirror starts
// false; call Sync to load it from the device. WithSetResetPeriod is
// ignored.
func Attach(trans magnetometer.I2CBus, opts ...ConfigOption) *QMC5883L {
	d, _ := attach(trans, opts)
	return d
}

func attach(trans magnetometer.I2CBus, opts []ConfigOption) (*QMC5883L, *Config) {
	config := &Config{
		Address: DefaultAddress,
	}
	for _, opt := range opts {
		opt(config)
	}
	d := &QMC5883L{}
	d.regs = registers{
		transport: trans,
		address:   config.Address,
		tracer:    config.Tracer,
		access:    d.wake,
	}
	return d, config
}

// any register access wakes the device up
func (d *QMC5883L) wake() {
	d.standby = false
}

// Reset pulses a soft reset and re-enables pointer rollover, which the
// device clears on reset. It does not place the device on standby.
func (d *QMC5883L) Reset(ctx context.Context) error {
	d.regs.trace(ctx, Event{Kind: EventReset, Register: regControl2})
	err := writeFlags(ctx, &d.regs, Control2SoftReset)
	if err != nil {
		return fmt.Errorf("qmc5883l: soft reset failed: %w", err)
	}
	err = writeFlags(ctx, &d.regs, Control2Rollover)
	if err != nil {
		return fmt.Errorf("qmc5883l: could not enable pointer rollover: %w", err)
	}
	return nil
}

// ToStandby clears the continuous measurement bit while keeping the rest of
// the configuration. Any later register access wakes the device again.
//
// The read and the write are separate transactions; if the write fails the
// device state is unknown and OnStandby keeps reporting false.
func (d *QMC5883L) ToStandby(ctx context.Context) error {
	raw, err := d.regs.readByte(ctx, regSettings)
	if err != nil {
		return fmt.Errorf("qmc5883l: could not read settings: %w", err)
	}
	raw &^= modeContinuous
	err = d.regs.writeByte(ctx, regSettings, raw)
	if err != nil {
		return fmt.Errorf("qmc5883l: could not write standby mode: %w", err)
	}
	d.standby = true
	d.regs.trace(ctx, Event{Kind: EventStandby, Register: regSettings, Data: []byte{raw}})
	return nil
}

// OnStandby reports the software-side standby mirror. Checking the device
// would wake it, so this is advisory only; see Sync.
func (d *QMC5883L) OnStandby() bool {
	return d.standby
}

// Sync re-reads the settings register and derives the standby mirror from
// the continuous measurement bit. Use it after an error left the mirror in
// doubt.
func (d *QMC5883L) Sync(ctx context.Context) (bool, error) {
	raw, err := d.regs.readByte(ctx, regSettings)
	if err != nil {
		return d.standby, fmt.Errorf("qmc5883l: could not read settings: %w", err)
	}
	d.standby = raw&modeContinuous == 0
	d.regs.trace(ctx, Event{Kind: EventSync, Register: regSettings, Data: []byte{raw}})
	return d.standby, nil
}

// IsReady checks the DRDY flag. Reading the status clears it on the device,
// so a true result must be followed by a data read, not another check.
func (d *QMC5883L) IsReady(ctx context.Context) (bool, error) {
	status, err := d.Status(ctx)
	if err != nil {
		return false, err
	}
	return status.Has(StatusDRDY), nil
}

func (d *QMC5883L) Status(ctx context.Context) (Status, error) {
	status, err := readFlags[Status](ctx, &d.regs)
	if err != nil {
		return 0, fmt.Errorf("qmc5883l: could not read status: %w", err)
	}
	return status, nil
}

func (d *QMC5883L) Control2(ctx context.Context) (Control2, error) {
	ctrl, err := readFlags[Control2](ctx, &d.regs)
	if err != nil {
		return 0, fmt.Errorf("qmc5883l: could not read control register: %w", err)
	}
	return ctrl, nil
}

// Read returns the raw value of a single axis.
func (d *QMC5883L) Read(ctx context.Context, axis Axis) (int16, error) {
	switch axis {
	case AxisX, AxisY, AxisZ:
	default:
		return 0, fmt.Errorf("qmc5883l: unknown axis %#02x", byte(axis))
	}
	val, err := d.regs.readAxis(ctx, axis)
	if err != nil {
		return 0, fmt.Errorf("qmc5883l: could not read axis %s: %w", axis, err)
	}
	return val, nil
}

// ReadAll reads the three axes in a single transaction, so they always come
// from the same measurement. Check IsReady first.
func (d *QMC5883L) ReadAll(ctx context.Context) (x, y, z int16, err error) {
	x, y, z, err = d.regs.readAllAxes(ctx)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("qmc5883l: could not read axis data: %w", err)
	}
	return x, y, z, nil
}

// Temperature returns the raw temperature output. It is consistent with
// itself but not calibrated to an absolute scale.
func (d *QMC5883L) Temperature(ctx context.Context) (int16, error) {
	t, err := d.regs.readTemperature(ctx)
	if err != nil {
		return 0, fmt.Errorf("qmc5883l: could not read temperature: %w", err)
	}
	return t, nil
}

// Settings reads back the settings register. An undefined field code yields
// an error matching ErrInvalidEncoding.
func (d *QMC5883L) Settings(ctx context.Context) (Settings, error) {
	raw, err := d.regs.readByte(ctx, regSettings)
	if err != nil {
		return Settings{}, fmt.Errorf("qmc5883l: could not read settings: %w", err)
	}
	set, err := DecodeSettings(raw)
	if err != nil {
		return Settings{}, fmt.Errorf("qmc5883l: %w", err)
	}
	return set, nil
}

// ChangeSettings writes set with continuous measurement enabled.
func (d *QMC5883L) ChangeSettings(ctx context.Context, set Settings) error {
	if !set.Valid() {
		return fmt.Errorf("qmc5883l: refusing to write settings %s: %w", set, ErrInvalidEncoding)
	}
	raw := EncodeSettings(set)
	d.regs.trace(ctx, Event{Kind: EventSettings, Register: regSettings, Data: []byte{raw}})
	err := d.regs.writeByte(ctx, regSettings, raw)
	if err != nil {
		return fmt.Errorf("qmc5883l: could not write settings: %w", err)
	}
	return nil
}

// ResetPeriod returns the raw set/reset period register.
func (d *QMC5883L) ResetPeriod(ctx context.Context) (int8, error) {
	p, err := d.regs.readPeriod(ctx)
	if err != nil {
		return 0, fmt.Errorf("qmc5883l: could not read set/reset period: %w", err)
	}
	return p, nil
}

func (d *QMC5883L) SetResetPeriod(ctx context.Context, period int8) error {
	err := d.regs.writePeriod(ctx, period)
	if err != nil {
		return fmt.Errorf("qmc5883l: could not write set/reset period: %w", err)
	}
	return nil
}
