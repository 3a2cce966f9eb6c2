package compass

import (
	"context"
	"strings"
)

// Status mirrors the read-only status register (0x06). The device clears
// it on any register read, so it is never cached.
type Status uint8

const (
	// StatusDRDY is set when all three axes hold fresh data.
	StatusDRDY Status = 0b0001
	// StatusOVL is set while any channel is out of range.
	StatusOVL Status = 0b0010
	// StatusDOR is set when a sample was skipped because the previous one
	// was not read.
	StatusDOR Status = 0b0100
)

func (s Status) Has(f Status) bool {
	return s&f == f
}

func (s Status) String() string {
	return flagNames(uint8(s), []flagName{
		{uint8(StatusDOR), "DOR"},
		{uint8(StatusOVL), "OVL"},
		{uint8(StatusDRDY), "DRDY"},
	})
}

func (Status) register() byte { return regStatus }

func (Status) mask() uint8 { return uint8(StatusDOR | StatusOVL | StatusDRDY) }

// Control2 mirrors the second control register (0x0A).
type Control2 uint8

const (
	// Control2SoftReset restores register defaults. Self clearing.
	Control2SoftReset Control2 = 0b1000_0000
	// Control2Rollover makes the register pointer auto-increment over the
	// data block. The device clears it on reset.
	Control2Rollover Control2 = 0b0100_0000
	// Control2IntEnable is reserved; interrupts are not driven.
	Control2IntEnable Control2 = 0b0000_0001
)

func (c Control2) Has(f Control2) bool {
	return c&f == f
}

func (c Control2) String() string {
	return flagNames(uint8(c), []flagName{
		{uint8(Control2SoftReset), "SOFT_RST"},
		{uint8(Control2Rollover), "ROL_PNT"},
		{uint8(Control2IntEnable), "INT_ENB"},
	})
}

func (Control2) register() byte { return regControl2 }

func (Control2) mask() uint8 {
	return uint8(Control2SoftReset | Control2Rollover | Control2IntEnable)
}

func (Control2) writable() {}

// flags is implemented by the bitset register types.
type flags interface {
	~uint8
	register() byte
	mask() uint8
}

type writableFlags interface {
	flags
	writable()
}

// readFlags reads the register backing F; unknown bits are dropped.
func readFlags[F flags](ctx context.Context, r *registers) (F, error) {
	var f F
	raw, err := r.readByte(ctx, f.register())
	if err != nil {
		return 0, err
	}
	f = F(raw & f.mask())
	r.trace(ctx, Event{Kind: EventFlagsRead, Register: f.register(), Data: []byte{uint8(f)}})
	return f, nil
}

func writeFlags[F writableFlags](ctx context.Context, r *registers, f F) error {
	r.trace(ctx, Event{Kind: EventFlagsWrite, Register: f.register(), Data: []byte{uint8(f)}})
	return r.writeByte(ctx, f.register(), uint8(f))
}

type flagName struct {
	bit  uint8
	name string
}

func flagNames(val uint8, names []flagName) string {
	var set []string
	for _, n := range names {
		if val&n.bit != 0 {
			set = append(set, n.name)
		}
	}
	if len(set) == 0 {
		return "-"
	}
	return strings.Join(set, "|")
}
