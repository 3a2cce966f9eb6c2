package compass

import (
	"errors"
	"fmt"
)

// Settings register (0x09) layout:
//
//	[7:6] OSR  over sample ratio
//	[5:4] RNG  full scale
//	[3:2] ODR  output data rate
//	[1]   reserved
//	[0]   MODE continuous measurement (standby when cleared)
const (
	osrShift = 6
	rngShift = 4
	odrShift = 2

	fieldMask      = 0b11
	modeContinuous = 0b0000_0001
)

var ErrInvalidEncoding = errors.New("invalid register encoding")

// EncodingError reports a register field code that does not map to any
// known value. It unwraps to ErrInvalidEncoding.
type EncodingError struct {
	Register byte
	Field    string
	Code     byte
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("register %#02x: undefined %s code %#02b", e.Register, e.Field, e.Code)
}

func (e *EncodingError) Unwrap() error {
	return ErrInvalidEncoding
}

type OutputDataRate byte

const (
	ODR10Hz OutputDataRate = iota
	ODR50Hz
	ODR100Hz
	ODR200Hz
)

var odrNames = []string{"10Hz", "50Hz", "100Hz", "200Hz"}

func (o OutputDataRate) Valid() bool {
	return int(o) < len(odrNames)
}

func (o OutputDataRate) String() string {
	if !o.Valid() {
		return fmt.Sprintf("OutputDataRate(%d)", byte(o))
	}
	return odrNames[o]
}

func (o OutputDataRate) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, &EncodingError{Register: regSettings, Field: "output data rate", Code: byte(o)}
	}
	return []byte(o.String()), nil
}

func (o *OutputDataRate) UnmarshalText(text []byte) error {
	i, err := lookup("output data rate", odrNames, string(text))
	if err != nil {
		return err
	}
	*o = OutputDataRate(i)
	return nil
}

type OverSampleRatio byte

const (
	OSR512 OverSampleRatio = iota
	OSR256
	OSR128
	OSR64
)

var osrNames = []string{"512", "256", "128", "64"}

func (o OverSampleRatio) Valid() bool {
	return int(o) < len(osrNames)
}

func (o OverSampleRatio) String() string {
	if !o.Valid() {
		return fmt.Sprintf("OverSampleRatio(%d)", byte(o))
	}
	return osrNames[o]
}

func (o OverSampleRatio) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, &EncodingError{Register: regSettings, Field: "over sample ratio", Code: byte(o)}
	}
	return []byte(o.String()), nil
}

func (o *OverSampleRatio) UnmarshalText(text []byte) error {
	i, err := lookup("over sample ratio", osrNames, string(text))
	if err != nil {
		return err
	}
	*o = OverSampleRatio(i)
	return nil
}

// FullScale only defines two of the four codes its 2-bit field can hold.
type FullScale byte

const (
	Range2G FullScale = iota
	Range8G
)

var rngNames = []string{"2G", "8G"}

func (f FullScale) Valid() bool {
	return int(f) < len(rngNames)
}

func (f FullScale) String() string {
	if !f.Valid() {
		return fmt.Sprintf("FullScale(%d)", byte(f))
	}
	return rngNames[f]
}

func (f FullScale) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, &EncodingError{Register: regSettings, Field: "full scale", Code: byte(f)}
	}
	return []byte(f.String()), nil
}

func (f *FullScale) UnmarshalText(text []byte) error {
	i, err := lookup("full scale", rngNames, string(text))
	if err != nil {
		return err
	}
	*f = FullScale(i)
	return nil
}

func lookup(field string, names []string, value string) (int, error) {
	for i, n := range names {
		if n == value {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q (expected one of %v)", field, value, names)
}

// Settings is the typed form of the settings register.
type Settings struct {
	ODR OutputDataRate  `yaml:"odr"`
	OSR OverSampleRatio `yaml:"osr"`
	RNG FullScale       `yaml:"range"`
}

// DefaultSettings returns the power-on configuration (all field codes zero).
func DefaultSettings() Settings {
	return Settings{ODR: ODR10Hz, OSR: OSR512, RNG: Range2G}
}

func (s Settings) Valid() bool {
	return s.ODR.Valid() && s.OSR.Valid() && s.RNG.Valid()
}

func (s Settings) String() string {
	return fmt.Sprintf("odr=%s osr=%s range=%s", s.ODR, s.OSR, s.RNG)
}

// EncodeSettings packs s into the settings register byte with the
// continuous measurement bit set. Codes wider than two bits are truncated.
func EncodeSettings(s Settings) byte {
	return (byte(s.OSR)&fieldMask)<<osrShift |
		(byte(s.RNG)&fieldMask)<<rngShift |
		(byte(s.ODR)&fieldMask)<<odrShift |
		modeContinuous
}

// DecodeSettings unpacks a settings register byte. The mode and reserved
// bits are ignored.
func DecodeSettings(val byte) (Settings, error) {
	s := Settings{
		OSR: OverSampleRatio((val >> osrShift) & fieldMask),
		RNG: FullScale((val >> rngShift) & fieldMask),
		ODR: OutputDataRate((val >> odrShift) & fieldMask),
	}
	if !s.RNG.Valid() {
		return Settings{}, &EncodingError{Register: regSettings, Field: "full scale", Code: byte(s.RNG)}
	}
	return s, nil
}
