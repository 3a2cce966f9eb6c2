package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevice_PointerIncrementsWithoutRollover(t *testing.T) {
	dev := New()
	dev.SetRegister(regSettings, modeContinuous)
	require.True(t, dev.Measure(Sample{X: 0x0201, Temp: 0x0807}))

	// past the status register the pointer runs on into the temperature
	buf := make([]byte, 8)
	require.NoError(t, dev.WriteReadAddr(context.Background(), DefaultAddress, []byte{regData}, buf))
	assert.Equal(t, []byte{0x01, 0x02, 0x00, 0x00, 0x00, 0x00, statusDRDY, 0x07}, buf)

	// and wraps at the end of the register file
	dev.SetRegister(0x0F, 0xAA)
	buf = make([]byte, 2)
	require.NoError(t, dev.WriteReadAddr(context.Background(), DefaultAddress, []byte{0x0F}, buf))
	assert.Equal(t, []byte{0xAA, 0x01}, buf)
}

func TestDevice_RolloverWrapsDataBlock(t *testing.T) {
	dev := New()
	ctx := context.Background()
	require.NoError(t, dev.WriteToAddr(ctx, DefaultAddress, []byte{regSettings, modeContinuous}))
	require.NoError(t, dev.WriteToAddr(ctx, DefaultAddress, []byte{regControl2, ctrlRollover}))
	require.True(t, dev.Measure(Sample{X: 0x0201, Y: 0x0403, Z: 0x0605}))

	buf := make([]byte, 8)
	require.NoError(t, dev.WriteReadAddr(ctx, DefaultAddress, []byte{regData}, buf))
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, statusDRDY, 0x01}, buf)
	assert.Equal(t, byte(0), dev.Register(regStatus)&statusDRDY)
}

func TestDevice_SoftReset(t *testing.T) {
	dev := New()
	ctx := context.Background()
	require.NoError(t, dev.WriteToAddr(ctx, DefaultAddress, []byte{regSettings, 0x55}))
	require.NoError(t, dev.WriteToAddr(ctx, DefaultAddress, []byte{regControl2, ctrlRollover | 0x01}))
	assert.Equal(t, byte(0x41), dev.Register(regControl2))

	require.NoError(t, dev.WriteToAddr(ctx, DefaultAddress, []byte{regControl2, ctrlSoftReset}))
	assert.Equal(t, byte(0), dev.Register(regSettings))
	assert.Equal(t, byte(0), dev.Register(regControl2))
	assert.True(t, dev.Standby())
	assert.Len(t, dev.Writes(), 3)
}

func TestDevice_DataSkip(t *testing.T) {
	dev := New()
	dev.SetRegister(regSettings, modeContinuous)
	require.True(t, dev.Measure(Sample{}))
	require.True(t, dev.Measure(Sample{Y: -32768}))
	assert.Equal(t, byte(statusDRDY|statusDOR|statusOVL), dev.Register(regStatus))

	dev.SetRegister(regSettings, 0)
	assert.False(t, dev.Measure(Sample{}))
}

func TestDevice_Source(t *testing.T) {
	dev := New()
	dev.SetRegister(regSettings, modeContinuous)
	n := int16(0)
	dev.Source = func() Sample {
		n++
		return Sample{X: n}
	}
	buf := make([]byte, 1)
	ctx := context.Background()
	require.NoError(t, dev.WriteReadAddr(ctx, DefaultAddress, []byte{regStatus}, buf))
	assert.Equal(t, byte(statusDRDY), buf[0])
	assert.Equal(t, byte(1), dev.Register(regData))
}

func TestDevice_Errors(t *testing.T) {
	dev := New()
	ctx := context.Background()

	err := dev.WriteToAddr(ctx, 0x1E, []byte{0x00})
	assert.True(t, errors.Is(err, ErrNoDevice))

	boom := errors.New("boom")
	dev.FailAfter(1, boom)
	assert.NoError(t, dev.WriteToAddr(ctx, DefaultAddress, []byte{regSettings, 0x01}))
	assert.ErrorIs(t, dev.WriteReadAddr(ctx, DefaultAddress, []byte{regSettings}, make([]byte, 1)), boom)
	assert.NoError(t, dev.WriteToAddr(ctx, DefaultAddress, []byte{regSettings, 0x01}))
}
