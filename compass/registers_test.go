package compass

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/magnetometer/sim"
)

func TestDecodeAxes(t *testing.T) {
	tests := []struct {
		given             []byte
		expX, expY, expZ int16
	}{
		{[]byte{0x34, 0x12, 0x00, 0x00, 0xFF, 0x7F}, 0x1234, 0, 0x7FFF},
		{[]byte{0xFF, 0xFF, 0x00, 0x80, 0x01, 0x00}, -1, -32768, 1},
	}
	for _, test := range tests {
		t.Run(hex.EncodeToString(test.given), func(t *testing.T) {
			x, y, z := decodeAxes(test.given)
			assert.Equal(t, test.expX, x)
			assert.Equal(t, test.expY, y)
			assert.Equal(t, test.expZ, z)
		})
	}
}

func TestRegisters_ReadAllAxesSingleTransaction(t *testing.T) {
	bus := new(MockI2CBus)
	bus.On("WriteReadAddr", mock.Anything, byte(DefaultAddress), []byte{regDataX},
		mock.MatchedBy(func(in []byte) bool { return len(in) == 6 })).
		Return([]byte{0x34, 0x12, 0x00, 0x00, 0xFF, 0x7F}, nil).Once()

	r := &registers{transport: bus, address: DefaultAddress}
	x, y, z, err := r.readAllAxes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int16{0x1234, 0, 0x7FFF}, []int16{x, y, z})
	bus.AssertExpectations(t)
	bus.AssertNumberOfCalls(t, "WriteReadAddr", 1)
}

func TestRegisters_AccessHook(t *testing.T) {
	dev := sim.New()
	calls := 0
	r := &registers{transport: dev, address: DefaultAddress, access: func() { calls++ }}
	ctx := context.Background()

	_, err := r.readByte(ctx, regStatus)
	require.NoError(t, err)
	require.NoError(t, r.writeByte(ctx, regSetResetPeriod, 0x01))
	_, err = r.readBurst(ctx, regDataX, 6)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRegisters_Period(t *testing.T) {
	dev := sim.New()
	r := &registers{transport: dev, address: DefaultAddress}
	ctx := context.Background()

	require.NoError(t, r.writePeriod(ctx, -2))
	assert.Equal(t, byte(0xFE), dev.Register(regSetResetPeriod))
	p, err := r.readPeriod(ctx)
	require.NoError(t, err)
	assert.Equal(t, int8(-2), p)
}
