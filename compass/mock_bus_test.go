package compass

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockI2CBus is a mock implementation of magnetometer.I2CBus using testify/mock
type MockI2CBus struct {
	mock.Mock
}

func (m *MockI2CBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	return args.Error(0)
}

func (m *MockI2CBus) WriteReadAddr(ctx context.Context, address byte, out []byte, in []byte) error {
	args := m.Called(ctx, address, out, in)
	if data, ok := args.Get(0).([]byte); ok && len(data) <= len(in) {
		copy(in, data)
	}
	return args.Error(1)
}

// writes returns the buffers passed to WriteToAddr, in call order.
func (m *MockI2CBus) writes() [][]byte {
	var res [][]byte
	for _, c := range m.Calls {
		if c.Method == "WriteToAddr" {
			res = append(res, c.Arguments.Get(2).([]byte))
		}
	}
	return res
}

func (m *MockI2CBus) expectWrite(data ...byte) *mock.Call {
	return m.On("WriteToAddr", mock.Anything, byte(DefaultAddress), data).Return(nil)
}

func (m *MockI2CBus) expectRead(reg byte, resp []byte) *mock.Call {
	return m.On("WriteReadAddr", mock.Anything, byte(DefaultAddress), []byte{reg}, mock.Anything).Return(resp, nil)
}
