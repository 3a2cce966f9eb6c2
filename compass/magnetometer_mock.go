package compass

import (
	"context"
)

// Magnetometer is the reading surface shared by QMC5883L and its mock.
type Magnetometer interface {
	IsReady(ctx context.Context) (bool, error)
	ReadAll(ctx context.Context) (x, y, z int16, err error)
	Temperature(ctx context.Context) (int16, error)
}

var _ Magnetometer = &QMC5883L{}
var _ Magnetometer = &MockMagnetometer{}

// FieldBehaviorFunc produces one field sample.
type FieldBehaviorFunc func(ctx context.Context) (x, y, z int16, err error)

// MockMagnetometer is a mock implementation of a magnetometer that uses a
// behavior function to produce results without requiring any hardware.
//
// Example usage:
//
//	sensor := NewMockMagnetometer(func(ctx context.Context) (int16, int16, int16, error) {
//		return 1200, -340, 5000, nil
//	})
type MockMagnetometer struct {
	behavior FieldBehaviorFunc
	// Temp is returned by Temperature.
	Temp int16
}

func NewMockMagnetometer(behavior FieldBehaviorFunc) *MockMagnetometer {
	return &MockMagnetometer{behavior: behavior}
}

// IsReady always reports fresh data.
func (m *MockMagnetometer) IsReady(ctx context.Context) (bool, error) {
	return true, nil
}

func (m *MockMagnetometer) ReadAll(ctx context.Context) (int16, int16, int16, error) {
	return m.behavior(ctx)
}

func (m *MockMagnetometer) Temperature(ctx context.Context) (int16, error) {
	return m.Temp, nil
}
