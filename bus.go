package magnetometer

import (
	"context"
	"fmt"
)

var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")

// AddressableWriter sends a single write transaction to a 7-bit address.
type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
}

// AddressableWriteReader writes out and reads len(in) bytes back from the
// same address without releasing the bus in between (repeated start).
type AddressableWriteReader interface {
	WriteReadAddr(ctx context.Context, address byte, out []byte, in []byte) error
}

type I2CBus interface {
	AddressableWriter
	AddressableWriteReader
}

// Releaser is implemented by transports that can be forced to drop a stuck
// transfer (e.g. USB bridges).
type Releaser interface {
	Release(ctx context.Context) error
}
