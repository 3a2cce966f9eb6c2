package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/magnetometer/cmd/magnetometer/console"
	"github.com/mklimuk/magnetometer/compass"
	"github.com/mklimuk/magnetometer/config"
	"github.com/mklimuk/magnetometer/sim"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var out, errOut bytes.Buffer
	console.SetOutput(&out, &errOut)
	t.Cleanup(func() { console.SetOutput(os.Stdout, os.Stderr) })
	return &out
}

func TestParseAxis(t *testing.T) {
	for in, exp := range map[string]compass.Axis{"x": compass.AxisX, "Y": compass.AxisY, "z": compass.AxisZ} {
		axis, err := parseAxis(in)
		require.NoError(t, err)
		assert.Equal(t, exp, axis)
	}
	_, err := parseAxis("w")
	assert.Error(t, err)
}

func TestWatchStopsAfterCount(t *testing.T) {
	var calls int16
	m := compass.NewMockMagnetometer(func(ctx context.Context) (int16, int16, int16, error) {
		calls++
		return calls, -calls, 100, nil
	})
	m.Temp = 42

	var got []Reading
	err := watch(context.Background(), m, time.Millisecond, 3, func(r Reading) error {
		got = append(got, r)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []Reading{
		{X: 1, Y: -1, Z: 100, Temp: 42},
		{X: 2, Y: -2, Z: 100, Temp: 42},
		{X: 3, Y: -3, Z: 100, Temp: 42},
	}, got)
}

func TestWatchEndsOnCancel(t *testing.T) {
	m := compass.NewMockMagnetometer(func(ctx context.Context) (int16, int16, int16, error) {
		return 0, 0, 0, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	n := 0
	err := watch(ctx, m, time.Millisecond, 0, func(r Reading) error {
		n++
		if n == 2 {
			cancel()
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestWatchPropagatesReadError(t *testing.T) {
	boom := errors.New("bus fault")
	m := compass.NewMockMagnetometer(func(ctx context.Context) (int16, int16, int16, error) {
		return 0, 0, 0, boom
	})
	err := watch(context.Background(), m, time.Millisecond, 0, func(r Reading) error {
		t.Fatal("emit must not be called")
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestPrintReadingYAML(t *testing.T) {
	out := captureOutput(t)
	require.NoError(t, printReading(true, Reading{X: 1, Y: -2, Z: 3, Temp: 4}))
	var r Reading
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &r))
	assert.Equal(t, Reading{X: 1, Y: -2, Z: 3, Temp: 4}, r)
}

// resetSimDevices drops the simulated sensors kept between invocations.
func resetSimDevices(t *testing.T) {
	t.Helper()
	simMx.Lock()
	defer simMx.Unlock()
	simDevices = map[byte]*sim.Device{}
}

func TestRunReadOnSimulator(t *testing.T) {
	t.Setenv("MAGNETOMETER_CONFIG", "")
	resetSimDevices(t)
	out := captureOutput(t)
	code := run([]string{"magnetometer", "--adapter", "sim", "read", "--yaml"})
	require.Equal(t, 0, code)
	var r Reading
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &r))
	assert.Equal(t, Reading{X: 2988, Y: 261, Z: -1200, Temp: 2500}, r)
}

func TestRunUnknownAdapter(t *testing.T) {
	t.Setenv("MAGNETOMETER_CONFIG", "")
	captureOutput(t)
	exiter := cli.OsExiter
	cli.OsExiter = func(int) {}
	t.Cleanup(func() { cli.OsExiter = exiter })
	code := run([]string{"magnetometer", "--adapter", "serial", "temp"})
	assert.Equal(t, 1, code)
}

func TestDumpRegisters(t *testing.T) {
	dev := newSimBus(0x0D)
	dev.SetRegister(0x09, 0x1D)
	dev.SetRegister(0x0B, 0x01)
	regs, err := dumpRegisters(context.Background(), dev, 0x0D)
	require.NoError(t, err)
	require.Len(t, regs, dumpSize)
	assert.Equal(t, byte(0x1D), regs[0x09])
	assert.Equal(t, byte(0x01), regs[0x0B])

	_, err = dumpRegisters(context.Background(), dev, 0x1E)
	assert.ErrorIs(t, err, sim.ErrNoDevice)
}

type busyBus struct {
	*sim.Device
	released int
}

func (b *busyBus) Release(ctx context.Context) error {
	b.released++
	return nil
}

func TestReleaseBusOnlyForReleasers(t *testing.T) {
	captureOutput(t)
	b := &busyBus{Device: sim.New()}
	releaseBus(context.Background(), b)
	assert.Equal(t, 1, b.released)
	// plain transports are left alone
	releaseBus(context.Background(), sim.New())
}

func TestRunConfigPrintsOverrides(t *testing.T) {
	t.Setenv("MAGNETOMETER_CONFIG", "")
	out := captureOutput(t)
	code := run([]string{"magnetometer", "--adapter", "sim", "--bus", "3", "config"})
	require.Equal(t, 0, code)
	assert.Contains(t, out.String(), "adapter: sim")
	assert.Contains(t, out.String(), "bus: 3")
}

func TestRunVerboseFlag(t *testing.T) {
	t.Setenv("MAGNETOMETER_CONFIG", "")
	resetSimDevices(t)
	captureOutput(t)
	assert.Equal(t, 0, run([]string{"magnetometer", "--verbose", "--adapter", "sim", "temp"}))
	assert.Equal(t, 0, run([]string{"magnetometer", "--adapter", "sim", "temp"}))
}

func TestRunInspectCommandsSeeEarlierState(t *testing.T) {
	t.Setenv("MAGNETOMETER_CONFIG", "")
	resetSimDevices(t)

	captureOutput(t)
	require.Equal(t, 0, run([]string{"magnetometer", "--adapter", "sim", "settings", "set", "--odr", "200Hz", "--range", "8G"}))
	require.Equal(t, 0, run([]string{"magnetometer", "--adapter", "sim", "period", "set", "1"}))
	require.Equal(t, 0, run([]string{"magnetometer", "--adapter", "sim", "standby"}))

	out := captureOutput(t)
	require.Equal(t, 0, run([]string{"magnetometer", "--adapter", "sim", "sync"}))
	assert.Contains(t, out.String(), "standby")
	assert.NotContains(t, out.String(), "continuous")

	out = captureOutput(t)
	require.Equal(t, 0, run([]string{"magnetometer", "--adapter", "sim", "settings", "get"}))
	var set compass.Settings
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &set))
	assert.Equal(t, compass.Settings{ODR: compass.ODR200Hz, OSR: compass.OSR512, RNG: compass.Range8G}, set)

	out = captureOutput(t)
	require.Equal(t, 0, run([]string{"magnetometer", "--adapter", "sim", "period", "get"}))
	assert.Contains(t, out.String(), "1")

	dev := simBus(compass.DefaultAddress)
	assert.True(t, dev.Standby())
	assert.Equal(t, byte(0x01), dev.Register(0x0B))
}

func TestAppVersionFromBuildMetadata(t *testing.T) {
	assert.Equal(t, config.BuildVersion(), newApp().Version)
}
