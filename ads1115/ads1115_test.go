package ads1115

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

const addr = DefaultAddress

// Config word for single-ended AIN0, 4.096V range, 128SPS, single-shot.
var cfgW = []byte{regConfig, 0xC3, 0x83}

func probeOp() i2ctest.IO {
	// New() reads the config register to confirm the device responds.
	return i2ctest.IO{Addr: addr, W: []byte{regConfig}, R: []byte{0x85, 0x83}}
}

func conversionOps(raw uint16) []i2ctest.IO {
	return []i2ctest.IO{
		{Addr: addr, W: cfgW, R: nil},
		// Poll: OS bit set means the conversion finished.
		{Addr: addr, W: []byte{regConfig}, R: []byte{0xC3, 0x83}},
		{Addr: addr, W: []byte{regConversion}, R: []byte{byte(raw >> 8), byte(raw)}},
	}
}

func TestTriggerSingle(t *testing.T) {
	bus := &i2ctest.Playback{Ops: append([]i2ctest.IO{probeOp()}, conversionOps(0x1234)...)}
	d, err := New(bus, Opts{})
	require.NoError(t, err)

	raw, err := d.Trigger(1, true)
	assert.NoError(t, err)
	assert.Equal(t, uint16(0x1234), raw)
}

func TestTriggerAveragesOversamples(t *testing.T) {
	ops := []i2ctest.IO{probeOp()}
	ops = append(ops, conversionOps(100)...)
	ops = append(ops, conversionOps(200)...)
	bus := &i2ctest.Playback{Ops: ops}
	d, err := New(bus, Opts{})
	require.NoError(t, err)

	raw, err := d.Trigger(2, false)
	assert.NoError(t, err)
	assert.Equal(t, uint16(150), raw)
}

func TestTriggerClampsNegative(t *testing.T) {
	bus := &i2ctest.Playback{Ops: append([]i2ctest.IO{probeOp()}, conversionOps(0xFFF0)...)}
	d, err := New(bus, Opts{})
	require.NoError(t, err)

	raw, err := d.Trigger(1, false)
	assert.NoError(t, err)
	assert.Equal(t, uint16(0), raw)
}

func TestNewRejectsBadChannel(t *testing.T) {
	bus := &i2ctest.Playback{}
	_, err := New(bus, Opts{Channel: 4})
	assert.Error(t, err)
	_, err = New(bus, Opts{Channel: -1})
	assert.Error(t, err)
}

func TestCalibrationTracksFullScale(t *testing.T) {
	bus := &i2ctest.Playback{Ops: []i2ctest.IO{probeOp(), probeOp()}}

	d, err := New(bus, Opts{})
	require.NoError(t, err)
	cal := d.Calibration()
	assert.Equal(t, uint32(4096), cal.ReferenceMV)
	assert.Equal(t, uint8(15), cal.ResolutionBits)
	// Full-scale raw maps back to full-scale millivolts.
	assert.Equal(t, uint32(4095), cal.NodeMillivolts(0x7FF8))

	d, err = New(bus, Opts{FullScale: FS6144mV})
	require.NoError(t, err)
	assert.Equal(t, uint32(6144), d.Calibration().ReferenceMV)
}
