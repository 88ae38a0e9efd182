package regmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinwheel/hotend/pkg/config"
	"github.com/tinwheel/hotend/pkg/heater"
	"github.com/tinwheel/hotend/pkg/pid"
	"github.com/tinwheel/hotend/pkg/pwm"
	"github.com/tinwheel/hotend/pkg/sensor"
)

// steadySource always reads the same temperature.
type steadySource struct{ temp float32 }

func (s *steadySource) ReadSample(_ int) (float32, error) { return s.temp, nil }

func newTestMap(t *testing.T, temp float32) (*Map, *heater.Controller, *sensor.Sensor) {
	t.Helper()
	cfg := config.Default()
	cfg.Heater.Setpoint = 200

	sns := sensor.New(cfg.Sensor, &steadySource{temp: temp})
	p := pid.New(cfg.PID)

	rec := pwm.NewRecorder()
	act := pwm.New(cfg.PWM, rec)
	require.NoError(t, act.SetFrequency(cfg.PWM.FrequencyHz))

	h := heater.New(cfg.Heater, sns, p, act)
	return New(h, sns, p), h, sns
}

func TestReadWrite_Bounds(t *testing.T) {
	m, _, _ := newTestMap(t, 25)

	_, err := m.Read(Size)
	assert.ErrorIs(t, err, ErrInvalidAddress)
	assert.ErrorIs(t, m.Write(Size, 0), ErrInvalidAddress)
	assert.ErrorIs(t, m.Write(0xff, 0), ErrInvalidAddress)

	_, err = m.Read(Size - 1)
	assert.NoError(t, err)
}

func TestPublish_MirrorsState(t *testing.T) {
	m, h, sns := newTestMap(t, 25)

	// Run one full sensor period so a validated reading exists.
	sns.StartReading()
	for i := 0; i < 8; i++ {
		sns.Callback()
	}
	require.Equal(t, sensor.HasData, sns.State())
	require.NoError(t, h.TurnOn())
	m.Publish()

	b, err := m.Read(AddrHeaterState)
	require.NoError(t, err)
	assert.Equal(t, byte(heater.On), b)

	b, err = m.Read(AddrSensorState)
	require.NoError(t, err)
	assert.Equal(t, byte(sensor.HasData), b)

	hi, _ := m.Read(AddrTempHi)
	lo, _ := m.Read(AddrTempLo)
	assert.Equal(t, 250, int(int16(uint16(hi)<<8|uint16(lo))), "25.0 C as x10 fixed point")

	hi, _ = m.Read(AddrSetpointHi)
	lo, _ = m.Read(AddrSetpointLo)
	assert.Equal(t, 2000, int(int16(uint16(hi)<<8|uint16(lo))))
}

func TestPublish_Gains(t *testing.T) {
	m, _, _ := newTestMap(t, 25)

	hi, _ := m.Read(AddrKpHi)
	lo, _ := m.Read(AddrKpLo)
	assert.Equal(t, uint16(500), uint16(hi)<<8|uint16(lo), "Kp=5.0 as x100 fixed point")

	hi, _ = m.Read(AddrKiHi)
	lo, _ = m.Read(AddrKiLo)
	assert.Equal(t, uint16(10), uint16(hi)<<8|uint16(lo))
}

func TestApply_SetpointWrite(t *testing.T) {
	m, h, _ := newTestMap(t, 25)

	// Host writes 215.5 C as x10 fixed point (2155 = 0x086B).
	require.NoError(t, m.Write(AddrSetpointHi, 0x08))
	require.NoError(t, m.Write(AddrSetpointLo, 0x6B))
	m.Apply()

	assert.InDelta(t, 215.5, h.Setpoint(), 0.001)
}

func TestApply_RoundTripsThroughPublish(t *testing.T) {
	m, h, _ := newTestMap(t, 25)

	// With no host write, the Apply/Publish cycle must not disturb the
	// set point.
	for i := 0; i < 3; i++ {
		m.Apply()
		m.Publish()
	}
	assert.Equal(t, float32(200), h.Setpoint())
}

func TestWrite_NonSetpointIsOverwrittenByPublish(t *testing.T) {
	m, _, _ := newTestMap(t, 25)

	require.NoError(t, m.Write(AddrHeaterState, 0x7f))
	m.Apply()
	m.Publish()

	b, err := m.Read(AddrHeaterState)
	require.NoError(t, err)
	assert.Equal(t, byte(heater.Off), b, "derived registers are not host-writable")
}

func TestTempEncoding_Negative(t *testing.T) {
	assert.Equal(t, float32(-10), decodeTemp(encodeTemp(-10)))
	assert.Equal(t, float32(150.5), decodeTemp(encodeTemp(150.5)))
}

func TestGainEncoding_Saturates(t *testing.T) {
	// A negative gain must read back as zero, not wrap to a huge value.
	assert.Equal(t, uint16(0), encodeGain(-0.4))
	assert.Equal(t, uint16(0), encodeGain(0))
	assert.Equal(t, uint16(500), encodeGain(5))
	assert.Equal(t, uint16(65535), encodeGain(700))
}
