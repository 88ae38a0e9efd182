// Package regmap exposes controller state to the host as a flat
// byte-addressable register image. The host bus delivers single read/write
// requests already decoded to this local address space; everything wider
// than a byte is fixed-point, split across hi/lo registers.
package regmap

import (
	"errors"

	"github.com/tinwheel/hotend/pkg/heater"
	"github.com/tinwheel/hotend/pkg/pid"
	"github.com/tinwheel/hotend/pkg/sensor"
)

// ErrInvalidAddress is returned for reads and writes outside the register
// image. State is left unchanged.
var ErrInvalidAddress = errors.New("regmap: invalid address")

// Register addresses. Temperatures are degrees C x10 in a signed 16-bit
// value; gains are x100 unsigned.
const (
	AddrHeaterState uint8 = iota
	AddrHeaterCode
	AddrSetpointHi
	AddrSetpointLo
	AddrSensorState
	AddrSensorCode
	AddrTempHi
	AddrTempLo
	AddrKpHi
	AddrKpLo
	AddrKiHi
	AddrKiLo
	AddrKdHi
	AddrKdLo

	// Size is the addressable image size in bytes.
	Size
)

// Map is the register image plus the components it mirrors. Publish copies
// component state into the image; Apply pushes the host-written set point
// back out. Both run from the 100 ms tick, so host reads always see a
// consistent snapshot at most one heater tick old.
type Map struct {
	heater *heater.Controller
	sensor *sensor.Sensor
	pid    *pid.Controller

	image [Size]byte
}

// New creates a register map and publishes the initial snapshot.
func New(h *heater.Controller, s *sensor.Sensor, p *pid.Controller) *Map {
	m := &Map{heater: h, sensor: s, pid: p}
	m.Publish()
	return m
}

// Read returns the byte at addr.
func (m *Map) Read(addr uint8) (byte, error) {
	if addr >= Size {
		return 0, ErrInvalidAddress
	}
	return m.image[addr], nil
}

// Write stores a byte at addr. Only the set point registers feed back into
// the controller (on the next Apply); everything else is overwritten by the
// next Publish.
func (m *Map) Write(addr uint8, data byte) error {
	if addr >= Size {
		return ErrInvalidAddress
	}
	m.image[addr] = data
	return nil
}

// Publish snapshots heater, sensor and PID state into the image.
func (m *Map) Publish() {
	m.image[AddrHeaterState] = byte(m.heater.State())
	m.image[AddrHeaterCode] = byte(m.heater.Code())
	m.put16(AddrSetpointHi, encodeTemp(m.heater.Setpoint()))

	m.image[AddrSensorState] = byte(m.sensor.State())
	m.image[AddrSensorCode] = byte(m.sensor.Code())
	if t, ok := m.sensor.Temperature(); ok {
		// Without a validated reading the last published value stands;
		// the sensor state register says whether to trust it.
		m.put16(AddrTempHi, encodeTemp(t))
	}

	kp, ki, kd := m.pid.Gains()
	m.put16(AddrKpHi, encodeGain(kp))
	m.put16(AddrKiHi, encodeGain(ki))
	m.put16(AddrKdHi, encodeGain(kd))
}

// Apply pushes the host-written set point to the heater.
func (m *Map) Apply() {
	m.heater.SetSetpoint(decodeTemp(m.get16(AddrSetpointHi)))
}

func (m *Map) put16(hi uint8, v uint16) {
	m.image[hi] = byte(v >> 8)
	m.image[hi+1] = byte(v)
}

func (m *Map) get16(hi uint8) uint16 {
	return uint16(m.image[hi])<<8 | uint16(m.image[hi+1])
}

// encodeTemp converts degrees C to the x10 fixed-point register value.
func encodeTemp(t float32) uint16 {
	return uint16(int16(t * 10))
}

// decodeTemp converts the x10 fixed-point register value to degrees C.
func decodeTemp(v uint16) float32 {
	return float32(int16(v)) / 10
}

// encodeGain converts a PID gain to the x100 fixed-point register value,
// saturating at the register range so out-of-range gains never wrap.
func encodeGain(g float32) uint16 {
	v := g * 100
	if v <= 0 {
		return 0
	}
	if v >= 65535 {
		return 65535
	}
	return uint16(v)
}
