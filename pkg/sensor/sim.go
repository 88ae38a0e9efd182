package sensor

import (
	"math/rand"

	"github.com/tinwheel/hotend/pkg/config"
)

// Sim is a Source backed by a first-order thermal model, for running the
// control loop without hardware. Each ReadSample advances the model by one
// 10 ms sample interval: the plant heats in proportion to the commanded PWM
// duty and loses heat toward ambient.
type Sim struct {
	cfg  config.SimConfig
	duty func() float32 // commanded duty in percent

	temperature float32
}

var _ Source = (*Sim)(nil)

// NewSim creates a simulated plant at ambient temperature. duty reports the
// currently commanded duty cycle in percent.
func NewSim(cfg config.SimConfig, duty func() float32) *Sim {
	return &Sim{
		cfg:         cfg,
		duty:        duty,
		temperature: cfg.Ambient,
	}
}

// ReadSample advances the plant model and returns the new temperature with
// a little sample noise on top.
func (m *Sim) ReadSample(_ int) (float32, error) {
	const dt = 0.01 // 10 ms sample interval

	duty := m.duty() / 100
	if duty < 0 {
		duty = 0
	} else if duty > 1 {
		duty = 1
	}

	m.temperature += m.cfg.HeatingRate * duty * dt
	m.temperature -= m.cfg.CoolingRate * (m.temperature - m.cfg.Ambient) * dt

	noise := (rand.Float32()*2 - 1) * m.cfg.NoiseLevel
	return m.temperature + noise, nil
}

// Temperature returns the plant temperature without noise.
func (m *Sim) Temperature() float32 { return m.temperature }
