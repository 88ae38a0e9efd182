package pwm

import (
	"errors"

	"github.com/tinwheel/hotend/pkg/config"
)

// ErrFrequencyNotSet is returned by SetDuty before a frequency has been
// programmed; duty math depends on the top value SetFrequency computes.
var ErrFrequencyNotSet = errors.New("pwm: frequency not set")

// ErrBadFrequency is returned for a zero or negative frequency.
var ErrBadFrequency = errors.New("pwm: frequency must be positive")

// Driver programs the output hardware. Top sets the counter wrap value
// (the PWM period); Compare sets the switch-over point within it. The
// driver owns any output polarity concerns.
type Driver interface {
	SetTop(top uint16) error
	SetCompare(compare uint16) error
}

// Actuator converts frequency and duty requests into top/compare values for
// a Driver. It keeps the last computed top so duty requests can be resolved
// against the current period.
type Actuator struct {
	cfg config.PWMConfig
	drv Driver
	top uint16 // last programmed top value; 0 until SetFrequency succeeds
}

// New creates an actuator on top of the given driver.
func New(cfg config.PWMConfig, drv Driver) *Actuator {
	return &Actuator{cfg: cfg, drv: drv}
}

// SetFrequency computes the counter top value for the requested frequency
// from the timer clock and prescale, clamps it into [MinRes, MaxRes] and
// programs the driver. The clamped top is kept for later duty calculations.
func (a *Actuator) SetFrequency(hz float32) error {
	if hz <= 0 {
		return ErrBadFrequency
	}

	top := float32(a.cfg.ClockHz) / float32(a.cfg.Prescale) / hz
	switch {
	case top < float32(a.cfg.MinRes):
		a.top = a.cfg.MinRes
	case top >= float32(a.cfg.MaxRes):
		a.top = a.cfg.MaxRes
	default:
		a.top = uint16(top)
	}
	return a.drv.SetTop(a.top)
}

// SetDuty programs the duty cycle as a percentage of the current period.
// A percentage at or below 0 forces the output fully off, above 100 fully
// on. SetFrequency must have been called first.
func (a *Actuator) SetDuty(percent float32) error {
	if a.top == 0 {
		return ErrFrequencyNotSet
	}

	var compare uint16
	switch {
	case percent <= 0:
		compare = 0
	case percent > 100:
		compare = a.top
	default:
		compare = uint16(float32(a.top) * percent / 100)
	}
	return a.drv.SetCompare(compare)
}

// Top returns the last programmed top value, 0 if none.
func (a *Actuator) Top() uint16 { return a.top }
