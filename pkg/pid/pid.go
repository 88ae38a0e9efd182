package pid

import (
	"github.com/chewxy/math32"

	"github.com/tinwheel/hotend/pkg/config"
)

// Dt is the fixed controller step in seconds. The heater runs the controller
// from its 100 ms tick, and the integral and derivative terms are only valid
// at that cadence.
const Dt float32 = 0.1

// Controller is a fixed-step PID controller with output saturation and
// anti-windup. Its only state is the error history, which persists across
// calls until Reset.
type Controller struct {
	kp, ki, kd float32
	min, max   float32
	epsilon    float32

	err        float32
	prevErr    float32
	integral   float32
	derivative float32
	output     float32
}

// New creates a controller with the given gains and output bounds.
func New(cfg config.PIDConfig) *Controller {
	return &Controller{
		kp:      cfg.Kp,
		ki:      cfg.Ki,
		kd:      cfg.Kd,
		min:     cfg.Min,
		max:     cfg.Max,
		epsilon: cfg.Epsilon,
	}
}

// Compute advances the controller one step and returns the bounded output.
// Integration is skipped while |error| <= epsilon so the integral term cannot
// wind up once the measurement sits on the set point.
func (c *Controller) Compute(setpoint, measured float32) float32 {
	c.err = setpoint - measured

	if math32.Abs(c.err) > c.epsilon {
		c.integral += c.err * Dt
	}
	c.derivative = (c.err - c.prevErr) / Dt
	c.output = c.kp*c.err + c.ki*c.integral + c.kd*c.derivative

	// Saturation filter
	if c.output > c.max {
		c.output = c.max
	} else if c.output < c.min {
		c.output = c.min
	}

	c.prevErr = c.err
	return c.output
}

// Reset clears the error history. This is the only way the history is ever
// cleared; Compute never resets it implicitly.
func (c *Controller) Reset() {
	c.err = 0
	c.prevErr = 0
	c.integral = 0
	c.derivative = 0
	c.output = 0
}

// Output returns the last computed output.
func (c *Controller) Output() float32 { return c.output }

// Integral returns the current integral accumulator.
func (c *Controller) Integral() float32 { return c.integral }

// MaxOutput returns the output saturation upper bound.
func (c *Controller) MaxOutput() float32 { return c.max }

// Gains returns the configured Kp, Ki and Kd.
func (c *Controller) Gains() (kp, ki, kd float32) { return c.kp, c.ki, c.kd }
