package heater

import (
	"errors"

	"github.com/chewxy/math32"

	"github.com/tinwheel/hotend/pkg/config"
	"github.com/tinwheel/hotend/pkg/pid"
)

// TickSeconds is the heater cadence: Callback runs on the 100 ms tick, and
// the regulation timer advances in these steps.
const TickSeconds float32 = 0.1

// ErrNotInitialized is returned by TurnOn and TurnOff on an uninitialized
// heater.
var ErrNotInitialized = errors.New("heater: not initialized")

// State is the heater supervision state.
type State uint8

const (
	Uninit State = iota
	Off
	On
	Heating
	AtTemperature
	Cooling
	Shutdown
)

func (s State) String() string {
	switch s {
	case Uninit:
		return "uninit"
	case Off:
		return "off"
	case On:
		return "on"
	case Heating:
		return "heating"
	case AtTemperature:
		return "at-temperature"
	case Cooling:
		return "cooling"
	case Shutdown:
		return "shutdown"
	}
	return "unknown"
}

// Code carries diagnostic detail for a latched shutdown.
type Code uint8

const (
	OK Code = iota
	AmbientTimedOut
	RegulationTimedOut
	Overheated
	SensorFailed
)

func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case AmbientTimedOut:
		return "ambient-timed-out"
	case RegulationTimedOut:
		return "regulation-timed-out"
	case Overheated:
		return "overheated"
	case SensorFailed:
		return "sensor-failed"
	}
	return "unknown"
}

// TemperatureSource is the slice of the sensor the heater drives: start a
// fresh reading, poll the validated temperature, and learn about terminal
// failure. *sensor.Sensor satisfies it.
type TemperatureSource interface {
	StartReading()
	Temperature() (float32, bool)
	Failed() bool
}

// Output actuates heater power as a duty percentage. *pwm.Actuator
// satisfies it.
type Output interface {
	SetDuty(percent float32) error
}

// Controller supervises one heating session across the 100 ms cadence: it
// paces the sensor, closes the loop through the PID controller onto the PWM
// output, and latches Shutdown on ambient timeout, regulation timeout,
// overheat or sensor failure. A latched shutdown is cleared only by TurnOn,
// which re-initializes the session.
type Controller struct {
	cfg config.HeaterConfig

	state           State
	code            Code
	temperature     float32
	setpoint        float32
	regulationTimer float32 // seconds spent in Heating this session
	blindTimer      float32 // consecutive seconds without a validated reading

	sensor TemperatureSource
	pid    *pid.Controller
	out    Output
}

// New creates a heater controller in the Off state.
func New(cfg config.HeaterConfig, src TemperatureSource, p *pid.Controller, out Output) *Controller {
	h := &Controller{
		sensor: src,
		pid:    p,
		out:    out,
	}
	h.init(cfg)
	return h
}

// init resets the session: timers, codes and PID history.
func (h *Controller) init(cfg config.HeaterConfig) {
	h.cfg = cfg
	h.setpoint = cfg.Setpoint
	h.regulationTimer = 0
	h.blindTimer = 0
	h.temperature = 0
	h.code = OK
	h.pid.Reset()
	h.state = Off
}

// State returns the current supervision state.
func (h *Controller) State() State { return h.state }

// Code returns the latched diagnostic code.
func (h *Controller) Code() Code { return h.code }

// Temperature returns the temperature mirrored from the sensor.
func (h *Controller) Temperature() float32 { return h.temperature }

// Setpoint returns the regulation target.
func (h *Controller) Setpoint() float32 { return h.setpoint }

// SetSetpoint sets the regulation target. This is the one knob the host
// writes through the register interface.
func (h *Controller) SetSetpoint(t float32) { h.setpoint = t }

// RegulationTimer returns seconds spent heating this session.
func (h *Controller) RegulationTimer() float32 { return h.regulationTimer }

// TurnOn starts a heating session. From Shutdown it re-initializes first,
// clearing the latched code and timers; from Off or Cooling it goes
// straight to On. Turning on an already-running heater is a no-op.
func (h *Controller) TurnOn() error {
	switch h.state {
	case Uninit:
		return ErrNotInitialized
	case Shutdown:
		setpoint := h.setpoint // survives re-initialization
		h.init(h.cfg)
		h.setpoint = setpoint
		h.state = On
	case Off, Cooling:
		h.pid.Reset() // new session, fresh error history
		h.state = On
	}
	return nil
}

// TurnOff ends the session and removes power. While the tool is still above
// ambient the heater coasts through Cooling; otherwise it goes straight to
// Off.
func (h *Controller) TurnOff() error {
	switch h.state {
	case Uninit:
		return ErrNotInitialized
	case On, Heating, AtTemperature:
		if h.temperature > h.cfg.AmbientTemperature {
			h.state = Cooling
		} else {
			h.state = Off
		}
		h.setDuty(0)
	}
	return nil
}

// Callback runs once per 100 ms tick.
func (h *Controller) Callback() {
	if h.state == Uninit || h.state == Off || h.state == Shutdown {
		return
	}

	// Start the next reading and work with the last validated one.
	h.sensor.StartReading()
	t, ok := h.sensor.Temperature()
	if !ok {
		if h.sensor.Failed() {
			// The sensor latched its own shutdown; a blind heater
			// must not stay powered.
			h.shutdown(SensorFailed)
			return
		}
		// No validated reading this tick. Power stays off while the
		// loop is blind, and a reading that never arrives latches the
		// same shutdown as a failed sensor.
		h.setDuty(0)
		h.blindTimer += TickSeconds
		if h.blindTimer > h.cfg.SensorTimeout {
			h.shutdown(SensorFailed)
		}
		return
	}
	h.blindTimer = 0
	h.temperature = t

	if t >= h.cfg.OverheatTemperature {
		h.shutdown(Overheated)
		return
	}

	switch h.state {
	case Cooling:
		// Nothing to actuate while cooling; drop to Off once the tool
		// reaches ambient.
		if t < h.cfg.AmbientTemperature {
			h.state = Off
		}
		return

	case On:
		// One-tick transition so timeout checks never fire on the
		// first Heating tick.
		h.regulationTimer = 0
		h.state = Heating
		return

	case Heating:
		h.regulationTimer += TickSeconds

		if t < h.cfg.AmbientTemperature && h.regulationTimer > h.cfg.AmbientTimeout {
			h.shutdown(AmbientTimedOut)
			return
		}
		if t < h.setpoint && h.regulationTimer > h.cfg.RegulationTimeout {
			h.shutdown(RegulationTimedOut)
			return
		}
		if math32.Abs(h.setpoint-t) <= h.cfg.Hysteresis {
			h.state = AtTemperature
		}
		h.drive(t)

	case AtTemperature:
		if math32.Abs(h.setpoint-t) > h.cfg.Hysteresis {
			h.state = Heating
		}
		h.drive(t)
	}
}

// drive closes the loop: PID output mapped onto a duty percentage. Negative
// output means the tool is too hot; a heater can only remove power.
func (h *Controller) drive(t float32) {
	out := h.pid.Compute(h.setpoint, t)
	max := h.pid.MaxOutput()
	if out <= 0 || max <= 0 {
		h.setDuty(0)
		return
	}
	h.setDuty(out / max * 100)
}

func (h *Controller) shutdown(code Code) {
	h.state = Shutdown
	h.code = code
	h.setDuty(0)
}

func (h *Controller) setDuty(percent float32) {
	// The actuator only fails before a frequency is programmed; there is
	// nothing to do about it from the control loop.
	_ = h.out.SetDuty(percent)
}
