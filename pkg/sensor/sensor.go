package sensor

import (
	"github.com/chewxy/math32"

	"github.com/tinwheel/hotend/pkg/config"
)

// State is the acquisition state machine state.
type State uint8

const (
	Uninit State = iota
	HasNoData
	HasData
	Shutdown
)

// String returns a short name for logging and reports.
func (s State) String() string {
	switch s {
	case Uninit:
		return "uninit"
	case HasNoData:
		return "no-data"
	case HasData:
		return "ok"
	case Shutdown:
		return "shutdown"
	}
	return "unknown"
}

// Code carries diagnostic detail alongside the state.
type Code uint8

const (
	OK Code = iota
	Disconnected
	NoPower
	BadReadings
)

func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case Disconnected:
		return "disconnected"
	case NoPower:
		return "no-power"
	case BadReadings:
		return "bad-readings"
	}
	return "unknown"
}

// Source provides one instantaneous analog reading in degrees C for a
// channel. Implementations wrap the ADC front end; a returned error means
// acquisition has failed outright, not that the sample is noisy.
type Source interface {
	ReadSample(channel int) (float32, error)
}

// Sensor validates a stream of raw samples into one averaged temperature
// reading per sampling period. Individual out-of-variance samples are
// rejected and resampled; a period whose mean lands outside the plausible
// range is classified as a disconnected probe or an unpowered amplifier.
//
// Callback runs on the 10 ms tick. The heater owns the period cadence by
// calling StartReading; with a 100 ms heater tick a period holds at most
// 10 samples.
type Sensor struct {
	cfg config.SensorConfig
	src Source

	state       State
	code        Code
	samples     int
	temperature float32 // last validated reading
	previous    float32 // variance reference within the current period
	accumulator float32
}

// New creates a sensor reading from the given source. The sensor starts in
// HasNoData; it has produced nothing yet.
func New(cfg config.SensorConfig, src Source) *Sensor {
	return &Sensor{
		cfg:   cfg,
		src:   src,
		state: HasNoData,
	}
}

// State returns the current acquisition state.
func (s *Sensor) State() State { return s.state }

// Code returns the latest diagnostic code.
func (s *Sensor) Code() Code { return s.code }

// Failed reports whether the sensor has latched its terminal state.
func (s *Sensor) Failed() bool { return s.state == Shutdown }

// Temperature returns the last validated reading. ok is false until the
// sensor has data, so callers never see a made-up temperature.
func (s *Sensor) Temperature() (float32, bool) {
	if s.state != HasData {
		return 0, false
	}
	return s.temperature, true
}

// StartReading begins a new sampling period. Calling it mid-period truncates
// the period in progress; the heater may request a fresh reading on demand.
func (s *Sensor) StartReading() { s.samples = 0 }

// Callback takes one sample per 10 ms tick. On completing a period it
// produces exactly one validated temperature or one diagnostic code.
func (s *Sensor) Callback() {
	if s.state == Uninit || s.state == Shutdown {
		return
	}
	// Period complete; hold the reading until the next StartReading.
	if s.samples >= s.cfg.SamplesPerReading {
		return
	}

	newPeriod := s.samples == 0
	if newPeriod {
		s.accumulator = 0
	}

	sample, ok := s.takeSample(newPeriod)
	if !ok {
		// Could not get a believable sample within the retry budget.
		s.state = Shutdown
		s.code = BadReadings
		return
	}
	s.accumulator += sample

	s.samples++
	if s.samples < s.cfg.SamplesPerReading {
		return
	}

	mean := s.accumulator / float32(s.samples)
	switch {
	case mean > s.cfg.DisconnectTemperature:
		s.state = HasNoData
		s.code = Disconnected
	case mean < s.cfg.NoPowerTemperature:
		s.state = HasNoData
		s.code = NoPower
	default:
		s.temperature = mean
		s.state = HasData
		s.code = OK
	}
}

// takeSample reads one sample, rejecting and resampling anything that moves
// more than the variance threshold away from the previous accepted sample.
// The first sample of a period has no reference and is accepted as-is.
func (s *Sensor) takeSample(newPeriod bool) (float32, bool) {
	sample, err := s.src.ReadSample(s.cfg.Channel)
	if err != nil {
		return 0, false
	}
	if newPeriod {
		s.previous = sample
		return sample, true
	}
	for i := s.cfg.Retries; i > 0; i-- {
		if math32.Abs(sample-s.previous) < s.cfg.Variance {
			s.previous = sample
			return sample, true
		}
		sample, err = s.src.ReadSample(s.cfg.Channel)
		if err != nil {
			return 0, false
		}
	}
	return 0, false
}
