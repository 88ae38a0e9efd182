package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the controller configuration.
type Config struct {
	Link   LinkConfig   `yaml:"link"`
	Sensor SensorConfig `yaml:"sensor"`
	Heater HeaterConfig `yaml:"heater"`
	PID    PIDConfig    `yaml:"pid"`
	PWM    PWMConfig    `yaml:"pwm"`
	Sim    SimConfig    `yaml:"sim"`
}

// LinkConfig contains host link configuration.
type LinkConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// SensorConfig contains thermocouple acquisition parameters.
type SensorConfig struct {
	Channel               int     `yaml:"channel"`                // ADC channel to sample
	SamplesPerReading     int     `yaml:"samples_per_reading"`    // samples averaged into one reading
	Retries               int     `yaml:"retries"`                // resample budget per out-of-variance sample
	Variance              float32 `yaml:"variance"`               // max change between consecutive samples (deg C)
	DisconnectTemperature float32 `yaml:"disconnect_temperature"` // readings above this mean the thermocouple is unplugged
	NoPowerTemperature    float32 `yaml:"no_power_temperature"`   // readings below this mean the amplifier has no power
}

// HeaterConfig contains heater supervision parameters.
type HeaterConfig struct {
	Setpoint            float32 `yaml:"setpoint"`             // initial set point (deg C)
	AmbientTimeout      float32 `yaml:"ambient_timeout"`      // seconds allowed to leave ambient
	RegulationTimeout   float32 `yaml:"regulation_timeout"`   // seconds allowed to reach the set point
	AmbientTemperature  float32 `yaml:"ambient_temperature"`  // below this the heater is considered at ambient
	OverheatTemperature float32 `yaml:"overheat_temperature"` // cutoff temperature
	Hysteresis          float32 `yaml:"hysteresis"`           // band around the set point counted as at-temperature
	SensorTimeout       float32 `yaml:"sensor_timeout"`       // seconds without a validated reading before shutdown
}

// PIDConfig contains controller gains and output bounds.
type PIDConfig struct {
	Kp      float32 `yaml:"kp"`
	Ki      float32 `yaml:"ki"`
	Kd      float32 `yaml:"kd"`
	Min     float32 `yaml:"min"`     // output saturation lower bound
	Max     float32 `yaml:"max"`     // output saturation upper bound
	Epsilon float32 `yaml:"epsilon"` // errors at or below this skip integration
}

// PWMConfig contains output driver timing parameters.
type PWMConfig struct {
	ClockHz     uint32  `yaml:"clock_hz"`     // timer input clock
	Prescale    uint32  `yaml:"prescale"`     // timer prescale divisor
	MinRes      uint16  `yaml:"min_res"`      // minimum top value (resolution floor)
	MaxRes      uint16  `yaml:"max_res"`      // maximum top value
	FrequencyHz float32 `yaml:"frequency_hz"` // PWM frequency programmed at startup
}

// SimConfig contains simulated plant configuration.
type SimConfig struct {
	Ambient     float32 `yaml:"ambient"`      // ambient temperature (deg C)
	HeatingRate float32 `yaml:"heating_rate"` // deg C per second at 100% duty
	CoolingRate float32 `yaml:"cooling_rate"` // fraction of excess over ambient lost per second
	NoiseLevel  float32 `yaml:"noise_level"`  // peak sample noise (deg C)
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Link: LinkConfig{
			Port:     "", // link disabled unless a port is configured
			BaudRate: 115200,
		},
		Sensor: SensorConfig{
			Channel:               0,
			SamplesPerReading:     8,
			Retries:               4,
			Variance:              2.0,
			DisconnectTemperature: 400,
			NoPowerTemperature:    -10,
		},
		Heater: HeaterConfig{
			Setpoint:            0, // the host writes the set point before turn on
			AmbientTimeout:      90,
			RegulationTimeout:   300,
			AmbientTemperature:  40,
			OverheatTemperature: 300,
			Hysteresis:          2.0,
			SensorTimeout:       5,
		},
		PID: PIDConfig{
			Kp:      5.0,
			Ki:      0.1,
			Kd:      0.4,
			Min:     -4,
			Max:     4,
			Epsilon: 0.01,
		},
		PWM: PWMConfig{
			ClockHz:     16000000,
			Prescale:    64,
			MinRes:      16,
			MaxRes:      255,
			FrequencyHz: 1000,
		},
		Sim: SimConfig{
			Ambient:     22,
			HeatingRate: 4.0,
			CoolingRate: 0.02,
			NoiseLevel:  0.1,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Ensure minimum required fields are set (use defaults if missing)
	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Link.BaudRate == 0 {
		c.Link.BaudRate = def.Link.BaudRate
	}

	if c.Sensor.SamplesPerReading == 0 {
		c.Sensor.SamplesPerReading = def.Sensor.SamplesPerReading
	}
	if c.Sensor.Retries == 0 {
		c.Sensor.Retries = def.Sensor.Retries
	}
	if c.Sensor.Variance == 0 {
		c.Sensor.Variance = def.Sensor.Variance
	}
	if c.Sensor.DisconnectTemperature == 0 {
		c.Sensor.DisconnectTemperature = def.Sensor.DisconnectTemperature
	}
	if c.Sensor.NoPowerTemperature == 0 {
		c.Sensor.NoPowerTemperature = def.Sensor.NoPowerTemperature
	}

	if c.Heater.AmbientTimeout == 0 {
		c.Heater.AmbientTimeout = def.Heater.AmbientTimeout
	}
	if c.Heater.RegulationTimeout == 0 {
		c.Heater.RegulationTimeout = def.Heater.RegulationTimeout
	}
	if c.Heater.AmbientTemperature == 0 {
		c.Heater.AmbientTemperature = def.Heater.AmbientTemperature
	}
	if c.Heater.OverheatTemperature == 0 {
		c.Heater.OverheatTemperature = def.Heater.OverheatTemperature
	}
	if c.Heater.Hysteresis == 0 {
		c.Heater.Hysteresis = def.Heater.Hysteresis
	}
	if c.Heater.SensorTimeout == 0 {
		c.Heater.SensorTimeout = def.Heater.SensorTimeout
	}

	if c.PID.Max == 0 && c.PID.Min == 0 {
		c.PID.Min = def.PID.Min
		c.PID.Max = def.PID.Max
	}
	if c.PID.Epsilon == 0 {
		c.PID.Epsilon = def.PID.Epsilon
	}

	if c.PWM.ClockHz == 0 {
		c.PWM.ClockHz = def.PWM.ClockHz
	}
	if c.PWM.Prescale == 0 {
		c.PWM.Prescale = def.PWM.Prescale
	}
	if c.PWM.MinRes == 0 {
		c.PWM.MinRes = def.PWM.MinRes
	}
	if c.PWM.MaxRes == 0 {
		c.PWM.MaxRes = def.PWM.MaxRes
	}
	if c.PWM.FrequencyHz == 0 {
		c.PWM.FrequencyHz = def.PWM.FrequencyHz
	}

	if c.Sim.Ambient == 0 {
		c.Sim.Ambient = def.Sim.Ambient
	}
	if c.Sim.HeatingRate == 0 {
		c.Sim.HeatingRate = def.Sim.HeatingRate
	}
	if c.Sim.CoolingRate == 0 {
		c.Sim.CoolingRate = def.Sim.CoolingRate
	}
}
