package pid

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tinwheel/hotend/pkg/config"
)

func testConfig() config.PIDConfig {
	return config.PIDConfig{
		Kp:      2,
		Ki:      0,
		Kd:      0,
		Min:     -4,
		Max:     4,
		Epsilon: 0.01,
	}
}

func TestCompute_ClampsToMax(t *testing.T) {
	c := New(testConfig())

	// Kp=2 with a 50 degree error would ask for 100; the saturation
	// filter clamps it to the configured max.
	out := c.Compute(200, 150)
	assert.Equal(t, float32(4), out)
	assert.Equal(t, float32(4), c.Output())
}

func TestCompute_ClampsToMin(t *testing.T) {
	c := New(testConfig())

	out := c.Compute(150, 200)
	assert.Equal(t, float32(-4), out)
}

func TestCompute_ProportionalOnly(t *testing.T) {
	cfg := testConfig()
	cfg.Max = 1000
	cfg.Min = -1000
	c := New(cfg)

	out := c.Compute(200, 199)
	assert.InDelta(t, 2.0, out, 1e-4)
}

func TestCompute_AntiWindupAtEquilibrium(t *testing.T) {
	cfg := testConfig()
	cfg.Ki = 1
	c := New(cfg)

	// At the set point with zero history the output stays at zero and
	// the integral does not accumulate, call after call.
	for i := 0; i < 10; i++ {
		out := c.Compute(200, 200)
		assert.Equal(t, float32(0), out)
		assert.Equal(t, float32(0), c.Integral())
	}
}

func TestCompute_IntegralPersistsAcrossCalls(t *testing.T) {
	cfg := testConfig()
	cfg.Kp = 0
	cfg.Ki = 1
	cfg.Max = 1000
	cfg.Min = -1000
	c := New(cfg)

	c.Compute(10, 0)
	first := c.Integral()
	c.Compute(10, 0)
	second := c.Integral()

	assert.InDelta(t, 1.0, first, 1e-4)  // 10 * 0.1
	assert.InDelta(t, 2.0, second, 1e-4) // accumulated, not reset
}

func TestCompute_Derivative(t *testing.T) {
	cfg := testConfig()
	cfg.Kp = 0
	cfg.Kd = 1
	cfg.Max = 1000
	cfg.Min = -1000
	c := New(cfg)

	c.Compute(10, 0) // error jumps 0 -> 10, derivative 100
	out := c.Compute(10, 5)

	// error goes 10 -> 5, derivative (5-10)/0.1 = -50
	assert.InDelta(t, -50.0, out, 1e-3)
}

func TestReset(t *testing.T) {
	cfg := testConfig()
	cfg.Ki = 1
	c := New(cfg)

	c.Compute(50, 0)
	assert.NotEqual(t, float32(0), c.Integral())

	c.Reset()
	assert.Equal(t, float32(0), c.Integral())
	assert.Equal(t, float32(0), c.Output())
}

func TestGains(t *testing.T) {
	c := New(config.PIDConfig{Kp: 1, Ki: 2, Kd: 3, Min: -4, Max: 4})
	kp, ki, kd := c.Gains()
	assert.Equal(t, float32(1), kp)
	assert.Equal(t, float32(2), ki)
	assert.Equal(t, float32(3), kd)
	assert.Equal(t, float32(4), c.MaxOutput())
}
