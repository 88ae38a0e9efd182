// hotendd runs the heated-tool controller core: sensor acquisition on the
// 10 ms tick, heater supervision and closed-loop PWM on the 100 ms tick,
// and the host register link serviced between ticks. Without hardware the
// loop closes over a simulated plant.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/tinwheel/hotend/pkg/config"
	"github.com/tinwheel/hotend/pkg/device"
	"github.com/tinwheel/hotend/pkg/heater"
	"github.com/tinwheel/hotend/pkg/link"
	"github.com/tinwheel/hotend/pkg/pid"
	"github.com/tinwheel/hotend/pkg/pwm"
	"github.com/tinwheel/hotend/pkg/regmap"
	"github.com/tinwheel/hotend/pkg/sensor"
)

func main() {
	var (
		portFlag     = flag.String("p", "", "Serial port override for the host link (e.g., COM3 or /dev/ttyACM0)")
		configFlag   = flag.String("config", "config.yaml", "Configuration file path")
		setpointFlag = flag.Float64("setpoint", 0, "Set point override in deg C (0 = take it from config or the host)")
		onFlag       = flag.Bool("on", false, "Turn the heater on at startup")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override serial port if provided via command line
	if *portFlag != "" {
		cfg.Link.Port = *portFlag
	}
	if *setpointFlag > 0 {
		cfg.Heater.Setpoint = float32(*setpointFlag)
	}

	// The recorder stands in for the timer registers; on real hardware a
	// Driver programs them instead.
	drv := pwm.NewRecorder()
	actuator := pwm.New(cfg.PWM, drv)
	if err := actuator.SetFrequency(cfg.PWM.FrequencyHz); err != nil {
		log.Fatalf("Failed to program PWM frequency: %v", err)
	}

	plant := sensor.NewSim(cfg.Sim, drv.Duty)
	sns := sensor.New(cfg.Sensor, plant)
	controller := pid.New(cfg.PID)
	htr := heater.New(cfg.Heater, sns, controller, actuator)
	regs := regmap.New(htr, sns, controller)

	dev := device.New()
	dev.On10ms(sns.Callback)
	dev.On100ms(func() {
		regs.Apply()
		htr.Callback()
		regs.Publish()
	})
	dev.On1s(func() {
		log.Printf("heater=%s/%s sensor=%s/%s temp=%.1fC setpoint=%.1fC duty=%.0f%%",
			htr.State(), htr.Code(), sns.State(), sns.Code(),
			htr.Temperature(), htr.Setpoint(), drv.Duty())
	})

	// Host link, highest dispatch priority.
	if cfg.Link.Port != "" {
		tr := link.NewSerial(cfg.Link.Port, cfg.Link.BaudRate, 0)
		if err := tr.Connect(); err != nil {
			if ports, perr := link.Ports(); perr == nil {
				for _, p := range ports {
					log.Printf("available port: %s", p.Name)
				}
			}
			log.Fatalf("Failed to open host link: %v", err)
		}
		defer tr.Close()
		dev.Register(link.NewHandler(tr, regs).Poll)
		log.Printf("host link on %s @ %d", cfg.Link.Port, cfg.Link.BaudRate)
	}

	if *onFlag {
		if err := htr.TurnOn(); err != nil {
			log.Fatalf("Failed to turn heater on: %v", err)
		}
		log.Printf("heater on, setpoint %.1fC", htr.Setpoint())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := dev.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("Dispatch loop failed: %v", err)
	}
}
