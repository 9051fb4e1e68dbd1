/*
lunchbox-monitor - monitors a smart lunchbox and reports to the cloud
Copyright (C) 2026, Lunchbox Monitoring

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package main

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	arg "github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/Saakihegde12345/LunchboxMonitoring/calibration"
	"github.com/Saakihegde12345/LunchboxMonitoring/sensors"
	"github.com/Saakihegde12345/LunchboxMonitoring/telemetry"
	"github.com/Saakihegde12345/LunchboxMonitoring/transport"
)

var version = "No version provided"

var log = logrus.New()

type argSpec struct {
	ConfigDir  string `arg:"-c,--config" help:"configuration folder"`
	ForceRecal bool   `arg:"--force-recal" help:"ignore any persisted calibration and relearn"`
	LogLevel   string `arg:"-l,--log-level" default:"info" help:"Set the logging level (debug, info, warn, error)"`
}

func (argSpec) Version() string {
	return version
}

func procArgs() argSpec {
	args := argSpec{
		ConfigDir: DefaultConfigDir,
	}
	arg.MustParse(&args)
	return args
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
		log.Warn("Unknown log level, defaulting to info")
	}
}

type customFormatter struct{}

func (f *customFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return []byte(fmt.Sprintf("[%s] %s\n", strings.ToUpper(entry.Level.String()), entry.Message)), nil
}

func main() {
	err := runMain()
	if err != nil {
		log.Fatal(err.Error())
	}
}

func runMain() error {
	log.SetFormatter(new(customFormatter))
	args := procArgs()
	setLogLevel(args.LogLevel)

	log.Info("Running version: ", version)

	conf, err := ParseConfig(args.ConfigDir)
	if err != nil {
		return err
	}

	if _, err := host.Init(); err != nil {
		return err
	}
	bus, err := i2creg.Open("")
	if err != nil {
		return err
	}

	aht, err := sensors.NewAHT20(bus)
	if err != nil {
		return err
	}
	adc, err := sensors.NewADS1115(bus)
	if err != nil {
		return err
	}
	pir, err := sensors.NewPIR(conf.Sensors.MotionPin)
	if err != nil {
		return err
	}

	store := calibration.NewStore(conf.Calibration.StateDir)
	forceRecal := args.ForceRecal || store.ConsumeRecalibrationRequest()

	engine := calibration.NewEngine(store, sensors.ChannelSource{
		Reader:  adc,
		Channel: sensors.AnalogGas,
	}, calibration.EngineOptions{
		MinSamples:   conf.Calibration.MinSamples,
		BlockSize:    conf.Calibration.BlockSize,
		BlockDelay:   conf.Calibration.BlockDelay,
		StableCycles: conf.Calibration.StableCycles,
	})
	engine.Boot(forceRecal)

	commands := make(chan Command, 1)
	snapshot := &snapshotHolder{}
	snapshot.set(engine.Snapshot())
	if err := startService(commands, snapshot); err != nil {
		return err
	}
	if conf.SerialPort != "" {
		if err := startSerialListener(conf.SerialPort, conf.SerialBaud, commands); err != nil {
			log.Errorf("Serial command listener unavailable: %v", err)
		}
	}

	publisher, err := buildPublisher(conf)
	if err != nil {
		return err
	}

	m := &monitor{
		conf:       conf,
		aht:        aht,
		adc:        adc,
		pir:        pir,
		engine:     engine,
		store:      store,
		snapshot:   snapshot,
		commands:   commands,
		publisher:  publisher,
		gate:       telemetry.NewGate(gateOptions(conf.Gate), nil),
		detector:   telemetry.NewEventDetector(eventThresholds(conf.Events)),
		tempFilter: telemetry.NewSpikeFilter(conf.Sensors.TempSpikeThreshold),
		humiFilter: telemetry.NewSpikeFilter(conf.Sensors.HumiditySpike),
	}
	return m.run()
}

func buildPublisher(conf *Config) (transport.Publisher, error) {
	var p transport.Publisher
	switch conf.Transport.Mode {
	case "mqtt":
		p = transport.NewMQTTPublisher(transport.MQTTOptions{
			Hub:       conf.Transport.Hub,
			DeviceID:  conf.Device.ID,
			DeviceKey: conf.Transport.DeviceKey,
			TokenTTL:  conf.Transport.TokenTTL,
		})
	case "http":
		p = transport.NewHTTPPublisher(transport.HTTPOptions{
			URL:          conf.Transport.IngestURL,
			DeviceSecret: conf.Transport.DeviceSecret,
			Agent:        "lunchbox-monitor/" + version,
			Timeout:      conf.Transport.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown transport mode %q", conf.Transport.Mode)
	}
	return transport.NewRetryPublisher(p, transport.RetryOptions{
		MaxAttempts: conf.Transport.MaxAttempts,
		MinInterval: conf.Transport.RetryInterval,
	}), nil
}

func gateOptions(c GateConfig) telemetry.GateOptions {
	return telemetry.GateOptions{
		Thresholds: telemetry.Thresholds{
			telemetry.ChannelTemperature: c.TempThreshold,
			telemetry.ChannelHumidity:    c.HumidityThreshold,
			telemetry.ChannelGas:         c.GasThresholdPPM,
			telemetry.ChannelBattery:     c.BatteryThreshold,
			telemetry.ChannelProximity:   c.ProximityThreshold,
			telemetry.ChannelWeight:      c.WeightThreshold,
		},
		GasRatioDelta:     c.GasRatioDelta,
		MinPostInterval:   c.MinPostInterval,
		HeartbeatInterval: c.HeartbeatInterval,
	}
}

func eventThresholds(c EventsConfig) telemetry.EventThresholds {
	return telemetry.EventThresholds{
		TempHigh:        c.TempHigh,
		TempLow:         c.TempLow,
		HumidityHigh:    c.HumidityHigh,
		GasHighPPM:      c.GasHighPPM,
		BatteryLow:      c.BatteryLow,
		ProximityNear:   c.ProximityNear,
		ConsumptionDrop: c.ConsumptionDrop,
	}
}

type monitor struct {
	conf       *Config
	aht        *sensors.AHT20
	adc        *sensors.ADS1115
	pir        *sensors.PIR
	engine     *calibration.Engine
	store      *calibration.Store
	snapshot   *snapshotHolder
	commands   chan Command
	publisher  transport.Publisher
	gate       *telemetry.Gate
	detector   *telemetry.EventDetector
	tempFilter *telemetry.SpikeFilter
	humiFilter *telemetry.SpikeFilter

	lastDebugLog time.Time
}

func (m *monitor) run() error {
	for {
		select {
		case cmd := <-m.commands:
			if m.handleCommand(cmd) {
				log.Info("Exiting for restart.")
				return nil
			}
		default:
		}

		// Other channels keep reporting while gas calibration is still
		// learning; the gas channel joins once the engine locks.
		if !m.engine.Locked() {
			if err := m.engine.Tick(); err != nil {
				log.Errorf("Calibration read failed: %v", err)
			}
		}
		m.snapshot.set(m.engine.Snapshot())

		readings := m.collectReadings()
		if len(readings) == 0 {
			time.Sleep(m.conf.Sensors.SampleInterval)
			continue
		}
		now := time.Now()

		if events := m.detector.Evaluate(readings, now); len(events) > 0 {
			m.publishEvents(events)
		}

		decision := m.gate.Evaluate(readings)
		if decision.Send {
			m.publishReadings(decision, readings)
		}

		if time.Since(m.lastDebugLog) > time.Minute {
			m.logReadings(readings)
			m.lastDebugLog = time.Now()
		}

		time.Sleep(m.conf.Sensors.SampleInterval)
	}
}

// handleCommand executes an operator command, reporting whether the
// process should exit for a restart.
func (m *monitor) handleCommand(cmd Command) bool {
	log.Info("Handling command: ", cmd)
	switch cmd {
	case CommandShowCalibration:
		log.Info("Calibration: ", formatSnapshot(m.snapshot.get()))
		return false
	case CommandSoftReset:
		return true
	case CommandClearAndReset:
		if err := m.store.Clear(); err != nil {
			log.Errorf("Failed to clear calibration record: %v", err)
		}
		return true
	case CommandForceRecalAndReset:
		if err := m.store.RequestRecalibration(); err != nil {
			log.Errorf("Failed to request recalibration: %v", err)
		}
		return true
	}
	return false
}

func (m *monitor) collectReadings() []telemetry.Reading {
	var readings []telemetry.Reading

	temp, humidity, err := m.aht.Read()
	if err != nil {
		log.Warnf("Temperature read failed: %v", err)
	} else {
		if v, ok := m.tempFilter.Filter(temp); ok {
			readings = append(readings, telemetry.Reading{Channel: telemetry.ChannelTemperature, Value: round1(v)})
		}
		if v, ok := m.humiFilter.Filter(humidity); ok {
			readings = append(readings, telemetry.Reading{Channel: telemetry.ChannelHumidity, Value: round1(v)})
		}
	}

	if m.engine.Locked() {
		if raw, err := m.adc.ReadRaw(sensors.AnalogGas); err != nil {
			log.Warnf("Gas read failed: %v", err)
		} else {
			ppm, ok := m.engine.Estimate(raw)
			ratio, _ := m.engine.Ratio(raw)
			if ok {
				readings = append(readings, telemetry.Reading{
					Channel:  telemetry.ChannelGas,
					Value:    round1(ppm),
					Ratio:    ratio,
					HasRatio: true,
				})
			}
		}
	}

	if raw, err := m.adc.ReadRaw(sensors.AnalogWeight); err != nil {
		log.Warnf("Weight read failed: %v", err)
	} else {
		grams := raw / calibration.MaxRawValue * m.conf.Sensors.WeightFullScaleGrams
		readings = append(readings, telemetry.Reading{Channel: telemetry.ChannelWeight, Value: round1(grams)})
	}

	if raw, err := m.adc.ReadRaw(sensors.AnalogProximity); err != nil {
		log.Warnf("Proximity read failed: %v", err)
	} else {
		readings = append(readings, telemetry.Reading{Channel: telemetry.ChannelProximity, Value: round1(proximityCM(raw))})
	}

	if raw, err := m.adc.ReadRaw(sensors.AnalogBattery); err != nil {
		log.Warnf("Battery read failed: %v", err)
	} else {
		readings = append(readings, telemetry.Reading{Channel: telemetry.ChannelBattery, Value: round1(raw / calibration.MaxRawValue * 100)})
	}

	motion := 0.0
	if m.pir.Motion() {
		motion = 1
	}
	readings = append(readings, telemetry.Reading{Channel: telemetry.ChannelMotion, Value: motion})

	return readings
}

func (m *monitor) publishReadings(decision telemetry.Decision, readings []telemetry.Reading) {
	payload, err := telemetry.BuildPayload(m.conf.Device.APIKey, readings, wallClockISO8601())
	if err != nil {
		log.Errorf("Failed to build payload: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := m.publisher.Publish(ctx, payload); err != nil {
		// Baselines stay put; the next cycle re-evaluates from the
		// same deltas.
		log.Warnf("Publish failed, deferring to next cycle: %v", err)
		return
	}
	m.gate.Confirm(decision, readings)
	if decision.Heartbeat {
		log.Debug("Heartbeat sent.")
	} else {
		log.Debugf("Sent update for %d changed channels.", len(decision.Changed))
	}
}

func (m *monitor) publishEvents(events []telemetry.Event) {
	for _, e := range events {
		log.Infof("Event %s (%s): %s", e.Type, e.Severity, e.Message)
	}
	payload, err := telemetry.BuildEventPayload(m.conf.Device.APIKey, events, wallClockISO8601())
	if err != nil {
		log.Errorf("Failed to build event payload: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := m.publisher.Publish(ctx, payload); err != nil {
		log.Warnf("Event publish failed: %v", err)
	}
}

func (m *monitor) logReadings(readings []telemetry.Reading) {
	parts := make([]string, 0, len(readings))
	for _, r := range readings {
		parts = append(parts, fmt.Sprintf("%s=%.1f%s", r.Channel, r.Value, r.Channel.Unit()))
	}
	log.Info("Readings: ", strings.Join(parts, " "))
}

// wallClockISO8601 returns the current wall-clock time, or empty before
// the system clock has synced.
func wallClockISO8601() string {
	now := time.Now()
	if now.Year() < 2023 {
		return ""
	}
	return now.UTC().Format(time.RFC3339)
}

// proximityCM converts the IR distance sensor's raw reading to
// centimetres. Outside the sensor's usable range it reports the far
// limit.
func proximityCM(raw float64) float64 {
	volts := raw / calibration.MaxRawValue * 3.3
	if volts < 0.4 {
		return 80
	}
	cm := 27.86 * math.Pow(volts, -1.15)
	if cm > 80 {
		cm = 80
	}
	return cm
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
