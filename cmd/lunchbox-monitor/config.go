package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultConfigDir = "/etc/lunchbox"
	DefaultStateDir  = "/var/lib/lunchbox"
)

type DeviceConfig struct {
	ID     string `mapstructure:"id"`
	APIKey string `mapstructure:"api-key"`
}

type TransportConfig struct {
	// Mode selects the publish path: "mqtt" or "http".
	Mode string `mapstructure:"mode"`

	Hub       string        `mapstructure:"hub"`
	DeviceKey string        `mapstructure:"device-key"`
	TokenTTL  time.Duration `mapstructure:"token-ttl"`

	IngestURL    string        `mapstructure:"ingest-url"`
	DeviceSecret string        `mapstructure:"device-secret"`
	Timeout      time.Duration `mapstructure:"timeout"`

	MaxAttempts   int           `mapstructure:"max-attempts"`
	RetryInterval time.Duration `mapstructure:"retry-interval"`
}

type SensorsConfig struct {
	SampleInterval       time.Duration `mapstructure:"sample-interval"`
	MotionPin            string        `mapstructure:"motion-pin"`
	WeightFullScaleGrams float64       `mapstructure:"weight-full-scale-grams"`
	TempSpikeThreshold   float64       `mapstructure:"temp-spike-threshold"`
	HumiditySpike        float64       `mapstructure:"humidity-spike-threshold"`
}

type CalibrationConfig struct {
	StateDir     string        `mapstructure:"state-dir"`
	MinSamples   int           `mapstructure:"min-samples"`
	BlockSize    int           `mapstructure:"block-size"`
	BlockDelay   time.Duration `mapstructure:"block-delay"`
	StableCycles int           `mapstructure:"stable-cycles"`
}

type GateConfig struct {
	TempThreshold      float64       `mapstructure:"temp-threshold"`
	HumidityThreshold  float64       `mapstructure:"humidity-threshold"`
	GasThresholdPPM    float64       `mapstructure:"gas-threshold-ppm"`
	GasRatioDelta      float64       `mapstructure:"gas-ratio-delta"`
	BatteryThreshold   float64       `mapstructure:"battery-threshold"`
	ProximityThreshold float64       `mapstructure:"proximity-threshold"`
	WeightThreshold    float64       `mapstructure:"weight-threshold"`
	MinPostInterval    time.Duration `mapstructure:"min-post-interval"`
	HeartbeatInterval  time.Duration `mapstructure:"heartbeat-interval"`
}

type EventsConfig struct {
	TempHigh        float64 `mapstructure:"temp-high"`
	TempLow         float64 `mapstructure:"temp-low"`
	HumidityHigh    float64 `mapstructure:"humidity-high"`
	GasHighPPM      float64 `mapstructure:"gas-high-ppm"`
	BatteryLow      float64 `mapstructure:"battery-low"`
	ProximityNear   float64 `mapstructure:"proximity-near"`
	ConsumptionDrop float64 `mapstructure:"consumption-drop"`
}

type Config struct {
	Device      DeviceConfig      `mapstructure:"device"`
	Transport   TransportConfig   `mapstructure:"transport"`
	Sensors     SensorsConfig     `mapstructure:"sensors"`
	Calibration CalibrationConfig `mapstructure:"calibration"`
	Gate        GateConfig        `mapstructure:"gate"`
	Events      EventsConfig      `mapstructure:"events"`

	// SerialPort, when set, accepts operator commands over a serial
	// line as well as dbus.
	SerialPort string `mapstructure:"serial-port"`
	SerialBaud int    `mapstructure:"serial-baud"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("device.id", "lunchbox_esp32")

	v.SetDefault("transport.mode", "http")
	v.SetDefault("transport.token-ttl", time.Hour)
	v.SetDefault("transport.timeout", 10*time.Second)
	v.SetDefault("transport.max-attempts", 3)
	v.SetDefault("transport.retry-interval", time.Second)

	v.SetDefault("sensors.sample-interval", 2*time.Second)
	v.SetDefault("sensors.motion-pin", "GPIO17")
	v.SetDefault("sensors.weight-full-scale-grams", 500)
	v.SetDefault("sensors.temp-spike-threshold", 10)
	v.SetDefault("sensors.humidity-spike-threshold", 20)

	v.SetDefault("calibration.state-dir", DefaultStateDir)
	v.SetDefault("calibration.min-samples", 10)
	v.SetDefault("calibration.block-size", 12)
	v.SetDefault("calibration.block-delay", 50*time.Millisecond)
	v.SetDefault("calibration.stable-cycles", 25)

	v.SetDefault("gate.temp-threshold", 0.5)
	v.SetDefault("gate.humidity-threshold", 2)
	v.SetDefault("gate.gas-threshold-ppm", 25)
	v.SetDefault("gate.gas-ratio-delta", 0.05)
	v.SetDefault("gate.battery-threshold", 5)
	v.SetDefault("gate.proximity-threshold", 5)
	v.SetDefault("gate.weight-threshold", 10)
	v.SetDefault("gate.min-post-interval", 15*time.Second)
	v.SetDefault("gate.heartbeat-interval", 5*time.Minute)

	v.SetDefault("events.temp-high", 30)
	v.SetDefault("events.temp-low", 5)
	v.SetDefault("events.humidity-high", 75)
	v.SetDefault("events.gas-high-ppm", 200)
	v.SetDefault("events.battery-low", 20)
	v.SetDefault("events.proximity-near", 10)
	v.SetDefault("events.consumption-drop", 25)

	v.SetDefault("serial-baud", 115200)
}

// ParseConfig loads lunchbox.yaml from the config directory, falling
// back to defaults for anything unset. A missing file is not an error.
func ParseConfig(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("lunchbox")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %v", err)
		}
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("failed to parse config: %v", err)
	}

	switch conf.Transport.Mode {
	case "http":
		if conf.Transport.IngestURL == "" {
			return nil, errors.New("transport.ingest-url must be set for http mode")
		}
	case "mqtt":
		if conf.Transport.Hub == "" || conf.Transport.DeviceKey == "" {
			return nil, errors.New("transport.hub and transport.device-key must be set for mqtt mode")
		}
	default:
		return nil, fmt.Errorf("unknown transport mode %q", conf.Transport.Mode)
	}
	if conf.Device.APIKey == "" && conf.Transport.Mode == "http" {
		return nil, errors.New("device.api-key must be set for http mode")
	}
	return &conf, nil
}
