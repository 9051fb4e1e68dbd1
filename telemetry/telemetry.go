// Package telemetry decides which sensor readings are worth a network
// send. Readings pass through spike filtering and a per-channel change
// gate; the gate's baselines only advance once a transmission has been
// confirmed, so deltas always accumulate against what the cloud side
// last saw.
package telemetry

import (
	"time"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// Channel identifies a tracked sensor channel. The codes match the
// sensor_type values the ingest API accepts.
type Channel string

const (
	ChannelTemperature Channel = "temp"
	ChannelHumidity    Channel = "humi"
	ChannelGas         Channel = "gas"
	ChannelBattery     Channel = "batt"
	ChannelProximity   Channel = "prox"
	ChannelMotion      Channel = "motion"
	ChannelWeight      Channel = "weight"
)

// Unit returns the reporting unit for the channel.
func (c Channel) Unit() string {
	switch c {
	case ChannelTemperature:
		return "°C"
	case ChannelHumidity, ChannelBattery:
		return "%"
	case ChannelGas:
		return "ppm"
	case ChannelProximity:
		return "cm"
	case ChannelWeight:
		return "g"
	default:
		return ""
	}
}

// Reading is one channel's value for the current polling cycle. Ratio
// is only set for the gas channel: the estimate's position within the
// calibrated range, used for the gate's relative-change trigger.
type Reading struct {
	Channel  Channel
	Value    float64
	Ratio    float64
	HasRatio bool
}

// Clock provides the monotonic time used for send gating. Tests swap in
// a fake to control apparent time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real time source.
func SystemClock() Clock { return systemClock{} }
