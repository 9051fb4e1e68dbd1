// Package sensors reads the lunchbox's sensors: an AHT20 for
// temperature and humidity, an ADS1115 ADC for the analog channels
// (MQ gas sensor, weight potentiometer, IR distance, battery divider),
// and a PIR for motion.
package sensors

import (
	"time"
)

// AnalogChannel identifies one of the ADC inputs.
type AnalogChannel int

const (
	AnalogGas AnalogChannel = iota
	AnalogWeight
	AnalogProximity
	AnalogBattery
)

// AnalogReader reads raw samples from an analog channel. Implemented by
// the ADS1115 driver; tests substitute scripted readers.
type AnalogReader interface {
	ReadRaw(ch AnalogChannel) (float64, error)
	ReadBlockAverage(ch AnalogChannel, n int, delay time.Duration) (float64, error)
}

// ChannelSource narrows an AnalogReader to a single channel.
type ChannelSource struct {
	Reader  AnalogReader
	Channel AnalogChannel
}

func (s ChannelSource) ReadRaw() (float64, error) {
	return s.Reader.ReadRaw(s.Channel)
}

func (s ChannelSource) ReadBlockAverage(n int, delay time.Duration) (float64, error) {
	return s.Reader.ReadBlockAverage(s.Channel, n, delay)
}
