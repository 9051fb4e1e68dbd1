package telemetry

import "math"

// SpikeFilter rejects single-sample spikes on channels prone to bad
// reads. A reading is accepted only if it is a real number and within
// the spike threshold of the last accepted value; the first real
// reading is always accepted. Rejected readings are dropped and the
// previous good value keeps representing the channel.
type SpikeFilter struct {
	threshold float64
	lastGood  float64
	set       bool
}

func NewSpikeFilter(threshold float64) *SpikeFilter {
	return &SpikeFilter{threshold: threshold}
}

// Filter runs a new reading through the filter. It returns the value
// now representing the channel and whether that value is usable at all.
func (f *SpikeFilter) Filter(reading float64) (float64, bool) {
	if math.IsNaN(reading) {
		return f.lastGood, f.set
	}
	if !f.set || math.Abs(reading-f.lastGood) <= f.threshold {
		f.lastGood = reading
		f.set = true
	}
	return f.lastGood, f.set
}

// Value returns the last accepted reading, if any.
func (f *SpikeFilter) Value() (float64, bool) {
	return f.lastGood, f.set
}
