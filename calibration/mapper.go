package calibration

import "math"

const (
	// Display bounds of the ppm estimate. The MQ sensor response is
	// roughly linear in log-concentration over this range, so the raw
	// ratio is interpolated in log space rather than linearly.
	DisplayMinPPM = 10.0
	DisplayMaxPPM = 1000.0

	// DefaultAlpha is the smoothing factor applied to the mapped
	// estimate before it reaches the send gate.
	DefaultAlpha = 0.30
)

// Mapper converts raw samples within a locked range into bounded ppm
// estimates, with exponential smoothing on top.
type Mapper struct {
	rawMin float64
	rawMax float64
	alpha  float64

	ema    float64
	emaSet bool
}

func NewMapper(rawMin, rawMax float64) *Mapper {
	return &Mapper{
		rawMin: rawMin,
		rawMax: rawMax,
		alpha:  DefaultAlpha,
	}
}

// Ratio returns the sample's position within the calibrated range,
// clamped to [0, 1].
func (m *Mapper) Ratio(raw float64) float64 {
	r := (raw - m.rawMin) / (m.rawMax - m.rawMin)
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

// Map converts a raw sample to an unsmoothed ppm estimate.
func (m *Mapper) Map(raw float64) float64 {
	logMin := math.Log10(DisplayMinPPM)
	logMax := math.Log10(DisplayMaxPPM)
	ppm := math.Pow(10, logMin+m.Ratio(raw)*(logMax-logMin))
	if ppm < DisplayMinPPM {
		return DisplayMinPPM
	}
	if ppm > DisplayMaxPPM {
		return DisplayMaxPPM
	}
	return ppm
}

// Update maps a raw sample and folds it into the moving average,
// returning the smoothed estimate.
func (m *Mapper) Update(raw float64) float64 {
	ppm := m.Map(raw)
	if !m.emaSet {
		m.ema = ppm
		m.emaSet = true
	} else {
		m.ema += m.alpha * (ppm - m.ema)
	}
	return m.ema
}
