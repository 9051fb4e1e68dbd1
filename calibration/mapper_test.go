package calibration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMappingMonotonicAndBounded(t *testing.T) {
	m := NewMapper(100, 500)

	prev := 0.0
	for raw := -100.0; raw <= 700; raw += 10 {
		ppm := m.Map(raw)
		assert.GreaterOrEqual(t, ppm, DisplayMinPPM)
		assert.LessOrEqual(t, ppm, DisplayMaxPPM)
		if raw > -100 {
			assert.GreaterOrEqual(t, ppm, prev, "mapping must be non-decreasing at raw=%v", raw)
		}
		prev = ppm
	}
}

func TestMappingEndpoints(t *testing.T) {
	m := NewMapper(100, 500)
	assert.InDelta(t, DisplayMinPPM, m.Map(100), 1e-9)
	assert.InDelta(t, DisplayMaxPPM, m.Map(500), 1e-9)
	assert.InDelta(t, 100, m.Map(300), 1e-9) // log midpoint

	// Inputs outside the locked range clamp to the display bounds.
	assert.InDelta(t, DisplayMinPPM, m.Map(0), 1e-9)
	assert.InDelta(t, DisplayMaxPPM, m.Map(4095), 1e-9)
}

func TestSmoothingConverges(t *testing.T) {
	m := NewMapper(100, 500)

	// First sample seeds the average directly.
	assert.InDelta(t, 100, m.Update(300), 1e-9)

	// A step change is absorbed gradually.
	next := m.Update(500)
	assert.Greater(t, next, 100.0)
	assert.Less(t, next, DisplayMaxPPM)

	// Holding the input converges the average towards the mapped value.
	for i := 0; i < 100; i++ {
		next = m.Update(500)
	}
	assert.InDelta(t, DisplayMaxPPM, next, 0.1)
}
