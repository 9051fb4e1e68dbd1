package telemetry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpikeFilterFirstReadingAccepted(t *testing.T) {
	f := NewSpikeFilter(10)
	v, ok := f.Filter(21)
	assert.True(t, ok)
	assert.Equal(t, float64(21), v)
}

func TestSpikeFilterRejectsSpike(t *testing.T) {
	f := NewSpikeFilter(10)
	f.Filter(21)

	// A single wild reading is dropped and the previous good value
	// keeps representing the channel.
	v, ok := f.Filter(85)
	assert.True(t, ok)
	assert.Equal(t, float64(21), v)

	// The following in-range reading is accepted again.
	v, ok = f.Filter(23)
	assert.True(t, ok)
	assert.Equal(t, float64(23), v)
}

func TestSpikeFilterRejectsNaN(t *testing.T) {
	f := NewSpikeFilter(10)
	_, ok := f.Filter(math.NaN())
	assert.False(t, ok, "no usable value until a real reading arrives")

	v, ok := f.Filter(21)
	assert.True(t, ok)
	assert.Equal(t, float64(21), v)

	v, ok = f.Filter(math.NaN())
	assert.True(t, ok)
	assert.Equal(t, float64(21), v)
}
