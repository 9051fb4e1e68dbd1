package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func testGate(clock Clock) *Gate {
	opts := DefaultGateOptions()
	opts.MinPostInterval = 15 * time.Second
	opts.HeartbeatInterval = 5 * time.Minute
	return NewGate(opts, clock)
}

func TestFirstReadingAlwaysChanged(t *testing.T) {
	g := testGate(newFakeClock())
	d := g.Evaluate([]Reading{
		{Channel: ChannelTemperature, Value: 21},
		{Channel: ChannelMotion, Value: 0},
	})
	assert.True(t, d.Send)
	assert.True(t, d.Changed[ChannelTemperature])
	assert.True(t, d.Changed[ChannelMotion])
}

func TestSmallChangeSuppressed(t *testing.T) {
	clock := newFakeClock()
	g := testGate(clock)

	readings := []Reading{{Channel: ChannelTemperature, Value: 21}}
	d := g.Evaluate(readings)
	require.True(t, d.Send)
	g.Confirm(d, readings)

	clock.advance(time.Minute)
	d = g.Evaluate([]Reading{{Channel: ChannelTemperature, Value: 21.2}})
	assert.False(t, d.Send)
	assert.Empty(t, d.Changed)
}

func TestDriftAccumulatesAgainstLastSent(t *testing.T) {
	clock := newFakeClock()
	g := testGate(clock)

	readings := []Reading{{Channel: ChannelTemperature, Value: 21}}
	d := g.Evaluate(readings)
	g.Confirm(d, readings)

	// Two sub-threshold steps, each below 0.5 on its own.
	clock.advance(time.Minute)
	d = g.Evaluate([]Reading{{Channel: ChannelTemperature, Value: 21.3}})
	assert.False(t, d.Changed[ChannelTemperature])

	clock.advance(time.Minute)
	d = g.Evaluate([]Reading{{Channel: ChannelTemperature, Value: 21.6}})
	assert.True(t, d.Changed[ChannelTemperature], "cumulative drift from the sent baseline must trigger")
	assert.True(t, d.Send)
}

func TestMinPostIntervalHoldsBackSend(t *testing.T) {
	clock := newFakeClock()
	g := testGate(clock)

	readings := []Reading{{Channel: ChannelTemperature, Value: 21}}
	g.Confirm(g.Evaluate(readings), readings)

	clock.advance(5 * time.Second)
	d := g.Evaluate([]Reading{{Channel: ChannelTemperature, Value: 25}})
	assert.True(t, d.Changed[ChannelTemperature])
	assert.False(t, d.Send, "changed but inside the minimum send gap")

	clock.advance(15 * time.Second)
	d = g.Evaluate([]Reading{{Channel: ChannelTemperature, Value: 25}})
	assert.True(t, d.Send)
}

func TestHeartbeatGuarantee(t *testing.T) {
	clock := newFakeClock()
	g := testGate(clock)

	readings := []Reading{{Channel: ChannelTemperature, Value: 21}}
	g.Confirm(g.Evaluate(readings), readings)

	clock.advance(4 * time.Minute)
	d := g.Evaluate(readings)
	assert.False(t, d.Send)

	clock.advance(time.Minute)
	d = g.Evaluate(readings)
	assert.True(t, d.Send)
	assert.True(t, d.Heartbeat)
	assert.Empty(t, d.Changed)
}

func TestMotionChangeIsDiscrete(t *testing.T) {
	clock := newFakeClock()
	g := testGate(clock)

	readings := []Reading{{Channel: ChannelMotion, Value: 0}}
	g.Confirm(g.Evaluate(readings), readings)

	clock.advance(time.Minute)
	d := g.Evaluate([]Reading{{Channel: ChannelMotion, Value: 0}})
	assert.False(t, d.Send)

	d = g.Evaluate([]Reading{{Channel: ChannelMotion, Value: 1}})
	assert.True(t, d.Changed[ChannelMotion])
	assert.True(t, d.Send)
}

func TestGasRatioTrigger(t *testing.T) {
	clock := newFakeClock()
	g := testGate(clock)

	readings := []Reading{{Channel: ChannelGas, Value: 15, Ratio: 0.10, HasRatio: true}}
	g.Confirm(g.Evaluate(readings), readings)

	// Near the low end of the log range the absolute ppm delta stays
	// tiny; the ratio shift must still trigger.
	clock.advance(time.Minute)
	d := g.Evaluate([]Reading{{Channel: ChannelGas, Value: 22, Ratio: 0.18, HasRatio: true}})
	assert.True(t, d.Changed[ChannelGas])

	// Neither a small ppm delta nor a small ratio shift triggers.
	d = g.Evaluate([]Reading{{Channel: ChannelGas, Value: 17, Ratio: 0.12, HasRatio: true}})
	assert.False(t, d.Changed[ChannelGas])
}

func TestConfirmOnlyUpdatesTriggeredChannels(t *testing.T) {
	clock := newFakeClock()
	g := testGate(clock)

	readings := []Reading{
		{Channel: ChannelTemperature, Value: 21},
		{Channel: ChannelHumidity, Value: 50},
	}
	g.Confirm(g.Evaluate(readings), readings)

	// Temperature triggers the send; humidity drifts below threshold
	// but rides along in the payload.
	clock.advance(time.Minute)
	readings = []Reading{
		{Channel: ChannelTemperature, Value: 25},
		{Channel: ChannelHumidity, Value: 51},
	}
	d := g.Evaluate(readings)
	require.True(t, d.Send)
	require.True(t, d.Changed[ChannelTemperature])
	require.False(t, d.Changed[ChannelHumidity])
	g.Confirm(d, readings)

	temp, ok := g.LastSent(ChannelTemperature)
	require.True(t, ok)
	assert.Equal(t, float64(25), temp)

	// Humidity's baseline still reflects the last value it triggered
	// with, so its drift keeps accumulating.
	humi, ok := g.LastSent(ChannelHumidity)
	require.True(t, ok)
	assert.Equal(t, float64(50), humi)

	clock.advance(time.Minute)
	d = g.Evaluate([]Reading{{Channel: ChannelHumidity, Value: 52}})
	assert.True(t, d.Changed[ChannelHumidity])
}

func TestFailedSendKeepsBaselines(t *testing.T) {
	clock := newFakeClock()
	g := testGate(clock)

	readings := []Reading{{Channel: ChannelTemperature, Value: 21}}
	d := g.Evaluate(readings)
	require.True(t, d.Send)
	// Transmission failed: Confirm is never called, so the next cycle
	// re-evaluates from the same (absent) baselines.
	d = g.Evaluate(readings)
	assert.True(t, d.Send)
	assert.True(t, d.Changed[ChannelTemperature])
}
