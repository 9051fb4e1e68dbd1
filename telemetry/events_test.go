package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventTypes(events []Event) []EventType {
	types := make([]EventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}

func TestTemperatureAlertFiresOnceWhileHigh(t *testing.T) {
	d := NewEventDetector(DefaultEventThresholds())
	now := time.Now()

	events := d.Evaluate([]Reading{{Channel: ChannelTemperature, Value: 32}}, now)
	require.Len(t, events, 1)
	assert.Equal(t, EventTempHigh, events[0].Type)
	assert.Equal(t, SeverityWarning, events[0].Severity)

	// Condition persists: no repeat.
	events = d.Evaluate([]Reading{{Channel: ChannelTemperature, Value: 33}}, now)
	assert.Empty(t, events)

	// Condition clears and re-triggers.
	d.Evaluate([]Reading{{Channel: ChannelTemperature, Value: 25}}, now)
	events = d.Evaluate([]Reading{{Channel: ChannelTemperature, Value: 36}}, now)
	require.Len(t, events, 1)
	assert.Equal(t, SeverityCritical, events[0].Severity)
}

func TestGasAlertIsCritical(t *testing.T) {
	d := NewEventDetector(DefaultEventThresholds())
	events := d.Evaluate([]Reading{{Channel: ChannelGas, Value: 350}}, time.Now())
	require.Len(t, events, 1)
	assert.Equal(t, EventGasHigh, events[0].Type)
	assert.Equal(t, SeverityCritical, events[0].Severity)
}

func TestConsumptionDetection(t *testing.T) {
	d := NewEventDetector(DefaultEventThresholds())
	now := time.Now()

	events := d.Evaluate([]Reading{{Channel: ChannelWeight, Value: 400}}, now)
	assert.Empty(t, events, "first weight reading only seeds the baseline")

	events = d.Evaluate([]Reading{{Channel: ChannelWeight, Value: 360}}, now.Add(time.Minute))
	require.Len(t, events, 1)
	assert.Equal(t, EventFoodEaten, events[0].Type)
	assert.Equal(t, float64(40), events[0].Value)
}

func TestSharingDetection(t *testing.T) {
	d := NewEventDetector(DefaultEventThresholds())
	now := time.Now()

	d.Evaluate([]Reading{{Channel: ChannelWeight, Value: 400}}, now)
	events := d.Evaluate([]Reading{
		{Channel: ChannelWeight, Value: 350},
		{Channel: ChannelProximity, Value: 5},
	}, now.Add(time.Minute))
	require.NotEmpty(t, events)
	assert.Contains(t, eventTypes(events), EventFoodShared)
}

func TestSmallWeightDropIgnored(t *testing.T) {
	d := NewEventDetector(DefaultEventThresholds())
	now := time.Now()

	d.Evaluate([]Reading{{Channel: ChannelWeight, Value: 400}}, now)
	events := d.Evaluate([]Reading{{Channel: ChannelWeight, Value: 390}}, now.Add(time.Minute))
	assert.Empty(t, events)
}

func TestMissingChannelsRaiseNothing(t *testing.T) {
	d := NewEventDetector(DefaultEventThresholds())
	events := d.Evaluate([]Reading{{Channel: ChannelMotion, Value: 1}}, time.Now())
	assert.Empty(t, events)
}
