package telemetry

import (
	"fmt"
	"time"
)

// EventType matches the alert and notification types the cloud side
// understands.
type EventType string

const (
	EventTempHigh      EventType = "temp_high"
	EventTempLow       EventType = "temp_low"
	EventHumidityHigh  EventType = "humi_high"
	EventGasHigh       EventType = "gas_high"
	EventBatteryLow    EventType = "batt_low"
	EventProximityNear EventType = "prox_near"
	EventFoodEaten     EventType = "food_eaten"
	EventFoodShared    EventType = "food_shared"
)

const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Event is a condition derived from the current readings by simple
// thresholding.
type Event struct {
	Type     EventType
	Severity string
	Value    float64
	Message  string
}

// EventThresholds are the trigger levels for derived events.
type EventThresholds struct {
	TempHigh      float64
	TempLow       float64
	HumidityHigh  float64
	GasHighPPM    float64
	BatteryLow    float64
	ProximityNear float64
	// ConsumptionDrop is the weight decrease that counts as food being
	// eaten; a drop while something is within ProximityNear is taken
	// to be sharing instead.
	ConsumptionDrop float64
}

func DefaultEventThresholds() EventThresholds {
	return EventThresholds{
		TempHigh:        30,
		TempLow:         5,
		HumidityHigh:    75,
		GasHighPPM:      200,
		BatteryLow:      20,
		ProximityNear:   10,
		ConsumptionDrop: 25,
	}
}

// EventDetector derives consumption, sharing, and safety events from
// each cycle's readings. Threshold alerts fire once when the condition
// starts and re-arm when it clears, so a sustained condition does not
// repeat every cycle.
type EventDetector struct {
	thresholds EventThresholds

	active map[EventType]bool

	lastWeight    float64
	lastWeightSet bool
	lastWeightAt  time.Time
}

func NewEventDetector(thresholds EventThresholds) *EventDetector {
	return &EventDetector{
		thresholds: thresholds,
		active:     map[EventType]bool{},
	}
}

// Evaluate returns the events newly triggered by this cycle's readings.
func (d *EventDetector) Evaluate(readings []Reading, now time.Time) []Event {
	values := map[Channel]float64{}
	present := map[Channel]bool{}
	for _, r := range readings {
		values[r.Channel] = r.Value
		present[r.Channel] = true
	}

	var events []Event
	check := func(typ EventType, ch Channel, triggered bool, severity, msg string) {
		if !present[ch] {
			return
		}
		if !triggered {
			d.active[typ] = false
			return
		}
		if d.active[typ] {
			return
		}
		d.active[typ] = true
		events = append(events, Event{
			Type:     typ,
			Severity: severity,
			Value:    values[ch],
			Message:  msg,
		})
	}

	t := d.thresholds
	temp := values[ChannelTemperature]
	tempSeverity := SeverityWarning
	if temp >= t.TempHigh+5 {
		tempSeverity = SeverityCritical
	}
	check(EventTempHigh, ChannelTemperature, temp > t.TempHigh, tempSeverity,
		fmt.Sprintf("Temperature high: %.1f°C > %.1f°C", temp, t.TempHigh))
	check(EventTempLow, ChannelTemperature, temp < t.TempLow, SeverityWarning,
		fmt.Sprintf("Temperature low: %.1f°C < %.1f°C", temp, t.TempLow))
	check(EventHumidityHigh, ChannelHumidity, values[ChannelHumidity] > t.HumidityHigh, SeverityWarning,
		fmt.Sprintf("Humidity high: %.1f%% > %.1f%%", values[ChannelHumidity], t.HumidityHigh))
	check(EventGasHigh, ChannelGas, values[ChannelGas] > t.GasHighPPM, SeverityCritical,
		fmt.Sprintf("Gas level high: %.0fppm > %.0fppm", values[ChannelGas], t.GasHighPPM))
	check(EventBatteryLow, ChannelBattery, values[ChannelBattery] < t.BatteryLow, SeverityWarning,
		fmt.Sprintf("Battery low: %.0f%% < %.0f%%", values[ChannelBattery], t.BatteryLow))
	check(EventProximityNear, ChannelProximity, values[ChannelProximity] < t.ProximityNear, SeverityWarning,
		fmt.Sprintf("Object near: %.0fcm < %.0fcm", values[ChannelProximity], t.ProximityNear))

	if present[ChannelWeight] {
		events = append(events, d.evaluateWeight(values, present, now)...)
	}
	return events
}

func (d *EventDetector) evaluateWeight(values map[Channel]float64, present map[Channel]bool, now time.Time) []Event {
	weight := values[ChannelWeight]
	defer func() {
		d.lastWeight = weight
		d.lastWeightSet = true
		d.lastWeightAt = now
	}()

	if !d.lastWeightSet {
		return nil
	}
	drop := d.lastWeight - weight
	if drop < d.thresholds.ConsumptionDrop {
		return nil
	}

	typ := EventFoodEaten
	msg := fmt.Sprintf("Weight dropped by %.0fg", drop)
	if present[ChannelProximity] && values[ChannelProximity] < d.thresholds.ProximityNear {
		typ = EventFoodShared
		msg = fmt.Sprintf("Weight dropped by %.0fg with someone nearby", drop)
	}
	return []Event{{
		Type:     typ,
		Severity: SeverityWarning,
		Value:    drop,
		Message:  msg,
	}}
}
