package telemetry

import (
	"encoding/json"
	"fmt"
)

// ReadingPayload is one reading in the device-ingest format.
type ReadingPayload struct {
	SensorType string  `json:"sensor_type"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit"`
	RecordedAt string  `json:"recorded_at,omitempty"`
}

// IngestPayload is the JSON body the device posts. The API key
// identifies the lunchbox, so the device never needs to know internal
// cloud IDs.
type IngestPayload struct {
	APIKey   string           `json:"api_key"`
	Readings []ReadingPayload `json:"readings"`
}

// EventPayload is one derived event in the device-ingest format.
type EventPayload struct {
	EventType  string  `json:"event_type"`
	Severity   string  `json:"severity"`
	Value      float64 `json:"value"`
	Message    string  `json:"message"`
	RecordedAt string  `json:"recorded_at,omitempty"`
}

// IngestEventPayload is the JSON body for derived events.
type IngestEventPayload struct {
	APIKey string         `json:"api_key"`
	Events []EventPayload `json:"events"`
}

// BuildPayload serialises this cycle's readings. recordedAt is the
// ISO8601 wall-clock timestamp, or empty before time sync has
// completed, in which case the cloud side stamps arrival time.
func BuildPayload(apiKey string, readings []Reading, recordedAt string) ([]byte, error) {
	p := IngestPayload{
		APIKey:   apiKey,
		Readings: make([]ReadingPayload, 0, len(readings)),
	}
	for _, r := range readings {
		p.Readings = append(p.Readings, ReadingPayload{
			SensorType: string(r.Channel),
			Value:      r.Value,
			Unit:       r.Channel.Unit(),
			RecordedAt: recordedAt,
		})
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal readings payload: %v", err)
	}
	return data, nil
}

// BuildEventPayload serialises derived events.
func BuildEventPayload(apiKey string, events []Event, recordedAt string) ([]byte, error) {
	p := IngestEventPayload{
		APIKey: apiKey,
		Events: make([]EventPayload, 0, len(events)),
	}
	for _, e := range events {
		p.Events = append(p.Events, EventPayload{
			EventType:  string(e.Type),
			Severity:   e.Severity,
			Value:      e.Value,
			Message:    e.Message,
			RecordedAt: recordedAt,
		})
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal events payload: %v", err)
	}
	return data, nil
}
