// Package transport publishes telemetry payloads to the cloud, either
// over MQTT to an Azure IoT Hub or as HTTP POSTs to the monitoring
// backend's device-ingest endpoint.
package transport

import (
	"context"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// Publisher sends one opaque payload. Failure covers both network
// errors and negative acknowledgements; callers decide whether to
// retry.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
}
