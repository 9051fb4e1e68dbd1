package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// HTTPOptions configure the device-ingest POST transport.
type HTTPOptions struct {
	// URL is the ingest endpoint.
	URL string
	// DeviceSecret, when set, is sent as the X-Device-Secret header the
	// ingest endpoint optionally enforces.
	DeviceSecret string
	// Agent identifies the device in the ingest logs.
	Agent string
	// Timeout bounds each POST.
	Timeout time.Duration
}

// HTTPPublisher posts payloads to the monitoring backend. Any non-2xx
// response counts as a failed publish.
type HTTPPublisher struct {
	opts   HTTPOptions
	client *http.Client
}

func NewHTTPPublisher(opts HTTPOptions) *HTTPPublisher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Agent == "" {
		opts.Agent = "lunchbox-monitor"
	}
	return &HTTPPublisher{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
	}
}

func (p *HTTPPublisher) Publish(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.opts.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Device-Agent", p.opts.Agent)
	req.Header.Set("X-Request-Id", uuid.NewString())
	if p.opts.DeviceSecret != "" {
		req.Header.Set("X-Device-Secret", p.opts.DeviceSecret)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("ingest request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ingest returned %s: %s", resp.Status, body)
	}
	return nil
}
