package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "lunchbox.yaml"), []byte(contents), 0644)
	require.NoError(t, err)
	return dir
}

func TestConfigDefaults(t *testing.T) {
	dir := writeConfig(t, `
device:
  api-key: abc123
transport:
  mode: http
  ingest-url: https://example.com/api/ingest/
`)
	conf, err := ParseConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "lunchbox_esp32", conf.Device.ID)
	assert.Equal(t, 2*time.Second, conf.Sensors.SampleInterval)
	assert.Equal(t, 15*time.Second, conf.Gate.MinPostInterval)
	assert.Equal(t, 5*time.Minute, conf.Gate.HeartbeatInterval)
	assert.Equal(t, 25, conf.Calibration.StableCycles)
	assert.Equal(t, 200.0, conf.Events.GasHighPPM)
	assert.Equal(t, 115200, conf.SerialBaud)
}

func TestConfigOverrides(t *testing.T) {
	dir := writeConfig(t, `
device:
  id: box-7
  api-key: abc123
transport:
  mode: http
  ingest-url: https://example.com/api/ingest/
  max-attempts: 5
gate:
  heartbeat-interval: 2m
calibration:
  stable-cycles: 40
`)
	conf, err := ParseConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "box-7", conf.Device.ID)
	assert.Equal(t, 5, conf.Transport.MaxAttempts)
	assert.Equal(t, 2*time.Minute, conf.Gate.HeartbeatInterval)
	assert.Equal(t, 40, conf.Calibration.StableCycles)
}

func TestConfigHTTPNeedsURLAndKey(t *testing.T) {
	dir := writeConfig(t, `
transport:
  mode: http
`)
	_, err := ParseConfig(dir)
	assert.Error(t, err)

	dir = writeConfig(t, `
transport:
  mode: http
  ingest-url: https://example.com/api/ingest/
`)
	_, err = ParseConfig(dir)
	assert.Error(t, err)
}

func TestConfigMQTTNeedsHubAndKey(t *testing.T) {
	dir := writeConfig(t, `
transport:
  mode: mqtt
  hub: lunchbox.azure-devices.net
`)
	_, err := ParseConfig(dir)
	assert.Error(t, err)

	dir = writeConfig(t, `
transport:
  mode: mqtt
  hub: lunchbox.azure-devices.net
  device-key: c2VjcmV0
`)
	_, err = ParseConfig(dir)
	assert.NoError(t, err)
}

func TestConfigUnknownMode(t *testing.T) {
	dir := writeConfig(t, `
transport:
  mode: carrier-pigeon
`)
	_, err := ParseConfig(dir)
	assert.Error(t, err)
}

func TestParseCommand(t *testing.T) {
	for _, cmd := range []Command{
		CommandShowCalibration,
		CommandSoftReset,
		CommandClearAndReset,
		CommandForceRecalAndReset,
	} {
		parsed, err := parseCommand(cmd.String())
		require.NoError(t, err)
		assert.Equal(t, cmd, parsed)
	}

	_, err := parseCommand("self-destruct")
	assert.Error(t, err)
}
