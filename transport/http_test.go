package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPPublish(t *testing.T) {
	var gotBody []byte
	var gotSecret, gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSecret = r.Header.Get("X-Device-Secret")
		gotAgent = r.Header.Get("X-Device-Agent")
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	p := NewHTTPPublisher(HTTPOptions{
		URL:          server.URL,
		DeviceSecret: "hunter2",
	})
	payload := []byte(`{"api_key":"k","readings":[]}`)
	require.NoError(t, p.Publish(context.Background(), payload))

	assert.JSONEq(t, string(payload), string(gotBody))
	assert.Equal(t, "hunter2", gotSecret)
	assert.Equal(t, "lunchbox-monitor", gotAgent)
}

func TestHTTPPublishNon2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid device secret"})
	}))
	defer server.Close()

	p := NewHTTPPublisher(HTTPOptions{URL: server.URL})
	err := p.Publish(context.Background(), []byte("{}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
