package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"
)

// MQTTOptions configure the Azure IoT Hub connection.
type MQTTOptions struct {
	// Hub is the IoT Hub hostname, e.g. LunchboxMonitoring.azure-devices.net.
	Hub string
	// DeviceID is the registered device identity; it doubles as the
	// MQTT client ID.
	DeviceID string
	// DeviceKey is the base64 primary key used to sign SAS tokens.
	DeviceKey string
	// TokenTTL is how long each generated SAS token remains valid.
	TokenTTL time.Duration
	// TLSConfig overrides the default TLS settings, mainly for tests.
	TLSConfig *tls.Config
}

// MQTTPublisher publishes telemetry to the hub's device events topic,
// authenticated by a SAS token generated per connection.
type MQTTPublisher struct {
	opts MQTTOptions

	mu     sync.Mutex
	client *paho.Client
}

func NewMQTTPublisher(opts MQTTOptions) *MQTTPublisher {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}
	return &MQTTPublisher{opts: opts}
}

func (p *MQTTPublisher) telemetryTopic() string {
	return fmt.Sprintf("devices/%s/messages/events/", p.opts.DeviceID)
}

func (p *MQTTPublisher) connect(ctx context.Context) (*paho.Client, error) {
	if p.client != nil {
		return p.client, nil
	}

	resourceURI := fmt.Sprintf("%s/devices/%s", p.opts.Hub, p.opts.DeviceID)
	token, err := GenerateSASToken(resourceURI, p.opts.DeviceKey, time.Now().Add(p.opts.TokenTTL))
	if err != nil {
		return nil, err
	}

	dialer := &tls.Dialer{Config: p.opts.TLSConfig}
	conn, err := dialer.DialContext(ctx, "tcp", p.opts.Hub+":8883")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %v", p.opts.Hub, err)
	}

	client := paho.NewClient(paho.ClientConfig{
		Conn:     conn,
		ClientID: p.opts.DeviceID,
		OnClientError: func(err error) {
			log.Warnf("MQTT client error: %v", err)
			p.dropClient()
		},
		OnServerDisconnect: func(d *paho.Disconnect) {
			log.Warnf("Disconnected by hub, reason code %d", d.ReasonCode)
			p.dropClient()
		},
	})

	username := fmt.Sprintf("%s/%s/?api-version=2021-04-12", p.opts.Hub, p.opts.DeviceID)
	connack, err := client.Connect(ctx, &paho.Connect{
		ClientID:     p.opts.DeviceID,
		CleanStart:   true,
		KeepAlive:    60,
		Username:     username,
		UsernameFlag: true,
		Password:     []byte(token),
		PasswordFlag: true,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to hub: %v", err)
	}
	if connack.ReasonCode != 0 {
		conn.Close()
		return nil, fmt.Errorf("hub refused connection, reason code %d", connack.ReasonCode)
	}

	log.Infof("Connected to %s as %s", p.opts.Hub, p.opts.DeviceID)
	p.client = client
	return client, nil
}

func (p *MQTTPublisher) dropClient() {
	p.mu.Lock()
	p.client = nil
	p.mu.Unlock()
}

// Publish sends one payload at QoS 1, connecting first if needed. A
// failed publish drops the connection so the next attempt starts
// fresh with a new SAS token.
func (p *MQTTPublisher) Publish(ctx context.Context, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	client, err := p.connect(ctx)
	if err != nil {
		return err
	}

	_, err = client.Publish(ctx, &paho.Publish{
		QoS:     1,
		Topic:   p.telemetryTopic(),
		Payload: payload,
		Properties: &paho.PublishProperties{
			ContentType: "application/json",
			User: []paho.UserProperty{
				{Key: "message-id", Value: uuid.NewString()},
			},
		},
	})
	if err != nil {
		p.client = nil
		return fmt.Errorf("publish failed: %v", err)
	}
	return nil
}

// Close disconnects from the hub.
func (p *MQTTPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil
	}
	err := p.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
	p.client = nil
	return err
}
