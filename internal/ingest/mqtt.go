// FilePath: internal/ingest/mqtt.go
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	cmap "github.com/orcaman/concurrent-map/v2"
	nuts "github.com/vaudience/go-nuts"
	"github.com/vermilinks/agrihub/internal/config"
	"github.com/vermilinks/agrihub/internal/dispatch"
	"github.com/vermilinks/agrihub/internal/models"
)

// ReadingSink receives parsed telemetry; the hub service implements it.
type ReadingSink interface {
	HandleReading(ctx context.Context, topic, deviceID string, payload []byte, reading *models.Reading) (bool, error)
}

// ChannelRegistrar accepts live channel registrations; the command queue
// implements it.
type ChannelRegistrar interface {
	RegisterChannel(ctx context.Context, deviceID string, ch dispatch.Channel)
}

// MQTTIngestor subscribes to the device telemetry topics and feeds parsed
// readings into the hub. A device publishing telemetry also gets an MQTT
// command channel registered, so dispatch can answer over the same broker.
type MQTTIngestor struct {
	cfg        config.MQTTConfig
	client     mqtt.Client
	sink       ReadingSink
	registrar  ChannelRegistrar
	registered cmap.ConcurrentMap[string, bool]
}

func NewMQTTIngestor(cfg config.MQTTConfig, sink ReadingSink, registrar ChannelRegistrar) *MQTTIngestor {
	ing := &MQTTIngestor{
		cfg:        cfg,
		sink:       sink,
		registrar:  registrar,
		registered: cmap.New[bool](),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(ing.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			nuts.L.Warnf("[MQTTIngest] Connection lost: %v", err)
		})

	ing.client = mqtt.NewClient(opts)
	return ing
}

// Start connects to the broker. Subscriptions are (re)established in the
// connect handler so they survive reconnects.
func (m *MQTTIngestor) Start() error {
	token := m.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect failed: %w", err)
	}
	return nil
}

func (m *MQTTIngestor) Stop() {
	m.client.Disconnect(250)
}

// Client exposes the underlying connection for command channel construction.
func (m *MQTTIngestor) Client() mqtt.Client {
	return m.client
}

func (m *MQTTIngestor) onConnect(client mqtt.Client) {
	nuts.L.Infof("[MQTTIngest] Connected to %s, subscribing to %s", m.cfg.BrokerURL, m.cfg.Subscriptions)
	token := client.Subscribe(m.cfg.Subscriptions, 1, m.onMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		nuts.L.Errorf("[MQTTIngest] Subscribe failed: %v", err)
	}
}

func (m *MQTTIngestor) onMessage(_ mqtt.Client, msg mqtt.Message) {
	deviceID, ok := deviceIDFromTopic(msg.Topic())
	if !ok {
		return
	}

	var payload TelemetryPayload
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		nuts.L.Warnf("[MQTTIngest] Unparseable payload on %s: %v", msg.Topic(), err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reading := payload.ToReading(deviceID, "mqtt")
	accepted, err := m.sink.HandleReading(ctx, msg.Topic(), deviceID, msg.Payload(), reading)
	if err != nil {
		nuts.L.Errorf("[MQTTIngest] Failed to handle reading from %s: %v", deviceID, err)
		return
	}
	if accepted && m.registered.SetIfAbsent(deviceID, true) {
		commandTopic := fmt.Sprintf(m.cfg.CommandTopic, deviceID)
		m.registrar.RegisterChannel(ctx, deviceID, dispatch.NewMQTTChannel(m.client, commandTopic))
	}
}

// deviceIDFromTopic extracts the device id from "<root>/<deviceId>" telemetry
// topics. Deeper topics (command, ack) belong to other consumers.
func deviceIDFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 2 || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
