// FilePath: internal/dispatch/channel.go
package dispatch

import (
	"context"
	"encoding/json"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/vermilinks/agrihub/internal/errors"
	"github.com/vermilinks/agrihub/internal/models"
)

// Channel is a live downstream path to one device. Register whatever
// transport the device connected over; the queue only cares that Send either
// hands the message to the device or errors.
type Channel interface {
	Send(ctx context.Context, msg models.CommandMessage) error
	Kind() string
}

// MQTTChannel pushes command messages onto the device's command topic.
type MQTTChannel struct {
	client mqtt.Client
	topic  string
}

func NewMQTTChannel(client mqtt.Client, topic string) *MQTTChannel {
	return &MQTTChannel{client: client, topic: topic}
}

func (c *MQTTChannel) Kind() string { return "mqtt" }

// Send publishes at QoS 1: the broker redelivers on a flaky link, and the
// queue's own retry loop covers everything beyond the broker.
func (c *MQTTChannel) Send(ctx context.Context, msg models.CommandMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return errors.NewInternalError("failed to marshal command message", err)
	}

	token := c.client.Publish(c.topic, 1, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return errors.NewInternalError("failed to publish command to "+c.topic, err)
	}
	return nil
}
