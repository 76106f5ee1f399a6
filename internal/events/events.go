// FilePath: internal/events/events.go
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	nuts "github.com/vaudience/go-nuts"
)

// Event names published on the hub event bus. Frontends and sibling hub
// processes subscribe to these to mirror state changes live.
const (
	EventSensorUpdate   = "sensor:update"
	EventActuatorUpdate = "actuator:update"
	EventAlertNew       = "alert:new"
	EventDeviceStatus   = "device:status"
	EventCommandCreated = "device:command-created"
	EventCommandUpdate  = "device:command-update"
)

// channelPrefix namespaces the hub's channels on a shared Redis.
const channelPrefix = "agrihub:events:"

// Envelope is the wire form of a published event.
type Envelope struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Publisher fans hub events out to interested subscribers. Publishing is
// best-effort: a failed publish must never fail the operation that caused it.
type Publisher interface {
	Publish(ctx context.Context, event string, data interface{})
	Close() error
}

// RedisPublisher pushes events onto Redis pub/sub channels, one channel per
// event name plus a firehose channel carrying everything.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, event string, data interface{}) {
	payload, err := json.Marshal(Envelope{
		Event:     event,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		nuts.L.Warnf("[Events] Failed to marshal %s event: %v", event, err)
		return
	}

	if err := p.client.Publish(ctx, channelPrefix+event, payload).Err(); err != nil {
		nuts.L.Warnf("[Events] Failed to publish %s event: %v", event, err)
		return
	}
	if err := p.client.Publish(ctx, channelPrefix+"all", payload).Err(); err != nil {
		nuts.L.Warnf("[Events] Failed to publish %s to firehose: %v", event, err)
	}
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// NopPublisher drops all events. Used in tests and when Redis is not
// configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event string, data interface{}) {}
func (NopPublisher) Close() error                                                { return nil }
