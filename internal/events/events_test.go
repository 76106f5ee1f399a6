// FilePath: internal/events/events_test.go
package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPublisher(t *testing.T) (*RedisPublisher, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisPublisher(client), client
}

func TestRedisPublisherDeliversEnvelope(t *testing.T) {
	pub, client := newTestPublisher(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, channelPrefix+EventAlertNew)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	pub.Publish(ctx, EventAlertNew, map[string]string{"id": "alr_1"})

	select {
	case msg := <-sub.Channel():
		var env Envelope
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &env))
		assert.Equal(t, EventAlertNew, env.Event)
		assert.WithinDuration(t, time.Now(), env.Timestamp, 5*time.Second)
		data, ok := env.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "alr_1", data["id"])
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestRedisPublisherMirrorsToFirehose(t *testing.T) {
	pub, client := newTestPublisher(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, channelPrefix+"all")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	pub.Publish(ctx, EventSensorUpdate, map[string]float64{"moisture": 42})

	select {
	case msg := <-sub.Channel():
		var env Envelope
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &env))
		assert.Equal(t, EventSensorUpdate, env.Event)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received on firehose")
	}
}

func TestPublishSurvivesDeadRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	pub := NewRedisPublisher(client)
	mr.Close()

	// Best-effort contract: no panic, no error surfaced.
	pub.Publish(context.Background(), EventDeviceStatus, "dev-1")
}
