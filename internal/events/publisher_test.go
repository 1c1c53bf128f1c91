package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	a := NewEvent(SensorCreated, 3, at)
	b := NewEvent(SensorCreated, 3, at)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, SensorCreated, a.Type)
	assert.Equal(t, int64(3), a.SensorID)
	assert.Equal(t, time.UTC, a.OccurredAt.Location())
	assert.True(t, at.Equal(a.OccurredAt))
}

func TestStreamPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	p := NewStreamPublisher(client, "sensors:events", 100)
	evt := NewEvent(SensorUpdated, 9, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))

	require.NoError(t, p.Publish(context.Background(), evt))

	msgs, err := client.XRange(context.Background(), "sensors:events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, evt.ID, msgs[0].Values["id"])
	assert.Equal(t, "sensor.updated", msgs[0].Values["type"])
	assert.Equal(t, "9", msgs[0].Values["sensor_id"])
	assert.Equal(t, "2024-05-01T10:00:00Z", msgs[0].Values["occurred_at"])
}

func TestStreamPublisher_ServerError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.SetError("ERR stream unavailable")

	p := NewStreamPublisher(client, "sensors:events", 0)
	err := p.Publish(context.Background(), NewEvent(SensorDeleted, 1, time.Now()))
	assert.Error(t, err)
}

type fakeMQTT struct {
	topic   string
	qos     byte
	payload []byte
	err     error
}

func (f *fakeMQTT) Publish(topic string, qos byte, _ bool, payload []byte) error {
	f.topic = topic
	f.qos = qos
	f.payload = payload
	return f.err
}

func TestMQTTPublisher(t *testing.T) {
	fake := &fakeMQTT{}
	p := NewMQTTPublisher(fake, "sensors/events", 1)
	evt := NewEvent(SensorCreated, 4, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))

	require.NoError(t, p.Publish(context.Background(), evt))
	assert.Equal(t, "sensors/events/4", fake.topic)
	assert.Equal(t, byte(1), fake.qos)

	var got map[string]any
	require.NoError(t, json.Unmarshal(fake.payload, &got))
	assert.Equal(t, "sensor.created", got["type"])
	assert.Equal(t, float64(4), got["sensor_id"])
	assert.Equal(t, evt.ID, got["id"])

	fake.err = errors.New("not connected")
	assert.Error(t, p.Publish(context.Background(), evt))
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), NewEvent(SensorCreated, 1, time.Now())))
}
