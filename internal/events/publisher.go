package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	rediscommon "sensors-api/common/redis"

	"github.com/google/uuid"
)

type EventType string

const (
	SensorCreated EventType = "sensor.created"
	SensorUpdated EventType = "sensor.updated"
	SensorDeleted EventType = "sensor.deleted"
)

// Event is a change notification emitted after a committed write.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	SensorID   int64     `json:"sensor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewEvent(t EventType, sensorID int64, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		SensorID:   sensorID,
		OccurredAt: at.UTC(),
	}
}

// Publisher delivers change events. Callers treat failures as best effort.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// StreamPublisher appends events to a Redis stream.
type StreamPublisher struct {
	client *rediscommon.Client
	stream string
	maxLen int64
}

// NewStreamPublisher trims the stream to roughly maxLen entries when maxLen > 0.
func NewStreamPublisher(client *rediscommon.Client, stream string, maxLen int64) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

func (p *StreamPublisher) Publish(ctx context.Context, evt Event) error {
	_, err := rediscommon.PublishToStream(ctx, p.client, p.stream, p.maxLen, map[string]interface{}{
		"id":          evt.ID,
		"type":        string(evt.Type),
		"sensor_id":   evt.SensorID,
		"occurred_at": evt.OccurredAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return nil
}

// MQTTClient is the subset of the MQTT client the publisher needs.
type MQTTClient interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTPublisher sends each event as a JSON message on <topic>/<sensor id>.
type MQTTPublisher struct {
	client MQTTClient
	topic  string
	qos    byte
}

func NewMQTTPublisher(client MQTTClient, topic string, qos byte) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: topic, qos: qos}
}

func (p *MQTTPublisher) Publish(_ context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.client.Publish(p.topic+"/"+strconv.FormatInt(evt.SensorID, 10), p.qos, false, payload)
}
