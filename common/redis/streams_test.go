package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamValues(t *testing.T) {
	out, err := StreamValues(map[string]interface{}{
		"type":      "sensor.updated",
		"sensor_id": int64(42),
		"count":     3,
		"value":     21.5,
		"ok":        true,
		"raw":       []byte("x"),
		"tags":      []string{"a", "b"},
	})
	require.NoError(t, err)

	assert.Equal(t, "sensor.updated", out["type"])
	assert.Equal(t, "42", out["sensor_id"])
	assert.Equal(t, "3", out["count"])
	assert.Equal(t, "21.5", out["value"])
	assert.Equal(t, "true", out["ok"])
	assert.Equal(t, "x", out["raw"])
	assert.Equal(t, `["a","b"]`, out["tags"])
}

func TestStreamValues_Unencodable(t *testing.T) {
	_, err := StreamValues(map[string]interface{}{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestPublishToStream(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		id, err := PublishToStream(ctx, client, "s", 0, map[string]interface{}{"n": i})
		require.NoError(t, err)
		assert.NotEmpty(t, id)
	}
	n, err := client.XLen(ctx, "s").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}
