package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "selfiebot:schedule:2026-10-17", (&Cache{prefix: "selfiebot"}).Key("schedule", "2026-10-17"))
	assert.Equal(t, "ratelimit:u1", (&Cache{}).Key("ratelimit", "u1"))
}

func TestRedisCache_Integration(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	c, err := NewRedisCache(url, "selfiebot_test")
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	key := c.Key("cache", time.Now().Format(time.RFC3339Nano))
	require.NoError(t, c.Set(ctx, key, "value", time.Minute))

	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "value", got)

	require.NoError(t, c.Delete(ctx, key))
	_, err = c.Get(ctx, key)
	assert.Error(t, err)
}
