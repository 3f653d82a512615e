package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func exerciseWatermarks(t *testing.T, w Watermarks) {
	t.Helper()
	ctx := context.Background()
	today := day(2024, time.March, 12)

	done, err := w.Delivered(ctx, primaryID, today)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, w.MarkDelivered(ctx, primaryID, today))
	require.NoError(t, w.MarkDelivered(ctx, primaryID, today))

	done, err = w.Delivered(ctx, primaryID, today)
	require.NoError(t, err)
	assert.True(t, done)

	done, err = w.Delivered(ctx, spouseID, today)
	require.NoError(t, err)
	assert.False(t, done, "watermarks are per recipient")

	done, err = w.Delivered(ctx, primaryID, today.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, done, "watermarks are per day")
}

func TestMemoryWatermarks(t *testing.T) {
	exerciseWatermarks(t, NewMemoryWatermarks())
}

func TestRedisWatermarks(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	w, err := NewRedisWatermarks(ctx, RedisConfig{Addr: endpoint})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	exerciseWatermarks(t, w)

	ttl, err := w.client.TTL(ctx, w.key(primaryID, day(2024, time.March, 12))).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 24*time.Hour)
}

func TestRedisWatermarksKeyPrefix(t *testing.T) {
	w := NewRedisWatermarksWithClient(redis.NewClient(&redis.Options{Addr: "localhost:0"}), "")
	t.Cleanup(func() { _ = w.Close() })
	assert.Equal(t, "reminder:delivered:42:2024-03-12", w.key(42, day(2024, time.March, 12)))
}

func TestRedisWatermarksWrapErrors(t *testing.T) {
	w := NewRedisWatermarksWithClient(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	}), "")
	t.Cleanup(func() { _ = w.Close() })

	_, err := w.Delivered(context.Background(), 42, day(2024, time.March, 12))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read reminder watermark")

	err = w.MarkDelivered(context.Background(), 42, day(2024, time.March, 12))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write reminder watermark")
}
