package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Watermarks remember which recipients already got their batch on a given
// calendar day.
type Watermarks interface {
	Delivered(ctx context.Context, recipient int64, day time.Time) (bool, error)
	MarkDelivered(ctx context.Context, recipient int64, day time.Time) error
}

func dayKey(day time.Time) string {
	return day.Format("2006-01-02")
}

// MemoryWatermarks keeps the last delivery day per recipient. It is lost on
// restart, which can repeat at most one batch.
type MemoryWatermarks struct {
	mu   sync.Mutex
	last map[int64]string
}

func NewMemoryWatermarks() *MemoryWatermarks {
	return &MemoryWatermarks{last: make(map[int64]string)}
}

func (w *MemoryWatermarks) Delivered(_ context.Context, recipient int64, day time.Time) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last[recipient] == dayKey(day), nil
}

func (w *MemoryWatermarks) MarkDelivered(_ context.Context, recipient int64, day time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.last[recipient] = dayKey(day)
	return nil
}

const (
	defaultKeyPrefix = "reminder:delivered:"
	watermarkTTL     = 48 * time.Hour
)

// RedisWatermarks shares the per-day markers between restarts and
// instances.
type RedisWatermarks struct {
	client    *redis.Client
	keyPrefix string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisWatermarks connects and pings the server.
func NewRedisWatermarks(ctx context.Context, cfg RedisConfig) (*RedisWatermarks, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}
	return NewRedisWatermarksWithClient(client, ""), nil
}

func NewRedisWatermarksWithClient(client *redis.Client, keyPrefix string) *RedisWatermarks {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisWatermarks{client: client, keyPrefix: keyPrefix}
}

func (w *RedisWatermarks) key(recipient int64, day time.Time) string {
	return fmt.Sprintf("%s%d:%s", w.keyPrefix, recipient, dayKey(day))
}

func (w *RedisWatermarks) Delivered(ctx context.Context, recipient int64, day time.Time) (bool, error) {
	exists, err := w.client.Exists(ctx, w.key(recipient, day)).Result()
	if err != nil {
		return false, errors.Wrap(err, "failed to read reminder watermark")
	}
	return exists > 0, nil
}

func (w *RedisWatermarks) MarkDelivered(ctx context.Context, recipient int64, day time.Time) error {
	if err := w.client.SetNX(ctx, w.key(recipient, day), "1", watermarkTTL).Err(); err != nil {
		return errors.Wrap(err, "failed to write reminder watermark")
	}
	return nil
}

func (w *RedisWatermarks) Close() error {
	return w.client.Close()
}

var (
	_ Watermarks = (*MemoryWatermarks)(nil)
	_ Watermarks = (*RedisWatermarks)(nil)
)
