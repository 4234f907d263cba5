package conn

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisOption defines connection options for Redis.
type RedisOption struct {
	Addr     string
	Password string
	DB       int
}

// NewRedis opens a Redis client and verifies it with a ping.
func NewRedis(ctx context.Context, option RedisOption) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     option.Addr,
		Password: option.Password,
		DB:       option.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
