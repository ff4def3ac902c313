package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"price-relay/src/helpers"
	"price-relay/src/models"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the part of go-redis the publisher uses.
type RedisClient interface {
	Pipeline() redis.Pipeliner
	Close() error
}

// RedisPublisher stores the latest payload under one key and publishes it on
// a channel, in a single round trip.
type RedisPublisher struct {
	Client    RedisClient
	Channel   string
	LatestKey string
}

// -----------------------------------------------------------------------------

func NewRedisPublisher(cfg models.MRedisConfig) *RedisPublisher {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisPublisher{Client: rdb, Channel: cfg.Channel, LatestKey: cfg.LatestKey}
}

func (r *RedisPublisher) Name() string { return "redis" }

// -----------------------------------------------------------------------------

func (r *RedisPublisher) Publish(ctx context.Context, push models.MPricePush) error {
	payload, err := json.Marshal(push)
	if err != nil {
		return helpers.NewPublishError("encode redis payload", err)
	}

	pipe := r.Client.Pipeline()
	pipe.Set(ctx, r.LatestKey, payload, 0)
	pipe.Publish(ctx, r.Channel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return helpers.NewPublishError(fmt.Sprintf("redis pipeline (%s)", r.Channel), err)
	}
	return nil
}

func (r *RedisPublisher) Close() error {
	return r.Client.Close()
}
