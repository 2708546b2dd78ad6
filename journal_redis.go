package chronicle

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type (
	// RedisJournal keeps each stream in a Redis list. A multi-stream
	// append runs as a single MULTI/EXEC pipeline, so a commit touching
	// several aggregates lands atomically
	RedisJournal struct {
		client *redis.Client
		prefix string
	}

	RedisConfig struct {
		Addr     string
		Password string
		Prefix   string
		DB       int
	}
)

const (
	RedisConnectTimeout = 5 * time.Second

	DefaultRedisEndpoint = "localhost:6379"
	DefaultRedisPrefix   = "chronicle"
	DefaultRedisDB       = 0

	eventsSuffix = ":events"
)

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:   DefaultRedisEndpoint,
		Prefix: DefaultRedisPrefix,
		DB:     DefaultRedisDB,
	}
}

// NewRedisJournal connects to Redis and verifies the connection
func NewRedisJournal(
	ctx context.Context, cfg RedisConfig,
) (*RedisJournal, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, RedisConnectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, err
	}

	return &RedisJournal{
		client: client,
		prefix: cfg.Prefix,
	}, nil
}

func (j *RedisJournal) Append(ctx context.Context, batches []Batch) error {
	if len(batches) == 0 {
		return nil
	}

	pipe := j.client.TxPipeline()
	for _, b := range batches {
		key := j.buildKey(b.Key)
		for _, ev := range b.Events {
			data, err := json.Marshal(ev)
			if err != nil {
				return err
			}
			pipe.RPush(ctx, key, data)
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (j *RedisJournal) Load(
	ctx context.Context, key string,
) ([]*Event, error) {
	items, err := j.client.LRange(ctx, j.buildKey(key), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	events := make([]*Event, 0, len(items))
	for _, item := range items {
		ev := &Event{}
		if err := json.Unmarshal([]byte(item), ev); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func (j *RedisJournal) Close() error {
	return j.client.Close()
}

func (j *RedisJournal) buildKey(key string) string {
	return fmt.Sprintf("%s:%s%s", j.prefix, key, eventsSuffix)
}
