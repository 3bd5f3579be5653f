package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"hirafetch/pkg/logger"
)

// DefaultKeyPrefix namespaces checkpoint keys
const DefaultKeyPrefix = "hirafetch:checkpoint:"

// RedisOptions configures a RedisStore
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	// TTL expires abandoned checkpoints; zero keeps them forever
	TTL time.Duration
}

// RedisStore keeps a checkpoint as a JSON string under one Redis key
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger logger.Logger
}

// NewRedisStore connects lazily to Redis and stores the named checkpoint
func NewRedisStore(opts RedisOptions, name string, log logger.Logger) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return NewRedisStoreWithClient(client, prefix+name, opts.TTL, log)
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client *redis.Client, key string, ttl time.Duration, log logger.Logger) *RedisStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &RedisStore{client: client, key: key, ttl: ttl, logger: log}
}

// Location returns the Redis key
func (r *RedisStore) Location() string {
	return "redis://" + r.client.Options().Addr + "/" + r.key
}

// Key returns the Redis key holding the checkpoint
func (r *RedisStore) Key() string {
	return r.key
}

// Save writes the checkpoint with the configured TTL
func (r *RedisStore) Save(ctx context.Context, state *State) error {
	data, err := encode(state)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	r.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"key":         r.key,
		"last_cursor": state.LastCursor,
		"items":       state.TotalItems,
	})
	return nil
}

// Load reads the checkpoint. A missing key or a corrupt payload yields nil, nil.
func (r *RedisStore) Load(ctx context.Context) (*State, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	state, err := decode(data)
	if err != nil {
		r.logger.WarnWithFields("Ignoring unreadable checkpoint", map[string]interface{}{
			"key":   r.key,
			"error": err.Error(),
		})
		return nil, nil
	}

	r.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"key":         r.key,
		"kind":        state.Kind,
		"last_cursor": state.LastCursor,
		"items":       len(state.Items),
	})
	return state, nil
}

// Delete removes the key; deleting a missing key is not an error
func (r *RedisStore) Delete(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close releases the Redis connection pool
func (r *RedisStore) Close() error {
	return r.client.Close()
}
