package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:"

// RedisStore keeps sessions in an external cache so logins survive process
// restarts. Expiry is delegated to Redis TTLs.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(dsn string) (*RedisStore, error) {
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = 10
	opts.MinIdleConns = 5
	opts.ConnMaxIdleTime = 5 * time.Minute

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{rdb: rdb}, nil
}

func (r *RedisStore) Get(ctx context.Context, token string) (*Session, bool) {
	raw, err := r.rdb.Get(ctx, redisKeyPrefix+token).Result()
	if err != nil {
		return nil, false
	}
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, false
	}
	if s.Expired(time.Now()) {
		r.rdb.Del(ctx, redisKeyPrefix+token)
		return nil, false
	}
	return &s, true
}

func (r *RedisStore) Put(ctx context.Context, s *Session) {
	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	r.rdb.Set(ctx, redisKeyPrefix+s.Token, raw, time.Until(s.ExpiresAt))
}

func (r *RedisStore) Delete(ctx context.Context, token string) {
	r.rdb.Del(ctx, redisKeyPrefix+token)
}

// SweepExpired is a no-op: Redis evicts expired keys natively.
func (r *RedisStore) SweepExpired(context.Context) {}

func (r *RedisStore) Close() error {
	return r.rdb.Close()
}
