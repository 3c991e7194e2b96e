package session

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in Redis hashes under "sess:<id>" with an idle
// TTL that slides on every access.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func sessKey(id string) string { return "sess:" + id }

func (s *RedisStore) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	// Mark the hash as existing even while empty; Get distinguishes a
	// missing session from an anonymous one by this field.
	if err := s.rdb.HSet(ctx, sessKey(id), "user_id", "0").Err(); err != nil {
		return "", err
	}
	if err := s.rdb.Expire(ctx, sessKey(id), s.ttl).Err(); err != nil {
		return "", err
	}
	return id, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Data, error) {
	vals, err := s.rdb.HGetAll(ctx, sessKey(id)).Result()
	if err != nil {
		return Data{}, err
	}
	if len(vals) == 0 {
		return Data{}, ErrNoSession
	}
	var d Data
	if raw, ok := vals["user_id"]; ok {
		if n, err := strconv.ParseUint(raw, 10, 64); err == nil {
			d.UserID = n
		}
	}
	d.CSRFToken = vals["csrf_token"]
	// Slide the idle TTL.
	_ = s.rdb.Expire(ctx, sessKey(id), s.ttl).Err()
	return d, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, sessKey(id)).Err()
}

func (s *RedisStore) BindUser(ctx context.Context, id string, userID uint64) error {
	if err := s.exists(ctx, id); err != nil {
		return err
	}
	return s.rdb.HSet(ctx, sessKey(id), "user_id", strconv.FormatUint(userID, 10)).Err()
}

func (s *RedisStore) EnsureCSRF(ctx context.Context, id string) (string, error) {
	if err := s.exists(ctx, id); err != nil {
		return "", err
	}
	tok, err := s.rdb.HGet(ctx, sessKey(id), "csrf_token").Result()
	if err == nil && tok != "" {
		return tok, nil
	}
	if err != nil && err != redis.Nil {
		return "", err
	}
	fresh, err := newToken()
	if err != nil {
		return "", err
	}
	// HSETNX keeps the first token if two requests race on the same session.
	if err := s.rdb.HSetNX(ctx, sessKey(id), "csrf_token", fresh).Err(); err != nil {
		return "", err
	}
	return s.rdb.HGet(ctx, sessKey(id), "csrf_token").Result()
}

func (s *RedisStore) AddFlash(ctx context.Context, id string, f Flash) error {
	if err := s.exists(ctx, id); err != nil {
		return err
	}
	flashes, err := s.flashes(ctx, id)
	if err != nil {
		return err
	}
	flashes = append(flashes, f)
	raw, err := json.Marshal(flashes)
	if err != nil {
		return err
	}
	return s.rdb.HSet(ctx, sessKey(id), "flashes", string(raw)).Err()
}

func (s *RedisStore) PopFlashes(ctx context.Context, id string) ([]Flash, error) {
	flashes, err := s.flashes(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(flashes) == 0 {
		return nil, nil
	}
	if err := s.rdb.HDel(ctx, sessKey(id), "flashes").Err(); err != nil {
		return nil, err
	}
	return flashes, nil
}

func (s *RedisStore) flashes(ctx context.Context, id string) ([]Flash, error) {
	raw, err := s.rdb.HGet(ctx, sessKey(id), "flashes").Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []Flash
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RedisStore) exists(ctx context.Context, id string) error {
	n, err := s.rdb.Exists(ctx, sessKey(id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoSession
	}
	return nil
}
