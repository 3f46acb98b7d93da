package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tbourn/go-message-backend/internal/domain"
)

// DefaultTokenKeyPrefix namespaces token keys in Redis.
const DefaultTokenKeyPrefix = "auth:token:"

var (
	ErrRedisURL      = errors.New("failed to parse redis connection string")
	ErrRedisNotReady = errors.New("redis did not answer ping")
)

// redisKV is the subset of redis.Cmdable the token store needs.
type redisKV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// OpenRedis parses url, connects and pings the server within timeout.
func OpenRedis(ctx context.Context, url string, timeout time.Duration) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Join(ErrRedisURL, err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Join(ErrRedisNotReady, err)
	}
	return client, nil
}

// RedisTokenStore keeps tokens as JSON values whose Redis TTL matches the
// token lifetime, so expired tokens disappear on their own.
type RedisTokenStore struct {
	client redisKV
	prefix string
}

// NewRedisTokenStore returns a store using client. An empty prefix selects
// DefaultTokenKeyPrefix.
func NewRedisTokenStore(client redisKV, prefix string) *RedisTokenStore {
	if prefix == "" {
		prefix = DefaultTokenKeyPrefix
	}
	return &RedisTokenStore{client: client, prefix: prefix}
}

type redisToken struct {
	Subject   string    `json:"sub"`
	Grant     string    `json:"grant"`
	CreatedAt time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// Save stores tok until its expiry. A token that is already expired is not
// stored.
func (s *RedisTokenStore) Save(ctx context.Context, tok domain.Token) error {
	if tok.CreatedAt.IsZero() {
		tok.CreatedAt = time.Now().UTC()
	}
	ttl := time.Until(tok.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(redisToken{
		Subject:   tok.Subject,
		Grant:     tok.Grant,
		CreatedAt: tok.CreatedAt,
		ExpiresAt: tok.ExpiresAt,
	})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(tok.Digest), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Lookup returns the live token for digest or ErrNotFound.
func (s *RedisTokenStore) Lookup(ctx context.Context, digest string, now time.Time) (*domain.Token, error) {
	val, err := s.client.Get(ctx, s.key(digest)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var rt redisToken
	if err := json.Unmarshal([]byte(val), &rt); err != nil {
		return nil, err
	}
	if !rt.ExpiresAt.After(now) {
		return nil, ErrNotFound
	}
	return &domain.Token{
		Digest:    digest,
		Subject:   rt.Subject,
		Grant:     rt.Grant,
		CreatedAt: rt.CreatedAt,
		ExpiresAt: rt.ExpiresAt,
	}, nil
}

// Revoke deletes the token; revoking an unknown digest is not an error.
func (s *RedisTokenStore) Revoke(ctx context.Context, digest string) error {
	return s.client.Del(ctx, s.key(digest)).Err()
}

func (s *RedisTokenStore) key(digest string) string {
	return s.prefix + digest
}
