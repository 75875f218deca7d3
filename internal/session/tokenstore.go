package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// ErrNoToken means no usable token is stored.
var ErrNoToken = errors.New("no valid token (login required)")

// TokenStore persists the bearer token between runs of the console.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string, expiresAt time.Time) error
	Clear(ctx context.Context) error
}

// TokenExpiry reads the exp claim of a JWT without verifying it; the server
// verifies. The zero time means unknown.
func TokenExpiry(token string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// ---- file ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// FileStore keeps the token in a 0600 JSON file.
type FileStore struct {
	path string
	now  func() time.Time
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

func (s *FileStore) Load(context.Context) (string, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", fmt.Errorf("failed to parse token file: %w", err)
	}
	if tf.AccessToken == "" || (!tf.ExpiresAt.IsZero() && s.now().After(tf.ExpiresAt)) {
		return "", ErrNoToken
	}
	return tf.AccessToken, nil
}

func (s *FileStore) Save(_ context.Context, token string, expiresAt time.Time) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token dir: %w", err)
	}
	b, err := json.MarshalIndent(tokenFile{AccessToken: token, ExpiresAt: expiresAt}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o600)
}

func (s *FileStore) Clear(context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

// ---- memory ----

const memoryKey = "token"

// MemoryStore keeps the token for the life of the process.
type MemoryStore struct {
	c *cache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: cache.New(cache.NoExpiration, 10*time.Minute)}
}

func (s *MemoryStore) Load(context.Context) (string, error) {
	v, ok := s.c.Get(memoryKey)
	if !ok {
		return "", ErrNoToken
	}
	return v.(string), nil
}

func (s *MemoryStore) Save(_ context.Context, token string, expiresAt time.Time) error {
	ttl := cache.NoExpiration
	if !expiresAt.IsZero() {
		ttl = time.Until(expiresAt)
		if ttl <= 0 {
			return nil
		}
	}
	s.c.Set(memoryKey, token, ttl)
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.c.Delete(memoryKey)
	return nil
}

// ---- redis ----

// RedisStore shares one token between consoles on a kiosk setup.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

func NewRedisStore(client redis.UniversalClient, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

// DialRedisStore parses url, pings the server and returns a store.
func DialRedisStore(ctx context.Context, url, key string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisStore(client, key), nil
}

func (s *RedisStore) Load(ctx context.Context) (string, error) {
	tok, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return tok, nil
}

func (s *RedisStore) Save(ctx context.Context, token string, expiresAt time.Time) error {
	var ttl time.Duration
	if !expiresAt.IsZero() {
		ttl = time.Until(expiresAt)
		if ttl <= 0 {
			return nil
		}
	}
	return s.client.Set(ctx, s.key, token, ttl).Err()
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
