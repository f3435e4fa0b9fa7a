// Package cache holds the Redis-backed state shared between server instances:
// the revoked refresh token list and the emotion catalog cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rongwang/yana-server/internal/models"
)

const (
	revokedTokenPrefix = "yana:revoked:"
	catalogKey         = "yana:catalog:emotions"
)

// TokenStore tracks revoked refresh tokens by their jti
type TokenStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// CatalogCache caches the emotion catalog. Get reports ok=false on a miss.
type CatalogCache interface {
	GetEmotions(ctx context.Context) (emotions []models.Emotion, ok bool, err error)
	SetEmotions(ctx context.Context, emotions []models.Emotion) error
	Invalidate(ctx context.Context) error
}

// Store is the combined token and catalog store shared by the server and the admin command
type Store interface {
	TokenStore
	CatalogCache
}

// RedisStore implements TokenStore and CatalogCache on a Redis client
type RedisStore struct {
	client     *redis.Client
	catalogTTL time.Duration
}

// NewRedisStore creates a new RedisStore
func NewRedisStore(client *redis.Client, catalogTTL time.Duration) *RedisStore {
	return &RedisStore{
		client:     client,
		catalogTTL: catalogTTL,
	}
}

// Connect opens a Redis client and verifies the connection
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (s *RedisStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // already expired
	}
	return s.client.Set(ctx, revokedTokenPrefix+jti, 1, ttl).Err()
}

func (s *RedisStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedTokenPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) GetEmotions(ctx context.Context) ([]models.Emotion, bool, error) {
	raw, err := s.client.Get(ctx, catalogKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var emotions []models.Emotion
	if err := json.Unmarshal(raw, &emotions); err != nil {
		return nil, false, fmt.Errorf("corrupt catalog cache entry: %w", err)
	}
	return emotions, true, nil
}

func (s *RedisStore) SetEmotions(ctx context.Context, emotions []models.Emotion) error {
	raw, err := json.Marshal(emotions)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, catalogKey, raw, s.catalogTTL).Err()
}

func (s *RedisStore) Invalidate(ctx context.Context) error {
	return s.client.Del(ctx, catalogKey).Err()
}

// MemoryStore is an in-process TokenStore and CatalogCache for tests and single-node runs
type MemoryStore struct {
	mu       sync.Mutex
	revoked  map[string]time.Time
	catalog  []models.Emotion
	hasValue bool
	now      func() time.Time
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (m *MemoryStore) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = m.now().Add(ttl)
	return nil
}

func (m *MemoryStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	until, ok := m.revoked[jti]
	if !ok {
		return false, nil
	}
	if m.now().After(until) {
		delete(m.revoked, jti)
		return false, nil
	}
	return true, nil
}

func (m *MemoryStore) GetEmotions(_ context.Context) ([]models.Emotion, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.hasValue {
		return nil, false, nil
	}
	out := make([]models.Emotion, len(m.catalog))
	copy(out, m.catalog)
	return out, true, nil
}

func (m *MemoryStore) SetEmotions(_ context.Context, emotions []models.Emotion) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.catalog = make([]models.Emotion, len(emotions))
	copy(m.catalog, emotions)
	m.hasValue = true
	return nil
}

func (m *MemoryStore) Invalidate(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.catalog = nil
	m.hasValue = false
	return nil
}

var (
	_ Store = (*RedisStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
