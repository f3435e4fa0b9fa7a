package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rongwang/yana-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseTokenStore(t *testing.T, store TokenStore) {
	ctx := context.Background()
	jti := uuid.New().String()

	revoked, err := store.IsRevoked(ctx, jti)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, jti, time.Minute))
	revoked, err = store.IsRevoked(ctx, jti)
	require.NoError(t, err)
	assert.True(t, revoked)

	other := uuid.New().String()
	require.NoError(t, store.Revoke(ctx, other, 0))
	revoked, err = store.IsRevoked(ctx, other)
	require.NoError(t, err)
	assert.False(t, revoked, "expired tokens are not recorded")
}

func exerciseCatalogCache(t *testing.T, c CatalogCache) {
	ctx := context.Background()
	require.NoError(t, c.Invalidate(ctx))

	_, ok, err := c.GetEmotions(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	image := "sad.png"
	emotions := []models.Emotion{{ID: 1, Name: "Sadness", Image: &image}, {ID: 2, Name: "Tranquility"}}
	require.NoError(t, c.SetEmotions(ctx, emotions))

	got, ok, err := c.GetEmotions(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, emotions, got)

	require.NoError(t, c.Invalidate(ctx))
	_, ok, err = c.GetEmotions(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	exerciseTokenStore(t, store)
	exerciseCatalogCache(t, store)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Revoke(context.Background(), "jti", time.Hour))
	now = now.Add(2 * time.Hour)

	revoked, err := store.IsRevoked(context.Background(), "jti")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	client, err := Connect(context.Background(), addr, "", 0)
	require.NoError(t, err)
	defer client.Close()

	store := NewRedisStore(client, time.Minute)
	exerciseTokenStore(t, store)
	exerciseCatalogCache(t, store)
}
