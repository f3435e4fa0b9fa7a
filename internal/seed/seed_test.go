package seed

import (
	"context"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/rongwang/yana-server/internal/cache"
	"github.com/rongwang/yana-server/internal/encryption"
	"github.com/rongwang/yana-server/internal/matching"
	"github.com/rongwang/yana-server/internal/models"
	"github.com/rongwang/yana-server/internal/repository"
	"github.com/rongwang/yana-server/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSeeder(t *testing.T) (*Seeder, *repository.MemoryRepository) {
	t.Helper()

	codec, err := encryption.NewCoordinateCodec("seed-test-key")
	require.NoError(t, err)
	repo := repository.NewMemoryRepository(codec, nil)
	store := cache.NewMemoryStore()
	svc := service.NewDefaultService(repo, matching.NewEngine(repo, nil), store, store,
		service.Config{JWTSecret: "seed-secret", AccessTTL: time.Minute, RefreshTTL: time.Hour}, nil)

	s := NewSeeder(repo, svc, nil).WithRand(rand.New(rand.NewPCG(1, 2)))
	s.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return s, repo
}

func TestAddEmotionsIsIdempotent(t *testing.T) {
	s, repo := newSeeder(t)
	ctx := context.Background()

	created, err := s.AddEmotions(ctx, DefaultEmotions)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultEmotions), created)

	created, err = s.AddEmotions(ctx, DefaultEmotions)
	require.NoError(t, err)
	assert.Zero(t, created)

	emotions, err := repo.ListEmotions(ctx)
	require.NoError(t, err)
	assert.Len(t, emotions, len(DefaultEmotions))
}

func TestCatalogChangesInvalidateSharedCache(t *testing.T) {
	codec, err := encryption.NewCoordinateCodec("seed-test-key")
	require.NoError(t, err)
	repo := repository.NewMemoryRepository(codec, nil)
	store := cache.NewMemoryStore()
	cfg := service.Config{JWTSecret: "seed-secret", AccessTTL: time.Minute, RefreshTTL: time.Hour}

	// The server and the admin command run separate services over one database and one cache
	server := service.NewDefaultService(repo, matching.NewEngine(repo, nil), store, store, cfg, nil)
	admin := service.NewDefaultService(repo, matching.NewEngine(repo, nil), store, store, cfg, nil)
	s := NewSeeder(repo, admin, nil)
	ctx := context.Background()

	list, err := server.ListEmotions(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = s.AddEmotions(ctx, DefaultEmotions)
	require.NoError(t, err)
	list, err = server.ListEmotions(ctx)
	require.NoError(t, err)
	assert.Len(t, list, len(DefaultEmotions))

	_, err = s.DeleteLastEmotions(ctx, 2)
	require.NoError(t, err)
	list, err = server.ListEmotions(ctx)
	require.NoError(t, err)
	assert.Len(t, list, len(DefaultEmotions)-2)
}

func TestDeleteLastEmotions(t *testing.T) {
	s, repo := newSeeder(t)
	ctx := context.Background()
	_, err := s.AddEmotions(ctx, DefaultEmotions)
	require.NoError(t, err)

	deleted, err := s.DeleteLastEmotions(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tranquility", "Reluctance"}, deleted)

	emotions, err := repo.ListEmotions(ctx)
	require.NoError(t, err)
	assert.Len(t, emotions, 3)

	deleted, err = s.DeleteLastEmotions(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, deleted, 3)

	_, err = s.DeleteLastEmotions(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidCount)
}

func TestLoadTemplates(t *testing.T) {
	s, repo := newSeeder(t)
	ctx := context.Background()

	input := `[{"text": "Hang in there"}, {"text": "  "}, {"other": 1}, {"text": "Hang in there"}, {"text": "I'm with you"}]`
	result, err := s.LoadTemplates(ctx, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, TemplateLoadResult{New: 2, Existing: 1, Invalid: 2}, result)

	templates, err := repo.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, templates, 2)

	_, err = s.LoadTemplates(ctx, strings.NewReader("not json"))
	assert.Error(t, err)
}

func TestMakeAdmin(t *testing.T) {
	s, repo := newSeeder(t)
	ctx := context.Background()

	emails, err := s.CreateTestUsers(ctx, "", 1)
	require.NoError(t, err)

	require.NoError(t, s.MakeAdmin(ctx, emails[0]))
	user, err := repo.GetUserByEmail(ctx, emails[0])
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)

	assert.ErrorIs(t, s.MakeAdmin(ctx, "missing@example.com"), ErrUserNotFound)
}

func TestCreateTestUsersContinuesNumbering(t *testing.T) {
	s, repo := newSeeder(t)
	ctx := context.Background()

	emails, err := s.CreateTestUsers(ctx, "", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"testing_frontend_1@example.com", "testing_frontend_2@example.com"}, emails)

	emails, err = s.CreateTestUsers(ctx, "", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"testing_frontend_3@example.com"}, emails)

	user, err := repo.GetUserByEmail(ctx, "testing_frontend_3@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.NotEmpty(t, user.PublicID)
	assert.NotEqual(t, TestUserPassword, user.Password, "passwords are hashed")

	_, err = s.CreateTestUsers(ctx, "", maxTestUserNumber)
	assert.ErrorIs(t, err, ErrTooManyUsers)
}

func TestGenerateRandomEmotions(t *testing.T) {
	s, repo := newSeeder(t)
	ctx := context.Background()

	_, err := s.AddEmotions(ctx, DefaultEmotions)
	require.NoError(t, err)
	emails, err := s.CreateTestUsers(ctx, "", 3)
	require.NoError(t, err)

	_, err = s.GenerateRandomEmotions(ctx, emails[0], 5, 0.1)
	assert.ErrorIs(t, err, ErrNoReference)

	ref, err := repo.GetUserByEmail(ctx, emails[0])
	require.NoError(t, err)
	emotions, err := repo.ListEmotions(ctx)
	require.NoError(t, err)
	lat, lon := -37.8136, 144.9631
	require.NoError(t, repo.CreateSharedEmotion(ctx, &models.SharedEmotion{
		UserID: ref.ID, EmotionID: emotions[0].ID, Latitude: &lat, Longitude: &lon,
	}))

	created, err := s.GenerateRandomEmotions(ctx, emails[0], 20, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 20, created)

	all, err := repo.ActiveEmotions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 21)

	oldest := s.now().Add(-randomEmotionWindow)
	for _, se := range all {
		require.True(t, se.HasLocation())
		assert.InDelta(t, lat, *se.Latitude, 0.1+1e-9)
		assert.InDelta(t, lon, *se.Longitude, 0.1+1e-9)
		assert.False(t, se.CreatedAt.Before(oldest))
		assert.NotEmpty(t, se.UserPublicID)
	}

	_, err = s.GenerateRandomEmotions(ctx, "missing@example.com", 1, 0.1)
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = s.GenerateRandomEmotions(ctx, emails[0], 1, -1)
	assert.ErrorIs(t, err, ErrInvalidRadius)
}

func TestClearUserEmotions(t *testing.T) {
	s, repo := newSeeder(t)
	ctx := context.Background()

	_, err := s.AddEmotions(ctx, DefaultEmotions[:1])
	require.NoError(t, err)
	emails, err := s.CreateTestUsers(ctx, "", 2)
	require.NoError(t, err)
	emotions, err := repo.ListEmotions(ctx)
	require.NoError(t, err)

	for _, email := range emails {
		user, err := repo.GetUserByEmail(ctx, email)
		require.NoError(t, err)
		for i := 0; i < 2; i++ {
			lat, lon := 1.0, 1.0
			require.NoError(t, repo.CreateSharedEmotion(ctx, &models.SharedEmotion{
				UserID: user.ID, EmotionID: emotions[0].ID, Latitude: &lat, Longitude: &lon,
			}))
		}
	}

	n, err := s.ClearUserEmotions(ctx, emails[0])
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.ClearUserEmotions(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = s.ClearUserEmotions(ctx, "missing@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
