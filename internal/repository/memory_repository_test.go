package repository

import (
	"context"
	"testing"
	"time"

	"github.com/rongwang/yana-server/internal/encryption"
	"github.com/rongwang/yana-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryRepo(t *testing.T) *MemoryRepository {
	t.Helper()
	codec, err := encryption.NewCoordinateCodec("repository-test-key")
	require.NoError(t, err)
	return NewMemoryRepository(codec, nil)
}

func seedUserAndEmotion(t *testing.T, repo Repository, email, publicID, emotion string) (*models.User, *models.Emotion) {
	t.Helper()
	ctx := context.Background()

	user := &models.User{Email: email, PublicID: publicID, Password: "hash"}
	require.NoError(t, repo.CreateUser(ctx, user))

	existing, err := repo.GetEmotionByName(ctx, emotion)
	require.NoError(t, err)
	if existing != nil {
		return user, existing
	}
	e := &models.Emotion{Name: emotion}
	require.NoError(t, repo.CreateEmotion(ctx, e))
	return user, e
}

func ptr(v float64) *float64 { return &v }

func TestMemoryRepositoryRoundTripsCoordinates(t *testing.T) {
	repo := newMemoryRepo(t)
	ctx := context.Background()
	user, emotion := seedUserAndEmotion(t, repo, "a@example.com", "OwlBrave", "Sadness")

	se := &models.SharedEmotion{UserID: user.ID, EmotionID: emotion.ID, Latitude: ptr(40.7128), Longitude: ptr(-74.006)}
	require.NoError(t, repo.CreateSharedEmotion(ctx, se))
	assert.NotZero(t, se.ID)
	assert.True(t, se.IsActive)

	row := repo.shared[se.ID]
	assert.Contains(t, row.LatitudeEnc, encryption.Prefix, "coordinates are stored encrypted")

	got, err := repo.GetSharedEmotion(ctx, se.ID)
	require.NoError(t, err)
	require.True(t, got.HasLocation())
	assert.Equal(t, 40.7128, *got.Latitude)
	assert.Equal(t, -74.006, *got.Longitude)
	assert.Equal(t, "OwlBrave", got.UserPublicID)
	assert.Equal(t, "Sadness", got.EmotionName)
}

func TestMemoryRepositoryDecodeFailureYieldsNil(t *testing.T) {
	repo := newMemoryRepo(t)
	ctx := context.Background()
	user, emotion := seedUserAndEmotion(t, repo, "a@example.com", "OwlBrave", "Sadness")

	base := models.SharedEmotion{UserID: user.ID, EmotionID: emotion.ID, IsActive: true, CreatedAt: time.Now().UTC()}
	legacy := repo.PutRawSharedEmotion(base, "51.5074", "-0.1278")
	corrupt := repo.PutRawSharedEmotion(base, encryption.Prefix+"AAAA", "-0.1278")

	got, err := repo.GetSharedEmotion(ctx, legacy)
	require.NoError(t, err)
	require.True(t, got.HasLocation(), "legacy plaintext values are still readable")
	assert.Equal(t, 51.5074, *got.Latitude)

	got, err = repo.GetSharedEmotion(ctx, corrupt)
	require.NoError(t, err)
	assert.Nil(t, got.Latitude)
	assert.NotNil(t, got.Longitude)
	assert.False(t, got.HasLocation())
}

func TestMemoryRepositoryActiveOrdering(t *testing.T) {
	repo := newMemoryRepo(t)
	ctx := context.Background()
	alice, sad := seedUserAndEmotion(t, repo, "alice@example.com", "AlicePublic", "Sadness")
	bob, _ := seedUserAndEmotion(t, repo, "bob@example.com", "BobPublic", "Sadness")

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mk := func(userID string, when time.Time) int64 {
		se := &models.SharedEmotion{UserID: userID, EmotionID: sad.ID, Latitude: ptr(1), Longitude: ptr(2), CreatedAt: when}
		require.NoError(t, repo.CreateSharedEmotion(ctx, se))
		return se.ID
	}

	first := mk(alice.ID, at)
	tied := mk(bob.ID, at)
	latest := mk(alice.ID, at.Add(time.Hour))
	require.NoError(t, repo.DeactivateSharedEmotion(ctx, latest))

	active, err := repo.ActiveEmotions(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, tied, active[0].ID, "equal timestamps order by id descending")
	assert.Equal(t, first, active[1].ID)

	forAlice, err := repo.ActiveEmotionsForUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, forAlice, 1)
	assert.Equal(t, first, forAlice[0].ID)

	history, err := repo.ListSharedEmotionsForUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, history, 2, "history keeps inactive records")
	assert.Equal(t, latest, history[0].ID)
	assert.False(t, history[0].IsActive)
}

func TestMemoryRepositorySupportMessagesFlagReceiver(t *testing.T) {
	repo := newMemoryRepo(t)
	ctx := context.Background()
	sender, sad := seedUserAndEmotion(t, repo, "sender@example.com", "SenderPublic", "Sadness")
	receiver, _ := seedUserAndEmotion(t, repo, "receiver@example.com", "ReceiverPublic", "Sadness")

	se := &models.SharedEmotion{UserID: receiver.ID, EmotionID: sad.ID, Latitude: ptr(1), Longitude: ptr(2)}
	require.NoError(t, repo.CreateSharedEmotion(ctx, se))

	msg := &models.SupportMessage{SenderID: sender.ID, ReceiverID: receiver.ID, SharedEmotionID: se.ID, Message: "You are not alone"}
	require.NoError(t, repo.CreateSupportMessage(ctx, msg))

	u, err := repo.GetUserByID(ctx, receiver.ID)
	require.NoError(t, err)
	assert.True(t, u.UnreadMessages)

	inbox, err := repo.ListMessagesForReceiver(ctx, receiver.ID)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "SenderPublic", inbox[0].SenderPublicID)
	assert.False(t, inbox[0].IsRead)

	require.NoError(t, repo.MarkMessagesRead(ctx, receiver.ID))
	u, err = repo.GetUserByID(ctx, receiver.ID)
	require.NoError(t, err)
	assert.False(t, u.UnreadMessages)

	inbox, err = repo.ListMessagesForReceiver(ctx, receiver.ID)
	require.NoError(t, err)
	assert.True(t, inbox[0].IsRead)
}

func TestMemoryRepositoryUniqueness(t *testing.T) {
	repo := newMemoryRepo(t)
	ctx := context.Background()
	seedUserAndEmotion(t, repo, "a@example.com", "OwlBrave", "Sadness")

	err := repo.CreateUser(ctx, &models.User{Email: "A@example.com", PublicID: "Other"})
	assert.Error(t, err, "emails are unique regardless of case")

	err = repo.CreateEmotion(ctx, &models.Emotion{Name: "Sadness"})
	assert.Error(t, err)

	found, err := repo.GetUserByEmail(ctx, "A@EXAMPLE.COM")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, models.DefaultAvatarID, found.AvatarID)

	missing, err := repo.GetUserByEmail(ctx, "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}
