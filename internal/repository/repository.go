package repository

import (
	"context"

	"github.com/rongwang/yana-server/internal/encryption"
	"github.com/rongwang/yana-server/internal/metrics"
	"github.com/rongwang/yana-server/internal/models"
	"github.com/rongwang/yana-server/internal/utils"
)

// Repository interface defines the methods that any repository implementation must satisfy.
// Getters return (nil, nil) when the row does not exist.
type Repository interface {
	Ping(ctx context.Context) error

	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	PublicIDExists(ctx context.Context, publicID string) (bool, error)
	SetUserAdmin(ctx context.Context, userID string, isAdmin bool) error
	DeleteUser(ctx context.Context, userID string) error
	ListUsers(ctx context.Context) ([]models.User, error)
	ListUsersByEmailPrefix(ctx context.Context, prefix string) ([]models.User, error)

	// Emotion catalog operations
	ListEmotions(ctx context.Context) ([]models.Emotion, error)
	GetEmotion(ctx context.Context, id int64) (*models.Emotion, error)
	GetEmotionByName(ctx context.Context, name string) (*models.Emotion, error)
	CreateEmotion(ctx context.Context, emotion *models.Emotion) error
	DeleteEmotion(ctx context.Context, id int64) error

	// Shared emotion operations
	CreateSharedEmotion(ctx context.Context, se *models.SharedEmotion) error
	GetSharedEmotion(ctx context.Context, id int64) (*models.SharedEmotion, error)
	ListSharedEmotionsForUser(ctx context.Context, userID string) ([]models.SharedEmotion, error)
	ActiveEmotionsForUser(ctx context.Context, userID string) ([]models.SharedEmotion, error)
	ActiveEmotions(ctx context.Context) ([]models.SharedEmotion, error)
	DeactivateSharedEmotion(ctx context.Context, id int64) error
	DeleteSharedEmotions(ctx context.Context, userID string) (int64, error)

	// Support message operations
	ListTemplates(ctx context.Context) ([]models.SupportMessageTemplate, error)
	GetTemplate(ctx context.Context, id int64) (*models.SupportMessageTemplate, error)
	GetTemplateByText(ctx context.Context, text string) (*models.SupportMessageTemplate, error)
	CreateTemplate(ctx context.Context, tmpl *models.SupportMessageTemplate) error
	DeleteTemplate(ctx context.Context, id int64) error
	CreateSupportMessage(ctx context.Context, msg *models.SupportMessage) error
	ListMessagesForReceiver(ctx context.Context, receiverID string) ([]models.SupportMessage, error)
	MarkMessagesRead(ctx context.Context, receiverID string) error

	// Help resource operations
	ListHelpResources(ctx context.Context) ([]models.HelpResource, error)
	GetHelpResource(ctx context.Context, id int64) (*models.HelpResource, error)
	CreateHelpResource(ctx context.Context, res *models.HelpResource) error
	UpdateHelpResource(ctx context.Context, res *models.HelpResource) error
	DeleteHelpResource(ctx context.Context, id int64) error
}

// coordinateCipher turns coordinates into their stored form and back
type coordinateCipher struct {
	codec  *encryption.CoordinateCodec
	logger *utils.Logger
}

func (c coordinateCipher) encode(lat, lon float64) (string, string, error) {
	latEnc, err := c.codec.Encode(lat)
	if err != nil {
		return "", "", err
	}
	lonEnc, err := c.codec.Encode(lon)
	if err != nil {
		return "", "", err
	}
	return latEnc, lonEnc, nil
}

// decode resolves a stored coordinate. Failures are logged and counted and
// yield nil so that one bad row does not fail the whole read.
func (c coordinateCipher) decode(id int64, field, stored string) *float64 {
	v, err := c.codec.DecodeLenient(stored)
	if err != nil {
		metrics.CoordinateDecodeFailures.Inc()
		c.logger.Zerolog().Warn().Err(err).Int64("shared_emotion_id", id).Str("field", field).
			Msg("failed to decode coordinate")
		return nil
	}
	return &v
}

func (c coordinateCipher) apply(se *models.SharedEmotion, latEnc, lonEnc string) {
	se.Latitude = c.decode(se.ID, "latitude", latEnc)
	se.Longitude = c.decode(se.ID, "longitude", lonEnc)
}

var (
	_ Repository = (*PostgresRepository)(nil)
	_ Repository = (*MemoryRepository)(nil)
)
