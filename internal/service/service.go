package service

import (
	"context"
	"errors"
	"time"

	"github.com/rongwang/yana-server/internal/cache"
	"github.com/rongwang/yana-server/internal/matching"
	"github.com/rongwang/yana-server/internal/models"
	"github.com/rongwang/yana-server/internal/repository"
	"github.com/rongwang/yana-server/internal/utils"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthenticated    = errors.New("authentication required")
)

// Service defines all the business logic operations
type Service interface {
	Ping(ctx context.Context) error

	// Authentication
	Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*models.RefreshResponse, error)
	Logout(ctx context.Context, userID, refreshToken string) error
	CheckEmail(ctx context.Context, email string) (bool, error)
	GenerateUserID(ctx context.Context) (string, error)
	DeleteAccount(ctx context.Context, userID, password string) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)

	// Emotion catalog
	ListEmotions(ctx context.Context) ([]models.Emotion, error)
	CreateEmotion(ctx context.Context, req models.CreateEmotionRequest) (*models.Emotion, error)
	DeleteEmotion(ctx context.Context, id int64) error

	// Shared emotions
	ShareEmotion(ctx context.Context, userID string, req models.ShareEmotionRequest) (*models.SharedEmotionResponse, error)
	ListUserEmotions(ctx context.Context, userID string) ([]models.SharedEmotionResponse, error)
	LastEmotion(ctx context.Context, userID string) (*models.SharedEmotionResponse, error)
	RetractEmotion(ctx context.Context, userID string, id int64) error

	// Matching
	Nearby(ctx context.Context, q matching.NearbyQuery) ([]models.SharedEmotionResponse, error)
	Matching(ctx context.Context, userID string) ([]models.SharedEmotionResponse, error)
	Summary(ctx context.Context) (*models.SummaryResponse, error)

	// Support messages
	ListTemplates(ctx context.Context) ([]models.SupportMessageTemplate, error)
	CreateTemplate(ctx context.Context, req models.CreateTemplateRequest) (*models.SupportMessageTemplate, error)
	DeleteTemplate(ctx context.Context, id int64) error
	SendSupport(ctx context.Context, userID string, req models.SendSupportRequest) (*models.SupportMessage, error)
	ReceivedMessages(ctx context.Context, userID string) ([]models.SupportMessage, error)
	HasUnreadMessages(ctx context.Context, userID string) (bool, error)
	MarkMessagesRead(ctx context.Context, userID string) error

	// Help resources
	ListResources(ctx context.Context) ([]models.HelpResource, error)
	GetResource(ctx context.Context, id int64) (*models.HelpResource, error)
	CreateResource(ctx context.Context, req models.HelpResourceRequest) (*models.HelpResource, error)
	UpdateResource(ctx context.Context, id int64, req models.HelpResourceRequest) (*models.HelpResource, error)
	DeleteResource(ctx context.Context, id int64) error
}

var _ Service = (*DefaultService)(nil)

// Config holds the token settings of the service
type Config struct {
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo       repository.Repository
	engine     *matching.Engine
	tokens     cache.TokenStore
	catalog    cache.CatalogCache
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *utils.Logger
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(
	repo repository.Repository,
	engine *matching.Engine,
	tokens cache.TokenStore,
	catalog cache.CatalogCache,
	cfg Config,
	logger *utils.Logger,
) *DefaultService {
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &DefaultService{
		repo:       repo,
		engine:     engine,
		tokens:     tokens,
		catalog:    catalog,
		jwtSecret:  []byte(cfg.JWTSecret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		logger:     logger,
	}
}

func (s *DefaultService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
