package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rongwang/yana-server/internal/geo"
	"github.com/rongwang/yana-server/internal/matching"
	"github.com/rongwang/yana-server/internal/metrics"
	"github.com/rongwang/yana-server/internal/models"
)

// Emotion catalog
func (s *DefaultService) ListEmotions(ctx context.Context) ([]models.Emotion, error) {
	emotions, ok, err := s.catalog.GetEmotions(ctx)
	if err != nil {
		s.logger.Warn("emotion catalog cache unavailable: %v", err)
	}
	if ok {
		metrics.CatalogCacheHits.Inc()
		return emotions, nil
	}
	metrics.CatalogCacheMisses.Inc()

	emotions, err = s.repo.ListEmotions(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing emotions: %w", err)
	}

	if err := s.catalog.SetEmotions(ctx, emotions); err != nil {
		s.logger.Warn("failed to cache emotion catalog: %v", err)
	}

	return emotions, nil
}

func (s *DefaultService) CreateEmotion(ctx context.Context, req models.CreateEmotionRequest) (*models.Emotion, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: emotion name is required", ErrInvalidInput)
	}

	existing, err := s.repo.GetEmotionByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("error getting emotion: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: emotion %q", ErrConflict, name)
	}

	emotion := &models.Emotion{Name: name, Image: req.Image}
	if err := s.repo.CreateEmotion(ctx, emotion); err != nil {
		return nil, fmt.Errorf("error creating emotion: %w", err)
	}

	s.invalidateCatalog(ctx)
	return emotion, nil
}

func (s *DefaultService) DeleteEmotion(ctx context.Context, id int64) error {
	emotion, err := s.repo.GetEmotion(ctx, id)
	if err != nil {
		return fmt.Errorf("error getting emotion: %w", err)
	}
	if emotion == nil {
		return fmt.Errorf("%w: emotion", ErrNotFound)
	}

	if err := s.repo.DeleteEmotion(ctx, id); err != nil {
		return fmt.Errorf("error deleting emotion: %w", err)
	}

	s.invalidateCatalog(ctx)
	return nil
}

func (s *DefaultService) invalidateCatalog(ctx context.Context) {
	if err := s.catalog.Invalidate(ctx); err != nil {
		s.logger.Warn("failed to invalidate emotion catalog cache: %v", err)
	}
}

// Shared emotions
func (s *DefaultService) ShareEmotion(
	ctx context.Context,
	userID string,
	req models.ShareEmotionRequest,
) (*models.SharedEmotionResponse, error) {
	if req.Latitude == nil || req.Longitude == nil {
		return nil, fmt.Errorf("%w: latitude and longitude are required", ErrInvalidInput)
	}
	if err := geo.ValidatePoint(geo.Point{Lat: *req.Latitude, Lon: *req.Longitude}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	emotion, err := s.repo.GetEmotion(ctx, req.EmotionID)
	if err != nil {
		return nil, fmt.Errorf("error getting emotion: %w", err)
	}
	if emotion == nil {
		return nil, fmt.Errorf("%w: emotion %d does not exist", ErrInvalidInput, req.EmotionID)
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	lat, lon := *req.Latitude, *req.Longitude
	se := &models.SharedEmotion{
		UserID:       user.ID,
		UserPublicID: user.PublicID,
		EmotionID:    emotion.ID,
		EmotionName:  emotion.Name,
		Latitude:     &lat,
		Longitude:    &lon,
	}
	if err := s.repo.CreateSharedEmotion(ctx, se); err != nil {
		return nil, fmt.Errorf("error sharing emotion: %w", err)
	}

	resp := models.NewSharedEmotionResponse(*se)
	return &resp, nil
}

func (s *DefaultService) ListUserEmotions(ctx context.Context, userID string) ([]models.SharedEmotionResponse, error) {
	records, err := s.repo.ListSharedEmotionsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing shared emotions: %w", err)
	}
	return models.NewSharedEmotionList(records), nil
}

func (s *DefaultService) LastEmotion(ctx context.Context, userID string) (*models.SharedEmotionResponse, error) {
	current, err := s.engine.CurrentEmotion(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := models.NewSharedEmotionResponse(*current)
	return &resp, nil
}

// RetractEmotion clears is_active on one of the user's own records
func (s *DefaultService) RetractEmotion(ctx context.Context, userID string, id int64) error {
	se, err := s.repo.GetSharedEmotion(ctx, id)
	if err != nil {
		return fmt.Errorf("error getting shared emotion: %w", err)
	}
	if se == nil {
		return fmt.Errorf("%w: shared emotion", ErrNotFound)
	}
	if se.UserID != userID {
		return fmt.Errorf("%w: shared emotion belongs to another user", ErrForbidden)
	}
	if !se.IsActive {
		return nil
	}

	if err := s.repo.DeactivateSharedEmotion(ctx, id); err != nil {
		return fmt.Errorf("error retracting shared emotion: %w", err)
	}
	return nil
}

// Matching
func (s *DefaultService) Nearby(ctx context.Context, q matching.NearbyQuery) ([]models.SharedEmotionResponse, error) {
	records, err := s.engine.NearbyByCoordinates(ctx, q)
	if err != nil {
		if errors.Is(err, geo.ErrInvalidLatitude) || errors.Is(err, geo.ErrInvalidLongitude) ||
			errors.Is(err, geo.ErrInvalidRadius) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil, err
	}
	return models.NewSharedEmotionList(records), nil
}

func (s *DefaultService) Matching(ctx context.Context, userID string) ([]models.SharedEmotionResponse, error) {
	records, err := s.engine.MatchingForRequester(ctx, userID)
	if err != nil {
		return nil, err
	}
	return models.NewSharedEmotionList(records), nil
}

func (s *DefaultService) Summary(ctx context.Context) (*models.SummaryResponse, error) {
	counts, err := s.engine.Summary(ctx)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, c := range counts {
		total += c.Count
	}

	return &models.SummaryResponse{
		Total:    total,
		Emotions: counts,
	}, nil
}
