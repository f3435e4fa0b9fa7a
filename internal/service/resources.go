package service

import (
	"context"
	"fmt"

	"github.com/rongwang/yana-server/internal/models"
)

func resourceFromRequest(req models.HelpResourceRequest) models.HelpResource {
	return models.HelpResource{
		Name:        req.Name,
		Description: req.Description,
		URL:         req.URL,
		Location:    req.Location,
		Category:    req.Category,
		Phone:       req.Phone,
		Email:       req.Email,
	}
}

func (s *DefaultService) ListResources(ctx context.Context) ([]models.HelpResource, error) {
	resources, err := s.repo.ListHelpResources(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing help resources: %w", err)
	}
	return resources, nil
}

func (s *DefaultService) GetResource(ctx context.Context, id int64) (*models.HelpResource, error) {
	res, err := s.repo.GetHelpResource(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting help resource: %w", err)
	}
	if res == nil {
		return nil, fmt.Errorf("%w: help resource", ErrNotFound)
	}
	return res, nil
}

func (s *DefaultService) CreateResource(ctx context.Context, req models.HelpResourceRequest) (*models.HelpResource, error) {
	res := resourceFromRequest(req)
	if err := s.repo.CreateHelpResource(ctx, &res); err != nil {
		return nil, fmt.Errorf("error creating help resource: %w", err)
	}
	return &res, nil
}

func (s *DefaultService) UpdateResource(ctx context.Context, id int64, req models.HelpResourceRequest) (*models.HelpResource, error) {
	if _, err := s.GetResource(ctx, id); err != nil {
		return nil, err
	}

	res := resourceFromRequest(req)
	res.ID = id
	if err := s.repo.UpdateHelpResource(ctx, &res); err != nil {
		return nil, fmt.Errorf("error updating help resource: %w", err)
	}
	return &res, nil
}

func (s *DefaultService) DeleteResource(ctx context.Context, id int64) error {
	if _, err := s.GetResource(ctx, id); err != nil {
		return err
	}

	if err := s.repo.DeleteHelpResource(ctx, id); err != nil {
		return fmt.Errorf("error deleting help resource: %w", err)
	}
	return nil
}
