package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rongwang/yana-server/internal/models"
)

// Support message templates
func (s *DefaultService) ListTemplates(ctx context.Context) ([]models.SupportMessageTemplate, error) {
	templates, err := s.repo.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing templates: %w", err)
	}
	return templates, nil
}

func (s *DefaultService) CreateTemplate(ctx context.Context, req models.CreateTemplateRequest) (*models.SupportMessageTemplate, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: template text is required", ErrInvalidInput)
	}

	tmpl := &models.SupportMessageTemplate{Text: text}
	if err := s.repo.CreateTemplate(ctx, tmpl); err != nil {
		return nil, fmt.Errorf("error creating template: %w", err)
	}
	return tmpl, nil
}

func (s *DefaultService) DeleteTemplate(ctx context.Context, id int64) error {
	tmpl, err := s.repo.GetTemplate(ctx, id)
	if err != nil {
		return fmt.Errorf("error getting template: %w", err)
	}
	if tmpl == nil {
		return fmt.Errorf("%w: template", ErrNotFound)
	}

	if err := s.repo.DeleteTemplate(ctx, id); err != nil {
		return fmt.Errorf("error deleting template: %w", err)
	}
	return nil
}

// SendSupport sends a template message to the owner of a shared emotion
func (s *DefaultService) SendSupport(
	ctx context.Context,
	userID string,
	req models.SendSupportRequest,
) (*models.SupportMessage, error) {
	sender, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	se, err := s.repo.GetSharedEmotion(ctx, req.SharedEmotionID)
	if err != nil {
		return nil, fmt.Errorf("error getting shared emotion: %w", err)
	}
	if se == nil {
		return nil, fmt.Errorf("%w: shared emotion %d does not exist", ErrInvalidInput, req.SharedEmotionID)
	}
	if !se.IsActive {
		return nil, fmt.Errorf("%w: shared emotion %d has been retracted", ErrInvalidInput, req.SharedEmotionID)
	}

	tmpl, err := s.repo.GetTemplate(ctx, req.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("error getting template: %w", err)
	}
	if tmpl == nil {
		return nil, fmt.Errorf("%w: template %d does not exist", ErrInvalidInput, req.TemplateID)
	}

	if se.UserID == sender.ID {
		return nil, fmt.Errorf("%w: cannot send support to your own emotion", ErrInvalidInput)
	}

	templateID := tmpl.ID
	msg := &models.SupportMessage{
		SenderID:        sender.ID,
		ReceiverID:      se.UserID,
		SenderPublicID:  sender.PublicID,
		SharedEmotionID: se.ID,
		TemplateID:      &templateID,
		Message:         tmpl.Text,
	}
	if err := s.repo.CreateSupportMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("error sending support message: %w", err)
	}

	return msg, nil
}

func (s *DefaultService) ReceivedMessages(ctx context.Context, userID string) ([]models.SupportMessage, error) {
	messages, err := s.repo.ListMessagesForReceiver(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing messages: %w", err)
	}
	return messages, nil
}

func (s *DefaultService) HasUnreadMessages(ctx context.Context, userID string) (bool, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.UnreadMessages, nil
}

func (s *DefaultService) MarkMessagesRead(ctx context.Context, userID string) error {
	if err := s.repo.MarkMessagesRead(ctx, userID); err != nil {
		return fmt.Errorf("error marking messages read: %w", err)
	}
	return nil
}
