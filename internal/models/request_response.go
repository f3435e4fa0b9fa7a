package models

import "time"

// Request models
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,password_strength"`
	Name     string `json:"name"`
	LastName string `json:"last_name"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

type LogoutRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

type CheckEmailRequest struct {
	Email string `json:"email"`
}

type DeleteAccountRequest struct {
	Password string `json:"password" binding:"required"`
}

type CreateEmotionRequest struct {
	Name  string  `json:"name" binding:"required,max=100"`
	Image *string `json:"image"`
}

// ShareEmotionRequest uses pointers so a zero coordinate is distinguishable from a missing one
type ShareEmotionRequest struct {
	EmotionID int64    `json:"emotion_id" binding:"required"`
	Latitude  *float64 `json:"latitude" binding:"required,latitude"`
	Longitude *float64 `json:"longitude" binding:"required,longitude"`
}

type SendSupportRequest struct {
	SharedEmotionID int64 `json:"shared_emotion" binding:"required"`
	TemplateID      int64 `json:"template_id" binding:"required"`
}

type CreateTemplateRequest struct {
	Text string `json:"text" binding:"required,max=100"`
}

type HelpResourceRequest struct {
	Name        string  `json:"name" binding:"required,max=255"`
	Description string  `json:"description" binding:"required"`
	URL         string  `json:"url" binding:"required,url"`
	Location    string  `json:"location" binding:"required,max=100"`
	Category    string  `json:"category" binding:"required,max=100"`
	Phone       *string `json:"phone" binding:"omitempty,max=20"`
	Email       *string `json:"email" binding:"omitempty,email"`
}

// Response models
type RegisterResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	AvatarID     int    `json:"avatar_id"`
}

type LoginUser struct {
	Email    string `json:"email"`
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	AvatarID int    `json:"avatar_id"`
}

type LoginResponse struct {
	Access    string    `json:"access"`
	Refresh   string    `json:"refresh"`
	ExpiresIn int       `json:"expires_in"`
	User      LoginUser `json:"user"`
}

type RefreshResponse struct {
	Access    string `json:"access"`
	ExpiresIn int    `json:"expires_in"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type CheckEmailResponse struct {
	EmailExists bool `json:"email_exists"`
}

type GenerateUserIDResponse struct {
	UserID string `json:"user_id"`
}

// SharedEmotionResponse is the public view of a SharedEmotion; UserID is the pseudonym
type SharedEmotionResponse struct {
	ID        int64     `json:"id"`
	EmotionID int64     `json:"emotion_id"`
	Emotion   string    `json:"emotion"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	UserID    string    `json:"user_id"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSharedEmotionResponse converts a ledger record into its public view
func NewSharedEmotionResponse(s SharedEmotion) SharedEmotionResponse {
	return SharedEmotionResponse{
		ID:        s.ID,
		EmotionID: s.EmotionID,
		Emotion:   s.EmotionName,
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		UserID:    s.UserPublicID,
		IsActive:  s.IsActive,
		CreatedAt: s.CreatedAt,
	}
}

// NewSharedEmotionList converts records, always returning a non-nil slice
func NewSharedEmotionList(records []SharedEmotion) []SharedEmotionResponse {
	out := make([]SharedEmotionResponse, 0, len(records))
	for _, r := range records {
		out = append(out, NewSharedEmotionResponse(r))
	}
	return out
}

type EmotionCount struct {
	Emotion string `json:"emotion"`
	Count   int    `json:"count"`
}

type SummaryResponse struct {
	Total    int            `json:"total"`
	Emotions []EmotionCount `json:"emotions"`
}

type NotificationsResponse struct {
	Unread bool `json:"unread"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}
