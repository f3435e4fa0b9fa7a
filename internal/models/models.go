package models

import (
	"time"
)

// DefaultAvatarID is assigned to every new account
const DefaultAvatarID = 34

// User represents an account in the system
type User struct {
	ID             string    `db:"id" json:"-"`
	PublicID       string    `db:"public_id" json:"user_id"` // Pseudonym shown to other users
	Email          string    `db:"email" json:"email"`
	Name           string    `db:"name" json:"name"`
	LastName       string    `db:"last_name" json:"last_name"`
	Password       string    `db:"password" json:"-"` // Password hash, not returned in JSON
	AvatarID       int       `db:"avatar_id" json:"avatar_id"`
	IsAdmin        bool      `db:"is_admin" json:"is_admin"`
	UnreadMessages bool      `db:"unread_messages" json:"unread_messages"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Emotion is an entry of the emotion catalog
type Emotion struct {
	ID    int64   `db:"id" json:"id"`
	Name  string  `db:"name" json:"name"`
	Image *string `db:"image" json:"image,omitempty"`
}

// SharedEmotion is one entry of a user's emotion ledger.
// Latitude and Longitude are nil when the stored value could not be decrypted.
type SharedEmotion struct {
	ID           int64     `db:"id"`
	UserID       string    `db:"user_id"`
	UserPublicID string    `db:"user_public_id"`
	EmotionID    int64     `db:"emotion_id"`
	EmotionName  string    `db:"emotion_name"`
	Latitude     *float64  `db:"-"`
	Longitude    *float64  `db:"-"`
	CreatedAt    time.Time `db:"created_at"`
	IsActive     bool      `db:"is_active"`
}

// HasLocation reports whether both coordinates were decoded
func (s *SharedEmotion) HasLocation() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// SupportMessageTemplate is a canned support message users can send
type SupportMessageTemplate struct {
	ID        int64     `db:"id" json:"id"`
	Text      string    `db:"text" json:"text"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SupportMessage is a template instance sent from one user to another
type SupportMessage struct {
	ID              int64     `db:"id" json:"id"`
	SenderID        string    `db:"sender_id" json:"-"`
	ReceiverID      string    `db:"receiver_id" json:"-"`
	SenderPublicID  string    `db:"sender_public_id" json:"sender"`
	SharedEmotionID int64     `db:"shared_emotion_id" json:"shared_emotion"`
	TemplateID      *int64    `db:"template_id" json:"template"`
	Message         string    `db:"message" json:"message"`
	IsRead          bool      `db:"is_read" json:"is_read"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// HelpResource is an external help line or organisation
type HelpResource struct {
	ID          int64   `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Description string  `db:"description" json:"description"`
	URL         string  `db:"url" json:"url"`
	Location    string  `db:"location" json:"location"`
	Category    string  `db:"category" json:"category"`
	Phone       *string `db:"phone" json:"phone"`
	Email       *string `db:"email" json:"email,omitempty"`
}
