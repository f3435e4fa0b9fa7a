package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rongwang/yana-server/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// Token types carried in the "type" claim
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Authentication methods
func (s *DefaultService) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error) {
	email := normalizeEmail(req.Email)

	// Check if user already exists
	existingUser, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("error checking user existence: %w", err)
	}

	if existingUser != nil {
		return nil, fmt.Errorf("%w: user with this email already exists", ErrConflict)
	}

	// Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	publicID, err := s.uniquePublicID(ctx)
	if err != nil {
		return nil, err
	}

	// Create the user
	user := &models.User{
		ID:       uuid.New().String(),
		PublicID: publicID,
		Email:    email,
		Name:     strings.TrimSpace(req.Name),
		LastName: strings.TrimSpace(req.LastName),
		Password: string(hashedPassword),
		AvatarID: models.DefaultAvatarID,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	access, refresh, err := s.issueTokenPair(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("registered user %s", user.PublicID)

	return &models.RegisterResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		UserID:       user.PublicID,
		Email:        user.Email,
		AvatarID:     user.AvatarID,
	}, nil
}

func (s *DefaultService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	access, refresh, err := s.issueTokenPair(user)
	if err != nil {
		return nil, err
	}

	return &models.LoginResponse{
		Access:    access,
		Refresh:   refresh,
		ExpiresIn: int(s.accessTTL.Seconds()),
		User: models.LoginUser{
			Email:    user.Email,
			UserID:   user.PublicID,
			Name:     user.Name,
			AvatarID: user.AvatarID,
		},
	}, nil
}

// authenticate looks up the user and verifies the password
func (s *DefaultService) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	if user == nil {
		return nil, ErrInvalidCredentials
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (s *DefaultService) Refresh(ctx context.Context, refreshToken string) (*models.RefreshResponse, error) {
	claims, err := s.parseRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user no longer exists", ErrUnauthenticated)
	}

	access, err := s.generateJWT(user, TokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	return &models.RefreshResponse{
		Access:    access,
		ExpiresIn: int(s.accessTTL.Seconds()),
	}, nil
}

// Logout revokes the refresh token until it would have expired
func (s *DefaultService) Logout(ctx context.Context, userID, refreshToken string) error {
	claims, err := s.parseRefreshToken(ctx, refreshToken)
	if err != nil {
		return err
	}

	if claims.Subject != userID {
		return fmt.Errorf("%w: refresh token belongs to another user", ErrForbidden)
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.tokens.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("error revoking token: %w", err)
	}

	return nil
}

func (s *DefaultService) CheckEmail(ctx context.Context, email string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" {
		return false, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return false, fmt.Errorf("error checking user existence: %w", err)
	}

	return user != nil, nil
}

// GenerateUserID proposes a fresh pseudonym; nothing is stored
func (s *DefaultService) GenerateUserID(ctx context.Context) (string, error) {
	return s.uniquePublicID(ctx)
}

func (s *DefaultService) DeleteAccount(ctx context.Context, userID, password string) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("error getting user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("%w: user", ErrNotFound)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return fmt.Errorf("%w: incorrect password", ErrInvalidInput)
	}

	if err := s.repo.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("error deleting user: %w", err)
	}

	s.logger.Info("deleted user %s", user.PublicID)
	return nil
}

func (s *DefaultService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	return user, nil
}

func (s *DefaultService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	return users, nil
}

// Helper methods
func (s *DefaultService) issueTokenPair(user *models.User) (string, string, error) {
	access, err := s.generateJWT(user, TokenTypeAccess, s.accessTTL)
	if err != nil {
		return "", "", fmt.Errorf("error generating token: %w", err)
	}
	refresh, err := s.generateJWT(user, TokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return "", "", fmt.Errorf("error generating token: %w", err)
	}
	return access, refresh, nil
}

func (s *DefaultService) generateJWT(user *models.User, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := jwt.MapClaims{
		"sub":  user.ID, // subject
		"exp":  now.Add(ttl).Unix(),
		"iat":  now.Unix(), // issued at
		"jti":  uuid.New().String(),
		"type": tokenType,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// refreshClaims is the decoded form of a refresh token
type refreshClaims struct {
	jwt.RegisteredClaims
	Type string `json:"type"`
}

func (s *DefaultService) parseRefreshToken(ctx context.Context, tokenString string) (*refreshClaims, error) {
	claims := &refreshClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid refresh token", ErrUnauthenticated)
	}

	if claims.Type != TokenTypeRefresh || claims.ID == "" || claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: not a refresh token", ErrUnauthenticated)
	}

	revoked, err := s.tokens.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("error checking token revocation: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: refresh token has been revoked", ErrUnauthenticated)
	}

	return claims, nil
}
