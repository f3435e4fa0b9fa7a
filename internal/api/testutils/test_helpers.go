package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rongwang/yana-server/internal/api"
	"github.com/rongwang/yana-server/internal/cache"
	"github.com/rongwang/yana-server/internal/encryption"
	"github.com/rongwang/yana-server/internal/matching"
	"github.com/rongwang/yana-server/internal/models"
	"github.com/rongwang/yana-server/internal/repository"
	"github.com/rongwang/yana-server/internal/service"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	TestJWTSecret     = "test-secret-key"
	TestEncryptionKey = "test-field-encryption-key"
	TestPassword      = "testpassword"
)

// TestContext holds all dependencies for tests
type TestContext struct {
	Router     *gin.Engine
	Repository *repository.MemoryRepository
	Service    service.Service
	Tokens     *cache.MemoryStore
	JWTSecret  []byte

	TestUserID  string
	TestUserJWT string
}

// SetupTestContext creates a new test context backed by in-memory storage
func SetupTestContext(t *testing.T) *TestContext {
	t.Helper()

	codec, err := encryption.NewCoordinateCodec(TestEncryptionKey)
	require.NoError(t, err, "Failed to create coordinate codec")

	repo := repository.NewMemoryRepository(codec, nil)
	store := cache.NewMemoryStore()

	svc := service.NewDefaultService(
		repo,
		matching.NewEngine(repo, nil),
		store,
		store,
		service.Config{JWTSecret: TestJWTSecret, AccessTTL: 15 * time.Minute, RefreshTTL: 24 * time.Hour},
		nil,
	)

	handler := api.NewHandler(svc, api.HandlerConfig{DefaultRadiusKm: 5, MaxRadiusKm: 100}, nil)

	gin.SetMode(gin.TestMode)
	router := gin.New()

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(TestJWTSecret))
		c.Next()
	})

	handler.SetupRoutes(router)

	tc := &TestContext{
		Router:     router,
		Repository: repo,
		Service:    svc,
		Tokens:     store,
		JWTSecret:  []byte(TestJWTSecret),
	}
	tc.TestUserID, tc.TestUserJWT = tc.CreateUser(t, "testuser@example.com", false)
	return tc
}

// CreateUser stores a user with TestPassword and returns its id and an access token
func (tc *TestContext) CreateUser(t *testing.T, email string, admin bool) (string, string) {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		ID:        uuid.New().String(),
		PublicID:  "User" + uuid.New().String()[:8],
		Email:     email,
		Name:      "Test User",
		Password:  string(hashedPassword),
		AvatarID:  models.DefaultAvatarID,
		IsAdmin:   admin,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, tc.Repository.CreateUser(context.Background(), user), "Failed to create test user")

	return user.ID, tc.Token(t, user.ID, service.TokenTypeAccess, time.Hour)
}

// Token signs a token for userID with the test secret
func (tc *TestContext) Token(t *testing.T, userID, tokenType string, ttl time.Duration) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"exp":  time.Now().Add(ttl).Unix(),
		"iat":  time.Now().Unix(),
		"jti":  uuid.New().String(),
		"type": tokenType,
	})

	tokenString, err := token.SignedString(tc.JWTSecret)
	require.NoError(t, err, "Failed to generate JWT token")
	return tokenString
}

// PublicID returns the pseudonym of a stored user
func (tc *TestContext) PublicID(t *testing.T, userID string) string {
	t.Helper()
	user, err := tc.Repository.GetUserByID(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, user)
	return user.PublicID
}

// ShareAt stores a shared emotion with an explicit timestamp
func (tc *TestContext) ShareAt(t *testing.T, userID string, emotionID int64, lat, lon float64, at time.Time) int64 {
	t.Helper()
	se := &models.SharedEmotion{
		UserID:    userID,
		EmotionID: emotionID,
		Latitude:  &lat,
		Longitude: &lon,
		CreatedAt: at,
	}
	require.NoError(t, tc.Repository.CreateSharedEmotion(context.Background(), se))
	return se.ID
}

// CreateEmotion adds an emotion to the catalog
func (tc *TestContext) CreateEmotion(t *testing.T, name string) int64 {
	t.Helper()
	e := &models.Emotion{Name: name}
	require.NoError(t, tc.Repository.CreateEmotion(context.Background(), e))
	return e.ID
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// AuthHeaders returns headers with Authorization token
func AuthHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
}

// DecodeJSON unmarshals a response body into v
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), "body: %s", w.Body.String())
}
