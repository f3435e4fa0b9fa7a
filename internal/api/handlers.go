package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rongwang/yana-server/internal/geo"
	"github.com/rongwang/yana-server/internal/matching"
	"github.com/rongwang/yana-server/internal/models"
	"github.com/rongwang/yana-server/internal/service"
	"github.com/rongwang/yana-server/internal/utils"
)

// NoEmotionsMessage is returned when a requester has no current emotion
const NoEmotionsMessage = "No emotions found for this user"

// HandlerConfig holds the request defaults applied by the handlers
type HandlerConfig struct {
	// DefaultRadiusKm of zero falls back to geo.DefaultRadiusKm
	DefaultRadiusKm float64
	// MaxRadiusKm of zero disables the upper bound
	MaxRadiusKm float64
}

// Handler handles API requests
type Handler struct {
	service service.Service
	cfg     HandlerConfig
	logger  *utils.Logger
}

// NewHandler creates a new Handler
func NewHandler(svc service.Service, cfg HandlerConfig, logger *utils.Logger) *Handler {
	if logger == nil {
		logger = utils.NopLogger()
	}
	if cfg.DefaultRadiusKm <= 0 {
		cfg.DefaultRadiusKm = geo.DefaultRadiusKm
	}
	return &Handler{
		service: svc,
		cfg:     cfg,
		logger:  logger,
	}
}

// SetupRoutes sets up the API routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	RegisterValidators()

	router.Use(MetricsMiddleware(), RequestLogger(h.logger))

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")

	// Public routes
	api.POST("/register", h.Register)
	api.POST("/login", h.Login)
	api.POST("/token/refresh", h.RefreshToken)
	api.POST("/check-email", h.CheckEmail)
	api.GET("/emotions", h.ListEmotions)
	api.GET("/emotions/summary", h.Summary)
	api.GET("/templates", h.ListTemplates)
	api.GET("/resources", h.ListResources)
	api.GET("/resources/:id", h.GetResource)

	// Identity is optional; a present token must still be valid
	api.GET("/emotions/nearby", OptionalAuthMiddleware(), h.Nearby)

	// Authenticated routes
	authed := api.Group("")
	authed.Use(AuthMiddleware())
	{
		authed.POST("/logout", h.Logout)
		authed.GET("/generate-user-id", h.GenerateUserID)
		authed.DELETE("/users/me", h.DeleteAccount)

		authed.GET("/emotions/matching", h.Matching)
		authed.POST("/user/emotions", h.ShareEmotion)
		authed.GET("/user/emotions", h.ListUserEmotions)
		authed.GET("/user/emotions/last", h.LastEmotion)
		authed.DELETE("/user/emotions/:id", h.RetractEmotion)

		authed.POST("/send-support", h.SendSupport)
		authed.GET("/received-messages", h.ReceivedMessages)
		authed.GET("/notifications", h.Notifications)
		authed.POST("/messages/read", h.MarkMessagesRead)
	}

	// Admin routes
	admin := api.Group("/admin")
	admin.Use(AuthMiddleware(), AdminOnly(h.service))
	{
		admin.GET("/users", h.ListUsers)
		admin.POST("/emotions", h.CreateEmotion)
		admin.DELETE("/emotions/:id", h.DeleteEmotion)
		admin.POST("/templates", h.CreateTemplate)
		admin.DELETE("/templates/:id", h.DeleteTemplate)
		admin.POST("/resources", h.CreateResource)
		admin.PUT("/resources/:id", h.UpdateResource)
		admin.DELETE("/resources/:id", h.DeleteResource)
	}
}

func errorJSON(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}

func badRequest(c *gin.Context, message string) {
	errorJSON(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

func validationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Status:  "error",
		Code:    "VALIDATION_ERROR",
		Message: "Invalid request",
		Detail:  err.Error(),
	})
}

// respondError maps service errors onto HTTP responses
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, matching.ErrNoCurrentEmotion):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Status:  "error",
			Code:    "NOT_FOUND",
			Message: NoEmotionsMessage,
			Detail:  NoEmotionsMessage,
		})
	case errors.Is(err, service.ErrNotFound):
		errorJSON(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrInvalidInput):
		badRequest(c, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		errorJSON(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid email or password")
	case errors.Is(err, service.ErrUnauthenticated), errors.Is(err, matching.ErrUnauthenticated):
		errorJSON(c, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
	case errors.Is(err, service.ErrForbidden):
		errorJSON(c, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, service.ErrConflict):
		errorJSON(c, http.StatusConflict, "CONFLICT", err.Error())
	default:
		requestLogger(c, h.logger).Error("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		_ = c.Error(err)
		errorJSON(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

func parseIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "Invalid id")
		return 0, false
	}
	return id, true
}

// Health checks the database connection
func (h *Handler) Health(c *gin.Context) {
	if err := h.service.Ping(c.Request.Context()); err != nil {
		requestLogger(c, h.logger).Error("health check failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
