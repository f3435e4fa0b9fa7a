package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rongwang/yana-server/internal/metrics"
	"github.com/rongwang/yana-server/internal/models"
	"github.com/rongwang/yana-server/internal/service"
	"github.com/rongwang/yana-server/internal/utils"
)

const (
	userIDKey = "userId"
	loggerKey = "logger"

	RequestIDHeader = "X-Request-ID"
)

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
		Status:  "error",
		Code:    "UNAUTHORIZED",
		Message: message,
	})
}

// parseAccessToken validates an Authorization header value and returns the subject
func parseAccessToken(authHeader string, jwtSecret []byte) (string, string) {
	// Check if the Authorization header starts with "Bearer "
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", "Invalid token format"
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", "Invalid token"
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "Invalid token claims"
	}

	// Refresh tokens are only accepted by the refresh and logout endpoints
	if tokenType, _ := claims["type"].(string); tokenType != service.TokenTypeAccess {
		return "", "Invalid token type"
	}

	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return "", "Invalid user ID in token"
	}

	return userID, ""
}

// AuthMiddleware returns a Gin middleware for authentication
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Authentication required")
			return
		}

		userID, problem := parseAccessToken(authHeader, c.MustGet("jwtSecret").([]byte))
		if problem != "" {
			abortUnauthorized(c, problem)
			return
		}

		// Set user ID in the context
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// OptionalAuthMiddleware identifies the caller when a token is present.
// A present but invalid token is still rejected.
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		userID, problem := parseAccessToken(authHeader, c.MustGet("jwtSecret").([]byte))
		if problem != "" {
			abortUnauthorized(c, problem)
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// AdminOnly must run after AuthMiddleware. The admin flag is read fresh on every request.
func AdminOnly(svc service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := svc.GetUser(c.Request.Context(), c.GetString(userIDKey))
		if err != nil || !user.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse{
				Status:  "error",
				Code:    "FORBIDDEN",
				Message: "Admin privileges required",
			})
			return
		}
		c.Next()
	}
}

// RequestLogger tags each request with an id, taken from X-Request-ID or generated,
// and writes one structured line per request. Handlers log through requestLogger.
func RequestLogger(logger *utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)
		reqLogger := logger.With("request_id", requestID)
		c.Set(loggerKey, reqLogger)

		c.Next()

		status := c.Writer.Status()
		zl := reqLogger.Zerolog()
		event := zl.Info()
		if status >= http.StatusInternalServerError {
			event = zl.Error()
		} else if status >= http.StatusBadRequest {
			event = zl.Warn()
		}

		event = event.
			Int("status", status).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Str("ip", c.ClientIP()).
			Dur("latency", time.Since(start))
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.Msg("request")
	}
}

// requestLogger returns the request-scoped logger, or fallback outside RequestLogger
func requestLogger(c *gin.Context, fallback *utils.Logger) *utils.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*utils.Logger); ok {
			return l
		}
	}
	return fallback
}

// MetricsMiddleware records response times and rejected requests
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		status := c.Writer.Status()
		method := c.Request.Method

		metrics.ResponseTime.
			WithLabelValues(endpoint, method, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())

		switch status {
		case http.StatusUnauthorized:
			metrics.BlockedRequests.WithLabelValues("unauthorized", endpoint, method).Inc()
		case http.StatusForbidden:
			metrics.BlockedRequests.WithLabelValues("forbidden", endpoint, method).Inc()
		}
	}
}
