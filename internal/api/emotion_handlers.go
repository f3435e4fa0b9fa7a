package api

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/yana-server/internal/geo"
	"github.com/rongwang/yana-server/internal/matching"
	"github.com/rongwang/yana-server/internal/models"
)

// Emotion catalog
func (h *Handler) ListEmotions(c *gin.Context) {
	emotions, err := h.service.ListEmotions(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, emotions)
}

func (h *Handler) CreateEmotion(c *gin.Context) {
	var req models.CreateEmotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	emotion, err := h.service.CreateEmotion(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, emotion)
}

func (h *Handler) DeleteEmotion(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.service.DeleteEmotion(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Shared emotions
func (h *Handler) ShareEmotion(c *gin.Context) {
	var req models.ShareEmotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	shared, err := h.service.ShareEmotion(c.Request.Context(), c.GetString(userIDKey), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, shared)
}

func (h *Handler) ListUserEmotions(c *gin.Context) {
	records, err := h.service.ListUserEmotions(c.Request.Context(), c.GetString(userIDKey))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, records)
}

func (h *Handler) LastEmotion(c *gin.Context) {
	last, err := h.service.LastEmotion(c.Request.Context(), c.GetString(userIDKey))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, last)
}

func (h *Handler) RetractEmotion(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.service.RetractEmotion(c.Request.Context(), c.GetString(userIDKey), id); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// parseFloatQuery reads a finite float query parameter; ok is false when it is malformed
func parseFloatQuery(c *gin.Context, name string) (float64, bool) {
	v, err := strconv.ParseFloat(c.Query(name), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return v, true
}

// Nearby answers by coordinates when latitude and longitude are given,
// otherwise by the authenticated requester's current emotion.
func (h *Handler) Nearby(c *gin.Context) {
	userID := c.GetString(userIDKey)
	latRaw, hasLat := c.GetQuery("latitude")
	lonRaw, hasLon := c.GetQuery("longitude")

	if !hasLat && !hasLon {
		if userID == "" {
			errorJSON(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}
		h.Matching(c)
		return
	}
	if !hasLat || !hasLon || latRaw == "" || lonRaw == "" {
		badRequest(c, "Both latitude and longitude are required")
		return
	}

	lat, ok := parseFloatQuery(c, "latitude")
	if !ok {
		return
	}
	lon, ok := parseFloatQuery(c, "longitude")
	if !ok {
		return
	}

	radius := h.cfg.DefaultRadiusKm
	if _, given := c.GetQuery("radius"); given {
		if radius, ok = parseFloatQuery(c, "radius"); !ok {
			return
		}
	}
	if h.cfg.MaxRadiusKm > 0 && radius > h.cfg.MaxRadiusKm {
		badRequest(c, "Radius exceeds the maximum of "+strconv.FormatFloat(h.cfg.MaxRadiusKm, 'f', -1, 64)+" km")
		return
	}

	match := true
	if raw, given := c.GetQuery("match"); given {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "Invalid match")
			return
		}
		match = parsed
	}

	results, err := h.service.Nearby(c.Request.Context(), matching.NearbyQuery{
		Center:       geo.Point{Lat: lat, Lon: lon},
		RadiusKm:     radius,
		RequesterID:  userID,
		MatchEmotion: match,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// Matching lists other users whose current emotion equals the requester's
func (h *Handler) Matching(c *gin.Context) {
	results, err := h.service.Matching(c.Request.Context(), c.GetString(userIDKey))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

func (h *Handler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
