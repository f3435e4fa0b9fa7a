package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/yana-server/internal/models"
)

// Support message templates
func (h *Handler) ListTemplates(c *gin.Context) {
	templates, err := h.service.ListTemplates(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, templates)
}

func (h *Handler) CreateTemplate(c *gin.Context) {
	var req models.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	tmpl, err := h.service.CreateTemplate(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, tmpl)
}

func (h *Handler) DeleteTemplate(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.service.DeleteTemplate(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Support messages
func (h *Handler) SendSupport(c *gin.Context) {
	var req models.SendSupportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	msg, err := h.service.SendSupport(c.Request.Context(), c.GetString(userIDKey), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

func (h *Handler) ReceivedMessages(c *gin.Context) {
	messages, err := h.service.ReceivedMessages(c.Request.Context(), c.GetString(userIDKey))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

func (h *Handler) Notifications(c *gin.Context) {
	unread, err := h.service.HasUnreadMessages(c.Request.Context(), c.GetString(userIDKey))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NotificationsResponse{Unread: unread})
}

func (h *Handler) MarkMessagesRead(c *gin.Context) {
	if err := h.service.MarkMessagesRead(c.Request.Context(), c.GetString(userIDKey)); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "Messages marked as read"})
}

// Help resources
func (h *Handler) ListResources(c *gin.Context) {
	resources, err := h.service.ListResources(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resources)
}

func (h *Handler) GetResource(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	res, err := h.service.GetResource(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *Handler) CreateResource(c *gin.Context) {
	var req models.HelpResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	res, err := h.service.CreateResource(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *Handler) UpdateResource(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req models.HelpResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	res, err := h.service.UpdateResource(c.Request.Context(), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteResource(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.service.DeleteResource(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
