package handlers

import (
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arbordesk/notify/internal/gateway"
	"github.com/arbordesk/notify/internal/middleware"
	"github.com/arbordesk/notify/internal/models"
	"github.com/arbordesk/notify/internal/realtime"
	"github.com/arbordesk/notify/internal/services"
	"github.com/arbordesk/notify/pkg/errors"
	"github.com/arbordesk/notify/pkg/response"
)

// NotificationHandler exposes HTTP endpoints for notifications.
type NotificationHandler struct {
	service *services.NotificationService
	hub     *realtime.Hub
	gateway *gateway.Gateway
}

// NewNotificationHandler constructs a notification handler.
func NewNotificationHandler(service *services.NotificationService, hub *realtime.Hub, gw *gateway.Gateway) (*NotificationHandler, error) {
	if service == nil {
		return nil, stderrors.New("notification handler: service is required")
	}
	return &NotificationHandler{
		service: service,
		hub:     hub,
		gateway: gw,
	}, nil
}

// List returns a page of the current user's notifications.
func (h *NotificationHandler) List(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	input := services.ListNotificationsInput{
		UserID:     userID,
		Kind:       models.Kind(strings.TrimSpace(c.Query("kind"))),
		Category:   strings.TrimSpace(c.Query("category")),
		Priority:   models.Priority(strings.TrimSpace(c.Query("priority"))),
		UnreadOnly: c.Query("unread") == "true",
		Page:       parseIntQuery(c, "page", 1),
		Limit:      parseIntQuery(c, "limit", 0),
	}

	if from, ok := parseTimeQuery(c, "from"); ok {
		input.From = &from
	}
	if to, ok := parseTimeQuery(c, "to"); ok {
		input.To = &to
	}

	result, err := h.service.List(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, result.Items, &response.Meta{
		Page:    result.Page,
		PerPage: result.Limit,
		Total:   result.Total,
		Unread:  result.Unread,
	})
}

// Stats returns aggregate counts for the current user.
func (h *NotificationHandler) Stats(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, stats)
}

// Create allows internal collaborators to record a notification.
func (h *NotificationHandler) Create(c *gin.Context) {
	var payload struct {
		UserID    string         `json:"user_id" validate:"required"`
		Kind      string         `json:"kind" validate:"required"`
		Title     string         `json:"title" validate:"required,max=200"`
		Message   string         `json:"message" validate:"required,max=1000"`
		Priority  string         `json:"priority"`
		Category  string         `json:"category"`
		Payload   map[string]any `json:"payload"`
		ActionURL string         `json:"action_url"`
		GroupID   string         `json:"group_id"`
		ExpiresAt *time.Time     `json:"expires_at"`
	}

	if !bindAndValidate(c, &payload) {
		return
	}

	dto, err := h.service.Create(c.Request.Context(), services.CreateNotificationInput{
		UserID:    payload.UserID,
		Kind:      models.Kind(payload.Kind),
		Title:     payload.Title,
		Message:   payload.Message,
		Priority:  models.Priority(payload.Priority),
		Category:  payload.Category,
		Payload:   payload.Payload,
		ActionURL: payload.ActionURL,
		GroupID:   payload.GroupID,
		ExpiresAt: payload.ExpiresAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, dto)
}

// MarkRead flags a notification as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	h.updateReadState(c, true)
}

// MarkUnread flags a notification as unread.
func (h *NotificationHandler) MarkUnread(c *gin.Context) {
	h.updateReadState(c, false)
}

func (h *NotificationHandler) updateReadState(c *gin.Context, read bool) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	var dto *services.NotificationDTO
	var err error
	if read {
		dto, err = h.service.MarkRead(c.Request.Context(), userID, id)
	} else {
		dto, err = h.service.MarkUnread(c.Request.Context(), userID, id)
	}

	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, dto)
}

// MarkAllRead flags all of the user's notifications as read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	modified, err := h.service.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"modified": modified})
}

// Interact records the user's first interaction with a notification.
func (h *NotificationHandler) Interact(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var payload struct {
		Kind string `json:"kind" validate:"required,oneof=clicked dismissed archived"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	dto, err := h.service.RecordInteraction(c.Request.Context(), userID, id, models.InteractionKind(payload.Kind))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, dto)
}

// Delete removes a single notification.
func (h *NotificationHandler) Delete(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if err := h.service.Delete(c.Request.Context(), userID, id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// ClearAll removes every notification for the user.
func (h *NotificationHandler) ClearAll(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	deleted, err := h.service.ClearAll(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": deleted})
}

// Connections returns diagnostic information about the user's live connections.
func (h *NotificationHandler) Connections(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if h.hub == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"connected":   h.hub.IsUserConnected(userID),
		"connections": h.hub.ConnectionsForUser(userID),
	})
}

// Stream hands the connection to the delivery gateway, which runs its own
// credential handshake independent of the HTTP middleware chain.
func (h *NotificationHandler) Stream(c *gin.Context) {
	if h.gateway == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}
	h.gateway.ServeHTTP(c.Writer, c.Request)
}

func parseTimeQuery(c *gin.Context, key string) (time.Time, bool) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
