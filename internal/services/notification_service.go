package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/arbordesk/notify/internal/models"
	"github.com/arbordesk/notify/internal/realtime"
	"github.com/arbordesk/notify/internal/store"
	apperrors "github.com/arbordesk/notify/pkg/errors"
	"github.com/arbordesk/notify/pkg/logger"
	"github.com/arbordesk/notify/pkg/metrics"
)

// deadlines this close get urgent priority instead of high.
const urgentDeadlineWindow = 3 * 24 * time.Hour

// Emitter is the hub capability the service depends on. It is injected at
// construction time; no component reaches into ambient state to emit.
type Emitter interface {
	EmitToUser(userID string, event realtime.Event) int
	IsUserConnected(userID string) bool
}

// NotificationDTO is the API-friendly notification payload. Realtime events
// carry the same shape so that clients converge on identical state whether a
// record arrives by push or by fetch.
type NotificationDTO struct {
	ID              string                 `json:"id"`
	UserID          string                 `json:"user_id"`
	Kind            models.Kind            `json:"kind"`
	Title           string                 `json:"title"`
	Message         string                 `json:"message"`
	Priority        models.Priority        `json:"priority"`
	Category        string                 `json:"category"`
	Icon            string                 `json:"icon"`
	Color           string                 `json:"color"`
	Payload         map[string]any         `json:"payload,omitempty"`
	ActionURL       string                 `json:"action_url,omitempty"`
	GroupID         string                 `json:"group_id,omitempty"`
	IsRead          bool                   `json:"is_read"`
	ReadAt          *time.Time             `json:"read_at,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	ExpiresAt       *time.Time             `json:"expires_at,omitempty"`
	InteractedAt    *time.Time             `json:"interacted_at,omitempty"`
	InteractionKind models.InteractionKind `json:"interaction_kind,omitempty"`
	DeliveryStatus  models.DeliveryStatus  `json:"delivery_status"`
}

// CreateNotificationInput defines attributes required to persist a notification.
type CreateNotificationInput struct {
	UserID    string
	Kind      models.Kind
	Title     string
	Message   string
	Priority  models.Priority
	Category  string
	Payload   map[string]any
	ActionURL string
	GroupID   string
	ExpiresAt *time.Time
}

// ListNotificationsInput defines filters for querying user notifications.
type ListNotificationsInput struct {
	UserID     string
	Kind       models.Kind
	Category   string
	Priority   models.Priority
	UnreadOnly bool
	From       *time.Time
	To         *time.Time
	Page       int
	Limit      int
}

// ListResult is one page of a user's notifications.
type ListResult struct {
	Items  []NotificationDTO `json:"items"`
	Total  int64             `json:"total"`
	Unread int64             `json:"unread"`
	Page   int               `json:"page"`
	Limit  int               `json:"limit"`
}

// NotificationService is the single entry point for notification reads and
// writes. Every durable mutation is followed by a best-effort realtime echo;
// a mutation that fails returns before any emission is attempted.
type NotificationService struct {
	store *store.NotificationStore
	hub   Emitter
	log   *zap.Logger
	now   func() time.Time
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(st *store.NotificationStore, hub Emitter) (*NotificationService, error) {
	if st == nil {
		return nil, errors.New("notification service: store is required")
	}
	return &NotificationService{
		store: st,
		hub:   hub,
		log:   logger.WithModule("notifications"),
		now:   time.Now,
	}, nil
}

// Create persists a notification and echoes it to the owner's live
// connections. Reaching zero connections is logged, never retried: the user
// sees the record on their next fetch.
func (s *NotificationService) Create(ctx context.Context, input CreateNotificationInput) (*NotificationDTO, error) {
	n := models.Notification{
		UserID:    strings.TrimSpace(input.UserID),
		Kind:      input.Kind,
		Title:     strings.TrimSpace(input.Title),
		Message:   strings.TrimSpace(input.Message),
		Priority:  input.Priority,
		Category:  strings.TrimSpace(input.Category),
		ActionURL: strings.TrimSpace(input.ActionURL),
		GroupID:   strings.TrimSpace(input.GroupID),
		ExpiresAt: input.ExpiresAt,
	}

	if input.Payload != nil {
		data, err := json.Marshal(input.Payload)
		if err != nil {
			return nil, apperrors.NewValidation("payload is not serialisable")
		}
		n.Payload = datatypes.JSON(data)
	}

	if err := s.store.Insert(ctx, &n); err != nil {
		return nil, err
	}

	dto := mapNotification(n)
	s.emit(n.UserID, realtime.Event{Event: realtime.EventNew, Data: &dto})
	return &dto, nil
}

// List is a pure read-through to the store; no hub interaction.
func (s *NotificationService) List(ctx context.Context, input ListNotificationsInput) (*ListResult, error) {
	filter := store.Filter{
		Kind:       input.Kind,
		Category:   strings.TrimSpace(input.Category),
		Priority:   input.Priority,
		UnreadOnly: input.UnreadOnly,
		From:       input.From,
		To:         input.To,
	}

	rows, total, unread, err := s.store.FindByUser(ctx, input.UserID, filter, input.Page, input.Limit)
	if err != nil {
		return nil, err
	}

	limit := input.Limit
	if limit <= 0 {
		limit = store.DefaultPageSize
	}
	page := input.Page
	if page <= 0 {
		page = 1
	}

	return &ListResult{
		Items:  mapNotificationRows(rows),
		Total:  total,
		Unread: unread,
		Page:   page,
		Limit:  limit,
	}, nil
}

// MarkRead flags one notification as read and lets the user's other sessions
// know without polling. Idempotent: a second call succeeds unchanged.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) (*NotificationDTO, error) {
	n, err := s.store.MarkRead(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	dto := mapNotification(*n)
	s.emit(userID, realtime.Event{Event: realtime.EventUpdate, Data: &dto})
	return &dto, nil
}

// MarkUnread clears the read flag and echoes the updated snapshot.
func (s *NotificationService) MarkUnread(ctx context.Context, userID, id string) (*NotificationDTO, error) {
	n, err := s.store.MarkUnread(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	dto := mapNotification(*n)
	s.emit(userID, realtime.Event{Event: realtime.EventUpdate, Data: &dto})
	return &dto, nil
}

// MarkAllRead flags every unread notification. The echo is only sent when
// something actually changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	modified, err := s.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}

	if modified > 0 {
		s.emit(userID, realtime.Event{Event: realtime.EventMarkAllRead})
	}
	return modified, nil
}

// RecordInteraction stamps the first user interaction and echoes the snapshot.
func (s *NotificationService) RecordInteraction(ctx context.Context, userID, id string, kind models.InteractionKind) (*NotificationDTO, error) {
	n, err := s.store.RecordInteraction(ctx, userID, id, kind)
	if err != nil {
		return nil, err
	}

	dto := mapNotification(*n)
	s.emit(userID, realtime.Event{Event: realtime.EventUpdate, Data: &dto})
	return &dto, nil
}

// Delete removes one notification owned by the caller.
func (s *NotificationService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.Delete(ctx, userID, id); err != nil {
		return err
	}

	s.emit(userID, realtime.Event{Event: realtime.EventDelete, Data: map[string]string{"id": id}})
	return nil
}

// ClearAll removes every notification for the user, echoing only when
// something was deleted.
func (s *NotificationService) ClearAll(ctx context.Context, userID string) (int64, error) {
	deleted, err := s.store.DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		s.emit(userID, realtime.Event{Event: realtime.EventClearAll})
	}
	return deleted, nil
}

// Stats is a read-through to the store aggregation.
func (s *NotificationService) Stats(ctx context.Context, userID string) (*store.Stats, error) {
	return s.store.Stats(ctx, userID)
}

// ExpireSweep purges notifications whose TTL has passed. Invoked on a fixed
// interval by the scheduler. No event is emitted: expired records silently
// drop out of the active view.
func (s *NotificationService) ExpireSweep(ctx context.Context) (int64, error) {
	swept, err := s.store.SweepExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}

	if swept > 0 {
		metrics.NotificationsSwept.Add(float64(swept))
		s.log.Info("expired notifications swept", zap.Int64("count", swept))
	}
	return swept, nil
}

// emit pushes a realtime event after a durable write has succeeded. Hub
// failures never escalate: durable success is the contract, live delivery is
// a courtesy.
func (s *NotificationService) emit(userID string, event realtime.Event) {
	if s.hub == nil {
		return
	}

	if reached := s.hub.EmitToUser(userID, event); reached == 0 {
		s.log.Debug("no live connections for realtime echo",
			zap.String("user_id", userID),
			zap.String("event", string(event.Event)),
		)
	}
}

func mapNotificationRows(rows []models.Notification) []NotificationDTO {
	items := make([]NotificationDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapNotification(row))
	}
	return items
}

func mapNotification(row models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:              row.ID,
		UserID:          row.UserID,
		Kind:            row.Kind,
		Title:           row.Title,
		Message:         row.Message,
		Priority:        row.Priority,
		Category:        row.Category,
		Icon:            row.Icon,
		Color:           row.Color,
		Payload:         decodePayload(row.Payload),
		ActionURL:       row.ActionURL,
		GroupID:         row.GroupID,
		IsRead:          row.IsRead,
		ReadAt:          row.ReadAt,
		CreatedAt:       row.CreatedAt,
		ExpiresAt:       row.ExpiresAt,
		InteractedAt:    row.InteractedAt,
		InteractionKind: row.InteractionKind,
		DeliveryStatus:  row.DeliveryStatus,
	}
}

func decodePayload(data datatypes.JSON) map[string]any {
	if len(data) == 0 {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

func pluralDays(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days <= 0 {
		return "today"
	}
	if days == 1 {
		return "in 1 day"
	}
	return fmt.Sprintf("in %d days", days)
}
