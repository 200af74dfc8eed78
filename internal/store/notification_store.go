package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/arbordesk/notify/internal/models"
	apperrors "github.com/arbordesk/notify/pkg/errors"
)

const (
	// DefaultPageSize is applied when the caller does not bound the page.
	DefaultPageSize = 50
	// MaxPageSize caps caller-supplied limits.
	MaxPageSize = 200

	recentActivityWindow = 7 * 24 * time.Hour
)

// Filter narrows FindByUser results. Zero values mean "no constraint".
type Filter struct {
	Kind       models.Kind
	Category   string
	Priority   models.Priority
	UnreadOnly bool
	From       *time.Time
	To         *time.Time
}

// Stats aggregates a user's active notifications.
type Stats struct {
	Total          int64            `json:"total"`
	Unread         int64            `json:"unread"`
	ByKind         map[string]int64 `json:"by_kind"`
	ByPriority     map[string]int64 `json:"by_priority"`
	ByCategory     map[string]int64 `json:"by_category"`
	RecentActivity int64            `json:"recent_activity"`
}

// NotificationStore owns durable CRUD and query access to notification
// records. It enforces domain bounds at the persistence boundary and never
// partially applies an invalid write.
type NotificationStore struct {
	db  *gorm.DB
	now func() time.Time
}

// Option customises the store.
type Option func(*NotificationStore)

// WithNow overrides the clock used for expiry scoping, primarily for tests.
func WithNow(now func() time.Time) Option {
	return func(s *NotificationStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewNotificationStore constructs a store backed by the supplied database.
func NewNotificationStore(db *gorm.DB, opts ...Option) (*NotificationStore, error) {
	if db == nil {
		return nil, errors.New("notification store: db is required")
	}

	s := &NotificationStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Insert validates and persists a notification, deriving display defaults
// once at creation time. On success the record carries
// DeliveryStatus=delivered: delivery here means durably recorded.
func (s *NotificationStore) Insert(ctx context.Context, n *models.Notification) error {
	if n == nil {
		return apperrors.NewValidation("notification is required")
	}
	if err := validate(n); err != nil {
		return err
	}

	n.ApplyDefaults()
	n.DeliveryStatus = models.DeliveryDelivered

	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		n.DeliveryStatus = models.DeliveryFailed
		return apperrors.NewStore(err, "insert notification")
	}
	return nil
}

// FindByUser returns a page of the user's active notifications sorted by
// creation time descending, together with the filtered total and the user's
// overall active unread count.
func (s *NotificationStore) FindByUser(ctx context.Context, userID string, filter Filter, page, limit int) ([]models.Notification, int64, int64, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, 0, 0, apperrors.NewValidation("user id is required")
	}

	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if page <= 0 {
		page = 1
	}

	now := s.now()
	scoped := func() *gorm.DB {
		return s.applyFilter(s.active(ctx, now).Where("user_id = ?", userID), filter)
	}

	var total int64
	if err := scoped().Model(&models.Notification{}).Count(&total).Error; err != nil {
		return nil, 0, 0, apperrors.NewStore(err, "count notifications")
	}

	var rows []models.Notification
	if err := scoped().
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&rows).Error; err != nil {
		return nil, 0, 0, apperrors.NewStore(err, "list notifications")
	}

	var unread int64
	if err := s.active(ctx, now).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&unread).Error; err != nil {
		return nil, 0, 0, apperrors.NewStore(err, "count unread notifications")
	}

	return rows, total, unread, nil
}

// FindByID loads a single notification scoped to its owner.
func (s *NotificationStore) FindByID(ctx context.Context, userID, id string) (*models.Notification, error) {
	var n models.Notification
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewStore(err, "load notification")
	}
	return &n, nil
}

// MarkRead flags a notification as read. Marking an already-read notification
// succeeds and returns the unchanged record.
func (s *NotificationStore) MarkRead(ctx context.Context, userID, id string) (*models.Notification, error) {
	return s.setReadState(ctx, userID, id, true)
}

// MarkUnread clears the read flag.
func (s *NotificationStore) MarkUnread(ctx context.Context, userID, id string) (*models.Notification, error) {
	return s.setReadState(ctx, userID, id, false)
}

func (s *NotificationStore) setReadState(ctx context.Context, userID, id string, read bool) (*models.Notification, error) {
	n, err := s.FindByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if n.IsRead == read {
		return n, nil
	}

	updates := map[string]any{"is_read": read, "read_at": nil}
	var readAt *time.Time
	if read {
		now := s.now().UTC()
		readAt = &now
		updates["read_at"] = now
	}

	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates).Error; err != nil {
		return nil, apperrors.NewStore(err, "update read state")
	}

	n.IsRead = read
	n.ReadAt = readAt
	return n, nil
}

// MarkAllRead atomically flags every unread notification for the user.
// Returns the number of records modified; zero is a normal outcome.
func (s *NotificationStore) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	now := s.now().UTC()
	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "read_at": now})
	if result.Error != nil {
		return 0, apperrors.NewStore(result.Error, "mark all read")
	}
	return result.RowsAffected, nil
}

// RecordInteraction stamps the first user interaction on a notification and
// promotes its delivery status to seen. Later interactions leave the original
// stamp untouched.
func (s *NotificationStore) RecordInteraction(ctx context.Context, userID, id string, kind models.InteractionKind) (*models.Notification, error) {
	if !kind.Valid() {
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown interaction kind %q", kind))
	}

	n, err := s.FindByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if n.InteractedAt != nil {
		return n, nil
	}

	now := s.now().UTC()
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND interacted_at IS NULL", id, userID).
		Updates(map[string]any{
			"interacted_at":    now,
			"interaction_kind": kind,
			"delivery_status":  models.DeliverySeen,
		}).Error; err != nil {
		return nil, apperrors.NewStore(err, "record interaction")
	}

	n.InteractedAt = &now
	n.InteractionKind = kind
	n.DeliveryStatus = models.DeliverySeen
	return n, nil
}

// Delete removes a notification owned by the supplied user. Deleting another
// user's notification is indistinguishable from deleting an unknown id.
func (s *NotificationStore) Delete(ctx context.Context, userID, id string) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return apperrors.NewStore(result.Error, "delete notification")
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeleteAllForUser removes every notification belonging to the user.
func (s *NotificationStore) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, apperrors.NewStore(result.Error, "delete notifications")
	}
	return result.RowsAffected, nil
}

// SweepExpired purges notifications whose TTL passed at or before now.
func (s *NotificationStore) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, apperrors.NewStore(result.Error, "sweep expired notifications")
	}
	return result.RowsAffected, nil
}

// Stats aggregates the user's active notifications, counting recent activity
// over the trailing seven days.
func (s *NotificationStore) Stats(ctx context.Context, userID string) (*Stats, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.NewValidation("user id is required")
	}

	now := s.now()
	stats := &Stats{
		ByKind:     make(map[string]int64),
		ByPriority: make(map[string]int64),
		ByCategory: make(map[string]int64),
	}

	base := func() *gorm.DB {
		return s.active(ctx, now).
			Model(&models.Notification{}).
			Where("user_id = ?", userID)
	}

	if err := base().Count(&stats.Total).Error; err != nil {
		return nil, apperrors.NewStore(err, "count notifications")
	}
	if err := base().Where("is_read = ?", false).Count(&stats.Unread).Error; err != nil {
		return nil, apperrors.NewStore(err, "count unread notifications")
	}
	if err := base().Where("created_at >= ?", now.Add(-recentActivityWindow)).Count(&stats.RecentActivity).Error; err != nil {
		return nil, apperrors.NewStore(err, "count recent notifications")
	}

	groupings := []struct {
		column string
		into   map[string]int64
	}{
		{"kind", stats.ByKind},
		{"priority", stats.ByPriority},
		{"category", stats.ByCategory},
	}

	for _, g := range groupings {
		var rows []struct {
			Name  string
			Count int64
		}
		if err := base().
			Select(g.column + " AS name, COUNT(*) AS count").
			Group(g.column).
			Scan(&rows).Error; err != nil {
			return nil, apperrors.NewStore(err, "aggregate notifications by "+g.column)
		}
		for _, row := range rows {
			g.into[row.Name] = row.Count
		}
	}

	return stats, nil
}

// active scopes queries to notifications that have not passed their TTL.
// Expired records stay invisible even before the sweeper removes them.
func (s *NotificationStore) active(ctx context.Context, now time.Time) *gorm.DB {
	return s.db.WithContext(ctx).
		Where("expires_at IS NULL OR expires_at > ?", now)
}

func (s *NotificationStore) applyFilter(query *gorm.DB, filter Filter) *gorm.DB {
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if filter.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}
	return query
}

func validate(n *models.Notification) error {
	if strings.TrimSpace(n.UserID) == "" {
		return apperrors.NewValidation("user id is required")
	}
	if !n.Kind.Valid() {
		return apperrors.NewValidation(fmt.Sprintf("unknown notification kind %q", n.Kind))
	}
	if strings.TrimSpace(n.Title) == "" {
		return apperrors.NewValidation("title is required")
	}
	if len(n.Title) > models.MaxTitleLength {
		return apperrors.NewValidation(fmt.Sprintf("title exceeds %d characters", models.MaxTitleLength))
	}
	if strings.TrimSpace(n.Message) == "" {
		return apperrors.NewValidation("message is required")
	}
	if len(n.Message) > models.MaxMessageLength {
		return apperrors.NewValidation(fmt.Sprintf("message exceeds %d characters", models.MaxMessageLength))
	}
	if n.Priority != "" && !n.Priority.Valid() {
		return apperrors.NewValidation(fmt.Sprintf("unknown priority %q", n.Priority))
	}
	return nil
}
