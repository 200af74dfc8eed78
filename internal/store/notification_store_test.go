package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arbordesk/notify/internal/database/testutil"
	"github.com/arbordesk/notify/internal/models"
	apperrors "github.com/arbordesk/notify/pkg/errors"
)

func newTestStore(t *testing.T, opts ...Option) *NotificationStore {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	s, err := NewNotificationStore(db, opts...)
	require.NoError(t, err)
	return s
}

func seedNotification(t *testing.T, s *NotificationStore, userID string, mutate ...func(*models.Notification)) *models.Notification {
	t.Helper()

	n := &models.Notification{
		UserID:  userID,
		Kind:    models.KindInfo,
		Title:   "Quarterly report ready",
		Message: "The Q3 report finished rendering.",
	}
	for _, m := range mutate {
		m(n)
	}
	require.NoError(t, s.Insert(context.Background(), n))
	return n
}

func TestInsertAppliesDefaultsAndDeliveryStatus(t *testing.T) {
	s := newTestStore(t)

	n := seedNotification(t, s, "user-1", func(n *models.Notification) {
		n.Kind = models.KindGrantDeadline
	})

	require.NotEmpty(t, n.ID)
	require.Equal(t, models.DeliveryDelivered, n.DeliveryStatus)
	require.Equal(t, models.PriorityMedium, n.Priority)
	require.Equal(t, "grants", n.Category)
	require.NotEmpty(t, n.Icon)
	require.NotEmpty(t, n.Color)

	stored, err := s.FindByID(context.Background(), "user-1", n.ID)
	require.NoError(t, err)
	require.Equal(t, models.DeliveryDelivered, stored.DeliveryStatus)
	require.Equal(t, stored.Category, n.Category)
}

func TestInsertKeepsCallerSuppliedDisplayFields(t *testing.T) {
	s := newTestStore(t)

	n := seedNotification(t, s, "user-1", func(n *models.Notification) {
		n.Kind = models.KindSystemAlert
		n.Priority = models.PriorityUrgent
		n.Category = "ops"
		n.Icon = "siren"
		n.Color = "purple"
	})

	require.Equal(t, "ops", n.Category)
	require.Equal(t, "siren", n.Icon)
	require.Equal(t, "purple", n.Color)
}

func TestInsertValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*models.Notification)
	}{
		{"missing user", func(n *models.Notification) { n.UserID = "" }},
		{"unknown kind", func(n *models.Notification) { n.Kind = "carrier_pigeon" }},
		{"missing title", func(n *models.Notification) { n.Title = "" }},
		{"title too long", func(n *models.Notification) { n.Title = strings.Repeat("a", models.MaxTitleLength+1) }},
		{"missing message", func(n *models.Notification) { n.Message = "  " }},
		{"message too long", func(n *models.Notification) { n.Message = strings.Repeat("b", models.MaxMessageLength+1) }},
		{"unknown priority", func(n *models.Notification) { n.Priority = "blocker" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := &models.Notification{
				UserID:  "user-1",
				Kind:    models.KindInfo,
				Title:   "title",
				Message: "message",
			}
			tc.mutate(n)

			err := s.Insert(ctx, n)
			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestFindByUserPaginationAndOrdering(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithNow(func() time.Time { return base }))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		n := seedNotification(t, s, "user-1")
		// Space creation times out so ordering is deterministic.
		created := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.db.Model(&models.Notification{}).
			Where("id = ?", n.ID).
			Update("created_at", created).Error)
	}
	seedNotification(t, s, "user-2")

	rows, total, unread, err := s.FindByUser(ctx, "user-1", Filter{}, 1, 2)
	require.NoError(t, err)
	require.EqualValues(t, 5, total)
	require.EqualValues(t, 5, unread)
	require.Len(t, rows, 2)
	require.True(t, rows[0].CreatedAt.After(rows[1].CreatedAt))

	rows, _, _, err = s.FindByUser(ctx, "user-1", Filter{}, 3, 2)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestFindByUserFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedNotification(t, s, "user-1", func(n *models.Notification) {
		n.Kind = models.KindMeetingReminder
	})
	read := seedNotification(t, s, "user-1", func(n *models.Notification) {
		n.Kind = models.KindEmailSent
		n.Priority = models.PriorityLow
	})
	_, err := s.MarkRead(ctx, "user-1", read.ID)
	require.NoError(t, err)

	rows, total, _, err := s.FindByUser(ctx, "user-1", Filter{Kind: models.KindMeetingReminder}, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, models.KindMeetingReminder, rows[0].Kind)

	rows, _, _, err = s.FindByUser(ctx, "user-1", Filter{UnreadOnly: true}, 1, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.False(t, rows[0].IsRead)

	rows, _, _, err = s.FindByUser(ctx, "user-1", Filter{Priority: models.PriorityLow}, 1, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, models.KindEmailSent, rows[0].Kind)

	rows, _, _, err = s.FindByUser(ctx, "user-1", Filter{Category: "meetings"}, 1, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestFindByUserExcludesExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithNow(func() time.Time { return now }))
	ctx := context.Background()

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	expired := seedNotification(t, s, "user-1", func(n *models.Notification) { n.ExpiresAt = &past })
	seedNotification(t, s, "user-1", func(n *models.Notification) { n.ExpiresAt = &future })
	seedNotification(t, s, "user-1")

	rows, total, unread, err := s.FindByUser(ctx, "user-1", Filter{}, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.EqualValues(t, 2, unread)
	require.Len(t, rows, 2)
	for _, row := range rows {
		require.NotEqual(t, expired.ID, row.ID)
	}

	// Still excluded when filtering to unread, despite being unread itself.
	rows, _, _, err = s.FindByUser(ctx, "user-1", Filter{UnreadOnly: true}, 1, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		require.NotEqual(t, expired.ID, row.ID)
	}
}

func TestMarkReadIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	n := seedNotification(t, s, "user-1")

	first, err := s.MarkRead(ctx, "user-1", n.ID)
	require.NoError(t, err)
	require.True(t, first.IsRead)
	require.NotNil(t, first.ReadAt)

	second, err := s.MarkRead(ctx, "user-1", n.ID)
	require.NoError(t, err)
	require.True(t, second.IsRead)
	require.Equal(t, first.ReadAt.Unix(), second.ReadAt.Unix())
}

func TestMarkUnreadClearsReadAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	n := seedNotification(t, s, "user-1")

	_, err := s.MarkRead(ctx, "user-1", n.ID)
	require.NoError(t, err)

	updated, err := s.MarkUnread(ctx, "user-1", n.ID)
	require.NoError(t, err)
	require.False(t, updated.IsRead)
	require.Nil(t, updated.ReadAt)
}

func TestMarkReadUnknownOrForeignID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	n := seedNotification(t, s, "user-1")

	_, err := s.MarkRead(ctx, "user-1", "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	// Another user's record must be indistinguishable from a missing one.
	_, err = s.MarkRead(ctx, "user-2", n.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMarkAllRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		seedNotification(t, s, "user-1")
	}
	seedNotification(t, s, "user-2")

	modified, err := s.MarkAllRead(ctx, "user-1")
	require.NoError(t, err)
	require.EqualValues(t, 3, modified)

	modified, err = s.MarkAllRead(ctx, "user-1")
	require.NoError(t, err)
	require.Zero(t, modified)

	_, _, unread, err := s.FindByUser(ctx, "user-2", Filter{}, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, unread)
}

func TestRecordInteractionStampsOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	n := seedNotification(t, s, "user-1")

	first, err := s.RecordInteraction(ctx, "user-1", n.ID, models.InteractionClicked)
	require.NoError(t, err)
	require.NotNil(t, first.InteractedAt)
	require.Equal(t, models.InteractionClicked, first.InteractionKind)
	require.Equal(t, models.DeliverySeen, first.DeliveryStatus)

	second, err := s.RecordInteraction(ctx, "user-1", n.ID, models.InteractionDismissed)
	require.NoError(t, err)
	require.Equal(t, models.InteractionClicked, second.InteractionKind)
	require.Equal(t, first.InteractedAt.Unix(), second.InteractedAt.Unix())
}

func TestRecordInteractionRejectsUnknownKind(t *testing.T) {
	s := newTestStore(t)
	n := seedNotification(t, s, "user-1")

	_, err := s.RecordInteraction(context.Background(), "user-1", n.ID, "poked")
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestDeleteScopedToOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	n := seedNotification(t, s, "user-1")

	require.ErrorIs(t, s.Delete(ctx, "user-2", n.ID), apperrors.ErrNotFound)
	require.NoError(t, s.Delete(ctx, "user-1", n.ID))
	require.ErrorIs(t, s.Delete(ctx, "user-1", n.ID), apperrors.ErrNotFound)
}

func TestDeleteAllForUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedNotification(t, s, "user-1")
	seedNotification(t, s, "user-1")
	seedNotification(t, s, "user-2")

	deleted, err := s.DeleteAllForUser(ctx, "user-1")
	require.NoError(t, err)
	require.EqualValues(t, 2, deleted)

	_, total, _, err := s.FindByUser(ctx, "user-2", Filter{}, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
}

func TestSweepExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithNow(func() time.Time { return now }))
	ctx := context.Background()

	past := now.Add(-time.Minute)
	boundary := now
	future := now.Add(time.Minute)
	seedNotification(t, s, "user-1", func(n *models.Notification) { n.ExpiresAt = &past })
	seedNotification(t, s, "user-1", func(n *models.Notification) { n.ExpiresAt = &boundary })
	keep := seedNotification(t, s, "user-1", func(n *models.Notification) { n.ExpiresAt = &future })
	seedNotification(t, s, "user-1")

	swept, err := s.SweepExpired(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 2, swept)

	_, err = s.FindByID(ctx, "user-1", keep.ID)
	require.NoError(t, err)
}

func TestStats(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithNow(func() time.Time { return now }))
	ctx := context.Background()

	seedNotification(t, s, "user-1", func(n *models.Notification) {
		n.Kind = models.KindMeetingReminder
		n.Priority = models.PriorityHigh
	})
	read := seedNotification(t, s, "user-1", func(n *models.Notification) {
		n.Kind = models.KindMeetingReminder
	})
	seedNotification(t, s, "user-1", func(n *models.Notification) {
		n.Kind = models.KindSystemAlert
		n.Priority = models.PriorityUrgent
	})
	seedNotification(t, s, "user-2")

	_, err := s.MarkRead(ctx, "user-1", read.ID)
	require.NoError(t, err)

	stats, err := s.Stats(ctx, "user-1")
	require.NoError(t, err)
	require.EqualValues(t, 3, stats.Total)
	require.EqualValues(t, 2, stats.Unread)
	require.EqualValues(t, 2, stats.ByKind[string(models.KindMeetingReminder)])
	require.EqualValues(t, 1, stats.ByKind[string(models.KindSystemAlert)])
	require.EqualValues(t, 1, stats.ByPriority[string(models.PriorityUrgent)])
	require.EqualValues(t, 2, stats.ByCategory["meetings"])
	require.EqualValues(t, 3, stats.RecentActivity)
}

func TestStatsExcludesExpired(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithNow(func() time.Time { return now }))

	past := now.Add(-time.Second)
	seedNotification(t, s, "user-1", func(n *models.Notification) { n.ExpiresAt = &past })
	seedNotification(t, s, "user-1")

	stats, err := s.Stats(context.Background(), "user-1")
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.Total)
}
