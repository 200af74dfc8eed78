package models

import (
	"time"

	"gorm.io/datatypes"
)

// Kind identifies what a notification is about. The set is closed; the store
// rejects values outside it.
type Kind string

const (
	KindMeetingReminder     Kind = "meeting_reminder"
	KindGrantDeadline       Kind = "grant_deadline"
	KindClientCommunication Kind = "client_communication"
	KindSubmissionStatus    Kind = "submission_status"
	KindSystemAlert         Kind = "system_alert"
	KindAICompletion        Kind = "ai_completion"
	KindEmailSent           Kind = "email_sent"
	KindCollaboration       Kind = "collaboration"
	KindInfo                Kind = "info"
	KindSuccess             Kind = "success"
	KindWarning             Kind = "warning"
	KindError               Kind = "error"
)

// Valid reports whether the kind belongs to the closed set.
func (k Kind) Valid() bool {
	switch k {
	case KindMeetingReminder, KindGrantDeadline, KindClientCommunication,
		KindSubmissionStatus, KindSystemAlert, KindAICompletion,
		KindEmailSent, KindCollaboration, KindInfo, KindSuccess,
		KindWarning, KindError:
		return true
	}
	return false
}

// Priority affects default visual weight, never delivery order.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether the priority belongs to the closed set.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// DeliveryStatus tracks whether a notification was durably recorded, not
// whether it was pushed over a live connection.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
	DeliverySeen      DeliveryStatus = "seen"
)

// InteractionKind records how the user first acted on a notification.
type InteractionKind string

const (
	InteractionClicked   InteractionKind = "clicked"
	InteractionDismissed InteractionKind = "dismissed"
	InteractionArchived  InteractionKind = "archived"
)

// Valid reports whether the interaction kind belongs to the closed set.
func (k InteractionKind) Valid() bool {
	switch k {
	case InteractionClicked, InteractionDismissed, InteractionArchived:
		return true
	}
	return false
}

// Field length bounds enforced at the store boundary.
const (
	MaxTitleLength   = 200
	MaxMessageLength = 1000
)

// Notification represents a durable in-app notification for a user.
//
// Category, Icon and Color are derived once at creation time from
// (Kind, Priority) when the caller does not supply them; they are never
// recomputed afterwards.
type Notification struct {
	BaseModel

	UserID   string   `gorm:"type:uuid;not null;index:idx_notif_user_read,priority:1;index:idx_notif_user_kind,priority:1;index:idx_notif_user_category,priority:1" json:"user_id"`
	Kind     Kind     `gorm:"type:varchar(64);not null;index:idx_notif_user_kind,priority:2" json:"kind"`
	Title    string   `gorm:"type:varchar(200);not null" json:"title"`
	Message  string   `gorm:"type:varchar(1000);not null" json:"message"`
	Priority Priority `gorm:"type:varchar(16);default:'medium'" json:"priority"`
	Category string   `gorm:"type:varchar(64);index:idx_notif_user_category,priority:2" json:"category"`
	Icon     string   `gorm:"type:varchar(64)" json:"icon"`
	Color    string   `gorm:"type:varchar(32)" json:"color"`

	Payload   datatypes.JSON `json:"payload"`
	ActionURL string         `gorm:"type:text" json:"action_url"`
	GroupID   string         `gorm:"type:varchar(128);index" json:"group_id,omitempty"`

	IsRead bool       `gorm:"default:false;index:idx_notif_user_read,priority:2" json:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty"`

	ExpiresAt *time.Time `gorm:"index" json:"expires_at,omitempty"`

	InteractedAt    *time.Time      `json:"interacted_at,omitempty"`
	InteractionKind InteractionKind `gorm:"type:varchar(32)" json:"interaction_kind,omitempty"`

	DeliveryStatus DeliveryStatus `gorm:"type:varchar(16);default:'pending'" json:"delivery_status"`
}

// Expired reports whether the notification's TTL has passed at the given time.
// Expired notifications are excluded from active views even before the sweeper
// physically removes them.
func (n *Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && !n.ExpiresAt.After(now)
}
