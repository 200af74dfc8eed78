package models

// Defaults holds the display fields derived from (kind, priority) at creation
// time. The mapping is fixed: records keep whatever was assigned when they
// were written, even if this table changes later.
type Defaults struct {
	Category string
	Icon     string
	Color    string
}

const defaultCategory = "general"

var kindDefaults = map[Kind]struct {
	category string
	icon     string
}{
	KindMeetingReminder:     {"meetings", "calendar"},
	KindGrantDeadline:       {"grants", "clock"},
	KindClientCommunication: {"clients", "mail"},
	KindSubmissionStatus:    {"submissions", "file-text"},
	KindSystemAlert:         {"system", "alert-triangle"},
	KindAICompletion:        {"ai", "sparkles"},
	KindEmailSent:           {"email", "send"},
	KindCollaboration:       {"collaboration", "users"},
	KindInfo:                {defaultCategory, "info"},
	KindSuccess:             {defaultCategory, "check-circle"},
	KindWarning:             {defaultCategory, "alert-circle"},
	KindError:               {defaultCategory, "x-circle"},
}

var priorityColors = map[Priority]string{
	PriorityLow:    "gray",
	PriorityMedium: "blue",
	PriorityHigh:   "orange",
	PriorityUrgent: "red",
}

// DeriveDefaults computes the category, icon and color for a notification.
// It is a pure function of (kind, priority).
func DeriveDefaults(kind Kind, priority Priority) Defaults {
	d := Defaults{Category: defaultCategory, Icon: "bell", Color: "blue"}

	if entry, ok := kindDefaults[kind]; ok {
		d.Category = entry.category
		d.Icon = entry.icon
	}
	if color, ok := priorityColors[priority]; ok {
		d.Color = color
	}
	return d
}

// ApplyDefaults fills category, icon and color on the notification when the
// caller left them empty. Called exactly once, before the record is inserted.
func (n *Notification) ApplyDefaults() {
	if n.Priority == "" {
		n.Priority = PriorityMedium
	}

	derived := DeriveDefaults(n.Kind, n.Priority)
	if n.Category == "" {
		n.Category = derived.Category
	}
	if n.Icon == "" {
		n.Icon = derived.Icon
	}
	if n.Color == "" {
		n.Color = derived.Color
	}
}
