package entity

import "time"

// NotificationKind selects the styling of a notification.
type NotificationKind string

const (
	KindInfo    NotificationKind = "info"
	KindSuccess NotificationKind = "success"
	KindError   NotificationKind = "error"
)

// ParseNotificationKind maps user input to a kind, defaulting to info.
func ParseNotificationKind(s string) NotificationKind {
	switch NotificationKind(s) {
	case KindSuccess:
		return KindSuccess
	case KindError:
		return KindError
	default:
		return KindInfo
	}
}

// Color is the background colour used for the kind.
func (k NotificationKind) Color() string {
	switch k {
	case KindSuccess:
		return "#4cc9f0"
	case KindError:
		return "#ef233c"
	default:
		return "#4361ee"
	}
}

// Notification is a transient message. At most one is live at a time.
type Notification struct {
	ID        string           `json:"id"`
	Message   string           `json:"message"`
	Kind      NotificationKind `json:"kind"`
	Color     string           `json:"color"`
	PostedAt  time.Time        `json:"posted_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}
