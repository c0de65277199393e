package model

import "time"

// NotificationKind controls how a status message is presented.
type NotificationKind string

// Notification kinds.
const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
	NotifyWarning NotificationKind = "warning"
	NotifyInfo    NotificationKind = "info"
)

// Notification is a user-visible status message about an operation.
type Notification struct {
	Kind NotificationKind `json:"kind"`

	// Message is the human-readable notification text.
	Message string `json:"message"`

	// Retry offers a reload affordance alongside a failed write.
	Retry bool `json:"retry,omitempty"`

	// Undo offers to reverse the operation that produced the message.
	Undo bool `json:"undo,omitempty"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at"`
}
