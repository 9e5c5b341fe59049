package models

import (
	"time"
)

// Notification channels.
const (
	NotificationChannelEmail = "email"
)

// NotificationRecipient is who should hear about an activity and how.
type NotificationRecipient struct {
	UserID  int64  `json:"UserId"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Channel string `json:"channel"`
}

// NotificationLogStatus for delivery.
const (
	NotificationLogStatusPending = "pending"
	NotificationLogStatusSent    = "sent"
	NotificationLogStatusFailed  = "failed"
)

// NotificationLog records a delivered (or failed) notification email.
type NotificationLog struct {
	ID             int64      `json:"id"`
	ActivityID     *int64     `json:"ActivityId,omitempty"`
	ActivityType   string     `json:"activityType"`
	RecipientEmail string     `json:"recipientEmail"`
	Subject        string     `json:"subject,omitempty"`
	Status         string     `json:"status"`
	SentAt         *time.Time `json:"sentAt,omitempty"`
	ErrorMessage   string     `json:"errorMessage,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}
