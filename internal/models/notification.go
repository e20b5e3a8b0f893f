package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is one escalation dispatched after a grace period expired.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Alert     Alert     `json:"alert"`
}

// Notification statuses.
const (
	NotificationPending    = "pending"
	NotificationSuccess    = "success"
	NotificationFailed     = "failed"
	NotificationSuppressed = "suppressed"
)
