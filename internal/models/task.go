package models

import "time"

// Task is an escalation waiting in the notification queue.
type Task struct {
	RequestID string
	Alert     Alert
	QueuedAt  time.Time
}
