package entity

import "time"

// NotificationLogEntry is the dedup record behind at-most-once delivery.
// At most one entry exists per (post, recipient) pair; the row is created
// when a dispatch is enqueued and never updated.
type NotificationLogEntry struct {
	ID          uint
	PostID      uint
	RecipientID uint
	CreatedAt   time.Time
}
