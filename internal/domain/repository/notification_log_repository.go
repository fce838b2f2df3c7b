package repository

import "context"

// NotificationLogRepository is the dedup ledger for match notifications.
type NotificationLogRepository interface {
	HasNotified(ctx context.Context, postID, recipientID uint) (bool, error)
	// RecordNotified inserts the (post, recipient) entry. It returns
	// false without error when the pair was already recorded, including
	// when a concurrent insert wins the race.
	RecordNotified(ctx context.Context, postID, recipientID uint) (bool, error)
}
