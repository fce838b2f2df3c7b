package entity

import "time"

// Dispatch kinds: which matching path produced the notification.
const (
	DispatchKindSubscription = "match_subscription"
	DispatchKindPost         = "match_post"
)

// Dispatch statuses
const (
	DispatchStatusPending = "pending"
	DispatchStatusSent    = "sent"
	DispatchStatusFailed  = "failed"
)

// PostSnapshot carries the post fields needed to compose a notification,
// frozen at enqueue time so later edits do not change queued messages.
type PostSnapshot struct {
	PostID        uint   `bson:"postId"`
	Role          string `bson:"role"`
	FromPlace     string `bson:"fromPlace"`
	ToPlace       string `bson:"toPlace"`
	DepartureTime string `bson:"departureTime"`
	Seats         *int   `bson:"seats,omitempty"`
	Price         int    `bson:"price"`
}

// AuthorSnapshot carries the author fields shown to the recipient.
type AuthorSnapshot struct {
	UserID         uint   `bson:"userId"`
	Name           string `bson:"name"`
	Rating         string `bson:"rating"`
	CarPhotoFileID string `bson:"carPhotoFileId,omitempty"`
}

// DispatchRequest is an outbox document: a fire-and-forget notification
// waiting to be delivered by the dispatch worker.
type DispatchRequest struct {
	ID                  string         `bson:"_id"`
	RecipientTelegramID int64          `bson:"recipientTelegramId"`
	RecipientID         uint           `bson:"recipientId"`
	Kind                string         `bson:"kind"`
	Post                PostSnapshot   `bson:"post"`
	Author              AuthorSnapshot `bson:"author"`
	Status              string         `bson:"status"`
	ErrorDetail         string         `bson:"errorDetail,omitempty"`
	CreatedAt           time.Time      `bson:"createdAt"`
	SentAt              *time.Time     `bson:"sentAt,omitempty"`
}
