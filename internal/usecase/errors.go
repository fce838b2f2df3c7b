package usecase

import "errors"

// Validation errors, rejected before anything is persisted.
var (
	ErrInvalidRole  = errors.New("role must be driver or passenger")
	ErrInvalidPrice = errors.New("price is out of range")
	ErrInvalidSeats = errors.New("seat count must be set for drivers only")
	ErrEmptyPlace   = errors.New("place description produced no route keys")
)

// Conflict and state errors, surfaced to the caller as user-visible
// conditions rather than failures.
var (
	ErrActivePostExists      = errors.New("author already has an active post")
	ErrDuplicateSubscription = errors.New("subscription for this route already exists")
	ErrPostNotFound          = errors.New("post not found")
	ErrSubscriptionNotFound  = errors.New("subscription not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrNotPostOwner          = errors.New("post belongs to another user")
	ErrPostTerminal          = errors.New("post is expired or withdrawn")
	ErrInvalidTransition     = errors.New("post state does not allow this change")
)
