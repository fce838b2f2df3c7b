package entity

import "time"

// Post statuses
const (
	PostStatusActive  = "active"
	PostStatusPaused  = "paused"
	PostStatusExpired = "expired"
	PostStatusDeleted = "deleted"
)

// Post represents a time-bounded ride offer. Keys are the normalized
// comparison sets derived from the raw place texts at creation time.
type Post struct {
	ID               uint
	AuthorID         uint
	Role             string
	FromPlace        string
	ToPlace          string
	KeysFrom         []string
	KeysTo           []string
	DepartureTime    string
	Seats            *int
	Price            int
	Status           string
	ChannelMessageID *int64
	CreatedAt        time.Time
	ExpiresAt        time.Time
	UpdatedAt        time.Time
}

// Terminal reports whether the post is in a state no transition leaves.
func (p *Post) Terminal() bool {
	return p.Status == PostStatusExpired || p.Status == PostStatusDeleted
}

// Overdue reports whether the post's lifetime has elapsed at the given time.
func (p *Post) Overdue(now time.Time) bool {
	return !p.ExpiresAt.After(now)
}
