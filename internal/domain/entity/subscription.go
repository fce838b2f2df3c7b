package entity

import "time"

// Subscription represents a standing, non-expiring interest in a route.
type Subscription struct {
	ID        uint
	UserID    uint
	KeysFrom  []string
	KeysTo    []string
	FromText  string
	ToText    string
	CreatedAt time.Time
}
