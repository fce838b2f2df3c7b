package entity

import "time"

// User roles
const (
	RoleDriver    = "driver"
	RolePassenger = "passenger"
)

// ValidRole reports whether role is one of the two supported roles.
func ValidRole(role string) bool {
	return role == RoleDriver || role == RolePassenger
}

// OppositeRole returns the counterpart role for post-to-post matching.
func OppositeRole(role string) string {
	if role == RoleDriver {
		return RolePassenger
	}
	return RoleDriver
}

// User represents a registered participant. Registration itself is handled
// by the conversational front-end; this service only resolves users for
// notification composition.
type User struct {
	ID             uint
	TelegramID     int64
	Name           string
	Phone          string
	Role           string
	Rating         string
	CarPhotoFileID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
