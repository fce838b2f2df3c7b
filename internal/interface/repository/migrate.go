package repository

import "gorm.io/gorm"

// AutoMigrate creates or updates the relational tables this service owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Users{},
		&Posts{},
		&Subscriptions{},
		&NotificationLogs{},
	)
}
