package persistence

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewPostgresDB opens a PostgreSQL connection through GORM. Error
// translation is enabled so unique-constraint violations surface as
// gorm.ErrDuplicatedKey for the conflict paths.
func NewPostgresDB(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
	})
}
