// One-off command to initialize the relational schema. Safe to re-run;
// AutoMigrate only adds what is missing.
package main

import (
	"poputchik-service/internal/infrastructure/config"
	"poputchik-service/internal/infrastructure/persistence"
	"poputchik-service/internal/interface/repository"
	"poputchik-service/pkg/logger"
)

func main() {
	log := logger.NewLogger()
	log.Info("Starting database initialization")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	gormDB, err := persistence.NewPostgresDB(cfg.PostgresURI)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", "error", err)
	}

	if err := repository.AutoMigrate(gormDB); err != nil {
		log.Fatal("Failed to migrate database", "error", err)
	}

	log.Info("Database initialized successfully")
}
