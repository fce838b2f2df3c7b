// internal/infrastructure/config/config.go
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// App
	AppVersion string

	// Server
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// PostgreSQL
	PostgresURI string

	// MongoDB
	MongoURI      string
	MongoDB       string
	MongoUser     string
	MongoPassword string

	// Telegram
	TelegramEndpoint string
	TelegramBotToken string
	ChannelID        string

	// Posts
	MaxPrice     int
	PostLifetime time.Duration

	// Workers
	ExpireInterval       time.Duration
	ExpireBatchSize      int
	DispatchPollInterval time.Duration
	DispatchBatchSize    int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	// Set defaults and override with env vars
	config := &Config{
		AppVersion:   getEnv("APP_VERSION", "1.0.0"),
		Port:         getEnv("PORT", "8080"),
		ReadTimeout:  time.Duration(getEnvAsInt("READ_TIMEOUT", 30)) * time.Second,
		WriteTimeout: time.Duration(getEnvAsInt("WRITE_TIMEOUT", 30)) * time.Second,

		PostgresURI: getEnv("POSTGRES_DSN", "postgres://localhost:5432/poputchik"),

		MongoURI:      getEnv("MONGODB_DSN", "mongodb://localhost:27017"),
		MongoDB:       getEnv("MONGO_DB", "poputchik"),
		MongoUser:     getEnv("MONGO_USER", ""),
		MongoPassword: getEnv("MONGO_PASSWORD", ""),

		TelegramEndpoint: getEnv("TELEGRAM_ENDPOINT", "https://api.telegram.org"),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		ChannelID:        getEnv("CHANNEL_ID", ""),

		MaxPrice:     getEnvAsInt("MAX_PRICE", 5000),
		PostLifetime: time.Duration(getEnvAsInt("POST_LIFETIME_MINUTES", 60)) * time.Minute,

		ExpireInterval:       time.Duration(getEnvAsInt("EXPIRE_INTERVAL", 60)) * time.Second,
		ExpireBatchSize:      getEnvAsInt("EXPIRE_BATCH_SIZE", 100),
		DispatchPollInterval: time.Duration(getEnvAsInt("DISPATCH_POLL_INTERVAL", 5)) * time.Second,
		DispatchBatchSize:    getEnvAsInt("DISPATCH_BATCH_SIZE", 50),
	}

	return config, nil
}

// Helper functions to get environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
