package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the client engine and the Notify function read
// from the environment.
type Config struct {
	ProjectID       string
	CredentialsPath string
	PushEndpoint    string
	DefaultIcon     string
	TypingDebounce  time.Duration

	UsersCollection string
	ChatsCollection string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		ProjectID:       getEnv("FIRECHAT_PROJECT_ID", ""),
		CredentialsPath: getEnv("FIRECHAT_CREDENTIALS_FILE", ""),
		PushEndpoint:    getEnv("FIRECHAT_PUSH_ENDPOINT", "/api/send-notification"),
		DefaultIcon:     getEnv("FIRECHAT_DEFAULT_ICON", "/fire.png"),
		TypingDebounce:  getEnvAsDuration("FIRECHAT_TYPING_DEBOUNCE", 300*time.Millisecond),
		UsersCollection: getEnv("FIRECHAT_USERS_COLLECTION", "users"),
		ChatsCollection: getEnv("FIRECHAT_CHATS_COLLECTION", "chats"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.PushEndpoint == "" {
		return fmt.Errorf("FIRECHAT_PUSH_ENDPOINT is required")
	}
	if c.TypingDebounce <= 0 {
		return fmt.Errorf("FIRECHAT_TYPING_DEBOUNCE must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	if ms, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}
	return value
}
