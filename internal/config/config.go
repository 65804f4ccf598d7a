package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the environment-driven settings for both the chat client and
// the development backend.
type Config struct {
	// Client side.
	APIBaseURL       string
	ChatToken        string
	TelegramBotToken string
	TelegramChatID   int64

	// Dev backend.
	ServerPort  string
	DatabaseDSN string
	RedisAddr   string
	JWTSecret   string
	AgentKey    string
	Environment string
}

// Load reads .env when present and falls back to defaults suitable for local
// development.
func Load() *Config {
	godotenv.Load()

	return &Config{
		APIBaseURL:       getEnv("API_BASE_URL", "http://localhost:8080"),
		ChatToken:        getEnv("CHAT_TOKEN", ""),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnvAsInt64("TELEGRAM_CHAT_ID", 0),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		DatabaseDSN:      getEnv("DATABASE_DSN", "host=localhost user=user password=password dbname=errandchat port=5432 sslmode=disable"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		JWTSecret:        getEnv("JWT_SECRET", "dev-only-secret"),
		AgentKey:         getEnv("AGENT_KEY", ""),
		Environment:      getEnv("ENVIRONMENT", "development"),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
