package config

import (
	"os"

	"github.com/joho/godotenv"
)

// DefaultXrayBaseURL is the Xray cloud API host.
const DefaultXrayBaseURL = "https://xray.cloud.getxray.app"

// Config holds the healing-report server configuration.
type Config struct {
	DatabaseURL string
	APIKey      string
	Port        string
	LogLevel    string
	LogFormat   string
}

// XrayConfig holds the Xray upload configuration.
type XrayConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	JUnitPath    string
	TestExecKey  string
	LogLevel     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/self_healing?sslmode=disable"),
		APIKey:      getEnv("API_KEY", ""),
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "console"),
	}

	return cfg, nil
}

func LoadXray() (*XrayConfig, error) {
	_ = godotenv.Load()

	cfg := &XrayConfig{
		BaseURL:      getEnv("XRAY_BASE_URL", DefaultXrayBaseURL),
		ClientID:     getEnv("XRAY_CLIENT_ID", ""),
		ClientSecret: getEnv("XRAY_CLIENT_SECRET", ""),
		JUnitPath:    getEnv("JUNIT_PATH", "test-results/results.xml"),
		TestExecKey:  getEnv("XRAY_TEST_EXEC", ""),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
