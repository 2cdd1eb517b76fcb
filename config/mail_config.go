package config

import (
	"os"
	"strconv"
	"strings"
)

// Token source selects where the OAuth credential is persisted.
const (
	TokenSourceFile = "file"
	TokenSourceEnv  = "env"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// API key guarding the mail endpoints (empty disables the guard)
	APIKey string

	// OAuth - Google
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	GoogleProjectID    string
	GmailScopes        []string

	// Credential persistence
	TokenSource string
	TokenPath   string
	GmailToken  string // serialized credential JSON (env source)

	// Redis (OAuth state + webhook idempotency; optional)
	RedisURL string

	// OpenAI
	OpenAIAPIKey   string
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64

	// Mail defaults
	DefaultMaxResults int
	ExpenseQuery      string
	WatchAutoRenew    bool

	// CORS
	AllowedOrigins []string
}

func Load() (*Config, error) {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		APIKey: getEnv("API_KEY", ""),

		// OAuth - Google
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("OAUTH_REDIRECT_URI", "http://localhost:8080/oauth/callback"),
		GoogleProjectID:    getEnv("GOOGLE_PROJECT_ID", ""),
		GmailScopes: getEnvSlice("GMAIL_SCOPES", []string{
			"https://www.googleapis.com/auth/gmail.readonly",
		}),

		// Credential persistence
		TokenSource: getEnv("TOKEN_SOURCE", TokenSourceFile),
		TokenPath:   getEnv("TOKEN_PATH", "token.json"),
		GmailToken:  getEnv("GMAIL_TOKEN", ""),

		RedisURL: getEnv("REDIS_URL", ""),

		// OpenAI
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 1024),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.0),

		// Mail defaults
		DefaultMaxResults: getEnvInt("DEFAULT_MAX_RESULTS", 10),
		ExpenseQuery:      getEnv("EXPENSE_QUERY", ""),
		WatchAutoRenew:    getEnvBool("WATCH_AUTO_RENEW", true),

		// CORS
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
