package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Detection thresholds
	CautiousThreshold   float64
	AggressiveThreshold float64
	FastPathThreshold   float64
	FallbackConfidence  float64

	// Engagement limits
	MaxTurns       int
	MaxDuration    time.Duration
	StaleTurnLimit int
	ExitPriority   []string
	RequiredKinds  []string

	// LLM collaborators
	BedrockModelID    string
	GeminiAPIKey      string
	GeminiModelID     string
	ClassifierTimeout time.Duration
	EngagementTimeout time.Duration

	// Session snapshots
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	SessionTTL    time.Duration

	// Reporting
	DatabaseURL    string
	ReportQueueURL string
	UseMemoryQueue bool
	WorkerCount    int

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		CautiousThreshold:   getEnvAsFloat("CAUTIOUS_THRESHOLD", 0.60),
		AggressiveThreshold: getEnvAsFloat("AGGRESSIVE_THRESHOLD", 0.85),
		FastPathThreshold:   getEnvAsFloat("FAST_PATH_THRESHOLD", 0.90),
		FallbackConfidence:  getEnvAsFloat("FALLBACK_CONFIDENCE", 0.50),

		MaxTurns:       getEnvAsInt("MAX_TURNS", 20),
		MaxDuration:    getEnvAsDuration("MAX_DURATION", 30*time.Minute),
		StaleTurnLimit: getEnvAsInt("STALE_TURN_LIMIT", 5),
		ExitPriority: getEnvAsSlice("EXIT_PRIORITY", []string{
			"turns", "duration", "complete", "suspicious", "stale",
		}),
		RequiredKinds: getEnvAsSlice("REQUIRED_KINDS", nil),

		BedrockModelID:    getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:     getEnv("GEMINI_MODEL_ID", "gemini-2.0-flash"),
		ClassifierTimeout: getEnvAsDuration("CLASSIFIER_TIMEOUT", 10*time.Second),
		EngagementTimeout: getEnvAsDuration("ENGAGEMENT_TIMEOUT", 20*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", 24*time.Hour),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		ReportQueueURL: getEnv("REPORT_QUEUE_URL", ""),
		UseMemoryQueue: getEnvAsBool("USE_MEMORY_QUEUE", false),
		WorkerCount:    getEnvAsInt("WORKER_COUNT", 2),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsFloat retrieves an environment variable as a float or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsSlice retrieves a comma-separated environment variable as a string
// slice, trimming whitespace around each element.
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
