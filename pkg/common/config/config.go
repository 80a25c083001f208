package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Uploads
	UploadDir         string
	AllowedExtensions []string

	// OCR
	OCREngine     string
	OCRServiceURL string
	GeminiAPIKey  string
	GeminiModel   string

	// Risk model
	RiskScorer     string
	RiskModelDir   string
	RiskModelName  string
	RiskServingURL string

	// Recommendations
	Recommender            string
	LLMAPIKey              string
	LLMBaseURL             string
	LLMModelName           string
	RecommendationCacheTTL time.Duration

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisEnabled  bool

	// Kafka
	KafkaBrokers    []string
	KafkaGroupID    string
	KafkaAuditTopic string

	// OIDC
	OIDCIssuer        string
	OIDCTokenCacheTTL time.Duration

	// Gateway
	OutboundTimeout time.Duration
	RateLimitRPS    int
	RateLimitBurst  int

	DLPRulesPath string
}

// Load reads the configuration from the environment, after applying a .env
// file from the working directory when one exists.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "5002"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 120*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 16*1024*1024)),

		UploadDir:         getEnv("UPLOAD_DIR", "uploads"),
		AllowedExtensions: getStringSliceEnv("UPLOAD_ALLOWED_EXTENSIONS", []string{"png", "jpg", "jpeg", "webp"}),

		OCREngine:     getEnv("OCR_ENGINE", "gemini"),
		OCRServiceURL: getEnv("OCR_SERVICE_URL", ""),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-1.5-flash"),

		RiskScorer:     getEnv("RISK_SCORER", "artifact"),
		RiskModelDir:   getEnv("RISK_MODEL_DIR", "models"),
		RiskModelName:  getEnv("RISK_MODEL_NAME", "health-risk"),
		RiskServingURL: getEnv("RISK_SERVING_URL", ""),

		Recommender:            getEnv("RECOMMENDER", "rules"),
		LLMAPIKey:              getEnv("LLM_API_KEY", ""),
		LLMBaseURL:             getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMModelName:           getEnv("LLM_MODEL_NAME", "gpt-4o-mini"),
		RecommendationCacheTTL: getDuration("RECOMMENDATION_CACHE_TTL", 10*time.Minute),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "healthtwin"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "healthtwin"),
		PostgresDB:       getEnv("POSTGRES_DB", "healthtwin"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),
		RedisEnabled:  getBoolEnv("REDIS_ENABLED", false),

		KafkaBrokers:    getStringSliceEnv("KAFKA_BROKERS", nil),
		KafkaGroupID:    getEnv("KAFKA_GROUP_ID", "healthtwin-auditor"),
		KafkaAuditTopic: getEnv("KAFKA_AUDIT_TOPIC", "healthtwin.audit"),

		OIDCIssuer:        getEnv("OIDC_ISSUER", ""),
		OIDCTokenCacheTTL: getDuration("OIDC_TOKEN_CACHE_TTL", 60*time.Second),

		OutboundTimeout: getDuration("OUTBOUND_TIMEOUT", 60*time.Second),
		RateLimitRPS:    getIntEnv("RATE_LIMIT_RPS", 50),
		RateLimitBurst:  getIntEnv("RATE_LIMIT_BURST", 100),

		DLPRulesPath: getEnv("DLP_RULES_PATH", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getStringSliceEnv splits a comma separated value, dropping blank entries.
func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
