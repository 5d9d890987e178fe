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

	// Remote store selection
	StoreBackend string // postgres | dynamodb | memory
	BlobBackend  string // s3 | memory
	DatabaseURL  string

	// Document store layout
	DatabaseID              string
	PatientCollectionID     string
	AppointmentCollectionID string
	DocumentsTable          string

	// Blob storage and the public view URL built from it
	BucketID              string
	ProjectID             string
	StoragePublicEndpoint string
	MaxUploadBytes        int64

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	RedisAddr         string
	RedisPassword     string
	RedisTLS          bool
	DashboardCacheTTL time.Duration

	AppointmentEventsQueueURL string

	// Email notifications
	EmailProvider  string // ses | sendgrid | none
	SendGridAPIKey string
	EmailFrom      string
	EmailFromName  string

	// SESConfigurationSet routes SES delivery events. Optional.
	SESConfigurationSet string
	// NotifyTimezone is the IANA zone appointment times are rendered in.
	NotifyTimezone      string

	AdminJWTSecret     string
	CORSAllowedOrigins []string
	PublicRateLimit    float64
	PublicRateBurst    int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreBackend: strings.ToLower(strings.TrimSpace(getEnv("STORE_BACKEND", "memory"))),
		BlobBackend:  strings.ToLower(strings.TrimSpace(getEnv("BLOB_BACKEND", "memory"))),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		DatabaseID:              getEnv("DATABASE_ID", "carepulse"),
		PatientCollectionID:     getEnv("PATIENT_COLLECTION_ID", "patients"),
		AppointmentCollectionID: getEnv("APPOINTMENT_COLLECTION_ID", "appointments"),
		DocumentsTable:          getEnv("DOCUMENTS_TABLE", "carepulse_documents"),

		BucketID:              getEnv("BUCKET_ID", "identification-documents"),
		ProjectID:             getEnv("PROJECT_ID", ""),
		StoragePublicEndpoint: strings.TrimRight(getEnv("STORAGE_PUBLIC_ENDPOINT", "http://localhost:8080"), "/"),
		MaxUploadBytes:        int64(getEnvAsInt("MAX_UPLOAD_BYTES", 10<<20)),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisTLS:          getEnvAsBool("REDIS_TLS", false),
		DashboardCacheTTL: getEnvAsDuration("DASHBOARD_CACHE_TTL", 5*time.Minute),

		AppointmentEventsQueueURL: getEnv("APPOINTMENT_EVENTS_QUEUE_URL", ""),

		EmailProvider:  strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "none"))),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		EmailFrom:      getEnv("EMAIL_FROM", ""),
		EmailFromName:  getEnv("EMAIL_FROM_NAME", "CarePulse"),

		SESConfigurationSet: getEnv("SES_CONFIGURATION_SET", ""),
		NotifyTimezone:      getEnv("NOTIFY_TIMEZONE", "UTC"),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		PublicRateLimit:    getEnvAsFloat("PUBLIC_RATE_LIMIT", 5),
		PublicRateBurst:    getEnvAsInt("PUBLIC_RATE_BURST", 20),
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
