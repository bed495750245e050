package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// MongoDB Configuration
	MongoURI      string
	MongoDatabase string
	MongoTimeout  time.Duration

	// HTTP Server Configuration
	HTTPPort         string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration

	// Upstream (LibCal) Configuration
	UpstreamBaseURL    string
	UpstreamLID        int
	UpstreamGID        int
	UpstreamQuestionID string
	UpstreamAnswer     string
	UpstreamTimeout    time.Duration

	// Logging Configuration
	LogLevel  string
	LogFormat string

	// Scheduler Configuration
	SchedulerEnabled  bool
	SchedulerCronSpec string

	// Check Runner Configuration
	CheckWorkers int

	// Notification Configuration
	NotifyWebhookURL string
	NotifyTimeout    time.Duration
	KafkaBrokers     string
	KafkaTopic       string

	// CORS Configuration
	CORSAllowedOrigins   string
	CORSAllowedMethods   string
	CORSAllowedHeaders   string
	CORSAllowCredentials bool
	CORSMaxAge           int
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	return &Config{
		// MongoDB
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017/baruch_studyrooms?authSource=admin"),
		MongoDatabase: getEnv("MONGO_DATABASE", "baruch_studyrooms"),
		MongoTimeout:  getDurationEnv("MONGO_TIMEOUT_SEC", 10) * time.Second,

		// HTTP Server
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		HTTPReadTimeout:  getDurationEnv("HTTP_READ_TIMEOUT_SEC", 30) * time.Second,
		HTTPWriteTimeout: getDurationEnv("HTTP_WRITE_TIMEOUT_SEC", 60) * time.Second,

		// Upstream scheduling platform. The lid/gid identify the library
		// location and room group inside the platform; the question ID and
		// answer fill the mandatory eligibility question on the booking form.
		UpstreamBaseURL:    getEnv("UPSTREAM_BASE_URL", "https://libraryrooms.baruch.cuny.edu"),
		UpstreamLID:        getIntEnv("UPSTREAM_LID", 16857),
		UpstreamGID:        getIntEnv("UPSTREAM_GID", 35704),
		UpstreamQuestionID: getEnv("UPSTREAM_QUESTION_ID", "q25689"),
		UpstreamAnswer:     getEnv("UPSTREAM_ANSWER", "Current student at Baruch or CUNY SPS"),
		UpstreamTimeout:    getDurationEnv("UPSTREAM_TIMEOUT_SEC", 12) * time.Second,

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// In-process scheduler (disable when an external cron drives
		// checks). Sweep concurrency is bounded by the worker pool, so
		// CHECK_WORKERS is the knob that caps it.
		SchedulerEnabled:  getBoolEnv("SCHEDULER_ENABLED", false),
		SchedulerCronSpec: getEnv("SCHEDULER_CRON", "*/5 * * * *"),

		// Check runner
		CheckWorkers: getIntEnv("CHECK_WORKERS", 4),

		// Notifications
		NotifyWebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		NotifyTimeout:    getDurationEnv("NOTIFY_TIMEOUT_SEC", 10) * time.Second,
		KafkaBrokers:     getEnv("KAFKA_BROKERS", ""),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "studyrooms.monitoring.events"),

		// CORS
		CORSAllowedOrigins:   getEnv("CORS_ALLOWED_ORIGINS", "*"),
		CORSAllowedMethods:   getEnv("CORS_ALLOWED_METHODS", "GET, POST, OPTIONS"),
		CORSAllowedHeaders:   getEnv("CORS_ALLOWED_HEADERS", "*"),
		CORSAllowCredentials: getBoolEnv("CORS_ALLOW_CREDENTIALS", true),
		CORSMaxAge:           getIntEnv("CORS_MAX_AGE", 3600),
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return time.Duration(intVal)
		}
		log.Printf("Warning: Invalid duration value for %s, using default %d", key, defaultValue)
	}
	return time.Duration(defaultValue)
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
		log.Printf("Warning: Invalid boolean value for %s, using default %t", key, defaultValue)
	}
	return defaultValue
}
