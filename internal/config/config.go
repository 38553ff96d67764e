package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Application
	Version     string
	Environment string
	ClientID    string
	Port        int
	LogLevel    string

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// TrackGuard backend
	BackendURL    string
	UploadPath    string
	StreamPath    string
	HealthPath    string
	AnalyticsPath string

	// Transport timing
	UploadTimeout     time.Duration
	HealthTimeout     time.Duration
	ReconnectDelay    time.Duration
	PingInterval      time.Duration
	AnalyticsInterval time.Duration

	// NATS alert publishing (empty URL disables)
	NatsURL            string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int
	AlertsSubject      string

	// Frame synchronization
	AssumedFrameRate float64

	// Alerting
	AutoDismissDelay time.Duration
	SoundEnabled     bool

	// Demo mode (health check failed)
	DemoFrameInterval time.Duration
	DemoFrameCount    int

	// Playback
	PlaybackTick time.Duration

	// Upload staging
	StagingDir string

	// Graceful Shutdown
	ShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		// Application
		Version:     getEnv("VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		ClientID:    getEnv("CLIENT_ID", "trackguard-1"),
		Port:        getEnvInt("PORT", 8080),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Logdy
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8081),

		// TrackGuard backend
		BackendURL:    getEnv("BACKEND_URL", "http://localhost:8000"),
		UploadPath:    getEnv("UPLOAD_PATH", "/upload-video/"),
		StreamPath:    getEnv("STREAM_PATH", "/ws"),
		HealthPath:    getEnv("HEALTH_PATH", "/health"),
		AnalyticsPath: getEnv("ANALYTICS_PATH", "/analytics/summary"),

		// Transport timing
		UploadTimeout:     getEnvDuration("UPLOAD_TIMEOUT", 60*time.Second),
		HealthTimeout:     getEnvDuration("HEALTH_TIMEOUT", 3*time.Second),
		ReconnectDelay:    getEnvDuration("RECONNECT_DELAY", 5*time.Second),
		PingInterval:      getEnvDuration("PING_INTERVAL", 30*time.Second),
		AnalyticsInterval: getEnvDuration("ANALYTICS_INTERVAL", 30*time.Second),

		// NATS
		NatsURL:            getEnv("NATS_URL", ""),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited
		AlertsSubject:      getEnv("ALERTS_SUBJECT", "trackguard.alerts"),

		// Frame synchronization
		AssumedFrameRate: getEnvFloat("ASSUMED_FRAME_RATE", 30),

		// Alerting
		AutoDismissDelay: getEnvDuration("AUTO_DISMISS_DELAY", 5*time.Second),
		SoundEnabled:     getEnvBool("SOUND_ENABLED", true),

		// Demo mode
		DemoFrameInterval: getEnvDuration("DEMO_FRAME_INTERVAL", 200*time.Millisecond),
		DemoFrameCount:    getEnvInt("DEMO_FRAME_COUNT", 5),

		// Playback
		PlaybackTick: getEnvDuration("PLAYBACK_TICK", 100*time.Millisecond),

		// Upload staging
		StagingDir: getEnv("STAGING_DIR", os.TempDir()),

		// Graceful Shutdown
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
