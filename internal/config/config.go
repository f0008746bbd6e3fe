package config

import (
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Application
	Version     string
	Environment string `validate:"required"`
	WorkerID    string `validate:"required"`
	Port        int    `validate:"min=1,max=65535"`
	GRPCPort    int    `validate:"min=0,max=65535"` // 0 disables the gRPC health server
	LogLevel    string `validate:"oneof=trace debug info warn error fatal panic disabled"`

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// NATS (crossing and report events)
	// Default: nats://localhost:4222 (works with Docker Compose setup)
	// Docker: Use nats://nats:4222 if running in Docker
	NatsEnabled        bool
	NatsURL            string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int
	NatsDrainTimeout   time.Duration // For graceful shutdown
	CrossingsSubject   string        `validate:"required"`
	ReportsSubject     string        `validate:"required"`
	ProgressSubject    string        `validate:"required"`
	ProgressEvery      int           `validate:"min=1"` // frames between progress messages

	// Storage
	DBPath         string `validate:"required"`
	OutputJSONPath string `validate:"required"`

	// Detector
	ModelPath           string
	DetectorInputSize   int     `validate:"min=32"`
	NMSThreshold        float64 `validate:"gte=0,lte=1"`
	DetectionConfidence float64 `validate:"gte=0,lte=1"`
	DetectorCUDA        bool

	// Counting line
	LineY            float64 `validate:"gte=0,lte=1"` // fraction of frame height
	LineMarginPx     float64 // negative = 1% of frame height, at least 2px
	InvertDirections bool
	AnchorMode       string `validate:"oneof=center bottom_center"`

	// Tracker
	TrackerMaxAgeFrames       int     `validate:"min=0"`
	TrackerMaxMatchDistancePx float64 `validate:"gte=0"`

	// Jobs
	ProcessingTimeout time.Duration `validate:"gt=0"`

	// Annotated MJPEG preview of the running job
	PreviewEnabled     bool
	PreviewJPEGQuality int `validate:"min=1,max=100"`

	// Swagger Configuration
	SwaggerHost string
	SwaggerPort int

	// Graceful Shutdown
	ShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		// Application
		Version:     getEnv("VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		WorkerID:    getEnv("WORKER_ID", "counter-1"),
		Port:        getEnvInt("PORT", 8000),
		GRPCPort:    getEnvInt("GRPC_PORT", 50051),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Logdy
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		// NATS (configured for Docker Compose setup)
		NatsEnabled:        getEnvBool("NATS_ENABLED", false),
		NatsURL:            getNatsURL(),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited
		NatsDrainTimeout:   getEnvDuration("NATS_DRAIN_TIMEOUT", 5*time.Second),
		CrossingsSubject:   getEnv("CROSSINGS_SUBJECT", "vehicles.crossings"),
		ReportsSubject:     getEnv("REPORTS_SUBJECT", "vehicles.reports"),
		ProgressSubject:    getEnv("PROGRESS_SUBJECT", "vehicles.progress"),
		ProgressEvery:      getEnvInt("PROGRESS_EVERY_FRAMES", 30),

		// Storage
		DBPath:         getEnv("DB_PATH", "backend/output/runs.db"),
		OutputJSONPath: getEnv("OUTPUT_JSON_PATH", "backend/output/counts.json"),

		// Detector
		ModelPath:           getEnv("MODEL_PATH", "yolov8n.onnx"),
		DetectorInputSize:   getEnvInt("DETECTOR_INPUT_SIZE", 640),
		NMSThreshold:        getEnvFloat("NMS_THRESHOLD", 0.45),
		DetectionConfidence: getEnvFloat("DETECTION_CONFIDENCE", 0.25),
		DetectorCUDA:        getEnvBool("DETECTOR_CUDA", false),

		// Counting line
		LineY:            getEnvFloat("LINE_Y", 0.5),
		LineMarginPx:     getEnvFloat("LINE_MARGIN_PX", -1),
		InvertDirections: getEnvBool("INVERT_DIRECTIONS", false),
		AnchorMode:       getEnv("ANCHOR_MODE", "center"),

		// Tracker
		TrackerMaxAgeFrames:       getEnvInt("TRACKER_MAX_AGE_FRAMES", 30),
		TrackerMaxMatchDistancePx: getEnvFloat("TRACKER_MAX_MATCH_DISTANCE_PX", 60),

		// Jobs
		ProcessingTimeout: getEnvDuration("PROCESSING_TIMEOUT", time.Hour),

		// Preview
		PreviewEnabled:     getEnvBool("PREVIEW_ENABLED", false),
		PreviewJPEGQuality: getEnvInt("PREVIEW_JPEG_QUALITY", 80),

		// Swagger Configuration
		SwaggerHost: getEnv("SWAGGER_HOST", "localhost"),
		SwaggerPort: getEnvInt("SWAGGER_PORT", 8000),

		// Graceful Shutdown
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// Validate checks the loaded values against their allowed ranges
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// MarginPx returns the configured margin, or nil when it should be derived
// from the frame height
func (c *Config) MarginPx() *float64 {
	if c.LineMarginPx < 0 {
		return nil
	}
	m := c.LineMarginPx
	return &m
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

// Helper functions for Docker environment detection
func isRunningInDocker() bool {
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}

	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	return false
}

// getNatsURL returns the appropriate NATS URL based on environment
func getNatsURL() string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}

	if isRunningInDocker() {
		return "nats://nats:4222"
	}

	return "nats://localhost:4222"
}
