package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	RedisURL    string
	DatabaseURL string
	JWTSecret   string

	OutputDir  string
	AdapterDir string

	MaxImageSize     int
	MaxVideoDuration int
	MaxVideoFPS      int

	RateLimitPerMin int
	RateLimitWindow time.Duration
	CacheTTL        time.Duration
	TaskTTL         time.Duration

	QueueName         string
	WorkerConcurrency int

	APIKeys     string
	CORSOrigins []string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		RedisURL:          os.Getenv("REDIS_URL"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		OutputDir:         getEnv("OUTPUT_DIR", "./outputs"),
		AdapterDir:        getEnv("ADAPTER_DIR", os.TempDir()),
		MaxImageSize:      getEnvInt("MAX_IMAGE_SIZE", 1024),
		MaxVideoDuration:  getEnvInt("MAX_VIDEO_DURATION", 30),
		MaxVideoFPS:       getEnvInt("MAX_VIDEO_FPS", 60),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 10),
		RateLimitWindow:   time.Second * time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)),
		CacheTTL:          time.Hour * time.Duration(getEnvInt("CACHE_TTL_HOURS", 24)),
		TaskTTL:           time.Hour * time.Duration(getEnvInt("TASK_TTL_HOURS", 2)),
		QueueName:         getEnv("QUEUE_NAME", "queue:generation"),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 2),
		APIKeys:           os.Getenv("API_KEYS"),
		CORSOrigins:       getEnvList("CORS_ORIGINS", "http://localhost:3000"),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
