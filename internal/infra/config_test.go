package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "")
	t.Setenv("CACHE_TTL_HOURS", "")
	t.Setenv("TASK_TTL_HOURS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.RateLimitPerMin != 10 {
		t.Fatalf("RateLimitPerMin mismatch: got %d want 10", cfg.RateLimitPerMin)
	}
	if cfg.RateLimitWindow != 60*time.Second {
		t.Fatalf("RateLimitWindow mismatch: got %s", cfg.RateLimitWindow)
	}
	if cfg.CacheTTL != 24*time.Hour {
		t.Fatalf("CacheTTL mismatch: got %s", cfg.CacheTTL)
	}
	if cfg.TaskTTL != 2*time.Hour {
		t.Fatalf("TaskTTL mismatch: got %s", cfg.TaskTTL)
	}
	if cfg.QueueName != "queue:generation" {
		t.Fatalf("QueueName mismatch: got %q", cfg.QueueName)
	}
	if cfg.MaxImageSize != 1024 || cfg.MaxVideoDuration != 30 {
		t.Fatalf("size limits mismatch: %d %d", cfg.MaxImageSize, cfg.MaxVideoDuration)
	}
}

func TestLoadConfigRequiresRedisURL(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("JWT_SECRET", "test-secret")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when REDIS_URL is missing")
	}
}

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when JWT_SECRET is missing")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "100")
	t.Setenv("RATE_LIMIT_WINDOW_SECONDS", "30")
	t.Setenv("WORKER_CONCURRENCY", "8")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.RateLimitPerMin != 100 {
		t.Fatalf("RateLimitPerMin mismatch: got %d want 100", cfg.RateLimitPerMin)
	}
	if cfg.RateLimitWindow != 30*time.Second {
		t.Fatalf("RateLimitWindow mismatch: got %s", cfg.RateLimitWindow)
	}
	if cfg.WorkerConcurrency != 8 {
		t.Fatalf("WorkerConcurrency mismatch: got %d", cfg.WorkerConcurrency)
	}
}
