package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"clicker-quiz-service/internal/config"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := []byte(`
server:
  port: "9090"
  mode: dev
redis:
  addr: localhost:6379
  db: 2
postgres:
  url: postgres://localhost/quiz
quiz:
  snapshot_ttl: 5m
  leaderboard_limit: 25
`)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Server.Mode != "dev" {
		t.Fatalf("server section mismatch: %+v", cfg.Server)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.DB != 2 {
		t.Fatalf("redis section mismatch: %+v", cfg.Redis)
	}
	if cfg.Quiz.SnapshotTTL != "5m" {
		t.Fatalf("quiz section mismatch: %+v", cfg.Quiz)
	}
	if cfg.LeaderboardLimit() != 25 {
		t.Fatalf("expected configured limit, got %d", cfg.LeaderboardLimit())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLeaderboardLimitDefault(t *testing.T) {
	var cfg config.Config
	if cfg.LeaderboardLimit() != 10 {
		t.Fatalf("expected default 10, got %d", cfg.LeaderboardLimit())
	}
}

func TestTTLDuration(t *testing.T) {
	if d := config.TTLDuration("", time.Minute); d != time.Minute {
		t.Fatalf("empty string must fall back, got %v", d)
	}
	if d := config.TTLDuration("30s", time.Minute); d != 30*time.Second {
		t.Fatalf("expected parsed value, got %v", d)
	}
	if d := config.TTLDuration("bogus", time.Minute); d != time.Minute {
		t.Fatalf("malformed value must fall back, got %v", d)
	}
}
