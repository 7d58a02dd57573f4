package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
		Mode string `yaml:"mode"` // "dev" or "prod", selects log format
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		// SnapshotTTL bounds how long quiz snapshots live without refresh.
		// Question snapshots always expire with their own time limit.
		SnapshotTTL string `yaml:"snapshot_ttl"`
		// LeaderboardLimit is the page size used for broadcast leaderboards.
		LeaderboardLimit int `yaml:"leaderboard_limit"`
	} `yaml:"quiz"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty or
// malformed.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// LeaderboardLimit returns the configured page size or the default of 10.
func (c Config) LeaderboardLimit() int {
	if c.Quiz.LeaderboardLimit > 0 {
		return c.Quiz.LeaderboardLimit
	}
	return 10
}
