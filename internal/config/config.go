package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	HTTPAddr    string // TREASURY_HTTP_ADDR (default ":8080")
	DatabaseURL string // TREASURY_DATABASE_URL (optional, empty = no activity feed)
	NATSURL     string // TREASURY_NATS_URL (optional, empty = no bus relay)
	AuthToken   string // TREASURY_AUTH_TOKEN (optional, empty = auth disabled)
	JWTSecret   string // TREASURY_JWT_SECRET (optional, empty = identity from query param)

	// Redis ingest settings
	RedisURL     string // TREASURY_REDIS_URL (optional, empty = ingest disabled)
	RedisChannel string // TREASURY_REDIS_CHANNEL (default "treasury:events")

	// Presence policy
	AwayAfter     time.Duration // TREASURY_PRESENCE_AWAY_AFTER (default 5m)
	SweepInterval time.Duration // TREASURY_PRESENCE_SWEEP_INTERVAL (default 45s)
	DeadAfter     time.Duration // TREASURY_PRESENCE_DEAD_AFTER (default 10m)

	// Snapshot export settings
	SyncInterval   time.Duration // TREASURY_SYNC_INTERVAL (default 3m; 0 = disabled)
	SyncS3Bucket   string        // TREASURY_SYNC_S3_BUCKET (enables S3 when set)
	SyncS3Endpoint string        // TREASURY_SYNC_S3_ENDPOINT (custom endpoint for MinIO)
	SyncS3Region   string        // TREASURY_SYNC_S3_REGION (default "us-east-1")
	SyncS3Key      string        // TREASURY_SYNC_S3_KEY (default "treasury/activity.jsonl")
	SyncGitRepo    string        // TREASURY_SYNC_GIT_REPO (enables git when set; path to clone)
	SyncGitFile    string        // TREASURY_SYNC_GIT_FILE (default "activity.jsonl")
	SyncGitBranch  string        // TREASURY_SYNC_GIT_BRANCH (default "main")
}

func Load() (*Config, error) {
	c := &Config{
		HTTPAddr:       envOrDefault("TREASURY_HTTP_ADDR", ":8080"),
		DatabaseURL:    os.Getenv("TREASURY_DATABASE_URL"),
		NATSURL:        os.Getenv("TREASURY_NATS_URL"),
		AuthToken:      os.Getenv("TREASURY_AUTH_TOKEN"),
		JWTSecret:      os.Getenv("TREASURY_JWT_SECRET"),
		RedisURL:       os.Getenv("TREASURY_REDIS_URL"),
		RedisChannel:   envOrDefault("TREASURY_REDIS_CHANNEL", "treasury:events"),
		SyncS3Bucket:   os.Getenv("TREASURY_SYNC_S3_BUCKET"),
		SyncS3Endpoint: os.Getenv("TREASURY_SYNC_S3_ENDPOINT"),
		SyncS3Region:   envOrDefault("TREASURY_SYNC_S3_REGION", "us-east-1"),
		SyncS3Key:      envOrDefault("TREASURY_SYNC_S3_KEY", "treasury/activity.jsonl"),
		SyncGitRepo:    os.Getenv("TREASURY_SYNC_GIT_REPO"),
		SyncGitFile:    envOrDefault("TREASURY_SYNC_GIT_FILE", "activity.jsonl"),
		SyncGitBranch:  envOrDefault("TREASURY_SYNC_GIT_BRANCH", "main"),
	}

	var err error
	if c.AwayAfter, err = durationEnv("TREASURY_PRESENCE_AWAY_AFTER", 5*time.Minute); err != nil {
		return nil, err
	}
	if c.SweepInterval, err = durationEnv("TREASURY_PRESENCE_SWEEP_INTERVAL", 45*time.Second); err != nil {
		return nil, err
	}
	if c.DeadAfter, err = durationEnv("TREASURY_PRESENCE_DEAD_AFTER", 10*time.Minute); err != nil {
		return nil, err
	}
	if c.SyncInterval, err = durationEnv("TREASURY_SYNC_INTERVAL", 3*time.Minute); err != nil {
		return nil, err
	}

	if c.DeadAfter < c.AwayAfter {
		return nil, fmt.Errorf("TREASURY_PRESENCE_DEAD_AFTER (%v) must not be shorter than TREASURY_PRESENCE_AWAY_AFTER (%v)", c.DeadAfter, c.AwayAfter)
	}

	return c, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
