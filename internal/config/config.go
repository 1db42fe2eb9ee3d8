// Package config reads the studio configuration from the environment,
// after loading an optional .env file from the working directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/fpang/luxstudio/internal/chat"
	"github.com/fpang/luxstudio/internal/session"
	"github.com/fpang/luxstudio/internal/store"
	"github.com/fpang/luxstudio/internal/studio"
)

// Config is the resolved configuration.
type Config struct {
	DataDir      string
	StoreBackend string
	DynamoTable  string
	StoreOwner   string
	S3Bucket     string
	APIKeyParam  string
	Debounce     time.Duration
	PollInterval time.Duration
	VideoMaxWait time.Duration
	Metrics      bool
	LogLevel     string
	Models       chat.Models
}

// Load reads .env (if present) and then the LUXSTUDIO_* variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}
	return FromEnv()
}

// FromEnv reads the LUXSTUDIO_* variables without touching .env.
func FromEnv() (*Config, error) {
	cfg := &Config{
		StoreBackend: envOr("LUXSTUDIO_STORE", store.BackendSQLite),
		DynamoTable:  os.Getenv("LUXSTUDIO_DYNAMO_TABLE"),
		StoreOwner:   os.Getenv("LUXSTUDIO_STORE_OWNER"),
		S3Bucket:     os.Getenv("LUXSTUDIO_S3_BUCKET"),
		APIKeyParam:  os.Getenv("LUXSTUDIO_API_KEY_SSM_PARAM"),
		LogLevel:     os.Getenv("LUXSTUDIO_LOG_LEVEL"),
		Models:       chat.ModelsFromEnv(),
	}

	dir, err := dataDir()
	if err != nil {
		return nil, err
	}
	cfg.DataDir = dir

	switch strings.ToLower(cfg.StoreBackend) {
	case store.BackendSQLite, store.BackendDynamoDB, store.BackendMemory:
		cfg.StoreBackend = strings.ToLower(cfg.StoreBackend)
	default:
		return nil, fmt.Errorf("LUXSTUDIO_STORE: unknown backend %q (want sqlite, dynamodb or memory)", cfg.StoreBackend)
	}

	ms, err := intEnv("LUXSTUDIO_DEBOUNCE_MS", int(session.DefaultDebounce/time.Millisecond))
	if err != nil {
		return nil, err
	}
	cfg.Debounce = time.Duration(ms) * time.Millisecond

	secs, err := intEnv("LUXSTUDIO_VIDEO_POLL_SECONDS", int(studio.DefaultPollInterval/time.Second))
	if err != nil {
		return nil, err
	}
	cfg.PollInterval = time.Duration(secs) * time.Second

	if v := os.Getenv("LUXSTUDIO_VIDEO_MAX_WAIT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("LUXSTUDIO_VIDEO_MAX_WAIT: invalid duration %q", v)
		}
		cfg.VideoMaxWait = d
	}

	if v := os.Getenv("LUXSTUDIO_METRICS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("LUXSTUDIO_METRICS: %w", err)
		}
		cfg.Metrics = b
	}
	return cfg, nil
}

func dataDir() (string, error) {
	if v := os.Getenv("LUXSTUDIO_DATA_DIR"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".luxstudio"), nil
}

func envOr(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func intEnv(name string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s: want a positive integer, got %q", name, v)
	}
	return n, nil
}
