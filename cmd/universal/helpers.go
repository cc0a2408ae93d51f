package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/abelbrown/universal/internal/config"
	"github.com/abelbrown/universal/internal/logging"
	"github.com/abelbrown/universal/internal/otel"
	"github.com/abelbrown/universal/internal/project"
	"github.com/abelbrown/universal/internal/source"
	"github.com/abelbrown/universal/internal/store"
)

// mirror is what commands need from the Persistent Mirror.
type mirror interface {
	store.Mirror
	Keys() ([]string, error)
	Close() error
}

type memoryMirror struct{ *store.Memory }

func (memoryMirror) Close() error { return nil }

// loadConfig reads the config named by --config (or the default path),
// applies --env-file and --api-base, and validates the result.
func loadConfig() (*config.Config, error) {
	path := viper.GetString("config")
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, err
	}
	if envFile := viper.GetString("env-file"); envFile != "" {
		if err := cfg.LoadEnvFile(envFile); err != nil {
			return nil, fmt.Errorf("env file: %w", err)
		}
	}
	if base := viper.GetString("api-base"); base != "" {
		cfg.API.BaseURL = base
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s:\n%w", path, err)
	}
	return cfg, nil
}

// dataDir returns the data directory, creating it if needed.
func dataDir() (string, error) {
	dir := config.DataDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dir, nil
}

// openMirror opens the SQLite mirror, or an in-memory one with --no-cache.
func openMirror() (mirror, error) {
	if viper.GetBool("no-cache") {
		return memoryMirror{store.NewMemory()}, nil
	}
	path := viper.GetString("db")
	if path == "" {
		path = config.DBPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create mirror directory: %w", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mirror: %w", err)
	}
	return st, nil
}

// openJournal opens the JSONL event journal in append mode. The returned
// closer flushes the logger and closes the file.
func openJournal() (*otel.Logger, func(), error) {
	f, err := os.OpenFile(config.EventsPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open event journal: %w", err)
	}
	j := otel.NewLogger(f)
	return j, func() {
		j.Close()
		_ = f.Close()
	}, nil
}

func newClient(cfg *config.Config) *source.Client {
	return source.NewClient(cfg.API.BaseURL,
		source.WithRateLimit(cfg.API.RateLimit, cfg.API.Burst),
		source.WithTimeout(time.Duration(cfg.API.TimeoutSeconds)*time.Second),
	)
}

func newProjector(cfg *config.Config) *project.Projector {
	return project.New(project.Options{
		ImageBase:    cfg.API.ImageBase,
		DefaultImage: cfg.API.DefaultImage,
		MapURL:       cfg.API.MapURL,
	})
}

// cliLogging sends package logs to stderr for one-shot commands run with
// --debug. The browser logs to a file instead.
func cliLogging() {
	if viper.GetBool("debug") {
		logging.InitWriter(os.Stderr, true)
	}
}
