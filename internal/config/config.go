package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	API  APIConfig
	Poll PollConfig
}

type APIConfig struct {
	// BaseURL is the platform API root, e.g. https://example.com/api.
	BaseURL string
	// AssetBaseURL is the host preview image URLs are rebased onto.
	// The server returns paths relative to its own root, without the
	// /api suffix.
	AssetBaseURL string
	Timeout      time.Duration
}

type PollConfig struct {
	// Per job kind. The intervals match what the platform UI uses.
	ChapterUpload time.Duration
	Publish       time.Duration
	Translation   time.Duration
	// MaxWait bounds how long a single job is polled before giving up.
	MaxWait time.Duration
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/mangactl")

	v.SetEnvPrefix("MANGACTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("api.base_url", "MANGACTL_API_BASE_URL")
	_ = v.BindEnv("api.asset_base_url", "MANGACTL_ASSET_BASE_URL")
	_ = v.BindEnv("api.timeout", "MANGACTL_API_TIMEOUT")
	_ = v.BindEnv("poll.chapter_upload", "MANGACTL_POLL_CHAPTER_UPLOAD")
	_ = v.BindEnv("poll.publish", "MANGACTL_POLL_PUBLISH")
	_ = v.BindEnv("poll.translation", "MANGACTL_POLL_TRANSLATION")
	_ = v.BindEnv("poll.max_wait", "MANGACTL_POLL_MAX_WAIT")

	v.SetDefault("api.base_url", "http://localhost:8000/api")
	v.SetDefault("api.asset_base_url", "http://localhost:8000")
	v.SetDefault("api.timeout", "5m")
	v.SetDefault("poll.chapter_upload", "500ms")
	v.SetDefault("poll.publish", "1s")
	v.SetDefault("poll.translation", "2s")
	v.SetDefault("poll.max_wait", "30m")

	if err := v.ReadInConfig(); err != nil {
		// A config file is optional; only a malformed one is fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		API: APIConfig{
			BaseURL:      strings.TrimRight(v.GetString("api.base_url"), "/"),
			AssetBaseURL: strings.TrimRight(v.GetString("api.asset_base_url"), "/"),
			Timeout:      v.GetDuration("api.timeout"),
		},
		Poll: PollConfig{
			ChapterUpload: v.GetDuration("poll.chapter_upload"),
			Publish:       v.GetDuration("poll.publish"),
			Translation:   v.GetDuration("poll.translation"),
			MaxWait:       v.GetDuration("poll.max_wait"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url must not be empty")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %v", c.API.Timeout)
	}
	for name, d := range map[string]time.Duration{
		"poll.chapter_upload": c.Poll.ChapterUpload,
		"poll.publish":        c.Poll.Publish,
		"poll.translation":    c.Poll.Translation,
		"poll.max_wait":       c.Poll.MaxWait,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, d)
		}
	}
	return nil
}
