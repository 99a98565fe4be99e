package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Mode:       "release",
		Port:       8080,
		Secret:     "s",
		UploadDir:  "./data/uploads",
		PingPeriod: 54 * time.Second,
		LiveKit: LiveKit{
			APIKey:    "key",
			APISecret: "secret",
			URL:       "ws://localhost:7880",
			TokenTTL:  time.Hour,
		},
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidateNamesEveryMissingField(t *testing.T) {
	cfg := validConfig()
	cfg.LiveKit.APIKey = ""
	cfg.LiveKit.URL = ""

	err := cfg.Validate()
	if !errors.Is(err, ErrSigningConfig) {
		t.Fatalf("expected ErrSigningConfig, got %v", err)
	}
	for _, field := range []string{"livekit.api_key", "livekit.url"} {
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("error does not name %s: %v", field, err)
		}
	}
	if strings.Contains(err.Error(), "api_secret") {
		t.Fatalf("error names a present field: %v", err)
	}
}

func TestValidateRejectsNonPositiveTTL(t *testing.T) {
	cfg := validConfig()
	cfg.LiveKit.TokenTTL = 0
	if err := cfg.Validate(); !errors.Is(err, ErrSigningConfig) {
		t.Fatalf("zero ttl must be rejected, got %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_ENV", "nonexistent")
	t.Setenv("LIVEKIT_API_KEY", "envkey")
	t.Setenv("LIVEKIT_API_SECRET", "envsecret")
	t.Setenv("LIVEKIT_URL", "ws://env:7880")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mode != "release" || cfg.Port != 8080 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.PingPeriod != 54*time.Second || cfg.LiveKit.TokenTTL != time.Hour {
		t.Fatalf("duration defaults not applied: %+v", cfg)
	}
	if cfg.LiveKit.APIKey != "envkey" || cfg.LiveKit.URL != "ws://env:7880" {
		t.Fatalf("env bindings not applied: %+v", cfg.LiveKit)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("env-configured server must validate: %v", err)
	}
}
