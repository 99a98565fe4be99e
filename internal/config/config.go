package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// ErrSigningConfig means the credential issuer cannot be configured. The
// server must refuse to start rather than issue unsigned credentials.
var ErrSigningConfig = errors.New("incomplete signing configuration")

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	Secret     string        `mapstructure:"secret"`
	UploadDir  string        `mapstructure:"upload_dir"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	LiveKit    LiveKit       `mapstructure:"livekit"`
}

// LiveKit holds the signing key pair and the realtime endpoint handed out
// inside join credentials.
type LiveKit struct {
	APIKey    string        `mapstructure:"api_key"`
	APISecret string        `mapstructure:"api_secret"`
	URL       string        `mapstructure:"url"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("upload_dir", "./data/uploads")
	v.SetDefault("ping_period", "54s")
	v.SetDefault("livekit.token_ttl", "1h")

	// Secrets come from the environment in production.
	_ = v.BindEnv("livekit.api_key", "LIVEKIT_API_KEY")
	_ = v.BindEnv("livekit.api_secret", "LIVEKIT_API_SECRET")
	_ = v.BindEnv("livekit.url", "LIVEKIT_URL")
	_ = v.BindEnv("secret", "GREENROOM_SECRET")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults and env")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Validate aborts startup on an unusable signing configuration.
func (c *Config) Validate() error {
	var missing []string
	if c.LiveKit.APIKey == "" {
		missing = append(missing, "livekit.api_key")
	}
	if c.LiveKit.APISecret == "" {
		missing = append(missing, "livekit.api_secret")
	}
	if c.LiveKit.URL == "" {
		missing = append(missing, "livekit.url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrSigningConfig, strings.Join(missing, ", "))
	}
	if c.LiveKit.TokenTTL <= 0 {
		return fmt.Errorf("%w: livekit.token_ttl must be positive", ErrSigningConfig)
	}
	return nil
}
