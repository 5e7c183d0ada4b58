package upcdatabase

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds client settings loaded from environment variables.
type Config struct {
	APIKey         string        `mapstructure:"upcdb_api_key"`
	BaseURL        string        `mapstructure:"upcdb_base_url"`
	AuthPlacement  string        `mapstructure:"upcdb_auth_placement"`
	TimeoutSeconds int64         `mapstructure:"upcdb_timeout_seconds"`
	Timeout        time.Duration `mapstructure:"-"`
}

// LoadConfig reads client configuration from environment variables, with an
// optional configs/.env file. The API key is the only required value.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("upcdb_api_key", "")
	v.SetDefault("upcdb_base_url", DefaultBaseURL)
	v.SetDefault("upcdb_auth_placement", string(AuthBearerHeader))
	v.SetDefault("upcdb_timeout_seconds", int64(defaultTimeout/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.APIKey == "" {
		return nil, &ConfigError{Reason: "UPCDB_API_KEY is not set"}
	}
	if cfg.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid upcdb_timeout_seconds (must be positive seconds)")
	}
	cfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second

	switch AuthPlacement(cfg.AuthPlacement) {
	case AuthBearerHeader, AuthQueryParam:
	default:
		return nil, fmt.Errorf("invalid upcdb_auth_placement %q (want %q or %q)",
			cfg.AuthPlacement, AuthBearerHeader, AuthQueryParam)
	}

	return &cfg, nil
}

// NewFromEnv builds a Client from LoadConfig. Extra options are applied
// after the environment-derived ones and may override them.
func NewFromEnv(opts ...Option) (*Client, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	all := append([]Option{
		WithBaseURL(cfg.BaseURL),
		WithTimeout(cfg.Timeout),
		WithAuthPlacement(AuthPlacement(cfg.AuthPlacement)),
	}, opts...)

	return New(cfg.APIKey, all...)
}
