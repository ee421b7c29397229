// Package config holds the application's configuration settings.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// AppConfig defines environment-based configuration for the application.
type AppConfig struct {
	Http    HttpConfig    `yaml:"http"`
	Stripe  StripeConfig  `yaml:"stripe"`
	Backend BackendConfig `yaml:"backend"`
	Log     LogConfig     `yaml:"log"`
}

type HttpConfig struct {
	Addr           string   `yaml:"addr" env:"CHECKOUT_HTTP_ADDR" env-default:":8080"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"*"`
}

type StripeConfig struct {
	PublishableKey string `yaml:"publishable_key" env:"STRIPE_PUBLISHABLE_KEY" env-required:"true" env-description:"key handed to Stripe.js in the page shell"`
	SecretKey      string `yaml:"secret_key" env:"STRIPE_SECRET_KEY" env-required:"true"`
	WebhookSecret  string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET" env-description:"enables the payment-success webhook when set"`
}

// BackendConfig points at the subscription backend that creates and confirms subscriptions.
type BackendConfig struct {
	BaseURL     string        `yaml:"base_url" env:"SUBSCRIPTION_BACKEND_URL" env-required:"true"`
	CreatePath  string        `yaml:"create_path" env:"SUBSCRIPTION_CREATE_PATH" env-default:"/api/v1/subscribe/subscriptions/create/"`
	ConfirmPath string        `yaml:"confirm_path" env:"SUBSCRIPTION_CONFIRM_PATH" env-default:"/api/v1/subscribe/subscriptions/confirm/"`
	Timeout     time.Duration `yaml:"timeout" env:"SUBSCRIPTION_BACKEND_TIMEOUT" env-default:"15s"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// Load reads the config file at path when one is given, letting the environment
// override it, and falls back to the environment alone otherwise.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig

	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c AppConfig) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid subscription backend url %q", c.Backend.BaseURL)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}

	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("subscription backend timeout must be positive, got %s", c.Backend.Timeout)
	}

	return nil
}

func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", l.Level, err)
	}
	return level, nil
}

// Usage describes every supported environment variable.
func Usage() string {
	var cfg AppConfig
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return text
}
