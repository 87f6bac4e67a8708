// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the runtime settings for the aggregator server.
//
// WhatsApp credentials here are fallbacks: a send request may carry its
// own token/phone-number-id, and only when it doesn't are these used. The
// values are read once at startup and passed around explicitly.
type Config struct {
	Addr    string `env:"ADDR" envDefault:":8080"`
	DataDir string `env:"DATA_DIR" envDefault:"./data"`

	FetchTimeout    time.Duration `env:"FETCH_TIMEOUT" envDefault:"20s"`
	WebhookTimeout  time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"20s"`
	SyncIntervalMin int           `env:"SYNC_INTERVAL_MIN" envDefault:"15"`

	WhatsAppToken         string `env:"WHATSAPP_TOKEN"`
	WhatsAppPhoneNumberID string `env:"WHATSAPP_PHONE_NUMBER_ID"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}
