// Package config reads the program settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"taquilla-cli/inventory"
	"taquilla-cli/pricing"
)

type Config struct {
	APIURL         string        `env:"TAQUILLA_API_URL" envDefault:"http://localhost:8000/api"`
	IframeToken    string        `env:"TAQUILLA_IFRAME_TOKEN"`
	RequestTimeout time.Duration `env:"TAQUILLA_REQUEST_TIMEOUT" envDefault:"20s"`
	ResetDelay     time.Duration `env:"TAQUILLA_RESET_DELAY" envDefault:"3s"`

	BoxSeatPrice    float64 `env:"TAQUILLA_BOX_SEAT_PRICE" envDefault:"75"`
	BoxBundlePrice  float64 `env:"TAQUILLA_BOX_BUNDLE_PRICE" envDefault:"750"`
	GeneralPrice    float64 `env:"TAQUILLA_GENERAL_PRICE" envDefault:"35"`
	GeneralCapacity int     `env:"TAQUILLA_GENERAL_CAPACITY" envDefault:"500"`

	VoidOnCancel bool   `env:"TAQUILLA_VOID_ON_CANCEL"`
	MessagesFile string `env:"TAQUILLA_MESSAGES_FILE"`
	Debug        bool   `env:"TAQUILLA_DEBUG"`
	Offline      bool   `env:"TAQUILLA_OFFLINE"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	cfg.IframeToken = strings.TrimSpace(cfg.IframeToken)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.APIURL == "" && !c.Offline {
		errs = append(errs, errors.New("TAQUILLA_API_URL is empty"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("TAQUILLA_REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout))
	}
	if c.ResetDelay < 0 {
		errs = append(errs, fmt.Errorf("TAQUILLA_RESET_DELAY must not be negative, got %s", c.ResetDelay))
	}
	if c.BoxSeatPrice < 0 || c.BoxBundlePrice < 0 || c.GeneralPrice < 0 {
		errs = append(errs, errors.New("prices must not be negative"))
	}
	if c.GeneralCapacity < 0 {
		errs = append(errs, fmt.Errorf("TAQUILLA_GENERAL_CAPACITY must not be negative, got %d", c.GeneralCapacity))
	}
	return errors.Join(errs...)
}

func (c Config) Schedule() pricing.Schedule {
	return pricing.Schedule{BoxSeatPrice: c.BoxSeatPrice, BoxBundlePrice: c.BoxBundlePrice}
}

func (c Config) General() inventory.GeneralConfig {
	return inventory.GeneralConfig{PriceUSD: c.GeneralPrice, Capacity: c.GeneralCapacity}
}
