// Package config loads runtime settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	StorageType      string `env:"STORAGE_TYPE,default=memory"`
	LocalStoragePath string `env:"LOCAL_STORAGE_PATH,default=./data"`
	DataSourceName   string `env:"DATA_SOURCE_NAME,default=apparel.db"`
	S3BucketName     string `env:"S3_BUCKET_NAME"`

	JWTSecret string `env:"JWT_SECRET"`

	SessionIdleTimeout  time.Duration `env:"SESSION_IDLE_TIMEOUT,default=30m"`
	SessionReapSchedule string        `env:"SESSION_REAP_SCHEDULE,default=@every 1m"`

	LoginRatePerSecond float64 `env:"LOGIN_RATE_PER_SECOND,default=5"`
	LoginBurst         int     `env:"LOGIN_BURST,default=10"`

	PaymentDelay time.Duration `env:"PAYMENT_DELAY,default=2s"`
	ShippingCost float64       `env:"SHIPPING_COST,default=9.99"`
}

// Load reads .env (when present) into the process environment and decodes
// the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}
	return FromEnv()
}

// FromEnv decodes the current process environment, applying defaults for
// anything unset.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if cfg.LoginBurst < 1 {
		cfg.LoginBurst = 1
	}
	if cfg.ShippingCost < 0 {
		return nil, fmt.Errorf("SHIPPING_COST must not be negative")
	}
	return &cfg, nil
}
