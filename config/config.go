package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	JWTSecret      string        `env:"JWT_SECRET,required"`
	JWTIssuer      string        `env:"JWT_ISSUER" envDefault:"vigil"`
	MFAJWTSecret   string        `env:"MFA_JWT_SECRET"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	MFATokenTTL    time.Duration `env:"MFA_TOKEN_TTL" envDefault:"5m"`

	ResendAPIKey   string `env:"RESEND_API_KEY"`
	AlertEmailFrom string `env:"ALERT_EMAIL_FROM"`
	AlertEmailTo   string `env:"ALERT_EMAIL_TO"`
}

func Load() (*Config, error) {
	// A missing .env file is fine; real deployments set the environment
	// directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if cfg.MFAJWTSecret == "" {
		cfg.MFAJWTSecret = cfg.JWTSecret
	}
	return cfg, nil
}
