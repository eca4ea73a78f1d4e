package main

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// serverConfig is the binary's configuration, loaded from env and an
// optional .env file. Library defaults apply to anything left unset.
type serverConfig struct {
	HTTPAddr    string `mapstructure:"HTTP_ADDR"`
	RedisURL    string `mapstructure:"REDIS_URL"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	AccessSecret  string `mapstructure:"ACCESS_TOKEN_SECRET"`
	RefreshSecret string `mapstructure:"REFRESH_TOKEN_SECRET"`
	AccessTTL     string `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTTL    string `mapstructure:"REFRESH_TOKEN_TTL"`

	OTPDigits      int    `mapstructure:"OTP_DIGITS"`
	OTPTTL         string `mapstructure:"OTP_TTL"`
	OTPMaxAttempts int    `mapstructure:"OTP_MAX_ATTEMPTS"`

	AuditLog bool   `mapstructure:"AUDIT_LOG"`
	Env      string `mapstructure:"APP_ENV"`
}

// loadConfig reads .env if present, then the environment. Env vars win.
func loadConfig() (*serverConfig, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // missing .env is fine

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("ACCESS_TOKEN_TTL", "")
	v.SetDefault("REFRESH_TOKEN_TTL", "")
	v.SetDefault("OTP_DIGITS", 0)
	v.SetDefault("OTP_TTL", "")
	v.SetDefault("OTP_MAX_ATTEMPTS", 0)
	v.SetDefault("AUDIT_LOG", false)
	v.SetDefault("APP_ENV", "development")

	var cfg serverConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("config: ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must be set")
	}
	if cfg.Env == "production" && cfg.DatabaseURL == "" {
		return nil, errors.New("config: DATABASE_URL must be set when APP_ENV=production")
	}

	return &cfg, nil
}

// duration parses s, falling back to zero so the library default applies.
func duration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0
	}
	return d
}
