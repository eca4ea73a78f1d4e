package naimatauth

import (
	"errors"
	"time"
)

// Config is the full, strongly typed configuration of the engine. Every knob
// is enumerated here and validated once at Build time.
type Config struct {
	OTP     OTPConfig
	Code    CodeHashConfig
	Token   TokenConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig governs the challenge lifecycle: code width, time to live, and
// the failed-attempt budget per challenge.
type OTPConfig struct {
	Digits      int
	TTL         time.Duration
	MaxAttempts int

	RedisPrefix string

	// Fixed-window throttles on code requests and confirmations.
	EnableIdentifierThrottle bool
	EnableIPThrottle         bool
	MaxRequestsPerWindow     int
	ThrottleWindow           time.Duration
}

/*
====================================
CODE HASH CONFIG
====================================
*/

// CodeHashConfig carries argon2id parameters for hashing issued codes. The
// input space is only 10^Digits values, so the cost floor matters more here
// than for full passwords.
type CodeHashConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig holds per-class signing secrets and lifetimes. AccessSecret and
// RefreshSecret must differ; a token signed for one class never validates as
// the other.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit pipeline.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig enables the in-process counter set.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the configuration [New] starts from. Binaries
// overlay their environment on top of it before calling
// [Builder.WithConfig].
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		OTP: OTPConfig{
			Digits:      6,
			TTL:         5 * time.Minute,
			MaxAttempts: 5,
			RedisPrefix: "nmc",

			EnableIdentifierThrottle: true,
			EnableIPThrottle:         false,
			MaxRequestsPerWindow:     10,
			ThrottleWindow:           5 * time.Minute,
		},
		Code: CodeHashConfig{
			Memory:      32 * 1024,
			Time:        2,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   32,
		},
		Token: TokenConfig{
			// Deliberately long-lived default; override per environment
			// when shorter access tokens are wanted.
			AccessTTL:  7 * 24 * time.Hour,
			RefreshTTL: 30 * 24 * time.Hour,
			Issuer:     "naimat-auth",
			Leeway:     30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.AccessSecret = cloneBytes(cfg.Token.AccessSecret)
	out.Token.RefreshSecret = cloneBytes(cfg.Token.RefreshSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks internal consistency. Called by [Builder.Build]; exported so
// binaries can fail fast before dialing backends.
func (c *Config) Validate() error {
	if c.OTP.Digits < 6 || c.OTP.Digits > 10 {
		return errors.New("OTP Digits must be between 6 and 10")
	}
	if c.OTP.TTL <= 0 {
		return errors.New("OTP TTL must be > 0")
	}
	if c.OTP.MaxAttempts <= 0 {
		return errors.New("OTP MaxAttempts must be > 0")
	}
	if c.OTP.RedisPrefix == "" {
		return errors.New("OTP RedisPrefix must be set")
	}
	if c.OTP.EnableIdentifierThrottle || c.OTP.EnableIPThrottle {
		if c.OTP.MaxRequestsPerWindow <= 0 {
			return errors.New("OTP MaxRequestsPerWindow must be > 0 when throttling is enabled")
		}
		if c.OTP.ThrottleWindow <= 0 {
			return errors.New("OTP ThrottleWindow must be > 0 when throttling is enabled")
		}
	}

	if len(c.Token.AccessSecret) < 32 {
		return errors.New("Token AccessSecret must be at least 32 bytes")
	}
	if len(c.Token.RefreshSecret) < 32 {
		return errors.New("Token RefreshSecret must be at least 32 bytes")
	}
	if string(c.Token.AccessSecret) == string(c.Token.RefreshSecret) {
		return errors.New("Token AccessSecret and RefreshSecret must differ")
	}
	if c.Token.AccessTTL <= 0 {
		return errors.New("Token AccessTTL must be > 0")
	}
	if c.Token.RefreshTTL <= 0 {
		return errors.New("Token RefreshTTL must be > 0")
	}
	if c.Token.RefreshTTL < c.Token.AccessTTL {
		return errors.New("Token RefreshTTL must be >= AccessTTL")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be between 0 and 2m")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
