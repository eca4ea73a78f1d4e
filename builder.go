package naimatauth

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/amnashah110/naimat-auth/codehash"
	"github.com/amnashah110/naimat-auth/internal/limiters"
	"github.com/amnashah110/naimat-auth/internal/stores"
	"github.com/amnashah110/naimat-auth/jwt"
)

// Builder assembles an [Engine]. Configure it during initialization and
// call Build exactly once; a Builder is not safe for concurrent use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	directory UserDirectory
	mail      EmailSender
	auditSink AuditSink

	built bool
}

func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the default configuration wholesale. The config is
// cloned; later mutation of cfg does not affect the builder.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithUserDirectory(dir UserDirectory) *Builder {
	b.directory = dir
	return b
}

func (b *Builder) WithEmailSender(sender EmailSender) *Builder {
	b.mail = sender
	return b
}

// WithAuditSink enables the async audit pipeline and wires it to sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, constructs every collaborator, and
// returns a ready Engine. A Builder can Build only once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.directory == nil {
		return nil, errors.New("user directory required")
	}
	if b.mail == nil {
		return nil, errors.New("email sender required")
	}
	if cfg.Audit.Enabled && b.auditSink == nil {
		return nil, errors.New("audit enabled but no sink provided")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hasher, err := codehash.New(codehash.Config{
		Memory:      cfg.Code.Memory,
		Time:        cfg.Code.Time,
		Parallelism: cfg.Code.Parallelism,
		SaltLength:  cfg.Code.SaltLength,
		KeyLength:   cfg.Code.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	tokens, err := jwt.NewManager(jwt.Config{
		AccessSecret:  cloneBytes(cfg.Token.AccessSecret),
		RefreshSecret: cloneBytes(cfg.Token.RefreshSecret),
		AccessTTL:     cfg.Token.AccessTTL,
		RefreshTTL:    cfg.Token.RefreshTTL,
		Issuer:        cfg.Token.Issuer,
		Leeway:        cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	store := stores.NewChallengeStore(b.redis, cfg.OTP.RedisPrefix)
	challenges := newChallengeManager(store, newCodec(cfg.OTP.Digits, hasher), cfg.OTP)

	var limiter *limiters.OTPLimiter
	if cfg.OTP.EnableIdentifierThrottle || cfg.OTP.EnableIPThrottle {
		limiter = limiters.NewOTPLimiter(b.redis, limiters.OTPConfig{
			EnableIdentifierThrottle: cfg.OTP.EnableIdentifierThrottle,
			EnableIPThrottle:         cfg.OTP.EnableIPThrottle,
			Window:                   cfg.OTP.ThrottleWindow,
			MaxPerWindow:             cfg.OTP.MaxRequestsPerWindow,
		})
	}

	engine := &Engine{
		config:     cfg,
		challenges: challenges,
		tokens:     tokens,
		directory:  b.directory,
		mail:       b.mail,
		limiter:    limiter,
		audit:      newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:    NewMetrics(cfg.Metrics),
	}

	b.built = true

	return engine, nil
}
