package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrOTPRateLimited        = errors.New("otp rate limited")
	ErrOTPLimiterUnavailable = errors.New("otp limiter unavailable")
)

type OTPConfig struct {
	EnableIdentifierThrottle bool
	EnableIPThrottle         bool
	Window                   time.Duration
	MaxPerWindow             int
}

// OTPLimiter enforces fixed-window budgets on code issuance and code
// confirmation, keyed by identifier and optionally by client IP.
type OTPLimiter struct {
	redis  redis.UniversalClient
	config OTPConfig
}

func NewOTPLimiter(redisClient redis.UniversalClient, cfg OTPConfig) *OTPLimiter {
	return &OTPLimiter{
		redis:  redisClient,
		config: cfg,
	}
}

func (l *OTPLimiter) CheckRequest(ctx context.Context, identifier, ip string) error {
	if l == nil {
		return nil
	}
	if l.config.EnableIdentifierThrottle {
		if err := l.enforceFixedWindow(ctx, requestIdentifierKey(identifier)); err != nil {
			return err
		}
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.enforceFixedWindow(ctx, requestIPKey(ip)); err != nil {
			return err
		}
	}
	return nil
}

func (l *OTPLimiter) CheckConfirm(ctx context.Context, identifier, ip string) error {
	if l == nil {
		return nil
	}
	if l.config.EnableIdentifierThrottle {
		if err := l.enforceFixedWindow(ctx, confirmIdentifierKey(identifier)); err != nil {
			return err
		}
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.enforceFixedWindow(ctx, confirmIPKey(ip)); err != nil {
			return err
		}
	}
	return nil
}

func (l *OTPLimiter) enforceFixedWindow(ctx context.Context, key string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOTPLimiterUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrOTPLimiterUnavailable, err)
		}
	}

	if count > int64(l.config.MaxPerWindow) {
		return ErrOTPRateLimited
	}

	return nil
}

func requestIdentifierKey(identifier string) string {
	return "nml:req:id:" + identifier
}

func requestIPKey(ip string) string {
	return "nml:req:ip:" + ip
}

func confirmIdentifierKey(identifier string) string {
	return "nml:cfm:id:" + identifier
}

func confirmIPKey(ip string) string {
	return "nml:cfm:ip:" + ip
}
