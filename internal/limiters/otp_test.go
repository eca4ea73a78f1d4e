package limiters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg OTPConfig) (*miniredis.Miniredis, *OTPLimiter) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, NewOTPLimiter(rdb, cfg)
}

func TestRequestLimitEnforced(t *testing.T) {
	_, limiter := newTestLimiter(t, OTPConfig{
		EnableIdentifierThrottle: true,
		Window:                   time.Minute,
		MaxPerWindow:             2,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := limiter.CheckRequest(ctx, "alice", ""); err != nil {
			t.Fatalf("request %d unexpectedly limited: %v", i+1, err)
		}
	}

	err := limiter.CheckRequest(ctx, "alice", "")
	if !errors.Is(err, ErrOTPRateLimited) {
		t.Fatalf("expected ErrOTPRateLimited, got %v", err)
	}

	// A different identifier still has its own budget.
	if err := limiter.CheckRequest(ctx, "bob", ""); err != nil {
		t.Fatalf("unrelated identifier limited: %v", err)
	}
}

func TestWindowResets(t *testing.T) {
	mr, limiter := newTestLimiter(t, OTPConfig{
		EnableIdentifierThrottle: true,
		Window:                   time.Minute,
		MaxPerWindow:             1,
	})
	ctx := context.Background()

	if err := limiter.CheckRequest(ctx, "alice", ""); err != nil {
		t.Fatalf("first request limited: %v", err)
	}
	if err := limiter.CheckRequest(ctx, "alice", ""); !errors.Is(err, ErrOTPRateLimited) {
		t.Fatalf("expected ErrOTPRateLimited, got %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if err := limiter.CheckRequest(ctx, "alice", ""); err != nil {
		t.Fatalf("request after window reset limited: %v", err)
	}
}

func TestIPThrottleIndependentOfIdentifier(t *testing.T) {
	_, limiter := newTestLimiter(t, OTPConfig{
		EnableIPThrottle: true,
		Window:           time.Minute,
		MaxPerWindow:     1,
	})
	ctx := context.Background()

	if err := limiter.CheckRequest(ctx, "alice", "10.0.0.1"); err != nil {
		t.Fatalf("first request limited: %v", err)
	}

	// Same IP, different identifier: the IP budget is spent.
	err := limiter.CheckRequest(ctx, "bob", "10.0.0.1")
	if !errors.Is(err, ErrOTPRateLimited) {
		t.Fatalf("expected ErrOTPRateLimited, got %v", err)
	}

	// No IP in context skips the IP throttle entirely.
	if err := limiter.CheckRequest(ctx, "carol", ""); err != nil {
		t.Fatalf("request without IP limited: %v", err)
	}
}

func TestConfirmBudgetSeparateFromRequestBudget(t *testing.T) {
	_, limiter := newTestLimiter(t, OTPConfig{
		EnableIdentifierThrottle: true,
		Window:                   time.Minute,
		MaxPerWindow:             1,
	})
	ctx := context.Background()

	if err := limiter.CheckRequest(ctx, "alice", ""); err != nil {
		t.Fatalf("request limited: %v", err)
	}
	if err := limiter.CheckConfirm(ctx, "alice", ""); err != nil {
		t.Fatalf("confirm shares request budget: %v", err)
	}
}

func TestNilLimiterAllowsEverything(t *testing.T) {
	var limiter *OTPLimiter

	if err := limiter.CheckRequest(context.Background(), "alice", "10.0.0.1"); err != nil {
		t.Fatalf("nil limiter returned error: %v", err)
	}
	if err := limiter.CheckConfirm(context.Background(), "alice", "10.0.0.1"); err != nil {
		t.Fatalf("nil limiter returned error: %v", err)
	}
}

func TestLimiterUnavailableWhenRedisDown(t *testing.T) {
	mr, limiter := newTestLimiter(t, OTPConfig{
		EnableIdentifierThrottle: true,
		Window:                   time.Minute,
		MaxPerWindow:             1,
	})

	mr.Close()

	err := limiter.CheckRequest(context.Background(), "alice", "")
	if !errors.Is(err, ErrOTPLimiterUnavailable) {
		t.Fatalf("expected ErrOTPLimiterUnavailable, got %v", err)
	}
}
