package naimatauth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func makeDifferentCode(code string) string {
	if code == "" {
		return "000000"
	}
	last := code[len(code)-1]
	replacement := byte('0')
	if last == '0' {
		replacement = '1'
	}
	return code[:len(code)-1] + string(replacement)
}

func TestSignupFlowSuccess(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	dir := newMockDirectory()
	mailer := newMockMailer()
	engine := newTestEngine(t, rdb, dir, mailer, testConfig())

	issued, err := engine.RequestSignupCode(ctx, "Alice@Example.com")
	if err != nil {
		t.Fatalf("RequestSignupCode failed: %v", err)
	}
	if !issued.ExpiresAt.After(time.Now()) {
		t.Fatal("expected future expiry on issued code")
	}

	code := mailer.lastCode("alice@example.com")
	if len(code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", code)
	}

	verified, err := engine.VerifySignupAndCreate(ctx, "alice@example.com", code, Profile{Name: "Alice"})
	if err != nil {
		t.Fatalf("VerifySignupAndCreate failed: %v", err)
	}
	if verified.Tokens.AccessToken == "" || verified.Tokens.RefreshToken == "" {
		t.Fatal("expected both tokens after signup verification")
	}
	if verified.User.Email != "alice@example.com" {
		t.Fatalf("expected normalized email on created user, got %q", verified.User.Email)
	}
	if verified.ChallengeID == "" {
		t.Fatal("expected challenge ID on verification result")
	}

	_, found, err := dir.FindByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("directory lookup failed: %v", err)
	}
	if !found {
		t.Fatal("expected account to exist after signup verification")
	}
}

func TestVerifiedCodeCannotBeReplayed(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	dir := newMockDirectory()
	dir.seed(User{ID: "u1", Email: "alice@example.com"})
	mailer := newMockMailer()
	engine := newTestEngine(t, rdb, dir, mailer, testConfig())

	if _, err := engine.RequestLoginCode(ctx, "alice@example.com"); err != nil {
		t.Fatalf("RequestLoginCode failed: %v", err)
	}
	code := mailer.lastCode("alice@example.com")

	if _, err := engine.VerifyLogin(ctx, "alice@example.com", code); err != nil {
		t.Fatalf("first VerifyLogin failed: %v", err)
	}

	if _, err := engine.VerifyLogin(ctx, "alice@example.com", code); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode on replay, got %v", err)
	}
}

func TestLoginCodeUnknownIdentity(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine := newTestEngine(t, rdb, newMockDirectory(), newMockMailer(), testConfig())

	_, err := engine.RequestLoginCode(context.Background(), "nobody@example.com")
	if !errors.Is(err, ErrUnknownIdentity) {
		t.Fatalf("expected ErrUnknownIdentity, got %v", err)
	}
}

func TestLoginFlowSuccess(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	dir := newMockDirectory()
	dir.seed(User{ID: "u42", Email: "bob@example.com", Name: "Bob"})
	mailer := newMockMailer()
	engine := newTestEngine(t, rdb, dir, mailer, testConfig())

	if _, err := engine.RequestLoginCode(ctx, "bob@example.com"); err != nil {
		t.Fatalf("RequestLoginCode failed: %v", err)
	}

	verified, err := engine.VerifyLogin(ctx, "bob@example.com", mailer.lastCode("bob@example.com"))
	if err != nil {
		t.Fatalf("VerifyLogin failed: %v", err)
	}
	if verified.User.ID != "u42" {
		t.Fatalf("expected user u42, got %q", verified.User.ID)
	}

	userID, err := engine.ValidateAccess(verified.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess failed: %v", err)
	}
	if userID != "u42" {
		t.Fatalf("expected access token subject u42, got %q", userID)
	}
}

func TestWrongCodeLeavesChallengeUsable(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	dir := newMockDirectory()
	dir.seed(User{ID: "u1", Email: "alice@example.com"})
	mailer := newMockMailer()
	engine := newTestEngine(t, rdb, dir, mailer, testConfig())

	if _, err := engine.RequestLoginCode(ctx, "alice@example.com"); err != nil {
		t.Fatalf("RequestLoginCode failed: %v", err)
	}
	code := mailer.lastCode("alice@example.com")

	_, err := engine.VerifyLogin(ctx, "alice@example.com", makeDifferentCode(code))
	if !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode on wrong code, got %v", err)
	}

	if _, err := engine.VerifyLogin(ctx, "alice@example.com", code); err != nil {
		t.Fatalf("expected correct code to still verify after one miss, got %v", err)
	}
}

func TestAttemptBudgetExhaustedBlocksCorrectCode(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	dir := newMockDirectory()
	dir.seed(User{ID: "u1", Email: "alice@example.com"})
	mailer := newMockMailer()

	cfg := testConfig()
	cfg.OTP.MaxAttempts = 2
	engine := newTestEngine(t, rdb, dir, mailer, cfg)

	if _, err := engine.RequestLoginCode(ctx, "alice@example.com"); err != nil {
		t.Fatalf("RequestLoginCode failed: %v", err)
	}
	code := mailer.lastCode("alice@example.com")
	wrong := makeDifferentCode(code)

	for i := 0; i < 2; i++ {
		if _, err := engine.VerifyLogin(ctx, "alice@example.com", wrong); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("attempt %d: expected ErrInvalidCode, got %v", i+1, err)
		}
	}

	// The budget is spent; even the correct code must fail now.
	if _, err := engine.VerifyLogin(ctx, "alice@example.com", code); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode after exhausted attempts, got %v", err)
	}
}

func TestExpiredCodeRejected(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	dir := newMockDirectory()
	dir.seed(User{ID: "u1", Email: "alice@example.com"})
	mailer := newMockMailer()

	cfg := testConfig()
	cfg.OTP.TTL = time.Minute
	engine := newTestEngine(t, rdb, dir, mailer, cfg)

	if _, err := engine.RequestLoginCode(ctx, "alice@example.com"); err != nil {
		t.Fatalf("RequestLoginCode failed: %v", err)
	}
	code := mailer.lastCode("alice@example.com")

	mr.FastForward(2 * time.Minute)

	if _, err := engine.VerifyLogin(ctx, "alice@example.com", code); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode after expiry, got %v", err)
	}
}

func TestReissueInvalidatesPreviousCode(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	dir := newMockDirectory()
	dir.seed(User{ID: "u1", Email: "alice@example.com"})
	mailer := newMockMailer()
	engine := newTestEngine(t, rdb, dir, mailer, testConfig())

	if _, err := engine.RequestLoginCode(ctx, "alice@example.com"); err != nil {
		t.Fatalf("first RequestLoginCode failed: %v", err)
	}
	first := mailer.lastCode("alice@example.com")

	if _, err := engine.RequestLoginCode(ctx, "alice@example.com"); err != nil {
		t.Fatalf("second RequestLoginCode failed: %v", err)
	}
	second := mailer.lastCode("alice@example.com")

	if first == second {
		t.Skip("independently drawn codes collided")
	}

	if _, err := engine.VerifyLogin(ctx, "alice@example.com", first); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected superseded code to fail, got %v", err)
	}

	if _, err := engine.VerifyLogin(ctx, "alice@example.com", second); err != nil {
		t.Fatalf("expected newest code to verify, got %v", err)
	}
}

func TestSignupVerifyConflictWhenAccountExists(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	dir := newMockDirectory()
	mailer := newMockMailer()
	engine := newTestEngine(t, rdb, dir, mailer, testConfig())

	if _, err := engine.RequestSignupCode(ctx, "alice@example.com"); err != nil {
		t.Fatalf("RequestSignupCode failed: %v", err)
	}

	// The account appears between code request and verification.
	dir.seed(User{ID: "u1", Email: "alice@example.com"})

	code := mailer.lastCode("alice@example.com")
	_, err := engine.VerifySignupAndCreate(ctx, "alice@example.com", code, Profile{})
	if !errors.Is(err, ErrIdentityConflict) {
		t.Fatalf("expected ErrIdentityConflict, got %v", err)
	}
}

func TestInvalidateCodeDiscardsChallenge(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	dir := newMockDirectory()
	dir.seed(User{ID: "u1", Email: "alice@example.com"})
	mailer := newMockMailer()
	engine := newTestEngine(t, rdb, dir, mailer, testConfig())

	if _, err := engine.RequestLoginCode(ctx, "alice@example.com"); err != nil {
		t.Fatalf("RequestLoginCode failed: %v", err)
	}

	if err := engine.InvalidateCode(ctx, "alice@example.com"); err != nil {
		t.Fatalf("InvalidateCode failed: %v", err)
	}
	// Invalidating again is a no-op, not an error.
	if err := engine.InvalidateCode(ctx, "alice@example.com"); err != nil {
		t.Fatalf("repeat InvalidateCode failed: %v", err)
	}

	code := mailer.lastCode("alice@example.com")
	if _, err := engine.VerifyLogin(ctx, "alice@example.com", code); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode after invalidation, got %v", err)
	}
}

func TestDeliveryFailureSurfaces(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	dir := newMockDirectory()
	mailer := newMockMailer()
	mailer.fail = true
	engine := newTestEngine(t, rdb, dir, mailer, testConfig())

	_, err := engine.RequestSignupCode(context.Background(), "alice@example.com")
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}
}

func TestRequestCodeRateLimited(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	cfg := testConfig()
	cfg.OTP.EnableIdentifierThrottle = true
	cfg.OTP.MaxRequestsPerWindow = 2
	cfg.OTP.ThrottleWindow = time.Minute
	engine := newTestEngine(t, rdb, newMockDirectory(), newMockMailer(), cfg)

	for i := 0; i < 2; i++ {
		if _, err := engine.RequestSignupCode(ctx, "alice@example.com"); err != nil {
			t.Fatalf("request %d failed: %v", i+1, err)
		}
	}

	_, err := engine.RequestSignupCode(ctx, "alice@example.com")
	if !errors.Is(err, ErrCodeRateLimited) {
		t.Fatalf("expected ErrCodeRateLimited, got %v", err)
	}
}

func TestInvalidIdentityRejectedEarly(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine := newTestEngine(t, rdb, newMockDirectory(), newMockMailer(), testConfig())

	for _, email := range []string{"", "   ", "no-at-sign", "@example.com", "alice@"} {
		if _, err := engine.RequestSignupCode(context.Background(), email); !errors.Is(err, ErrInvalidIdentity) {
			t.Fatalf("email %q: expected ErrInvalidIdentity, got %v", email, err)
		}
	}
}

func TestRequestCodeFailsWhenRedisUnavailable(t *testing.T) {
	mr, rdb := newTestRedis(t)
	engine := newTestEngine(t, rdb, newMockDirectory(), newMockMailer(), testConfig())

	mr.Close()

	_, err := engine.RequestSignupCode(context.Background(), "alice@example.com")
	if !errors.Is(err, ErrChallengeUnavailable) {
		t.Fatalf("expected ErrChallengeUnavailable, got %v", err)
	}
}
