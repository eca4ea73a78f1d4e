package naimatauth

import "errors"

var (
	// ErrUnknownIdentity is returned by the login-code path when no account
	// exists for the requested email. The signup path never returns it.
	ErrUnknownIdentity = errors.New("unknown identity")

	// ErrIdentityConflict is returned by signup verification when an account
	// already exists for the verified email.
	ErrIdentityConflict = errors.New("identity already exists")

	// ErrInvalidIdentity is returned when the supplied email is empty or not
	// plausibly an address. Rejected before any challenge or lookup happens.
	ErrInvalidIdentity = errors.New("invalid identity")

	// ErrInvalidCode is the single error for every OTP verification failure:
	// absent challenge, expired challenge, exhausted attempts, or wrong code.
	// Callers must not be able to tell which precondition failed.
	ErrInvalidCode = errors.New("invalid code")

	// ErrCodeRateLimited is returned when code requests or confirmations for
	// an identifier or client IP exceed the configured window budget.
	ErrCodeRateLimited = errors.New("code request rate limited")

	// ErrDeliveryFailed is returned when the out-of-band send of a freshly
	// issued code fails. Distinct from ErrInvalidCode: no code was guessable.
	ErrDeliveryFailed = errors.New("code delivery failed")

	// ErrTokenInvalid is returned on signature mismatch, wrong token class,
	// or expiry during access/refresh token validation.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrChallengeUnavailable is returned when the challenge store backend
	// cannot be reached. Infrastructure failure, not a verification outcome.
	ErrChallengeUnavailable = errors.New("challenge backend unavailable")

	// ErrDirectoryUnavailable is returned when the user directory backend
	// fails for reasons other than a missing or conflicting record.
	ErrDirectoryUnavailable = errors.New("user directory unavailable")

	// ErrEngineNotReady is returned when an Engine method is called before
	// all required dependencies were supplied through the Builder.
	ErrEngineNotReady = errors.New("engine not ready")
)
