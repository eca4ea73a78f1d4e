package naimatauth

import (
	"context"
	"errors"
	"fmt"
)

// VerifyLogin checks the submitted code against the pending challenge for
// the identity and, on success, returns a fresh access/refresh token pair
// for the existing account.
//
// Every code-side failure collapses to [ErrInvalidCode]: a caller cannot
// distinguish a wrong code from an expired, exhausted, or never-issued
// challenge. A successful verification consumes the challenge; replaying
// the same code fails.
func (e *Engine) VerifyLogin(ctx context.Context, email, code string) (*VerifiedChallenge, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	identity := normalizeIdentity(email)
	if !isPlausibleEmail(identity) {
		return nil, ErrInvalidIdentity
	}

	challengeID, err := e.verifyCode(ctx, identity, code)
	if err != nil {
		return nil, e.failVerify(ctx, auditEventCodeVerify, identity, err)
	}

	user, found, err := e.directory.FindByEmail(ctx, identity)
	if err != nil {
		return nil, e.failVerify(ctx, auditEventCodeVerify, identity, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err))
	}
	if !found {
		// The account disappeared between code request and verification.
		// The challenge is already consumed, so the code cannot be
		// retried against a future account.
		return nil, e.failVerify(ctx, auditEventCodeVerify, identity, ErrUnknownIdentity)
	}

	tokens, err := e.mintTokenPair(user.ID)
	if err != nil {
		return nil, e.failVerify(ctx, auditEventCodeVerify, identity, err)
	}

	e.metricInc(MetricVerifySuccess)
	e.emitAudit(ctx, auditEventCodeVerify, true, identity, user.ID, nil, func() map[string]string {
		return map[string]string{
			"challenge_id": challengeID,
			"flow":         "login",
		}
	})

	return &VerifiedChallenge{
		ChallengeID: challengeID,
		Tokens:      tokens,
		User:        user,
	}, nil
}

// VerifySignupAndCreate checks the submitted code and, on success, creates
// the account and returns its first token pair.
//
// The existence check happens only after the code is verified, so an
// unauthenticated caller cannot probe which emails are registered through
// this endpoint. If the email gained an account since the code was
// requested, [ErrIdentityConflict] is returned; the challenge is still
// consumed.
func (e *Engine) VerifySignupAndCreate(ctx context.Context, email, code string, profile Profile) (*VerifiedChallenge, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	identity := normalizeIdentity(email)
	if !isPlausibleEmail(identity) {
		return nil, ErrInvalidIdentity
	}

	challengeID, err := e.verifyCode(ctx, identity, code)
	if err != nil {
		return nil, e.failVerify(ctx, auditEventSignupComplete, identity, err)
	}

	_, found, err := e.directory.FindByEmail(ctx, identity)
	if err != nil {
		return nil, e.failVerify(ctx, auditEventSignupComplete, identity, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err))
	}
	if found {
		e.metricInc(MetricSignupConflict)
		return nil, e.failVerify(ctx, auditEventSignupComplete, identity, ErrIdentityConflict)
	}

	user, err := e.directory.Create(ctx, identity, profile)
	if err != nil {
		return nil, e.failVerify(ctx, auditEventSignupComplete, identity, mapDirectoryCreateError(err))
	}

	tokens, err := e.mintTokenPair(user.ID)
	if err != nil {
		return nil, e.failVerify(ctx, auditEventSignupComplete, identity, err)
	}

	e.metricInc(MetricSignupCreated)
	e.metricInc(MetricVerifySuccess)
	e.emitAudit(ctx, auditEventSignupComplete, true, identity, user.ID, nil, func() map[string]string {
		return map[string]string{
			"challenge_id": challengeID,
		}
	})

	return &VerifiedChallenge{
		ChallengeID: challengeID,
		Tokens:      tokens,
		User:        user,
	}, nil
}

// InvalidateCode discards any pending challenge for the identity. Removing
// a challenge that does not exist is not an error.
func (e *Engine) InvalidateCode(ctx context.Context, email string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	identity := normalizeIdentity(email)
	if !isPlausibleEmail(identity) {
		return ErrInvalidIdentity
	}

	if err := e.challenges.Invalidate(ctx, identity); err != nil {
		e.emitAudit(ctx, auditEventChallengeInvalidation, false, identity, "", err, nil)
		return err
	}

	e.emitAudit(ctx, auditEventChallengeInvalidation, true, identity, "", nil, nil)
	return nil
}

// verifyCode runs the confirm-side rate limit and the challenge check.
// Both failure modes are already mapped to public errors by the time this
// returns.
func (e *Engine) verifyCode(ctx context.Context, identity, code string) (string, error) {
	if err := e.limiter.CheckConfirm(ctx, identity, clientIPFromContext(ctx)); err != nil {
		return "", mapLimiterError(err)
	}
	return e.challenges.Verify(ctx, identity, code)
}

func (e *Engine) mintTokenPair(userID string) (TokenPair, error) {
	access, err := e.tokens.CreateAccess(userID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("mint access token: %w", err)
	}
	refresh, err := e.tokens.CreateRefresh(userID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("mint refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (e *Engine) failVerify(ctx context.Context, eventType, identity string, err error) error {
	if errors.Is(err, ErrCodeRateLimited) {
		e.emitRateLimit(ctx, "confirm", identity)
		return err
	}
	if errors.Is(err, ErrInvalidCode) {
		e.metricInc(MetricVerifyFailure)
	}
	e.emitAudit(ctx, eventType, false, identity, "", err, nil)
	return err
}

// mapDirectoryCreateError keeps a storage-level uniqueness violation in the
// same class as the pre-create existence check, so two racing signups for
// one email both surface [ErrIdentityConflict].
func mapDirectoryCreateError(err error) error {
	if errors.Is(err, ErrIdentityConflict) {
		return ErrIdentityConflict
	}
	return fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
}
