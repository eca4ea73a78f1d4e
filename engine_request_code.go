package naimatauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/amnashah110/naimat-auth/internal/limiters"
)

// RequestLoginCode issues and delivers a one-time code for an existing
// account. The identity must already be present in the directory;
// otherwise [ErrUnknownIdentity] is returned and no code is issued.
//
// Re-requesting before the previous code expires replaces it: only the
// newest code for an identity is ever valid.
func (e *Engine) RequestLoginCode(ctx context.Context, email string) (*CodeIssued, error) {
	return e.requestCode(ctx, email, true)
}

// RequestSignupCode issues and delivers a one-time code for an identity
// that is about to register. No directory lookup happens here: whether
// the email already has an account is only decided at
// [Engine.VerifySignupAndCreate], after the caller has proven control of
// the mailbox.
func (e *Engine) RequestSignupCode(ctx context.Context, email string) (*CodeIssued, error) {
	return e.requestCode(ctx, email, false)
}

func (e *Engine) requestCode(ctx context.Context, email string, requireAccount bool) (*CodeIssued, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	identity := normalizeIdentity(email)
	if !isPlausibleEmail(identity) {
		return nil, ErrInvalidIdentity
	}

	if err := e.limiter.CheckRequest(ctx, identity, clientIPFromContext(ctx)); err != nil {
		return nil, e.failCodeRequest(ctx, identity, mapLimiterError(err))
	}

	if requireAccount {
		_, found, err := e.directory.FindByEmail(ctx, identity)
		if err != nil {
			return nil, e.failCodeRequest(ctx, identity, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err))
		}
		if !found {
			return nil, e.failCodeRequest(ctx, identity, ErrUnknownIdentity)
		}
	}

	issued, err := e.challenges.Issue(ctx, identity)
	if err != nil {
		return nil, e.failCodeRequest(ctx, identity, err)
	}

	if err := e.mail.SendCode(ctx, identity, issued.Code); err != nil {
		e.metricInc(MetricCodeDeliveryFailed)
		return nil, e.failCodeRequest(ctx, identity, fmt.Errorf("%w: %v", ErrDeliveryFailed, err))
	}

	e.metricInc(MetricCodeRequested)
	e.emitAudit(ctx, auditEventCodeRequest, true, identity, "", nil, func() map[string]string {
		return map[string]string{
			"challenge_id": issued.ChallengeID,
			"flow":         requestFlow(requireAccount),
		}
	})

	return &CodeIssued{ExpiresAt: issued.ExpiresAt}, nil
}

// failCodeRequest records the failed request on the audit trail and hands
// the error back unchanged so call sites stay single-line.
func (e *Engine) failCodeRequest(ctx context.Context, identity string, err error) error {
	if errors.Is(err, ErrCodeRateLimited) {
		e.emitRateLimit(ctx, "request", identity)
		return err
	}
	e.emitAudit(ctx, auditEventCodeRequest, false, identity, "", err, nil)
	return err
}

func mapLimiterError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, limiters.ErrOTPRateLimited) {
		return ErrCodeRateLimited
	}
	return fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
}

func requestFlow(requireAccount bool) string {
	if requireAccount {
		return "login"
	}
	return "signup"
}

// isPlausibleEmail is deliberately loose. Real validation is delegated to
// the mailbox: only someone reading the inbox can finish the flow.
func isPlausibleEmail(identity string) bool {
	at := strings.IndexByte(identity, '@')
	return at > 0 && at < len(identity)-1
}
