package naimatauth

import (
	"context"
	"fmt"
)

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is not rotated or tracked: it stays usable until
// its embedded expiry, and there is no server-side revocation.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if e == nil || e.tokens == nil {
		return "", ErrEngineNotReady
	}

	userID, err := e.tokens.ParseRefresh(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefresh, false, "", "", ErrTokenInvalid, nil)
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	access, err := e.tokens.CreateAccess(userID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefresh, false, "", userID, err, nil)
		return "", fmt.Errorf("mint access token: %w", err)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefresh, true, "", userID, nil, nil)
	return access, nil
}

// ValidateAccess checks an access token's signature, audience, and expiry
// and returns the user ID it was minted for. Purely local: no backend is
// consulted, so validity cannot be revoked before expiry.
func (e *Engine) ValidateAccess(accessToken string) (string, error) {
	if e == nil || e.tokens == nil {
		return "", ErrEngineNotReady
	}

	userID, err := e.tokens.ParseAccess(accessToken)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return userID, nil
}
