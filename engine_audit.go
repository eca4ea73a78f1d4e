package naimatauth

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventCodeRequest           = "code_request"
	auditEventCodeVerify            = "code_verify"
	auditEventSignupComplete        = "signup_complete"
	auditEventRefresh               = "token_refresh"
	auditEventChallengeInvalidation = "challenge_invalidation"
	auditEventRateLimitTriggered    = "rate_limit_triggered"
)

// AuditErrorCode is the stable, public-facing error label recorded on audit
// events. Labels collapse to the same granularity as the error taxonomy so
// audit output never leaks which OTP precondition failed.
type AuditErrorCode string

const (
	auditErrUnknownIdentity AuditErrorCode = "unknown_identity"
	auditErrConflict        AuditErrorCode = "identity_conflict"
	auditErrInvalidCode     AuditErrorCode = "invalid_code"
	auditErrRateLimited     AuditErrorCode = "rate_limited"
	auditErrDeliveryFailed  AuditErrorCode = "delivery_failed"
	auditErrInvalidToken    AuditErrorCode = "invalid_token"
	auditErrUnavailable     AuditErrorCode = "backend_unavailable"
	auditErrInternal        AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	identity string,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Identity:  identity,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, scope, identity string) {
	e.metricInc(MetricCodeRateLimited)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, identity, "", nil, func() map[string]string {
		return map[string]string{
			"scope": scope,
		}
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnknownIdentity):
		return auditErrUnknownIdentity
	case errors.Is(err, ErrIdentityConflict):
		return auditErrConflict
	case errors.Is(err, ErrInvalidCode):
		return auditErrInvalidCode
	case errors.Is(err, ErrCodeRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrDeliveryFailed):
		return auditErrDeliveryFailed
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrChallengeUnavailable),
		errors.Is(err, ErrDirectoryUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
