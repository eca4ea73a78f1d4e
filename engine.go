package naimatauth

import (
	"github.com/amnashah110/naimat-auth/internal/limiters"
	"github.com/amnashah110/naimat-auth/jwt"
)

// Engine is the authentication orchestrator. It owns the challenge
// lifecycle, token issuance, and the side channels (mail, audit,
// metrics), and exposes one method per auth operation.
//
// An Engine is safe for concurrent use. All cross-request state lives
// in Redis; the Engine itself holds only configuration and handles.
type Engine struct {
	config Config

	challenges *challengeManager
	tokens     *jwt.Manager
	directory  UserDirectory
	mail       EmailSender
	limiter    *limiters.OTPLimiter

	audit   *auditDispatcher
	metrics *Metrics
}

// ready reports whether Build wired every mandatory collaborator.
// Operations check this before touching any backend.
func (e *Engine) ready() bool {
	return e != nil && e.challenges != nil && e.tokens != nil && e.directory != nil && e.mail != nil
}

func (e *Engine) metricInc(id MetricID) {
	if e.metrics != nil {
		e.metrics.Inc(id)
	}
}

// MetricsSnapshot returns a copy of the engine's counters. The map is
// empty when metrics are disabled.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full. Always zero when auditing is disabled or
// configured to block.
func (e *Engine) AuditDropped() uint64 {
	if e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Close flushes and stops the audit dispatcher. The Engine must not be
// used after Close returns.
func (e *Engine) Close() {
	if e.audit != nil {
		e.audit.Close()
	}
}
