package naimatauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amnashah110/naimat-auth/internal/stores"
	"github.com/google/uuid"
)

// issuedChallenge is handed back exactly once per issue. The plaintext code
// leaves the process only through the EmailSender; it is never retrievable
// from the store again.
type issuedChallenge struct {
	Code        string
	ChallengeID string
	ExpiresAt   time.Time
}

// challengeManager owns the lifecycle of the single live challenge per
// identity key: issue, verify, invalidate. All verification failures
// collapse to ErrInvalidCode before leaving this type.
type challengeManager struct {
	store       *stores.ChallengeStore
	codec       *codec
	ttl         time.Duration
	maxAttempts int
}

func newChallengeManager(store *stores.ChallengeStore, codec *codec, cfg OTPConfig) *challengeManager {
	return &challengeManager{
		store:       store,
		codec:       codec,
		ttl:         cfg.TTL,
		maxAttempts: cfg.MaxAttempts,
	}
}

// Issue creates a fresh challenge for identity, unconditionally superseding
// any live one. The previous code stops verifying the moment Save lands.
func (m *challengeManager) Issue(ctx context.Context, identity string) (*issuedChallenge, error) {
	code, err := m.codec.GenerateCode()
	if err != nil {
		return nil, fmt.Errorf("code generation failed: %w", err)
	}

	codeHash, err := m.codec.Hash(code)
	if err != nil {
		return nil, fmt.Errorf("code hashing failed: %w", err)
	}

	challengeID := uuid.New()
	expiresAt := time.Now().Add(m.ttl)

	record := &stores.ChallengeRecord{
		ChallengeID: [16]byte(challengeID),
		CodeHash:    codeHash,
		ExpiresAt:   expiresAt.Unix(),
		Attempts:    0,
	}

	if err := m.store.Save(ctx, identity, record, m.ttl); err != nil {
		return nil, mapChallengeStoreError(err)
	}

	return &issuedChallenge{
		Code:        code,
		ChallengeID: challengeID.String(),
		ExpiresAt:   expiresAt,
	}, nil
}

// Verify checks candidate against the live challenge for identity.
//
// The ordering is load-bearing: liveness checks run before the hash, a
// failed attempt is durably counted before the caller sees any error, and a
// matching code consumes the record so a second verify with the same code
// finds nothing. Every failure surfaces as ErrInvalidCode.
func (m *challengeManager) Verify(ctx context.Context, identity, candidate string) (string, error) {
	record, err := m.store.Fetch(ctx, identity, m.maxAttempts)
	if err != nil {
		return "", mapChallengeStoreError(err)
	}

	ok, err := m.codec.Verify(record.CodeHash, candidate)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
	}

	if !ok {
		if err := m.store.RecordFailure(ctx, identity, m.maxAttempts); err != nil {
			if errors.Is(err, stores.ErrChallengeRedisUnavailable) {
				// The attempt was not recorded; failing open here would
				// grant unmetered guesses.
				return "", mapChallengeStoreError(err)
			}
		}
		return "", ErrInvalidCode
	}

	consumed, err := m.store.Consume(ctx, identity, record.ChallengeID)
	if err != nil {
		return "", mapChallengeStoreError(err)
	}
	if !consumed {
		// Lost the consume race, or a newer issue superseded the record
		// between fetch and delete.
		return "", ErrInvalidCode
	}

	return uuid.UUID(record.ChallengeID).String(), nil
}

// Invalidate removes any live challenge for identity. Idempotent.
func (m *challengeManager) Invalidate(ctx context.Context, identity string) error {
	if err := m.store.Delete(ctx, identity); err != nil {
		return mapChallengeStoreError(err)
	}
	return nil
}

func mapChallengeStoreError(err error) error {
	switch {
	case errors.Is(err, stores.ErrChallengeNotFound),
		errors.Is(err, stores.ErrChallengeExhausted):
		return ErrInvalidCode
	default:
		return fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
	}
}

// normalizeIdentity lower-cases and trims an email so lookups and challenge
// keys agree on one canonical form.
func normalizeIdentity(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
