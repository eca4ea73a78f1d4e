package naimatauth

import (
	"context"
	"time"
)

// User is the account record returned by [UserDirectory]. Email is the
// external identity; ID is the token subject.
type User struct {
	ID    string
	Email string
	Name  string
}

// Profile carries the caller-supplied fields for account creation during
// signup verification. Email is set by the engine from the verified identity,
// never from the caller.
type Profile struct {
	Name string
}

// UserDirectory is the persistent account store consumed by the engine.
// Implementations must return ([User], found=false, nil) for a missing email
// rather than an error, and must surface a duplicate email on Create as
// [ErrIdentityConflict] or a database-level uniqueness failure.
//
// The engine treats the directory as external: it never caches records and
// performs one lookup per operation that needs one.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (User, bool, error)
	Create(ctx context.Context, email string, profile Profile) (User, error)
}

// EmailSender delivers a freshly issued code out of band. Delivery is
// best-effort and never retried by the engine; a failure is reported to the
// caller as [ErrDeliveryFailed].
type EmailSender interface {
	SendCode(ctx context.Context, email, code string) error
}

// TokenPair is returned by successful login and signup verification. Nothing
// server-side tracks these tokens: validity is signature plus embedded expiry.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// CodeIssued reports the outcome of a code request. The code itself is only
// handed to the [EmailSender]; callers see the expiry so transports can
// surface a retry-after hint.
type CodeIssued struct {
	ExpiresAt time.Time
}

// VerifiedChallenge correlates a successful verification with the consumed
// challenge record. ChallengeID is opaque and not a secret.
type VerifiedChallenge struct {
	ChallengeID string
	Tokens      TokenPair
	User        User
}
