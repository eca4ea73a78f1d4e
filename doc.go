// Package naimatauth implements passwordless one-time-code authentication with
// JWT access/refresh token issuance and a Redis-backed challenge store.
//
// A client proves control of an email address by receiving a short numeric code
// out of band and submitting it back within a bounded window. The server keeps
// exactly one live challenge per email, hashes the code with argon2id, limits
// failed attempts, and consumes the challenge on the first successful
// verification. Success mints a short-lived access token and a longer-lived
// refresh token signed with distinct secrets.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// naimatauth is the public surface. It exposes [Engine], [Builder], [Config],
// the error taxonomy, and value types (TokenPair, AuditEvent, MetricsSnapshot).
// Challenge storage, rate limiting, and audit dispatch live under internal/ and
// are never exported. Callers integrate through two interfaces: [UserDirectory]
// (account lookup and creation) and [EmailSender] (out-of-band code delivery).
//
// # Atomicity contract
//
// Failed-attempt counting and single-use consumption are races if implemented
// as read-then-write against the shared store. The Redis challenge store runs
// both as Lua scripts, so an attempt is durably recorded before the caller ever
// sees the generic invalid-code error, and a challenge can be consumed by at
// most one concurrent verifier.
package naimatauth
