// Package stores provides the Redis-backed, short-lived challenge store for
// the one-time-code flow.
//
// # Design
//
// One versioned, binary-encoded record per identity key, persisted with a
// TTL. The mutation verbs (RecordFailure, Consume) run as Lua scripts so the
// check-increment-or-delete sequence is atomic per key: a failed attempt is
// durably counted before the caller observes any error, and a record is
// consumed by at most one concurrent verifier. Failed attempts keep the
// record's remaining TTL; the expiry window is never extended.
//
// # What this package must NOT do
//
//   - Import the root package or any sibling internal package.
//   - Hash or compare codes: the slow hash lives in codehash and runs in Go.
//   - Log plaintext codes or hashes.
package stores
