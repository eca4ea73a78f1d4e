// Package codehash hashes one-time codes with Argon2id.
//
// The input space of a fixed-width numeric code is tiny (10^6 for six
// digits), so a fast digest would let anyone holding a leaked store
// brute-force every live code in milliseconds. Argon2id with a per-code salt
// makes that scan cost real memory and wall time. Verification delegates to
// the library's constant-time comparison; nothing in this package compares
// plaintext.
//
// # Output format
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// # What this package must NOT do
//
//   - Persist or transmit codes: callers supply plaintext and receive hashes.
//   - Import any other naimat-auth package.
//   - Log plaintext codes or derived hashes.
package codehash
