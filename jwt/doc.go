// Package jwt manages access- and refresh-token issuance and verification
// with per-class signing secrets and strict validation semantics.
//
// The two token classes never cross: each is signed with its own secret and
// carries a class-specific audience claim, so a refresh token presented to
// the access validator (or the reverse) fails on both checks. Validity is
// fully stateless (signature plus embedded expiry), which means there is no
// server-side revocation; that trade-off belongs to the engine's documented
// policy, not to this package.
package jwt
