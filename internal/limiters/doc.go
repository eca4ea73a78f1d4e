// Package limiters provides the fixed-window rate limiter guarding code
// requests and code confirmations.
//
// All limiters are nil-safe: calling any method on a nil receiver returns nil.
//
// # Architecture boundaries
//
// The limiter owns its own Redis key namespace and error types. Policy
// thresholds come from the Config supplied at construction time; the engine
// decides consequences.
package limiters
