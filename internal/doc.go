// Package internal contains helper utilities that are intentionally private
// to naimat-auth, including secure random code generation.
//
// # Sub-packages
//
//   - limiters: fixed-window throttles for code requests and confirmations
//   - stores: the Redis-backed challenge record store
//
// # What this package must NOT do
//
//   - Export types that appear in the public naimatauth API.
//   - Be imported by any package outside the naimat-auth module.
package internal
