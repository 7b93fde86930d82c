// Package internal holds helpers that are private to rpcgate.
//
// # Sub-packages
//
//   - audit: async diagnostic event dispatch (Dispatcher + Sink implementations)
//   - cookie: Cookie request header parsing into a per-request jar
//   - rate: fixed-window failure counters for the login throttle
//
// # What this package must NOT do
//
//   - Export types that appear in the public rpcgate API, except through
//     aliases declared in the root package.
//   - Be imported by any package outside the rpcgate module.
package internal
