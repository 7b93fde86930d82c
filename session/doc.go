// Package session provides the time-expiring session token cache consulted by
// the call router on every non-exempt call.
//
// # Backends
//
//   - [MemoryStore]: process-local LRU with sliding TTL; sessions are lost on restart.
//   - [RedisStore]: Redis-backed store using GETEX/SET PX so every operation is a
//     single atomic command.
//
// Both backends refresh an entry's age on every successful [Store.Get] and never
// return an entry whose TTL has elapsed, not even once.
//
// # Architecture boundaries
//
// This package owns token minting and token liveness. It does NOT parse cookies,
// decide which methods require a session, or write HTTP headers; those
// responsibilities belong to the router.
//
// # What this package must NOT do
//
//   - Import rpcgate or any router package (no upward imports).
//   - Store session payloads; an entry is a liveness marker only.
package session
