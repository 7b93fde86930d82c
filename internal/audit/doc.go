// Package audit implements async dispatching of router diagnostic events.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, slog, func, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: structured record of a rejected or abnormal call.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which
// events to emit; that responsibility belongs to the router.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import rpcgate or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
