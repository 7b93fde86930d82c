// Package rpcgate provides a session-authenticated XML-RPC call router.
//
// A [Server] decodes each POSTed methodCall, decides whether the call needs a
// session, dispatches authorized calls to the handlers registered for the
// method, and writes the serialized result. Login, logout, and keep-alive
// calls additionally issue, revoke, or refresh the session cookie.
//
// Servers are assembled with [Builder] and are safe for concurrent use after
// [Builder.Build].
//
// # Authorization
//
// The decision order is fixed; the first matching rule wins:
//
//  1. methods in Config.Bypass.Methods
//  2. developer mode (Config.Developer.Enabled)
//  3. the login method
//  4. a session cookie that the [session.Store] reports as live
//
// A method with no registered handler is answered 404 regardless of the
// verdict, though its session cookie is still looked up and slid. A
// registered method that fails authorization is answered 401.
// Both carry an empty body and emit a diagnostic [Event].
//
// With Config.Throttle enabled, a client that fails the login method
// MaxFailures times within Window is answered 429 on further login calls
// until the window ends.
//
// # Responses
//
// Handler errors are returned as XML-RPC faults with HTTP 200. When a
// [Validator] is configured and rejects the serialized body, the response is
// replaced with a 500 carrying the fixed "Invalid XML Response" fault and no
// session cookie is changed.
//
// # Architecture boundaries
//
// rpcgate is the public surface. Session storage lives in session/, the wire
// codec in xmlrpc/, and cookie parsing and event dispatch under internal/.
// The router talks to the codec and validator only through [Codec] and
// [Validator].
package rpcgate
