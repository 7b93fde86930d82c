// Package middleware protects plain HTTP routes with the same session cookie
// the XML-RPC router issues.
//
// # Guards
//
//   - [RequireSession] rejects requests without a live session with 401.
//   - [OptionalSession] attaches the token when present and never rejects.
//
// Each guard calls [rpcgate.Server.Authenticate] and injects the token into
// the request context, readable through [SessionFromContext].
//
// # What this package must NOT do
//
//   - Issue or revoke sessions. Only login and logout calls do that.
//   - Access the session store directly.
package middleware
