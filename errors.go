package rpcgate

import "errors"

var (
	// ErrUnauthorized is reported when a registered method is called without a live session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrMethodNotFound is reported when no handler is registered for a method name.
	ErrMethodNotFound = errors.New("method not found")
	// ErrCallTimeout is returned to the caller as a fault when no handler completes in time.
	ErrCallTimeout = errors.New("call timed out")
	// ErrHandlerPanic is returned to the caller as a fault when a handler panics.
	ErrHandlerPanic = errors.New("handler panicked")
	// ErrInvalidResponse is reported when the response validator rejects a body.
	ErrInvalidResponse = errors.New("invalid xml response")
	// ErrMalformedRequest is reported when the codec cannot decode a request body.
	ErrMalformedRequest = errors.New("malformed request")
	// ErrRegistryFrozen is returned by Register after the server has been built.
	ErrRegistryFrozen = errors.New("method registry frozen")
	// ErrInvalidMethodName is returned by Register for empty or whitespace-padded names.
	ErrInvalidMethodName = errors.New("invalid method name")
	// ErrNilHandler is returned by Register for a nil handler.
	ErrNilHandler = errors.New("nil handler")
	// ErrServerNotReady is returned by Server methods called on a nil or unbuilt server.
	ErrServerNotReady = errors.New("server not initialized")
	// ErrSessionStoreUnavailable wraps session backend failures.
	ErrSessionStoreUnavailable = errors.New("session store unavailable")
	// ErrLoginThrottled is reported when a client exceeds its failed-login budget.
	ErrLoginThrottled = errors.New("login throttled")
	// ErrSessionIssueFailed is reported when a login succeeds but no session could be stored.
	ErrSessionIssueFailed = errors.New("session issue failed")
)
