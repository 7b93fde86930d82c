package middleware

import (
	"net/http"

	"github.com/MrEthical07/rpcgate"
)

// OptionalSession attaches the session token when the request carries a
// live one and never rejects.
func OptionalSession(srv *rpcgate.Server) func(http.Handler) http.Handler {
	return Guard(srv, false)
}
