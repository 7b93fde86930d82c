package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MrEthical07/rpcgate"
)

type sessionContextKey struct{}

// SessionFromContext returns the session token attached by [RequireSession]
// or [OptionalSession].
func SessionFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(sessionContextKey{}).(string)
	return token, ok && token != ""
}

// RequireSession rejects requests that do not carry a live session cookie
// issued by srv. Authorized requests continue with the token in their
// context.
func RequireSession(srv *rpcgate.Server) func(http.Handler) http.Handler {
	return Guard(srv, true)
}

// Guard authenticates the session cookie through srv. When required is
// false, requests without a live session pass through untouched.
func Guard(srv *rpcgate.Server, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if srv == nil {
				if required {
					http.Error(w, "unauthorized", http.StatusUnauthorized)
				} else {
					next.ServeHTTP(w, r)
				}
				return
			}

			token, err := srv.Authenticate(r)
			if err != nil {
				if errors.Is(err, rpcgate.ErrSessionStoreUnavailable) {
					srv.Logger().WarnContext(r.Context(), "session guard lookup failed",
						slog.String("path", r.URL.Path),
						slog.Any("err", err),
					)
				}
				if required {
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
